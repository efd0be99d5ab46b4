package model

import (
	"fmt"
	"strconv"
	"strings"
)

// MainCounts maps dish name to the number of guests who chose it.
type MainCounts map[string]int

// Total sums every count.
func (m MainCounts) Total() int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}

// FormatMainChoice serializes counts as "Pasta:1, Pizza:2" in MainDishes
// order.  Zero counts and unknown dishes are left out, so an all-zero map
// yields "".
func FormatMainChoice(m MainCounts) string {
	parts := make([]string, 0, len(MainDishes))
	for _, d := range MainDishes {
		if n := m[d.Name]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", d.Name, n))
		}
	}
	return strings.Join(parts, ", ")
}

var choiceSeparators = strings.NewReplacer("、", ",", "：", ":")

// ParseMainChoice reads a serialized main choice.  Every known dish is
// present in the result, defaulting to zero.  Unknown dishes and malformed
// entries are ignored.
func ParseMainChoice(s string) MainCounts {
	out := make(MainCounts, len(MainDishes))
	for _, d := range MainDishes {
		out[d.Name] = 0
	}
	s = choiceSeparators.Replace(s)
	for _, part := range strings.Split(s, ",") {
		name, qty, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if _, known := out[name]; !known {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(qty))
		if err != nil || n < 0 {
			continue
		}
		out[name] = n
	}
	return out
}
