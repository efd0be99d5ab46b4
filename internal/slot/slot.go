// Package slot encodes which seating times block each other at a table.
// A party seated at 18:00 is still eating at 18:30, and a party seated at
// 18:30 runs into the 20:30 turn, so bookings in neighbouring slots cannot
// share a table.
package slot

import (
	"time"

	"github.com/halpe-hal/pizza-course-manager-app/internal/clock"
)

var blocked = map[string][]string{
	"18:00": {"18:00", "18:30"},
	"18:30": {"18:00", "18:30", "20:30"},
	"20:30": {"18:30", "20:30", "21:00"},
	"21:00": {"20:30", "21:00"},
}

// Blocks returns the set of HH:MM times that may not share a table with a
// booking at hhmm.  Times outside the standard slots only block themselves.
func Blocks(hhmm string) []string {
	if b, ok := blocked[hhmm]; ok {
		return b
	}
	return []string{hhmm}
}

// Conflicts reports whether two JST wall-clock times exclude each other.
func Conflicts(a, b string) bool {
	for _, t := range Blocks(a) {
		if t == b {
			return true
		}
	}
	return false
}

// ConflictsAny reports whether candidate collides with any existing start
// time.  Callers pass only reservations on the same table and JST day.
func ConflictsAny(candidate time.Time, existing []time.Time) bool {
	c := clock.HHMM(candidate)
	for _, e := range existing {
		if Conflicts(c, clock.HHMM(e)) {
			return true
		}
	}
	return false
}
