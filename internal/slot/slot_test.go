package slot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/halpe-hal/pizza-course-manager-app/internal/clock"
)

func TestConflictTable(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"18:00", "18:00", true},
		{"18:00", "18:30", true},
		{"18:00", "20:30", false},
		{"18:00", "21:00", false},
		{"18:30", "20:30", true},
		{"18:30", "21:00", false},
		{"20:30", "21:00", true},
		{"21:00", "21:00", true},
		{"19:15", "19:15", true},
		{"19:15", "18:00", false},
		{"18:00", "19:15", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Conflicts(tc.a, tc.b), "%s vs %s", tc.a, tc.b)
	}
}

func TestConflictsIsSymmetric(t *testing.T) {
	times := append([]string{"17:45", "19:00"}, "18:00", "18:30", "20:30", "21:00")
	for _, a := range times {
		for _, b := range times {
			assert.Equal(t, Conflicts(a, b), Conflicts(b, a), "%s vs %s", a, b)
		}
	}
}

func TestConflictsAny(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2024, 5, 1, h, m, 0, 0, clock.JST) }

	assert.False(t, ConflictsAny(at(18, 0), nil))
	assert.True(t, ConflictsAny(at(18, 30), []time.Time{at(18, 0)}))
	assert.False(t, ConflictsAny(at(20, 30), []time.Time{at(18, 0)}))
	assert.True(t, ConflictsAny(at(21, 0), []time.Time{at(18, 0), at(20, 30)}))

	// Existing times stored in UTC compare by their JST wall clock.
	assert.True(t, ConflictsAny(at(18, 0), []time.Time{at(18, 30).UTC()}))
}
