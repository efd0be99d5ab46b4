// Package clock holds the restaurant's notion of "now" and "today".  The
// restaurant runs on Japan Standard Time regardless of where the server is
// hosted, so every calendar-day decision goes through the fixed UTC+9 zone
// defined here.
package clock

import (
	"errors"
	"strings"
	"time"
)

// JST is the fixed UTC+9 zone used for every business-day computation.
var JST = time.FixedZone("JST", 9*60*60)

// Clock abstracts the current instant so services can be tested with a
// frozen time.
type Clock interface {
	Now() time.Time
}

// System is the wall clock.
type System struct{}

// Now returns the current instant.
func (System) Now() time.Time { return time.Now() }

// Fixed always reports the same instant.
type Fixed struct{ T time.Time }

// Now returns the frozen instant.
func (f Fixed) Now() time.Time { return f.T }

// Date is a calendar day in JST.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the JST calendar day containing t.
func DateOf(t time.Time) Date {
	y, m, d := t.In(JST).Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current JST calendar day according to c.
func Today(c Clock) Date { return DateOf(c.Now()) }

// Start returns 00:00 JST of the day.
func (d Date) Start() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, JST)
}

// Bounds returns the half-open range [00:00 JST, next 00:00 JST).
func (d Date) Bounds() (time.Time, time.Time) {
	start := d.Start()
	return start, start.AddDate(0, 0, 1)
}

// String formats the day as YYYY-MM-DD.
func (d Date) String() string { return d.Start().Format("2006-01-02") }

// ParseDate parses a YYYY-MM-DD string as a JST calendar day.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(s), JST)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// ErrBadTimestamp is returned by ParseTimestamp for unparseable input.
var ErrBadTimestamp = errors.New("unrecognized timestamp")

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04Z07:00",
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseTimestamp parses an ISO-8601 timestamp as produced by the datastore
// or a client.  Zone suffixes ("Z", "+09:00") are honoured; values without
// one are read as JST wall time.  Fractional seconds are accepted and
// dropped.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrBadTimestamp
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Truncate(time.Second), nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, JST); err == nil {
			return t.Truncate(time.Second), nil
		}
	}
	return time.Time{}, ErrBadTimestamp
}

// HHMM returns the JST wall-clock time of t as "15:04".
func HHMM(t time.Time) string { return t.In(JST).Format("15:04") }

// Format renders t as RFC3339 in JST.
func Format(t time.Time) string { return t.In(JST).Format(time.RFC3339) }
