// Package timeutil handles calendar-day arithmetic for practice tracking.
// Days are identified by YYYY-MM-DD keys taken in the user's location;
// gaps between keys are counted on the calendar, so DST never shifts them.
package timeutil

import (
	"fmt"
	"time"
)

// FormatDate is the layout of a day key (YYYY-MM-DD).
const FormatDate = "2006-01-02"

// Clock supplies the current time. Production code uses SystemClock;
// tests pass a FixedClock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return c.T }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// LoadLocation resolves an IANA zone name. Empty means Local.
func LoadLocation(name string) (*time.Location, error) {
	switch name {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", name, err)
	}
	return loc, nil
}

// DateKey formats t as the calendar day it falls on in loc.
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(FormatDate)
}

// ParseDateKey parses a YYYY-MM-DD key as midnight UTC.
func ParseDateKey(key string) (time.Time, error) {
	return time.ParseInLocation(FormatDate, key, time.UTC)
}

// DaysBetween returns the absolute number of calendar days between two
// day keys.
func DaysBetween(a, b string) (int, error) {
	ta, err := ParseDateKey(a)
	if err != nil {
		return 0, fmt.Errorf("parse day %q: %w", a, err)
	}
	tb, err := ParseDateKey(b)
	if err != nil {
		return 0, fmt.Errorf("parse day %q: %w", b, err)
	}
	days := int(tb.Sub(ta).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days, nil
}

// StartOfDay returns midnight of t's day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, loc)
}

// LastNDays returns n consecutive day keys ending with t's day in loc,
// oldest first.
func LastNDays(t time.Time, loc *time.Location, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	today := StartOfDay(t, loc)
	days := make([]time.Time, n)
	for i := 0; i < n; i++ {
		days[i] = today.AddDate(0, 0, i-(n-1))
	}
	return days
}

var weekdayInitials = [7]string{"S", "M", "T", "W", "T", "F", "S"}

// WeekdayInitial returns the one-letter label used on the weekly chart,
// Sunday first.
func WeekdayInitial(d time.Weekday) string {
	return weekdayInitials[int(d)%7]
}
