/*
Package calendar provides day-granularity date handling for attendance
and leave computation.

PURPOSE:
  Business logic in this system never reads the system clock directly.
  "Today" is always passed in as an explicit Date, which keeps check-in,
  overtime, and leave calculations deterministic and testable with fixed
  dates.

KEY CONCEPTS IN THIS FILE (date.go):
  - Date: A calendar day (no time-of-day component, always UTC)
  - DateRange: An inclusive [Start, End] span of days

DESIGN PRINCIPLES:
  1. Day granularity: attendance and leave are per-day concepts; a Date
     compares and hashes by day, never by wall-clock instant
  2. Explicit time: constructors take year/month/day or a time.Time that
     is truncated, so a Date can never smuggle in hours or a timezone

SEE ALSO:
  - holidays.go: Holiday calendar and working-day counting
*/
package calendar

import (
	"time"
)

// =============================================================================
// DATE - A single calendar day
// =============================================================================

type Date struct {
	t time.Time
}

// NewDate constructs a Date from year/month/day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar day (in UTC).
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

// Today returns the current calendar day. Callers at the service boundary
// use this once and pass the Date down; inner packages never call it.
func Today() Date {
	return DateOf(time.Now())
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return d.Before(other) || d.Equal(other) }
func (d Date) AfterOrEqual(other Date) bool  { return d.After(other) || d.Equal(other) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Time returns the midnight-UTC instant of this day.
func (d Date) Time() time.Time { return d.t }

func (d Date) String() string { return d.t.Format("2006-01-02") }

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// DaysBetween returns the number of whole days from 'from' to 'to'.
// Negative if 'to' is earlier.
func DaysBetween(from, to Date) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}

// Month helpers
func StartOfMonth(year int, month time.Month) Date { return NewDate(year, month, 1) }
func EndOfMonth(year int, month time.Month) Date {
	t := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	return DateOf(t)
}

// NextMonth returns the (year, month) following the given one.
func NextMonth(year int, month time.Month) (int, time.Month) {
	d := NewDate(year, month, 1).AddMonths(1)
	return d.Year(), d.Month()
}

// =============================================================================
// DATE RANGE - Inclusive span of calendar days
// =============================================================================

// DateRange is an inclusive [Start, End] span.
type DateRange struct {
	Start Date
	End   Date
}

// Valid reports whether End is not before Start.
func (r DateRange) Valid() bool { return !r.End.Before(r.Start) }

// Contains reports whether d falls within the range.
func (r DateRange) Contains(d Date) bool {
	return d.AfterOrEqual(r.Start) && d.BeforeOrEqual(r.End)
}

// Days returns every day in the range, in order.
func (r DateRange) Days() []Date {
	var days []Date
	for cur := r.Start; cur.BeforeOrEqual(r.End); cur = cur.AddDays(1) {
		days = append(days, cur)
	}
	return days
}

// TotalDays returns the calendar-day count of the range (inclusive).
func (r DateRange) TotalDays() int { return DaysBetween(r.Start, r.End) + 1 }

func (r DateRange) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + "]"
}
