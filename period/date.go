/*
date.go - Naive calendar dates and inclusive date ranges

PURPOSE:
  The resolver works on plain calendar dates: no time-of-day, no timezone.
  Date wraps a UTC-midnight time.Time so that comparisons and arithmetic
  stay trivially correct, and Period pairs two dates into the inclusive
  [Start, End] range every recognizer produces.

CALENDAR POLICY:
  - Weeks run Monday through Sunday.
  - Month ends come from the real day count of the month (leap-aware).
  - Quarters are the fixed Q1=Jan-Mar .. Q4=Oct-Dec blocks.

SEE ALSO:
  - resolver.go: Resolve() produces Periods from free-form text
  - recognizers.go: the strategies that do the calendar math
*/
package period

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - A calendar date with no time component
// =============================================================================

// Date is a naive calendar date. The zero value is not a valid date.
type Date struct {
	t time.Time
}

// NewDate creates a date from its components. Components are not validated;
// use Valid() first when they come from user input.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar date. It reads the system clock on
// every call: relative phrases must reflect the true "now" at request time.
func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// FromTime truncates a time.Time to its calendar date.
func FromTime(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseISO parses a YYYY-MM-DD string, rejecting impossible calendar dates
// such as 2024-02-31.
func ParseISO(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return FromTime(t), nil
}

// Valid reports whether the components form a real calendar date.
func Valid(year int, month time.Month, day int) bool {
	if month < time.January || month > time.December {
		return false
	}
	return day >= 1 && day <= DaysInMonth(year, month)
}

// Comparison
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }

// Time returns the date as a UTC-midnight time.Time.
func (d Date) Time() time.Time { return d.t }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// String formats the date as YYYY-MM-DD.
func (d Date) String() string { return d.t.Format("2006-01-02") }

// =============================================================================
// CALENDAR ARITHMETIC
// =============================================================================

// DaysInMonth returns the number of days in a month, leap-year aware.
func DaysInMonth(year int, month time.Month) int {
	// First of the next month, minus one day.
	return time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1).Day()
}

// MonthStart returns the first day of the month.
func MonthStart(year int, month time.Month) Date { return NewDate(year, month, 1) }

// MonthEnd returns the last day of the month.
func MonthEnd(year int, month time.Month) Date {
	return NewDate(year, month, DaysInMonth(year, month))
}

// WeekStart returns the Monday of the ISO week containing d.
func WeekStart(d Date) Date {
	offset := (int(d.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
	return d.AddDays(-offset)
}

// QuarterOf returns the quarter index (1-4) containing the month.
func QuarterOf(month time.Month) int { return (int(month)-1)/3 + 1 }

// QuarterStart returns the first day of quarter q (1-4) in year.
func QuarterStart(year, q int) Date {
	return NewDate(year, time.Month((q-1)*3+1), 1)
}

// QuarterEnd returns the last day of quarter q (1-4) in year.
func QuarterEnd(year, q int) Date {
	last := time.Month(q * 3)
	return MonthEnd(year, last)
}

// =============================================================================
// PERIOD - Inclusive date range
// =============================================================================

// Period is an inclusive calendar date range [Start, End], Start <= End.
type Period struct {
	Start Date
	End   Date
}

// Contains returns true if the date falls within [Start, End].
func (p Period) Contains(d Date) bool {
	return !d.Before(p.Start) && !d.After(p.End)
}

// Days returns the number of days covered by the period, both ends counted.
func (p Period) Days() int {
	return int(p.End.t.Sub(p.Start.t).Hours()/24) + 1
}

// String returns "[YYYY-MM-DD, YYYY-MM-DD]".
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
