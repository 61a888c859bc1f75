package period_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relay/timesheet-bot/period"
)

// =============================================================================
// CALENDAR ARITHMETIC
// =============================================================================

func TestWeekStart_AlwaysMonday(t *testing.T) {
	cases := []struct {
		day  int
		want string
	}{
		{17, "2024-06-17"}, // Monday stays
		{18, "2024-06-17"}, // Tuesday
		{22, "2024-06-17"}, // Saturday
		{23, "2024-06-17"}, // Sunday belongs to the week it closes
		{24, "2024-06-24"}, // Next Monday
	}
	for _, tc := range cases {
		d := period.NewDate(2024, time.June, tc.day)
		assert.Equal(t, tc.want, period.WeekStart(d).String(), "week start of June %d", tc.day)
	}
}

func TestDaysInMonth_LeapFebruary(t *testing.T) {
	assert.Equal(t, 29, period.DaysInMonth(2024, time.February))
	assert.Equal(t, 28, period.DaysInMonth(2023, time.February))
	assert.Equal(t, 28, period.DaysInMonth(1900, time.February)) // century, not leap
	assert.Equal(t, 29, period.DaysInMonth(2000, time.February)) // quadricentennial
	assert.Equal(t, 31, period.DaysInMonth(2024, time.December))
	assert.Equal(t, 30, period.DaysInMonth(2024, time.April))
}

func TestMonthEnd(t *testing.T) {
	assert.Equal(t, "2024-02-29", period.MonthEnd(2024, time.February).String())
	assert.Equal(t, "2024-06-30", period.MonthEnd(2024, time.June).String())
}

func TestQuarterBounds(t *testing.T) {
	cases := []struct {
		q          int
		start, end string
	}{
		{1, "2024-01-01", "2024-03-31"},
		{2, "2024-04-01", "2024-06-30"},
		{3, "2024-07-01", "2024-09-30"},
		{4, "2024-10-01", "2024-12-31"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.start, period.QuarterStart(2024, tc.q).String())
		assert.Equal(t, tc.end, period.QuarterEnd(2024, tc.q).String())
	}
}

func TestQuarterOf(t *testing.T) {
	assert.Equal(t, 1, period.QuarterOf(time.March))
	assert.Equal(t, 2, period.QuarterOf(time.April))
	assert.Equal(t, 3, period.QuarterOf(time.September))
	assert.Equal(t, 4, period.QuarterOf(time.October))
}

func TestAddDays_CrossesMonthAndYear(t *testing.T) {
	d := period.NewDate(2024, time.January, 1)
	assert.Equal(t, "2023-12-31", d.AddDays(-1).String())
	assert.Equal(t, "2024-03-01", period.NewDate(2024, time.February, 29).AddDays(1).String())
}

// =============================================================================
// ISO PARSING
// =============================================================================

func TestParseISO_Valid(t *testing.T) {
	d, err := period.ParseISO("2024-06-18")
	require.NoError(t, err)
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, time.June, d.Month())
	assert.Equal(t, 18, d.Day())
}

func TestParseISO_RejectsImpossibleDates(t *testing.T) {
	for _, s := range []string{"2024-13-01", "2024-02-30", "2023-02-29", "2024-00-10"} {
		_, err := period.ParseISO(s)
		assert.Error(t, err, "expected %q to be rejected", s)
	}
}

func TestValid(t *testing.T) {
	assert.True(t, period.Valid(2024, time.February, 29))
	assert.False(t, period.Valid(2023, time.February, 29))
	assert.False(t, period.Valid(2024, time.April, 31))
	assert.False(t, period.Valid(2024, time.May, 0))
}

// =============================================================================
// PERIOD
// =============================================================================

func TestPeriod_ContainsInclusiveBounds(t *testing.T) {
	p := period.Period{
		Start: period.NewDate(2024, time.May, 1),
		End:   period.NewDate(2024, time.May, 31),
	}
	assert.True(t, p.Contains(period.NewDate(2024, time.May, 1)))
	assert.True(t, p.Contains(period.NewDate(2024, time.May, 31)))
	assert.True(t, p.Contains(period.NewDate(2024, time.May, 15)))
	assert.False(t, p.Contains(period.NewDate(2024, time.April, 30)))
	assert.False(t, p.Contains(period.NewDate(2024, time.June, 1)))
}

func TestPeriod_Days(t *testing.T) {
	p := period.Period{
		Start: period.NewDate(2024, time.June, 18),
		End:   period.NewDate(2024, time.June, 18),
	}
	assert.Equal(t, 1, p.Days())

	p.End = period.NewDate(2024, time.June, 24)
	assert.Equal(t, 7, p.Days())
}
