package calendar_test

import (
	"testing"
	"time"

	"github.com/warp/attendance-engine/calendar"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func d(year int, month time.Month, day int) calendar.Date {
	return calendar.NewDate(year, month, day)
}

// fixedHolidays is a HolidayCalendar backed by a literal date set.
type fixedHolidays map[string]bool

func (f fixedHolidays) IsHoliday(institutionID string, date calendar.Date) bool {
	return f[date.String()]
}

func (f fixedHolidays) HolidaysInRange(institutionID string, r calendar.DateRange) []calendar.Holiday {
	var out []calendar.Holiday
	for _, day := range r.Days() {
		if f[day.String()] {
			out = append(out, calendar.Holiday{Date: day})
		}
	}
	return out
}

// =============================================================================
// DATE ARITHMETIC TESTS
// =============================================================================

func TestDate_Comparisons(t *testing.T) {
	a := d(2025, time.March, 10)
	b := d(2025, time.March, 11)

	if !a.Before(b) {
		t.Error("expected March 10 before March 11")
	}
	if !b.After(a) {
		t.Error("expected March 11 after March 10")
	}
	if !a.Equal(d(2025, time.March, 10)) {
		t.Error("expected equal dates to compare equal")
	}
	if !a.BeforeOrEqual(a) || !a.AfterOrEqual(a) {
		t.Error("expected BeforeOrEqual/AfterOrEqual to include equality")
	}
}

func TestDate_DateOfDropsTimeOfDay(t *testing.T) {
	// GIVEN: Two instants on the same calendar day
	morning := time.Date(2025, time.June, 5, 8, 30, 0, 0, time.UTC)
	evening := time.Date(2025, time.June, 5, 23, 59, 59, 0, time.UTC)

	// THEN: Both map to the same Date
	if !calendar.DateOf(morning).Equal(calendar.DateOf(evening)) {
		t.Error("expected same-day instants to map to the same Date")
	}
}

func TestDaysBetween(t *testing.T) {
	cases := []struct {
		from, to calendar.Date
		want     int
	}{
		{d(2025, time.January, 1), d(2025, time.January, 1), 0},
		{d(2025, time.January, 1), d(2025, time.January, 31), 30},
		{d(2025, time.February, 28), d(2025, time.March, 1), 1},
		{d(2024, time.February, 28), d(2024, time.March, 1), 2}, // leap year
	}
	for _, c := range cases {
		if got := calendar.DaysBetween(c.from, c.to); got != c.want {
			t.Errorf("DaysBetween(%s, %s) = %d, want %d", c.from, c.to, got, c.want)
		}
	}
}

func TestNextMonth_YearBoundary(t *testing.T) {
	year, month := calendar.NextMonth(2025, time.December)
	if year != 2026 || month != time.January {
		t.Errorf("NextMonth(2025, December) = %d-%v, want 2026-January", year, month)
	}

	year, month = calendar.NextMonth(2025, time.June)
	if year != 2025 || month != time.July {
		t.Errorf("NextMonth(2025, June) = %d-%v, want 2025-July", year, month)
	}
}

func TestEndOfMonth(t *testing.T) {
	cases := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2025, time.January, 31},
		{2025, time.February, 28},
		{2024, time.February, 29},
		{2025, time.April, 30},
	}
	for _, c := range cases {
		if got := calendar.EndOfMonth(c.year, c.month).Day(); got != c.want {
			t.Errorf("EndOfMonth(%d, %v).Day() = %d, want %d", c.year, c.month, got, c.want)
		}
	}
}

func TestParseDate_RoundTrip(t *testing.T) {
	parsed, err := calendar.ParseDate("2025-08-29")
	if err != nil {
		t.Fatalf("ParseDate failed: %v", err)
	}
	if parsed.String() != "2025-08-29" {
		t.Errorf("round trip = %s, want 2025-08-29", parsed)
	}

	if _, err := calendar.ParseDate("29/08/2025"); err == nil {
		t.Error("expected error for non-ISO date format")
	}
}

func TestDateRange_Contains(t *testing.T) {
	r := calendar.DateRange{Start: d(2025, time.May, 10), End: d(2025, time.May, 20)}

	if !r.Contains(d(2025, time.May, 10)) || !r.Contains(d(2025, time.May, 20)) {
		t.Error("expected range endpoints to be contained")
	}
	if r.Contains(d(2025, time.May, 9)) || r.Contains(d(2025, time.May, 21)) {
		t.Error("expected dates outside range to be excluded")
	}
	if r.TotalDays() != 11 {
		t.Errorf("TotalDays = %d, want 11", r.TotalDays())
	}
}

// =============================================================================
// WORKING DAY TESTS
// =============================================================================

func TestWorkingDays_ExcludesHolidaysKeepsWeekends(t *testing.T) {
	// GIVEN: Mon 2025-08-11 .. Sun 2025-08-17 (7 calendar days) with
	//        Friday 2025-08-15 gazetted as a holiday
	// WHEN: Counting working days
	// THEN: 6 chargeable days. The weekend stays in the count; only the
	//       gazetted holiday drops out.

	holidays := fixedHolidays{"2025-08-15": true}

	count := calendar.WorkingDays(d(2025, time.August, 11), d(2025, time.August, 17), holidays, "inst-1")

	if count.TotalCalendarDays != 7 {
		t.Errorf("TotalCalendarDays = %d, want 7", count.TotalCalendarDays)
	}
	if count.HolidaysInRange != 1 {
		t.Errorf("HolidaysInRange = %d, want 1", count.HolidaysInRange)
	}
	if count.WorkingDays != 6 {
		t.Errorf("WorkingDays = %d, want 6", count.WorkingDays)
	}
}

func TestWorkingDays_NoHolidays(t *testing.T) {
	count := calendar.WorkingDays(d(2025, time.March, 1), d(2025, time.March, 31), calendar.NoHolidays{}, "inst-1")

	if count.WorkingDays != 31 {
		t.Errorf("WorkingDays = %d, want 31 (all days chargeable)", count.WorkingDays)
	}
}

func TestWorkingDays_SingleDayHoliday(t *testing.T) {
	// A one-day leave landing on a holiday costs nothing.
	holidays := fixedHolidays{"2025-10-02": true}

	count := calendar.WorkingDays(d(2025, time.October, 2), d(2025, time.October, 2), holidays, "inst-1")

	if count.WorkingDays != 0 {
		t.Errorf("WorkingDays = %d, want 0", count.WorkingDays)
	}
}
