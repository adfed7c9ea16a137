package calendar

// =============================================================================
// HOLIDAY CALENDAR - Gazetted holidays per institution
// =============================================================================

// Holiday is a gazetted holiday. InstitutionID empty means the holiday
// applies to every institution.
type Holiday struct {
	ID            string
	InstitutionID string
	Date          Date
	Name          string
}

// HolidayCalendar answers holiday lookups for an institution.
type HolidayCalendar interface {
	// IsHoliday checks institution-specific holidays first, then global ones.
	IsHoliday(institutionID string, date Date) bool

	// HolidaysInRange returns all holidays for an institution within the range.
	HolidaysInRange(institutionID string, r DateRange) []Holiday
}

// NoHolidays is a calendar with no holidays, for deployments that have not
// configured any.
type NoHolidays struct{}

func (NoHolidays) IsHoliday(institutionID string, date Date) bool          { return false }
func (NoHolidays) HolidaysInRange(institutionID string, r DateRange) []Holiday { return nil }

// =============================================================================
// WORKING DAYS - Leave-day counting
// =============================================================================

// WorkingDayCount is the breakdown of a requested leave span.
type WorkingDayCount struct {
	TotalCalendarDays int
	HolidaysInRange   int
	WorkingDays       int
}

// WorkingDays counts the leave days in [start, end] for balance purposes.
//
// Only gazetted holidays are excluded. Weekends are NOT excluded: an
// applicant may request leave over a weekend and those days still count
// against the balance. Counting weekends here would silently change every
// paid/LOP split downstream.
func WorkingDays(start, end Date, cal HolidayCalendar, institutionID string) WorkingDayCount {
	r := DateRange{Start: start, End: end}
	if !r.Valid() {
		return WorkingDayCount{}
	}
	if cal == nil {
		cal = NoHolidays{}
	}

	holidays := 0
	for _, day := range r.Days() {
		if cal.IsHoliday(institutionID, day) {
			holidays++
		}
	}

	total := r.TotalDays()
	return WorkingDayCount{
		TotalCalendarDays: total,
		HolidaysInRange:   holidays,
		WorkingDays:       total - holidays,
	}
}
