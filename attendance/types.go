// Package attendance implements GPS-validated officer check-in/check-out.
// It pairs a device-reported position with an institution's geofence,
// records the result, and derives worked hours and overtime at checkout.
package attendance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/calendar"
)

// =============================================================================
// ATTENDANCE RECORD - One per (officer, institution, calendar date)
// =============================================================================

type Status string

const (
	StatusNotCheckedIn Status = "not_checked_in"
	StatusCheckedIn    Status = "checked_in"
	StatusCheckedOut   Status = "checked_out"
)

// Record is the persisted attendance row. Check-out fields stay nil/zero
// until status reaches checked_out; TotalHours is only populated then.
//
// Validated is a tri-state: true/false when GPS was checked, nil when the
// check-in used explicit skip-GPS mode. A failed geofence check does not
// block the event - it only marks it unverified for payroll review.
type Record struct {
	ID            string
	OfficerID     string
	InstitutionID string
	Date          calendar.Date
	Status        Status

	CheckInAt        time.Time
	CheckInLat       *float64
	CheckInLng       *float64
	CheckInAddress   *string
	CheckInDistance  float64
	CheckInValidated *bool

	CheckOutAt        *time.Time
	CheckOutLat       *float64
	CheckOutLng       *float64
	CheckOutAddress   *string
	CheckOutDistance  float64
	CheckOutValidated *bool

	TotalHours    decimal.Decimal
	OvertimeHours decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// INSTITUTION GEOFENCE CONFIG
// =============================================================================

// GeofenceConfig is the per-institution attendance configuration.
// Lat/Lng nil means no coordinate is registered and GPS validation cannot
// run; callers must then use explicit skip-GPS mode.
type GeofenceConfig struct {
	InstitutionID      string
	Lat                *float64
	Lng                *float64
	RadiusMeters       float64
	ExpectedCheckIn    string // informational, "HH:MM"
	ExpectedCheckOut   string
	NormalWorkingHours decimal.Decimal
}

// =============================================================================
// OFFICER
// =============================================================================

type Officer struct {
	ID             string
	InstitutionID  string
	Name           string
	HourlyRate     decimal.Decimal
	RateMultiplier decimal.Decimal
}

// =============================================================================
// STORE
// =============================================================================

type Store interface {
	// UpsertCheckIn writes the check-in fields keyed by
	// (officer, institution, date). The store's unique index, not a
	// read-then-write check, is what makes the operation idempotent under
	// concurrent duplicate submissions. Returns ErrAlreadyCheckedOut when
	// the day's record has already been closed.
	UpsertCheckIn(ctx context.Context, rec Record) (*Record, error)

	// UpdateCheckOut closes the record. The update is conditional on
	// status = checked_in; ErrNoCheckIn when no open record matched.
	UpdateCheckOut(ctx context.Context, rec Record) error

	// GetRecord returns nil (no error) when no record exists for the day.
	GetRecord(ctx context.Context, officerID, institutionID string, date calendar.Date) (*Record, error)

	MonthlyRecords(ctx context.Context, officerID string, year int, month time.Month) ([]Record, error)

	GetGeofenceConfig(ctx context.Context, institutionID string) (*GeofenceConfig, error)
	GetOfficer(ctx context.Context, officerID string) (*Officer, error)
}
