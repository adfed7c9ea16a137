/*
service.go - Check-in / check-out operations

PURPOSE:
  The two primary attendance operations, each a single read-compute-write
  round trip:

  CheckIn:  geofence-check the reported position (or skip GPS explicitly),
            best-effort reverse-geocode an address, upsert today's record.
  CheckOut: geofence-check again, compute worked hours from STORED
            timestamps, derive overtime, close the record.

PRIMARY vs BEST-EFFORT EFFECTS:
  Each operation has exactly one primary effect (the record write). Address
  lookup and auto overtime creation are best-effort: their failures are
  collected into Result.Degraded and logged, never propagated. Only the
  primary effect can fail the operation.

TIME:
  Every operation takes an explicit At timestamp; the service never reads
  the system clock. Worked hours come from the stored check-in timestamp,
  not anything the client reports, so a device cannot inflate its day.

SEE ALSO:
  - types.go: Record, GeofenceConfig, Store
  - overtime: Deriver invoked synchronously at checkout
*/
package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/geo"
	"github.com/warp/attendance-engine/geocode"
	"github.com/warp/attendance-engine/overtime"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrNoCheckIn is returned when checking out without an open check-in
	// for the day.
	ErrNoCheckIn = errors.New("no check-in found for today")

	// ErrAlreadyCheckedOut is returned when the day's record is already closed.
	ErrAlreadyCheckedOut = errors.New("already checked out today")

	// ErrNoGeofence is returned when the institution has no registered
	// coordinate and the caller did not request skip-GPS mode.
	ErrNoGeofence = errors.New("institution has no geofence coordinate; use skip-GPS mode")

	// ErrInstitutionNotFound is returned when no geofence config exists.
	ErrInstitutionNotFound = errors.New("institution not found")

	// ErrBadCoordinate is returned for out-of-range reported coordinates.
	ErrBadCoordinate = errors.New("reported coordinate out of range")

	// ErrClockSkew is returned when the checkout timestamp precedes the
	// stored check-in timestamp. This is a data-integrity violation and is
	// surfaced, never clamped to zero.
	ErrClockSkew = errors.New("checkout time precedes check-in time")
)

// =============================================================================
// EFFECT REPORTING
// =============================================================================

// EffectFailure reports a best-effort step that failed during an otherwise
// successful operation.
type EffectFailure struct {
	Step string // "reverse_geocode", "overtime_request"
	Err  string
}

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Store    Store
	Geocoder geocode.Reverser
	Overtime *overtime.Deriver
}

// position is the outcome of one geofence evaluation.
type position struct {
	lat       *float64
	lng       *float64
	distance  float64
	validated *bool
}

// evaluate runs the geofence check for a reported coordinate, honoring
// skip-GPS mode (validated=nil, distance=0, no coordinate persisted).
func evaluate(cfg *GeofenceConfig, lat, lng float64, skipGPS bool) (position, error) {
	if skipGPS {
		return position{}, nil
	}
	if !geo.ValidCoordinate(lat, lng) {
		return position{}, fmt.Errorf("%w: (%f, %f)", ErrBadCoordinate, lat, lng)
	}
	if cfg.Lat == nil || cfg.Lng == nil {
		return position{}, ErrNoGeofence
	}

	fence := geo.Fence{Lat: *cfg.Lat, Lng: *cfg.Lng, RadiusMeters: cfg.RadiusMeters}
	distance, within := fence.Check(lat, lng)
	return position{
		lat:       &lat,
		lng:       &lng,
		distance:  distance,
		validated: &within,
	}, nil
}

// reverseGeocode resolves an address best-effort. A nil geocoder, skip-GPS
// mode, or a lookup failure all yield a nil address.
func (s *Service) reverseGeocode(ctx context.Context, pos position, degraded *[]EffectFailure) *string {
	if s.Geocoder == nil || pos.lat == nil {
		return nil
	}
	addr, err := s.Geocoder.Reverse(ctx, *pos.lat, *pos.lng)
	if err != nil {
		log.Printf("[Attendance] reverse geocode degraded: %v", err)
		*degraded = append(*degraded, EffectFailure{Step: "reverse_geocode", Err: err.Error()})
		return nil
	}
	if addr == "" {
		return nil
	}
	return &addr
}

// =============================================================================
// CHECK-IN
// =============================================================================

type CheckInParams struct {
	OfficerID     string
	InstitutionID string
	Lat           float64
	Lng           float64
	SkipGPS       bool
	At            time.Time
}

type CheckInResult struct {
	Validated      *bool
	DistanceMeters float64
	Record         Record
	Degraded       []EffectFailure
}

// CheckIn records a check-in event for the officer's day. Re-invoking on
// the same day overwrites the check-in fields rather than erroring -
// duplicate submissions from flaky mobile connectivity are expected.
func (s *Service) CheckIn(ctx context.Context, p CheckInParams) (*CheckInResult, error) {
	cfg, err := s.Store.GetGeofenceConfig(ctx, p.InstitutionID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, ErrInstitutionNotFound
	}

	pos, err := evaluate(cfg, p.Lat, p.Lng, p.SkipGPS)
	if err != nil {
		return nil, err
	}

	var degraded []EffectFailure
	address := s.reverseGeocode(ctx, pos, &degraded)

	rec := Record{
		ID:               uuid.NewString(),
		OfficerID:        p.OfficerID,
		InstitutionID:    p.InstitutionID,
		Date:             calendar.DateOf(p.At),
		Status:           StatusCheckedIn,
		CheckInAt:        p.At,
		CheckInLat:       pos.lat,
		CheckInLng:       pos.lng,
		CheckInAddress:   address,
		CheckInDistance:  pos.distance,
		CheckInValidated: pos.validated,
		CreatedAt:        p.At,
		UpdatedAt:        p.At,
	}

	saved, err := s.Store.UpsertCheckIn(ctx, rec)
	if err != nil {
		return nil, err
	}

	return &CheckInResult{
		Validated:      pos.validated,
		DistanceMeters: pos.distance,
		Record:         *saved,
		Degraded:       degraded,
	}, nil
}

// =============================================================================
// CHECK-OUT
// =============================================================================

type CheckOutParams struct {
	OfficerID     string
	InstitutionID string
	Lat           float64
	Lng           float64
	SkipGPS       bool
	At            time.Time
}

type CheckOutResult struct {
	Validated       *bool
	DistanceMeters  float64
	HoursWorked     decimal.Decimal
	OvertimeHours   decimal.Decimal
	OvertimeRequest *overtime.Request // nil when no overtime was detected
	Record          Record
	Degraded        []EffectFailure
}

// CheckOut closes the officer's day. Precondition: an open checked_in
// record exists for today, otherwise ErrNoCheckIn. Hours are computed from
// the stored check-in timestamp. Overtime-request creation is best-effort:
// its failure degrades the result but never fails the checkout.
func (s *Service) CheckOut(ctx context.Context, p CheckOutParams) (*CheckOutResult, error) {
	cfg, err := s.Store.GetGeofenceConfig(ctx, p.InstitutionID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, ErrInstitutionNotFound
	}

	today := calendar.DateOf(p.At)
	rec, err := s.Store.GetRecord(ctx, p.OfficerID, p.InstitutionID, today)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNoCheckIn
	}
	switch rec.Status {
	case StatusCheckedOut:
		return nil, ErrAlreadyCheckedOut
	case StatusCheckedIn:
		// proceed
	default:
		return nil, ErrNoCheckIn
	}

	pos, err := evaluate(cfg, p.Lat, p.Lng, p.SkipGPS)
	if err != nil {
		return nil, err
	}

	elapsed := p.At.Sub(rec.CheckInAt)
	if elapsed < 0 {
		return nil, fmt.Errorf("%w: check-in %s, checkout %s",
			ErrClockSkew, rec.CheckInAt.Format(time.RFC3339), p.At.Format(time.RFC3339))
	}
	hoursWorked := decimal.NewFromFloat(elapsed.Hours())
	overtimeHours := overtime.Derive(hoursWorked, cfg.NormalWorkingHours)

	var degraded []EffectFailure
	address := s.reverseGeocode(ctx, pos, &degraded)

	rec.Status = StatusCheckedOut
	rec.CheckOutAt = &p.At
	rec.CheckOutLat = pos.lat
	rec.CheckOutLng = pos.lng
	rec.CheckOutAddress = address
	rec.CheckOutDistance = pos.distance
	rec.CheckOutValidated = pos.validated
	rec.TotalHours = hoursWorked
	rec.OvertimeHours = overtimeHours
	rec.UpdatedAt = p.At

	// Primary effect. A conflicting checkout that won the race surfaces
	// here as ErrNoCheckIn from the conditional update.
	if err := s.Store.UpdateCheckOut(ctx, *rec); err != nil {
		return nil, err
	}

	var otReq *overtime.Request
	if overtimeHours.IsPositive() && s.Overtime != nil {
		otReq, err = s.autoOvertime(ctx, rec, hoursWorked, cfg.NormalWorkingHours, p.At)
		if err != nil {
			log.Printf("[Attendance] overtime request degraded for record %s: %v", rec.ID, err)
			degraded = append(degraded, EffectFailure{Step: "overtime_request", Err: err.Error()})
		}
	}

	return &CheckOutResult{
		Validated:       pos.validated,
		DistanceMeters:  pos.distance,
		HoursWorked:     hoursWorked,
		OvertimeHours:   overtimeHours,
		OvertimeRequest: otReq,
		Record:          *rec,
		Degraded:        degraded,
	}, nil
}

func (s *Service) autoOvertime(ctx context.Context, rec *Record, hoursWorked, normalHours decimal.Decimal, at time.Time) (*overtime.Request, error) {
	officer, err := s.Store.GetOfficer(ctx, rec.OfficerID)
	if err != nil {
		return nil, err
	}
	rate := overtime.RateCard{}
	if officer != nil {
		rate.HourlyRate = officer.HourlyRate
		rate.RateMultiplier = officer.RateMultiplier
	}

	return s.Overtime.AutoGenerate(ctx, overtime.AutoGenerateParams{
		OfficerID:          rec.OfficerID,
		InstitutionID:      rec.InstitutionID,
		Date:               rec.Date,
		AttendanceRecordID: rec.ID,
		HoursWorked:        hoursWorked,
		NormalHours:        normalHours,
		Rate:               rate,
		At:                 at,
	})
}

// =============================================================================
// QUERIES
// =============================================================================

// TodayRecord returns the officer's record for the given day, or nil.
func (s *Service) TodayRecord(ctx context.Context, officerID, institutionID string, date calendar.Date) (*Record, error) {
	return s.Store.GetRecord(ctx, officerID, institutionID, date)
}

// MonthlyRecords returns the officer's records for a calendar month.
func (s *Service) MonthlyRecords(ctx context.Context, officerID string, year int, month time.Month) ([]Record, error) {
	return s.Store.MonthlyRecords(ctx, officerID, year, month)
}
