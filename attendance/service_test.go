package attendance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/geocode"
	"github.com/warp/attendance-engine/overtime"
	"github.com/warp/attendance-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// School coordinates used throughout: Bangalore city center, 200 m radius.
const (
	schoolLat = 12.9716
	schoolLng = 77.5946
)

// nearSchool is ~100 m from the center; farAway is another city.
const (
	nearLat = 12.9725
	nearLng = 77.5946
	farLat  = 13.0827
	farLng  = 80.2707
)

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestService(t *testing.T) (*attendance.Service, *sqlite.Store) {
	store := newTestStore(t)
	ctx := context.Background()

	lat, lng := schoolLat, schoolLng
	require.NoError(t, store.SaveInstitution(ctx, sqlite.Institution{
		ID:                 "school-1",
		Name:               "Test School",
		Lat:                &lat,
		Lng:                &lng,
		RadiusMeters:       200,
		NormalWorkingHours: decimal.NewFromInt(8),
	}))
	require.NoError(t, store.SaveOfficer(ctx, attendance.Officer{
		ID:             "officer-1",
		InstitutionID:  "school-1",
		Name:           "A. Officer",
		HourlyRate:     decimal.NewFromInt(200),
		RateMultiplier: decimal.NewFromFloat(1.5),
	}))

	svc := &attendance.Service{
		Store:    store,
		Geocoder: geocode.Noop{},
		Overtime: &overtime.Deriver{Store: store},
	}
	return svc, store
}

// failingGeocoder always errors, to exercise degraded results.
type failingGeocoder struct{}

func (failingGeocoder) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	return "", errors.New("geocode provider unreachable")
}

func at(hour, minute int) time.Time {
	return time.Date(2025, time.August, 20, hour, minute, 0, 0, time.UTC)
}

func checkIn(t *testing.T, svc *attendance.Service, when time.Time) *attendance.CheckInResult {
	t.Helper()
	result, err := svc.CheckIn(context.Background(), attendance.CheckInParams{
		OfficerID:     "officer-1",
		InstitutionID: "school-1",
		Lat:           nearLat,
		Lng:           nearLng,
		At:            when,
	})
	require.NoError(t, err)
	return result
}

func checkOut(t *testing.T, svc *attendance.Service, when time.Time) *attendance.CheckOutResult {
	t.Helper()
	result, err := svc.CheckOut(context.Background(), attendance.CheckOutParams{
		OfficerID:     "officer-1",
		InstitutionID: "school-1",
		Lat:           nearLat,
		Lng:           nearLng,
		At:            when,
	})
	require.NoError(t, err)
	return result
}

// =============================================================================
// GEOFENCE VALIDATION TESTS
// =============================================================================

func TestCheckIn_WithinFence_Validated(t *testing.T) {
	// GIVEN: An officer ~100 m from a school with a 200 m radius
	// WHEN: Checking in
	// THEN: validated=true, distance recorded

	svc, _ := newTestService(t)
	result := checkIn(t, svc, at(9, 0))

	require.NotNil(t, result.Validated)
	assert.True(t, *result.Validated)
	assert.InDelta(t, 100, result.DistanceMeters, 10)
	assert.Equal(t, attendance.StatusCheckedIn, result.Record.Status)
}

func TestCheckIn_OutsideFence_NotValidated(t *testing.T) {
	// An out-of-fence check-in is recorded, flagged, never rejected.
	svc, _ := newTestService(t)

	result, err := svc.CheckIn(context.Background(), attendance.CheckInParams{
		OfficerID:     "officer-1",
		InstitutionID: "school-1",
		Lat:           farLat,
		Lng:           farLng,
		At:            at(9, 0),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Validated)
	assert.False(t, *result.Validated)
	assert.Greater(t, result.DistanceMeters, 200.0)
}

func TestCheckIn_SkipGPS(t *testing.T) {
	// Skip-GPS mode: no coordinates, validated stays unknown (nil).
	svc, _ := newTestService(t)

	result, err := svc.CheckIn(context.Background(), attendance.CheckInParams{
		OfficerID:     "officer-1",
		InstitutionID: "school-1",
		SkipGPS:       true,
		At:            at(9, 0),
	})
	require.NoError(t, err)
	assert.Nil(t, result.Validated)
	assert.Zero(t, result.DistanceMeters)
	assert.Nil(t, result.Record.CheckInLat)
	assert.Nil(t, result.Record.CheckInValidated)
}

func TestCheckIn_InvalidCoordinates(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CheckIn(context.Background(), attendance.CheckInParams{
		OfficerID:     "officer-1",
		InstitutionID: "school-1",
		Lat:           91,
		Lng:           0,
		At:            at(9, 0),
	})
	assert.ErrorIs(t, err, attendance.ErrBadCoordinate)
}

func TestCheckIn_UnknownInstitution(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CheckIn(context.Background(), attendance.CheckInParams{
		OfficerID:     "officer-1",
		InstitutionID: "no-such-school",
		Lat:           nearLat,
		Lng:           nearLng,
		At:            at(9, 0),
	})
	assert.ErrorIs(t, err, attendance.ErrInstitutionNotFound)
}

func TestCheckIn_InstitutionWithoutGeofence(t *testing.T) {
	svc, store := newTestService(t)
	require.NoError(t, store.SaveInstitution(context.Background(), sqlite.Institution{
		ID:                 "school-nogeo",
		Name:               "Unfenced School",
		NormalWorkingHours: decimal.NewFromInt(8),
	}))

	_, err := svc.CheckIn(context.Background(), attendance.CheckInParams{
		OfficerID:     "officer-1",
		InstitutionID: "school-nogeo",
		Lat:           nearLat,
		Lng:           nearLng,
		At:            at(9, 0),
	})
	assert.ErrorIs(t, err, attendance.ErrNoGeofence)
}

// =============================================================================
// IDEMPOTENCY & ORDERING TESTS
// =============================================================================

func TestCheckIn_SameDayOverwrites(t *testing.T) {
	// GIVEN: An officer already checked in at 09:00
	// WHEN: Checking in again at 09:30 (flaky client retry)
	// THEN: One record, check-in time overwritten

	svc, store := newTestService(t)
	first := checkIn(t, svc, at(9, 0))
	second := checkIn(t, svc, at(9, 30))

	assert.Equal(t, first.Record.ID, second.Record.ID)
	assert.Equal(t, at(9, 30), second.Record.CheckInAt)

	records, err := store.MonthlyRecords(context.Background(), "officer-1", 2025, time.August)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCheckIn_AfterCheckOut_Rejected(t *testing.T) {
	// The day's record is closed; it cannot be reopened.
	svc, _ := newTestService(t)
	checkIn(t, svc, at(9, 0))
	checkOut(t, svc, at(17, 0))

	_, err := svc.CheckIn(context.Background(), attendance.CheckInParams{
		OfficerID:     "officer-1",
		InstitutionID: "school-1",
		Lat:           nearLat,
		Lng:           nearLng,
		At:            at(17, 30),
	})
	assert.ErrorIs(t, err, attendance.ErrAlreadyCheckedOut)
}

func TestCheckOut_WithoutCheckIn_Rejected(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CheckOut(context.Background(), attendance.CheckOutParams{
		OfficerID:     "officer-1",
		InstitutionID: "school-1",
		Lat:           nearLat,
		Lng:           nearLng,
		At:            at(17, 0),
	})
	assert.ErrorIs(t, err, attendance.ErrNoCheckIn)
}

func TestCheckOut_Twice_Rejected(t *testing.T) {
	svc, _ := newTestService(t)
	checkIn(t, svc, at(9, 0))
	checkOut(t, svc, at(17, 0))

	_, err := svc.CheckOut(context.Background(), attendance.CheckOutParams{
		OfficerID:     "officer-1",
		InstitutionID: "school-1",
		Lat:           nearLat,
		Lng:           nearLng,
		At:            at(18, 0),
	})
	assert.ErrorIs(t, err, attendance.ErrAlreadyCheckedOut)
}

func TestCheckOut_ClockSkew_Rejected(t *testing.T) {
	// GIVEN: Check-in recorded at 12:00
	// WHEN: A checkout arrives stamped 11:00 (device clock went backwards)
	// THEN: ErrClockSkew. Negative spans are surfaced, never clamped to 0.

	svc, store := newTestService(t)
	checkIn(t, svc, at(12, 0))

	_, err := svc.CheckOut(context.Background(), attendance.CheckOutParams{
		OfficerID:     "officer-1",
		InstitutionID: "school-1",
		Lat:           nearLat,
		Lng:           nearLng,
		At:            at(11, 0),
	})
	assert.ErrorIs(t, err, attendance.ErrClockSkew)

	// The record is untouched: still open
	rec, err := store.GetRecord(context.Background(), "officer-1", "school-1", calendar.NewDate(2025, time.August, 20))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, attendance.StatusCheckedIn, rec.Status)
}

// =============================================================================
// HOURS & OVERTIME DERIVATION TESTS
// =============================================================================

func TestCheckOut_ComputesHoursFromStoredCheckIn(t *testing.T) {
	svc, _ := newTestService(t)
	checkIn(t, svc, at(9, 0))
	result := checkOut(t, svc, at(17, 30))

	assert.True(t, result.HoursWorked.Equal(decimal.NewFromFloat(8.5)),
		"HoursWorked = %s, want 8.5", result.HoursWorked)
	assert.Equal(t, attendance.StatusCheckedOut, result.Record.Status)
}

func TestCheckOut_OvertimeRequestAutoGenerated(t *testing.T) {
	// GIVEN: 8h normal day, officer works 09:00-19:30 (10.5h)
	// WHEN: Checking out
	// THEN: 2.25 overtime hours and one pending request with
	//       pay = round(2.25 * 200 * 1.5, 2) = 675

	svc, store := newTestService(t)
	checkIn(t, svc, at(9, 0))
	result := checkOut(t, svc, at(19, 30))

	assert.True(t, result.OvertimeHours.Equal(decimal.NewFromFloat(2.25)),
		"OvertimeHours = %s, want 2.25", result.OvertimeHours)
	require.NotNil(t, result.OvertimeRequest)
	assert.Equal(t, overtime.StatusPending, result.OvertimeRequest.Status)
	assert.Equal(t, overtime.SourceAutoGenerated, result.OvertimeRequest.Source)
	assert.True(t, result.OvertimeRequest.CalculatedPay.Equal(decimal.NewFromInt(675)),
		"CalculatedPay = %s, want 675", result.OvertimeRequest.CalculatedPay)

	pending, err := store.ListOvertimeRequestsByStatus(context.Background(), overtime.StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestCheckOut_NoOvertimeWithinTolerance(t *testing.T) {
	// 09:00-17:15 is 8.25h: inside the tolerance, no request created.
	svc, store := newTestService(t)
	checkIn(t, svc, at(9, 0))
	result := checkOut(t, svc, at(17, 15))

	assert.True(t, result.OvertimeHours.IsZero())
	assert.Nil(t, result.OvertimeRequest)

	pending, err := store.ListOvertimeRequestsByStatus(context.Background(), overtime.StatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestAutoOvertime_DuplicatePerRecordRejected(t *testing.T) {
	// The partial unique index admits exactly one auto-generated request
	// per attendance record.
	svc, store := newTestService(t)
	checkIn(t, svc, at(9, 0))
	result := checkOut(t, svc, at(19, 0))
	require.NotNil(t, result.OvertimeRequest)

	deriver := &overtime.Deriver{Store: store}
	_, err := deriver.AutoGenerate(context.Background(), overtime.AutoGenerateParams{
		OfficerID:          "officer-1",
		InstitutionID:      "school-1",
		Date:               result.Record.Date,
		AttendanceRecordID: result.Record.ID,
		HoursWorked:        decimal.NewFromInt(10),
		NormalHours:        decimal.NewFromInt(8),
		At:                 at(19, 5),
	})
	assert.ErrorIs(t, err, overtime.ErrDuplicateAutoRequest)
}

// =============================================================================
// DEGRADED EFFECT TESTS
// =============================================================================

func TestCheckIn_GeocodeFailureDegradesNotFails(t *testing.T) {
	// A dead geocode provider must never block attendance.
	svc, _ := newTestService(t)
	svc.Geocoder = failingGeocoder{}

	result := checkIn(t, svc, at(9, 0))

	require.Len(t, result.Degraded, 1)
	assert.Equal(t, "reverse_geocode", result.Degraded[0].Step)
	assert.Nil(t, result.Record.CheckInAddress)
	require.NotNil(t, result.Validated)
	assert.True(t, *result.Validated)
}

// =============================================================================
// OVERTIME APPROVAL TESTS
// =============================================================================

func TestOvertimeApproval_Workflow(t *testing.T) {
	svc, store := newTestService(t)
	checkIn(t, svc, at(9, 0))
	result := checkOut(t, svc, at(19, 0))
	require.NotNil(t, result.OvertimeRequest)

	otSvc := &overtime.Service{Store: store}

	approved, err := otSvc.Approve(context.Background(), result.OvertimeRequest.ID, "principal-1", at(20, 0))
	require.NoError(t, err)
	assert.Equal(t, overtime.StatusApproved, approved.Status)
	assert.Equal(t, "principal-1", approved.ApproverID)

	// Deciding twice fails
	_, err = otSvc.Reject(context.Background(), result.OvertimeRequest.ID, "principal-1", at(20, 5))
	assert.ErrorIs(t, err, overtime.ErrNotPending)

	// Unknown request
	_, err = otSvc.Approve(context.Background(), "no-such-request", "principal-1", at(20, 10))
	assert.ErrorIs(t, err, overtime.ErrRequestNotFound)
}
