package leave_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/leave"
	"github.com/warp/attendance-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T) (*leave.Service, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := &leave.Service{
		Store:         store,
		Holidays:      store,
		MonthlyCredit: dec("1"),
	}
	return svc, store
}

func submitLeave(t *testing.T, svc *leave.Service, leaveType leave.Type, start, end calendar.Date) *leave.Application {
	t.Helper()
	app, err := svc.Submit(context.Background(), leave.SubmitParams{
		ApplicantID:   "officer-1",
		InstitutionID: "school-1",
		Type:          leaveType,
		StartDate:     start,
		EndDate:       end,
		Reason:        "personal",
		At:            time.Date(2025, time.August, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return app
}

func seedBalance(t *testing.T, store *sqlite.Store, applicantID string, year int, month time.Month, credit, carried string) {
	t.Helper()
	require.NoError(t, store.InsertMonthlyBalance(context.Background(), leave.MonthlyBalance{
		ID:             uuid.NewString(),
		ApplicantID:    applicantID,
		Year:           year,
		Month:          month,
		MonthlyCredit:  dec(credit),
		CarriedForward: dec(carried),
	}))
}

func decisionTime() time.Time {
	return time.Date(2025, time.August, 2, 9, 0, 0, 0, time.UTC)
}

// =============================================================================
// SUBMISSION TESTS
// =============================================================================

func TestSubmit_CountsDaysExcludingHolidays(t *testing.T) {
	// GIVEN: A 5-day span with one gazetted holiday inside it
	// WHEN: Submitting
	// THEN: TotalDays = 4, status pending

	svc, store := newTestService(t)
	require.NoError(t, store.SaveHoliday(context.Background(), calendar.Holiday{
		ID:            uuid.NewString(),
		InstitutionID: "school-1",
		Date:          calendar.NewDate(2025, time.August, 13),
		Name:          "Founders Day",
	}))

	app := submitLeave(t, svc, leave.TypeCasual,
		calendar.NewDate(2025, time.August, 11), calendar.NewDate(2025, time.August, 15))

	assert.True(t, app.TotalDays.Equal(dec("4")), "TotalDays = %s, want 4", app.TotalDays)
	assert.Equal(t, leave.StatusPending, app.Status)
}

func TestSubmit_WeekendDaysStillCharged(t *testing.T) {
	// Friday through Monday is 4 chargeable days; the weekend counts.
	svc, _ := newTestService(t)

	app := submitLeave(t, svc, leave.TypeCasual,
		calendar.NewDate(2025, time.August, 15), calendar.NewDate(2025, time.August, 18))

	assert.True(t, app.TotalDays.Equal(dec("4")), "TotalDays = %s, want 4", app.TotalDays)
}

func TestSubmit_InvalidSpanRejected(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Submit(context.Background(), leave.SubmitParams{
		ApplicantID:   "officer-1",
		InstitutionID: "school-1",
		Type:          leave.TypeCasual,
		StartDate:     calendar.NewDate(2025, time.August, 15),
		EndDate:       calendar.NewDate(2025, time.August, 10),
		At:            decisionTime(),
	})
	assert.Error(t, err)
}

// =============================================================================
// APPROVAL & SPLIT TESTS
// =============================================================================

func TestApprove_BankFirstSplit(t *testing.T) {
	// GIVEN: 3 requested days against a balance of 2 (1 credit + 1 carried)
	// WHEN: Approving with no override
	// THEN: 2 paid, 1 LOP, balance debited to 0

	svc, store := newTestService(t)
	seedBalance(t, store, "officer-1", 2025, time.August, "1", "1")

	app := submitLeave(t, svc, leave.TypeCasual,
		calendar.NewDate(2025, time.August, 11), calendar.NewDate(2025, time.August, 13))

	approved, err := svc.Approve(context.Background(), app.ID, "principal-1", nil, decisionTime())
	require.NoError(t, err)

	assert.Equal(t, leave.StatusApproved, approved.Status)
	assert.True(t, approved.PaidDays.Equal(dec("2")), "PaidDays = %s", approved.PaidDays)
	assert.True(t, approved.LOPDays.Equal(dec("1")), "LOPDays = %s", approved.LOPDays)
	assert.True(t, approved.PaidDays.Add(approved.LOPDays).Equal(approved.TotalDays))

	bal, err := store.GetMonthlyBalance(context.Background(), "officer-1", 2025, time.August)
	require.NoError(t, err)
	assert.True(t, bal.CasualUsed.Equal(dec("2")), "CasualUsed = %s", bal.CasualUsed)
	assert.True(t, bal.LOPDays.Equal(dec("1")), "LOPDays = %s", bal.LOPDays)
	assert.True(t, bal.Remaining().IsZero())
	assert.Equal(t, 1, bal.Version)
}

func TestApprove_SickDebitsSickCounter(t *testing.T) {
	svc, store := newTestService(t)
	seedBalance(t, store, "officer-1", 2025, time.August, "1", "3")

	app := submitLeave(t, svc, leave.TypeSick,
		calendar.NewDate(2025, time.August, 11), calendar.NewDate(2025, time.August, 12))

	_, err := svc.Approve(context.Background(), app.ID, "principal-1", nil, decisionTime())
	require.NoError(t, err)

	bal, err := store.GetMonthlyBalance(context.Background(), "officer-1", 2025, time.August)
	require.NoError(t, err)
	assert.True(t, bal.SickUsed.Equal(dec("2")))
	assert.True(t, bal.CasualUsed.IsZero())
}

func TestApprove_CompleteLOPOverride(t *testing.T) {
	// The approver marks the whole span LOP despite available balance.
	svc, store := newTestService(t)
	seedBalance(t, store, "officer-1", 2025, time.August, "1", "5")

	app := submitLeave(t, svc, leave.TypeCasual,
		calendar.NewDate(2025, time.August, 11), calendar.NewDate(2025, time.August, 12))

	approved, err := svc.Approve(context.Background(), app.ID, "principal-1",
		&leave.LOPOverride{Mode: leave.LOPComplete}, decisionTime())
	require.NoError(t, err)

	assert.True(t, approved.PaidDays.IsZero())
	assert.True(t, approved.LOPDays.Equal(dec("2")))

	bal, err := store.GetMonthlyBalance(context.Background(), "officer-1", 2025, time.August)
	require.NoError(t, err)
	assert.True(t, bal.Used().IsZero(), "no paid days consumed under complete LOP")
	assert.True(t, bal.LOPDays.Equal(dec("2")))
}

func TestApprove_PartialLOPOverrideClamped(t *testing.T) {
	// A paid override above the span total clamps to the total.
	svc, store := newTestService(t)
	seedBalance(t, store, "officer-1", 2025, time.August, "1", "5")

	app := submitLeave(t, svc, leave.TypeCasual,
		calendar.NewDate(2025, time.August, 11), calendar.NewDate(2025, time.August, 12))

	approved, err := svc.Approve(context.Background(), app.ID, "principal-1",
		&leave.LOPOverride{Mode: leave.LOPPartial, PaidDays: dec("10")}, decisionTime())
	require.NoError(t, err)

	assert.True(t, approved.PaidDays.Equal(dec("2")))
	assert.True(t, approved.LOPDays.IsZero())
}

func TestApprove_NotPendingRejected(t *testing.T) {
	svc, store := newTestService(t)
	seedBalance(t, store, "officer-1", 2025, time.August, "1", "0")

	app := submitLeave(t, svc, leave.TypeCasual,
		calendar.NewDate(2025, time.August, 11), calendar.NewDate(2025, time.August, 11))

	_, err := svc.Approve(context.Background(), app.ID, "principal-1", nil, decisionTime())
	require.NoError(t, err)

	// Second decision on the same application fails
	_, err = svc.Approve(context.Background(), app.ID, "principal-2", nil, decisionTime())
	assert.ErrorIs(t, err, leave.ErrNotPending)

	_, err = svc.Reject(context.Background(), app.ID, "principal-2", "", decisionTime())
	assert.ErrorIs(t, err, leave.ErrNotPending)
}

func TestApprove_UnknownApplication(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Approve(context.Background(), "no-such-app", "principal-1", nil, decisionTime())
	assert.ErrorIs(t, err, leave.ErrApplicationNotFound)
}

func TestRejectAndCancel_LeaveBalanceUntouched(t *testing.T) {
	svc, store := newTestService(t)
	seedBalance(t, store, "officer-1", 2025, time.August, "1", "2")

	rejected := submitLeave(t, svc, leave.TypeCasual,
		calendar.NewDate(2025, time.August, 11), calendar.NewDate(2025, time.August, 12))
	cancelled := submitLeave(t, svc, leave.TypeCasual,
		calendar.NewDate(2025, time.August, 20), calendar.NewDate(2025, time.August, 21))

	app, err := svc.Reject(context.Background(), rejected.ID, "principal-1", "staffing", decisionTime())
	require.NoError(t, err)
	assert.Equal(t, leave.StatusRejected, app.Status)
	assert.Equal(t, "staffing", app.DecisionNote)

	app, err = svc.Cancel(context.Background(), cancelled.ID, decisionTime())
	require.NoError(t, err)
	assert.Equal(t, leave.StatusCancelled, app.Status)

	bal, err := store.GetMonthlyBalance(context.Background(), "officer-1", 2025, time.August)
	require.NoError(t, err)
	assert.True(t, bal.Used().IsZero())
	assert.True(t, bal.LOPDays.IsZero())
	assert.Equal(t, 0, bal.Version)
}

// =============================================================================
// BALANCE LIFECYCLE TESTS
// =============================================================================

func TestBalance_LazyCreationWithCarryForward(t *testing.T) {
	// GIVEN: July closed with 2.5 remaining (1 credit + 2 carried - 0.5 used)
	// WHEN: August is first queried
	// THEN: August is created with carried_forward = 2.5

	svc, store := newTestService(t)
	require.NoError(t, store.InsertMonthlyBalance(context.Background(), leave.MonthlyBalance{
		ID:             uuid.NewString(),
		ApplicantID:    "officer-1",
		Year:           2025,
		Month:          time.July,
		MonthlyCredit:  dec("1"),
		CarriedForward: dec("2"),
		SickUsed:       dec("0.5"),
	}))

	bal, err := svc.Balance(context.Background(), "officer-1", 2025, time.August)
	require.NoError(t, err)

	assert.True(t, bal.CarriedForward.Equal(dec("2.5")), "CarriedForward = %s", bal.CarriedForward)
	assert.True(t, bal.MonthlyCredit.Equal(dec("1")))
	assert.True(t, bal.Remaining().Equal(dec("3.5")))
}

func TestBalance_FirstMonthNoHistory(t *testing.T) {
	svc, _ := newTestService(t)

	bal, err := svc.Balance(context.Background(), "officer-new", 2025, time.August)
	require.NoError(t, err)

	assert.True(t, bal.CarriedForward.IsZero())
	assert.True(t, bal.Remaining().Equal(dec("1")))
}

func TestUpdateMonthlyBalance_StaleVersionRejected(t *testing.T) {
	// Two writers read version 0; the second write must fail.
	_, store := newTestService(t)
	ctx := context.Background()
	seedBalance(t, store, "officer-1", 2025, time.August, "1", "0")

	bal, err := store.GetMonthlyBalance(ctx, "officer-1", 2025, time.August)
	require.NoError(t, err)

	first := *bal
	first.CasualUsed = dec("0.5")
	require.NoError(t, store.UpdateMonthlyBalance(ctx, first))

	stale := *bal
	stale.CasualUsed = dec("1")
	err = store.UpdateMonthlyBalance(ctx, stale)
	assert.ErrorIs(t, err, leave.ErrConcurrentModification)
}

func TestInsertMonthlyBalance_DuplicateMonthRejected(t *testing.T) {
	_, store := newTestService(t)
	seedBalance(t, store, "officer-1", 2025, time.August, "1", "0")

	err := store.InsertMonthlyBalance(context.Background(), leave.MonthlyBalance{
		ID:          uuid.NewString(),
		ApplicantID: "officer-1",
		Year:        2025,
		Month:       time.August,
	})
	assert.ErrorIs(t, err, leave.ErrBalanceExists)
}

// =============================================================================
// ROLLOVER TESTS
// =============================================================================

func TestRolloverMonth_CreatesNextMonthRows(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedBalance(t, store, "officer-1", 2025, time.July, "1", "2")
	seedBalance(t, store, "officer-2", 2025, time.July, "1", "0.5")

	created, err := svc.RolloverMonth(ctx, 2025, time.July)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	bal, err := store.GetMonthlyBalance(ctx, "officer-1", 2025, time.August)
	require.NoError(t, err)
	assert.True(t, bal.CarriedForward.Equal(dec("3")))

	bal, err = store.GetMonthlyBalance(ctx, "officer-2", 2025, time.August)
	require.NoError(t, err)
	assert.True(t, bal.CarriedForward.Equal(dec("1.5")))
}

func TestRolloverMonth_Rerunnable(t *testing.T) {
	// Existing rows are skipped, so a second pass creates nothing.
	svc, store := newTestService(t)
	ctx := context.Background()
	seedBalance(t, store, "officer-1", 2025, time.July, "1", "2")

	created, err := svc.RolloverMonth(ctx, 2025, time.July)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	created, err = svc.RolloverMonth(ctx, 2025, time.July)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	// The existing August row kept its state
	bal, err := store.GetMonthlyBalance(ctx, "officer-1", 2025, time.August)
	require.NoError(t, err)
	assert.True(t, bal.CarriedForward.Equal(dec("3")))
}
