/*
application.go - Leave application lifecycle

PURPOSE:
  Handles the full lifecycle of a leave application:
  1. Submission: count requested days (holidays excluded, weekends not)
     and create a pending application
  2. Approval: split requested days into paid vs LOP - automatically from
     the month's balance, or per an explicit approver override - and debit
     the monthly balance
  3. Rejection/Cancellation: terminal, no day-split semantics

STATE MACHINE:
  pending -> approved | rejected | cancelled   (all terminal)

CONCURRENCY:
  Two approvers touching the same applicant-month race on the balance row.
  The debit is a read / compute / compare-and-swap loop: the store update
  fails with ErrConcurrentModification when the row's version moved, and
  the service re-reads and recomputes. The split an approver sees is
  therefore always computed against the balance that was actually debited.

SEE ALSO:
  - balance.go: Split arithmetic
  - rollover.go: Creation of next month's balance rows
*/
package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/calendar"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrNotPending is returned when a decision is applied to an
	// application that has already reached a terminal status.
	ErrNotPending = errors.New("application is not pending")

	// ErrApplicationNotFound is returned when the referenced application
	// does not exist.
	ErrApplicationNotFound = errors.New("leave application not found")

	// ErrConcurrentModification is returned by the store when a balance
	// update lost a compare-and-swap race.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrBalanceExists is returned by the store when inserting a balance
	// row that already exists for (applicant, year, month).
	ErrBalanceExists = errors.New("monthly balance already exists")
)

// =============================================================================
// APPLICATION - One per leave request
// =============================================================================

type Type string

const (
	TypeSick   Type = "sick"
	TypeCasual Type = "casual"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

type Application struct {
	ID            string
	ApplicantID   string
	InstitutionID string
	Type          Type
	StartDate     calendar.Date
	EndDate       calendar.Date
	TotalDays     decimal.Decimal
	Status        Status
	PaidDays      decimal.Decimal
	LOPDays       decimal.Decimal
	Reason        string
	ApproverID    string
	DecisionNote  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// =============================================================================
// STORE - Persistence required by the leave service
// =============================================================================

type Store interface {
	SaveApplication(ctx context.Context, app Application) error
	GetApplication(ctx context.Context, id string) (*Application, error)
	ListApplicationsByStatus(ctx context.Context, status Status) ([]Application, error)
	ListApplicationsByApplicant(ctx context.Context, applicantID string) ([]Application, error)

	// GetMonthlyBalance returns nil (no error) when the row does not exist.
	GetMonthlyBalance(ctx context.Context, applicantID string, year int, month time.Month) (*MonthlyBalance, error)

	// InsertMonthlyBalance creates a new row; ErrBalanceExists on conflict.
	InsertMonthlyBalance(ctx context.Context, b MonthlyBalance) error

	// UpdateMonthlyBalance writes the row only if the stored version equals
	// b.Version, then bumps it. ErrConcurrentModification otherwise.
	UpdateMonthlyBalance(ctx context.Context, b MonthlyBalance) error

	// ListMonthlyBalances returns every balance row for a given month.
	ListMonthlyBalances(ctx context.Context, year int, month time.Month) ([]MonthlyBalance, error)
}

// =============================================================================
// SERVICE
// =============================================================================

// Service orchestrates the application lifecycle over a Store.
type Service struct {
	Store    Store
	Holidays calendar.HolidayCalendar

	// MonthlyCredit is the entitlement accrued each month, used when a
	// balance row is created lazily or by rollover.
	MonthlyCredit decimal.Decimal
}

// casRetries bounds the compare-and-swap loop on balance updates.
const casRetries = 3

// SubmitParams describes a new leave request.
type SubmitParams struct {
	ApplicantID   string
	InstitutionID string
	Type          Type
	StartDate     calendar.Date
	EndDate       calendar.Date
	Reason        string
	At            time.Time
}

// Submit creates a pending application. Requested days are counted with
// gazetted holidays excluded and weekends included (see calendar.WorkingDays).
func (s *Service) Submit(ctx context.Context, p SubmitParams) (*Application, error) {
	if p.EndDate.Before(p.StartDate) {
		return nil, fmt.Errorf("invalid leave span: end %s before start %s", p.EndDate, p.StartDate)
	}

	count := calendar.WorkingDays(p.StartDate, p.EndDate, s.Holidays, p.InstitutionID)

	app := Application{
		ID:            uuid.NewString(),
		ApplicantID:   p.ApplicantID,
		InstitutionID: p.InstitutionID,
		Type:          p.Type,
		StartDate:     p.StartDate,
		EndDate:       p.EndDate,
		TotalDays:     decimal.NewFromInt(int64(count.WorkingDays)),
		Status:        StatusPending,
		Reason:        p.Reason,
		CreatedAt:     p.At,
		UpdatedAt:     p.At,
	}

	if err := s.Store.SaveApplication(ctx, app); err != nil {
		return nil, fmt.Errorf("failed to save application: %w", err)
	}
	return &app, nil
}

// LOPOverride carries an explicit approver decision. Nil means the split
// is computed automatically from the month's balance.
type LOPOverride struct {
	Mode     LOPMode
	PaidDays decimal.Decimal // only read for LOPPartial
}

// Approve transitions a pending application to approved, computes the
// paid/LOP split, and debits the applicant's balance for the start month.
func (s *Service) Approve(ctx context.Context, appID, approverID string, override *LOPOverride, at time.Time) (*Application, error) {
	app, err := s.pendingApplication(ctx, appID)
	if err != nil {
		return nil, err
	}

	var split DaySplit
	for attempt := 0; ; attempt++ {
		bal, err := s.ensureBalance(ctx, app.ApplicantID, app.StartDate.Year(), app.StartDate.Month())
		if err != nil {
			return nil, err
		}

		if override != nil {
			split, err = ApplyLOPDecision(app.TotalDays, override.Mode, override.PaidDays)
			if err != nil {
				return nil, err
			}
		} else {
			split = SplitDays(app.TotalDays, bal.Remaining())
		}

		debited := *bal
		switch app.Type {
		case TypeSick:
			debited.SickUsed = debited.SickUsed.Add(split.Paid)
		default:
			debited.CasualUsed = debited.CasualUsed.Add(split.Paid)
		}
		debited.LOPDays = debited.LOPDays.Add(split.LOP)

		err = s.Store.UpdateMonthlyBalance(ctx, debited)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrConcurrentModification) || attempt+1 >= casRetries {
			return nil, fmt.Errorf("failed to debit balance: %w", err)
		}
		// Lost the race; re-read and recompute against the fresh balance.
	}

	app.Status = StatusApproved
	app.PaidDays = split.Paid
	app.LOPDays = split.LOP
	app.ApproverID = approverID
	app.UpdatedAt = at

	if err := s.Store.SaveApplication(ctx, *app); err != nil {
		return nil, fmt.Errorf("failed to save approval: %w", err)
	}
	return app, nil
}

// Reject transitions a pending application to rejected. No day-split is
// recorded and no balance is touched.
func (s *Service) Reject(ctx context.Context, appID, approverID, note string, at time.Time) (*Application, error) {
	return s.close(ctx, appID, StatusRejected, approverID, note, at)
}

// Cancel transitions a pending application to cancelled.
func (s *Service) Cancel(ctx context.Context, appID string, at time.Time) (*Application, error) {
	return s.close(ctx, appID, StatusCancelled, "", "", at)
}

func (s *Service) close(ctx context.Context, appID string, status Status, approverID, note string, at time.Time) (*Application, error) {
	app, err := s.pendingApplication(ctx, appID)
	if err != nil {
		return nil, err
	}

	app.Status = status
	app.ApproverID = approverID
	app.DecisionNote = note
	app.UpdatedAt = at

	if err := s.Store.SaveApplication(ctx, *app); err != nil {
		return nil, fmt.Errorf("failed to save decision: %w", err)
	}
	return app, nil
}

func (s *Service) pendingApplication(ctx context.Context, appID string) (*Application, error) {
	app, err := s.Store.GetApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, ErrApplicationNotFound
	}
	if app.Status != StatusPending {
		return nil, fmt.Errorf("%w: status is %s", ErrNotPending, app.Status)
	}
	return app, nil
}

// Balance returns the applicant's balance for a month, creating the row
// lazily (with carry-forward from the previous month) on first query.
func (s *Service) Balance(ctx context.Context, applicantID string, year int, month time.Month) (*MonthlyBalance, error) {
	return s.ensureBalance(ctx, applicantID, year, month)
}

func (s *Service) ensureBalance(ctx context.Context, applicantID string, year int, month time.Month) (*MonthlyBalance, error) {
	bal, err := s.Store.GetMonthlyBalance(ctx, applicantID, year, month)
	if err != nil {
		return nil, err
	}
	if bal != nil {
		return bal, nil
	}

	carried := decimal.Zero
	prevDate := calendar.StartOfMonth(year, month).AddMonths(-1)
	prev, err := s.Store.GetMonthlyBalance(ctx, applicantID, prevDate.Year(), prevDate.Month())
	if err != nil {
		return nil, err
	}
	if prev != nil {
		carried = prev.Remaining()
	}

	fresh := MonthlyBalance{
		ID:             uuid.NewString(),
		ApplicantID:    applicantID,
		Year:           year,
		Month:          month,
		MonthlyCredit:  s.MonthlyCredit,
		CarriedForward: carried,
	}

	err = s.Store.InsertMonthlyBalance(ctx, fresh)
	if errors.Is(err, ErrBalanceExists) {
		// Another request created it first; the unique index is the source
		// of truth, just re-read.
		return s.Store.GetMonthlyBalance(ctx, applicantID, year, month)
	}
	if err != nil {
		return nil, err
	}
	return &fresh, nil
}
