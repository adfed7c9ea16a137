/*
Package overtime derives overtime from completed attendance days and
manages the resulting overtime requests.

PURPOSE:
  When an officer checks out, the worked hours are compared against the
  institution's normal working hours. Time beyond a fixed 15-minute grace
  period becomes an auto-generated overtime request for the approval
  workflow; time within it does not.

POLICY:
  toleranceHours = 0.25 (15 minutes)
  overtimeHours  = max(0, worked - normal - tolerance)
  pay            = round(hours * hourlyRate * multiplier, 2)

IDEMPOTENCY:
  Exactly one auto-generated request may exist per attendance record.
  The store enforces this with a unique index, so a replayed checkout
  cannot create a second request.

SEE ALSO:
  - attendance: calls Deriver.AutoGenerate as a best-effort checkout step
*/
package overtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/calendar"
)

// ToleranceHours is the grace period before extra time counts as overtime.
var ToleranceHours = decimal.NewFromFloat(0.25)

// DefaultRateMultiplier applies when an officer has no configured rate.
var DefaultRateMultiplier = decimal.NewFromFloat(1.5)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrDuplicateAutoRequest is returned when an auto-generated request
	// already exists for the attendance record.
	ErrDuplicateAutoRequest = errors.New("auto-generated overtime request already exists for attendance record")

	// ErrRequestNotFound is returned when the referenced request does not exist.
	ErrRequestNotFound = errors.New("overtime request not found")

	// ErrNotPending is returned when deciding a request that is not pending.
	ErrNotPending = errors.New("overtime request is not pending")
)

// =============================================================================
// DERIVATION - Pure policy arithmetic
// =============================================================================

// Derive returns the overtime hours for a completed day:
// max(0, hoursWorked - normalHours - tolerance).
func Derive(hoursWorked, normalHours decimal.Decimal) decimal.Decimal {
	ot := hoursWorked.Sub(normalHours).Sub(ToleranceHours)
	if ot.IsNegative() {
		return decimal.Zero
	}
	return ot
}

// Pay computes the monetary value of an overtime request:
// round(hours * hourlyRate * multiplier, 2).
func Pay(hours, hourlyRate, multiplier decimal.Decimal) decimal.Decimal {
	return hours.Mul(hourlyRate).Mul(multiplier).Round(2)
}

// =============================================================================
// REQUEST - One per detected (or manually reported) overtime day
// =============================================================================

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

type Source string

const (
	SourceAutoGenerated Source = "auto_generated"
	SourceManual        Source = "manual"
)

type Request struct {
	ID                 string
	OfficerID          string
	InstitutionID      string
	Date               calendar.Date
	Hours              decimal.Decimal // rounded to 2 decimals
	Status             Status
	RateMultiplier     decimal.Decimal
	HourlyRate         decimal.Decimal
	CalculatedPay      decimal.Decimal
	Source             Source
	AttendanceRecordID string // empty for manual requests
	ApproverID         string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// =============================================================================
// STORE
// =============================================================================

type Store interface {
	// CreateOvertimeRequest inserts a request. For auto-generated requests
	// it returns ErrDuplicateAutoRequest when one already exists for the
	// same attendance record.
	CreateOvertimeRequest(ctx context.Context, r Request) error

	GetOvertimeRequest(ctx context.Context, id string) (*Request, error)
	SaveOvertimeRequest(ctx context.Context, r Request) error
	ListOvertimeRequestsByStatus(ctx context.Context, status Status) ([]Request, error)
}

// =============================================================================
// DERIVER - Auto-generation at checkout
// =============================================================================

// RateCard is what the deriver needs to know about an officer's pay.
type RateCard struct {
	HourlyRate     decimal.Decimal
	RateMultiplier decimal.Decimal // zero means DefaultRateMultiplier
}

// Deriver creates auto-generated requests from completed attendance days.
type Deriver struct {
	Store Store
}

// AutoGenerateParams describes the completed day being evaluated.
type AutoGenerateParams struct {
	OfficerID          string
	InstitutionID      string
	Date               calendar.Date
	AttendanceRecordID string
	HoursWorked        decimal.Decimal
	NormalHours        decimal.Decimal
	Rate               RateCard
	At                 time.Time
}

// AutoGenerate evaluates a completed day and, when overtime is detected,
// creates exactly one pending request. Returns (nil, nil) when the day
// has no overtime.
func (d *Deriver) AutoGenerate(ctx context.Context, p AutoGenerateParams) (*Request, error) {
	hours := Derive(p.HoursWorked, p.NormalHours)
	if !hours.IsPositive() {
		return nil, nil
	}

	multiplier := p.Rate.RateMultiplier
	if multiplier.IsZero() {
		multiplier = DefaultRateMultiplier
	}

	rounded := hours.Round(2)
	req := Request{
		ID:                 uuid.NewString(),
		OfficerID:          p.OfficerID,
		InstitutionID:      p.InstitutionID,
		Date:               p.Date,
		Hours:              rounded,
		Status:             StatusPending,
		RateMultiplier:     multiplier,
		HourlyRate:         p.Rate.HourlyRate,
		CalculatedPay:      Pay(rounded, p.Rate.HourlyRate, multiplier),
		Source:             SourceAutoGenerated,
		AttendanceRecordID: p.AttendanceRecordID,
		CreatedAt:          p.At,
		UpdatedAt:          p.At,
	}

	if err := d.Store.CreateOvertimeRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create overtime request: %w", err)
	}
	return &req, nil
}

// =============================================================================
// SERVICE - Approval workflow
// =============================================================================

// Service handles the approve/reject workflow for overtime requests.
type Service struct {
	Store Store
}

func (s *Service) Approve(ctx context.Context, id, approverID string, at time.Time) (*Request, error) {
	return s.decide(ctx, id, approverID, StatusApproved, at)
}

func (s *Service) Reject(ctx context.Context, id, approverID string, at time.Time) (*Request, error) {
	return s.decide(ctx, id, approverID, StatusRejected, at)
}

func (s *Service) decide(ctx context.Context, id, approverID string, status Status, at time.Time) (*Request, error) {
	req, err := s.Store.GetOvertimeRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if req.Status != StatusPending {
		return nil, fmt.Errorf("%w: status is %s", ErrNotPending, req.Status)
	}

	req.Status = status
	req.ApproverID = approverID
	req.UpdatedAt = at

	if err := s.Store.SaveOvertimeRequest(ctx, *req); err != nil {
		return nil, fmt.Errorf("failed to save decision: %w", err)
	}
	return req, nil
}
