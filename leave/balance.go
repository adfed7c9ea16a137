/*
balance.go - Leave balance and loss-of-pay (LOP) computation

PURPOSE:
  The arithmetic core of the leave subsystem. Given a month's credit, the
  carry-forward from the previous month, and the days already used, these
  functions answer "how much paid leave remains?" and "how does a request
  split into paid vs LOP days?".

KEY RULES:
  - balance_remaining = max(0, monthly_credit + carried_forward - used)
  - paid = min(requested, remaining); lop = requested - paid
  - paid + lop == requested for any non-negative request
  - An approver can override the automatic split: 'complete' marks every
    day LOP regardless of balance; 'partial' sets paid days explicitly,
    clamped to [0, total]

PRECISION:
  Day quantities are decimal.Decimal. Half-day leave exists in the wild and
  float64 accumulation drifts across a year of monthly arithmetic.

SEE ALSO:
  - application.go: Applies these splits when an application is approved
  - rollover.go: Month-to-month carry-forward
*/
package leave

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BALANCE ARITHMETIC - Pure functions
// =============================================================================

// ComputeBalance returns the remaining paid-leave balance for a month:
// max(0, monthlyCredit + carriedForward - used). The floor at zero means
// overshoot becomes LOP days, never a negative balance.
func ComputeBalance(monthlyCredit, carriedForward, used decimal.Decimal) decimal.Decimal {
	remaining := monthlyCredit.Add(carriedForward).Sub(used)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// DaySplit is the partition of a requested leave span into paid and
// loss-of-pay days.
type DaySplit struct {
	Paid decimal.Decimal
	LOP  decimal.Decimal
}

// SplitDays partitions requested days against the remaining balance.
// Invariant: Paid + LOP == requested.
func SplitDays(requested, remaining decimal.Decimal) DaySplit {
	if requested.IsNegative() {
		requested = decimal.Zero
	}
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	paid := decimal.Min(requested, remaining)
	return DaySplit{Paid: paid, LOP: requested.Sub(paid)}
}

// =============================================================================
// APPROVER OVERRIDES
// =============================================================================

// LOPMode selects how an approver overrides the automatic split.
type LOPMode string

const (
	// LOPComplete marks every requested day as loss-of-pay, regardless of
	// remaining balance.
	LOPComplete LOPMode = "complete"

	// LOPPartial sets the paid-day count explicitly; the rest become LOP.
	LOPPartial LOPMode = "partial"
)

// ApplyLOPDecision computes the split for an explicit approver decision.
// It supersedes SplitDays for the application it is applied to; the two
// never both apply. The partial override is clamped to [0, totalDays].
func ApplyLOPDecision(totalDays decimal.Decimal, mode LOPMode, paidDaysOverride decimal.Decimal) (DaySplit, error) {
	if totalDays.IsNegative() {
		return DaySplit{}, fmt.Errorf("total days must be non-negative, got %s", totalDays)
	}

	switch mode {
	case LOPComplete:
		return DaySplit{Paid: decimal.Zero, LOP: totalDays}, nil
	case LOPPartial:
		paid := paidDaysOverride
		if paid.IsNegative() {
			paid = decimal.Zero
		}
		if paid.GreaterThan(totalDays) {
			paid = totalDays
		}
		return DaySplit{Paid: paid, LOP: totalDays.Sub(paid)}, nil
	default:
		return DaySplit{}, fmt.Errorf("unknown LOP mode: %q", mode)
	}
}

// =============================================================================
// MONTHLY BALANCE - One row per (applicant, year, month)
// =============================================================================

// MonthlyBalance is the persisted ledger row for one applicant-month.
// Version supports compare-and-swap updates: two approvals touching the
// same month cannot both debit a stale 'used' total.
type MonthlyBalance struct {
	ID             string
	ApplicantID    string
	Year           int
	Month          time.Month
	MonthlyCredit  decimal.Decimal
	CarriedForward decimal.Decimal
	SickUsed       decimal.Decimal
	CasualUsed     decimal.Decimal
	LOPDays        decimal.Decimal
	Version        int
}

// Used returns the total paid days consumed this month.
func (b MonthlyBalance) Used() decimal.Decimal {
	return b.SickUsed.Add(b.CasualUsed)
}

// Remaining returns the paid balance still available this month.
func (b MonthlyBalance) Remaining() decimal.Decimal {
	return ComputeBalance(b.MonthlyCredit, b.CarriedForward, b.Used())
}
