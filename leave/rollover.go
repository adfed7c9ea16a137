package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warp/attendance-engine/calendar"
)

// =============================================================================
// MONTH ROLLOVER - Carry-forward into the next month
// =============================================================================

// RolloverBalance derives the next month's balance row from a closed
// month. The whole remaining balance carries forward, uncapped. If a cap
// or a use-it-or-lose-it window is ever introduced, this is the single
// place it applies.
func (s *Service) RolloverBalance(prev MonthlyBalance) MonthlyBalance {
	year, month := calendar.NextMonth(prev.Year, prev.Month)
	return MonthlyBalance{
		ID:             uuid.NewString(),
		ApplicantID:    prev.ApplicantID,
		Year:           year,
		Month:          month,
		MonthlyCredit:  s.MonthlyCredit,
		CarriedForward: prev.Remaining(),
	}
}

// RolloverMonth creates next-month balance rows for every applicant that
// has a row in (year, month). Rows that already exist are left alone, so
// the operation is safe to re-run.
func (s *Service) RolloverMonth(ctx context.Context, year int, month time.Month) (created int, err error) {
	balances, err := s.Store.ListMonthlyBalances(ctx, year, month)
	if err != nil {
		return 0, fmt.Errorf("failed to list balances for %d-%02d: %w", year, month, err)
	}

	for _, prev := range balances {
		next := s.RolloverBalance(prev)
		err := s.Store.InsertMonthlyBalance(ctx, next)
		if errors.Is(err, ErrBalanceExists) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("failed to roll over balance for %s: %w", prev.ApplicantID, err)
		}
		created++
	}
	return created, nil
}
