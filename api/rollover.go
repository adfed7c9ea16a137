/*
rollover.go - Automated month-boundary balance rollover

PURPOSE:
  Periodically rolls the previous month's remaining leave balances into
  the current month's carried_forward, so balances exist before the first
  approval of the month needs them.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each pass rolls (previous month -> current month); rows that already
    exist are skipped, so overlapping passes and restarts are harmless
  - Balances are also created lazily on first read, which covers
    applicants hired mid-month that no rollover pass has seen

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewRolloverScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerRollover endpoint (manual rollover)
  - leave/rollover.go: RolloverMonth
*/
package api

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"
)

// RolloverScheduler handles automated month-boundary rollover.
type RolloverScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRolloverScheduler creates a new scheduler.
func NewRolloverScheduler(handler *Handler) *RolloverScheduler {
	return &RolloverScheduler{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (rs *RolloverScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Rollover] Disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Rollover] Started with check interval: %v", rs.CheckInterval)
}

// Stop stops the scheduler.
func (rs *RolloverScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		log.Println("[Rollover] Stopped")
	}
}

func (rs *RolloverScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.checkAndProcess()

	for {
		select {
		case <-rs.ticker.C:
			rs.checkAndProcess()
		case <-rs.stop:
			return
		}
	}
}

// checkAndProcess rolls the previous month forward. RolloverMonth skips
// rows that already exist, so running this every tick is cheap once the
// month has been processed.
func (rs *RolloverScheduler) checkAndProcess() {
	ctx := context.Background()
	now := time.Now().UTC()

	prev := now.AddDate(0, -1, -now.Day()+1) // first day of previous month
	created, err := rs.Handler.Leave.RolloverMonth(ctx, prev.Year(), prev.Month())
	if err != nil {
		log.Printf("[Rollover] Error rolling %d-%02d forward: %v", prev.Year(), prev.Month(), err)
		return
	}
	if created > 0 {
		log.Printf("[Rollover] Rolled %d-%02d forward: %d balances created", prev.Year(), prev.Month(), created)
	}
}

// RunNow triggers an immediate check (for testing/admin).
func (rs *RolloverScheduler) RunNow() {
	rs.checkAndProcess()
}

// TriggerRollover rolls a given month's balances into the next month.
// POST /api/admin/rollover?year=&month= (defaults to the previous month)
func (h *Handler) TriggerRollover(w http.ResponseWriter, r *http.Request) {
	yearStr := r.URL.Query().Get("year")
	monthStr := r.URL.Query().Get("month")

	year, month, err := parseYearMonthParams(yearStr, monthStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year/month", err)
		return
	}
	if yearStr == "" && monthStr == "" {
		now := time.Now().UTC()
		prev := now.AddDate(0, -1, -now.Day()+1)
		year, month = prev.Year(), prev.Month()
	}

	created, err := h.Leave.RolloverMonth(r.Context(), year, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Rollover failed", err)
		return
	}

	writeJSON(w, http.StatusOK, RolloverResponse{
		Year:    year,
		Month:   int(month),
		Created: created,
	})
}
