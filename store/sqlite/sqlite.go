/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements all persistence interfaces for the attendance engine using
  SQLite. In production, the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  attendance.Store:         Attendance records, geofence config, officers
  overtime.Store:           Overtime requests
  leave.Store:              Leave applications and monthly balances
  calendar.HolidayCalendar: Gazetted holiday lookups

INVARIANT ENFORCEMENT:
  The store, not application code, enforces the natural-key invariants,
  so concurrent requests cannot race a read-then-write check:
  - idx_attendance_natural_key: one record per (officer, institution, date).
    Check-in is an upsert against this key.
  - idx_overtime_auto_unique: at most one auto-generated overtime request
    per attendance record (partial unique index).
  - idx_balance_natural_key: one balance row per (applicant, year, month);
    updates are compare-and-swap on the version column.

KEY TABLES:
  institutions:           Institution records with inline geofence config
  officers:               Officer records with pay rates
  attendance_records:     One row per officer per day
  overtime_requests:      Auto-generated and manual overtime requests
  leave_applications:     Leave requests with their LOP outcome
  monthly_leave_balances: Per-applicant monthly leave ledger
  holidays:               Gazetted holidays (global or per-institution)

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := &attendance.Service{Store: store, ...}

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - attendance/types.go: Attendance store interface
  - overtime/overtime.go: Overtime store interface
  - leave/application.go: Leave store interface
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/leave"
	"github.com/warp/attendance-engine/overtime"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Institutions carry their geofence configuration inline.
	CREATE TABLE IF NOT EXISTS institutions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		lat REAL,
		lng REAL,
		radius_meters REAL NOT NULL DEFAULT 0 CHECK (radius_meters >= 0),
		expected_check_in TEXT,
		expected_check_out TEXT,
		normal_working_hours TEXT NOT NULL DEFAULT '8',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS officers (
		id TEXT PRIMARY KEY,
		institution_id TEXT NOT NULL,
		name TEXT NOT NULL,
		hourly_rate TEXT NOT NULL DEFAULT '0',
		rate_multiplier TEXT NOT NULL DEFAULT '1.5',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_officers_institution
		ON officers(institution_id);

	CREATE TABLE IF NOT EXISTS attendance_records (
		id TEXT PRIMARY KEY,
		officer_id TEXT NOT NULL,
		institution_id TEXT NOT NULL,
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		check_in_at TEXT NOT NULL,
		check_in_lat REAL,
		check_in_lng REAL,
		check_in_address TEXT,
		check_in_distance REAL NOT NULL DEFAULT 0,
		check_in_validated BOOLEAN,
		check_out_at TEXT,
		check_out_lat REAL,
		check_out_lng REAL,
		check_out_address TEXT,
		check_out_distance REAL NOT NULL DEFAULT 0,
		check_out_validated BOOLEAN,
		total_hours TEXT NOT NULL DEFAULT '0',
		overtime_hours TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- CRITICAL: one record per officer per institution per day.
	-- Check-in idempotency rides on this index, not on application checks.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_natural_key
		ON attendance_records(officer_id, institution_id, date);

	CREATE INDEX IF NOT EXISTS idx_attendance_officer_date
		ON attendance_records(officer_id, date);

	CREATE TABLE IF NOT EXISTS overtime_requests (
		id TEXT PRIMARY KEY,
		officer_id TEXT NOT NULL,
		institution_id TEXT NOT NULL,
		date TEXT NOT NULL,
		hours TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		rate_multiplier TEXT NOT NULL,
		hourly_rate TEXT NOT NULL,
		calculated_pay TEXT NOT NULL,
		source TEXT NOT NULL,
		attendance_record_id TEXT,
		approver_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- CRITICAL: exactly one auto-generated request per attendance record.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_overtime_auto_unique
		ON overtime_requests(attendance_record_id)
		WHERE source = 'auto_generated';

	CREATE INDEX IF NOT EXISTS idx_overtime_status
		ON overtime_requests(status);
	CREATE INDEX IF NOT EXISTS idx_overtime_officer
		ON overtime_requests(officer_id, date);

	CREATE TABLE IF NOT EXISTS leave_applications (
		id TEXT PRIMARY KEY,
		applicant_id TEXT NOT NULL,
		institution_id TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		total_days TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		paid_days TEXT NOT NULL DEFAULT '0',
		lop_days TEXT NOT NULL DEFAULT '0',
		reason TEXT,
		approver_id TEXT,
		decision_note TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_applications_status
		ON leave_applications(status);
	CREATE INDEX IF NOT EXISTS idx_leave_applications_applicant
		ON leave_applications(applicant_id);

	CREATE TABLE IF NOT EXISTS monthly_leave_balances (
		id TEXT PRIMARY KEY,
		applicant_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		monthly_credit TEXT NOT NULL DEFAULT '0',
		carried_forward TEXT NOT NULL DEFAULT '0',
		sick_used TEXT NOT NULL DEFAULT '0',
		casual_used TEXT NOT NULL DEFAULT '0',
		lop_days TEXT NOT NULL DEFAULT '0',
		version INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- One ledger row per applicant-month; updates are CAS on version.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_balance_natural_key
		ON monthly_leave_balances(applicant_id, year, month);

	-- Holidays with institution_id = '' apply to every institution.
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		institution_id TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique
		ON holidays(institution_id, date, name);
	CREATE INDEX IF NOT EXISTS idx_holidays_institution_date
		ON holidays(institution_id, date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ATTENDANCE RECORDS (attendance.Store interface)
// =============================================================================

// UpsertCheckIn writes or overwrites the check-in half of the day's record.
// The DO UPDATE clause refuses to reopen a checked_out record; the
// follow-up read detects that case and surfaces ErrAlreadyCheckedOut.
func (s *Store) UpsertCheckIn(ctx context.Context, rec attendance.Record) (*attendance.Record, error) {
	s.mu.Lock()

	query := `
		INSERT INTO attendance_records
		(id, officer_id, institution_id, date, status,
		 check_in_at, check_in_lat, check_in_lng, check_in_address,
		 check_in_distance, check_in_validated, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(officer_id, institution_id, date) DO UPDATE SET
			status = excluded.status,
			check_in_at = excluded.check_in_at,
			check_in_lat = excluded.check_in_lat,
			check_in_lng = excluded.check_in_lng,
			check_in_address = excluded.check_in_address,
			check_in_distance = excluded.check_in_distance,
			check_in_validated = excluded.check_in_validated,
			updated_at = excluded.updated_at
		WHERE attendance_records.status != 'checked_out'
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.OfficerID, rec.InstitutionID, rec.Date.String(), rec.Status,
		rec.CheckInAt.UTC().Format(time.RFC3339),
		rec.CheckInLat, rec.CheckInLng, rec.CheckInAddress,
		rec.CheckInDistance, rec.CheckInValidated,
		rec.CreatedAt.UTC().Format(time.RFC3339),
		rec.UpdatedAt.UTC().Format(time.RFC3339),
	)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to upsert check-in: %w", err)
	}

	saved, err := s.GetRecord(ctx, rec.OfficerID, rec.InstitutionID, rec.Date)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, fmt.Errorf("check-in record missing after upsert")
	}
	if saved.Status == attendance.StatusCheckedOut {
		return nil, attendance.ErrAlreadyCheckedOut
	}
	return saved, nil
}

// UpdateCheckOut closes the record. Conditional on status = checked_in so
// a checkout without a prior check-in (or a replayed checkout) fails
// cleanly instead of writing a checkout-only record.
func (s *Store) UpdateCheckOut(ctx context.Context, rec attendance.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE attendance_records SET
			status = ?,
			check_out_at = ?,
			check_out_lat = ?,
			check_out_lng = ?,
			check_out_address = ?,
			check_out_distance = ?,
			check_out_validated = ?,
			total_hours = ?,
			overtime_hours = ?,
			updated_at = ?
		WHERE id = ? AND status = 'checked_in'
	`

	var checkOutAt *string
	if rec.CheckOutAt != nil {
		v := rec.CheckOutAt.UTC().Format(time.RFC3339)
		checkOutAt = &v
	}

	res, err := s.db.ExecContext(ctx, query,
		rec.Status, checkOutAt,
		rec.CheckOutLat, rec.CheckOutLng, rec.CheckOutAddress,
		rec.CheckOutDistance, rec.CheckOutValidated,
		rec.TotalHours.String(), rec.OvertimeHours.String(),
		rec.UpdatedAt.UTC().Format(time.RFC3339),
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update check-out: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return attendance.ErrNoCheckIn
	}
	return nil
}

// GetRecord retrieves the record for (officer, institution, date), or nil.
func (s *Store) GetRecord(ctx context.Context, officerID, institutionID string, date calendar.Date) (*attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := attendanceSelect + `
		WHERE officer_id = ? AND institution_id = ? AND date = ?
	`
	records, err := s.queryAttendance(ctx, query, officerID, institutionID, date.String())
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// MonthlyRecords returns the officer's records for a calendar month.
func (s *Store) MonthlyRecords(ctx context.Context, officerID string, year int, month time.Month) ([]attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from := calendar.StartOfMonth(year, month)
	to := calendar.EndOfMonth(year, month)

	query := attendanceSelect + `
		WHERE officer_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`
	return s.queryAttendance(ctx, query, officerID, from.String(), to.String())
}

const attendanceSelect = `
	SELECT id, officer_id, institution_id, date, status,
	       check_in_at, check_in_lat, check_in_lng, check_in_address,
	       check_in_distance, check_in_validated,
	       check_out_at, check_out_lat, check_out_lng, check_out_address,
	       check_out_distance, check_out_validated,
	       total_hours, overtime_hours, created_at, updated_at
	FROM attendance_records
`

func (s *Store) queryAttendance(ctx context.Context, query string, args ...any) ([]attendance.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance records: %w", err)
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanAttendance(rows *sql.Rows) (attendance.Record, error) {
	var (
		rec               attendance.Record
		date              string
		checkInAt         string
		checkInAddr       sql.NullString
		checkInValidated  sql.NullBool
		checkOutAt        sql.NullString
		checkOutAddr      sql.NullString
		checkOutValidated sql.NullBool
		totalHours        string
		overtimeHours     string
		createdAt         string
		updatedAt         string
	)

	err := rows.Scan(
		&rec.ID, &rec.OfficerID, &rec.InstitutionID, &date, &rec.Status,
		&checkInAt, &rec.CheckInLat, &rec.CheckInLng, &checkInAddr,
		&rec.CheckInDistance, &checkInValidated,
		&checkOutAt, &rec.CheckOutLat, &rec.CheckOutLng, &checkOutAddr,
		&rec.CheckOutDistance, &checkOutValidated,
		&totalHours, &overtimeHours, &createdAt, &updatedAt,
	)
	if err != nil {
		return rec, fmt.Errorf("failed to scan attendance record: %w", err)
	}

	rec.Date, _ = calendar.ParseDate(date)
	rec.CheckInAt, _ = time.Parse(time.RFC3339, checkInAt)
	if checkInAddr.Valid {
		rec.CheckInAddress = &checkInAddr.String
	}
	if checkInValidated.Valid {
		rec.CheckInValidated = &checkInValidated.Bool
	}
	if checkOutAt.Valid {
		t, _ := time.Parse(time.RFC3339, checkOutAt.String)
		rec.CheckOutAt = &t
	}
	if checkOutAddr.Valid {
		rec.CheckOutAddress = &checkOutAddr.String
	}
	if checkOutValidated.Valid {
		rec.CheckOutValidated = &checkOutValidated.Bool
	}
	rec.TotalHours = mustDecimal(totalHours)
	rec.OvertimeHours = mustDecimal(overtimeHours)
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return rec, nil
}

// =============================================================================
// INSTITUTIONS & OFFICERS
// =============================================================================

// Institution is the stored institution row, geofence config included.
type Institution struct {
	ID                 string
	Name               string
	Lat                *float64
	Lng                *float64
	RadiusMeters       float64
	ExpectedCheckIn    string
	ExpectedCheckOut   string
	NormalWorkingHours decimal.Decimal
	CreatedAt          time.Time
}

// SaveInstitution inserts or updates an institution.
func (s *Store) SaveInstitution(ctx context.Context, inst Institution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO institutions
		(id, name, lat, lng, radius_meters, expected_check_in, expected_check_out, normal_working_hours, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			lat = excluded.lat,
			lng = excluded.lng,
			radius_meters = excluded.radius_meters,
			expected_check_in = excluded.expected_check_in,
			expected_check_out = excluded.expected_check_out,
			normal_working_hours = excluded.normal_working_hours
	`

	_, err := s.db.ExecContext(ctx, query,
		inst.ID, inst.Name, inst.Lat, inst.Lng, inst.RadiusMeters,
		inst.ExpectedCheckIn, inst.ExpectedCheckOut,
		inst.NormalWorkingHours.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetInstitution retrieves an institution by ID, or nil when missing.
func (s *Store) GetInstitution(ctx context.Context, id string) (*Institution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		inst        Institution
		expectedIn  sql.NullString
		expectedOut sql.NullString
		normalHours string
		createdAt   string
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, lat, lng, radius_meters, expected_check_in, expected_check_out, normal_working_hours, created_at
		 FROM institutions WHERE id = ?`, id,
	).Scan(&inst.ID, &inst.Name, &inst.Lat, &inst.Lng, &inst.RadiusMeters,
		&expectedIn, &expectedOut, &normalHours, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	inst.ExpectedCheckIn = expectedIn.String
	inst.ExpectedCheckOut = expectedOut.String
	inst.NormalWorkingHours = mustDecimal(normalHours)
	inst.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &inst, nil
}

// ListInstitutions returns all institutions, ordered by name.
func (s *Store) ListInstitutions(ctx context.Context) ([]Institution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, lat, lng, radius_meters, expected_check_in, expected_check_out, normal_working_hours, created_at
		 FROM institutions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var insts []Institution
	for rows.Next() {
		var (
			inst        Institution
			expectedIn  sql.NullString
			expectedOut sql.NullString
			normalHours string
			createdAt   string
		)
		if err := rows.Scan(&inst.ID, &inst.Name, &inst.Lat, &inst.Lng, &inst.RadiusMeters,
			&expectedIn, &expectedOut, &normalHours, &createdAt); err != nil {
			return nil, err
		}
		inst.ExpectedCheckIn = expectedIn.String
		inst.ExpectedCheckOut = expectedOut.String
		inst.NormalWorkingHours = mustDecimal(normalHours)
		inst.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		insts = append(insts, inst)
	}
	return insts, rows.Err()
}

// GetGeofenceConfig adapts the institution row to the attendance view of it.
func (s *Store) GetGeofenceConfig(ctx context.Context, institutionID string) (*attendance.GeofenceConfig, error) {
	inst, err := s.GetInstitution(ctx, institutionID)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, nil
	}
	return &attendance.GeofenceConfig{
		InstitutionID:      inst.ID,
		Lat:                inst.Lat,
		Lng:                inst.Lng,
		RadiusMeters:       inst.RadiusMeters,
		ExpectedCheckIn:    inst.ExpectedCheckIn,
		ExpectedCheckOut:   inst.ExpectedCheckOut,
		NormalWorkingHours: inst.NormalWorkingHours,
	}, nil
}

// SaveOfficer inserts or updates an officer.
func (s *Store) SaveOfficer(ctx context.Context, o attendance.Officer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO officers (id, institution_id, name, hourly_rate, rate_multiplier, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			institution_id = excluded.institution_id,
			name = excluded.name,
			hourly_rate = excluded.hourly_rate,
			rate_multiplier = excluded.rate_multiplier
	`

	_, err := s.db.ExecContext(ctx, query,
		o.ID, o.InstitutionID, o.Name,
		o.HourlyRate.String(), o.RateMultiplier.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetOfficer retrieves an officer by ID, or nil when missing.
func (s *Store) GetOfficer(ctx context.Context, id string) (*attendance.Officer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		o          attendance.Officer
		hourlyRate string
		multiplier string
	)

	err := s.db.QueryRowContext(ctx,
		"SELECT id, institution_id, name, hourly_rate, rate_multiplier FROM officers WHERE id = ?", id,
	).Scan(&o.ID, &o.InstitutionID, &o.Name, &hourlyRate, &multiplier)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	o.HourlyRate = mustDecimal(hourlyRate)
	o.RateMultiplier = mustDecimal(multiplier)
	return &o, nil
}

// ListOfficers returns all officers for an institution, ordered by name.
func (s *Store) ListOfficers(ctx context.Context, institutionID string) ([]attendance.Officer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, institution_id, name, hourly_rate, rate_multiplier FROM officers WHERE institution_id = ? ORDER BY name",
		institutionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var officers []attendance.Officer
	for rows.Next() {
		var (
			o          attendance.Officer
			hourlyRate string
			multiplier string
		)
		if err := rows.Scan(&o.ID, &o.InstitutionID, &o.Name, &hourlyRate, &multiplier); err != nil {
			return nil, err
		}
		o.HourlyRate = mustDecimal(hourlyRate)
		o.RateMultiplier = mustDecimal(multiplier)
		officers = append(officers, o)
	}
	return officers, rows.Err()
}

// =============================================================================
// OVERTIME REQUESTS (overtime.Store interface)
// =============================================================================

// CreateOvertimeRequest inserts a request. The partial unique index on
// auto-generated requests surfaces as ErrDuplicateAutoRequest.
func (s *Store) CreateOvertimeRequest(ctx context.Context, r overtime.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO overtime_requests
		(id, officer_id, institution_id, date, hours, status, rate_multiplier,
		 hourly_rate, calculated_pay, source, attendance_record_id, approver_id,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.OfficerID, r.InstitutionID, r.Date.String(),
		r.Hours.String(), r.Status, r.RateMultiplier.String(),
		r.HourlyRate.String(), r.CalculatedPay.String(), r.Source,
		nullString(r.AttendanceRecordID), nullString(r.ApproverID),
		r.CreatedAt.UTC().Format(time.RFC3339), r.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return overtime.ErrDuplicateAutoRequest
		}
		return fmt.Errorf("failed to create overtime request: %w", err)
	}
	return nil
}

// SaveOvertimeRequest updates a request's decision fields.
func (s *Store) SaveOvertimeRequest(ctx context.Context, r overtime.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE overtime_requests SET
			status = ?, approver_id = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := s.db.ExecContext(ctx, query,
		r.Status, nullString(r.ApproverID),
		r.UpdatedAt.UTC().Format(time.RFC3339), r.ID)
	return err
}

// GetOvertimeRequest retrieves a request by ID, or nil when missing.
func (s *Store) GetOvertimeRequest(ctx context.Context, id string) (*overtime.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reqs, err := s.queryOvertime(ctx, overtimeSelect+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, nil
	}
	return &reqs[0], nil
}

// ListOvertimeRequestsByStatus returns requests with the given status.
func (s *Store) ListOvertimeRequestsByStatus(ctx context.Context, status overtime.Status) ([]overtime.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryOvertime(ctx, overtimeSelect+" WHERE status = ? ORDER BY created_at ASC", status)
}

const overtimeSelect = `
	SELECT id, officer_id, institution_id, date, hours, status, rate_multiplier,
	       hourly_rate, calculated_pay, source, attendance_record_id, approver_id,
	       created_at, updated_at
	FROM overtime_requests
`

func (s *Store) queryOvertime(ctx context.Context, query string, args ...any) ([]overtime.Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query overtime requests: %w", err)
	}
	defer rows.Close()

	var reqs []overtime.Request
	for rows.Next() {
		var (
			r          overtime.Request
			date       string
			hours      string
			multiplier string
			hourlyRate string
			pay        string
			recordID   sql.NullString
			approverID sql.NullString
			createdAt  string
			updatedAt  string
		)
		if err := rows.Scan(
			&r.ID, &r.OfficerID, &r.InstitutionID, &date, &hours, &r.Status,
			&multiplier, &hourlyRate, &pay, &r.Source, &recordID, &approverID,
			&createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan overtime request: %w", err)
		}

		r.Date, _ = calendar.ParseDate(date)
		r.Hours = mustDecimal(hours)
		r.RateMultiplier = mustDecimal(multiplier)
		r.HourlyRate = mustDecimal(hourlyRate)
		r.CalculatedPay = mustDecimal(pay)
		r.AttendanceRecordID = recordID.String
		r.ApproverID = approverID.String
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		reqs = append(reqs, r)
	}
	return reqs, rows.Err()
}

// =============================================================================
// LEAVE APPLICATIONS (leave.Store interface)
// =============================================================================

// SaveApplication inserts or updates a leave application.
func (s *Store) SaveApplication(ctx context.Context, app leave.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO leave_applications
		(id, applicant_id, institution_id, leave_type, start_date, end_date,
		 total_days, status, paid_days, lop_days, reason, approver_id,
		 decision_note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			paid_days = excluded.paid_days,
			lop_days = excluded.lop_days,
			approver_id = excluded.approver_id,
			decision_note = excluded.decision_note,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		app.ID, app.ApplicantID, app.InstitutionID, app.Type,
		app.StartDate.String(), app.EndDate.String(),
		app.TotalDays.String(), app.Status,
		app.PaidDays.String(), app.LOPDays.String(),
		nullString(app.Reason), nullString(app.ApproverID), nullString(app.DecisionNote),
		app.CreatedAt.UTC().Format(time.RFC3339), app.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// GetApplication retrieves an application by ID, or nil when missing.
func (s *Store) GetApplication(ctx context.Context, id string) (*leave.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	apps, err := s.queryApplications(ctx, applicationSelect+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(apps) == 0 {
		return nil, nil
	}
	return &apps[0], nil
}

// ListApplicationsByStatus returns applications with the given status.
func (s *Store) ListApplicationsByStatus(ctx context.Context, status leave.Status) ([]leave.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryApplications(ctx, applicationSelect+" WHERE status = ? ORDER BY created_at ASC", status)
}

// ListApplicationsByApplicant returns an applicant's applications, newest first.
func (s *Store) ListApplicationsByApplicant(ctx context.Context, applicantID string) ([]leave.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryApplications(ctx, applicationSelect+" WHERE applicant_id = ? ORDER BY created_at DESC", applicantID)
}

const applicationSelect = `
	SELECT id, applicant_id, institution_id, leave_type, start_date, end_date,
	       total_days, status, paid_days, lop_days, reason, approver_id,
	       decision_note, created_at, updated_at
	FROM leave_applications
`

func (s *Store) queryApplications(ctx context.Context, query string, args ...any) ([]leave.Application, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave applications: %w", err)
	}
	defer rows.Close()

	var apps []leave.Application
	for rows.Next() {
		var (
			app          leave.Application
			startDate    string
			endDate      string
			totalDays    string
			paidDays     string
			lopDays      string
			reason       sql.NullString
			approverID   sql.NullString
			decisionNote sql.NullString
			createdAt    string
			updatedAt    string
		)
		if err := rows.Scan(
			&app.ID, &app.ApplicantID, &app.InstitutionID, &app.Type,
			&startDate, &endDate, &totalDays, &app.Status,
			&paidDays, &lopDays, &reason, &approverID, &decisionNote,
			&createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan leave application: %w", err)
		}

		app.StartDate, _ = calendar.ParseDate(startDate)
		app.EndDate, _ = calendar.ParseDate(endDate)
		app.TotalDays = mustDecimal(totalDays)
		app.PaidDays = mustDecimal(paidDays)
		app.LOPDays = mustDecimal(lopDays)
		app.Reason = reason.String
		app.ApproverID = approverID.String
		app.DecisionNote = decisionNote.String
		app.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		app.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// =============================================================================
// MONTHLY LEAVE BALANCES (leave.Store interface, continued)
// =============================================================================

// GetMonthlyBalance retrieves a balance row, or nil when missing.
func (s *Store) GetMonthlyBalance(ctx context.Context, applicantID string, year int, month time.Month) (*leave.MonthlyBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	balances, err := s.queryBalances(ctx,
		balanceSelect+" WHERE applicant_id = ? AND year = ? AND month = ?",
		applicantID, year, int(month))
	if err != nil {
		return nil, err
	}
	if len(balances) == 0 {
		return nil, nil
	}
	return &balances[0], nil
}

// InsertMonthlyBalance creates a new balance row. The natural-key conflict
// surfaces as ErrBalanceExists.
func (s *Store) InsertMonthlyBalance(ctx context.Context, b leave.MonthlyBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO monthly_leave_balances
		(id, applicant_id, year, month, monthly_credit, carried_forward,
		 sick_used, casual_used, lop_days, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		b.ID, b.ApplicantID, b.Year, int(b.Month),
		b.MonthlyCredit.String(), b.CarriedForward.String(),
		b.SickUsed.String(), b.CasualUsed.String(), b.LOPDays.String(),
		now, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return leave.ErrBalanceExists
		}
		return fmt.Errorf("failed to insert monthly balance: %w", err)
	}
	return nil
}

// UpdateMonthlyBalance writes the row with a compare-and-swap on version.
// ErrConcurrentModification when the stored version has moved on.
func (s *Store) UpdateMonthlyBalance(ctx context.Context, b leave.MonthlyBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE monthly_leave_balances SET
			monthly_credit = ?, carried_forward = ?,
			sick_used = ?, casual_used = ?, lop_days = ?,
			version = version + 1, updated_at = ?
		WHERE applicant_id = ? AND year = ? AND month = ? AND version = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		b.MonthlyCredit.String(), b.CarriedForward.String(),
		b.SickUsed.String(), b.CasualUsed.String(), b.LOPDays.String(),
		time.Now().UTC().Format(time.RFC3339),
		b.ApplicantID, b.Year, int(b.Month), b.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update monthly balance: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return leave.ErrConcurrentModification
	}
	return nil
}

// ListMonthlyBalances returns every balance row for a month.
func (s *Store) ListMonthlyBalances(ctx context.Context, year int, month time.Month) ([]leave.MonthlyBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryBalances(ctx,
		balanceSelect+" WHERE year = ? AND month = ? ORDER BY applicant_id",
		year, int(month))
}

const balanceSelect = `
	SELECT id, applicant_id, year, month, monthly_credit, carried_forward,
	       sick_used, casual_used, lop_days, version
	FROM monthly_leave_balances
`

func (s *Store) queryBalances(ctx context.Context, query string, args ...any) ([]leave.MonthlyBalance, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly balances: %w", err)
	}
	defer rows.Close()

	var balances []leave.MonthlyBalance
	for rows.Next() {
		var (
			b       leave.MonthlyBalance
			month   int
			credit  string
			carried string
			sick    string
			casual  string
			lop     string
		)
		if err := rows.Scan(
			&b.ID, &b.ApplicantID, &b.Year, &month,
			&credit, &carried, &sick, &casual, &lop, &b.Version,
		); err != nil {
			return nil, fmt.Errorf("failed to scan monthly balance: %w", err)
		}
		b.Month = time.Month(month)
		b.MonthlyCredit = mustDecimal(credit)
		b.CarriedForward = mustDecimal(carried)
		b.SickUsed = mustDecimal(sick)
		b.CasualUsed = mustDecimal(casual)
		b.LOPDays = mustDecimal(lop)
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// =============================================================================
// HOLIDAYS (calendar.HolidayCalendar interface)
// =============================================================================

// SaveHoliday inserts a holiday; re-inserting the same holiday is a no-op.
func (s *Store) SaveHoliday(ctx context.Context, h calendar.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO holidays (id, institution_id, date, name, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(institution_id, date, name) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		h.ID, h.InstitutionID, h.Date.String(), h.Name,
		time.Now().UTC().Format(time.RFC3339))
	return err
}

// DeleteHoliday deletes a holiday by ID.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	return err
}

// IsHoliday checks institution-specific holidays and global ones.
func (s *Store) IsHoliday(institutionID string, date calendar.Date) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM holidays WHERE (institution_id = ? OR institution_id = '') AND date = ?",
		institutionID, date.String(),
	).Scan(&count)
	if err != nil {
		return false
	}
	return count > 0
}

// HolidaysInRange returns holidays visible to an institution within the range.
func (s *Store) HolidaysInRange(institutionID string, r calendar.DateRange) []calendar.Holiday {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, institution_id, date, name FROM holidays
		 WHERE (institution_id = ? OR institution_id = '')
		   AND date >= ? AND date <= ?
		 ORDER BY date ASC`,
		institutionID, r.Start.String(), r.End.String())
	if err != nil {
		return nil
	}
	defer rows.Close()

	var holidays []calendar.Holiday
	for rows.Next() {
		var h calendar.Holiday
		var date string
		if err := rows.Scan(&h.ID, &h.InstitutionID, &date, &h.Name); err != nil {
			continue
		}
		h.Date, _ = calendar.ParseDate(date)
		holidays = append(holidays, h)
	}
	return holidays
}

// ListHolidays returns all holidays visible to an institution.
func (s *Store) ListHolidays(ctx context.Context, institutionID string) ([]calendar.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, institution_id, date, name FROM holidays
		 WHERE institution_id = ? OR institution_id = ''
		 ORDER BY date ASC`, institutionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []calendar.Holiday
	for rows.Next() {
		var h calendar.Holiday
		var date string
		if err := rows.Scan(&h.ID, &h.InstitutionID, &date, &h.Name); err != nil {
			return nil, err
		}
		h.Date, _ = calendar.ParseDate(date)
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
