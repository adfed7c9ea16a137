/*
handlers.go - HTTP API handlers for the attendance engine

PURPOSE:
  Exposes the attendance, overtime, and leave services via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Attendance:
    POST   /api/officers/{id}/check-in          GPS-validated check-in
    POST   /api/officers/{id}/check-out         Check-out + overtime derivation
    GET    /api/officers/{id}/attendance/today  Today's record
    GET    /api/officers/{id}/attendance        Monthly records (?month=YYYY-MM)

  Leave:
    GET    /api/officers/{id}/leave-balance     Monthly balance (?year=&month=)
    POST   /api/leave-applications              Submit application
    GET    /api/leave-applications/pending      Pending queue
    POST   /api/leave-applications/{id}/approve Approve (optional LOP override)
    POST   /api/leave-applications/{id}/reject  Reject
    POST   /api/leave-applications/{id}/cancel  Cancel

  Overtime:
    GET    /api/overtime/pending                Pending queue
    POST   /api/overtime/{id}/approve           Approve
    POST   /api/overtime/{id}/reject            Reject

  Calendar:
    GET    /api/holidays                        List (?institution_id=)
    POST   /api/holidays                        Create
    DELETE /api/holidays/{id}                   Delete
    GET    /api/working-days                    Count (?start=&end=&institution_id=)

  Admin:
    GET/POST /api/institutions, /api/officers   Directory management
    POST   /api/admin/rollover                  Manual month rollover

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, clock skew
  - 404: Resource not found
  - 409: Conflict (already checked out, no open check-in, version conflict)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/geocode"
	"github.com/warp/attendance-engine/leave"
	"github.com/warp/attendance-engine/overtime"
	"github.com/warp/attendance-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Attendance *attendance.Service
	Overtime   *overtime.Service
	Leave      *leave.Service
}

// NewHandler wires the services over a shared store. The store doubles as
// the holiday calendar for working-day counting.
func NewHandler(store *sqlite.Store, geocoder geocode.Reverser, monthlyCredit decimal.Decimal) *Handler {
	return &Handler{
		Store: store,
		Attendance: &attendance.Service{
			Store:    store,
			Geocoder: geocoder,
			Overtime: &overtime.Deriver{Store: store},
		},
		Overtime: &overtime.Service{Store: store},
		Leave: &leave.Service{
			Store:         store,
			Holidays:      store,
			MonthlyCredit: monthlyCredit,
		},
	}
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// CheckIn records an officer's arrival.
// POST /api/officers/{id}/check-in
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	officerID := chi.URLParam(r, "id")

	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.InstitutionID == "" {
		writeError(w, http.StatusBadRequest, "institution_id is required", nil)
		return
	}

	result, err := h.Attendance.CheckIn(r.Context(), attendance.CheckInParams{
		OfficerID:     officerID,
		InstitutionID: req.InstitutionID,
		Lat:           req.Lat,
		Lng:           req.Lng,
		SkipGPS:       req.SkipGPS,
		At:            time.Now().UTC(),
	})
	if err != nil {
		writeAttendanceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CheckInResponse{
		Record:         toAttendanceRecordDTO(result.Record),
		Validated:      result.Validated,
		DistanceMeters: result.DistanceMeters,
		Degraded:       toEffectFailureDTOs(result.Degraded),
	})
}

// CheckOut closes an officer's day and derives overtime.
// POST /api/officers/{id}/check-out
func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	officerID := chi.URLParam(r, "id")

	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.InstitutionID == "" {
		writeError(w, http.StatusBadRequest, "institution_id is required", nil)
		return
	}

	result, err := h.Attendance.CheckOut(r.Context(), attendance.CheckOutParams{
		OfficerID:     officerID,
		InstitutionID: req.InstitutionID,
		Lat:           req.Lat,
		Lng:           req.Lng,
		SkipGPS:       req.SkipGPS,
		At:            time.Now().UTC(),
	})
	if err != nil {
		writeAttendanceError(w, err)
		return
	}

	resp := CheckOutResponse{
		Record:         toAttendanceRecordDTO(result.Record),
		Validated:      result.Validated,
		DistanceMeters: result.DistanceMeters,
		HoursWorked:    result.HoursWorked.String(),
		OvertimeHours:  result.OvertimeHours.String(),
		Degraded:       toEffectFailureDTOs(result.Degraded),
	}
	if result.OvertimeRequest != nil {
		dto := toOvertimeRequestDTO(*result.OvertimeRequest)
		resp.OvertimeRequest = &dto
	}
	writeJSON(w, http.StatusOK, resp)
}

// TodayAttendance returns the officer's record for today, if any.
// GET /api/officers/{id}/attendance/today?institution_id=
func (h *Handler) TodayAttendance(w http.ResponseWriter, r *http.Request) {
	officerID := chi.URLParam(r, "id")
	institutionID := r.URL.Query().Get("institution_id")
	if institutionID == "" {
		writeError(w, http.StatusBadRequest, "institution_id is required", nil)
		return
	}

	rec, err := h.Attendance.TodayRecord(r.Context(), officerID, institutionID, calendar.Today())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get attendance record", err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "No attendance record for today", nil)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceRecordDTO(*rec))
}

// MonthlyAttendance returns the officer's records for a month.
// GET /api/officers/{id}/attendance?month=YYYY-MM
func (h *Handler) MonthlyAttendance(w http.ResponseWriter, r *http.Request) {
	officerID := chi.URLParam(r, "id")

	year, month, err := parseYearMonth(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month format (use YYYY-MM)", err)
		return
	}

	records, err := h.Attendance.MonthlyRecords(r.Context(), officerID, year, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list attendance records", err)
		return
	}

	dtos := make([]AttendanceRecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = toAttendanceRecordDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// LEAVE HANDLERS
// =============================================================================

// GetLeaveBalance returns (creating lazily if needed) a month's balance.
// GET /api/officers/{id}/leave-balance?year=&month=
func (h *Handler) GetLeaveBalance(w http.ResponseWriter, r *http.Request) {
	applicantID := chi.URLParam(r, "id")

	year, month, err := parseYearMonthParams(r.URL.Query().Get("year"), r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year/month", err)
		return
	}

	balance, err := h.Leave.Balance(r.Context(), applicantID, year, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get leave balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthlyBalanceDTO(*balance))
}

// SubmitLeaveApplication creates a pending leave application.
// POST /api/leave-applications
func (h *Handler) SubmitLeaveApplication(w http.ResponseWriter, r *http.Request) {
	var req SubmitLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	leaveType := leave.Type(req.Type)
	if leaveType != leave.TypeSick && leaveType != leave.TypeCasual {
		writeError(w, http.StatusBadRequest, "Invalid leave type (use sick or casual)", nil)
		return
	}

	start, err := calendar.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date (use YYYY-MM-DD)", err)
		return
	}
	end, err := calendar.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date (use YYYY-MM-DD)", err)
		return
	}

	app, err := h.Leave.Submit(r.Context(), leave.SubmitParams{
		ApplicantID:   req.ApplicantID,
		InstitutionID: req.InstitutionID,
		Type:          leaveType,
		StartDate:     start,
		EndDate:       end,
		Reason:        req.Reason,
		At:            time.Now().UTC(),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to submit leave application", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveApplicationDTO(*app))
}

// ListPendingLeaveApplications returns the pending approval queue.
// GET /api/leave-applications/pending
func (h *Handler) ListPendingLeaveApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.Store.ListApplicationsByStatus(r.Context(), leave.StatusPending)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list applications", err)
		return
	}

	dtos := make([]LeaveApplicationDTO, len(apps))
	for i, app := range apps {
		dtos[i] = toLeaveApplicationDTO(app)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListLeaveApplications returns an applicant's applications.
// GET /api/officers/{id}/leave-applications
func (h *Handler) ListLeaveApplications(w http.ResponseWriter, r *http.Request) {
	applicantID := chi.URLParam(r, "id")

	apps, err := h.Store.ListApplicationsByApplicant(r.Context(), applicantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list applications", err)
		return
	}

	dtos := make([]LeaveApplicationDTO, len(apps))
	for i, app := range apps {
		dtos[i] = toLeaveApplicationDTO(app)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApproveLeaveApplication approves a pending application, optionally with
// an explicit LOP decision overriding the bank-first split.
// POST /api/leave-applications/{id}/approve
func (h *Handler) ApproveLeaveApplication(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ApproveLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var override *leave.LOPOverride
	if req.Mode != "" {
		mode := leave.LOPMode(req.Mode)
		if mode != leave.LOPComplete && mode != leave.LOPPartial {
			writeError(w, http.StatusBadRequest, "Invalid lop_mode (use complete or partial)", nil)
			return
		}
		override = &leave.LOPOverride{Mode: mode}
		if mode == leave.LOPPartial {
			paid, err := decimal.NewFromString(req.PaidDays)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid paid_days", err)
				return
			}
			override.PaidDays = paid
		}
	}

	app, err := h.Leave.Approve(r.Context(), id, req.ApproverID, override, time.Now().UTC())
	if err != nil {
		writeLeaveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveApplicationDTO(*app))
}

// RejectLeaveApplication rejects a pending application.
// POST /api/leave-applications/{id}/reject
func (h *Handler) RejectLeaveApplication(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req RejectLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	app, err := h.Leave.Reject(r.Context(), id, req.ApproverID, req.Note, time.Now().UTC())
	if err != nil {
		writeLeaveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveApplicationDTO(*app))
}

// CancelLeaveApplication cancels a pending application.
// POST /api/leave-applications/{id}/cancel
func (h *Handler) CancelLeaveApplication(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	app, err := h.Leave.Cancel(r.Context(), id, time.Now().UTC())
	if err != nil {
		writeLeaveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveApplicationDTO(*app))
}

// =============================================================================
// OVERTIME HANDLERS
// =============================================================================

// ListPendingOvertime returns the pending overtime queue.
// GET /api/overtime/pending
func (h *Handler) ListPendingOvertime(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.Store.ListOvertimeRequestsByStatus(r.Context(), overtime.StatusPending)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list overtime requests", err)
		return
	}

	dtos := make([]OvertimeRequestDTO, len(reqs))
	for i, req := range reqs {
		dtos[i] = toOvertimeRequestDTO(req)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApproveOvertime approves a pending overtime request.
// POST /api/overtime/{id}/approve
func (h *Handler) ApproveOvertime(w http.ResponseWriter, r *http.Request) {
	h.decideOvertime(w, r, true)
}

// RejectOvertime rejects a pending overtime request.
// POST /api/overtime/{id}/reject
func (h *Handler) RejectOvertime(w http.ResponseWriter, r *http.Request) {
	h.decideOvertime(w, r, false)
}

func (h *Handler) decideOvertime(w http.ResponseWriter, r *http.Request, approve bool) {
	id := chi.URLParam(r, "id")

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var (
		result *overtime.Request
		err    error
	)
	if approve {
		result, err = h.Overtime.Approve(r.Context(), id, req.ApproverID, time.Now().UTC())
	} else {
		result, err = h.Overtime.Reject(r.Context(), id, req.ApproverID, time.Now().UTC())
	}
	if err != nil {
		switch {
		case errors.Is(err, overtime.ErrRequestNotFound):
			writeError(w, http.StatusNotFound, "Overtime request not found", err)
		case errors.Is(err, overtime.ErrNotPending):
			writeError(w, http.StatusConflict, "Overtime request is not pending", err)
		default:
			writeError(w, http.StatusInternalServerError, "Failed to decide overtime request", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, toOvertimeRequestDTO(*result))
}

// =============================================================================
// HOLIDAY & WORKING-DAY HANDLERS
// =============================================================================

// ListHolidays returns holidays visible to an institution.
// GET /api/holidays?institution_id=
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	institutionID := r.URL.Query().Get("institution_id")

	holidays, err := h.Store.ListHolidays(r.Context(), institutionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list holidays", err)
		return
	}

	dtos := make([]HolidayDTO, len(holidays))
	for i, hol := range holidays {
		dtos[i] = toHolidayDTO(hol)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday creates a holiday. Empty institution_id means global.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := calendar.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	holiday := calendar.Holiday{
		ID:            uuid.NewString(),
		InstitutionID: req.InstitutionID,
		Date:          date,
		Name:          req.Name,
	}
	if err := h.Store.SaveHoliday(r.Context(), holiday); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, toHolidayDTO(holiday))
}

// DeleteHoliday deletes a holiday.
// DELETE /api/holidays/{id}
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Store.DeleteHoliday(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete holiday", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// WorkingDays counts working days in a range (holidays excluded, weekends
// kept - chargeable leave days follow the same rule).
// GET /api/working-days?start=&end=&institution_id=
func (h *Handler) WorkingDays(w http.ResponseWriter, r *http.Request) {
	start, err := calendar.ParseDate(r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start (use YYYY-MM-DD)", err)
		return
	}
	end, err := calendar.ParseDate(r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end (use YYYY-MM-DD)", err)
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end before start", nil)
		return
	}

	count := calendar.WorkingDays(start, end, h.Store, r.URL.Query().Get("institution_id"))
	writeJSON(w, http.StatusOK, WorkingDaysResponse{
		Start:             start.String(),
		End:               end.String(),
		TotalCalendarDays: count.TotalCalendarDays,
		HolidaysInRange:   count.HolidaysInRange,
		WorkingDays:       count.WorkingDays,
	})
}

// =============================================================================
// INSTITUTION & OFFICER HANDLERS
// =============================================================================

// ListInstitutions returns all institutions.
// GET /api/institutions
func (h *Handler) ListInstitutions(w http.ResponseWriter, r *http.Request) {
	insts, err := h.Store.ListInstitutions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list institutions", err)
		return
	}

	dtos := make([]InstitutionDTO, len(insts))
	for i, inst := range insts {
		dtos[i] = InstitutionDTO{
			ID:                 inst.ID,
			Name:               inst.Name,
			Lat:                inst.Lat,
			Lng:                inst.Lng,
			RadiusMeters:       inst.RadiusMeters,
			ExpectedCheckIn:    inst.ExpectedCheckIn,
			ExpectedCheckOut:   inst.ExpectedCheckOut,
			NormalWorkingHours: inst.NormalWorkingHours.String(),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateInstitution creates or updates an institution.
// POST /api/institutions
func (h *Handler) CreateInstitution(w http.ResponseWriter, r *http.Request) {
	var req CreateInstitutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}
	if req.RadiusMeters < 0 {
		writeError(w, http.StatusBadRequest, "radius_meters must be >= 0", nil)
		return
	}

	normalHours := decimal.NewFromInt(8)
	if req.NormalWorkingHours != "" {
		var err error
		normalHours, err = decimal.NewFromString(req.NormalWorkingHours)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid normal_working_hours", err)
			return
		}
	}

	inst := sqlite.Institution{
		ID:                 req.ID,
		Name:               req.Name,
		Lat:                req.Lat,
		Lng:                req.Lng,
		RadiusMeters:       req.RadiusMeters,
		ExpectedCheckIn:    req.ExpectedCheckIn,
		ExpectedCheckOut:   req.ExpectedCheckOut,
		NormalWorkingHours: normalHours,
	}
	if err := h.Store.SaveInstitution(r.Context(), inst); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save institution", err)
		return
	}

	writeJSON(w, http.StatusCreated, InstitutionDTO{
		ID:                 inst.ID,
		Name:               inst.Name,
		Lat:                inst.Lat,
		Lng:                inst.Lng,
		RadiusMeters:       inst.RadiusMeters,
		ExpectedCheckIn:    inst.ExpectedCheckIn,
		ExpectedCheckOut:   inst.ExpectedCheckOut,
		NormalWorkingHours: inst.NormalWorkingHours.String(),
	})
}

// ListOfficers returns all officers for an institution.
// GET /api/officers?institution_id=
func (h *Handler) ListOfficers(w http.ResponseWriter, r *http.Request) {
	institutionID := r.URL.Query().Get("institution_id")
	if institutionID == "" {
		writeError(w, http.StatusBadRequest, "institution_id is required", nil)
		return
	}

	officers, err := h.Store.ListOfficers(r.Context(), institutionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list officers", err)
		return
	}

	dtos := make([]OfficerDTO, len(officers))
	for i, o := range officers {
		dtos[i] = OfficerDTO{
			ID:             o.ID,
			InstitutionID:  o.InstitutionID,
			Name:           o.Name,
			HourlyRate:     o.HourlyRate.String(),
			RateMultiplier: o.RateMultiplier.String(),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateOfficer creates or updates an officer.
// POST /api/officers
func (h *Handler) CreateOfficer(w http.ResponseWriter, r *http.Request) {
	var req CreateOfficerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.InstitutionID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id, institution_id and name are required", nil)
		return
	}

	hourlyRate := decimal.Zero
	if req.HourlyRate != "" {
		var err error
		hourlyRate, err = decimal.NewFromString(req.HourlyRate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid hourly_rate", err)
			return
		}
	}
	multiplier := overtime.DefaultRateMultiplier
	if req.RateMultiplier != "" {
		var err error
		multiplier, err = decimal.NewFromString(req.RateMultiplier)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid rate_multiplier", err)
			return
		}
	}

	officer := attendance.Officer{
		ID:             req.ID,
		InstitutionID:  req.InstitutionID,
		Name:           req.Name,
		HourlyRate:     hourlyRate,
		RateMultiplier: multiplier,
	}
	if err := h.Store.SaveOfficer(r.Context(), officer); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save officer", err)
		return
	}

	writeJSON(w, http.StatusCreated, OfficerDTO{
		ID:             officer.ID,
		InstitutionID:  officer.InstitutionID,
		Name:           officer.Name,
		HourlyRate:     officer.HourlyRate.String(),
		RateMultiplier: officer.RateMultiplier.String(),
	})
}

// =============================================================================
// ERROR MAPPING & HELPERS
// =============================================================================

func writeAttendanceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, attendance.ErrInstitutionNotFound):
		writeError(w, http.StatusNotFound, "Institution not found", err)
	case errors.Is(err, attendance.ErrNoGeofence):
		writeError(w, http.StatusBadRequest, "Institution has no geofence configured", err)
	case errors.Is(err, attendance.ErrBadCoordinate):
		writeError(w, http.StatusBadRequest, "Invalid GPS coordinates", err)
	case errors.Is(err, attendance.ErrClockSkew):
		writeError(w, http.StatusBadRequest, "Check-out time precedes check-in time", err)
	case errors.Is(err, attendance.ErrNoCheckIn):
		writeError(w, http.StatusConflict, "No open check-in for today", err)
	case errors.Is(err, attendance.ErrAlreadyCheckedOut):
		writeError(w, http.StatusConflict, "Already checked out today", err)
	default:
		writeError(w, http.StatusInternalServerError, "Attendance operation failed", err)
	}
}

func writeLeaveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, leave.ErrApplicationNotFound):
		writeError(w, http.StatusNotFound, "Leave application not found", err)
	case errors.Is(err, leave.ErrNotPending):
		writeError(w, http.StatusConflict, "Leave application is not pending", err)
	case errors.Is(err, leave.ErrConcurrentModification):
		writeError(w, http.StatusConflict, "Balance was modified concurrently, retry", err)
	default:
		writeError(w, http.StatusInternalServerError, "Leave operation failed", err)
	}
}

// parseYearMonth parses "YYYY-MM"; empty defaults to the current month.
func parseYearMonth(s string) (int, time.Month, error) {
	if s == "" {
		now := time.Now().UTC()
		return now.Year(), now.Month(), nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, err
	}
	return t.Year(), t.Month(), nil
}

// parseYearMonthParams parses separate year and month query parameters;
// both empty defaults to the current month.
func parseYearMonthParams(yearStr, monthStr string) (int, time.Month, error) {
	if yearStr == "" && monthStr == "" {
		now := time.Now().UTC()
		return now.Year(), now.Month(), nil
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return 0, 0, err
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil {
		return 0, 0, err
	}
	if month < 1 || month > 12 {
		return 0, 0, errors.New("month out of range")
	}
	return year, time.Month(month), nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
