/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

CONVENTIONS:
  - Dates as "YYYY-MM-DD" strings
  - Timestamps as RFC3339 strings
  - Decimal quantities as strings to avoid float round-trip drift
  - Nullable validation outcomes as pointers (null = GPS was skipped)

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/leave"
	"github.com/warp/attendance-engine/overtime"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error shape.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// INSTITUTIONS & OFFICERS
// =============================================================================

// InstitutionDTO is an institution with its geofence configuration.
type InstitutionDTO struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Lat                *float64 `json:"lat"`
	Lng                *float64 `json:"lng"`
	RadiusMeters       float64  `json:"radius_meters"`
	ExpectedCheckIn    string   `json:"expected_check_in,omitempty"`
	ExpectedCheckOut   string   `json:"expected_check_out,omitempty"`
	NormalWorkingHours string   `json:"normal_working_hours"`
}

// CreateInstitutionRequest creates or updates an institution.
type CreateInstitutionRequest struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Lat                *float64 `json:"lat"`
	Lng                *float64 `json:"lng"`
	RadiusMeters       float64  `json:"radius_meters"`
	ExpectedCheckIn    string   `json:"expected_check_in"`
	ExpectedCheckOut   string   `json:"expected_check_out"`
	NormalWorkingHours string   `json:"normal_working_hours"`
}

// OfficerDTO is an officer with pay rates.
type OfficerDTO struct {
	ID             string `json:"id"`
	InstitutionID  string `json:"institution_id"`
	Name           string `json:"name"`
	HourlyRate     string `json:"hourly_rate"`
	RateMultiplier string `json:"rate_multiplier"`
}

// CreateOfficerRequest creates or updates an officer.
type CreateOfficerRequest struct {
	ID             string `json:"id"`
	InstitutionID  string `json:"institution_id"`
	Name           string `json:"name"`
	HourlyRate     string `json:"hourly_rate"`
	RateMultiplier string `json:"rate_multiplier"`
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// CheckRequest is the body for check-in and check-out.
type CheckRequest struct {
	InstitutionID string  `json:"institution_id"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
	SkipGPS       bool    `json:"skip_gps"`
}

// EffectFailureDTO reports a best-effort step that did not complete.
type EffectFailureDTO struct {
	Step  string `json:"step"`
	Error string `json:"error"`
}

// CheckInResponse is the check-in outcome.
type CheckInResponse struct {
	Record         AttendanceRecordDTO `json:"record"`
	Validated      *bool               `json:"validated"`
	DistanceMeters float64             `json:"distance_meters"`
	Degraded       []EffectFailureDTO  `json:"degraded,omitempty"`
}

// CheckOutResponse is the check-out outcome, derived overtime included.
type CheckOutResponse struct {
	Record          AttendanceRecordDTO `json:"record"`
	Validated       *bool               `json:"validated"`
	DistanceMeters  float64             `json:"distance_meters"`
	HoursWorked     string              `json:"hours_worked"`
	OvertimeHours   string              `json:"overtime_hours"`
	OvertimeRequest *OvertimeRequestDTO `json:"overtime_request,omitempty"`
	Degraded        []EffectFailureDTO  `json:"degraded,omitempty"`
}

// AttendanceRecordDTO is a full attendance record.
type AttendanceRecordDTO struct {
	ID                string  `json:"id"`
	OfficerID         string  `json:"officer_id"`
	InstitutionID     string  `json:"institution_id"`
	Date              string  `json:"date"`
	Status            string  `json:"status"`
	CheckInAt         string  `json:"check_in_at"`
	CheckInValidated  *bool   `json:"check_in_validated"`
	CheckInDistance   float64 `json:"check_in_distance"`
	CheckInAddress    *string `json:"check_in_address,omitempty"`
	CheckOutAt        *string `json:"check_out_at,omitempty"`
	CheckOutValidated *bool   `json:"check_out_validated"`
	CheckOutDistance  float64 `json:"check_out_distance"`
	CheckOutAddress   *string `json:"check_out_address,omitempty"`
	TotalHours        string  `json:"total_hours"`
	OvertimeHours     string  `json:"overtime_hours"`
}

func toAttendanceRecordDTO(rec attendance.Record) AttendanceRecordDTO {
	dto := AttendanceRecordDTO{
		ID:                rec.ID,
		OfficerID:         rec.OfficerID,
		InstitutionID:     rec.InstitutionID,
		Date:              rec.Date.String(),
		Status:            string(rec.Status),
		CheckInAt:         rec.CheckInAt.Format(time.RFC3339),
		CheckInValidated:  rec.CheckInValidated,
		CheckInDistance:   rec.CheckInDistance,
		CheckInAddress:    rec.CheckInAddress,
		CheckOutValidated: rec.CheckOutValidated,
		CheckOutDistance:  rec.CheckOutDistance,
		CheckOutAddress:   rec.CheckOutAddress,
		TotalHours:        rec.TotalHours.String(),
		OvertimeHours:     rec.OvertimeHours.String(),
	}
	if rec.CheckOutAt != nil {
		v := rec.CheckOutAt.Format(time.RFC3339)
		dto.CheckOutAt = &v
	}
	return dto
}

func toEffectFailureDTOs(failures []attendance.EffectFailure) []EffectFailureDTO {
	if len(failures) == 0 {
		return nil
	}
	dtos := make([]EffectFailureDTO, len(failures))
	for i, f := range failures {
		dtos[i] = EffectFailureDTO{Step: f.Step, Error: f.Err}
	}
	return dtos
}

// =============================================================================
// OVERTIME
// =============================================================================

// OvertimeRequestDTO is an overtime request with its calculated pay.
type OvertimeRequestDTO struct {
	ID                 string `json:"id"`
	OfficerID          string `json:"officer_id"`
	InstitutionID      string `json:"institution_id"`
	Date               string `json:"date"`
	Hours              string `json:"hours"`
	Status             string `json:"status"`
	RateMultiplier     string `json:"rate_multiplier"`
	HourlyRate         string `json:"hourly_rate"`
	CalculatedPay      string `json:"calculated_pay"`
	Source             string `json:"source"`
	AttendanceRecordID string `json:"attendance_record_id,omitempty"`
	ApproverID         string `json:"approver_id,omitempty"`
}

func toOvertimeRequestDTO(r overtime.Request) OvertimeRequestDTO {
	return OvertimeRequestDTO{
		ID:                 r.ID,
		OfficerID:          r.OfficerID,
		InstitutionID:      r.InstitutionID,
		Date:               r.Date.String(),
		Hours:              r.Hours.String(),
		Status:             string(r.Status),
		RateMultiplier:     r.RateMultiplier.String(),
		HourlyRate:         r.HourlyRate.String(),
		CalculatedPay:      r.CalculatedPay.String(),
		Source:             string(r.Source),
		AttendanceRecordID: r.AttendanceRecordID,
		ApproverID:         r.ApproverID,
	}
}

// DecisionRequest carries the approver for overtime decisions.
type DecisionRequest struct {
	ApproverID string `json:"approver_id"`
}

// =============================================================================
// LEAVE
// =============================================================================

// SubmitLeaveRequest is the body for a new leave application.
type SubmitLeaveRequest struct {
	ApplicantID   string `json:"applicant_id"`
	InstitutionID string `json:"institution_id"`
	Type          string `json:"type"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	Reason        string `json:"reason"`
}

// ApproveLeaveRequest carries the approver and an optional LOP override.
// When Mode is empty the default bank-first split applies.
type ApproveLeaveRequest struct {
	ApproverID string `json:"approver_id"`
	Mode       string `json:"lop_mode,omitempty"`
	PaidDays   string `json:"paid_days,omitempty"`
}

// RejectLeaveRequest carries the approver and an optional note.
type RejectLeaveRequest struct {
	ApproverID string `json:"approver_id"`
	Note       string `json:"note,omitempty"`
}

// LeaveApplicationDTO is a full leave application.
type LeaveApplicationDTO struct {
	ID            string `json:"id"`
	ApplicantID   string `json:"applicant_id"`
	InstitutionID string `json:"institution_id"`
	Type          string `json:"type"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	TotalDays     string `json:"total_days"`
	Status        string `json:"status"`
	PaidDays      string `json:"paid_days"`
	LOPDays       string `json:"lop_days"`
	Reason        string `json:"reason,omitempty"`
	ApproverID    string `json:"approver_id,omitempty"`
	DecisionNote  string `json:"decision_note,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toLeaveApplicationDTO(app leave.Application) LeaveApplicationDTO {
	return LeaveApplicationDTO{
		ID:            app.ID,
		ApplicantID:   app.ApplicantID,
		InstitutionID: app.InstitutionID,
		Type:          string(app.Type),
		StartDate:     app.StartDate.String(),
		EndDate:       app.EndDate.String(),
		TotalDays:     app.TotalDays.String(),
		Status:        string(app.Status),
		PaidDays:      app.PaidDays.String(),
		LOPDays:       app.LOPDays.String(),
		Reason:        app.Reason,
		ApproverID:    app.ApproverID,
		DecisionNote:  app.DecisionNote,
		CreatedAt:     app.CreatedAt.Format(time.RFC3339),
	}
}

// MonthlyBalanceDTO is a month's leave ledger row with derived fields.
type MonthlyBalanceDTO struct {
	ApplicantID    string `json:"applicant_id"`
	Year           int    `json:"year"`
	Month          int    `json:"month"`
	MonthlyCredit  string `json:"monthly_credit"`
	CarriedForward string `json:"carried_forward"`
	SickUsed       string `json:"sick_used"`
	CasualUsed     string `json:"casual_used"`
	LOPDays        string `json:"lop_days"`
	Remaining      string `json:"remaining"`
	Version        int    `json:"version"`
}

func toMonthlyBalanceDTO(b leave.MonthlyBalance) MonthlyBalanceDTO {
	return MonthlyBalanceDTO{
		ApplicantID:    b.ApplicantID,
		Year:           b.Year,
		Month:          int(b.Month),
		MonthlyCredit:  b.MonthlyCredit.String(),
		CarriedForward: b.CarriedForward.String(),
		SickUsed:       b.SickUsed.String(),
		CasualUsed:     b.CasualUsed.String(),
		LOPDays:        b.LOPDays.String(),
		Remaining:      b.Remaining().String(),
		Version:        b.Version,
	}
}

// =============================================================================
// HOLIDAYS & WORKING DAYS
// =============================================================================

// HolidayDTO is a gazetted holiday.
type HolidayDTO struct {
	ID            string `json:"id"`
	InstitutionID string `json:"institution_id,omitempty"`
	Date          string `json:"date"`
	Name          string `json:"name"`
}

func toHolidayDTO(h calendar.Holiday) HolidayDTO {
	return HolidayDTO{
		ID:            h.ID,
		InstitutionID: h.InstitutionID,
		Date:          h.Date.String(),
		Name:          h.Name,
	}
}

// CreateHolidayRequest creates a holiday. Empty institution_id makes it
// global.
type CreateHolidayRequest struct {
	InstitutionID string `json:"institution_id"`
	Date          string `json:"date"`
	Name          string `json:"name"`
}

// WorkingDaysResponse is the working-day count for a date range.
type WorkingDaysResponse struct {
	Start             string `json:"start"`
	End               string `json:"end"`
	TotalCalendarDays int    `json:"total_calendar_days"`
	HolidaysInRange   int    `json:"holidays_in_range"`
	WorkingDays       int    `json:"working_days"`
}

// RolloverResponse reports a manual rollover run.
type RolloverResponse struct {
	Year    int `json:"year"`
	Month   int `json:"month"`
	Created int `json:"created"`
}
