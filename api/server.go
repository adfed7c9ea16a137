/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the mobile/web clients

ROUTE GROUPS:
  /api/officers/*           Attendance + officer directory + leave balance
  /api/leave-applications/* Leave workflow
  /api/overtime/*           Overtime approval queue
  /api/holidays/*           Gazetted holiday management
  /api/institutions/*       Institution directory
  /api/admin/*              Admin operations (rollover)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Officer routes: directory, attendance, leave balance
		r.Route("/officers", func(r chi.Router) {
			r.Get("/", h.ListOfficers)
			r.Post("/", h.CreateOfficer)
			r.Post("/{id}/check-in", h.CheckIn)
			r.Post("/{id}/check-out", h.CheckOut)
			r.Get("/{id}/attendance/today", h.TodayAttendance)
			r.Get("/{id}/attendance", h.MonthlyAttendance)
			r.Get("/{id}/leave-balance", h.GetLeaveBalance)
			r.Get("/{id}/leave-applications", h.ListLeaveApplications)
		})

		// Leave workflow routes
		r.Route("/leave-applications", func(r chi.Router) {
			r.Post("/", h.SubmitLeaveApplication)
			r.Get("/pending", h.ListPendingLeaveApplications)
			r.Post("/{id}/approve", h.ApproveLeaveApplication)
			r.Post("/{id}/reject", h.RejectLeaveApplication)
			r.Post("/{id}/cancel", h.CancelLeaveApplication)
		})

		// Overtime approval routes
		r.Route("/overtime", func(r chi.Router) {
			r.Get("/pending", h.ListPendingOvertime)
			r.Post("/{id}/approve", h.ApproveOvertime)
			r.Post("/{id}/reject", h.RejectOvertime)
		})

		// Holiday routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Delete("/{id}", h.DeleteHoliday)
		})

		r.Get("/working-days", h.WorkingDays)

		// Institution routes
		r.Route("/institutions", func(r chi.Router) {
			r.Get("/", h.ListInstitutions)
			r.Post("/", h.CreateInstitution)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/rollover", h.TriggerRollover)
		})
	})

	return r
}
