package directoryhandler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"workforce/internal/domain/audit"
	"workforce/internal/domain/auth"
	"workforce/internal/domain/directory"
	"workforce/internal/domain/shift"
	"workforce/internal/transport/http/api"
	"workforce/internal/transport/http/middleware"
	"workforce/internal/transport/http/shared"
)

type Handler struct {
	Directory *directory.Service
	Shifts    *shift.Service
	Audit     *audit.Service
	Perms     middleware.PermissionStore
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/directory", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermDirectoryRead, h.Perms)).Get("/employees", h.handleListEmployees)
		r.With(middleware.RequirePermission(auth.PermDirectoryWrite, h.Perms)).Post("/employees", h.handleCreateEmployee)
		r.With(middleware.RequirePermission(auth.PermDirectoryRead, h.Perms)).Get("/employees/{employeeID}", h.handleGetEmployee)
		r.With(middleware.RequirePermission(auth.PermDirectoryRead, h.Perms)).Get("/employees/{employeeID}/chain", h.handleApproverChain)
		r.With(middleware.RequirePermission(auth.PermDirectoryRead, h.Perms)).Get("/departments", h.handleListDepartments)

		r.With(middleware.RequirePermission(auth.PermDirectoryRead, h.Perms)).Get("/shifts", h.handleListShifts)
		r.With(middleware.RequirePermission(auth.PermDirectoryWrite, h.Perms)).Post("/shifts", h.handleCreateShift)
		r.With(middleware.RequirePermission(auth.PermDirectoryWrite, h.Perms)).Post("/shifts/assignments", h.handleAssignShift)
	})
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	employees, err := h.Directory.List(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employees_failed", "failed to list employees", reqID)
		return
	}
	api.Success(w, employees, reqID)
}

type employeePayload struct {
	UserID       string `json:"userId"`
	FirstName    string `json:"firstName" validate:"required"`
	LastName     string `json:"lastName" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	DepartmentID string `json:"departmentId"`
	Position     string `json:"position"`
	ManagerID    string `json:"managerId"`
	HireDate     string `json:"hireDate" validate:"required"`
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	var payload employeePayload
	if !shared.DecodeValid(w, r, &payload, reqID) {
		return
	}
	hireDate, err := shared.ParseDate(payload.HireDate)
	if err != nil || hireDate.IsZero() {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "hireDate", Reason: "must be a valid date in YYYY-MM-DD format"}})
		return
	}
	if payload.ManagerID != "" {
		if _, err := h.Directory.Get(r.Context(), user.TenantID, payload.ManagerID); err != nil {
			shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "managerId", Reason: "must reference an existing employee"}})
			return
		}
	}
	emp := directory.Employee{
		UserID:       payload.UserID,
		FirstName:    payload.FirstName,
		LastName:     payload.LastName,
		Email:        payload.Email,
		DepartmentID: payload.DepartmentID,
		Position:     payload.Position,
		ManagerID:    payload.ManagerID,
		HireDate:     hireDate,
		Status:       "active",
	}
	id, err := h.Directory.Create(r.Context(), user.TenantID, emp)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_create_failed", "failed to create employee", reqID)
		return
	}
	h.record(r, user, "directory.employee.create", "employee", id, emp)
	api.Created(w, map[string]string{"id": id}, reqID)
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	employeeID := chi.URLParam(r, "employeeID")
	emp, err := h.Directory.Get(r.Context(), user.TenantID, employeeID)
	if errors.Is(err, directory.ErrEmployeeGone) {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_failed", "failed to load employee", reqID)
		return
	}
	api.Success(w, emp, reqID)
}

// handleApproverChain exposes the manager chain used to route leave
// approvals, useful for debugging mis-assigned managers.
func (h *Handler) handleApproverChain(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	employeeID := chi.URLParam(r, "employeeID")
	chain, err := h.Directory.ApproverChain(r.Context(), user.TenantID, employeeID, 10)
	switch {
	case errors.Is(err, directory.ErrEmployeeGone):
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", reqID)
		return
	case errors.Is(err, directory.ErrNoManager):
		api.Success(w, []string{}, reqID)
		return
	case errors.Is(err, directory.ErrManagerCycle), errors.Is(err, directory.ErrChainTooDeep):
		api.Fail(w, http.StatusUnprocessableEntity, "bad_chain", err.Error(), reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "chain_failed", "failed to derive approver chain", reqID)
		return
	}
	api.Success(w, chain, reqID)
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	departments, err := h.Directory.ListDepartments(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "departments_failed", "failed to list departments", reqID)
		return
	}
	api.Success(w, departments, reqID)
}

func (h *Handler) handleListShifts(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	shifts, err := h.Shifts.List(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "shifts_failed", "failed to list work shifts", reqID)
		return
	}
	api.Success(w, shifts, reqID)
}

type shiftPayload struct {
	Name               string `json:"name" validate:"required"`
	Start              string `json:"start" validate:"required"`
	End                string `json:"end" validate:"required"`
	BreakStart         string `json:"breakStart"`
	BreakEnd           string `json:"breakEnd"`
	FlexibleMinutes    int    `json:"flexibleMinutes" validate:"min=0"`
	GraceMinutes       int    `json:"graceMinutes" validate:"min=0"`
	MaxOvertimeMinutes int    `json:"maxOvertimeMinutes" validate:"min=0"`
	WorkingWeekdays    []int  `json:"workingWeekdays" validate:"required,min=1,dive,min=0,max=6"`
}

func (h *Handler) handleCreateShift(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	var payload shiftPayload
	if !shared.DecodeValid(w, r, &payload, reqID) {
		return
	}

	sh := shift.Shift{
		Name:               payload.Name,
		FlexibleMinutes:    payload.FlexibleMinutes,
		GraceMinutes:       payload.GraceMinutes,
		MaxOvertimeMinutes: payload.MaxOvertimeMinutes,
	}
	var err error
	if sh.StartMinute, err = shift.ParseClock(payload.Start); err != nil {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "start", Reason: "must be HH:MM"}})
		return
	}
	if sh.EndMinute, err = shift.ParseClock(payload.End); err != nil || sh.EndMinute <= sh.StartMinute {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "end", Reason: "must be HH:MM after start"}})
		return
	}
	if payload.BreakStart != "" {
		if sh.BreakStartMinute, err = shift.ParseClock(payload.BreakStart); err != nil {
			shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "breakStart", Reason: "must be HH:MM"}})
			return
		}
	}
	if payload.BreakEnd != "" {
		if sh.BreakEndMinute, err = shift.ParseClock(payload.BreakEnd); err != nil || sh.BreakEndMinute < sh.BreakStartMinute {
			shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "breakEnd", Reason: "must be HH:MM after breakStart"}})
			return
		}
	}
	for _, wd := range payload.WorkingWeekdays {
		sh.WorkingWeekdays = append(sh.WorkingWeekdays, time.Weekday(wd))
	}

	id, err := h.Shifts.Create(r.Context(), user.TenantID, sh)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "shift_create_failed", "failed to create work shift", reqID)
		return
	}
	h.record(r, user, "directory.shift.create", "work_shift", id, sh)
	api.Created(w, map[string]string{"id": id}, reqID)
}

type assignmentPayload struct {
	EmployeeID string `json:"employeeId" validate:"required"`
	ShiftID    string `json:"shiftId" validate:"required"`
	From       string `json:"from" validate:"required"`
	To         string `json:"to"`
}

func (h *Handler) handleAssignShift(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	var payload assignmentPayload
	if !shared.DecodeValid(w, r, &payload, reqID) {
		return
	}
	from, err := shared.ParseDate(payload.From)
	if err != nil || from.IsZero() {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "from", Reason: "must be a valid date in YYYY-MM-DD format"}})
		return
	}
	assignment := shift.Assignment{
		EmployeeID: payload.EmployeeID,
		ShiftID:    payload.ShiftID,
		From:       from,
	}
	if payload.To != "" {
		to, err := shared.ParseDate(payload.To)
		if err != nil || to.Before(from) {
			shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "to", Reason: "must be a valid date on or after from"}})
			return
		}
		assignment.To = &to
	}
	if _, err := h.Shifts.Get(r.Context(), user.TenantID, payload.ShiftID); errors.Is(err, shift.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "work shift not found", reqID)
		return
	} else if err != nil {
		api.Fail(w, http.StatusInternalServerError, "assign_failed", "failed to assign shift", reqID)
		return
	}
	if _, err := h.Directory.Get(r.Context(), user.TenantID, payload.EmployeeID); errors.Is(err, directory.ErrEmployeeGone) {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", reqID)
		return
	} else if err != nil {
		api.Fail(w, http.StatusInternalServerError, "assign_failed", "failed to assign shift", reqID)
		return
	}

	id, err := h.Shifts.Assign(r.Context(), user.TenantID, assignment)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "assign_failed", "failed to assign shift", reqID)
		return
	}
	h.record(r, user, "directory.shift.assign", "shift_assignment", id, assignment)
	api.Created(w, map[string]string{"id": id}, reqID)
}

func (h *Handler) record(r *http.Request, user auth.UserContext, action, entityType, entityID string, after any) {
	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, action, entityType, entityID,
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, after); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}
