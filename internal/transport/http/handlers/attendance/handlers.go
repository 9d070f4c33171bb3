package attendancehandler

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"workforce/internal/domain/attendance"
	"workforce/internal/domain/audit"
	"workforce/internal/domain/auth"
	"workforce/internal/domain/directory"
	"workforce/internal/domain/shift"
	"workforce/internal/platform/crypto"
	"workforce/internal/transport/http/api"
	"workforce/internal/transport/http/middleware"
	"workforce/internal/transport/http/shared"
)

type Handler struct {
	Attendance *attendance.Service
	Directory  *directory.Service
	Audit      *audit.Service
	Encryption *crypto.Service
	Perms      middleware.PermissionStore
	ExportDir  string
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/attendance", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAttendanceWrite, h.Perms)).Post("/check-in", h.handleCheckIn)
		r.With(middleware.RequirePermission(auth.PermAttendanceWrite, h.Perms)).Post("/check-out", h.handleCheckOut)
		r.With(middleware.RequirePermission(auth.PermAttendanceWrite, h.Perms)).Post("/breaks", h.handleBreak)
		r.With(middleware.RequirePermission(auth.PermAttendanceRead, h.Perms)).Get("/status", h.handleStatus)
		r.With(middleware.RequirePermission(auth.PermAttendanceRead, h.Perms)).Get("/days", h.handleDays)
		r.With(middleware.RequirePermission(auth.PermAttendanceRead, h.Perms)).Get("/days/{dayID}/events", h.handleEvents)
		r.With(middleware.RequirePermission(auth.PermAttendanceRead, h.Perms)).Get("/summaries/{year}/{month}", h.handleSummary)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/summaries/{year}/{month}", h.handleSummarize)
		r.With(middleware.RequirePermission(auth.PermAttendanceRead, h.Perms)).Get("/summaries/{year}/{month}/export", h.handleExport)
	})
}

type punchPayload struct {
	Location string `json:"location"`
}

func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := h.requireEmployee(w, r, reqID)
	if !ok {
		return
	}
	var payload punchPayload
	if r.ContentLength > 0 {
		if !shared.DecodeValid(w, r, &payload, reqID) {
			return
		}
	}
	day, err := h.Attendance.CheckIn(r.Context(), user.TenantID, user.EmployeeID, time.Now().UTC(), payload.Location)
	if err != nil {
		h.failAttendance(w, err, reqID)
		return
	}
	h.record(r, user, "attendance.check_in", day.ID)
	api.Created(w, day, reqID)
}

func (h *Handler) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := h.requireEmployee(w, r, reqID)
	if !ok {
		return
	}
	var payload punchPayload
	if r.ContentLength > 0 {
		if !shared.DecodeValid(w, r, &payload, reqID) {
			return
		}
	}
	day, err := h.Attendance.CheckOut(r.Context(), user.TenantID, user.EmployeeID, time.Now().UTC(), payload.Location)
	if err != nil {
		h.failAttendance(w, err, reqID)
		return
	}
	h.record(r, user, "attendance.check_out", day.ID)
	api.Success(w, day, reqID)
}

type breakPayload struct {
	Action string `json:"action" validate:"required,oneof=start end"`
}

func (h *Handler) handleBreak(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := h.requireEmployee(w, r, reqID)
	if !ok {
		return
	}
	var payload breakPayload
	if !shared.DecodeValid(w, r, &payload, reqID) {
		return
	}
	day, err := h.Attendance.RecordBreak(r.Context(), user.TenantID, user.EmployeeID, attendance.BreakAction(payload.Action), time.Now().UTC())
	if err != nil {
		h.failAttendance(w, err, reqID)
		return
	}
	api.Success(w, day, reqID)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	employeeID, ok := h.resolveEmployee(w, r, user, reqID)
	if !ok {
		return
	}
	date := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := shared.ParseDate(raw)
		if err != nil || parsed.IsZero() {
			shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "date", Reason: "must be a valid date in YYYY-MM-DD format"}})
			return
		}
		date = parsed
	}
	day, err := h.Attendance.Status(r.Context(), user.TenantID, employeeID, date)
	if err != nil {
		h.failAttendance(w, err, reqID)
		return
	}
	api.Success(w, day, reqID)
}

func (h *Handler) handleDays(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	employeeID, ok := h.resolveEmployee(w, r, user, reqID)
	if !ok {
		return
	}
	from, to, ok := h.parseRange(w, r, reqID)
	if !ok {
		return
	}
	days, err := h.Attendance.Days(r.Context(), user.TenantID, employeeID, from, to)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "days_failed", "failed to list attendance days", reqID)
		return
	}
	api.Success(w, days, reqID)
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	dayID := chi.URLParam(r, "dayID")
	events, err := h.Attendance.Events(r.Context(), user.TenantID, dayID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "events_failed", "failed to list attendance events", reqID)
		return
	}
	api.Success(w, events, reqID)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	employeeID, ok := h.resolveEmployee(w, r, user, reqID)
	if !ok {
		return
	}
	year, month, ok := h.parseYearMonth(w, r, reqID)
	if !ok {
		return
	}
	sum, err := h.Attendance.Summary(r.Context(), user.TenantID, employeeID, year, month)
	if errors.Is(err, attendance.ErrSummaryNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "no summary for that month; trigger a summarize first", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "summary_failed", "failed to load summary", reqID)
		return
	}
	api.Success(w, sum, reqID)
}

func (h *Handler) handleSummarize(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	employeeID, ok := h.resolveEmployee(w, r, user, reqID)
	if !ok {
		return
	}
	year, month, ok := h.parseYearMonth(w, r, reqID)
	if !ok {
		return
	}
	sum, err := h.Attendance.Summarize(r.Context(), user.TenantID, employeeID, year, time.Month(month))
	if err != nil {
		h.failAttendance(w, err, reqID)
		return
	}
	h.record(r, user, "attendance.summarize", fmt.Sprintf("%s:%04d-%02d", employeeID, year, month))
	api.Success(w, sum, reqID)
}

// handleExport streams a monthly summary as CSV or PDF. The PDF copy is also
// stored server-side, encrypted when a data key is configured.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	employeeID, ok := h.resolveEmployee(w, r, user, reqID)
	if !ok {
		return
	}
	year, month, ok := h.parseYearMonth(w, r, reqID)
	if !ok {
		return
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)
	days, err := h.Attendance.Days(r.Context(), user.TenantID, employeeID, from, to)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "export_failed", "failed to export attendance", reqID)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" || format == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="attendance-%04d-%02d.csv"`, year, month))
		if err := attendance.WriteMonthlyCSV(w, days); err != nil {
			slog.Error("attendance csv export failed", "employeeId", employeeID, "err", err)
		}
		return
	}
	if format != "pdf" {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "format", Reason: "must be csv or pdf"}})
		return
	}

	sum, err := h.Attendance.Summary(r.Context(), user.TenantID, employeeID, year, month)
	if errors.Is(err, attendance.ErrSummaryNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "no summary for that month; trigger a summarize first", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "export_failed", "failed to export attendance", reqID)
		return
	}
	emp, err := h.Directory.Get(r.Context(), user.TenantID, employeeID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "export_failed", "failed to export attendance", reqID)
		return
	}

	var buf bytes.Buffer
	if err := attendance.WriteMonthlyPDF(&buf, emp.FullName(), sum, days); err != nil {
		api.Fail(w, http.StatusInternalServerError, "export_failed", "failed to render PDF", reqID)
		return
	}
	h.storePDF(user.TenantID, employeeID, year, month, buf.Bytes())

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="attendance-%04d-%02d.pdf"`, year, month))
	_, _ = w.Write(buf.Bytes())
}

// storePDF keeps a server-side copy for later audits. Failures are logged,
// never surfaced; the download already has the bytes.
func (h *Handler) storePDF(tenantID, employeeID string, year, month int, pdf []byte) {
	if h.ExportDir == "" {
		return
	}
	dir := filepath.Join(h.ExportDir, tenantID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		slog.Warn("attendance export dir unavailable", "dir", dir, "err", err)
		return
	}
	data := pdf
	ext := ".pdf"
	if h.Encryption != nil && h.Encryption.Configured() {
		encrypted, err := h.Encryption.Encrypt(pdf)
		if err != nil {
			slog.Warn("attendance export encryption failed", "err", err)
			return
		}
		data, ext = encrypted, ".pdf.enc"
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%04d-%02d%s", employeeID, year, month, ext))
	if err := os.WriteFile(path, data, 0o640); err != nil {
		slog.Warn("attendance export write failed", "path", path, "err", err)
	}
}

func (h *Handler) requireEmployee(w http.ResponseWriter, r *http.Request, reqID string) (auth.UserContext, bool) {
	user, _ := middleware.GetUser(r.Context())
	if user.EmployeeID == "" {
		api.Fail(w, http.StatusForbidden, "no_employee", "user has no employee record", reqID)
		return auth.UserContext{}, false
	}
	return user, true
}

func (h *Handler) resolveEmployee(w http.ResponseWriter, r *http.Request, user auth.UserContext, reqID string) (string, bool) {
	target := r.URL.Query().Get("employeeId")
	if target == "" || target == user.EmployeeID {
		if user.EmployeeID == "" {
			api.Fail(w, http.StatusForbidden, "no_employee", "user has no employee record", reqID)
			return "", false
		}
		return user.EmployeeID, true
	}
	allowed, err := h.Perms.HasPermission(r.Context(), user.Role, auth.PermLeaveApprove)
	if err != nil || !allowed {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to view other employees", reqID)
		return "", false
	}
	return target, true
}

func (h *Handler) parseRange(w http.ResponseWriter, r *http.Request, reqID string) (time.Time, time.Time, bool) {
	from, err := shared.ParseDate(r.URL.Query().Get("from"))
	if err != nil || from.IsZero() {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "from", Reason: "must be a valid date in YYYY-MM-DD format"}})
		return time.Time{}, time.Time{}, false
	}
	to, err := shared.ParseDate(r.URL.Query().Get("to"))
	if err != nil || to.IsZero() || to.Before(from) {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "to", Reason: "must be a valid date on or after from"}})
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func (h *Handler) parseYearMonth(w http.ResponseWriter, r *http.Request, reqID string) (int, int, bool) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 2000 || year > 2200 {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "year", Reason: "must be a four-digit year"}})
		return 0, 0, false
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 1 || month > 12 {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "month", Reason: "must be between 1 and 12"}})
		return 0, 0, false
	}
	return year, month, true
}

func (h *Handler) record(r *http.Request, user auth.UserContext, action, entityID string) {
	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, action, "attendance_day", entityID,
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, nil); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}

func (h *Handler) failAttendance(w http.ResponseWriter, err error, reqID string) {
	switch {
	case errors.Is(err, attendance.ErrDayNotFound), errors.Is(err, directory.ErrEmployeeGone):
		api.Fail(w, http.StatusNotFound, "not_found", "resource not found", reqID)
	case errors.Is(err, attendance.ErrDuplicateCheckIn):
		api.Fail(w, http.StatusConflict, "already_checked_in", "already checked in for this day", reqID)
	case errors.Is(err, attendance.ErrDuplicateCheckOut):
		api.Fail(w, http.StatusConflict, "already_checked_out", "already checked out for this day", reqID)
	case errors.Is(err, attendance.ErrNoCheckIn):
		api.Fail(w, http.StatusConflict, "no_check_in", "no check-in recorded for this day", reqID)
	case errors.Is(err, attendance.ErrBreakAlreadyOpen):
		api.Fail(w, http.StatusConflict, "break_open", "a break is already open", reqID)
	case errors.Is(err, attendance.ErrNoOpenBreak):
		api.Fail(w, http.StatusConflict, "no_open_break", "no break is open", reqID)
	case errors.Is(err, shift.ErrNoShift):
		api.Fail(w, http.StatusUnprocessableEntity, "no_shift", "no work shift assigned for that date", reqID)
	default:
		api.Fail(w, http.StatusInternalServerError, "attendance_failed", "attendance operation failed", reqID)
	}
}
