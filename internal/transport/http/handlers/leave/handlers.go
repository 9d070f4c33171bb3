package leavehandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"workforce/internal/domain/audit"
	"workforce/internal/domain/auth"
	"workforce/internal/domain/balance"
	"workforce/internal/domain/directory"
	"workforce/internal/domain/holiday"
	"workforce/internal/domain/leave"
	"workforce/internal/domain/notify"
	"workforce/internal/domain/policy"
	"workforce/internal/platform/jobs"
	"workforce/internal/transport/http/api"
	"workforce/internal/transport/http/middleware"
	"workforce/internal/transport/http/shared"
)

type Handler struct {
	Requests   *leave.Service
	Policies   *policy.Service
	Holidays   *holiday.Service
	Balances   *balance.Service
	Directory  *directory.Service
	Audit      *audit.Service
	Notify     *notify.Service
	Jobs       *jobs.Service
	Perms      middleware.PermissionStore
	Idem       *middleware.IdempotencyStore
	ChainDepth int
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermCatalogRead, h.Perms)).Get("/policies", h.handleListPolicies)
		r.With(middleware.RequirePermission(auth.PermCatalogWrite, h.Perms)).Post("/policies", h.handleCreatePolicy)
		r.With(middleware.RequirePermission(auth.PermCatalogWrite, h.Perms)).Put("/policies/{policyID}", h.handleUpdatePolicy)
		r.With(middleware.RequirePermission(auth.PermCatalogWrite, h.Perms)).Delete("/policies/{policyID}", h.handleDeactivatePolicy)

		r.With(middleware.RequirePermission(auth.PermCatalogRead, h.Perms)).Get("/holidays", h.handleListHolidays)
		r.With(middleware.RequirePermission(auth.PermCatalogWrite, h.Perms)).Post("/holidays", h.handleCreateHoliday)
		r.With(middleware.RequirePermission(auth.PermCatalogWrite, h.Perms)).Delete("/holidays/{holidayID}", h.handleDeleteHoliday)

		r.With(middleware.RequirePermission(auth.PermBalanceRead, h.Perms)).Get("/balances", h.handleListBalances)
		r.With(middleware.RequirePermission(auth.PermBalanceAdjust, h.Perms)).Post("/balances/adjust", h.handleAdjustBalance)
		r.With(middleware.RequirePermission(auth.PermBalanceAdjust, h.Perms)).Post("/balances/allocate", h.handleAllocateBalance)
		r.With(middleware.RequirePermission(auth.PermBalanceAdjust, h.Perms)).Post("/balances/rollover", h.handleRollover)

		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests", h.handleListRequests)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/requests", h.handleSubmitRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests/{requestID}", h.handleGetRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/requests/{requestID}/cancel", h.handleCancelRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/approve", h.handleApproveRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/reject", h.handleRejectRequest)
	})
}

func (h *Handler) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	activeOnly := r.URL.Query().Get("all") == ""
	policies, err := h.Policies.List(r.Context(), user.TenantID, activeOnly)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "policies_failed", "failed to list leave policies", reqID)
		return
	}
	api.Success(w, policies, reqID)
}

type policyPayload struct {
	Name                  string   `json:"name" validate:"required"`
	LeaveType             string   `json:"leaveType" validate:"required,oneof=annual sick personal maternity unpaid"`
	AnnualAllowanceDays   string   `json:"annualAllowanceDays" validate:"required"`
	MaxCarryForwardDays   string   `json:"maxCarryForwardDays"`
	MaxConsecutiveDays    int      `json:"maxConsecutiveDays" validate:"min=0"`
	MinAdvanceNoticeDays  int      `json:"minAdvanceNoticeDays" validate:"min=0"`
	RequiresDocumentation bool     `json:"requiresDocumentation"`
	Paid                  bool     `json:"paid"`
	AllowNegative         bool     `json:"allowNegative"`
	Departments           []string `json:"departments"`
	Positions             []string `json:"positions"`
	MinTenureMonths       int      `json:"minTenureMonths" validate:"min=0"`
	EffectiveFrom         string   `json:"effectiveFrom" validate:"required"`
	EffectiveTo           string   `json:"effectiveTo"`
}

func (p policyPayload) toModel(reqID string, w http.ResponseWriter) (policy.LeavePolicy, bool) {
	allowance, err := decimal.NewFromString(p.AnnualAllowanceDays)
	if err != nil || allowance.IsNegative() {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "annualAllowanceDays", Reason: "must be a non-negative number"}})
		return policy.LeavePolicy{}, false
	}
	carry := decimal.Zero
	if p.MaxCarryForwardDays != "" {
		carry, err = decimal.NewFromString(p.MaxCarryForwardDays)
		if err != nil || carry.IsNegative() {
			shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "maxCarryForwardDays", Reason: "must be a non-negative number"}})
			return policy.LeavePolicy{}, false
		}
	}
	from, err := shared.ParseDate(p.EffectiveFrom)
	if err != nil || from.IsZero() {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "effectiveFrom", Reason: "must be a valid date in YYYY-MM-DD format"}})
		return policy.LeavePolicy{}, false
	}
	var to *time.Time
	if p.EffectiveTo != "" {
		parsed, err := shared.ParseDate(p.EffectiveTo)
		if err != nil || parsed.Before(from) {
			shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "effectiveTo", Reason: "must be a valid date on or after effectiveFrom"}})
			return policy.LeavePolicy{}, false
		}
		to = &parsed
	}
	return policy.LeavePolicy{
		Name:                  p.Name,
		LeaveType:             policy.LeaveType(p.LeaveType),
		AnnualAllowanceDays:   allowance,
		MaxCarryForwardDays:   carry,
		MaxConsecutiveDays:    p.MaxConsecutiveDays,
		MinAdvanceNoticeDays:  p.MinAdvanceNoticeDays,
		RequiresDocumentation: p.RequiresDocumentation,
		Paid:                  p.Paid,
		AllowNegative:         p.AllowNegative,
		Departments:           p.Departments,
		Positions:             p.Positions,
		MinTenureMonths:       p.MinTenureMonths,
		Active:                true,
		EffectiveFrom:         from,
		EffectiveTo:           to,
	}, true
}

func (h *Handler) handleCreatePolicy(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	var payload policyPayload
	if !shared.DecodeValid(w, r, &payload, reqID) {
		return
	}
	model, ok := payload.toModel(reqID, w)
	if !ok {
		return
	}
	id, err := h.Policies.Create(r.Context(), user.TenantID, model)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "policy_create_failed", "failed to create leave policy", reqID)
		return
	}
	h.record(r, user, "leave.policy.create", "leave_policy", id, nil, model)
	api.Created(w, map[string]string{"id": id}, reqID)
}

func (h *Handler) handleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	policyID := chi.URLParam(r, "policyID")

	before, err := h.Policies.Get(r.Context(), user.TenantID, policyID)
	if errors.Is(err, policy.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "leave policy not found", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "policy_update_failed", "failed to update leave policy", reqID)
		return
	}

	var payload policyPayload
	if !shared.DecodeValid(w, r, &payload, reqID) {
		return
	}
	model, ok := payload.toModel(reqID, w)
	if !ok {
		return
	}
	if err := h.Policies.Update(r.Context(), user.TenantID, policyID, model); err != nil {
		api.Fail(w, http.StatusInternalServerError, "policy_update_failed", "failed to update leave policy", reqID)
		return
	}
	h.record(r, user, "leave.policy.update", "leave_policy", policyID, before, model)
	api.Success(w, map[string]string{"id": policyID}, reqID)
}

func (h *Handler) handleDeactivatePolicy(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	policyID := chi.URLParam(r, "policyID")
	err := h.Policies.Deactivate(r.Context(), user.TenantID, policyID)
	if errors.Is(err, policy.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "leave policy not found", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "policy_deactivate_failed", "failed to deactivate leave policy", reqID)
		return
	}
	h.record(r, user, "leave.policy.deactivate", "leave_policy", policyID, nil, nil)
	api.Success(w, map[string]string{"id": policyID}, reqID)
}

func (h *Handler) handleListHolidays(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	holidays, err := h.Holidays.List(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "holidays_failed", "failed to list holidays", reqID)
		return
	}
	api.Success(w, holidays, reqID)
}

type holidayPayload struct {
	Name         string `json:"name" validate:"required"`
	Date         string `json:"date" validate:"required"`
	Recurrence   string `json:"recurrence"`
	DepartmentID string `json:"departmentId"`
}

func (h *Handler) handleCreateHoliday(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	var payload holidayPayload
	if !shared.DecodeValid(w, r, &payload, reqID) {
		return
	}
	date, err := shared.ParseDate(payload.Date)
	if err != nil || date.IsZero() {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "date", Reason: "must be a valid date in YYYY-MM-DD format"}})
		return
	}
	model := holiday.Holiday{
		Name:         payload.Name,
		Date:         date,
		Recurrence:   payload.Recurrence,
		DepartmentID: payload.DepartmentID,
	}
	id, err := h.Holidays.Create(r.Context(), user.TenantID, model)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "holiday_create_failed", "failed to create holiday", reqID)
		return
	}
	h.record(r, user, "leave.holiday.create", "holiday", id, nil, model)
	api.Created(w, map[string]string{"id": id}, reqID)
}

func (h *Handler) handleDeleteHoliday(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	holidayID := chi.URLParam(r, "holidayID")
	if err := h.Holidays.Delete(r.Context(), user.TenantID, holidayID); err != nil {
		if errors.Is(err, holiday.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "holiday not found", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "holiday_delete_failed", "failed to delete holiday", reqID)
		return
	}
	h.record(r, user, "leave.holiday.delete", "holiday", holidayID, nil, nil)
	api.Success(w, map[string]string{"id": holidayID}, reqID)
}

func (h *Handler) handleListBalances(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	employeeID, ok := h.resolveEmployee(w, r, user, reqID)
	if !ok {
		return
	}
	year := time.Now().UTC().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "year", Reason: "must be a number"}})
			return
		}
		year = parsed
	}

	balances, err := h.Balances.ListForEmployee(r.Context(), user.TenantID, employeeID, year)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "balances_failed", "failed to list balances", reqID)
		return
	}
	api.Success(w, balances, reqID)
}

type adjustPayload struct {
	EmployeeID string `json:"employeeId" validate:"required"`
	PolicyID   string `json:"policyId" validate:"required"`
	Year       int    `json:"year" validate:"required,min=2000,max=2200"`
	Delta      string `json:"delta" validate:"required"`
	Reason     string `json:"reason" validate:"required"`
}

func (h *Handler) handleAdjustBalance(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	var payload adjustPayload
	if !shared.DecodeValid(w, r, &payload, reqID) {
		return
	}
	delta, err := decimal.NewFromString(payload.Delta)
	if err != nil || delta.IsZero() {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "delta", Reason: "must be a non-zero number"}})
		return
	}

	updated, err := h.Balances.Adjust(r.Context(), user.TenantID, payload.EmployeeID, payload.PolicyID, payload.Year, delta, payload.Reason, user.UserID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "adjust_failed", "failed to adjust balance", reqID)
		return
	}
	h.record(r, user, "leave.balance.adjust", "leave_balance", updated.ID, nil, map[string]any{
		"delta": delta, "reason": payload.Reason,
	})
	api.Success(w, updated, reqID)
}

type allocatePayload struct {
	EmployeeID string `json:"employeeId" validate:"required"`
	PolicyID   string `json:"policyId" validate:"required"`
	Year       int    `json:"year" validate:"required,min=2000,max=2200"`
}

func (h *Handler) handleAllocateBalance(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	var payload allocatePayload
	if !shared.DecodeValid(w, r, &payload, reqID) {
		return
	}
	b, err := h.Balances.Allocate(r.Context(), user.TenantID, payload.EmployeeID, payload.PolicyID, payload.Year)
	if errors.Is(err, policy.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "leave policy not found", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "allocate_failed", "failed to allocate balance", reqID)
		return
	}
	h.record(r, user, "leave.balance.allocate", "leave_balance", b.ID, nil, b)
	api.Created(w, b, reqID)
}

type rolloverPayload struct {
	PolicyID   string `json:"policyId" validate:"required"`
	EmployeeID string `json:"employeeId"`
	FromYear   int    `json:"fromYear" validate:"required,min=2000,max=2200"`
}

// handleRollover carries year-end balances forward. With no employeeId it
// runs tenant-wide as a recorded job.
func (h *Handler) handleRollover(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	var payload rolloverPayload
	if !shared.DecodeValid(w, r, &payload, reqID) {
		return
	}
	toYear := payload.FromYear + 1

	if payload.EmployeeID != "" {
		b, err := h.Balances.Rollover(r.Context(), user.TenantID, payload.EmployeeID, payload.PolicyID, payload.FromYear, toYear)
		if errors.Is(err, balance.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "no balance for source year", reqID)
			return
		}
		if err != nil {
			api.Fail(w, http.StatusInternalServerError, "rollover_failed", "failed to roll balance over", reqID)
			return
		}
		h.record(r, user, "leave.balance.rollover", "leave_balance", b.ID, nil, b)
		api.Success(w, b, reqID)
		return
	}

	result, err := h.Jobs.RunNow(r.Context(), jobs.JobBalanceRollover, user.TenantID, func(ctx context.Context) (any, error) {
		employees, err := h.Directory.List(ctx, user.TenantID)
		if err != nil {
			return nil, err
		}
		rolled, skipped := 0, 0
		for _, emp := range employees {
			_, err := h.Balances.Rollover(ctx, user.TenantID, emp.ID, payload.PolicyID, payload.FromYear, toYear)
			if errors.Is(err, balance.ErrNotFound) {
				skipped++
				continue
			}
			if err != nil {
				return nil, err
			}
			rolled++
		}
		return map[string]int{"rolled": rolled, "skipped": skipped}, nil
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "rollover_failed", "tenant rollover failed", reqID)
		return
	}
	h.record(r, user, "leave.balance.rollover", "leave_policy", payload.PolicyID, nil, result)
	api.Success(w, result, reqID)
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	employeeID, ok := h.resolveEmployee(w, r, user, reqID)
	if !ok {
		return
	}
	page := shared.ParsePagination(r, 50, 200)
	requests, err := h.Requests.ListForEmployee(r.Context(), user.TenantID, employeeID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "requests_failed", "failed to list leave requests", reqID)
		return
	}
	api.Success(w, requests, reqID)
}

type submitPayload struct {
	PolicyID        string `json:"policyId" validate:"required"`
	StartDate       string `json:"startDate" validate:"required"`
	EndDate         string `json:"endDate" validate:"required"`
	Reason          string `json:"reason" validate:"required"`
	CoverEmployeeID string `json:"coverEmployeeId"`
}

func (h *Handler) handleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	if user.EmployeeID == "" {
		api.Fail(w, http.StatusForbidden, "no_employee", "user has no employee record", reqID)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	idemKey := r.Header.Get("Idempotency-Key")
	bodyHash := middleware.RequestHash(body)
	if idemKey != "" {
		stored, hit, err := h.Idem.Check(r.Context(), user.TenantID, user.UserID, "leave.requests.create", idemKey, bodyHash)
		if errors.Is(err, middleware.ErrIdempotencyConflict) {
			api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key was used with a different payload", reqID)
			return
		}
		if err != nil {
			api.Fail(w, http.StatusInternalServerError, "submit_failed", "failed to submit leave request", reqID)
			return
		}
		if hit {
			api.Created(w, stored, reqID)
			return
		}
	}

	var payload submitPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	if issues := shared.CheckStruct(payload); len(issues) > 0 {
		shared.FailValidation(w, reqID, issues)
		return
	}
	start, err := shared.ParseDate(payload.StartDate)
	if err != nil || start.IsZero() {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "startDate", Reason: "must be a valid date in YYYY-MM-DD format"}})
		return
	}
	end, err := shared.ParseDate(payload.EndDate)
	if err != nil || end.IsZero() {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "endDate", Reason: "must be a valid date in YYYY-MM-DD format"}})
		return
	}

	chain, err := h.Directory.ApproverChain(r.Context(), user.TenantID, user.EmployeeID, h.ChainDepth)
	if err != nil {
		h.failLeave(w, err, reqID)
		return
	}

	req, err := h.Requests.Submit(r.Context(), user.TenantID, leave.SubmitInput{
		EmployeeID:      user.EmployeeID,
		PolicyID:        payload.PolicyID,
		StartDate:       start,
		EndDate:         end,
		Reason:          payload.Reason,
		CoverEmployeeID: payload.CoverEmployeeID,
		ApproverIDs:     chain,
	})
	if err != nil {
		h.failLeave(w, err, reqID)
		return
	}

	if idemKey != "" {
		if response, marshalErr := json.Marshal(req); marshalErr == nil {
			if err := h.Idem.Save(r.Context(), user.TenantID, user.UserID, "leave.requests.create", idemKey, bodyHash, response); err != nil {
				slog.Warn("idempotency save failed", "requestId", req.ID, "err", err)
			}
		}
	}

	h.record(r, user, "leave.request.submit", "leave_request", req.ID, nil, req)
	h.notifyNextApprover(r.Context(), user.TenantID, req, chain)
	api.Created(w, req, reqID)
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	requestID := chi.URLParam(r, "requestID")

	req, approvals, err := h.Requests.Get(r.Context(), user.TenantID, requestID)
	if errors.Is(err, leave.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "leave request not found", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "request_failed", "failed to load leave request", reqID)
		return
	}
	if !h.canSeeRequest(r.Context(), user, req, approvals) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to view this request", reqID)
		return
	}
	api.Success(w, map[string]any{"request": req, "approvals": approvals}, reqID)
}

func (h *Handler) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	requestID := chi.URLParam(r, "requestID")

	req, err := h.Requests.Cancel(r.Context(), user.TenantID, requestID, user.EmployeeID)
	if err != nil {
		h.failLeave(w, err, reqID)
		return
	}
	h.record(r, user, "leave.request.cancel", "leave_request", req.ID, nil, req)
	api.Success(w, req, reqID)
}

type decisionPayload struct {
	Comments string `json:"comments"`
}

func (h *Handler) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, leave.DecisionApprove)
}

func (h *Handler) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, leave.DecisionReject)
}

func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request, decision leave.Decision) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	requestID := chi.URLParam(r, "requestID")

	var payload decisionPayload
	if r.ContentLength > 0 {
		if !shared.DecodeValid(w, r, &payload, reqID) {
			return
		}
	}
	if decision == leave.DecisionReject && payload.Comments == "" {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "comments", Reason: "is required when rejecting"}})
		return
	}

	req, err := h.Requests.ProcessStep(r.Context(), user.TenantID, requestID, user.EmployeeID, decision, payload.Comments)
	if err != nil {
		h.failLeave(w, err, reqID)
		return
	}

	action := "leave.request.approve"
	if decision == leave.DecisionReject {
		action = "leave.request.reject"
	}
	h.record(r, user, action, "leave_request", req.ID, nil, req)

	if req.Status.Terminal() {
		if emp, err := h.Directory.Get(r.Context(), user.TenantID, req.EmployeeID); err == nil {
			h.Notify.LeaveDecision(r.Context(), emp.Email, emp.FullName(), req)
		}
	}
	api.Success(w, req, reqID)
}

// resolveEmployee picks the target employee: self by default, someone else
// only for callers holding the approve permission.
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

func (h *Handler) canSeeRequest(ctx context.Context, user auth.UserContext, req leave.Request, approvals []leave.Approval) bool {
	if req.EmployeeID == user.EmployeeID {
		return true
	}
	for _, step := range approvals {
		if step.ApproverID == user.EmployeeID {
			return true
		}
	}
	allowed, err := h.Perms.HasPermission(ctx, user.Role, auth.PermLeaveApprove)
	return err == nil && allowed
}

func (h *Handler) notifyNextApprover(ctx context.Context, tenantID string, req leave.Request, chain []string) {
	if len(chain) == 0 {
		return
	}
	approver, err := h.Directory.Get(ctx, tenantID, chain[0])
	if err != nil {
		return
	}
	requester, err := h.Directory.Get(ctx, tenantID, req.EmployeeID)
	if err != nil {
		return
	}
	h.Notify.LeaveSubmitted(ctx, approver.Email, requester.FullName(), req)
}

func (h *Handler) record(r *http.Request, user auth.UserContext, action, entityType, entityID string, before, after any) {
	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, action, entityType, entityID,
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}

// failLeave maps domain errors onto HTTP statuses with enough context for a
// user-facing message.
func (h *Handler) failLeave(w http.ResponseWriter, err error, reqID string) {
	var insufficient *balance.InsufficientBalanceError
	var notApplicable *policy.NotApplicableError

	switch {
	case errors.Is(err, leave.ErrNotFound), errors.Is(err, policy.ErrNotFound), errors.Is(err, balance.ErrNotFound), errors.Is(err, directory.ErrEmployeeGone):
		api.Fail(w, http.StatusNotFound, "not_found", "resource not found", reqID)
	case errors.As(err, &insufficient):
		api.FailWithDetails(w, http.StatusUnprocessableEntity, "insufficient_balance", "not enough leave balance", map[string]any{
			"available": insufficient.Available,
			"requested": insufficient.Requested,
			"year":      insufficient.Year,
		}, reqID)
	case errors.As(err, &notApplicable):
		api.FailWithDetails(w, http.StatusUnprocessableEntity, "policy_not_applicable", "leave policy does not apply", map[string]any{
			"rule": notApplicable.Rule,
		}, reqID)
	case errors.Is(err, leave.ErrAdvanceNotice):
		api.Fail(w, http.StatusUnprocessableEntity, "advance_notice", err.Error(), reqID)
	case errors.Is(err, leave.ErrConsecutiveLimit):
		api.Fail(w, http.StatusUnprocessableEntity, "consecutive_limit", err.Error(), reqID)
	case errors.Is(err, leave.ErrOverlappingRequest):
		api.Fail(w, http.StatusConflict, "overlapping_request", "an open request already covers part of this range", reqID)
	case errors.Is(err, leave.ErrRequestNotPending):
		api.Fail(w, http.StatusConflict, "request_not_pending", "request is no longer pending", reqID)
	case errors.Is(err, leave.ErrNotCurrentApprover):
		api.Fail(w, http.StatusConflict, "not_current_approver", "another approver's turn is pending", reqID)
	case errors.Is(err, leave.ErrNotRequester):
		api.Fail(w, http.StatusForbidden, "forbidden", "only the requester may cancel", reqID)
	case errors.Is(err, leave.ErrInvalidRange), errors.Is(err, leave.ErrNoWorkingDays):
		api.Fail(w, http.StatusBadRequest, "invalid_range", err.Error(), reqID)
	case errors.Is(err, leave.ErrNoApprovers), errors.Is(err, directory.ErrNoManager):
		api.Fail(w, http.StatusUnprocessableEntity, "no_approvers", "no approver chain could be derived", reqID)
	case errors.Is(err, directory.ErrManagerCycle), errors.Is(err, directory.ErrChainTooDeep):
		api.Fail(w, http.StatusUnprocessableEntity, "bad_chain", err.Error(), reqID)
	default:
		api.Fail(w, http.StatusInternalServerError, "leave_failed", "leave operation failed", reqID)
	}
}
