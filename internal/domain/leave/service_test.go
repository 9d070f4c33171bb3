package leave

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"workforce/internal/domain/balance"
	"workforce/internal/domain/directory"
	"workforce/internal/domain/policy"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fakeTx struct {
	pgx.Tx
}

func (fakeTx) Commit(context.Context) error   { return nil }
func (fakeTx) Rollback(context.Context) error { return nil }

type fakeStore struct {
	requests  map[string]Request
	approvals map[string][]Approval
	nextID    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		requests:  make(map[string]Request),
		approvals: make(map[string][]Approval),
	}
}

func (s *fakeStore) Begin(context.Context) (pgx.Tx, error) { return fakeTx{}, nil }

func (s *fakeStore) InsertRequestTx(_ context.Context, _ pgx.Tx, _ string, req Request) (string, error) {
	s.nextID++
	req.ID = fmt.Sprintf("req-%d", s.nextID)
	req.CreatedAt = time.Now()
	s.requests[req.ID] = req
	return req.ID, nil
}

func (s *fakeStore) InsertApprovalTx(_ context.Context, _ pgx.Tx, _ string, ap Approval) error {
	s.nextID++
	ap.ID = fmt.Sprintf("ap-%d", s.nextID)
	s.approvals[ap.RequestID] = append(s.approvals[ap.RequestID], ap)
	return nil
}

func (s *fakeStore) GetRequest(_ context.Context, _ string, requestID string) (Request, error) {
	req, ok := s.requests[requestID]
	if !ok {
		return Request{}, ErrNotFound
	}
	return req, nil
}

func (s *fakeStore) GetRequestForUpdateTx(ctx context.Context, _ pgx.Tx, tenantID, requestID string) (Request, error) {
	return s.GetRequest(ctx, tenantID, requestID)
}

func (s *fakeStore) UpdateRequestStatusTx(_ context.Context, _ pgx.Tx, _ string, requestID string, status Status, approverID, comments string) error {
	req, ok := s.requests[requestID]
	if !ok {
		return ErrNotFound
	}
	req.Status = status
	req.ApprovedBy = approverID
	req.ManagerComments = comments
	s.requests[requestID] = req
	return nil
}

func (s *fakeStore) ApprovalsForUpdateTx(ctx context.Context, _ pgx.Tx, tenantID, requestID string) ([]Approval, error) {
	return s.Approvals(ctx, tenantID, requestID)
}

func (s *fakeStore) UpdateApprovalTx(_ context.Context, _ pgx.Tx, _ string, approvalID string, status Status, comments string) error {
	for reqID, steps := range s.approvals {
		for i := range steps {
			if steps[i].ID == approvalID {
				steps[i].Status = status
				steps[i].Comments = comments
				now := time.Now()
				steps[i].ProcessedAt = &now
				s.approvals[reqID] = steps
				return nil
			}
		}
	}
	return ErrNotFound
}

func (s *fakeStore) Approvals(_ context.Context, _ string, requestID string) ([]Approval, error) {
	steps := make([]Approval, len(s.approvals[requestID]))
	copy(steps, s.approvals[requestID])
	sort.Slice(steps, func(i, j int) bool { return steps[i].StepOrder < steps[j].StepOrder })
	return steps, nil
}

func (s *fakeStore) HasOverlappingRequest(_ context.Context, _ string, employeeID string, start, end time.Time) (bool, error) {
	for _, req := range s.requests {
		if req.EmployeeID != employeeID {
			continue
		}
		if req.Status != StatusPending && req.Status != StatusApproved {
			continue
		}
		if Overlaps(req.StartDate, req.EndDate, start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) ListForEmployee(_ context.Context, _ string, employeeID string, _, _ int) ([]Request, error) {
	var out []Request
	for _, req := range s.requests {
		if req.EmployeeID == employeeID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (s *fakeStore) ApprovedInRange(_ context.Context, _ string, employeeID string, from, to time.Time) ([]Request, error) {
	var out []Request
	for _, req := range s.requests {
		if req.EmployeeID == employeeID && req.Status == StatusApproved && Overlaps(req.StartDate, req.EndDate, from, to) {
			out = append(out, req)
		}
	}
	return out, nil
}

// fakeLedger mimics the reserve-on-approve contract of the balance service.
type fakeLedger struct {
	remaining map[string]decimal.Decimal
}

func ledgerKey(employeeID, policyID string, year int) string {
	return fmt.Sprintf("%s|%s|%d", employeeID, policyID, year)
}

func (l *fakeLedger) Remaining(_ context.Context, _, employeeID, policyID string, year int) (decimal.Decimal, error) {
	r, ok := l.remaining[ledgerKey(employeeID, policyID, year)]
	if !ok {
		return decimal.Zero, balance.ErrNotFound
	}
	return r, nil
}

func (l *fakeLedger) ReserveTx(_ context.Context, _ pgx.Tx, _, employeeID, policyID string, year int, days decimal.Decimal) error {
	key := ledgerKey(employeeID, policyID, year)
	r, ok := l.remaining[key]
	if !ok {
		return balance.ErrNotFound
	}
	if r.LessThan(days) {
		return balance.Insufficient(employeeID, policyID, year, r, days)
	}
	l.remaining[key] = r.Sub(days)
	return nil
}

type fakeCatalog map[string]policy.LeavePolicy

func (c fakeCatalog) Get(_ context.Context, _, policyID string) (policy.LeavePolicy, error) {
	p, ok := c[policyID]
	if !ok {
		return policy.LeavePolicy{}, policy.ErrNotFound
	}
	return p, nil
}

type fakeDirectory map[string]directory.Employee

func (d fakeDirectory) Get(_ context.Context, _, employeeID string) (directory.Employee, error) {
	emp, ok := d[employeeID]
	if !ok {
		return directory.Employee{}, directory.ErrEmployeeGone
	}
	return emp, nil
}

type fakeHolidays map[string]bool

func (h fakeHolidays) DatesInRange(context.Context, string, string, time.Time, time.Time) (map[string]bool, error) {
	return h, nil
}

const tenant = "t1"

func newTestService(ledger *fakeLedger) (*Service, *fakeStore) {
	store := newFakeStore()
	catalog := fakeCatalog{
		"pol-annual": {
			ID:                   "pol-annual",
			LeaveType:            policy.TypeAnnual,
			AnnualAllowanceDays:  dec("12"),
			MaxConsecutiveDays:   14,
			MinAdvanceNoticeDays: 3,
			Active:               true,
			EffectiveFrom:        date(2020, 1, 1),
		},
		"pol-sick": {
			ID:                   "pol-sick",
			LeaveType:            policy.TypeSick,
			AnnualAllowanceDays:  dec("10"),
			MinAdvanceNoticeDays: 7,
			Active:               true,
			EffectiveFrom:        date(2020, 1, 1),
		},
	}
	dir := fakeDirectory{
		"emp-1": {ID: "emp-1", DepartmentID: "dept-eng", HireDate: date(2022, 1, 10), Status: "active"},
	}
	svc := NewService(store, ledger, catalog, dir, fakeHolidays{})
	svc.now = func() time.Time { return time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC) }
	return svc, store
}

func annualLedger(remaining string) *fakeLedger {
	return &fakeLedger{remaining: map[string]decimal.Decimal{
		ledgerKey("emp-1", "pol-annual", 2025): dec(remaining),
	}}
}

func submitInput(start, end time.Time) SubmitInput {
	return SubmitInput{
		EmployeeID:  "emp-1",
		PolicyID:    "pol-annual",
		StartDate:   start,
		EndDate:     end,
		Reason:      "vacation",
		ApproverIDs: []string{"mgr", "hr"},
	}
}

func TestSubmitCreatesPendingRequestWithChain(t *testing.T) {
	svc, store := newTestService(annualLedger("12"))

	req, err := svc.Submit(context.Background(), tenant, submitInput(date(2025, 6, 2), date(2025, 6, 6)))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if req.Status != StatusPending {
		t.Fatalf("status = %s, want pending", req.Status)
	}
	if !req.Days.Equal(dec("5")) {
		t.Fatalf("days = %s, want 5", req.Days)
	}

	steps, err := store.Approvals(context.Background(), tenant, req.ID)
	if err != nil {
		t.Fatalf("Approvals: %v", err)
	}
	if len(steps) != 2 || steps[0].ApproverID != "mgr" || steps[1].ApproverID != "hr" {
		t.Fatalf("unexpected chain: %+v", steps)
	}
	if steps[0].StepOrder != 1 || steps[1].StepOrder != 2 {
		t.Fatalf("step orders wrong: %+v", steps)
	}
}

func TestTwoStepApprovalReservesBalance(t *testing.T) {
	ledger := annualLedger("12")
	svc, _ := newTestService(ledger)
	ctx := context.Background()

	req, err := svc.Submit(ctx, tenant, submitInput(date(2025, 6, 2), date(2025, 6, 6)))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	mid, err := svc.ProcessStep(ctx, tenant, req.ID, "mgr", DecisionApprove, "ok")
	if err != nil {
		t.Fatalf("manager step: %v", err)
	}
	if mid.Status != StatusPending {
		t.Fatalf("after first step status = %s, want pending", mid.Status)
	}
	// No reservation until the chain completes.
	if r, _ := ledger.Remaining(ctx, tenant, "emp-1", "pol-annual", 2025); !r.Equal(dec("12")) {
		t.Fatalf("remaining after first step = %s, want 12", r)
	}

	final, err := svc.ProcessStep(ctx, tenant, req.ID, "hr", DecisionApprove, "enjoy")
	if err != nil {
		t.Fatalf("hr step: %v", err)
	}
	if final.Status != StatusApproved {
		t.Fatalf("final status = %s, want approved", final.Status)
	}
	if r, _ := ledger.Remaining(ctx, tenant, "emp-1", "pol-annual", 2025); !r.Equal(dec("7")) {
		t.Fatalf("remaining after approval = %s, want 7", r)
	}
}

func TestFinalApprovalAutoRejectsWhenBalanceDrained(t *testing.T) {
	ledger := annualLedger("12")
	svc, _ := newTestService(ledger)
	ctx := context.Background()

	// Both requests pass the submit-time check against the same 12 days.
	first, err := svc.Submit(ctx, tenant, submitInput(date(2025, 6, 2), date(2025, 6, 6)))
	if err != nil {
		t.Fatalf("submit first: %v", err)
	}
	second, err := svc.Submit(ctx, tenant, submitInput(date(2025, 7, 7), date(2025, 7, 18)))
	if err != nil {
		t.Fatalf("submit second: %v", err)
	}
	if !second.Days.Equal(dec("10")) {
		t.Fatalf("second request days = %s, want 10", second.Days)
	}

	for _, approver := range []string{"mgr", "hr"} {
		if _, err := svc.ProcessStep(ctx, tenant, first.ID, approver, DecisionApprove, ""); err != nil {
			t.Fatalf("approve first by %s: %v", approver, err)
		}
	}

	if _, err := svc.ProcessStep(ctx, tenant, second.ID, "mgr", DecisionApprove, ""); err != nil {
		t.Fatalf("approve second by mgr: %v", err)
	}
	got, err := svc.ProcessStep(ctx, tenant, second.ID, "hr", DecisionApprove, "")
	if err != nil {
		t.Fatalf("final step on second: %v", err)
	}
	if got.Status != StatusRejected {
		t.Fatalf("second request status = %s, want rejected", got.Status)
	}
	if !strings.Contains(got.ManagerComments, "auto-rejected") {
		t.Fatalf("comment %q does not record the auto rejection", got.ManagerComments)
	}
	// The drained request must not have consumed anything.
	if r, _ := ledger.Remaining(ctx, tenant, "emp-1", "pol-annual", 2025); !r.Equal(dec("7")) {
		t.Fatalf("remaining = %s, want 7", r)
	}
}

func TestRejectShortCircuitsChain(t *testing.T) {
	svc, store := newTestService(annualLedger("12"))
	ctx := context.Background()

	req, err := svc.Submit(ctx, tenant, submitInput(date(2025, 6, 2), date(2025, 6, 6)))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	got, err := svc.ProcessStep(ctx, tenant, req.ID, "mgr", DecisionReject, "coverage gap")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != StatusRejected || got.ManagerComments != "coverage gap" {
		t.Fatalf("got %+v, want rejected with comment", got)
	}

	// The second approver never gets a turn.
	if _, err := svc.ProcessStep(ctx, tenant, req.ID, "hr", DecisionApprove, ""); !errors.Is(err, ErrRequestNotPending) {
		t.Fatalf("hr after reject: got %v, want ErrRequestNotPending", err)
	}

	steps, _ := store.Approvals(ctx, tenant, req.ID)
	if steps[1].Status != StatusPending {
		t.Fatalf("step 2 status = %s, want untouched pending", steps[1].Status)
	}
}

func TestProcessStepOutOfOrder(t *testing.T) {
	svc, _ := newTestService(annualLedger("12"))
	ctx := context.Background()

	req, err := svc.Submit(ctx, tenant, submitInput(date(2025, 6, 2), date(2025, 6, 6)))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := svc.ProcessStep(ctx, tenant, req.ID, "hr", DecisionApprove, ""); !errors.Is(err, ErrNotCurrentApprover) {
		t.Fatalf("got %v, want ErrNotCurrentApprover", err)
	}
}

func TestCancelLeavesLedgerUntouched(t *testing.T) {
	ledger := annualLedger("12")
	svc, _ := newTestService(ledger)
	ctx := context.Background()

	req, err := svc.Submit(ctx, tenant, submitInput(date(2025, 6, 2), date(2025, 6, 6)))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, err := svc.Cancel(ctx, tenant, req.ID, "emp-2"); !errors.Is(err, ErrNotRequester) {
		t.Fatalf("cancel by stranger: got %v, want ErrNotRequester", err)
	}

	got, err := svc.Cancel(ctx, tenant, req.ID, "emp-1")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got.Status != StatusCancelled {
		t.Fatalf("status = %s, want cancelled", got.Status)
	}
	if r, _ := ledger.Remaining(ctx, tenant, "emp-1", "pol-annual", 2025); !r.Equal(dec("12")) {
		t.Fatalf("remaining = %s, want unchanged 12", r)
	}

	// Cancelled is terminal.
	if _, err := svc.Cancel(ctx, tenant, req.ID, "emp-1"); !errors.Is(err, ErrRequestNotPending) {
		t.Fatalf("second cancel: got %v, want ErrRequestNotPending", err)
	}
}

func TestSubmitInsufficientBalance(t *testing.T) {
	svc, _ := newTestService(annualLedger("3"))

	_, err := svc.Submit(context.Background(), tenant, submitInput(date(2025, 6, 2), date(2025, 6, 6)))
	if !errors.Is(err, balance.ErrInsufficientBalance) {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}
	var detail *balance.InsufficientBalanceError
	if !errors.As(err, &detail) {
		t.Fatalf("error %v carries no detail", err)
	}
	if !detail.Requested.Equal(dec("5")) || !detail.Available.Equal(dec("3")) {
		t.Fatalf("detail = %+v, want requested 5 available 3", detail)
	}
}

func TestSubmitAdvanceNotice(t *testing.T) {
	ledger := &fakeLedger{remaining: map[string]decimal.Decimal{
		ledgerKey("emp-1", "pol-annual", 2025): dec("12"),
		ledgerKey("emp-1", "pol-sick", 2025):   dec("10"),
	}}
	svc, _ := newTestService(ledger)
	ctx := context.Background()

	// now() is 2025-05-01; two days of notice against a 3-day minimum.
	in := submitInput(date(2025, 5, 5), date(2025, 5, 5))
	in.StartDate = date(2025, 5, 2)
	in.EndDate = date(2025, 5, 2)
	if _, err := svc.Submit(ctx, tenant, in); !errors.Is(err, ErrAdvanceNotice) {
		t.Fatalf("annual short notice: got %v, want ErrAdvanceNotice", err)
	}

	// Sick leave skips the notice rule even with a 7-day minimum configured.
	in.PolicyID = "pol-sick"
	if _, err := svc.Submit(ctx, tenant, in); err != nil {
		t.Fatalf("sick short notice: %v", err)
	}
}

func TestSubmitConsecutiveLimitUsesCalendarSpan(t *testing.T) {
	svc, _ := newTestService(annualLedger("12"))

	// 2025-06-02 .. 2025-06-17 is a 16-day calendar span (12 working days),
	// over the policy's 14-day consecutive cap.
	_, err := svc.Submit(context.Background(), tenant, submitInput(date(2025, 6, 2), date(2025, 6, 17)))
	if !errors.Is(err, ErrConsecutiveLimit) {
		t.Fatalf("got %v, want ErrConsecutiveLimit", err)
	}
}

func TestSubmitOverlapRejected(t *testing.T) {
	svc, _ := newTestService(annualLedger("12"))
	ctx := context.Background()

	if _, err := svc.Submit(ctx, tenant, submitInput(date(2025, 6, 2), date(2025, 6, 6))); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := svc.Submit(ctx, tenant, submitInput(date(2025, 6, 5), date(2025, 6, 10)))
	if !errors.Is(err, ErrOverlappingRequest) {
		t.Fatalf("got %v, want ErrOverlappingRequest", err)
	}
}

func TestSubmitNoWorkingDays(t *testing.T) {
	svc, _ := newTestService(annualLedger("12"))

	_, err := svc.Submit(context.Background(), tenant, submitInput(date(2025, 6, 7), date(2025, 6, 8)))
	if !errors.Is(err, ErrNoWorkingDays) {
		t.Fatalf("got %v, want ErrNoWorkingDays", err)
	}
}

func TestSubmitPolicyNotApplicable(t *testing.T) {
	svc, _ := newTestService(annualLedger("12"))
	in := submitInput(date(2025, 6, 2), date(2025, 6, 6))
	in.PolicyID = "pol-missing"
	if _, err := svc.Submit(context.Background(), tenant, in); !errors.Is(err, policy.ErrNotFound) {
		t.Fatalf("got %v, want policy.ErrNotFound", err)
	}
}
