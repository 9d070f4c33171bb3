package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"workforce/internal/domain/balance"
	"workforce/internal/domain/directory"
	"workforce/internal/domain/policy"
)

// BalanceLedger is the slice of the balance service the engine depends on.
// ReserveTx runs inside the approval transaction so the final balance check
// and the status flip commit together.
type BalanceLedger interface {
	Remaining(ctx context.Context, tenantID, employeeID, policyID string, year int) (decimal.Decimal, error)
	ReserveTx(ctx context.Context, tx pgx.Tx, tenantID, employeeID, policyID string, year int, days decimal.Decimal) error
}

type PolicyCatalog interface {
	Get(ctx context.Context, tenantID, policyID string) (policy.LeavePolicy, error)
}

type EmployeeDirectory interface {
	Get(ctx context.Context, tenantID, employeeID string) (directory.Employee, error)
}

// HolidayLookup returns the public holidays applicable to a department in a
// window, keyed yyyy-mm-dd.
type HolidayLookup interface {
	DatesInRange(ctx context.Context, tenantID, departmentID string, from, to time.Time) (map[string]bool, error)
}

type Service struct {
	store     StoreAPI
	ledger    BalanceLedger
	policies  PolicyCatalog
	directory EmployeeDirectory
	holidays  HolidayLookup

	// now is swappable for tests.
	now func() time.Time
}

func NewService(store StoreAPI, ledger BalanceLedger, policies PolicyCatalog, dir EmployeeDirectory, holidays HolidayLookup) *Service {
	return &Service{
		store:     store,
		ledger:    ledger,
		policies:  policies,
		directory: dir,
		holidays:  holidays,
		now:       time.Now,
	}
}

type SubmitInput struct {
	EmployeeID      string
	PolicyID        string
	StartDate       time.Time
	EndDate         time.Time
	Reason          string
	CoverEmployeeID string

	// ApproverIDs is the ordered approval chain, decided by the caller
	// (typically the manager chain). The engine only sequences it.
	ApproverIDs []string
}

// Submit validates and creates a pending request together with its approval
// chain. No balance is reserved here; reservation happens on final approval.
func (s *Service) Submit(ctx context.Context, tenantID string, in SubmitInput) (Request, error) {
	if in.EndDate.Before(in.StartDate) {
		return Request{}, ErrInvalidRange
	}
	if err := ValidateChain(in.ApproverIDs); err != nil {
		return Request{}, err
	}

	emp, err := s.directory.Get(ctx, tenantID, in.EmployeeID)
	if err != nil {
		return Request{}, err
	}
	pol, err := s.policies.Get(ctx, tenantID, in.PolicyID)
	if err != nil {
		return Request{}, err
	}

	today := s.now()
	if err := policy.Applicable(pol, emp, today); err != nil {
		return Request{}, err
	}

	holidaySet, err := s.holidays.DatesInRange(ctx, tenantID, emp.DepartmentID, in.StartDate, in.EndDate)
	if err != nil {
		return Request{}, err
	}
	days, err := RequestedDays(in.StartDate, in.EndDate, func(d time.Time) bool {
		return !IsWeekend(d) && !holidaySet[d.Format("2006-01-02")]
	})
	if err != nil {
		return Request{}, err
	}
	if days.IsZero() {
		return Request{}, ErrNoWorkingDays
	}

	// Advance notice is meaningless for illness.
	if pol.LeaveType != policy.TypeSick && pol.MinAdvanceNoticeDays > 0 {
		if NoticeDays(today, in.StartDate) < pol.MinAdvanceNoticeDays {
			return Request{}, fmt.Errorf("%w: policy requires %d days", ErrAdvanceNotice, pol.MinAdvanceNoticeDays)
		}
	}

	if pol.MaxConsecutiveDays > 0 && SpanDays(in.StartDate, in.EndDate) > pol.MaxConsecutiveDays {
		return Request{}, fmt.Errorf("%w: policy allows %d", ErrConsecutiveLimit, pol.MaxConsecutiveDays)
	}

	year := in.StartDate.Year()
	remaining, err := s.ledger.Remaining(ctx, tenantID, in.EmployeeID, in.PolicyID, year)
	if err != nil {
		return Request{}, err
	}
	if remaining.LessThan(days) {
		return Request{}, balance.Insufficient(in.EmployeeID, in.PolicyID, year, remaining, days)
	}

	overlapping, err := s.store.HasOverlappingRequest(ctx, tenantID, in.EmployeeID, in.StartDate, in.EndDate)
	if err != nil {
		return Request{}, err
	}
	if overlapping {
		return Request{}, ErrOverlappingRequest
	}

	req := Request{
		EmployeeID:      in.EmployeeID,
		PolicyID:        in.PolicyID,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		Days:            days,
		Reason:          in.Reason,
		CoverEmployeeID: in.CoverEmployeeID,
		Status:          StatusPending,
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return Request{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id, err := s.store.InsertRequestTx(ctx, tx, tenantID, req)
	if err != nil {
		return Request{}, err
	}
	for i, approverID := range in.ApproverIDs {
		ap := Approval{
			RequestID:  id,
			ApproverID: approverID,
			StepOrder:  i + 1,
			Status:     StatusPending,
		}
		if err := s.store.InsertApprovalTx(ctx, tx, tenantID, ap); err != nil {
			return Request{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Request{}, err
	}

	req.ID = id
	return req, nil
}

// Cancel is employee self-service: only the requester, only while pending.
// Nothing was reserved, so the ledger is untouched.
func (s *Service) Cancel(ctx context.Context, tenantID, requestID, byEmployeeID string) (Request, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return Request{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	req, err := s.store.GetRequestForUpdateTx(ctx, tx, tenantID, requestID)
	if err != nil {
		return Request{}, err
	}
	if req.EmployeeID != byEmployeeID {
		return Request{}, ErrNotRequester
	}
	if req.Status != StatusPending {
		return Request{}, ErrRequestNotPending
	}

	if err := s.store.UpdateRequestStatusTx(ctx, tx, tenantID, requestID, StatusCancelled, "", req.ManagerComments); err != nil {
		return Request{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Request{}, err
	}
	req.Status = StatusCancelled
	return req, nil
}

// ProcessStep records one approver decision. A rejection short-circuits the
// chain; the last approval finalizes by reserving balance, and a reservation
// shortfall at that moment auto-rejects the request instead of approving it.
func (s *Service) ProcessStep(ctx context.Context, tenantID, requestID, approverID string, decision Decision, comments string) (Request, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return Request{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	req, err := s.store.GetRequestForUpdateTx(ctx, tx, tenantID, requestID)
	if err != nil {
		return Request{}, err
	}
	if req.Status != StatusPending {
		return Request{}, ErrRequestNotPending
	}

	steps, err := s.store.ApprovalsForUpdateTx(ctx, tx, tenantID, requestID)
	if err != nil {
		return Request{}, err
	}
	current, ok := CurrentStep(steps)
	if !ok {
		return Request{}, ErrRequestNotPending
	}
	if current.ApproverID != approverID {
		return Request{}, ErrNotCurrentApprover
	}

	if decision == DecisionReject {
		if err := s.store.UpdateApprovalTx(ctx, tx, tenantID, current.ID, StatusRejected, comments); err != nil {
			return Request{}, err
		}
		if err := s.store.UpdateRequestStatusTx(ctx, tx, tenantID, requestID, StatusRejected, approverID, comments); err != nil {
			return Request{}, err
		}
		if err := tx.Commit(ctx); err != nil {
			return Request{}, err
		}
		req.Status = StatusRejected
		req.ManagerComments = comments
		return req, nil
	}

	if err := s.store.UpdateApprovalTx(ctx, tx, tenantID, current.ID, StatusApproved, comments); err != nil {
		return Request{}, err
	}

	lastStep := true
	for _, step := range steps {
		if step.ID != current.ID && step.Status == StatusPending {
			lastStep = false
			break
		}
	}
	if !lastStep {
		if err := tx.Commit(ctx); err != nil {
			return Request{}, err
		}
		return req, nil
	}

	// Finalization: all approvers signed off, now reserve. Other requests
	// may have drained the balance since submission, so approval is not
	// guaranteed even here.
	year := req.StartDate.Year()
	reserveErr := s.ledger.ReserveTx(ctx, tx, tenantID, req.EmployeeID, req.PolicyID, year, req.Days)
	switch {
	case errors.Is(reserveErr, balance.ErrInsufficientBalance):
		systemComment := fmt.Sprintf("auto-rejected at final approval: %v", reserveErr)
		if err := s.store.UpdateRequestStatusTx(ctx, tx, tenantID, requestID, StatusRejected, approverID, systemComment); err != nil {
			return Request{}, err
		}
		req.Status = StatusRejected
		req.ManagerComments = systemComment
	case reserveErr != nil:
		return Request{}, reserveErr
	default:
		if err := s.store.UpdateRequestStatusTx(ctx, tx, tenantID, requestID, StatusApproved, approverID, comments); err != nil {
			return Request{}, err
		}
		req.Status = StatusApproved
		req.ManagerComments = comments
	}

	if err := tx.Commit(ctx); err != nil {
		return Request{}, err
	}
	req.ApprovedBy = approverID
	return req, nil
}

func (s *Service) Get(ctx context.Context, tenantID, requestID string) (Request, []Approval, error) {
	req, err := s.store.GetRequest(ctx, tenantID, requestID)
	if err != nil {
		return Request{}, nil, err
	}
	approvals, err := s.store.Approvals(ctx, tenantID, requestID)
	if err != nil {
		return Request{}, nil, err
	}
	return req, approvals, nil
}

func (s *Service) ListForEmployee(ctx context.Context, tenantID, employeeID string, limit, offset int) ([]Request, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListForEmployee(ctx, tenantID, employeeID, limit, offset)
}

// ApprovedInRange feeds the attendance summarizer and status derivation.
func (s *Service) ApprovedInRange(ctx context.Context, tenantID, employeeID string, from, to time.Time) ([]Request, error) {
	return s.store.ApprovedInRange(ctx, tenantID, employeeID, from, to)
}
