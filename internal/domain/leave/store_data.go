package leave

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"workforce/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	return s.DB.Begin(ctx)
}

const requestColumns = `
    id, employee_id, policy_id, start_date, end_date, requested_days, reason,
    COALESCE(cover_employee_id, ''), status, COALESCE(manager_comments, ''),
    COALESCE(approved_by, ''), approved_at, created_at`

func scanRequest(row pgx.Row) (Request, error) {
	var r Request
	err := row.Scan(&r.ID, &r.EmployeeID, &r.PolicyID, &r.StartDate, &r.EndDate, &r.Days, &r.Reason,
		&r.CoverEmployeeID, &r.Status, &r.ManagerComments, &r.ApprovedBy, &r.ApprovedAt, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrNotFound
	}
	if err != nil {
		return Request{}, err
	}
	return r, nil
}

func (s *Store) InsertRequestTx(ctx context.Context, tx pgx.Tx, tenantID string, req Request) (string, error) {
	var cover any
	if req.CoverEmployeeID != "" {
		cover = req.CoverEmployeeID
	}
	var id string
	if err := tx.QueryRow(ctx, `
    INSERT INTO leave_requests (tenant_id, employee_id, policy_id, start_date, end_date, requested_days, reason, cover_employee_id, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    RETURNING id
  `, tenantID, req.EmployeeID, req.PolicyID, req.StartDate, req.EndDate, req.Days, req.Reason, cover, req.Status).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) InsertApprovalTx(ctx context.Context, tx pgx.Tx, tenantID string, ap Approval) error {
	_, err := tx.Exec(ctx, `
    INSERT INTO leave_approvals (tenant_id, request_id, approver_id, step_order, status)
    VALUES ($1,$2,$3,$4,$5)
  `, tenantID, ap.RequestID, ap.ApproverID, ap.StepOrder, ap.Status)
	return err
}

func (s *Store) GetRequest(ctx context.Context, tenantID, requestID string) (Request, error) {
	return scanRequest(s.DB.QueryRow(ctx, `
    SELECT`+requestColumns+`
    FROM leave_requests
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, requestID))
}

func (s *Store) GetRequestForUpdateTx(ctx context.Context, tx pgx.Tx, tenantID, requestID string) (Request, error) {
	return scanRequest(tx.QueryRow(ctx, `
    SELECT`+requestColumns+`
    FROM leave_requests
    WHERE tenant_id = $1 AND id = $2
    FOR UPDATE
  `, tenantID, requestID))
}

func (s *Store) UpdateRequestStatusTx(ctx context.Context, tx pgx.Tx, tenantID, requestID string, status Status, approverID, comments string) error {
	var approver any
	if approverID != "" {
		approver = approverID
	}
	_, err := tx.Exec(ctx, `
    UPDATE leave_requests
    SET status = $3, approved_by = $4, manager_comments = $5, approved_at = now()
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, requestID, status, approver, comments)
	return err
}

func scanApprovals(rows pgx.Rows) ([]Approval, error) {
	defer rows.Close()
	var approvals []Approval
	for rows.Next() {
		var ap Approval
		if err := rows.Scan(&ap.ID, &ap.RequestID, &ap.ApproverID, &ap.StepOrder, &ap.Status, &ap.Comments, &ap.ProcessedAt); err != nil {
			return nil, err
		}
		approvals = append(approvals, ap)
	}
	return approvals, nil
}

const approvalColumns = `
    id, request_id, approver_id, step_order, status, COALESCE(comments, ''), processed_at`

func (s *Store) ApprovalsForUpdateTx(ctx context.Context, tx pgx.Tx, tenantID, requestID string) ([]Approval, error) {
	rows, err := tx.Query(ctx, `
    SELECT`+approvalColumns+`
    FROM leave_approvals
    WHERE tenant_id = $1 AND request_id = $2
    ORDER BY step_order
    FOR UPDATE
  `, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	return scanApprovals(rows)
}

func (s *Store) UpdateApprovalTx(ctx context.Context, tx pgx.Tx, tenantID, approvalID string, status Status, comments string) error {
	_, err := tx.Exec(ctx, `
    UPDATE leave_approvals
    SET status = $3, comments = $4, processed_at = now()
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, approvalID, status, comments)
	return err
}

func (s *Store) Approvals(ctx context.Context, tenantID, requestID string) ([]Approval, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT`+approvalColumns+`
    FROM leave_approvals
    WHERE tenant_id = $1 AND request_id = $2
    ORDER BY step_order
  `, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	return scanApprovals(rows)
}

// HasOverlappingRequest checks for another live (pending or approved)
// request intersecting the range.
func (s *Store) HasOverlappingRequest(ctx context.Context, tenantID, employeeID string, start, end time.Time) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM leave_requests
    WHERE tenant_id = $1 AND employee_id = $2
      AND status IN ($3, $4)
      AND start_date <= $6 AND end_date >= $5
  `, tenantID, employeeID, StatusPending, StatusApproved, start, end).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) ListForEmployee(ctx context.Context, tenantID, employeeID string, limit, offset int) ([]Request, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT`+requestColumns+`
    FROM leave_requests
    WHERE tenant_id = $1 AND employee_id = $2
    ORDER BY created_at DESC
    LIMIT $3 OFFSET $4
  `, tenantID, employeeID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []Request
	for rows.Next() {
		var r Request
		if err := rows.Scan(&r.ID, &r.EmployeeID, &r.PolicyID, &r.StartDate, &r.EndDate, &r.Days, &r.Reason,
			&r.CoverEmployeeID, &r.Status, &r.ManagerComments, &r.ApprovedBy, &r.ApprovedAt, &r.CreatedAt); err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, nil
}

func (s *Store) ApprovedInRange(ctx context.Context, tenantID, employeeID string, from, to time.Time) ([]Request, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT`+requestColumns+`
    FROM leave_requests
    WHERE tenant_id = $1 AND employee_id = $2 AND status = $3
      AND start_date <= $5 AND end_date >= $4
    ORDER BY start_date
  `, tenantID, employeeID, StatusApproved, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []Request
	for rows.Next() {
		var r Request
		if err := rows.Scan(&r.ID, &r.EmployeeID, &r.PolicyID, &r.StartDate, &r.EndDate, &r.Days, &r.Reason,
			&r.CoverEmployeeID, &r.Status, &r.ManagerComments, &r.ApprovedBy, &r.ApprovedAt, &r.CreatedAt); err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, nil
}
