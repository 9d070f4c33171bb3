package leave

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// StoreAPI is the persistence surface of the request engine. State-changing
// flows lock the request row (GetRequestForUpdateTx) so concurrent approval
// and cancellation attempts serialize.
type StoreAPI interface {
	Begin(ctx context.Context) (pgx.Tx, error)

	InsertRequestTx(ctx context.Context, tx pgx.Tx, tenantID string, req Request) (string, error)
	InsertApprovalTx(ctx context.Context, tx pgx.Tx, tenantID string, ap Approval) error

	GetRequest(ctx context.Context, tenantID, requestID string) (Request, error)
	GetRequestForUpdateTx(ctx context.Context, tx pgx.Tx, tenantID, requestID string) (Request, error)
	UpdateRequestStatusTx(ctx context.Context, tx pgx.Tx, tenantID, requestID string, status Status, approverID, comments string) error

	ApprovalsForUpdateTx(ctx context.Context, tx pgx.Tx, tenantID, requestID string) ([]Approval, error)
	UpdateApprovalTx(ctx context.Context, tx pgx.Tx, tenantID, approvalID string, status Status, comments string) error

	Approvals(ctx context.Context, tenantID, requestID string) ([]Approval, error)
	HasOverlappingRequest(ctx context.Context, tenantID, employeeID string, start, end time.Time) (bool, error)
	ListForEmployee(ctx context.Context, tenantID, employeeID string, limit, offset int) ([]Request, error)
	ApprovedInRange(ctx context.Context, tenantID, employeeID string, from, to time.Time) ([]Request, error)
}
