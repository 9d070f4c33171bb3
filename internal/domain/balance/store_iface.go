package balance

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// StoreAPI is the persistence surface the ledger service needs. The *Tx
// variants run against an open transaction so callers can compose ledger
// writes with their own (one atomic unit per operation).
type StoreAPI interface {
	Begin(ctx context.Context) (pgx.Tx, error)

	Get(ctx context.Context, tenantID, employeeID, policyID string, year int) (Balance, error)
	GetForUpdateTx(ctx context.Context, tx pgx.Tx, tenantID, employeeID, policyID string, year int) (Balance, error)
	AddUsedTx(ctx context.Context, tx pgx.Tx, tenantID, balanceID string, delta decimal.Decimal) error
	SetUsedTx(ctx context.Context, tx pgx.Tx, tenantID, balanceID string, used decimal.Decimal) error
	UpsertAdjustmentTx(ctx context.Context, tx pgx.Tx, tenantID, employeeID, policyID string, year int, delta decimal.Decimal) (Balance, error)
	InsertAdjustmentEntryTx(ctx context.Context, tx pgx.Tx, tenantID string, entry AdjustmentEntry) error
	CreateIfAbsentTx(ctx context.Context, tx pgx.Tx, tenantID, employeeID, policyID string, year int, allocated, carried decimal.Decimal) (Balance, bool, error)

	ListForEmployee(ctx context.Context, tenantID, employeeID string, year int) ([]Balance, error)
}
