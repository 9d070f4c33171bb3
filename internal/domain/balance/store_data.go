package balance

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

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

const balanceColumns = `
    id, employee_id, policy_id, year, allocated_days, used_days, carried_forward_days, adjustment_days, updated_at`

func scanBalance(row pgx.Row) (Balance, error) {
	var b Balance
	err := row.Scan(&b.ID, &b.EmployeeID, &b.PolicyID, &b.Year, &b.Allocated, &b.Used, &b.Carried, &b.Adjustment, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Balance{}, ErrNotFound
	}
	if err != nil {
		return Balance{}, err
	}
	return b, nil
}

func (s *Store) Get(ctx context.Context, tenantID, employeeID, policyID string, year int) (Balance, error) {
	return scanBalance(s.DB.QueryRow(ctx, `
    SELECT`+balanceColumns+`
    FROM leave_balances
    WHERE tenant_id = $1 AND employee_id = $2 AND policy_id = $3 AND year = $4
  `, tenantID, employeeID, policyID, year))
}

func (s *Store) GetForUpdateTx(ctx context.Context, tx pgx.Tx, tenantID, employeeID, policyID string, year int) (Balance, error) {
	return scanBalance(tx.QueryRow(ctx, `
    SELECT`+balanceColumns+`
    FROM leave_balances
    WHERE tenant_id = $1 AND employee_id = $2 AND policy_id = $3 AND year = $4
    FOR UPDATE
  `, tenantID, employeeID, policyID, year))
}

func (s *Store) AddUsedTx(ctx context.Context, tx pgx.Tx, tenantID, balanceID string, delta decimal.Decimal) error {
	_, err := tx.Exec(ctx, `
    UPDATE leave_balances
    SET used_days = used_days + $3, updated_at = now()
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, balanceID, delta)
	return err
}

func (s *Store) SetUsedTx(ctx context.Context, tx pgx.Tx, tenantID, balanceID string, used decimal.Decimal) error {
	_, err := tx.Exec(ctx, `
    UPDATE leave_balances
    SET used_days = $3, updated_at = now()
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, balanceID, used)
	return err
}

func (s *Store) UpsertAdjustmentTx(ctx context.Context, tx pgx.Tx, tenantID, employeeID, policyID string, year int, delta decimal.Decimal) (Balance, error) {
	return scanBalance(tx.QueryRow(ctx, `
    INSERT INTO leave_balances (tenant_id, employee_id, policy_id, year, allocated_days, used_days, carried_forward_days, adjustment_days)
    VALUES ($1,$2,$3,$4,0,0,0,$5)
    ON CONFLICT (tenant_id, employee_id, policy_id, year)
    DO UPDATE SET adjustment_days = leave_balances.adjustment_days + EXCLUDED.adjustment_days, updated_at = now()
    RETURNING`+balanceColumns+`
  `, tenantID, employeeID, policyID, year, delta))
}

func (s *Store) InsertAdjustmentEntryTx(ctx context.Context, tx pgx.Tx, tenantID string, entry AdjustmentEntry) error {
	_, err := tx.Exec(ctx, `
    INSERT INTO leave_balance_adjustments (tenant_id, employee_id, policy_id, year, delta_days, reason, created_by)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
  `, tenantID, entry.EmployeeID, entry.PolicyID, entry.Year, entry.Delta, entry.Reason, entry.CreatedBy)
	return err
}

// CreateIfAbsentTx inserts the year row only when missing and reports
// whether it was created. Re-invocation returns the existing row untouched,
// which is what makes rollover idempotent.
func (s *Store) CreateIfAbsentTx(ctx context.Context, tx pgx.Tx, tenantID, employeeID, policyID string, year int, allocated, carried decimal.Decimal) (Balance, bool, error) {
	b, err := scanBalance(tx.QueryRow(ctx, `
    INSERT INTO leave_balances (tenant_id, employee_id, policy_id, year, allocated_days, used_days, carried_forward_days, adjustment_days)
    VALUES ($1,$2,$3,$4,$5,0,$6,0)
    ON CONFLICT (tenant_id, employee_id, policy_id, year) DO NOTHING
    RETURNING`+balanceColumns+`
  `, tenantID, employeeID, policyID, year, allocated, carried))
	if err == nil {
		return b, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Balance{}, false, err
	}

	existing, err := scanBalance(tx.QueryRow(ctx, `
    SELECT`+balanceColumns+`
    FROM leave_balances
    WHERE tenant_id = $1 AND employee_id = $2 AND policy_id = $3 AND year = $4
  `, tenantID, employeeID, policyID, year))
	if err != nil {
		return Balance{}, false, err
	}
	return existing, false, nil
}

func (s *Store) ListForEmployee(ctx context.Context, tenantID, employeeID string, year int) ([]Balance, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT`+balanceColumns+`
    FROM leave_balances
    WHERE tenant_id = $1 AND employee_id = $2 AND year = $3
    ORDER BY policy_id
  `, tenantID, employeeID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []Balance
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.ID, &b.EmployeeID, &b.PolicyID, &b.Year, &b.Allocated, &b.Used, &b.Carried, &b.Adjustment, &b.UpdatedAt); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, nil
}
