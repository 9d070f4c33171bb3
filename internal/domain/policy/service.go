package policy

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"workforce/internal/platform/querier"
)

type Service struct {
	DB querier.Querier
}

func NewService(db querier.Querier) *Service {
	return &Service{DB: db}
}

const policyColumns = `
    id, name, leave_type, annual_allowance_days, max_carry_forward_days,
    max_consecutive_days, min_advance_notice_days, requires_documentation,
    paid, allow_negative, departments, positions, min_tenure_months,
    active, effective_from, effective_to, created_at`

func scanPolicy(row pgx.Row) (LeavePolicy, error) {
	var p LeavePolicy
	err := row.Scan(&p.ID, &p.Name, &p.LeaveType, &p.AnnualAllowanceDays, &p.MaxCarryForwardDays,
		&p.MaxConsecutiveDays, &p.MinAdvanceNoticeDays, &p.RequiresDocumentation,
		&p.Paid, &p.AllowNegative, &p.Departments, &p.Positions, &p.MinTenureMonths,
		&p.Active, &p.EffectiveFrom, &p.EffectiveTo, &p.CreatedAt)
	return p, err
}

func (s *Service) Get(ctx context.Context, tenantID, policyID string) (LeavePolicy, error) {
	p, err := scanPolicy(s.DB.QueryRow(ctx, `
    SELECT`+policyColumns+`
    FROM leave_policies
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, policyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return LeavePolicy{}, ErrNotFound
	}
	if err != nil {
		return LeavePolicy{}, err
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, tenantID string, activeOnly bool) ([]LeavePolicy, error) {
	query := `
    SELECT` + policyColumns + `
    FROM leave_policies
    WHERE tenant_id = $1`
	if activeOnly {
		query += " AND active"
	}
	query += " ORDER BY name"

	rows, err := s.DB.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []LeavePolicy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, nil
}

func (s *Service) Create(ctx context.Context, tenantID string, p LeavePolicy) (string, error) {
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO leave_policies
      (tenant_id, name, leave_type, annual_allowance_days, max_carry_forward_days,
       max_consecutive_days, min_advance_notice_days, requires_documentation,
       paid, allow_negative, departments, positions, min_tenure_months,
       active, effective_from, effective_to)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
    RETURNING id
  `, tenantID, p.Name, p.LeaveType, p.AnnualAllowanceDays, p.MaxCarryForwardDays,
		p.MaxConsecutiveDays, p.MinAdvanceNoticeDays, p.RequiresDocumentation,
		p.Paid, p.AllowNegative, p.Departments, p.Positions, p.MinTenureMonths,
		p.Active, p.EffectiveFrom, p.EffectiveTo).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

// Update replaces the editable fields of an existing policy. Identity fields
// stay fixed; admin edits are the only mutation path once balances reference
// the policy.
func (s *Service) Update(ctx context.Context, tenantID, policyID string, p LeavePolicy) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_policies
    SET name = $3, annual_allowance_days = $4, max_carry_forward_days = $5,
        max_consecutive_days = $6, min_advance_notice_days = $7,
        requires_documentation = $8, paid = $9, allow_negative = $10,
        departments = $11, positions = $12, min_tenure_months = $13,
        effective_from = $14, effective_to = $15
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, policyID, p.Name, p.AnnualAllowanceDays, p.MaxCarryForwardDays,
		p.MaxConsecutiveDays, p.MinAdvanceNoticeDays, p.RequiresDocumentation,
		p.Paid, p.AllowNegative, p.Departments, p.Positions, p.MinTenureMonths,
		p.EffectiveFrom, p.EffectiveTo)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) Deactivate(ctx context.Context, tenantID, policyID string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_policies SET active = false WHERE tenant_id = $1 AND id = $2
  `, tenantID, policyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
