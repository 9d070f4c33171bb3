package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"workforce/internal/domain/auth"
	"workforce/internal/platform/config"
)

// Seed provisions the default tenant with an HR admin, a department, a
// standard shift and two starter policies. Every step is keyed on natural
// identifiers, so re-running it is a no-op.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
		slog.Info("seed skipped, no admin credentials configured")
		return nil
	}

	tenantID, err := ensureTenant(ctx, pool, cfg.SeedTenantName)
	if err != nil {
		return fmt.Errorf("seed tenant: %w", err)
	}

	userID, err := ensureAdminUser(ctx, pool, tenantID, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
	if err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}

	departmentID, err := ensureDepartment(ctx, pool, tenantID, "People Operations")
	if err != nil {
		return fmt.Errorf("seed department: %w", err)
	}

	if err := ensureEmployee(ctx, pool, tenantID, userID, departmentID, cfg.SeedAdminEmail); err != nil {
		return fmt.Errorf("seed admin employee: %w", err)
	}

	if err := ensureShift(ctx, pool, tenantID); err != nil {
		return fmt.Errorf("seed shift: %w", err)
	}

	if err := ensurePolicies(ctx, pool, tenantID); err != nil {
		return fmt.Errorf("seed policies: %w", err)
	}

	return nil
}

func ensureTenant(ctx context.Context, pool *pgxpool.Pool, name string) (string, error) {
	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM tenants WHERE name = $1", name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		err = pool.QueryRow(ctx, "INSERT INTO tenants (name) VALUES ($1) RETURNING id", name).Scan(&id)
	}
	return id, err
}

func ensureAdminUser(ctx context.Context, pool *pgxpool.Pool, tenantID, email, password string) (string, error) {
	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM users WHERE tenant_id = $1 AND email = $2", tenantID, email).Scan(&id)
	if !errors.Is(err, pgx.ErrNoRows) {
		return id, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}
	err = pool.QueryRow(ctx, `
    INSERT INTO users (tenant_id, email, password_hash, role, status)
    VALUES ($1, $2, $3, $4, 'active')
    RETURNING id
  `, tenantID, email, hash, auth.RoleHR).Scan(&id)
	return id, err
}

func ensureDepartment(ctx context.Context, pool *pgxpool.Pool, tenantID, name string) (string, error) {
	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM departments WHERE tenant_id = $1 AND name = $2", tenantID, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		err = pool.QueryRow(ctx, "INSERT INTO departments (tenant_id, name) VALUES ($1, $2) RETURNING id", tenantID, name).Scan(&id)
	}
	return id, err
}

func ensureEmployee(ctx context.Context, pool *pgxpool.Pool, tenantID, userID, departmentID, email string) error {
	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(1) FROM employees WHERE tenant_id = $1 AND user_id = $2", tenantID, userID).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err := pool.Exec(ctx, `
    INSERT INTO employees (tenant_id, user_id, first_name, last_name, email, department_id, position, hire_date, status)
    VALUES ($1, $2, 'System', 'Administrator', $3, $4, 'HR Administrator', $5, 'active')
  `, tenantID, userID, email, departmentID, time.Now().UTC())
	return err
}

func ensureShift(ctx context.Context, pool *pgxpool.Pool, tenantID string) error {
	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(1) FROM work_shifts WHERE tenant_id = $1", tenantID).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	// 09:00-17:00, lunch 12:00-13:00, Monday through Friday.
	_, err := pool.Exec(ctx, `
    INSERT INTO work_shifts
      (tenant_id, name, start_minute, end_minute, break_start_minute, break_end_minute,
       flexible_minutes, grace_minutes, max_overtime_minutes, working_weekdays)
    VALUES ($1, 'Standard', 540, 1020, 720, 780, 10, 15, 120, $2)
  `, tenantID, []int32{1, 2, 3, 4, 5})
	return err
}

func ensurePolicies(ctx context.Context, pool *pgxpool.Pool, tenantID string) error {
	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(1) FROM leave_policies WHERE tenant_id = $1", tenantID).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	year := time.Now().UTC().Year()
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	_, err := pool.Exec(ctx, `
    INSERT INTO leave_policies
      (tenant_id, name, leave_type, annual_allowance_days, max_carry_forward_days,
       max_consecutive_days, min_advance_notice_days, paid, effective_from)
    VALUES
      ($1, 'Annual Leave', 'annual', 20, 5, 14, 3, TRUE, $2),
      ($1, 'Sick Leave', 'sick', 10, 0, 0, 0, TRUE, $2)
  `, tenantID, from)
	return err
}
