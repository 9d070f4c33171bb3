package balance

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"workforce/internal/domain/policy"
	"workforce/internal/platform/metrics"
)

// PolicyCatalog is the read-only policy lookup the ledger needs for the
// allow-negative rule and rollover allowances.
type PolicyCatalog interface {
	Get(ctx context.Context, tenantID, policyID string) (policy.LeavePolicy, error)
}

type Service struct {
	store    StoreAPI
	policies PolicyCatalog
	metrics  *metrics.Collector
}

func NewService(store StoreAPI, policies PolicyCatalog, collector *metrics.Collector) *Service {
	return &Service{store: store, policies: policies, metrics: collector}
}

func (s *Service) Get(ctx context.Context, tenantID, employeeID, policyID string, year int) (Balance, error) {
	return s.store.Get(ctx, tenantID, employeeID, policyID, year)
}

func (s *Service) ListForEmployee(ctx context.Context, tenantID, employeeID string, year int) ([]Balance, error) {
	return s.store.ListForEmployee(ctx, tenantID, employeeID, year)
}

// Remaining fails with ErrNotFound when no row exists: the policy has not
// been allocated for that employee and year.
func (s *Service) Remaining(ctx context.Context, tenantID, employeeID, policyID string, year int) (decimal.Decimal, error) {
	b, err := s.store.Get(ctx, tenantID, employeeID, policyID, year)
	if err != nil {
		return decimal.Zero, err
	}
	return Remaining(b), nil
}

// Reserve increments used days inside its own transaction.
func (s *Service) Reserve(ctx context.Context, tenantID, employeeID, policyID string, year int, days decimal.Decimal) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.ReserveTx(ctx, tx, tenantID, employeeID, policyID, year, days); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ReserveTx is the composable form: it locks the ledger row in the caller's
// transaction so the balance check and increment are race-free against
// concurrent approvals.
func (s *Service) ReserveTx(ctx context.Context, tx pgx.Tx, tenantID, employeeID, policyID string, year int, days decimal.Decimal) error {
	b, err := s.store.GetForUpdateTx(ctx, tx, tenantID, employeeID, policyID, year)
	if err != nil {
		return err
	}

	pol, err := s.policies.Get(ctx, tenantID, policyID)
	if err != nil {
		return err
	}

	remaining := Remaining(b)
	if !pol.AllowNegative && remaining.Sub(days).IsNegative() {
		return Insufficient(employeeID, policyID, year, remaining, days)
	}
	return s.store.AddUsedTx(ctx, tx, tenantID, b.ID, days)
}

// Release decrements used days after a reservation is undone. Used days
// never go below zero: a release that would cross zero clamps, raises the
// ledger alert, and reports ErrInconsistency (the clamped write still
// commits).
func (s *Service) Release(ctx context.Context, tenantID, employeeID, policyID string, year int, days decimal.Decimal) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	releaseErr := s.ReleaseTx(ctx, tx, tenantID, employeeID, policyID, year, days)
	if releaseErr != nil && !errors.Is(releaseErr, ErrInconsistency) {
		return releaseErr
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	return releaseErr
}

func (s *Service) ReleaseTx(ctx context.Context, tx pgx.Tx, tenantID, employeeID, policyID string, year int, days decimal.Decimal) error {
	b, err := s.store.GetForUpdateTx(ctx, tx, tenantID, employeeID, policyID, year)
	if err != nil {
		return err
	}

	next := b.Used.Sub(days)
	if next.IsNegative() {
		slog.Error("leave balance release below zero, clamping",
			"employeeId", employeeID, "policyId", policyID, "year", year,
			"used", b.Used.String(), "release", days.String())
		s.metrics.RecordLedgerAlert()
		if err := s.store.SetUsedTx(ctx, tx, tenantID, b.ID, decimal.Zero); err != nil {
			return err
		}
		return ErrInconsistency
	}
	return s.store.SetUsedTx(ctx, tx, tenantID, b.ID, next)
}

// Adjust applies a manual admin correction. It always succeeds, may push the
// remaining balance negative, and leaves an audited adjustment entry.
func (s *Service) Adjust(ctx context.Context, tenantID, employeeID, policyID string, year int, delta decimal.Decimal, reason, actorID string) (Balance, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return Balance{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	b, err := s.store.UpsertAdjustmentTx(ctx, tx, tenantID, employeeID, policyID, year, delta)
	if err != nil {
		return Balance{}, err
	}
	entry := AdjustmentEntry{
		EmployeeID: employeeID,
		PolicyID:   policyID,
		Year:       year,
		Delta:      delta,
		Reason:     reason,
		CreatedBy:  actorID,
		CreatedAt:  time.Now(),
	}
	if err := s.store.InsertAdjustmentEntryTx(ctx, tx, tenantID, entry); err != nil {
		return Balance{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Balance{}, err
	}
	return b, nil
}

// Allocate creates the year row on first allocation. Calling it again for
// an existing year is a no-op returning the existing row.
func (s *Service) Allocate(ctx context.Context, tenantID, employeeID, policyID string, year int) (Balance, error) {
	pol, err := s.policies.Get(ctx, tenantID, policyID)
	if err != nil {
		return Balance{}, err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return Balance{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	b, _, err := s.store.CreateIfAbsentTx(ctx, tx, tenantID, employeeID, policyID, year, pol.AnnualAllowanceDays, decimal.Zero)
	if err != nil {
		return Balance{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Balance{}, err
	}
	return b, nil
}

// Rollover creates the toYear row with carried-forward days capped by the
// policy. Idempotent: a second invocation finds the existing row and does
// not double-allocate.
func (s *Service) Rollover(ctx context.Context, tenantID, employeeID, policyID string, fromYear, toYear int) (Balance, error) {
	pol, err := s.policies.Get(ctx, tenantID, policyID)
	if err != nil {
		return Balance{}, err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return Balance{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	from, err := s.store.GetForUpdateTx(ctx, tx, tenantID, employeeID, policyID, fromYear)
	if err != nil {
		return Balance{}, err
	}

	carry := CarryForward(Remaining(from), pol.MaxCarryForwardDays)
	b, created, err := s.store.CreateIfAbsentTx(ctx, tx, tenantID, employeeID, policyID, toYear, pol.AnnualAllowanceDays, carry)
	if err != nil {
		return Balance{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Balance{}, err
	}
	if !created {
		slog.Debug("rollover already applied", "employeeId", employeeID, "policyId", policyID, "year", toYear)
	}
	return b, nil
}
