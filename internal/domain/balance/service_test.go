package balance

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"workforce/internal/domain/policy"
	"workforce/internal/platform/metrics"
)

type fakeTx struct{ pgx.Tx }

func (fakeTx) Commit(context.Context) error   { return nil }
func (fakeTx) Rollback(context.Context) error { return nil }

type fakeStore struct {
	rows    map[string]*Balance
	entries []AdjustmentEntry
	nextID  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]*Balance)}
}

func key(employeeID, policyID string, year int) string {
	return fmt.Sprintf("%s|%s|%d", employeeID, policyID, year)
}

func (f *fakeStore) Begin(context.Context) (pgx.Tx, error) { return fakeTx{}, nil }

func (f *fakeStore) Get(_ context.Context, _, employeeID, policyID string, year int) (Balance, error) {
	if b, ok := f.rows[key(employeeID, policyID, year)]; ok {
		return *b, nil
	}
	return Balance{}, ErrNotFound
}

func (f *fakeStore) GetForUpdateTx(ctx context.Context, _ pgx.Tx, tenantID, employeeID, policyID string, year int) (Balance, error) {
	return f.Get(ctx, tenantID, employeeID, policyID, year)
}

func (f *fakeStore) byID(balanceID string) *Balance {
	for _, b := range f.rows {
		if b.ID == balanceID {
			return b
		}
	}
	return nil
}

func (f *fakeStore) AddUsedTx(_ context.Context, _ pgx.Tx, _, balanceID string, delta decimal.Decimal) error {
	b := f.byID(balanceID)
	if b == nil {
		return ErrNotFound
	}
	b.Used = b.Used.Add(delta)
	return nil
}

func (f *fakeStore) SetUsedTx(_ context.Context, _ pgx.Tx, _, balanceID string, used decimal.Decimal) error {
	b := f.byID(balanceID)
	if b == nil {
		return ErrNotFound
	}
	b.Used = used
	return nil
}

func (f *fakeStore) UpsertAdjustmentTx(_ context.Context, _ pgx.Tx, _, employeeID, policyID string, year int, delta decimal.Decimal) (Balance, error) {
	k := key(employeeID, policyID, year)
	if b, ok := f.rows[k]; ok {
		b.Adjustment = b.Adjustment.Add(delta)
		return *b, nil
	}
	f.nextID++
	b := &Balance{
		ID:         fmt.Sprintf("bal-%d", f.nextID),
		EmployeeID: employeeID,
		PolicyID:   policyID,
		Year:       year,
		Adjustment: delta,
	}
	f.rows[k] = b
	return *b, nil
}

func (f *fakeStore) InsertAdjustmentEntryTx(_ context.Context, _ pgx.Tx, _ string, entry AdjustmentEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeStore) CreateIfAbsentTx(_ context.Context, _ pgx.Tx, _, employeeID, policyID string, year int, allocated, carried decimal.Decimal) (Balance, bool, error) {
	k := key(employeeID, policyID, year)
	if b, ok := f.rows[k]; ok {
		return *b, false, nil
	}
	f.nextID++
	b := &Balance{
		ID:         fmt.Sprintf("bal-%d", f.nextID),
		EmployeeID: employeeID,
		PolicyID:   policyID,
		Year:       year,
		Allocated:  allocated,
		Carried:    carried,
	}
	f.rows[k] = b
	return *b, true, nil
}

func (f *fakeStore) ListForEmployee(_ context.Context, _, employeeID string, year int) ([]Balance, error) {
	var out []Balance
	for _, b := range f.rows {
		if b.EmployeeID == employeeID && b.Year == year {
			out = append(out, *b)
		}
	}
	return out, nil
}

type fakeCatalog map[string]policy.LeavePolicy

func (f fakeCatalog) Get(_ context.Context, _, policyID string) (policy.LeavePolicy, error) {
	if p, ok := f[policyID]; ok {
		return p, nil
	}
	return policy.LeavePolicy{}, policy.ErrNotFound
}

func testService(store *fakeStore, catalog fakeCatalog) *Service {
	return NewService(store, catalog, metrics.New())
}

func annualPolicy() policy.LeavePolicy {
	return policy.LeavePolicy{
		ID:                  "pol-annual",
		LeaveType:           policy.TypeAnnual,
		AnnualAllowanceDays: dec("12"),
		MaxCarryForwardDays: dec("5"),
		Active:              true,
	}
}

func TestRemainingNotFound(t *testing.T) {
	s := testService(newFakeStore(), fakeCatalog{"pol-annual": annualPolicy()})
	if _, err := s.Remaining(context.Background(), "t1", "emp-1", "pol-annual", 2025); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReserveAndRemaining(t *testing.T) {
	store := newFakeStore()
	store.rows[key("emp-1", "pol-annual", 2025)] = &Balance{ID: "bal-1", EmployeeID: "emp-1", PolicyID: "pol-annual", Year: 2025, Allocated: dec("12")}
	s := testService(store, fakeCatalog{"pol-annual": annualPolicy()})
	ctx := context.Background()

	if err := s.Reserve(ctx, "t1", "emp-1", "pol-annual", 2025, dec("5")); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	remaining, err := s.Remaining(ctx, "t1", "emp-1", "pol-annual", 2025)
	if err != nil {
		t.Fatalf("remaining failed: %v", err)
	}
	if !remaining.Equal(dec("7")) {
		t.Fatalf("expected remaining 7, got %s", remaining)
	}
}

func TestReserveInsufficient(t *testing.T) {
	store := newFakeStore()
	store.rows[key("emp-1", "pol-annual", 2025)] = &Balance{ID: "bal-1", EmployeeID: "emp-1", PolicyID: "pol-annual", Year: 2025, Allocated: dec("12"), Used: dec("10")}
	s := testService(store, fakeCatalog{"pol-annual": annualPolicy()})

	err := s.Reserve(context.Background(), "t1", "emp-1", "pol-annual", 2025, dec("3"))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	var detail *InsufficientBalanceError
	if !errors.As(err, &detail) {
		t.Fatalf("expected InsufficientBalanceError, got %v", err)
	}
	if !detail.Available.Equal(dec("2")) || !detail.Requested.Equal(dec("3")) {
		t.Fatalf("unexpected detail: %+v", detail)
	}
	if !store.rows[key("emp-1", "pol-annual", 2025)].Used.Equal(dec("10")) {
		t.Fatal("failed reserve must not change used days")
	}
}

func TestReserveAllowNegative(t *testing.T) {
	pol := annualPolicy()
	pol.AllowNegative = true
	store := newFakeStore()
	store.rows[key("emp-1", "pol-annual", 2025)] = &Balance{ID: "bal-1", EmployeeID: "emp-1", PolicyID: "pol-annual", Year: 2025, Allocated: dec("2")}
	s := testService(store, fakeCatalog{"pol-annual": pol})

	if err := s.Reserve(context.Background(), "t1", "emp-1", "pol-annual", 2025, dec("5")); err != nil {
		t.Fatalf("expected reserve to pass with allow-negative policy: %v", err)
	}
}

func TestReleaseClampsAndFlags(t *testing.T) {
	store := newFakeStore()
	store.rows[key("emp-1", "pol-annual", 2025)] = &Balance{ID: "bal-1", EmployeeID: "emp-1", PolicyID: "pol-annual", Year: 2025, Allocated: dec("12"), Used: dec("2")}
	s := testService(store, fakeCatalog{"pol-annual": annualPolicy()})

	err := s.Release(context.Background(), "t1", "emp-1", "pol-annual", 2025, dec("5"))
	if !errors.Is(err, ErrInconsistency) {
		t.Fatalf("expected ErrInconsistency, got %v", err)
	}
	if !store.rows[key("emp-1", "pol-annual", 2025)].Used.Equal(dec("0")) {
		t.Fatal("expected used days clamped to zero")
	}
}

func TestReleaseNormal(t *testing.T) {
	store := newFakeStore()
	store.rows[key("emp-1", "pol-annual", 2025)] = &Balance{ID: "bal-1", EmployeeID: "emp-1", PolicyID: "pol-annual", Year: 2025, Allocated: dec("12"), Used: dec("5")}
	s := testService(store, fakeCatalog{"pol-annual": annualPolicy()})

	if err := s.Release(context.Background(), "t1", "emp-1", "pol-annual", 2025, dec("5")); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if !store.rows[key("emp-1", "pol-annual", 2025)].Used.Equal(dec("0")) {
		t.Fatal("expected used days back at zero")
	}
}

func TestAdjustCreatesRowAndAudits(t *testing.T) {
	store := newFakeStore()
	s := testService(store, fakeCatalog{"pol-annual": annualPolicy()})

	b, err := s.Adjust(context.Background(), "t1", "emp-1", "pol-annual", 2025, dec("-3"), "unpaid absence penalty", "hr-1")
	if err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	if !Remaining(b).Equal(dec("-3")) {
		t.Fatalf("expected remaining -3, got %s", Remaining(b))
	}
	if len(store.entries) != 1 || store.entries[0].Reason != "unpaid absence penalty" {
		t.Fatalf("expected one audited adjustment entry, got %+v", store.entries)
	}
}

func TestRolloverIdempotent(t *testing.T) {
	store := newFakeStore()
	store.rows[key("emp-1", "pol-annual", 2025)] = &Balance{ID: "bal-1", EmployeeID: "emp-1", PolicyID: "pol-annual", Year: 2025, Allocated: dec("12"), Used: dec("4")}
	s := testService(store, fakeCatalog{"pol-annual": annualPolicy()})
	ctx := context.Background()

	first, err := s.Rollover(ctx, "t1", "emp-1", "pol-annual", 2025, 2026)
	if err != nil {
		t.Fatalf("rollover failed: %v", err)
	}
	// remaining 8 exceeds the carry cap of 5
	if !first.Carried.Equal(dec("5")) {
		t.Fatalf("expected carried 5, got %s", first.Carried)
	}
	if !first.Allocated.Equal(dec("12")) {
		t.Fatalf("expected allocated 12, got %s", first.Allocated)
	}

	second, err := s.Rollover(ctx, "t1", "emp-1", "pol-annual", 2025, 2026)
	if err != nil {
		t.Fatalf("second rollover failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("second rollover must return the existing row")
	}

	count := 0
	for _, b := range store.rows {
		if b.Year == 2026 {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected one 2026 row, got %d", count)
	}
}

func TestRolloverMissingSourceYear(t *testing.T) {
	s := testService(newFakeStore(), fakeCatalog{"pol-annual": annualPolicy()})
	if _, err := s.Rollover(context.Background(), "t1", "emp-1", "pol-annual", 2025, 2026); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAllocateIdempotent(t *testing.T) {
	store := newFakeStore()
	s := testService(store, fakeCatalog{"pol-annual": annualPolicy()})
	ctx := context.Background()

	first, err := s.Allocate(ctx, "t1", "emp-1", "pol-annual", 2025)
	if err != nil {
		t.Fatalf("allocate failed: %v", err)
	}
	if !first.Allocated.Equal(dec("12")) {
		t.Fatalf("expected allocated 12, got %s", first.Allocated)
	}
	second, err := s.Allocate(ctx, "t1", "emp-1", "pol-annual", 2025)
	if err != nil {
		t.Fatalf("second allocate failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("expected the same row on re-allocation")
	}
}
