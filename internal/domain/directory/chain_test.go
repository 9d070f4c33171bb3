package directory

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mapLookup map[string]string

func (m mapLookup) ManagerID(_ context.Context, _, employeeID string) (string, error) {
	return m[employeeID], nil
}

func TestManagerChain(t *testing.T) {
	lookup := mapLookup{"e1": "m1", "m1": "m2", "m2": ""}

	chain, err := ManagerChain(context.Background(), lookup, "t1", "e1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chain) != 2 || chain[0] != "m1" || chain[1] != "m2" {
		t.Fatalf("unexpected chain: %v", chain)
	}
}

func TestManagerChainTopLevel(t *testing.T) {
	lookup := mapLookup{"ceo": ""}

	chain, err := ManagerChain(context.Background(), lookup, "t1", "ceo", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chain) != 0 {
		t.Fatalf("expected empty chain, got %v", chain)
	}
}

func TestManagerChainCycle(t *testing.T) {
	lookup := mapLookup{"e1": "m1", "m1": "m2", "m2": "m1"}

	if _, err := ManagerChain(context.Background(), lookup, "t1", "e1", 0); !errors.Is(err, ErrManagerCycle) {
		t.Fatalf("expected ErrManagerCycle, got %v", err)
	}
}

func TestManagerChainSelfManager(t *testing.T) {
	lookup := mapLookup{"e1": "e1"}

	if _, err := ManagerChain(context.Background(), lookup, "t1", "e1", 0); !errors.Is(err, ErrManagerCycle) {
		t.Fatalf("expected ErrManagerCycle, got %v", err)
	}
}

func TestManagerChainDepthGuard(t *testing.T) {
	lookup := mapLookup{}
	for i := 0; i < 20; i++ {
		lookup[id(i)] = id(i + 1)
	}
	lookup[id(20)] = ""

	if _, err := ManagerChain(context.Background(), lookup, "t1", id(0), 5); !errors.Is(err, ErrChainTooDeep) {
		t.Fatalf("expected ErrChainTooDeep, got %v", err)
	}
}

func id(i int) string {
	return "emp-" + string(rune('a'+i%26)) + string(rune('0'+i/26))
}

func TestTenureMonths(t *testing.T) {
	hire := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		asOf time.Time
		want int
	}{
		{time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC), 0},
		{time.Date(2024, 4, 14, 0, 0, 0, 0, time.UTC), 0},
		{time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC), 1},
		{time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), 12},
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 0},
	}
	for _, tc := range cases {
		if got := TenureMonths(hire, tc.asOf); got != tc.want {
			t.Fatalf("TenureMonths(%v) = %d, want %d", tc.asOf, got, tc.want)
		}
	}
}

func TestFullName(t *testing.T) {
	e := Employee{FirstName: "Ada", LastName: "Okoro"}
	if e.FullName() != "Ada Okoro" {
		t.Fatalf("unexpected full name: %q", e.FullName())
	}
	if (Employee{FirstName: "Ada"}).FullName() != "Ada" {
		t.Fatal("expected first name only")
	}
}
