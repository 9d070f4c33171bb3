package balance

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance is the per-employee, per-policy, per-year leave ledger row. Rows
// are created on first allocation or rollover and never deleted; a new year
// gets a new row.
type Balance struct {
	ID         string          `json:"id"`
	EmployeeID string          `json:"employeeId"`
	PolicyID   string          `json:"policyId"`
	Year       int             `json:"year"`
	Allocated  decimal.Decimal `json:"allocatedDays"`
	Used       decimal.Decimal `json:"usedDays"`
	Carried    decimal.Decimal `json:"carriedForwardDays"`
	Adjustment decimal.Decimal `json:"adjustmentDays"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Remaining is the ledger invariant: allocated + carried + adjustment - used.
// Computed, never stored.
func Remaining(b Balance) decimal.Decimal {
	return b.Allocated.Add(b.Carried).Add(b.Adjustment).Sub(b.Used)
}

// CarryForward computes the days rolling into the next year: remaining
// capped by the policy limit, floored at zero (a negative ledger never
// carries debt forward).
func CarryForward(remaining, maxCarry decimal.Decimal) decimal.Decimal {
	if remaining.IsNegative() {
		return decimal.Zero
	}
	if remaining.GreaterThan(maxCarry) {
		return maxCarry
	}
	return remaining
}

// Adjustment entries audit every manual ledger correction.
type AdjustmentEntry struct {
	ID         string          `json:"id"`
	EmployeeID string          `json:"employeeId"`
	PolicyID   string          `json:"policyId"`
	Year       int             `json:"year"`
	Delta      decimal.Decimal `json:"deltaDays"`
	Reason     string          `json:"reason"`
	CreatedBy  string          `json:"createdBy"`
	CreatedAt  time.Time       `json:"createdAt"`
}
