package balance

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("leave balance not found")

	ErrInsufficientBalance = errors.New("insufficient leave balance")

	// ErrInconsistency indicates a release would drive used days negative.
	// That is a sequencing defect, not user input: callers log it and the
	// ledger clamps instead of going negative.
	ErrInconsistency = errors.New("leave balance inconsistency")
)

// InsufficientBalanceError carries the shortfall context for user messages.
type InsufficientBalanceError struct {
	EmployeeID string
	PolicyID   string
	Year       int
	Available  decimal.Decimal
	Requested  decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for employee %s policy %s year %d: available %s, requested %s",
		e.EmployeeID, e.PolicyID, e.Year, e.Available.String(), e.Requested.String())
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// Insufficient builds the structured error; exported so the request engine
// can report submission-time balance checks with the same shape.
func Insufficient(employeeID, policyID string, year int, available, requested decimal.Decimal) error {
	return &InsufficientBalanceError{
		EmployeeID: employeeID,
		PolicyID:   policyID,
		Year:       year,
		Available:  available,
		Requested:  requested,
	}
}
