package policy

import (
	"errors"
	"fmt"
	"time"

	"workforce/internal/domain/directory"
)

var (
	ErrNotFound      = errors.New("leave policy not found")
	ErrNotApplicable = errors.New("leave policy not applicable")
)

// NotApplicableError reports which eligibility rule blocked the policy.
type NotApplicableError struct {
	PolicyID   string
	EmployeeID string
	Rule       string
}

func (e *NotApplicableError) Error() string {
	return fmt.Sprintf("policy %s not applicable to employee %s: %s", e.PolicyID, e.EmployeeID, e.Rule)
}

func (e *NotApplicableError) Unwrap() error { return ErrNotApplicable }

// Applicable checks whether the policy can back a request by this employee
// as of the given date. The rules mirror the catalog's eligibility filter:
// active flag, effective window, department/position membership, and minimum
// tenure.
func Applicable(p LeavePolicy, emp directory.Employee, asOf time.Time) error {
	fail := func(rule string) error {
		return &NotApplicableError{PolicyID: p.ID, EmployeeID: emp.ID, Rule: rule}
	}

	if !p.Active {
		return fail("policy inactive")
	}
	if asOf.Before(p.EffectiveFrom) {
		return fail("before effective date")
	}
	if p.EffectiveTo != nil && asOf.After(*p.EffectiveTo) {
		return fail("after effective date")
	}
	if len(p.Departments) > 0 && !contains(p.Departments, emp.DepartmentID) {
		return fail("department not eligible")
	}
	if len(p.Positions) > 0 && !contains(p.Positions, emp.Position) {
		return fail("position not eligible")
	}
	if p.MinTenureMonths > 0 && directory.TenureMonths(emp.HireDate, asOf) < p.MinTenureMonths {
		return fail("tenure below minimum")
	}
	return nil
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
