package policy

import (
	"time"

	"github.com/shopspring/decimal"
)

type LeaveType string

const (
	TypeAnnual    LeaveType = "annual"
	TypeSick      LeaveType = "sick"
	TypePersonal  LeaveType = "personal"
	TypeMaternity LeaveType = "maternity"
	TypeUnpaid    LeaveType = "unpaid"
)

func ValidType(t LeaveType) bool {
	switch t {
	case TypeAnnual, TypeSick, TypePersonal, TypeMaternity, TypeUnpaid:
		return true
	}
	return false
}

// LeavePolicy is a named entitlement rule set. Policies are never hard
// deleted; retiring one clears the Active flag so historical balances keep
// their reference.
type LeavePolicy struct {
	ID                    string          `json:"id"`
	Name                  string          `json:"name"`
	LeaveType             LeaveType       `json:"leaveType"`
	AnnualAllowanceDays   decimal.Decimal `json:"annualAllowanceDays"`
	MaxCarryForwardDays   decimal.Decimal `json:"maxCarryForwardDays"`
	MaxConsecutiveDays    int             `json:"maxConsecutiveDays"`
	MinAdvanceNoticeDays  int             `json:"minAdvanceNoticeDays"`
	RequiresDocumentation bool            `json:"requiresDocumentation"`
	Paid                  bool            `json:"paid"`
	AllowNegative         bool            `json:"allowNegative"`
	Departments           []string        `json:"departments,omitempty"`
	Positions             []string        `json:"positions,omitempty"`
	MinTenureMonths       int             `json:"minTenureMonths"`
	Active                bool            `json:"active"`
	EffectiveFrom         time.Time       `json:"effectiveFrom"`
	EffectiveTo           *time.Time      `json:"effectiveTo,omitempty"`
	CreatedAt             time.Time       `json:"createdAt"`
}
