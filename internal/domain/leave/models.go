package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

// Request is a leave request. Employee, policy and the date range are fixed
// at creation; only status, comments and approval metadata change afterwards.
type Request struct {
	ID              string          `json:"id"`
	EmployeeID      string          `json:"employeeId"`
	PolicyID        string          `json:"policyId"`
	StartDate       time.Time       `json:"startDate"`
	EndDate         time.Time       `json:"endDate"`
	Days            decimal.Decimal `json:"requestedDays"`
	Reason          string          `json:"reason"`
	CoverEmployeeID string          `json:"coverEmployeeId,omitempty"`
	Status          Status          `json:"status"`
	ManagerComments string          `json:"managerComments,omitempty"`
	ApprovedBy      string          `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time      `json:"approvedAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Approval is one step of a request's ordered approval chain. Step order is
// unique per request; the chain freezes once any step is rejected or all are
// approved.
type Approval struct {
	ID          string     `json:"id"`
	RequestID   string     `json:"requestId"`
	ApproverID  string     `json:"approverId"`
	StepOrder   int        `json:"stepOrder"`
	Status      Status     `json:"status"`
	Comments    string     `json:"comments,omitempty"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
}

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)
