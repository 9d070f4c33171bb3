package attendance

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusOnLeave Status = "on_leave"
)

// Day is the per-employee per-date attendance row. It is created on the
// first check-in of the day and mutated by later check-out and break events;
// the raw events themselves live in the append-only Event log.
type Day struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employeeId"`
	Date       time.Time `json:"date"`

	CheckInAt        *time.Time `json:"checkInAt,omitempty"`
	CheckOutAt       *time.Time `json:"checkOutAt,omitempty"`
	CheckInLocation  string     `json:"checkInLocation,omitempty"`
	CheckOutLocation string     `json:"checkOutLocation,omitempty"`

	// BreakOpenedAt is set while a break is in progress and cleared when it
	// ends; accumulated time lands in BreakMinutes.
	BreakOpenedAt *time.Time `json:"breakOpenedAt,omitempty"`
	BreakMinutes  int        `json:"breakMinutes"`

	WorkedMinutes     int `json:"workedMinutes"`
	LateMinutes       int `json:"lateMinutes"`
	EarlyLeaveMinutes int `json:"earlyLeaveMinutes"`
	OvertimeMinutes   int `json:"overtimeMinutes"`

	Status      Status    `json:"status"`
	ManagerNote string    `json:"managerNote,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type EventKind string

const (
	EventCheckIn    EventKind = "check_in"
	EventCheckOut   EventKind = "check_out"
	EventBreakStart EventKind = "break_start"
	EventBreakEnd   EventKind = "break_end"
)

// Event is one raw clock event. Rows are only ever inserted; the Day row is
// reconstructable from them.
type Event struct {
	ID         string    `json:"id"`
	DayID      string    `json:"dayId"`
	EmployeeID string    `json:"employeeId"`
	Kind       EventKind `json:"kind"`
	At         time.Time `json:"at"`
	Location   string    `json:"location,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Summary is the monthly rollup, one row per (employee, year, month). It
// stores only recomputable facts; rates and hour figures are derived on
// read so that re-running the summarizer over the same data produces an
// identical row.
type Summary struct {
	EmployeeID string `json:"employeeId"`
	Year       int    `json:"year"`
	Month      int    `json:"month"`

	TotalWorkingDays  int `json:"totalWorkingDays"`
	ActualWorkingDays int `json:"actualWorkingDays"`
	AbsentDays        int `json:"absentDays"`
	LateDays          int `json:"lateDays"`
	EarlyLeaveDays    int `json:"earlyLeaveDays"`

	VacationLeaveDays int `json:"vacationLeaveDays"`
	SickLeaveDays     int `json:"sickLeaveDays"`
	PersonalLeaveDays int `json:"personalLeaveDays"`
	OtherLeaveDays    int `json:"otherLeaveDays"`

	WorkedMinutes   int `json:"workedMinutes"`
	BreakMinutes    int `json:"breakMinutes"`
	LateMinutes     int `json:"lateMinutes"`
	OvertimeMinutes int `json:"overtimeMinutes"`
}

// AttendanceRate is the percentage of scheduled days actually worked.
func (s Summary) AttendanceRate() decimal.Decimal {
	if s.TotalWorkingDays == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(s.ActualWorkingDays)).
		Div(decimal.NewFromInt(int64(s.TotalWorkingDays))).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}

func (s Summary) TotalWorkingHours() decimal.Decimal {
	return decimal.NewFromInt(int64(s.WorkedMinutes)).Div(decimal.NewFromInt(60)).Round(2)
}

func (s Summary) OvertimeHours() decimal.Decimal {
	return decimal.NewFromInt(int64(s.OvertimeMinutes)).Div(decimal.NewFromInt(60)).Round(2)
}
