package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"workforce/internal/domain/directory"
	"workforce/internal/domain/leave"
	"workforce/internal/domain/policy"
	"workforce/internal/domain/shift"
)

type ShiftSchedule interface {
	EffectiveShift(ctx context.Context, tenantID, employeeID string, date time.Time) (shift.Shift, error)
}

type LeaveSource interface {
	ApprovedInRange(ctx context.Context, tenantID, employeeID string, from, to time.Time) ([]leave.Request, error)
}

type PolicyCatalog interface {
	Get(ctx context.Context, tenantID, policyID string) (policy.LeavePolicy, error)
}

type HolidayLookup interface {
	DatesInRange(ctx context.Context, tenantID, departmentID string, from, to time.Time) (map[string]bool, error)
}

type EmployeeDirectory interface {
	Get(ctx context.Context, tenantID, employeeID string) (directory.Employee, error)
}

type Service struct {
	store     StoreAPI
	shifts    ShiftSchedule
	leaves    LeaveSource
	policies  PolicyCatalog
	holidays  HolidayLookup
	employees EmployeeDirectory

	now func() time.Time
}

func NewService(store StoreAPI, shifts ShiftSchedule, leaves LeaveSource, policies PolicyCatalog, holidays HolidayLookup, employees EmployeeDirectory) *Service {
	return &Service{
		store:     store,
		shifts:    shifts,
		leaves:    leaves,
		policies:  policies,
		holidays:  holidays,
		employees: employees,
		now:       time.Now,
	}
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CheckIn opens today's attendance row. The row insert carries the unique
// (employee, date) key, so a concurrent duplicate resolves to
// ErrDuplicateCheckIn for exactly one caller.
func (s *Service) CheckIn(ctx context.Context, tenantID, employeeID string, at time.Time, location string) (Day, error) {
	sh, err := s.shifts.EffectiveShift(ctx, tenantID, employeeID, at)
	if err != nil {
		return Day{}, err
	}
	date := dateOf(at)

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return Day{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	existing, err := s.store.GetDayForUpdateTx(ctx, tx, tenantID, employeeID, date)
	if err == nil {
		if existing.CheckInAt != nil {
			return Day{}, ErrDuplicateCheckIn
		}
		// Row pre-created by manager correction: fill the check-in fields.
		existing.CheckInAt = &at
		existing.CheckInLocation = location
		existing.LateMinutes = LateMinutes(at, sh)
		existing.Status = DeriveStatus(existing, false, false)
		if err := s.store.UpdateDayTx(ctx, tx, tenantID, existing); err != nil {
			return Day{}, err
		}
		if err := s.recordEventTx(ctx, tx, tenantID, existing.ID, employeeID, EventCheckIn, at, location); err != nil {
			return Day{}, err
		}
		if err := tx.Commit(ctx); err != nil {
			return Day{}, err
		}
		return existing, nil
	}
	if !errors.Is(err, ErrDayNotFound) {
		return Day{}, err
	}

	day := Day{
		EmployeeID:      employeeID,
		Date:            date,
		CheckInAt:       &at,
		CheckInLocation: location,
		LateMinutes:     LateMinutes(at, sh),
	}
	day.Status = DeriveStatus(day, false, false)

	id, err := s.store.InsertDayTx(ctx, tx, tenantID, day)
	if err != nil {
		return Day{}, err
	}
	day.ID = id
	if err := s.recordEventTx(ctx, tx, tenantID, id, employeeID, EventCheckIn, at, location); err != nil {
		return Day{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Day{}, err
	}
	return day, nil
}

// CheckOut closes today's row and finalizes the derived minute fields. An
// open break is closed at the check-out instant rather than discarded.
func (s *Service) CheckOut(ctx context.Context, tenantID, employeeID string, at time.Time, location string) (Day, error) {
	sh, err := s.shifts.EffectiveShift(ctx, tenantID, employeeID, at)
	if err != nil {
		return Day{}, err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return Day{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	day, err := s.store.GetDayForUpdateTx(ctx, tx, tenantID, employeeID, dateOf(at))
	if errors.Is(err, ErrDayNotFound) {
		return Day{}, ErrNoCheckIn
	}
	if err != nil {
		return Day{}, err
	}
	if day.CheckInAt == nil {
		return Day{}, ErrNoCheckIn
	}
	if day.CheckOutAt != nil {
		return Day{}, ErrDuplicateCheckOut
	}

	if day.BreakOpenedAt != nil {
		day.BreakMinutes += minutesBetween(*day.BreakOpenedAt, at)
		day.BreakOpenedAt = nil
		if err := s.recordEventTx(ctx, tx, tenantID, day.ID, employeeID, EventBreakEnd, at, location); err != nil {
			return Day{}, err
		}
	}

	day.CheckOutAt = &at
	day.CheckOutLocation = location
	day.WorkedMinutes = WorkedMinutes(*day.CheckInAt, at, day.BreakMinutes)
	day.EarlyLeaveMinutes = EarlyLeaveMinutes(at, sh)
	day.OvertimeMinutes = OvertimeMinutes(at, sh)
	day.Status = DeriveStatus(day, false, false)

	if err := s.store.UpdateDayTx(ctx, tx, tenantID, day); err != nil {
		return Day{}, err
	}
	if err := s.recordEventTx(ctx, tx, tenantID, day.ID, employeeID, EventCheckOut, at, location); err != nil {
		return Day{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Day{}, err
	}
	return day, nil
}

type BreakAction string

const (
	BreakStart BreakAction = "start"
	BreakEnd   BreakAction = "end"
)

func (s *Service) RecordBreak(ctx context.Context, tenantID, employeeID string, action BreakAction, at time.Time) (Day, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return Day{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	day, err := s.store.GetDayForUpdateTx(ctx, tx, tenantID, employeeID, dateOf(at))
	if errors.Is(err, ErrDayNotFound) {
		return Day{}, ErrNoCheckIn
	}
	if err != nil {
		return Day{}, err
	}
	if day.CheckInAt == nil {
		return Day{}, ErrNoCheckIn
	}
	if day.CheckOutAt != nil {
		return Day{}, ErrDuplicateCheckOut
	}

	switch action {
	case BreakStart:
		if day.BreakOpenedAt != nil {
			return Day{}, ErrBreakAlreadyOpen
		}
		day.BreakOpenedAt = &at
		if err := s.recordEventTx(ctx, tx, tenantID, day.ID, employeeID, EventBreakStart, at, ""); err != nil {
			return Day{}, err
		}
	case BreakEnd:
		if day.BreakOpenedAt == nil {
			return Day{}, ErrNoOpenBreak
		}
		day.BreakMinutes += minutesBetween(*day.BreakOpenedAt, at)
		day.BreakOpenedAt = nil
		if err := s.recordEventTx(ctx, tx, tenantID, day.ID, employeeID, EventBreakEnd, at, ""); err != nil {
			return Day{}, err
		}
	default:
		return Day{}, ErrNoOpenBreak
	}

	if err := s.store.UpdateDayTx(ctx, tx, tenantID, day); err != nil {
		return Day{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Day{}, err
	}
	return day, nil
}

// Status reads the day and resolves its effective status: approved leave
// overrides recorded presence, and absence is only declared once the shift's
// scheduled end has passed.
func (s *Service) Status(ctx context.Context, tenantID, employeeID string, date time.Time) (Day, error) {
	date = dateOf(date)
	day, err := s.store.GetDay(ctx, tenantID, employeeID, date)
	if err != nil && !errors.Is(err, ErrDayNotFound) {
		return Day{}, err
	}
	if errors.Is(err, ErrDayNotFound) {
		day = Day{EmployeeID: employeeID, Date: date}
	}

	approved, err := s.leaves.ApprovedInRange(ctx, tenantID, employeeID, date, date)
	if err != nil {
		return Day{}, err
	}

	elapsed := false
	sh, err := s.shifts.EffectiveShift(ctx, tenantID, employeeID, date)
	if err == nil {
		endOfDay := date.Add(time.Duration(sh.EndMinute+sh.GraceMinutes) * time.Minute)
		elapsed = s.now().After(endOfDay)
	} else if !errors.Is(err, shift.ErrNoShift) {
		return Day{}, err
	}

	day.Status = DeriveStatus(day, len(approved) > 0, elapsed)
	return day, nil
}

func (s *Service) Days(ctx context.Context, tenantID, employeeID string, from, to time.Time) ([]Day, error) {
	return s.store.ListDays(ctx, tenantID, employeeID, dateOf(from), dateOf(to))
}

func (s *Service) Events(ctx context.Context, tenantID, dayID string) ([]Event, error) {
	return s.store.ListEvents(ctx, tenantID, dayID)
}

// Summarize recomputes and stores the monthly rollup. Every input is
// re-read, so re-running over unchanged data writes an identical row.
func (s *Service) Summarize(ctx context.Context, tenantID, employeeID string, year int, month time.Month) (Summary, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	emp, err := s.employees.Get(ctx, tenantID, employeeID)
	if err != nil {
		return Summary{}, err
	}
	sh, err := s.shifts.EffectiveShift(ctx, tenantID, employeeID, first)
	if err != nil {
		return Summary{}, err
	}
	holidaySet, err := s.holidays.DatesInRange(ctx, tenantID, emp.DepartmentID, first, last)
	if err != nil {
		return Summary{}, err
	}
	isHoliday := func(d time.Time) bool { return holidaySet[d.Format("2006-01-02")] }

	workingDates := shift.WorkingDates(sh, year, month, isHoliday)

	days, err := s.store.ListDays(ctx, tenantID, employeeID, first, last)
	if err != nil {
		return Summary{}, err
	}
	approved, err := s.leaves.ApprovedInRange(ctx, tenantID, employeeID, first, last)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{EmployeeID: employeeID, Year: year, Month: int(month)}
	sum.TotalWorkingDays = len(workingDates)

	for _, d := range days {
		if d.CheckInAt == nil {
			continue
		}
		sum.ActualWorkingDays++
		if d.LateMinutes > 0 {
			sum.LateDays++
		}
		if d.EarlyLeaveMinutes > 0 {
			sum.EarlyLeaveDays++
		}
		sum.WorkedMinutes += d.WorkedMinutes
		sum.BreakMinutes += d.BreakMinutes
		sum.LateMinutes += d.LateMinutes
		sum.OvertimeMinutes += d.OvertimeMinutes
	}

	leaveDays := 0
	for _, req := range approved {
		pol, err := s.policies.Get(ctx, tenantID, req.PolicyID)
		if err != nil {
			return Summary{}, err
		}
		count := 0
		for _, d := range workingDates {
			if !d.Before(dateOf(req.StartDate)) && !d.After(dateOf(req.EndDate)) {
				count++
			}
		}
		leaveDays += count
		switch pol.LeaveType {
		case policy.TypeAnnual:
			sum.VacationLeaveDays += count
		case policy.TypeSick:
			sum.SickLeaveDays += count
		case policy.TypePersonal:
			sum.PersonalLeaveDays += count
		default:
			sum.OtherLeaveDays += count
		}
	}

	sum.AbsentDays = sum.TotalWorkingDays - sum.ActualWorkingDays - leaveDays
	if sum.AbsentDays < 0 {
		sum.AbsentDays = 0
	}

	if err := s.store.UpsertSummary(ctx, tenantID, sum); err != nil {
		return Summary{}, err
	}
	return sum, nil
}

func (s *Service) Summary(ctx context.Context, tenantID, employeeID string, year, month int) (Summary, error) {
	return s.store.GetSummary(ctx, tenantID, employeeID, year, month)
}

func (s *Service) recordEventTx(ctx context.Context, tx pgx.Tx, tenantID, dayID, employeeID string, kind EventKind, at time.Time, location string) error {
	return s.store.InsertEventTx(ctx, tx, tenantID, Event{
		DayID:      dayID,
		EmployeeID: employeeID,
		Kind:       kind,
		At:         at,
		Location:   location,
	})
}

func minutesBetween(from, to time.Time) int {
	m := int(to.Sub(from).Minutes())
	if m < 0 {
		return 0
	}
	return m
}
