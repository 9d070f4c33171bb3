package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"workforce/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	return s.DB.Begin(ctx)
}

const dayColumns = `
    id, employee_id, date, check_in_at, check_out_at, check_in_location,
    check_out_location, break_opened_at, break_minutes, worked_minutes,
    late_minutes, early_leave_minutes, overtime_minutes, status, manager_note,
    created_at`

func scanDay(row pgx.Row) (Day, error) {
	var d Day
	var status, checkInLoc, checkOutLoc, note *string
	err := row.Scan(&d.ID, &d.EmployeeID, &d.Date, &d.CheckInAt, &d.CheckOutAt,
		&checkInLoc, &checkOutLoc, &d.BreakOpenedAt, &d.BreakMinutes,
		&d.WorkedMinutes, &d.LateMinutes, &d.EarlyLeaveMinutes,
		&d.OvertimeMinutes, &status, &note, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Day{}, ErrDayNotFound
	}
	if err != nil {
		return Day{}, err
	}
	if status != nil {
		d.Status = Status(*status)
	}
	if checkInLoc != nil {
		d.CheckInLocation = *checkInLoc
	}
	if checkOutLoc != nil {
		d.CheckOutLocation = *checkOutLoc
	}
	if note != nil {
		d.ManagerNote = *note
	}
	return d, nil
}

func (s *Store) InsertDayTx(ctx context.Context, tx pgx.Tx, tenantID string, d Day) (string, error) {
	id := uuid.NewString()
	_, err := tx.Exec(ctx, `
    INSERT INTO attendance_days (
      id, tenant_id, employee_id, date, check_in_at, check_in_location,
      break_minutes, worked_minutes, late_minutes, early_leave_minutes,
      overtime_minutes, status, created_at
    ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
  `, id, tenantID, d.EmployeeID, d.Date, d.CheckInAt, d.CheckInLocation,
		d.BreakMinutes, d.WorkedMinutes, d.LateMinutes, d.EarlyLeaveMinutes,
		d.OvertimeMinutes, string(d.Status))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return "", ErrDuplicateCheckIn
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) GetDayForUpdateTx(ctx context.Context, tx pgx.Tx, tenantID, employeeID string, date time.Time) (Day, error) {
	return scanDay(tx.QueryRow(ctx, `
    SELECT`+dayColumns+`
    FROM attendance_days
    WHERE tenant_id = $1 AND employee_id = $2 AND date = $3
    FOR UPDATE
  `, tenantID, employeeID, date))
}

func (s *Store) UpdateDayTx(ctx context.Context, tx pgx.Tx, tenantID string, d Day) error {
	tag, err := tx.Exec(ctx, `
    UPDATE attendance_days
    SET check_in_at = $3, check_out_at = $4, check_in_location = $5,
        check_out_location = $6, break_opened_at = $7, break_minutes = $8,
        worked_minutes = $9, late_minutes = $10, early_leave_minutes = $11,
        overtime_minutes = $12, status = $13, manager_note = $14
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, d.ID, d.CheckInAt, d.CheckOutAt, d.CheckInLocation,
		d.CheckOutLocation, d.BreakOpenedAt, d.BreakMinutes, d.WorkedMinutes,
		d.LateMinutes, d.EarlyLeaveMinutes, d.OvertimeMinutes, string(d.Status),
		d.ManagerNote)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDayNotFound
	}
	return nil
}

func (s *Store) InsertEventTx(ctx context.Context, tx pgx.Tx, tenantID string, ev Event) error {
	_, err := tx.Exec(ctx, `
    INSERT INTO attendance_events (id, tenant_id, day_id, employee_id, kind, at, location, created_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7, now())
  `, uuid.NewString(), tenantID, ev.DayID, ev.EmployeeID, string(ev.Kind), ev.At, ev.Location)
	return err
}

func (s *Store) GetDay(ctx context.Context, tenantID, employeeID string, date time.Time) (Day, error) {
	return scanDay(s.DB.QueryRow(ctx, `
    SELECT`+dayColumns+`
    FROM attendance_days
    WHERE tenant_id = $1 AND employee_id = $2 AND date = $3
  `, tenantID, employeeID, date))
}

func (s *Store) ListDays(ctx context.Context, tenantID, employeeID string, from, to time.Time) ([]Day, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT`+dayColumns+`
    FROM attendance_days
    WHERE tenant_id = $1 AND employee_id = $2 AND date >= $3 AND date <= $4
    ORDER BY date
  `, tenantID, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []Day
	for rows.Next() {
		d, err := scanDay(rows)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

func (s *Store) ListEvents(ctx context.Context, tenantID, dayID string) ([]Event, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, day_id, employee_id, kind, at, location, created_at
    FROM attendance_events
    WHERE tenant_id = $1 AND day_id = $2
    ORDER BY at, created_at
  `, tenantID, dayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var location *string
		if err := rows.Scan(&ev.ID, &ev.DayID, &ev.EmployeeID, &ev.Kind, &ev.At, &location, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if location != nil {
			ev.Location = *location
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *Store) UpsertSummary(ctx context.Context, tenantID string, sum Summary) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO attendance_summaries (
      id, tenant_id, employee_id, year, month,
      total_working_days, actual_working_days, absent_days, late_days, early_leave_days,
      vacation_leave_days, sick_leave_days, personal_leave_days, other_leave_days,
      worked_minutes, break_minutes, late_minutes, overtime_minutes
    ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
    ON CONFLICT (tenant_id, employee_id, year, month) DO UPDATE
    SET total_working_days = EXCLUDED.total_working_days,
        actual_working_days = EXCLUDED.actual_working_days,
        absent_days = EXCLUDED.absent_days,
        late_days = EXCLUDED.late_days,
        early_leave_days = EXCLUDED.early_leave_days,
        vacation_leave_days = EXCLUDED.vacation_leave_days,
        sick_leave_days = EXCLUDED.sick_leave_days,
        personal_leave_days = EXCLUDED.personal_leave_days,
        other_leave_days = EXCLUDED.other_leave_days,
        worked_minutes = EXCLUDED.worked_minutes,
        break_minutes = EXCLUDED.break_minutes,
        late_minutes = EXCLUDED.late_minutes,
        overtime_minutes = EXCLUDED.overtime_minutes
  `, uuid.NewString(), tenantID, sum.EmployeeID, sum.Year, sum.Month,
		sum.TotalWorkingDays, sum.ActualWorkingDays, sum.AbsentDays, sum.LateDays,
		sum.EarlyLeaveDays, sum.VacationLeaveDays, sum.SickLeaveDays,
		sum.PersonalLeaveDays, sum.OtherLeaveDays, sum.WorkedMinutes,
		sum.BreakMinutes, sum.LateMinutes, sum.OvertimeMinutes)
	return err
}

func (s *Store) GetSummary(ctx context.Context, tenantID, employeeID string, year, month int) (Summary, error) {
	var sum Summary
	err := s.DB.QueryRow(ctx, `
    SELECT employee_id, year, month,
           total_working_days, actual_working_days, absent_days, late_days, early_leave_days,
           vacation_leave_days, sick_leave_days, personal_leave_days, other_leave_days,
           worked_minutes, break_minutes, late_minutes, overtime_minutes
    FROM attendance_summaries
    WHERE tenant_id = $1 AND employee_id = $2 AND year = $3 AND month = $4
  `, tenantID, employeeID, year, month).Scan(
		&sum.EmployeeID, &sum.Year, &sum.Month,
		&sum.TotalWorkingDays, &sum.ActualWorkingDays, &sum.AbsentDays,
		&sum.LateDays, &sum.EarlyLeaveDays,
		&sum.VacationLeaveDays, &sum.SickLeaveDays, &sum.PersonalLeaveDays,
		&sum.OtherLeaveDays,
		&sum.WorkedMinutes, &sum.BreakMinutes, &sum.LateMinutes, &sum.OvertimeMinutes)
	if errors.Is(err, pgx.ErrNoRows) {
		return Summary{}, ErrSummaryNotFound
	}
	if err != nil {
		return Summary{}, err
	}
	return sum, nil
}
