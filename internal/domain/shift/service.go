package shift

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"workforce/internal/platform/querier"
)

type Service struct {
	DB querier.Querier
}

func NewService(db querier.Querier) *Service {
	return &Service{DB: db}
}

func scanShift(row pgx.Row) (Shift, error) {
	var s Shift
	var weekdays []int32
	err := row.Scan(&s.ID, &s.Name, &s.StartMinute, &s.EndMinute,
		&s.BreakStartMinute, &s.BreakEndMinute, &s.FlexibleMinutes,
		&s.GraceMinutes, &s.MaxOvertimeMinutes, &weekdays, &s.CreatedAt)
	if err != nil {
		return Shift{}, err
	}
	for _, wd := range weekdays {
		s.WorkingWeekdays = append(s.WorkingWeekdays, time.Weekday(wd))
	}
	return s, nil
}

const shiftColumns = `
    id, name, start_minute, end_minute, break_start_minute, break_end_minute,
    flexible_minutes, grace_minutes, max_overtime_minutes, working_weekdays, created_at`

func (s *Service) Get(ctx context.Context, tenantID, shiftID string) (Shift, error) {
	sh, err := scanShift(s.DB.QueryRow(ctx, `
    SELECT`+shiftColumns+`
    FROM work_shifts
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, shiftID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Shift{}, ErrNotFound
	}
	if err != nil {
		return Shift{}, err
	}
	return sh, nil
}

func (s *Service) List(ctx context.Context, tenantID string) ([]Shift, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT`+shiftColumns+`
    FROM work_shifts
    WHERE tenant_id = $1
    ORDER BY name
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shifts []Shift
	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, sh)
	}
	return shifts, nil
}

func (s *Service) Create(ctx context.Context, tenantID string, sh Shift) (string, error) {
	weekdays := make([]int32, 0, len(sh.WorkingWeekdays))
	for _, wd := range sh.WorkingWeekdays {
		if wd < time.Sunday || wd > time.Saturday {
			return "", ErrBadWeekday
		}
		weekdays = append(weekdays, int32(wd))
	}

	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO work_shifts
      (tenant_id, name, start_minute, end_minute, break_start_minute, break_end_minute,
       flexible_minutes, grace_minutes, max_overtime_minutes, working_weekdays)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    RETURNING id
  `, tenantID, sh.Name, sh.StartMinute, sh.EndMinute, sh.BreakStartMinute, sh.BreakEndMinute,
		sh.FlexibleMinutes, sh.GraceMinutes, sh.MaxOvertimeMinutes, weekdays).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Service) Assign(ctx context.Context, tenantID string, a Assignment) (string, error) {
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO shift_assignments (tenant_id, employee_id, shift_id, valid_from, valid_to)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id
  `, tenantID, a.EmployeeID, a.ShiftID, a.From, a.To).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

// EffectiveShift resolves the shift governing an employee on a date: the
// assignment covering the date with the latest start wins.
func (s *Service) EffectiveShift(ctx context.Context, tenantID, employeeID string, date time.Time) (Shift, error) {
	sh, err := scanShift(s.DB.QueryRow(ctx, `
    SELECT`+shiftColumns+`
    FROM work_shifts
    WHERE tenant_id = $1 AND id = (
      SELECT shift_id
      FROM shift_assignments
      WHERE tenant_id = $1 AND employee_id = $2
        AND valid_from <= $3
        AND (valid_to IS NULL OR valid_to >= $3)
      ORDER BY valid_from DESC
      LIMIT 1
    )
  `, tenantID, employeeID, date))
	if errors.Is(err, pgx.ErrNoRows) {
		return Shift{}, ErrNoShift
	}
	if err != nil {
		return Shift{}, err
	}
	return sh, nil
}
