package holiday

import (
	"context"
	"errors"
	"time"

	"workforce/internal/platform/querier"
)

var ErrNotFound = errors.New("holiday not found")

type Service struct {
	DB querier.Querier
}

func NewService(db querier.Querier) *Service {
	return &Service{DB: db}
}

func (s *Service) List(ctx context.Context, tenantID string) ([]Holiday, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, date, COALESCE(recurrence, ''), COALESCE(department_id, ''), created_at
    FROM holidays
    WHERE tenant_id = $1
    ORDER BY date
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []Holiday
	for rows.Next() {
		var h Holiday
		if err := rows.Scan(&h.ID, &h.Name, &h.Date, &h.Recurrence, &h.DepartmentID, &h.CreatedAt); err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}
	return holidays, nil
}

func (s *Service) Create(ctx context.Context, tenantID string, h Holiday) (string, error) {
	var departmentID any
	if h.DepartmentID != "" {
		departmentID = h.DepartmentID
	}
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO holidays (tenant_id, name, date, recurrence, department_id)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id
  `, tenantID, h.Name, h.Date, h.Recurrence, departmentID).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Service) Delete(ctx context.Context, tenantID, holidayID string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM holidays WHERE tenant_id = $1 AND id = $2", tenantID, holidayID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CalendarFor loads every holiday rule for the tenant and expands it over
// the window. Callers hold the snapshot for the life of one operation.
func (s *Service) CalendarFor(ctx context.Context, tenantID string, from, to time.Time) (*Calendar, error) {
	holidays, err := s.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return BuildCalendar(holidays, from, to)
}

// DatesInRange returns the holiday dates applicable to a department within
// [from, to] as a yyyy-mm-dd keyed set.
func (s *Service) DatesInRange(ctx context.Context, tenantID, departmentID string, from, to time.Time) (map[string]bool, error) {
	cal, err := s.CalendarFor(ctx, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	dates := make(map[string]bool)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if cal.IsPublicHoliday(d, departmentID) {
			dates[dateKey(d)] = true
		}
	}
	return dates, nil
}
