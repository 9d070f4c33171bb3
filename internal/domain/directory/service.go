package directory

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

func (s *Service) Get(ctx context.Context, tenantID, employeeID string) (Employee, error) {
	var e Employee
	err := s.DB.QueryRow(ctx, `
    SELECT id, user_id, first_name, last_name, email, department_id, position, COALESCE(manager_id, ''), hire_date, end_date, status, created_at
    FROM employees
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, employeeID).Scan(&e.ID, &e.UserID, &e.FirstName, &e.LastName, &e.Email, &e.DepartmentID, &e.Position, &e.ManagerID, &e.HireDate, &e.EndDate, &e.Status, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrEmployeeGone
	}
	if err != nil {
		return Employee{}, err
	}
	return e, nil
}

func (s *Service) GetByUserID(ctx context.Context, tenantID, userID string) (Employee, error) {
	var employeeID string
	err := s.DB.QueryRow(ctx, `
    SELECT id FROM employees WHERE tenant_id = $1 AND user_id = $2
  `, tenantID, userID).Scan(&employeeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrEmployeeGone
	}
	if err != nil {
		return Employee{}, err
	}
	return s.Get(ctx, tenantID, employeeID)
}

func (s *Service) ManagerID(ctx context.Context, tenantID, employeeID string) (string, error) {
	var managerID string
	err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(manager_id, '') FROM employees WHERE tenant_id = $1 AND id = $2
  `, tenantID, employeeID).Scan(&managerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrEmployeeGone
	}
	if err != nil {
		return "", err
	}
	return managerID, nil
}

// ApproverChain derives the default leave approver sequence for an employee:
// the first maxSteps managers walking up the hierarchy.
func (s *Service) ApproverChain(ctx context.Context, tenantID, employeeID string, maxSteps int) ([]string, error) {
	chain, err := ManagerChain(ctx, s, tenantID, employeeID, DefaultMaxChainDepth)
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, ErrNoManager
	}
	if maxSteps > 0 && len(chain) > maxSteps {
		chain = chain[:maxSteps]
	}
	return chain, nil
}

func (s *Service) IsManagerOf(ctx context.Context, tenantID, managerEmployeeID, employeeID string) (bool, error) {
	chain, err := ManagerChain(ctx, s, tenantID, employeeID, DefaultMaxChainDepth)
	if err != nil {
		return false, err
	}
	for _, id := range chain {
		if id == managerEmployeeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) List(ctx context.Context, tenantID string) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, user_id, first_name, last_name, email, department_id, position, COALESCE(manager_id, ''), hire_date, end_date, status, created_at
    FROM employees
    WHERE tenant_id = $1
    ORDER BY last_name, first_name
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.UserID, &e.FirstName, &e.LastName, &e.Email, &e.DepartmentID, &e.Position, &e.ManagerID, &e.HireDate, &e.EndDate, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, nil
}

func (s *Service) Create(ctx context.Context, tenantID string, e Employee) (string, error) {
	var managerID any
	if e.ManagerID != "" {
		managerID = e.ManagerID
	}
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO employees (tenant_id, user_id, first_name, last_name, email, department_id, position, manager_id, hire_date, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    RETURNING id
  `, tenantID, e.UserID, e.FirstName, e.LastName, e.Email, e.DepartmentID, e.Position, managerID, e.HireDate, e.Status).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Service) ListDepartments(ctx context.Context, tenantID string) ([]Department, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, COALESCE(parent_id, ''), COALESCE(manager_id, ''), created_at
    FROM departments
    WHERE tenant_id = $1
    ORDER BY name
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var departments []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.ParentID, &d.ManagerID, &d.CreatedAt); err != nil {
			return nil, err
		}
		departments = append(departments, d)
	}
	return departments, nil
}

// Tenure is a convenience over TenureMonths for the current moment.
func (s *Service) Tenure(e Employee) int {
	return TenureMonths(e.HireDate, time.Now())
}
