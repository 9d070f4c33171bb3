package directory

import "time"

type Employee struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Email        string     `json:"email"`
	DepartmentID string     `json:"departmentId"`
	Position     string     `json:"position"`
	ManagerID    string     `json:"managerId"`
	HireDate     time.Time  `json:"hireDate"`
	EndDate      *time.Time `json:"endDate,omitempty"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// FullName is derived on read; the parts are the single source of truth.
func (e Employee) FullName() string {
	if e.FirstName == "" {
		return e.LastName
	}
	if e.LastName == "" {
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}

type Department struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  string    `json:"parentId"`
	ManagerID string    `json:"managerId"`
	CreatedAt time.Time `json:"createdAt"`
}

// TenureMonths returns whole months of service between hire and asOf.
func TenureMonths(hireDate, asOf time.Time) int {
	if asOf.Before(hireDate) {
		return 0
	}
	months := (asOf.Year()-hireDate.Year())*12 + int(asOf.Month()) - int(hireDate.Month())
	if asOf.Day() < hireDate.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
