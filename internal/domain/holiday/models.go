package holiday

import "time"

// Holiday is either a one-off date or, when Recurrence holds an RRULE
// (e.g. "FREQ=YEARLY"), a repeating rule anchored at Date. DepartmentID
// scopes the holiday to one department; empty means organisation-wide.
type Holiday struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Date         time.Time `json:"date"`
	Recurrence   string    `json:"recurrence,omitempty"`
	DepartmentID string    `json:"departmentId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

const dateKeyLayout = "2006-01-02"

func dateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}
