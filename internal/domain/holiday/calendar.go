package holiday

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// Calendar is a read-only expansion of holiday rules over a date window.
// Services receive it (or a lookup backed by it) instead of querying shared
// state ad hoc.
type Calendar struct {
	orgWide      map[string]bool
	byDepartment map[string]map[string]bool
}

// BuildCalendar expands one-off and recurring holidays into the [from, to]
// window. Recurring rules are expanded with their stored date as DTSTART.
func BuildCalendar(holidays []Holiday, from, to time.Time) (*Calendar, error) {
	cal := &Calendar{
		orgWide:      make(map[string]bool),
		byDepartment: make(map[string]map[string]bool),
	}

	for _, h := range holidays {
		dates, err := occurrences(h, from, to)
		if err != nil {
			return nil, fmt.Errorf("holiday %s: %w", h.ID, err)
		}
		for _, d := range dates {
			cal.add(h.DepartmentID, d)
		}
	}
	return cal, nil
}

func occurrences(h Holiday, from, to time.Time) ([]time.Time, error) {
	if h.Recurrence == "" {
		if h.Date.Before(from) || h.Date.After(to) {
			return nil, nil
		}
		return []time.Time{h.Date}, nil
	}

	option, err := rrule.StrToROption(h.Recurrence)
	if err != nil {
		return nil, err
	}
	option.Dtstart = h.Date

	rule, err := rrule.NewRRule(*option)
	if err != nil {
		return nil, err
	}

	var set rrule.Set
	set.RRule(rule)
	return set.Between(from, to, true), nil
}

func (c *Calendar) add(departmentID string, date time.Time) {
	key := dateKey(date)
	if departmentID == "" {
		c.orgWide[key] = true
		return
	}
	if c.byDepartment[departmentID] == nil {
		c.byDepartment[departmentID] = make(map[string]bool)
	}
	c.byDepartment[departmentID][key] = true
}

// IsPublicHoliday reports whether date is a holiday for the department.
// Organisation-wide holidays apply to every department.
func (c *Calendar) IsPublicHoliday(date time.Time, departmentID string) bool {
	key := dateKey(date)
	if c.orgWide[key] {
		return true
	}
	if departmentID == "" {
		return false
	}
	return c.byDepartment[departmentID][key]
}
