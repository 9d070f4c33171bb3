package shift

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound   = errors.New("work shift not found")
	ErrNoShift    = errors.New("no effective shift for employee on date")
	ErrBadClock   = errors.New("invalid clock time")
	ErrBadWeekday = errors.New("invalid working weekday")
)

// Shift is a work-time template. Clock fields are minutes from midnight in
// the shift's local day; WorkingWeekdays uses time.Weekday numbering.
type Shift struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	StartMinute        int            `json:"startMinute"`
	EndMinute          int            `json:"endMinute"`
	BreakStartMinute   int            `json:"breakStartMinute"`
	BreakEndMinute     int            `json:"breakEndMinute"`
	FlexibleMinutes    int            `json:"flexibleMinutes"`
	GraceMinutes       int            `json:"graceMinutes"`
	MaxOvertimeMinutes int            `json:"maxOvertimeMinutes"`
	WorkingWeekdays    []time.Weekday `json:"workingWeekdays"`
	CreatedAt          time.Time      `json:"createdAt"`
}

// Assignment binds an employee to a shift for a date range; a nil To means
// open-ended. Overlaps resolve to the latest-starting assignment.
type Assignment struct {
	ID         string     `json:"id"`
	EmployeeID string     `json:"employeeId"`
	ShiftID    string     `json:"shiftId"`
	From       time.Time  `json:"from"`
	To         *time.Time `json:"to,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// ParseClock converts "HH:MM" into minutes from midnight.
func ParseClock(value string) (int, error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadClock, value)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

// FormatClock renders minutes from midnight as "HH:MM".
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// MinuteOfDay projects a timestamp onto the shift clock.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// IsWorkDay reports whether the shift schedules work on the date's weekday.
// A shift without explicit weekdays works Monday through Friday.
func (s Shift) IsWorkDay(date time.Time) bool {
	if len(s.WorkingWeekdays) == 0 {
		wd := date.Weekday()
		return wd != time.Saturday && wd != time.Sunday
	}
	for _, wd := range s.WorkingWeekdays {
		if wd == date.Weekday() {
			return true
		}
	}
	return false
}

// WorkingDates lists the scheduled working dates of a month, excluding
// holidays. Used by the attendance summarizer as the denominator.
func WorkingDates(s Shift, year int, month time.Month, isHoliday func(time.Time) bool) []time.Time {
	var dates []time.Time
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
		if !s.IsWorkDay(d) {
			continue
		}
		if isHoliday != nil && isHoliday(d) {
			continue
		}
		dates = append(dates, d)
	}
	return dates
}
