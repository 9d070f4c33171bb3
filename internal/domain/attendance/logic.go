package attendance

import (
	"time"

	"workforce/internal/domain/shift"
)

// LateMinutes measures how far past the flexible start window the check-in
// landed. A check-in at 09:15 against a 09:00 shift with 10 flexible minutes
// is 5 minutes late.
func LateMinutes(checkIn time.Time, sh shift.Shift) int {
	late := shift.MinuteOfDay(checkIn) - sh.StartMinute - sh.FlexibleMinutes
	if late < 0 {
		return 0
	}
	return late
}

// EarlyLeaveMinutes measures a check-out before the scheduled end.
func EarlyLeaveMinutes(checkOut time.Time, sh shift.Shift) int {
	early := sh.EndMinute - shift.MinuteOfDay(checkOut)
	if early < 0 {
		return 0
	}
	return early
}

// OvertimeMinutes measures work past the scheduled end plus grace, capped at
// the shift's overtime ceiling when one is configured.
func OvertimeMinutes(checkOut time.Time, sh shift.Shift) int {
	over := shift.MinuteOfDay(checkOut) - sh.EndMinute - sh.GraceMinutes
	if over < 0 {
		return 0
	}
	if sh.MaxOvertimeMinutes > 0 && over > sh.MaxOvertimeMinutes {
		return sh.MaxOvertimeMinutes
	}
	return over
}

// WorkedMinutes is presence time net of breaks.
func WorkedMinutes(checkIn, checkOut time.Time, breakMinutes int) int {
	worked := int(checkOut.Sub(checkIn).Minutes()) - breakMinutes
	if worked < 0 {
		return 0
	}
	return worked
}

// DeriveStatus resolves the day's status. An approved leave covering the
// date wins over everything; otherwise absence is only declared once the
// work day has fully elapsed without a check-in.
func DeriveStatus(d Day, onLeave, dayElapsed bool) Status {
	switch {
	case onLeave:
		return StatusOnLeave
	case d.CheckInAt == nil && dayElapsed:
		return StatusAbsent
	case d.CheckInAt == nil:
		return ""
	case d.LateMinutes > 0:
		return StatusLate
	default:
		return StatusPresent
	}
}
