package attendance

import "errors"

var (
	ErrDayNotFound       = errors.New("attendance day not found")
	ErrDuplicateCheckIn  = errors.New("already checked in today")
	ErrDuplicateCheckOut = errors.New("already checked out today")
	ErrNoCheckIn         = errors.New("no check-in recorded today")
	ErrBreakAlreadyOpen  = errors.New("a break is already open")
	ErrNoOpenBreak       = errors.New("no open break to end")
	ErrSummaryNotFound   = errors.New("attendance summary not found")
)
