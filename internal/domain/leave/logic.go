package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// IsWeekend uses the Saturday/Sunday weekend. The business-day rule for
// requested-day counting: a day counts when it is neither a weekend day nor
// a public holiday applicable to the employee's department; holidays always
// exclude the whole day.
func IsWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// RequestedDays counts the working days within [start, end] inclusive.
// isWorkingDay decides per date; a nil func counts every non-weekend day.
func RequestedDays(start, end time.Time, isWorkingDay func(time.Time) bool) (decimal.Decimal, error) {
	if end.Before(start) {
		return decimal.Zero, ErrInvalidRange
	}
	if isWorkingDay == nil {
		isWorkingDay = func(d time.Time) bool { return !IsWeekend(d) }
	}

	count := 0
	for d := midnight(start); !d.After(midnight(end)); d = d.AddDate(0, 0, 1) {
		if isWorkingDay(d) {
			count++
		}
	}
	return decimal.NewFromInt(int64(count)), nil
}

// SpanDays is the inclusive calendar length of the range, before any
// weekend or holiday exclusion. The consecutive-days limit applies to this
// span, not to the post-exclusion working-day count.
func SpanDays(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return int(midnight(end).Sub(midnight(start)).Hours()/24) + 1
}

// NoticeDays is the number of whole days between today and the start date.
func NoticeDays(today, start time.Time) int {
	return int(midnight(start).Sub(midnight(today)).Hours() / 24)
}

// Overlaps reports whether two inclusive date ranges intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !bStart.After(aEnd)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
