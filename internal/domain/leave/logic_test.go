package leave

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRequestedDaysSkipsWeekends(t *testing.T) {
	// Mon 2025-06-02 through Sun 2025-06-08: five working days.
	got, err := RequestedDays(date(2025, 6, 2), date(2025, 6, 8), nil)
	if err != nil {
		t.Fatalf("RequestedDays: %v", err)
	}
	if !got.Equal(dec("5")) {
		t.Fatalf("got %s working days, want 5", got)
	}
}

func TestRequestedDaysExcludesHolidays(t *testing.T) {
	holidays := map[string]bool{"2025-06-04": true}
	got, err := RequestedDays(date(2025, 6, 2), date(2025, 6, 6), func(d time.Time) bool {
		return !IsWeekend(d) && !holidays[d.Format("2006-01-02")]
	})
	if err != nil {
		t.Fatalf("RequestedDays: %v", err)
	}
	if !got.Equal(dec("4")) {
		t.Fatalf("got %s working days, want 4", got)
	}
}

func TestRequestedDaysInvalidRange(t *testing.T) {
	if _, err := RequestedDays(date(2025, 6, 6), date(2025, 6, 2), nil); err != ErrInvalidRange {
		t.Fatalf("got %v, want ErrInvalidRange", err)
	}
}

func TestRequestedDaysWeekendOnly(t *testing.T) {
	got, err := RequestedDays(date(2025, 6, 7), date(2025, 6, 8), nil)
	if err != nil {
		t.Fatalf("RequestedDays: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("got %s working days for a weekend-only range, want 0", got)
	}
}

func TestSpanDays(t *testing.T) {
	cases := []struct {
		start, end time.Time
		want       int
	}{
		{date(2025, 6, 2), date(2025, 6, 2), 1},
		{date(2025, 6, 2), date(2025, 6, 8), 7},
		{date(2025, 6, 8), date(2025, 6, 2), 0},
	}
	for _, tc := range cases {
		if got := SpanDays(tc.start, tc.end); got != tc.want {
			t.Errorf("SpanDays(%s, %s) = %d, want %d",
				tc.start.Format("2006-01-02"), tc.end.Format("2006-01-02"), got, tc.want)
		}
	}
}

func TestNoticeDays(t *testing.T) {
	today := time.Date(2025, 6, 2, 15, 30, 0, 0, time.UTC)
	if got := NoticeDays(today, date(2025, 6, 9)); got != 7 {
		t.Fatalf("got %d notice days, want 7", got)
	}
	if got := NoticeDays(today, date(2025, 6, 1)); got != -1 {
		t.Fatalf("got %d notice days for a past start, want -1", got)
	}
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		aStart, aEnd, bStart, bEnd time.Time
		want                       bool
	}{
		{date(2025, 6, 2), date(2025, 6, 6), date(2025, 6, 6), date(2025, 6, 10), true},
		{date(2025, 6, 2), date(2025, 6, 6), date(2025, 6, 7), date(2025, 6, 10), false},
		{date(2025, 6, 2), date(2025, 6, 10), date(2025, 6, 4), date(2025, 6, 5), true},
	}
	for _, tc := range cases {
		if got := Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd); got != tc.want {
			t.Errorf("Overlaps(%s-%s, %s-%s) = %v, want %v",
				tc.aStart.Format("01-02"), tc.aEnd.Format("01-02"),
				tc.bStart.Format("01-02"), tc.bEnd.Format("01-02"), got, tc.want)
		}
	}
}
