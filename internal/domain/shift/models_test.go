package shift

import (
	"errors"
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	minute, err := ParseClock("09:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if minute != 570 {
		t.Fatalf("expected 570, got %d", minute)
	}

	if _, err := ParseClock("25:00"); !errors.Is(err, ErrBadClock) {
		t.Fatalf("expected ErrBadClock, got %v", err)
	}
	if FormatClock(570) != "09:30" {
		t.Fatalf("unexpected format: %s", FormatClock(570))
	}
}

func TestIsWorkDayDefault(t *testing.T) {
	var s Shift
	monday := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	saturday := time.Date(2025, 6, 7, 0, 0, 0, 0, time.UTC)

	if !s.IsWorkDay(monday) {
		t.Fatal("expected Monday to be a working day by default")
	}
	if s.IsWorkDay(saturday) {
		t.Fatal("expected Saturday off by default")
	}
}

func TestIsWorkDayExplicit(t *testing.T) {
	s := Shift{WorkingWeekdays: []time.Weekday{time.Saturday, time.Sunday}}
	saturday := time.Date(2025, 6, 7, 0, 0, 0, 0, time.UTC)
	monday := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	if !s.IsWorkDay(saturday) {
		t.Fatal("expected Saturday to be scheduled")
	}
	if s.IsWorkDay(monday) {
		t.Fatal("expected Monday off for weekend shift")
	}
}

func TestWorkingDates(t *testing.T) {
	var s Shift
	// June 2025 has 21 weekdays.
	dates := WorkingDates(s, 2025, time.June, nil)
	if len(dates) != 21 {
		t.Fatalf("expected 21 working dates, got %d", len(dates))
	}

	holiday := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	dates = WorkingDates(s, 2025, time.June, func(d time.Time) bool {
		return d.Equal(holiday)
	})
	if len(dates) != 20 {
		t.Fatalf("expected 20 working dates with one holiday, got %d", len(dates))
	}
}
