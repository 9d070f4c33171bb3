package attendance

import (
	"testing"
	"time"

	"workforce/internal/domain/shift"
)

func at(h, m int) time.Time {
	return time.Date(2025, 6, 2, h, m, 0, 0, time.UTC)
}

func standardShift() shift.Shift {
	return shift.Shift{
		StartMinute:        9 * 60,
		EndMinute:          17 * 60,
		FlexibleMinutes:    10,
		GraceMinutes:       15,
		MaxOvertimeMinutes: 120,
	}
}

func TestLateMinutes(t *testing.T) {
	sh := standardShift()
	cases := []struct {
		checkIn time.Time
		want    int
	}{
		{at(8, 55), 0},
		{at(9, 10), 0},  // inside the flexible window
		{at(9, 15), 5},  // 15 past start, 10 flexible
		{at(10, 0), 50},
	}
	for _, tc := range cases {
		if got := LateMinutes(tc.checkIn, sh); got != tc.want {
			t.Errorf("LateMinutes(%s) = %d, want %d", tc.checkIn.Format("15:04"), got, tc.want)
		}
	}
}

func TestEarlyLeaveMinutes(t *testing.T) {
	sh := standardShift()
	if got := EarlyLeaveMinutes(at(16, 30), sh); got != 30 {
		t.Fatalf("got %d, want 30", got)
	}
	if got := EarlyLeaveMinutes(at(17, 30), sh); got != 0 {
		t.Fatalf("after end: got %d, want 0", got)
	}
}

func TestOvertimeMinutes(t *testing.T) {
	sh := standardShift()
	cases := []struct {
		checkOut time.Time
		want     int
	}{
		{at(17, 10), 0},  // within grace
		{at(17, 45), 30}, // 45 past end minus 15 grace
		{at(21, 0), 120}, // capped at the shift maximum
	}
	for _, tc := range cases {
		if got := OvertimeMinutes(tc.checkOut, sh); got != tc.want {
			t.Errorf("OvertimeMinutes(%s) = %d, want %d", tc.checkOut.Format("15:04"), got, tc.want)
		}
	}

	sh.MaxOvertimeMinutes = 0
	if got := OvertimeMinutes(at(21, 0), sh); got != 225 {
		t.Fatalf("uncapped: got %d, want 225", got)
	}
}

func TestWorkedMinutes(t *testing.T) {
	if got := WorkedMinutes(at(9, 0), at(17, 0), 60); got != 420 {
		t.Fatalf("got %d, want 420", got)
	}
	if got := WorkedMinutes(at(9, 0), at(9, 10), 60); got != 0 {
		t.Fatalf("break exceeding presence: got %d, want 0", got)
	}
}

func TestDeriveStatus(t *testing.T) {
	checkIn := at(9, 15)
	cases := []struct {
		name       string
		day        Day
		onLeave    bool
		dayElapsed bool
		want       Status
	}{
		{"leave overrides presence", Day{CheckInAt: &checkIn, LateMinutes: 5}, true, false, StatusOnLeave},
		{"late", Day{CheckInAt: &checkIn, LateMinutes: 5}, false, false, StatusLate},
		{"present", Day{CheckInAt: &checkIn}, false, false, StatusPresent},
		{"absent after day elapsed", Day{}, false, true, StatusAbsent},
		{"undecided mid-day", Day{}, false, false, Status("")},
	}
	for _, tc := range cases {
		if got := DeriveStatus(tc.day, tc.onLeave, tc.dayElapsed); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestSummaryDerivedFields(t *testing.T) {
	sum := Summary{
		TotalWorkingDays:  20,
		ActualWorkingDays: 18,
		WorkedMinutes:     8130,
		OvertimeMinutes:   90,
	}
	if got := sum.AttendanceRate().String(); got != "90" {
		t.Fatalf("AttendanceRate = %s, want 90", got)
	}
	if got := sum.TotalWorkingHours().String(); got != "135.5" {
		t.Fatalf("TotalWorkingHours = %s, want 135.5", got)
	}
	if got := sum.OvertimeHours().String(); got != "1.5" {
		t.Fatalf("OvertimeHours = %s, want 1.5", got)
	}
	if !(Summary{}).AttendanceRate().IsZero() {
		t.Fatal("empty summary rate should be zero")
	}
}
