package balance

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestRemaining(t *testing.T) {
	b := Balance{
		Allocated:  dec("12"),
		Used:       dec("5"),
		Carried:    dec("2"),
		Adjustment: dec("-1"),
	}
	if got := Remaining(b); !got.Equal(dec("8")) {
		t.Fatalf("expected remaining 8, got %s", got)
	}
}

func TestRemainingCanGoNegative(t *testing.T) {
	b := Balance{Allocated: dec("5"), Used: dec("3"), Adjustment: dec("-4")}
	if got := Remaining(b); !got.Equal(dec("-2")) {
		t.Fatalf("expected remaining -2, got %s", got)
	}
}

func TestCarryForward(t *testing.T) {
	cases := []struct {
		remaining, maxCarry, want string
	}{
		{"3", "5", "3"},
		{"7", "5", "5"},
		{"0", "5", "0"},
		{"-2", "5", "0"},
		{"4.5", "5", "4.5"},
	}
	for _, tc := range cases {
		got := CarryForward(dec(tc.remaining), dec(tc.maxCarry))
		if !got.Equal(dec(tc.want)) {
			t.Fatalf("CarryForward(%s, %s) = %s, want %s", tc.remaining, tc.maxCarry, got, tc.want)
		}
	}
}
