package core

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1.00", true},
		{"1.0", "1.00", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"0", "0.00", true},
		{" 2.50 ", "2.50", true},
		{"1e2", "100.00", true},
		{"-1", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
			}
		}
	}
}

func TestMoneyKeepsPrecisionUntilRounded(t *testing.T) {
	m := MustParseAmount("1.005")
	if m.Decimal().String() != "1.005" {
		t.Fatalf("expected raw precision kept, got %s", m.Decimal())
	}
	if got := m.Round2().String(); got != "1.01" {
		t.Fatalf("expected half away from zero to 1.01, got %s", got)
	}
}

func TestMoneyDisplay(t *testing.T) {
	if got := MustParseAmount("15.5").Display(); got != "₹15.50" {
		t.Fatalf("got %q", got)
	}
}

func TestMoneyEqualIgnoresScale(t *testing.T) {
	if !MustParseAmount("1.5").Equal(MustParseAmount("1.50")) {
		t.Fatalf("expected 1.5 == 1.50")
	}
}
