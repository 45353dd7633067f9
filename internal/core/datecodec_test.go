package core

import (
	"errors"
	"testing"
)

func TestDecodeDate(t *testing.T) {
	cases := []struct {
		in      string
		y, m, d int
		ok      bool
	}{
		{"01-01-2024", 2024, 1, 1, true},
		{"29-02-2024", 2024, 2, 29, true},
		{"31-12-1999", 1999, 12, 31, true},
		{"31-02-2024", 0, 0, 0, false},
		{"29-02-2023", 0, 0, 0, false},
		{"32-01-2024", 0, 0, 0, false},
		{"01-13-2024", 0, 0, 0, false},
		{"00-01-2024", 0, 0, 0, false},
		{"1-1-2024", 0, 0, 0, false},
		{"01-01-24", 0, 0, 0, false},
		{"2024-01-01", 0, 0, 0, false},
		{"01/01/2024", 0, 0, 0, false},
		{"0a-01-2024", 0, 0, 0, false},
		{"+1-01-2024", 0, 0, 0, false},
		{"01-01-2024-01", 0, 0, 0, false},
		{"", 0, 0, 0, false},
	}
	for _, tc := range cases {
		got, err := DecodeDate(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("%q: unexpected error %v", tc.in, err)
			}
			if got.Year() != tc.y || got.Month() != tc.m || got.Day() != tc.d {
				t.Fatalf("%q: got %v", tc.in, got)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidDateFormat) {
			t.Fatalf("%q: expected ErrInvalidDateFormat, got %v", tc.in, err)
		}
	}
}

func TestEncodeDate(t *testing.T) {
	if got := EncodeDate(NewDate(2024, 1, 5)); got != "05-01-2024" {
		t.Fatalf("got %q", got)
	}
	if got := EncodeDate(NewDate(987, 10, 31)); got != "31-10-0987" {
		t.Fatalf("got %q", got)
	}
}

func TestDateCodecRoundTrip(t *testing.T) {
	for _, s := range []string{"01-01-2024", "15-01-2024", "29-02-2024", "31-12-2030", "07-07-0007"} {
		d, err := DecodeDate(s)
		if err != nil {
			t.Fatalf("%q: %v", s, err)
		}
		if got := EncodeDate(d); got != s {
			t.Fatalf("round trip %q -> %q", s, got)
		}
	}

	for _, d := range []Date{NewDate(2024, 1, 1), NewDate(2025, 6, 30), NewDate(2000, 2, 29)} {
		back, err := DecodeDate(EncodeDate(d))
		if err != nil {
			t.Fatalf("%v: %v", d, err)
		}
		if !back.Equal(d) {
			t.Fatalf("round trip %v -> %v", d, back)
		}
	}
}

func TestISODate(t *testing.T) {
	d, err := ParseISODate("2024-03-07")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if FormatISODate(d) != "2024-03-07" || EncodeDate(d) != "07-03-2024" {
		t.Fatalf("unexpected %v", d)
	}
	for _, bad := range []string{"07-03-2024", "2024-3-7", "2024-02-30", ""} {
		if _, err := ParseISODate(bad); !errors.Is(err, ErrInvalidDateFormat) {
			t.Fatalf("%q: expected ErrInvalidDateFormat, got %v", bad, err)
		}
	}
}
