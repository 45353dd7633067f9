package core

import (
	"fmt"
	"strings"
	"time"
)

const isoLayout = "2006-01-02"

// DecodeDate parses the backend's day-first text form, DD-MM-YYYY.
//
// The input must be three hyphen-separated, all-digit fields of widths 2, 2
// and 4, and must name a real calendar day. Anything else (including
// 31-02-2024) fails with an error wrapping ErrInvalidDateFormat.
func DecodeDate(text string) (Date, error) {
	parts := strings.Split(text, "-")
	if len(parts) != 3 || len(parts[0]) != 2 || len(parts[1]) != 2 || len(parts[2]) != 4 {
		return Date{}, fmt.Errorf("%w: %q is not DD-MM-YYYY", ErrInvalidDateFormat, text)
	}
	for _, p := range parts {
		if !allDigits(p) {
			return Date{}, fmt.Errorf("%w: %q is not DD-MM-YYYY", ErrInvalidDateFormat, text)
		}
	}
	t, err := time.Parse(isoLayout, parts[2]+"-"+parts[1]+"-"+parts[0])
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q is not a calendar date", ErrInvalidDateFormat, text)
	}
	return Date{Time: t}, nil
}

// EncodeDate renders d as DD-MM-YYYY from its own calendar fields.
func EncodeDate(d Date) string {
	return fmt.Sprintf("%02d-%02d-%04d", d.Day(), d.Month(), d.Year())
}

// ParseISODate parses YYYY-MM-DD, the form used by HTML date inputs and the
// by-day query path.
func ParseISODate(text string) (Date, error) {
	if len(text) != len(isoLayout) {
		return Date{}, fmt.Errorf("%w: %q is not YYYY-MM-DD", ErrInvalidDateFormat, text)
	}
	t, err := time.Parse(isoLayout, text)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q is not YYYY-MM-DD", ErrInvalidDateFormat, text)
	}
	return Date{Time: t}, nil
}

// FormatISODate renders d as YYYY-MM-DD.
func FormatISODate(d Date) string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year(), d.Month(), d.Day())
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
