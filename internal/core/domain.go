package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type (
	// Date is a calendar day, always held at UTC midnight.
	Date struct {
		time.Time
	}

	// ExpenseRecord is a single dated spend as returned by the backend.
	ExpenseRecord struct {
		ID        string
		ItemName  string
		Amount    Money
		Date      Date
		UserEmail string
	}

	// NewExpense is the payload for creating a record; the backend assigns the ID.
	NewExpense struct {
		ItemName  string
		Amount    Money
		Date      Date
		UserEmail string
	}
)

var (
	ErrInvalidDateFormat = errors.New("invalid date format")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyItemName     = errors.New("empty item name")
	ErrEmptyEmail        = errors.New("empty user email")
	ErrZeroDate          = errors.New("date cannot be zero")
)

const maxItemNameLength = 200

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month number, 1-12
func (d Date) Month() int {
	return int(d.Time.Month())
}

// MonthName returns the English month name.
func (d Date) MonthName() string {
	return d.Time.Month().String()
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// Equal reports whether both dates fall on the same calendar day.
func (d Date) Equal(o Date) bool {
	return d.Year() == o.Year() && d.Month() == o.Month() && d.Day() == o.Day()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	return nil
}

func (e NewExpense) Validate() error {
	if strings.TrimSpace(e.ItemName) == "" {
		return ErrEmptyItemName
	}
	if len(e.ItemName) > maxItemNameLength {
		return fmt.Errorf("item name too long (max %d characters)", maxItemNameLength)
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.UserEmail) == "" {
		return ErrEmptyEmail
	}
	return nil
}

// Record attaches a backend-issued id to the payload.
func (e NewExpense) Record(id string) ExpenseRecord {
	return ExpenseRecord{
		ID:        id,
		ItemName:  e.ItemName,
		Amount:    e.Amount,
		Date:      e.Date,
		UserEmail: e.UserEmail,
	}
}

// NormalizeEmail lowercases and trims an address the way the backend keys users.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
