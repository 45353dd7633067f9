package http

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"kharcha/internal/core"
)

// MonthParams holds a year and a 1-12 month.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams reads month and year from query, falling back to today's
// month for missing or out-of-range values.
func ParseMonthParams(query url.Values, today core.Date) MonthParams {
	params := MonthParams{Year: today.Year(), Month: today.Month()}
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil && y > 0 && y < 10000 {
			params.Year = y
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			params.Month = m
		}
	}
	return params
}

// ParseDayParam reads the ISO "date" parameter of an HTML date input,
// defaulting to today. A malformed value is an error.
func ParseDayParam(query url.Values, today core.Date) (core.Date, error) {
	v := strings.TrimSpace(query.Get("date"))
	if v == "" {
		return today, nil
	}
	return core.ParseISODate(v)
}

// ParseExpenseForm builds the add payload from the add-expense form. The
// date field comes from an HTML date input (YYYY-MM-DD); a day-first value
// is accepted too.
func ParseExpenseForm(form url.Values, email string) (core.NewExpense, error) {
	item := sanitizeInput(form.Get("itemName"))
	amountText := strings.TrimSpace(form.Get("amount"))
	dateText := strings.TrimSpace(form.Get("date"))

	var errs []error
	amount, err := core.ParseAmount(amountText)
	if err != nil {
		errs = append(errs, err)
	}
	date, err := core.ParseISODate(dateText)
	if err != nil {
		if date, err = core.DecodeDate(dateText); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q", core.ErrInvalidDateFormat, dateText))
		}
	}
	if len(errs) > 0 {
		return core.NewExpense{}, errors.Join(errs...)
	}

	e := core.NewExpense{ItemName: item, Amount: amount, Date: date, UserEmail: email}
	if err := e.Validate(); err != nil {
		return core.NewExpense{}, err
	}
	return e, nil
}

// userMessage turns validation errors into text for the form.
func userMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrEmptyItemName):
		return "Please enter what the expense was for."
	case errors.Is(err, core.ErrInvalidAmount):
		return "Please enter a valid, non-negative amount."
	case errors.Is(err, core.ErrInvalidDateFormat), errors.Is(err, core.ErrZeroDate):
		return "Please pick a valid date."
	default:
		return "The expense could not be saved."
	}
}
