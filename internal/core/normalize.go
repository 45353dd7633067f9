package core

import (
	"errors"
	"fmt"
)

// RawRecord is an expense as it crosses the wire, before validation.
// Amount is the textual number ("" when absent or null).
type RawRecord struct {
	ID        string
	ItemName  string
	Amount    string
	Date      string
	UserEmail string
}

// RecordError reports a record that was skipped during normalization.
type RecordError struct {
	Index int
	ID    string
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d (id=%q): %v", e.Index, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Reason is a short label for logs and metrics.
func (e *RecordError) Reason() string {
	switch {
	case errors.Is(e.Err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(e.Err, ErrInvalidDateFormat):
		return "invalid_date"
	default:
		return "invalid_record"
	}
}

// NormalizeRecord turns a wire record into a typed one.
func NormalizeRecord(raw RawRecord) (ExpenseRecord, error) {
	amount, err := ParseAmount(raw.Amount)
	if err != nil {
		return ExpenseRecord{}, fmt.Errorf("amount %q: %w", raw.Amount, err)
	}
	date, err := DecodeDate(raw.Date)
	if err != nil {
		return ExpenseRecord{}, err
	}
	return ExpenseRecord{
		ID:        raw.ID,
		ItemName:  raw.ItemName,
		Amount:    amount,
		Date:      date,
		UserEmail: raw.UserEmail,
	}, nil
}

// NormalizeRecords converts a batch, skipping and reporting malformed records
// while keeping every valid one in input order.
func NormalizeRecords(raws []RawRecord) ([]ExpenseRecord, []RecordError) {
	records := make([]ExpenseRecord, 0, len(raws))
	var rejected []RecordError
	for i, raw := range raws {
		rec, err := NormalizeRecord(raw)
		if err != nil {
			rejected = append(rejected, RecordError{Index: i, ID: raw.ID, Err: err})
			continue
		}
		records = append(records, rec)
	}
	return records, rejected
}
