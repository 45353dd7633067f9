package core

import (
	"errors"
	"testing"
)

func TestNormalizeRecords(t *testing.T) {
	raws := []RawRecord{
		{ID: "1", ItemName: "Tea", Amount: "20", Date: "01-01-2024"},
		{ID: "2", ItemName: "Bad amount", Amount: "abc", Date: "02-01-2024"},
		{ID: "3", ItemName: "No amount", Amount: "", Date: "02-01-2024"},
		{ID: "4", ItemName: "Bad date", Amount: "5", Date: "2024-01-02"},
		{ID: "5", ItemName: "Negative", Amount: "-3", Date: "03-01-2024"},
		{ID: "6", ItemName: "Lunch", Amount: "120.50", Date: "03-01-2024"},
	}
	records, rejected := NormalizeRecords(raws)

	if len(records) != 2 || records[0].ID != "1" || records[1].ID != "6" {
		t.Fatalf("unexpected records %+v", records)
	}
	if len(rejected) != 4 {
		t.Fatalf("expected 4 rejected, got %d", len(rejected))
	}
	wantReasons := []string{"invalid_amount", "invalid_amount", "invalid_date", "invalid_amount"}
	wantIdx := []int{1, 2, 3, 4}
	for i, re := range rejected {
		if re.Reason() != wantReasons[i] || re.Index != wantIdx[i] {
			t.Fatalf("rejected[%d] = %+v (%s)", i, re, re.Reason())
		}
	}
	if !errors.Is(&rejected[0], ErrInvalidAmount) {
		t.Fatalf("expected RecordError to unwrap to ErrInvalidAmount")
	}
	if !errors.Is(&rejected[2], ErrInvalidDateFormat) {
		t.Fatalf("expected RecordError to unwrap to ErrInvalidDateFormat")
	}
}

func TestNormalizeRecordsThenAggregate(t *testing.T) {
	records, rejected := NormalizeRecords([]RawRecord{
		{ID: "a", Amount: "0.10", Date: "01-01-2024"},
		{ID: "b", Amount: "oops", Date: "01-01-2024"},
		{ID: "c", Amount: "0.20", Date: "05-01-2024"},
	})
	if len(rejected) != 1 {
		t.Fatalf("expected one rejected record, got %d", len(rejected))
	}
	jan, ok := GroupByYearAndMonth(records).Month(2024, "January")
	if !ok || jan.Total().String() != "0.30" {
		t.Fatalf("unexpected January %+v", jan)
	}
}
