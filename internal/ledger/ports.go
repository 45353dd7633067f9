// Package ledger defines the ports through which expense records are read
// and written. Adapters live in subpackages (rest, memory, cached) and in
// internal/storage.
package ledger

import (
	"context"
	"errors"

	"kharcha/internal/core"
)

var (
	// ErrNotFound is returned when a record id does not exist.
	ErrNotFound = errors.New("expense not found")
)

type (
	// Batch is the result of a read: the records that normalized cleanly and
	// the ones that were skipped.
	Batch struct {
		Records  []core.ExpenseRecord
		Rejected []core.RecordError
	}

	// Identity is what the backend learns about a signed-in user.
	Identity struct {
		Name         string
		Email        string
		AuthProvider string
	}

	ExpenseReader interface {
		// ListByUser returns every record of the user.
		ListByUser(ctx context.Context, email string) (Batch, error)
		// ListByDay returns the user's records dated on day; a missing day is empty, not an error.
		ListByDay(ctx context.Context, email string, day core.Date) (Batch, error)
		// ListByMonth returns the user's records in year/month (1-12).
		ListByMonth(ctx context.Context, email string, year, month int) (Batch, error)
	}

	ExpenseWriter interface {
		// Add stores a new record and returns the backend-issued id.
		Add(ctx context.Context, e core.NewExpense) (id string, err error)
		// Delete removes a record by id.
		Delete(ctx context.Context, id string) error
	}

	UserSyncer interface {
		// SyncUser registers or refreshes a user with the backend.
		SyncUser(ctx context.Context, id Identity) error
	}

	// Store is the full read/write surface an application backend provides.
	Store interface {
		ExpenseReader
		ExpenseWriter
		UserSyncer
	}
)

// Total is the rounded sum of the batch's valid records.
func (b Batch) Total() core.Money {
	return core.TotalAmount(b.Records)
}

// Clone copies the batch so callers may not alias cached slices.
func (b Batch) Clone() Batch {
	return Batch{
		Records:  append([]core.ExpenseRecord(nil), b.Records...),
		Rejected: append([]core.RecordError(nil), b.Rejected...),
	}
}

// BatchOf wraps already-typed records.
func BatchOf(records []core.ExpenseRecord) Batch {
	return Batch{Records: records}
}
