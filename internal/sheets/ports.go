package sheets

import (
	"context"
	"errors"

	"kharcha/internal/core"
)

// ErrRowNotFound is returned when no row carries the requested id.
var ErrRowNotFound = errors.New("sheet row not found")

// Ports for outbound adapters.
type (
	// Mirror keeps a spreadsheet copy of the ledger, one row per expense.
	Mirror interface {
		// AppendExpense adds a row for r; a row already carrying r.ID is kept.
		AppendExpense(ctx context.Context, r core.ExpenseRecord) (rowRef string, err error)
		// DeleteByID clears the row whose first column equals id.
		DeleteByID(ctx context.Context, id string) error
	}
)

// Header is the first row of a mirror sheet.
var Header = []any{"ID", "Date", "Item", "Amount", "User"}

// RowValues renders r as [id, DD-MM-YYYY, item, amount, email].
func RowValues(r core.ExpenseRecord) []any {
	return []any{r.ID, core.EncodeDate(r.Date), r.ItemName, r.Amount.String(), r.UserEmail}
}
