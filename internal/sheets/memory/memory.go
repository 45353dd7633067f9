package memory

import (
	"context"
	"fmt"
	"sync"

	"kharcha/internal/core"
	"kharcha/internal/sheets"
)

// Mirror is an in-memory sheets.Mirror. Cleared rows stay in place, empty,
// as they do in a spreadsheet.
type Mirror struct {
	mu   sync.Mutex
	rows [][]any
}

var _ sheets.Mirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{rows: [][]any{sheets.Header}}
}

// AppendExpense stores the row and returns a synthetic row reference.
func (m *Mirror) AppendExpense(_ context.Context, r core.ExpenseRecord) (string, error) {
	if r.ID == "" {
		return "", fmt.Errorf("append: empty id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.find(r.ID); i >= 0 {
		return ref(i), nil
	}
	m.rows = append(m.rows, sheets.RowValues(r))
	return ref(len(m.rows) - 1), nil
}

func (m *Mirror) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.find(id)
	if i < 0 {
		return fmt.Errorf("delete %s: %w", id, sheets.ErrRowNotFound)
	}
	m.rows[i] = nil
	return nil
}

// Rows returns a copy of the sheet, header included.
func (m *Mirror) Rows() [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]any, len(m.rows))
	for i, r := range m.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}

func (m *Mirror) find(id string) int {
	for i := 1; i < len(m.rows); i++ {
		if len(m.rows[i]) > 0 && fmt.Sprint(m.rows[i][0]) == id {
			return i
		}
	}
	return -1
}

func ref(i int) string {
	return fmt.Sprintf("mem:%d", i+1)
}
