package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"kharcha/internal/core"
	ports "kharcha/internal/sheets"
)

// fakeSheets serves the subset of the Sheets v4 values API the client uses.
type fakeSheets struct {
	mu      sync.Mutex
	rows    [][]any
	appends int
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rest, ok := strings.CutPrefix(r.URL.Path, "/v4/spreadsheets/sheet-1/values/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet:
		values := make([][]any, len(f.rows))
		for i, row := range f.rows {
			if len(row) > 0 {
				values[i] = []any{row[0]}
			} else {
				values[i] = []any{}
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"range": rest, "majorDimension": "ROWS", "values": values})
	case strings.HasSuffix(rest, ":append"):
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.rows = append(f.rows, vr.Values...)
		f.appends++
		n := len(f.rows)
		json.NewEncoder(w).Encode(map[string]any{
			"spreadsheetId": "sheet-1",
			"updates":       map[string]any{"updatedRange": fmt.Sprintf("Expenses!A%d:E%d", n, n), "updatedRows": 1},
		})
	case strings.HasSuffix(rest, ":clear"):
		rng := strings.TrimSuffix(rest, ":clear")
		var row int
		if _, err := fmt.Sscanf(rng[strings.Index(rng, "!")+1:], "A%d:", &row); err != nil || row < 1 || row > len(f.rows) {
			http.Error(w, "bad range "+rng, http.StatusBadRequest)
			return
		}
		f.rows[row-1] = nil
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-1", "clearedRange": rng})
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	return NewWithService(svc, "sheet-1", "Expenses", nil)
}

func record(id string) core.ExpenseRecord {
	return core.ExpenseRecord{ID: id, ItemName: "Chai", Amount: core.MustParseAmount("12.5"), Date: core.NewDate(2024, 3, 5), UserEmail: "a@x.io"}
}

func TestAppendExpense(t *testing.T) {
	fake := &fakeSheets{rows: [][]any{ports.Header}}
	c := newTestClient(t, fake)

	ref, err := c.AppendExpense(context.Background(), record("e1"))
	if err != nil {
		t.Fatalf("AppendExpense: %v", err)
	}
	if ref != "Expenses!A2:E2" {
		t.Errorf("ref = %q", ref)
	}
	got := fake.rows[1]
	want := []any{"e1", "05-03-2024", "Chai", "12.50", "a@x.io"}
	for i := range want {
		if fmt.Sprint(got[i]) != fmt.Sprint(want[i]) {
			t.Fatalf("row = %v, want %v", got, want)
		}
	}
}

func TestAppendExpenseSkipsExistingRow(t *testing.T) {
	fake := &fakeSheets{rows: [][]any{ports.Header, {"e1"}}}
	c := newTestClient(t, fake)

	ref, err := c.AppendExpense(context.Background(), record("e1"))
	if err != nil {
		t.Fatal(err)
	}
	if fake.appends != 0 || ref != "Expenses!A2:E2" {
		t.Fatalf("expected existing row reused, appends=%d ref=%q", fake.appends, ref)
	}
}

func TestDeleteByID(t *testing.T) {
	fake := &fakeSheets{rows: [][]any{ports.Header, {"e1"}, {"e2"}}}
	c := newTestClient(t, fake)

	if err := c.DeleteByID(context.Background(), "e2"); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	if fake.rows[2] != nil || fake.rows[1] == nil {
		t.Fatalf("only row 3 should be cleared, got %v", fake.rows)
	}

	err := c.DeleteByID(context.Background(), "missing")
	if !errors.Is(err, ports.ErrRowNotFound) {
		t.Fatalf("expected ErrRowNotFound, got %v", err)
	}
}

func TestAppendRejectsEmptyID(t *testing.T) {
	c := &Client{sheetName: "Expenses"}
	if _, err := c.AppendExpense(context.Background(), record("")); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestNilServiceFails(t *testing.T) {
	c := &Client{sheetName: "Expenses"}
	if _, err := c.AppendExpense(context.Background(), record("e1")); err == nil {
		t.Fatal("expected error without service")
	}
	if err := c.DeleteByID(context.Background(), "e1"); err == nil {
		t.Fatal("expected error without service")
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "sheet-1"}, nil)
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}
