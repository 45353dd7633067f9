package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"kharcha/internal/core"
	"kharcha/internal/ledger"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "test.db"), nil)
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func add(t *testing.T, repo *SQLiteRepository, item, amount string, d core.Date, email string) string {
	t.Helper()
	id, err := repo.Add(context.Background(), core.NewExpense{
		ItemName: item, Amount: core.MustParseAmount(amount), Date: d, UserEmail: email,
	})
	if err != nil {
		t.Fatalf("add %s: %v", item, err)
	}
	return id
}

func TestRepositoryAddAndQuery(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id := add(t, repo, "Tea", "20.25", core.NewDate(2024, 2, 29), "Asha@X.io")
	add(t, repo, "Bus", "15", core.NewDate(2024, 2, 1), "asha@x.io")
	add(t, repo, "Rent", "9000", core.NewDate(2024, 3, 1), "asha@x.io")
	add(t, repo, "Other", "1", core.NewDate(2024, 2, 29), "someone@x.io")

	got, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ItemName != "Tea" || got.Amount.String() != "20.25" || core.EncodeDate(got.Date) != "29-02-2024" || got.UserEmail != "asha@x.io" {
		t.Fatalf("unexpected record %+v", got)
	}

	all, err := repo.ListByUser(ctx, "asha@x.io")
	if err != nil {
		t.Fatal(err)
	}
	if len(all.Records) != 3 || all.Records[0].ItemName != "Bus" {
		t.Fatalf("expected 3 records ordered by date, got %+v", all.Records)
	}

	month, err := repo.ListByMonth(ctx, "ASHA@x.io", 2024, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(month.Records) != 2 || month.Total().String() != "35.25" {
		t.Fatalf("unexpected february batch %+v", month)
	}

	day, err := repo.ListByDay(ctx, "asha@x.io", core.NewDate(2024, 2, 29))
	if err != nil {
		t.Fatal(err)
	}
	if len(day.Records) != 1 || day.Records[0].ID != id {
		t.Fatalf("unexpected day batch %+v", day)
	}

	empty, err := repo.ListByMonth(ctx, "asha@x.io", 2023, 12)
	if err != nil || len(empty.Records) != 0 {
		t.Fatalf("expected empty month, got %+v err=%v", empty, err)
	}
}

func TestRepositoryDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := add(t, repo, "Tea", "20", core.NewDate(2024, 1, 1), "a@x.io")

	if err := repo.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, id); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.Get(ctx, id); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from get, got %v", err)
	}
}

func TestRepositoryRejectsInvalidExpense(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.Add(context.Background(), core.NewExpense{ItemName: "x", Amount: core.MustParseAmount("1"), UserEmail: "a@x.io"})
	if !errors.Is(err, core.ErrZeroDate) {
		t.Fatalf("expected ErrZeroDate, got %v", err)
	}
}

func TestRepositoryMonthOutOfRange(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.ListByMonth(context.Background(), "a@x.io", 2024, 0); err == nil {
		t.Fatal("expected error for month 0")
	}
}

func TestRepositorySkipsCorruptRows(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	add(t, repo, "Good", "5", core.NewDate(2024, 1, 2), "a@x.io")
	if _, err := repo.db.ExecContext(ctx,
		`INSERT INTO expenses (id, item_name, amount, expense_date, user_email) VALUES ('bad', 'Bad', 'abc', '2024-01-03', 'a@x.io')`); err != nil {
		t.Fatal(err)
	}

	b, err := repo.ListByUser(ctx, "a@x.io")
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Records) != 1 || len(b.Rejected) != 1 || b.Rejected[0].ID != "bad" {
		t.Fatalf("unexpected batch %+v", b)
	}
	if !errors.Is(&b.Rejected[0], core.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", b.Rejected[0].Err)
	}
}

func TestRepositorySyncUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.SyncUser(ctx, ledger.Identity{Name: "Asha", Email: "Asha@X.io"}); err != nil {
		t.Fatal(err)
	}
	if err := repo.SyncUser(ctx, ledger.Identity{Name: "Asha K", Email: "asha@x.io", AuthProvider: "google.com"}); err != nil {
		t.Fatal(err)
	}
	u, err := repo.User(ctx, "ASHA@x.io")
	if err != nil {
		t.Fatal(err)
	}
	if u.Name != "Asha K" || u.AuthProvider != "google.com" {
		t.Fatalf("expected upserted user, got %+v", u)
	}
	if err := repo.SyncUser(ctx, ledger.Identity{}); !errors.Is(err, core.ErrEmptyEmail) {
		t.Fatalf("expected ErrEmptyEmail, got %v", err)
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	v1, err := RunMigrations(path)
	if err != nil {
		t.Fatal(err)
	}
	v2, err := RunMigrations(path)
	if err != nil {
		t.Fatal(err)
	}
	if v1 != 1 || v2 != 1 {
		t.Fatalf("expected schema version 1, got %d and %d", v1, v2)
	}
}
