package memory

import (
	"context"
	"errors"
	"testing"

	"kharcha/internal/core"
	"kharcha/internal/ledger"
)

func newExpense(item, amount string, d core.Date, email string) core.NewExpense {
	return core.NewExpense{ItemName: item, Amount: core.MustParseAmount(amount), Date: d, UserEmail: email}
}

func TestMemoryStoreAddAndList(t *testing.T) {
	ctx := context.Background()
	s := New()

	id1, err := s.Add(ctx, newExpense("Tea", "20", core.NewDate(2024, 1, 1), "a@x.io"))
	if err != nil || id1 == "" {
		t.Fatalf("unexpected add: id=%q err=%v", id1, err)
	}
	if _, err := s.Add(ctx, newExpense("Bus", "15.5", core.NewDate(2024, 1, 2), "a@x.io")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(ctx, newExpense("Rent", "9000", core.NewDate(2024, 2, 1), "a@x.io")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(ctx, newExpense("Other", "1", core.NewDate(2024, 1, 1), "b@x.io")); err != nil {
		t.Fatal(err)
	}

	all, _ := s.ListByUser(ctx, "A@X.io")
	if len(all.Records) != 3 {
		t.Fatalf("expected 3 records for a@x.io, got %d", len(all.Records))
	}
	day, _ := s.ListByDay(ctx, "a@x.io", core.NewDate(2024, 1, 1))
	if len(day.Records) != 1 || day.Records[0].ID != id1 {
		t.Fatalf("unexpected day batch %+v", day)
	}
	month, _ := s.ListByMonth(ctx, "a@x.io", 2024, 1)
	if len(month.Records) != 2 || month.Total().String() != "35.50" {
		t.Fatalf("unexpected month batch %+v", month)
	}
	empty, err := s.ListByDay(ctx, "a@x.io", core.NewDate(2030, 1, 1))
	if err != nil || len(empty.Records) != 0 {
		t.Fatalf("expected empty day, got %+v %v", empty, err)
	}
}

func TestMemoryStoreRejectsInvalid(t *testing.T) {
	s := New()
	if _, err := s.Add(context.Background(), newExpense("", "1", core.NewDate(2024, 1, 1), "a@x.io")); !errors.Is(err, core.ErrEmptyItemName) {
		t.Fatalf("expected ErrEmptyItemName, got %v", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	id, _ := s.Add(ctx, newExpense("Tea", "20", core.NewDate(2024, 1, 1), "a@x.io"))

	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, id); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	all, _ := s.ListByUser(ctx, "a@x.io")
	if len(all.Records) != 0 {
		t.Fatalf("record still listed")
	}
}

func TestMemoryStoreSyncUser(t *testing.T) {
	s := New()
	if err := s.SyncUser(context.Background(), ledger.Identity{Name: "Asha", Email: " Asha@X.io ", AuthProvider: "password"}); err != nil {
		t.Fatal(err)
	}
	u, ok := s.User("asha@x.io")
	if !ok || u.Email != "asha@x.io" || u.Name != "Asha" {
		t.Fatalf("unexpected user %+v", u)
	}
	if err := s.SyncUser(context.Background(), ledger.Identity{}); !errors.Is(err, core.ErrEmptyEmail) {
		t.Fatalf("expected ErrEmptyEmail, got %v", err)
	}
}
