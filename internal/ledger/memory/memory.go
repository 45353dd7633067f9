// Package memory is an in-process ledger store for development and tests.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"kharcha/internal/core"
	"kharcha/internal/ledger"
)

type Store struct {
	mu    sync.Mutex
	items []core.ExpenseRecord
	users map[string]ledger.Identity
	newID func() string
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users: make(map[string]ledger.Identity),
		newID: uuid.NewString,
	}
}

// NewSeeded returns a store pre-filled with records, keeping their ids.
func NewSeeded(records []core.ExpenseRecord) *Store {
	s := New()
	s.items = append(s.items, records...)
	return s
}

// Add stores the expense and returns a fresh id.
func (s *Store) Add(_ context.Context, e core.NewExpense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.newID()
	s.items = append(s.items, e.Record(id))
	return id, nil
}

// Delete removes the record with id.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.items {
		if r.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete %s: %w", id, ledger.ErrNotFound)
}

// Get returns the record with id.
func (s *Store) Get(_ context.Context, id string) (core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.items {
		if r.ID == id {
			return r, nil
		}
	}
	return core.ExpenseRecord{}, fmt.Errorf("get %s: %w", id, ledger.ErrNotFound)
}

func (s *Store) ListByUser(_ context.Context, email string) (ledger.Batch, error) {
	return s.filter(func(r core.ExpenseRecord) bool { return sameUser(r.UserEmail, email) }), nil
}

func (s *Store) ListByDay(_ context.Context, email string, day core.Date) (ledger.Batch, error) {
	return s.filter(func(r core.ExpenseRecord) bool {
		return sameUser(r.UserEmail, email) && r.Date.Equal(day)
	}), nil
}

func (s *Store) ListByMonth(_ context.Context, email string, year, month int) (ledger.Batch, error) {
	return s.filter(func(r core.ExpenseRecord) bool {
		return sameUser(r.UserEmail, email) && r.Date.Year() == year && r.Date.Month() == month
	}), nil
}

// SyncUser upserts the user keyed by normalized email.
func (s *Store) SyncUser(_ context.Context, id ledger.Identity) error {
	email := core.NormalizeEmail(id.Email)
	if email == "" {
		return core.ErrEmptyEmail
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id.Email = email
	s.users[email] = id
	return nil
}

// User returns a synced user.
func (s *Store) User(email string) (ledger.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[core.NormalizeEmail(email)]
	return u, ok
}

func (s *Store) filter(keep func(core.ExpenseRecord) bool) ledger.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.ExpenseRecord
	for _, r := range s.items {
		if keep(r) {
			out = append(out, r)
		}
	}
	return ledger.BatchOf(out)
}

func sameUser(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
