package adapters

import (
	"context"

	"kharcha/internal/core"
	"kharcha/internal/ledger"
	"kharcha/internal/services"
)

// ServiceStore adapts a store and its ExpenseService into one ledger.Store:
// reads go to the store, writes go through the service so events are
// published.
type ServiceStore struct {
	store   ledger.Store
	service *services.ExpenseService
}

var _ ledger.Store = (*ServiceStore)(nil)

func NewServiceStore(store ledger.Store, service *services.ExpenseService) *ServiceStore {
	return &ServiceStore{
		store:   store,
		service: service,
	}
}

// Add implements ledger.ExpenseWriter
func (a *ServiceStore) Add(ctx context.Context, e core.NewExpense) (string, error) {
	rec, err := a.service.CreateExpense(ctx, e)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

// Delete implements ledger.ExpenseWriter
func (a *ServiceStore) Delete(ctx context.Context, id string) error {
	return a.service.DeleteExpense(ctx, id)
}

func (a *ServiceStore) ListByUser(ctx context.Context, email string) (ledger.Batch, error) {
	return a.store.ListByUser(ctx, email)
}

func (a *ServiceStore) ListByDay(ctx context.Context, email string, day core.Date) (ledger.Batch, error) {
	return a.store.ListByDay(ctx, email, day)
}

func (a *ServiceStore) ListByMonth(ctx context.Context, email string, year, month int) (ledger.Batch, error) {
	return a.store.ListByMonth(ctx, email, year, month)
}

// SyncUser implements ledger.UserSyncer
func (a *ServiceStore) SyncUser(ctx context.Context, id ledger.Identity) error {
	return a.store.SyncUser(ctx, id)
}

// Get looks a record up when the underlying store supports it.
func (a *ServiceStore) Get(ctx context.Context, id string) (core.ExpenseRecord, error) {
	if g, ok := a.store.(services.RecordGetter); ok {
		return g.Get(ctx, id)
	}
	return core.ExpenseRecord{}, ledger.ErrNotFound
}

// Close releases the service and its store.
func (a *ServiceStore) Close() error {
	return a.service.Close()
}
