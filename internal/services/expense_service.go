package services

import (
	"context"
	"errors"
	"fmt"

	"kharcha/internal/amqp"
	"kharcha/internal/core"
	"kharcha/internal/ledger"
	applog "kharcha/internal/log"
	"kharcha/internal/metrics"
)

// RecordGetter is implemented by stores that can look a record up by id.
type RecordGetter interface {
	Get(ctx context.Context, id string) (core.ExpenseRecord, error)
}

// ExpenseService orchestrates expense writes across the store and AMQP.
type ExpenseService struct {
	store     ledger.Store
	publisher amqp.Publisher
	logger    *applog.Logger
	events    *applog.StructuredLogger
}

// NewExpenseService wires a store with an optional publisher; publisher and
// logger may be nil.
func NewExpenseService(store ledger.Store, publisher amqp.Publisher, logger *applog.Logger) *ExpenseService {
	if logger == nil {
		logger = applog.Discard(applog.ComponentExpense)
	}
	logger = logger.WithComponent(applog.ComponentExpense)
	return &ExpenseService{
		store:     store,
		publisher: publisher,
		logger:    logger,
		events:    applog.NewStructuredLogger(logger),
	}
}

// CreateExpense saves an expense and publishes an expense.created event.
// A failed publish is logged; the expense stays saved.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.NewExpense) (core.ExpenseRecord, error) {
	id, err := s.store.Add(ctx, e)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("save expense: %w", err)
	}
	rec := e.Record(id)
	metrics.ExpenseCreated()
	s.events.LogExpenseCreated(ctx, id, e)

	if err := s.publish(ctx, amqp.NewExpenseCreatedEvent(rec)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish created event", applog.FieldExpenseID, id, applog.FieldError, err)
	}
	return rec, nil
}

// DeleteExpense removes an expense and publishes an expense.deleted event.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id string) error {
	var email string
	if g, ok := s.store.(RecordGetter); ok {
		rec, err := g.Get(ctx, id)
		if err != nil && !errors.Is(err, ledger.ErrNotFound) {
			return fmt.Errorf("load expense: %w", err)
		}
		email = rec.UserEmail
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	metrics.ExpenseDeleted()
	s.events.LogExpenseDeleted(ctx, id)

	if err := s.publish(ctx, amqp.NewExpenseDeletedEvent(id, email)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish deleted event", applog.FieldExpenseID, id, applog.FieldError, err)
	}
	return nil
}

func (s *ExpenseService) publish(ctx context.Context, ev *amqp.ExpenseEvent) error {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not configured, skipping event", "type", ev.Type)
		return nil
	}
	return s.publisher.PublishExpenseEvent(ctx, ev)
}

// Close closes the publisher and, when it has a Close method, the store.
func (s *ExpenseService) Close() error {
	var errs []error

	if c, ok := s.store.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %w", errors.Join(errs...))
	}
	return nil
}
