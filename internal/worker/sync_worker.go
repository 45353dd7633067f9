package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kharcha/internal/amqp"
	applog "kharcha/internal/log"
	"kharcha/internal/sheets"
)

// EventConsumer delivers expense events to a handler until ctx ends or the
// underlying channel fails.
type EventConsumer interface {
	ConsumeExpenseEvents(ctx context.Context, handler func(context.Context, *amqp.ExpenseEvent) error) error
}

// SyncWorker mirrors expense events into a spreadsheet.
type SyncWorker struct {
	mirror     sheets.Mirror
	logger     *applog.Logger
	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewSyncWorker(mirror sheets.Mirror, logger *applog.Logger) *SyncWorker {
	if logger == nil {
		logger = applog.Discard(applog.ComponentWorker)
	}
	return &SyncWorker{
		mirror:     mirror,
		logger:     logger.WithComponent(applog.ComponentWorker),
		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
	}
}

// HandleEvent applies one event to the mirror. A delete for a row the sheet
// never had is treated as done, so the message is not requeued forever.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	switch ev.Type {
	case amqp.EventExpenseCreated:
		rec, err := ev.Record()
		if err != nil {
			return fmt.Errorf("decode created event %s: %w", ev.ID, err)
		}
		ref, err := w.mirror.AppendExpense(ctx, rec)
		if err != nil {
			return fmt.Errorf("append expense %s: %w", ev.ID, err)
		}
		w.logger.InfoContext(ctx, "Expense synced", applog.FieldExpenseID, ev.ID, "sheets_ref", ref)
		return nil

	case amqp.EventExpenseDeleted:
		err := w.mirror.DeleteByID(ctx, ev.ID)
		if errors.Is(err, sheets.ErrRowNotFound) {
			w.logger.WarnContext(ctx, "Deleted expense was not mirrored", applog.FieldExpenseID, ev.ID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("delete expense %s: %w", ev.ID, err)
		}
		w.logger.InfoContext(ctx, "Expense removed from sheet", applog.FieldExpenseID, ev.ID)
		return nil

	default:
		w.logger.WarnContext(ctx, "Ignoring unknown event type", "type", ev.Type, applog.FieldExpenseID, ev.ID)
		return nil
	}
}

// Run consumes events until ctx is cancelled, restarting the consumer with
// exponential backoff when it fails.
func (w *SyncWorker) Run(ctx context.Context, consumer EventConsumer) error {
	backoff := w.minBackoff
	for {
		started := time.Now()
		err := consumer.ConsumeExpenseEvents(ctx, w.HandleEvent)
		if ctx.Err() != nil {
			return nil
		}
		if time.Since(started) > w.maxBackoff {
			backoff = w.minBackoff
		}
		w.logger.ErrorContext(ctx, "Message consumption stopped, retrying",
			applog.FieldError, err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, w.maxBackoff)
	}
}
