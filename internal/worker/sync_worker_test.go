package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"kharcha/internal/amqp"
	"kharcha/internal/core"
	"kharcha/internal/sheets/memory"
)

func createdEvent(id string) *amqp.ExpenseEvent {
	return amqp.NewExpenseCreatedEvent(core.ExpenseRecord{
		ID: id, ItemName: "Chai", Amount: core.MustParseAmount("12.5"),
		Date: core.NewDate(2024, 3, 5), UserEmail: "a@x.io",
	})
}

func TestHandleEvent_CreatedAppendsOnce(t *testing.T) {
	mirror := memory.New()
	w := NewSyncWorker(mirror, nil)
	ctx := context.Background()

	for range 2 {
		if err := w.HandleEvent(ctx, createdEvent("e1")); err != nil {
			t.Fatalf("HandleEvent: %v", err)
		}
	}
	rows := mirror.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d rows", len(rows))
	}
	if rows[1][0] != "e1" || rows[1][1] != "05-03-2024" || rows[1][3] != "12.50" {
		t.Errorf("unexpected row %v", rows[1])
	}
}

func TestHandleEvent_Deleted(t *testing.T) {
	mirror := memory.New()
	w := NewSyncWorker(mirror, nil)
	ctx := context.Background()
	_ = w.HandleEvent(ctx, createdEvent("e1"))

	if err := w.HandleEvent(ctx, amqp.NewExpenseDeletedEvent("e1", "a@x.io")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if rows := mirror.Rows(); len(rows[1]) != 0 {
		t.Fatalf("row should be cleared, got %v", rows[1])
	}

	// Unknown rows are acknowledged.
	if err := w.HandleEvent(ctx, amqp.NewExpenseDeletedEvent("nope", "")); err != nil {
		t.Fatalf("missing row should not fail: %v", err)
	}
}

type failingMirror struct{ err error }

func (f failingMirror) AppendExpense(context.Context, core.ExpenseRecord) (string, error) {
	return "", f.err
}
func (f failingMirror) DeleteByID(context.Context, string) error { return f.err }

func TestHandleEvent_MirrorErrorIsReturned(t *testing.T) {
	boom := errors.New("quota exceeded")
	w := NewSyncWorker(failingMirror{err: boom}, nil)

	if err := w.HandleEvent(context.Background(), createdEvent("e1")); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if err := w.HandleEvent(context.Background(), amqp.NewExpenseDeletedEvent("e1", "")); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestHandleEvent_UnknownTypeIgnored(t *testing.T) {
	w := NewSyncWorker(failingMirror{err: errors.New("unused")}, nil)
	ev := &amqp.ExpenseEvent{Type: "expense.renamed", ID: "e1"}
	if err := w.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("unknown types should be dropped, got %v", err)
	}
}

// scriptedConsumer fails a fixed number of times, then delivers its events
// and blocks until cancelled.
type scriptedConsumer struct {
	failures int32
	calls    atomic.Int32
	events   []*amqp.ExpenseEvent
	done     chan struct{}
}

func (c *scriptedConsumer) ConsumeExpenseEvents(ctx context.Context, handler func(context.Context, *amqp.ExpenseEvent) error) error {
	if c.calls.Add(1) <= c.failures {
		return errors.New("channel closed")
	}
	for _, ev := range c.events {
		if err := handler(ctx, ev); err != nil {
			return err
		}
	}
	close(c.done)
	<-ctx.Done()
	return ctx.Err()
}

func TestRun_RetriesUntilCancelled(t *testing.T) {
	mirror := memory.New()
	w := NewSyncWorker(mirror, nil)
	w.minBackoff = time.Millisecond
	w.maxBackoff = 5 * time.Millisecond

	consumer := &scriptedConsumer{failures: 2, events: []*amqp.ExpenseEvent{createdEvent("e1")}, done: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- w.Run(ctx, consumer) }()

	select {
	case <-consumer.done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer never delivered")
	}
	cancel()

	if err := <-result; err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if got := consumer.calls.Load(); got != 3 {
		t.Errorf("expected 3 consume attempts, got %d", got)
	}
	if len(mirror.Rows()) != 2 {
		t.Errorf("expected the event to be mirrored")
	}
}
