package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kharcha/internal/core"
)

// EventType names what happened to an expense.
type EventType string

const (
	EventExpenseCreated EventType = "expense.created"
	EventExpenseDeleted EventType = "expense.deleted"
)

var ErrInvalidEvent = errors.New("invalid expense event")

// ExpenseEvent is published after the ledger changes. Deleted events carry
// only the id and, when known, the owner's email.
type ExpenseEvent struct {
	Type      EventType   `json:"type"`
	ID        string      `json:"id"`
	ItemName  string      `json:"itemName,omitempty"`
	Amount    json.Number `json:"amount,omitempty"`
	Date      string      `json:"date,omitempty"`
	UserEmail string      `json:"userEmail,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewExpenseCreatedEvent describes a stored record.
func NewExpenseCreatedEvent(r core.ExpenseRecord) *ExpenseEvent {
	return &ExpenseEvent{
		Type:      EventExpenseCreated,
		ID:        r.ID,
		ItemName:  r.ItemName,
		Amount:    json.Number(r.Amount.Decimal().String()),
		Date:      core.EncodeDate(r.Date),
		UserEmail: r.UserEmail,
		Timestamp: time.Now().UTC(),
	}
}

// NewExpenseDeletedEvent describes a removed record.
func NewExpenseDeletedEvent(id, email string) *ExpenseEvent {
	return &ExpenseEvent{
		Type:      EventExpenseDeleted,
		ID:        id,
		UserEmail: email,
		Timestamp: time.Now().UTC(),
	}
}

// Validate checks the fields required by the event type.
func (e *ExpenseEvent) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidEvent)
	}
	switch e.Type {
	case EventExpenseDeleted:
		return nil
	case EventExpenseCreated:
		if _, err := e.Record(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
}

// Record rebuilds the typed record carried by a created event.
func (e *ExpenseEvent) Record() (core.ExpenseRecord, error) {
	return core.NormalizeRecord(core.RawRecord{
		ID:        e.ID,
		ItemName:  e.ItemName,
		Amount:    e.Amount.String(),
		Date:      e.Date,
		UserEmail: e.UserEmail,
	})
}

// ToJSON converts the event to JSON bytes
func (e *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ExpenseEventFromJSON decodes and validates an event.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var ev ExpenseEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}
