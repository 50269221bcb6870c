package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record kinds carried by a LedgerEvent.
const (
	KindInvoice = "invoice"
	KindEarning = "earning"
)

// Actions carried by a LedgerEvent.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionStatus  = "status"
)

// LedgerEvent announces an acknowledged mutation. It carries only the record
// identity; consumers fetch the current record from the store when they need
// its fields.
type LedgerEvent struct {
	Kind      string    `json:"kind"`
	Action    string    `json:"action"`
	ID        int64     `json:"id"`
	Status    string    `json:"status,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEvent(kind, action string, id int64) *LedgerEvent {
	return &LedgerEvent{
		Kind:      kind,
		Action:    action,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}

// WithStatus records the label a status transition landed on.
func (e *LedgerEvent) WithStatus(status string) *LedgerEvent {
	e.Status = status
	return e
}

func (e *LedgerEvent) Validate() error {
	switch e.Kind {
	case KindInvoice, KindEarning:
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	switch e.Action {
	case ActionCreated, ActionUpdated, ActionDeleted, ActionStatus:
	default:
		return fmt.Errorf("unknown event action %q", e.Action)
	}
	if e.ID <= 0 {
		return fmt.Errorf("invalid record id %d", e.ID)
	}
	return nil
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and validates an event.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
