// Package event defines the trading domain events carried by the ledger
// journal. The event set is a closed union: every payload type lives in this
// package, and consumers dispatch with an exhaustive type switch so an
// unhandled variant surfaces as an error instead of being silently dropped.
package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Type identifies the type of a ledger event.
type Type string

// Order lifecycle events.
const (
	// TypeOrderPlaced records an order submitted to the broker.
	TypeOrderPlaced Type = "order.placed"
	// TypeExecutionReceived records a fill report from the broker.
	TypeExecutionReceived Type = "order.execution_received"
)

// Market and risk events.
const (
	// TypeRegimeShifted records a market regime transition.
	TypeRegimeShifted Type = "market.regime_shifted"
	// TypeRiskLimitBreached records a risk rule crossing its limit.
	TypeRiskLimitBreached Type = "risk.limit_breached"
)

// IsValid reports whether the event type is one of the known variants.
func (t Type) IsValid() bool {
	switch t {
	case TypeOrderPlaced, TypeExecutionReceived, TypeRegimeShifted, TypeRiskLimitBreached:
		return true
	}
	return false
}

// Domain returns the domain prefix of the event type (e.g., "order", "risk").
func (t Type) Domain() string {
	for i, c := range t {
		if c == '.' {
			return string(t[:i])
		}
	}
	return string(t)
}

// Event represents an immutable event in the ledger journal.
type Event struct {
	// Seq is the event sequence number (starts at 1). Assigned by storage
	// on append; the sole ordering key for replay.
	Seq uint64
	// Timestamp is when the event occurred, millisecond precision UTC.
	Timestamp time.Time
	// Type identifies the kind of event.
	Type Type
	// PayloadJSON holds event-specific data as JSON.
	PayloadJSON []byte
}

// Payload is implemented by every event payload variant. The union is sealed:
// only types in this package satisfy it.
type Payload interface {
	// EventType returns the type tag for the payload variant.
	EventType() Type
	// Validate reports whether the payload carries all required fields.
	Validate() error

	// occurredAt seals the interface and supplies the envelope timestamp.
	occurredAt() time.Time
}

// New builds an envelope for the given payload. The payload is validated
// before it is marshaled; an invalid payload never becomes an event.
func New(p Payload) (Event, error) {
	if p == nil {
		return Event{}, fmt.Errorf("event payload is required")
	}
	if err := p.Validate(); err != nil {
		return Event{}, fmt.Errorf("validate %s: %w", p.EventType(), err)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", p.EventType(), err)
	}
	ts := p.occurredAt()
	if ts.IsZero() {
		ts = time.Now()
	}
	return Event{
		Timestamp:   ts.UTC().Truncate(time.Millisecond),
		Type:        p.EventType(),
		PayloadJSON: raw,
	}, nil
}

// Payload decodes the envelope's payload into its concrete variant.
// An unknown type tag or malformed JSON is an error; replay treats either
// as corrupt history.
func (e Event) Payload() (Payload, error) {
	switch e.Type {
	case TypeOrderPlaced:
		return decode[OrderPlaced](e)
	case TypeExecutionReceived:
		return decode[ExecutionReceived](e)
	case TypeRegimeShifted:
		return decode[RegimeShifted](e)
	case TypeRiskLimitBreached:
		return decode[RiskLimitBreached](e)
	default:
		return nil, fmt.Errorf("unknown event type %q at seq %d", e.Type, e.Seq)
	}
}

func decode[P Payload](e Event) (Payload, error) {
	var p P
	if err := json.Unmarshal(e.PayloadJSON, &p); err != nil {
		return nil, fmt.Errorf("decode %s payload at seq %d: %w", e.Type, e.Seq, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("decode %s payload at seq %d: %w", e.Type, e.Seq, err)
	}
	return p, nil
}

func requireField(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", name)
	}
	return nil
}
