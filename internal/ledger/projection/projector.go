// Package projection maintains the read models derived from the ledger
// journal: order fill state, netted positions, and system health. State is
// rebuilt deterministically by replay; a projector hydrated from history is
// field-for-field identical to one that consumed the same events live.
package projection

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/louisbranch/tradebridge/internal/ledger/event"
	"github.com/louisbranch/tradebridge/internal/ledger/journal"
)

// OrderStatus identifies the fill state of an order.
type OrderStatus string

const (
	// OrderStatusSubmitted marks an order not yet fully filled.
	OrderStatusSubmitted OrderStatus = "SUBMITTED"
	// OrderStatusFilled marks an order whose fills reached its quantity.
	OrderStatusFilled OrderStatus = "FILLED"
)

// OrderState is the projected fill state of a single order.
type OrderState struct {
	OrderID     string
	Symbol      string
	Side        event.Side
	OriginalQty float64
	FilledQty   float64
	// AvgPrice is the share-weighted mean of all execution prices applied
	// to this order, in application order.
	AvgPrice    float64
	Status      OrderStatus
	LastUpdated time.Time
}

// PositionState is the projected net position for a symbol. Qty is signed:
// positive long, negative short, zero flat.
type PositionState struct {
	Symbol string
	Qty    float64
	// AvgPrice is the cost basis of the currently open quantity only; it
	// resets to 0 exactly when Qty returns to 0.
	AvgPrice float64
	// RealizedPnl accumulates across the position's entire lifetime. It is
	// never reset between round trips.
	RealizedPnl float64
}

// SystemState is the projected singleton system health record.
type SystemState struct {
	CurrentRegime    string
	RegimeConfidence float64
	RiskBreaches     uint64
}

// DefaultRegime is the neutral regime before any shift has been observed.
const DefaultRegime = "unknown"

// Projector consumes journal events and maintains the order, position, and
// system tables. Reads take a shared lock; event application is exclusive.
type Projector struct {
	mu        sync.RWMutex
	orders    map[string]OrderState
	positions map[string]PositionState
	system    SystemState
	lastSeq   uint64
}

// New constructs a projector, subscribes it to the journal, and hydrates it
// by replaying existing history — one atomic bootstrap step, so the caller
// never observes a subscribed-but-unhydrated projector. A replay failure is
// an unrecoverable construction error.
func New(ctx context.Context, j *journal.Journal) (*Projector, error) {
	if j == nil {
		return nil, fmt.Errorf("journal is required")
	}
	p := NewDetached()
	j.Subscribe(p)
	if _, err := j.Replay(ctx); err != nil {
		return nil, fmt.Errorf("hydrate projector: %w", err)
	}
	return p, nil
}

// NewDetached constructs an empty projector without subscribing it anywhere.
// Callers own subscription and replay; most code should use New.
func NewDetached() *Projector {
	return &Projector{
		orders:    make(map[string]OrderState),
		positions: make(map[string]PositionState),
		system:    SystemState{CurrentRegime: DefaultRegime},
	}
}

// Order returns the projected state for an order id. Absence is not an
// error: the second result reports whether the order exists.
func (p *Projector) Order(orderID string) (OrderState, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	o, ok := p.orders[orderID]
	return o, ok
}

// Position returns the projected net position for a symbol.
func (p *Projector) Position(symbol string) (PositionState, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pos, ok := p.positions[symbol]
	return pos, ok
}

// Positions returns every symbol ever touched, sorted by symbol for stable
// output.
func (p *Projector) Positions() []PositionState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]PositionState, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Orders returns every projected order, sorted by order id.
func (p *Projector) Orders() []OrderState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]OrderState, 0, len(p.orders))
	for _, o := range p.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out
}

// System returns a value copy of the system state; callers cannot mutate
// projector internals through it.
func (p *Projector) System() SystemState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.system
}

// LastSeq returns the sequence number of the last event applied.
func (p *Projector) LastSeq() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastSeq
}
