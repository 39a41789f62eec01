package event

import (
	"fmt"
	"math"
	"time"
)

// Side identifies the direction of an order or execution.
type Side string

const (
	// SideBuy marks a buy order or fill.
	SideBuy Side = "BUY"
	// SideSell marks a sell order or fill.
	SideSell Side = "SELL"
)

// IsValid reports whether the side is BUY or SELL.
func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// OrderPlaced captures the payload for order.placed events.
type OrderPlaced struct {
	OrderID    string    `json:"order_id"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Quantity   float64   `json:"quantity"`
	OrderType  string    `json:"order_type"`
	LimitPrice *float64  `json:"limit_price,omitempty"`
	StrategyID string    `json:"strategy_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// EventType returns the type tag for order.placed events.
func (p OrderPlaced) EventType() Type { return TypeOrderPlaced }

// Validate reports whether the payload carries all required fields.
func (p OrderPlaced) Validate() error {
	if err := requireField("order id", p.OrderID); err != nil {
		return err
	}
	if err := requireField("symbol", p.Symbol); err != nil {
		return err
	}
	if !p.Side.IsValid() {
		return fmt.Errorf("side %q must be BUY or SELL", p.Side)
	}
	if err := requireAmount("quantity", p.Quantity); err != nil {
		return err
	}
	if err := requireField("order type", p.OrderType); err != nil {
		return err
	}
	if p.LimitPrice != nil && !isFinite(*p.LimitPrice) {
		return fmt.Errorf("limit price must be finite")
	}
	return requireField("strategy id", p.StrategyID)
}

func (p OrderPlaced) occurredAt() time.Time { return p.Timestamp }

// ExecutionReceived captures the payload for order.execution_received events.
type ExecutionReceived struct {
	ExecID     string    `json:"exec_id"`
	OrderID    string    `json:"order_id"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	LastShares float64   `json:"last_shares"`
	LastPrice  float64   `json:"last_price"`
	Timestamp  time.Time `json:"timestamp"`
}

// EventType returns the type tag for order.execution_received events.
func (p ExecutionReceived) EventType() Type { return TypeExecutionReceived }

// Validate reports whether the payload carries all required fields.
func (p ExecutionReceived) Validate() error {
	if err := requireField("exec id", p.ExecID); err != nil {
		return err
	}
	if err := requireField("order id", p.OrderID); err != nil {
		return err
	}
	if err := requireField("symbol", p.Symbol); err != nil {
		return err
	}
	if !p.Side.IsValid() {
		return fmt.Errorf("side %q must be BUY or SELL", p.Side)
	}
	if err := requireAmount("last shares", p.LastShares); err != nil {
		return err
	}
	if !isFinite(p.LastPrice) {
		return fmt.Errorf("last price must be finite")
	}
	return nil
}

func (p ExecutionReceived) occurredAt() time.Time { return p.Timestamp }

// SignedShares returns the fill quantity signed by direction: positive for
// buys, negative for sells.
func (p ExecutionReceived) SignedShares() float64 {
	if p.Side == SideSell {
		return -p.LastShares
	}
	return p.LastShares
}

// RegimeShifted captures the payload for market.regime_shifted events.
// Confidence is stored as reported by the detector; bounds are the
// producer's concern.
type RegimeShifted struct {
	PrevRegime string    `json:"prev_regime"`
	NewRegime  string    `json:"new_regime"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// EventType returns the type tag for market.regime_shifted events.
func (p RegimeShifted) EventType() Type { return TypeRegimeShifted }

// Validate reports whether the payload carries all required fields.
func (p RegimeShifted) Validate() error {
	if err := requireField("new regime", p.NewRegime); err != nil {
		return err
	}
	if !isFinite(p.Confidence) {
		return fmt.Errorf("confidence must be finite")
	}
	return nil
}

func (p RegimeShifted) occurredAt() time.Time { return p.Timestamp }

// RiskLimitBreached captures the payload for risk.limit_breached events.
type RiskLimitBreached struct {
	RuleID       string    `json:"rule_id"`
	CurrentValue float64   `json:"current_value"`
	LimitValue   float64   `json:"limit_value"`
	Symbol       string    `json:"symbol,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// EventType returns the type tag for risk.limit_breached events.
func (p RiskLimitBreached) EventType() Type { return TypeRiskLimitBreached }

// Validate reports whether the payload carries all required fields.
func (p RiskLimitBreached) Validate() error {
	if err := requireField("rule id", p.RuleID); err != nil {
		return err
	}
	if !isFinite(p.CurrentValue) || !isFinite(p.LimitValue) {
		return fmt.Errorf("rule values must be finite")
	}
	return nil
}

func (p RiskLimitBreached) occurredAt() time.Time { return p.Timestamp }

func requireAmount(name string, v float64) error {
	if !isFinite(v) {
		return fmt.Errorf("%s must be finite", name)
	}
	if v < 0 {
		return fmt.Errorf("%s must not be negative", name)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
