package projection

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/louisbranch/tradebridge/internal/ledger/event"
)

// Apply dispatches one journal event to its handler. Handlers are pure state
// transitions over the in-memory tables, so Apply is safe to drive from live
// publishes and from replay alike.
func (p *Projector) Apply(ctx context.Context, evt event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := evt.Payload()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch pl := payload.(type) {
	case event.OrderPlaced:
		p.applyOrderPlaced(pl)
	case event.ExecutionReceived:
		p.applyExecutionReceived(pl)
	case event.RegimeShifted:
		p.applyRegimeShifted(pl)
	case event.RiskLimitBreached:
		p.applyRiskLimitBreached(pl)
	default:
		return fmt.Errorf("unhandled event type %q at seq %d", evt.Type, evt.Seq)
	}

	p.lastSeq = evt.Seq
	return nil
}

// applyOrderPlaced inserts the order. A repeated order id overwrites: the
// upstream producer guarantees uniqueness, this layer does not police it.
func (p *Projector) applyOrderPlaced(pl event.OrderPlaced) {
	p.orders[pl.OrderID] = OrderState{
		OrderID:     pl.OrderID,
		Symbol:      pl.Symbol,
		Side:        pl.Side,
		OriginalQty: pl.Quantity,
		Status:      OrderStatusSubmitted,
		LastUpdated: pl.Timestamp,
	}
}

// applyExecutionReceived folds a fill into the order and position tables.
//
// An execution for an unknown order id updates only the position: event
// ordering between external systems is not gap-free, and position tracking
// depends solely on the execution's own symbol, side, shares, and price.
func (p *Projector) applyExecutionReceived(pl event.ExecutionReceived) {
	if o, ok := p.orders[pl.OrderID]; ok {
		newFilled := o.FilledQty + pl.LastShares
		if o.FilledQty == 0 {
			o.AvgPrice = pl.LastPrice
		} else if newFilled > 0 {
			o.AvgPrice = (o.FilledQty*o.AvgPrice + pl.LastShares*pl.LastPrice) / newFilled
		}
		o.FilledQty = newFilled
		if newFilled >= o.OriginalQty {
			// Over-fills are accepted; reconciliation against the broker's
			// view belongs upstream.
			o.Status = OrderStatusFilled
		}
		o.LastUpdated = pl.Timestamp
		p.orders[pl.OrderID] = o
	} else {
		log.Printf("projection: execution %s references unknown order %s", pl.ExecID, pl.OrderID)
	}

	p.positions[pl.Symbol] = applyFill(p.positions[pl.Symbol], pl)
}

// applyFill nets one execution into a position. The zero PositionState
// doubles as "no position yet": flat, zero basis, zero realized.
func applyFill(pos PositionState, pl event.ExecutionReceived) PositionState {
	pos.Symbol = pl.Symbol
	delta := pl.SignedShares()
	if delta == 0 {
		return pos
	}

	// Same direction (or flat): the fill extends the position and the cost
	// basis becomes the share-weighted mean of old and new.
	if pos.Qty == 0 || sameSign(pos.Qty, delta) {
		newQty := pos.Qty + delta
		pos.AvgPrice = (math.Abs(pos.Qty)*pos.AvgPrice + pl.LastShares*pl.LastPrice) / math.Abs(newQty)
		pos.Qty = newQty
		return pos
	}

	// Opposite direction: the fill reduces, flattens, or flips exposure.
	// Only the closing portion realizes P&L, signed by the original
	// position direction.
	closing := math.Min(pl.LastShares, math.Abs(pos.Qty))
	if pos.Qty > 0 {
		pos.RealizedPnl += closing * (pl.LastPrice - pos.AvgPrice)
	} else {
		pos.RealizedPnl += closing * (pos.AvgPrice - pl.LastPrice)
	}

	newQty := pos.Qty + delta
	switch {
	case newQty == 0:
		pos.AvgPrice = 0
	case !sameSign(pos.Qty, newQty):
		// Flip through zero: the remainder is a brand-new position opened
		// entirely at the execution price.
		pos.AvgPrice = pl.LastPrice
	default:
		// Partial close: the remaining open quantity keeps its basis.
	}
	pos.Qty = newQty
	return pos
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

// applyRegimeShifted replaces the regime and confidence as reported; values
// outside [0,1] are stored as-is.
func (p *Projector) applyRegimeShifted(pl event.RegimeShifted) {
	p.system.CurrentRegime = pl.NewRegime
	p.system.RegimeConfidence = pl.Confidence
}

// applyRiskLimitBreached counts every breach, with no dedup by rule.
func (p *Projector) applyRiskLimitBreached(event.RiskLimitBreached) {
	p.system.RiskBreaches++
}
