// Package console renders ledger read models as terminal tables.
package console

import (
	"fmt"
	"io"

	"github.com/louisbranch/tradebridge/internal/ledger/projection"
	"github.com/olekukonko/tablewriter"
)

// WritePositions renders every position as a table, in the order given.
func WritePositions(w io.Writer, positions []projection.PositionState) {
	if len(positions) == 0 {
		fmt.Fprintln(w, "no positions")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("Symbol", "Qty", "Avg Price", "Realized PnL")
	for _, pos := range positions {
		table.Append(
			pos.Symbol,
			fmt.Sprintf("%+.2f", pos.Qty),
			fmt.Sprintf("%.4f", pos.AvgPrice),
			fmt.Sprintf("%+.2f", pos.RealizedPnl),
		)
	}
	table.Render()
}

// WriteOrders renders every projected order as a table.
func WriteOrders(w io.Writer, orders []projection.OrderState) {
	if len(orders) == 0 {
		fmt.Fprintln(w, "no orders")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("Order", "Symbol", "Side", "Qty", "Filled", "Avg Price", "Status")
	for _, o := range orders {
		table.Append(
			o.OrderID,
			o.Symbol,
			string(o.Side),
			fmt.Sprintf("%.2f", o.OriginalQty),
			fmt.Sprintf("%.2f", o.FilledQty),
			fmt.Sprintf("%.4f", o.AvgPrice),
			string(o.Status),
		)
	}
	table.Render()
}

// WriteSystem renders the system health record.
func WriteSystem(w io.Writer, sys projection.SystemState, lastSeq uint64) {
	table := tablewriter.NewWriter(w)
	table.Header("Regime", "Confidence", "Risk Breaches", "Last Seq")
	table.Append(
		sys.CurrentRegime,
		fmt.Sprintf("%.3f", sys.RegimeConfidence),
		fmt.Sprintf("%d", sys.RiskBreaches),
		fmt.Sprintf("%d", lastSeq),
	)
	table.Render()
}
