package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/louisbranch/tradebridge/internal/ledger/projection"
	"github.com/louisbranch/tradebridge/internal/platform/id"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerLedgerTools(mcpServer *mcp.Server, p *projection.Projector) {
	mcp.AddTool(mcpServer, orderGetTool(), orderGetHandler(p))
	mcp.AddTool(mcpServer, positionGetTool(), positionGetHandler(p))
	mcp.AddTool(mcpServer, positionsListTool(), positionsListHandler(p))
	mcp.AddTool(mcpServer, systemStateTool(), systemStateHandler(p))
}

// OrderGetInput represents the MCP tool input for reading one order.
type OrderGetInput struct {
	OrderID string `json:"order_id" jsonschema:"order identifier"`
}

// OrderResult represents the projected state of one order.
type OrderResult struct {
	OrderID     string  `json:"order_id" jsonschema:"order identifier"`
	Symbol      string  `json:"symbol" jsonschema:"instrument symbol"`
	Side        string  `json:"side" jsonschema:"order side (BUY, SELL)"`
	OriginalQty float64 `json:"original_qty" jsonschema:"quantity originally placed"`
	FilledQty   float64 `json:"filled_qty" jsonschema:"quantity filled so far"`
	AvgPrice    float64 `json:"avg_price" jsonschema:"share-weighted average fill price"`
	Status      string  `json:"status" jsonschema:"fill status (SUBMITTED, FILLED)"`
	LastUpdated string  `json:"last_updated,omitempty" jsonschema:"RFC3339 timestamp of the last fill applied"`
}

// OrderGetResult represents the MCP tool output for reading one order.
type OrderGetResult struct {
	Found bool `json:"found" jsonschema:"whether the order exists in the ledger"`
	// Order is present only when Found is true.
	Order        *OrderResult `json:"order,omitempty" jsonschema:"projected order state"`
	AsOfSeq      uint64       `json:"as_of_seq" jsonschema:"journal sequence the read model reflects"`
	InvocationID string       `json:"invocation_id" jsonschema:"identifier for this tool invocation"`
}

func orderGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "order_get",
		Description: "Reads the projected fill state of one order by order id. A missing order is reported as found=false, not an error.",
	}
}

func orderGetHandler(p *projection.Projector) mcp.ToolHandlerFor[OrderGetInput, OrderGetResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input OrderGetInput) (*mcp.CallToolResult, OrderGetResult, error) {
		invocationID, err := id.NewID()
		if err != nil {
			return nil, OrderGetResult{}, fmt.Errorf("generate invocation id: %w", err)
		}
		result := OrderGetResult{AsOfSeq: p.LastSeq(), InvocationID: invocationID}
		if o, ok := p.Order(input.OrderID); ok {
			result.Found = true
			result.Order = orderToResult(o)
		}
		return nil, result, nil
	}
}

// PositionGetInput represents the MCP tool input for reading one position.
type PositionGetInput struct {
	Symbol string `json:"symbol" jsonschema:"instrument symbol"`
}

// PositionResult represents the projected net position for one symbol.
type PositionResult struct {
	Symbol string `json:"symbol" jsonschema:"instrument symbol"`
	// Qty is signed: positive long, negative short, zero flat.
	Qty         float64 `json:"qty" jsonschema:"signed open quantity"`
	AvgPrice    float64 `json:"avg_price" jsonschema:"cost basis of the open quantity (0 when flat)"`
	RealizedPnl float64 `json:"realized_pnl" jsonschema:"lifetime realized profit and loss"`
}

// PositionGetResult represents the MCP tool output for reading one position.
type PositionGetResult struct {
	Found        bool            `json:"found" jsonschema:"whether the symbol has ever traded"`
	Position     *PositionResult `json:"position,omitempty" jsonschema:"projected position state"`
	AsOfSeq      uint64          `json:"as_of_seq" jsonschema:"journal sequence the read model reflects"`
	InvocationID string          `json:"invocation_id" jsonschema:"identifier for this tool invocation"`
}

func positionGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "position_get",
		Description: "Reads the projected net position for one symbol. A never-traded symbol is reported as found=false, not an error.",
	}
}

func positionGetHandler(p *projection.Projector) mcp.ToolHandlerFor[PositionGetInput, PositionGetResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input PositionGetInput) (*mcp.CallToolResult, PositionGetResult, error) {
		invocationID, err := id.NewID()
		if err != nil {
			return nil, PositionGetResult{}, fmt.Errorf("generate invocation id: %w", err)
		}
		result := PositionGetResult{AsOfSeq: p.LastSeq(), InvocationID: invocationID}
		if pos, ok := p.Position(input.Symbol); ok {
			result.Found = true
			result.Position = positionToResult(pos)
		}
		return nil, result, nil
	}
}

// PositionsListInput represents the MCP tool input for listing positions.
type PositionsListInput struct{}

// PositionsListResult represents the MCP tool output for listing positions.
type PositionsListResult struct {
	Positions    []PositionResult `json:"positions" jsonschema:"every symbol ever touched, sorted by symbol"`
	AsOfSeq      uint64           `json:"as_of_seq" jsonschema:"journal sequence the read model reflects"`
	InvocationID string           `json:"invocation_id" jsonschema:"identifier for this tool invocation"`
}

func positionsListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "positions_list",
		Description: "Lists the projected net position of every symbol the ledger has seen.",
	}
}

func positionsListHandler(p *projection.Projector) mcp.ToolHandlerFor[PositionsListInput, PositionsListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ PositionsListInput) (*mcp.CallToolResult, PositionsListResult, error) {
		invocationID, err := id.NewID()
		if err != nil {
			return nil, PositionsListResult{}, fmt.Errorf("generate invocation id: %w", err)
		}
		positions := p.Positions()
		result := PositionsListResult{
			Positions:    make([]PositionResult, 0, len(positions)),
			AsOfSeq:      p.LastSeq(),
			InvocationID: invocationID,
		}
		for _, pos := range positions {
			result.Positions = append(result.Positions, *positionToResult(pos))
		}
		return nil, result, nil
	}
}

// SystemStateInput represents the MCP tool input for reading system state.
type SystemStateInput struct{}

// SystemStateResult represents the MCP tool output for reading system state.
type SystemStateResult struct {
	CurrentRegime    string  `json:"current_regime" jsonschema:"latest market regime"`
	RegimeConfidence float64 `json:"regime_confidence" jsonschema:"detector confidence as reported"`
	RiskBreaches     uint64  `json:"risk_breaches" jsonschema:"count of risk limit breaches this session"`
	AsOfSeq          uint64  `json:"as_of_seq" jsonschema:"journal sequence the read model reflects"`
	InvocationID     string  `json:"invocation_id" jsonschema:"identifier for this tool invocation"`
}

func systemStateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "system_state",
		Description: "Reads the projected system health record: current regime, detector confidence, and risk breach count.",
	}
}

func systemStateHandler(p *projection.Projector) mcp.ToolHandlerFor[SystemStateInput, SystemStateResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ SystemStateInput) (*mcp.CallToolResult, SystemStateResult, error) {
		invocationID, err := id.NewID()
		if err != nil {
			return nil, SystemStateResult{}, fmt.Errorf("generate invocation id: %w", err)
		}
		sys := p.System()
		return nil, SystemStateResult{
			CurrentRegime:    sys.CurrentRegime,
			RegimeConfidence: sys.RegimeConfidence,
			RiskBreaches:     sys.RiskBreaches,
			AsOfSeq:          p.LastSeq(),
			InvocationID:     invocationID,
		}, nil
	}
}

func orderToResult(o projection.OrderState) *OrderResult {
	result := &OrderResult{
		OrderID:     o.OrderID,
		Symbol:      o.Symbol,
		Side:        string(o.Side),
		OriginalQty: o.OriginalQty,
		FilledQty:   o.FilledQty,
		AvgPrice:    o.AvgPrice,
		Status:      string(o.Status),
	}
	if !o.LastUpdated.IsZero() {
		result.LastUpdated = o.LastUpdated.UTC().Format(time.RFC3339Nano)
	}
	return result
}

func positionToResult(pos projection.PositionState) *PositionResult {
	return &PositionResult{
		Symbol:      pos.Symbol,
		Qty:         pos.Qty,
		AvgPrice:    pos.AvgPrice,
		RealizedPnl: pos.RealizedPnl,
	}
}
