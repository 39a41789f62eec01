// Package mcp exposes the ledger read models as MCP tools. All tools are
// read-only: event publication stays with the in-process producers, and
// absence of a record is reported in the result, never as a tool error.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/louisbranch/tradebridge/internal/ledger/projection"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// serverName identifies this MCP server to clients.
	serverName = "TradeBridge Ledger MCP"
	// serverVersion identifies the MCP server version.
	serverVersion = "0.1.0"
)

// Server hosts the MCP server over a hydrated projector.
type Server struct {
	mcpServer *mcp.Server
	projector *projection.Projector
}

// New creates a configured MCP server over the given projector. The
// projector must already be subscribed and hydrated.
func New(p *projection.Projector) (*Server, error) {
	if p == nil {
		return nil, fmt.Errorf("projector is required")
	}
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	registerLedgerTools(mcpServer, p)
	return &Server{mcpServer: mcpServer, projector: p}, nil
}

// Serve starts the MCP server on stdio and blocks until it stops or the
// context ends.
func (s *Server) Serve(ctx context.Context) error {
	return s.serveWithTransport(ctx, &mcp.StdioTransport{})
}

// serveWithTransport starts the MCP server using the provided transport.
func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}
