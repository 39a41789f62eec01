// Package storage defines the persistence contracts for the ledger journal.
package storage

import (
	"context"

	"github.com/louisbranch/tradebridge/internal/ledger/event"
)

// EventStore persists the append-only event journal. Implementations must
// preserve publish order: sequence numbers are contiguous, start at 1, and
// are assigned atomically on append.
type EventStore interface {
	// AppendEvent atomically appends an event and returns it with its
	// sequence number set.
	AppendEvent(ctx context.Context, evt event.Event) (event.Event, error)
	// ListEvents returns up to limit events with seq > afterSeq, ordered by
	// sequence ascending.
	ListEvents(ctx context.Context, afterSeq uint64, limit int) ([]event.Event, error)
	// LatestSeq returns the sequence number of the most recent event, or 0
	// when the journal is empty.
	LatestSeq(ctx context.Context) (uint64, error)
}
