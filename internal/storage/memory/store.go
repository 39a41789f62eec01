// Package memory provides an in-memory EventStore for tests and ephemeral
// runs. It honors the same ordering contract as the durable stores.
package memory

import (
	"context"
	"sync"

	"github.com/louisbranch/tradebridge/internal/ledger/event"
)

// Store is an append-only, in-memory event journal.
type Store struct {
	mu     sync.Mutex
	events []event.Event
}

// NewStore constructs an empty in-memory event store.
func NewStore() *Store {
	return &Store{}
}

// AppendEvent atomically appends an event and returns it with its sequence
// number set.
func (s *Store) AppendEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	evt.Seq = uint64(len(s.events)) + 1
	s.events = append(s.events, evt)
	return evt, nil
}

// ListEvents returns up to limit events with seq > afterSeq, in sequence order.
func (s *Store) ListEvents(ctx context.Context, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if afterSeq >= uint64(len(s.events)) || limit <= 0 {
		return nil, nil
	}
	end := afterSeq + uint64(limit)
	if end > uint64(len(s.events)) {
		end = uint64(len(s.events))
	}
	out := make([]event.Event, end-afterSeq)
	copy(out, s.events[afterSeq:end])
	return out, nil
}

// LatestSeq returns the sequence number of the most recent event.
func (s *Store) LatestSeq(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(len(s.events)), nil
}
