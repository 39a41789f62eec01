// Package journal provides the ordered, append-only event log with
// synchronous publish/subscribe fan-out and deterministic replay.
package journal

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/louisbranch/tradebridge/internal/ledger/event"
	"github.com/louisbranch/tradebridge/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const replayPageSize = 200

// Subscriber consumes journal events. Apply is invoked once per event, in
// sequence order; it must not be called concurrently by the journal.
type Subscriber interface {
	Apply(ctx context.Context, evt event.Event) error
}

// Subscription identifies a registered subscriber.
type Subscription struct {
	id int
}

type registration struct {
	id  int
	sub Subscriber
}

// Journal is the append-only ledger event log. Publish, Subscribe, and
// Replay serialize on one mutex: two events are never interleaved mid-apply,
// and a subscriber sees each event fully processed before the next begins.
type Journal struct {
	store storage.EventStore

	mu     sync.Mutex
	subs   []registration
	nextID int
}

// New constructs a journal over the given event store.
func New(store storage.EventStore) (*Journal, error) {
	if store == nil {
		return nil, fmt.Errorf("event store is required")
	}
	return &Journal{store: store}, nil
}

// Publish validates and persists the payload, then notifies every registered
// subscriber synchronously, in registration order, before returning.
//
// Durability is independent of projection success: a subscriber error is
// logged and delivery continues to the remaining subscribers; the persisted
// event is never rolled back.
func (j *Journal) Publish(ctx context.Context, p event.Payload) (event.Event, error) {
	evt, err := event.New(p)
	if err != nil {
		return event.Event{}, err
	}

	ctx, span := tracer().Start(ctx, "journal.Publish",
		trace.WithAttributes(attribute.String("event.type", string(evt.Type))))
	defer span.End()

	j.mu.Lock()
	defer j.mu.Unlock()

	stored, err := j.store.AppendEvent(ctx, evt)
	if err != nil {
		return event.Event{}, fmt.Errorf("append event: %w", err)
	}
	span.SetAttributes(attribute.Int64("event.seq", int64(stored.Seq)))

	for _, reg := range j.subs {
		if err := reg.sub.Apply(ctx, stored); err != nil {
			log.Printf("journal: subscriber %d failed on %s seq=%d: %v",
				reg.id, stored.Type, stored.Seq, err)
		}
	}
	return stored, nil
}

// Subscribe registers a subscriber for every future publish. History is not
// delivered retroactively; callers needing history must call Replay.
func (j *Journal) Subscribe(sub Subscriber) Subscription {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.nextID++
	j.subs = append(j.subs, registration{id: j.nextID, sub: sub})
	return Subscription{id: j.nextID}
}

// Unsubscribe removes a previously registered subscriber. Unknown handles
// are a no-op.
func (j *Journal) Unsubscribe(s Subscription) {
	j.mu.Lock()
	defer j.mu.Unlock()

	for i, reg := range j.subs {
		if reg.id == s.id {
			j.subs = append(j.subs[:i], j.subs[i+1:]...)
			return
		}
	}
}

// Replay iterates all persisted events in ascending sequence order and
// delivers each to every currently registered subscriber, in registration
// order. It returns the last sequence delivered.
//
// Unlike Publish, any failure aborts the replay: a projector must not be
// presented as authoritative while partially hydrated.
func (j *Journal) Replay(ctx context.Context) (uint64, error) {
	ctx, span := tracer().Start(ctx, "journal.Replay")
	defer span.End()

	j.mu.Lock()
	defer j.mu.Unlock()

	var lastSeq uint64
	for {
		events, err := j.store.ListEvents(ctx, lastSeq, replayPageSize)
		if err != nil {
			return lastSeq, fmt.Errorf("list events: %w", err)
		}
		if len(events) == 0 {
			span.SetAttributes(attribute.Int64("replay.last_seq", int64(lastSeq)))
			return lastSeq, nil
		}
		for _, evt := range events {
			if evt.Seq != lastSeq+1 {
				return lastSeq, fmt.Errorf("event sequence gap: expected %d got %d", lastSeq+1, evt.Seq)
			}
			for _, reg := range j.subs {
				if err := reg.sub.Apply(ctx, evt); err != nil {
					return lastSeq, fmt.Errorf("replay %s seq=%d: %w", evt.Type, evt.Seq, err)
				}
			}
			lastSeq = evt.Seq
		}
	}
}

func tracer() trace.Tracer {
	return otel.Tracer("github.com/louisbranch/tradebridge/internal/ledger/journal")
}
