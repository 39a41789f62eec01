package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/louisbranch/tradebridge/internal/ledger/event"
	"github.com/louisbranch/tradebridge/internal/storage/memory"
)

type recordingSubscriber struct {
	name string
	log  *[]string
	seqs []uint64
	fail error
}

func (s *recordingSubscriber) Apply(_ context.Context, evt event.Event) error {
	if s.log != nil {
		*s.log = append(*s.log, fmt.Sprintf("%s:%d", s.name, evt.Seq))
	}
	s.seqs = append(s.seqs, evt.Seq)
	return s.fail
}

func placedPayload(orderID string) event.OrderPlaced {
	return event.OrderPlaced{
		OrderID:    orderID,
		Symbol:     "AAPL",
		Side:       event.SideBuy,
		Quantity:   100,
		OrderType:  "MKT",
		StrategyID: "momentum-v2",
	}
}

func TestNew_RequiresStore(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error for nil store")
	}
}

func TestPublish_AssignsSequence(t *testing.T) {
	j, err := New(memory.NewStore())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		evt, err := j.Publish(ctx, placedPayload(fmt.Sprintf("ord-%d", i)))
		if err != nil {
			t.Fatalf("Publish %d: %v", i, err)
		}
		if evt.Seq != uint64(i) {
			t.Fatalf("Publish %d: Seq = %d, want %d", i, evt.Seq, i)
		}
	}
}

func TestPublish_RejectsInvalidPayloadWithoutPersisting(t *testing.T) {
	store := memory.NewStore()
	j, _ := New(store)
	ctx := context.Background()

	if _, err := j.Publish(ctx, event.OrderPlaced{}); err == nil {
		t.Fatal("expected validation error")
	}

	seq, err := store.LatestSeq(ctx)
	if err != nil {
		t.Fatalf("LatestSeq: %v", err)
	}
	if seq != 0 {
		t.Fatalf("LatestSeq = %d, want 0 after rejected publish", seq)
	}
}

func TestPublish_FanOutInRegistrationOrder(t *testing.T) {
	j, _ := New(memory.NewStore())
	var calls []string
	j.Subscribe(&recordingSubscriber{name: "a", log: &calls})
	j.Subscribe(&recordingSubscriber{name: "b", log: &calls})

	if _, err := j.Publish(context.Background(), placedPayload("ord-1")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	want := []string{"a:1", "b:1"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", calls, want)
		}
	}
}

func TestPublish_SubscriberErrorDoesNotBlockOthers(t *testing.T) {
	j, _ := New(memory.NewStore())
	failing := &recordingSubscriber{name: "bad", fail: errors.New("projection exploded")}
	healthy := &recordingSubscriber{name: "ok"}
	j.Subscribe(failing)
	j.Subscribe(healthy)

	evt, err := j.Publish(context.Background(), placedPayload("ord-1"))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if evt.Seq != 1 {
		t.Fatalf("Seq = %d, want 1", evt.Seq)
	}
	if len(healthy.seqs) != 1 || healthy.seqs[0] != 1 {
		t.Fatalf("healthy subscriber saw %v, want [1]", healthy.seqs)
	}
}

func TestSubscribe_NoRetroactiveDelivery(t *testing.T) {
	j, _ := New(memory.NewStore())
	ctx := context.Background()

	if _, err := j.Publish(ctx, placedPayload("ord-1")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	late := &recordingSubscriber{name: "late"}
	j.Subscribe(late)

	if _, err := j.Publish(ctx, placedPayload("ord-2")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(late.seqs) != 1 || late.seqs[0] != 2 {
		t.Fatalf("late subscriber saw %v, want [2]", late.seqs)
	}
}

func TestUnsubscribe(t *testing.T) {
	j, _ := New(memory.NewStore())
	sub := &recordingSubscriber{name: "a"}
	handle := j.Subscribe(sub)
	j.Unsubscribe(handle)
	// Unknown handle is a no-op.
	j.Unsubscribe(Subscription{id: 99})

	if _, err := j.Publish(context.Background(), placedPayload("ord-1")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(sub.seqs) != 0 {
		t.Fatalf("unsubscribed subscriber saw %v, want none", sub.seqs)
	}
}

func TestReplay_DeliversHistoryInOrder(t *testing.T) {
	store := memory.NewStore()
	j, _ := New(store)
	ctx := context.Background()

	const total = replayPageSize + 5 // force more than one page
	for i := 0; i < total; i++ {
		if _, err := j.Publish(ctx, placedPayload(fmt.Sprintf("ord-%d", i))); err != nil {
			t.Fatalf("Publish %d: %v", i, err)
		}
	}

	sub := &recordingSubscriber{name: "replayer"}
	j.Subscribe(sub)

	lastSeq, err := j.Replay(ctx)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if lastSeq != total {
		t.Fatalf("Replay lastSeq = %d, want %d", lastSeq, total)
	}
	if len(sub.seqs) != total {
		t.Fatalf("subscriber saw %d events, want %d", len(sub.seqs), total)
	}
	for i, seq := range sub.seqs {
		if seq != uint64(i+1) {
			t.Fatalf("event %d has seq %d, want %d", i, seq, i+1)
		}
	}
}

func TestReplay_EmptyJournal(t *testing.T) {
	j, _ := New(memory.NewStore())
	j.Subscribe(&recordingSubscriber{name: "a"})

	lastSeq, err := j.Replay(context.Background())
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if lastSeq != 0 {
		t.Fatalf("Replay lastSeq = %d, want 0", lastSeq)
	}
}

// gapStore wraps a memory store and drops one sequence from listings to
// simulate a corrupt journal.
type gapStore struct {
	*memory.Store
	dropSeq uint64
}

func (s *gapStore) ListEvents(ctx context.Context, afterSeq uint64, limit int) ([]event.Event, error) {
	events, err := s.Store.ListEvents(ctx, afterSeq, limit)
	if err != nil {
		return nil, err
	}
	out := events[:0]
	for _, evt := range events {
		if evt.Seq == s.dropSeq {
			continue
		}
		out = append(out, evt)
	}
	return out, nil
}

func TestReplay_SequenceGapFails(t *testing.T) {
	store := &gapStore{Store: memory.NewStore(), dropSeq: 2}
	j, _ := New(store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := j.Publish(ctx, placedPayload(fmt.Sprintf("ord-%d", i))); err != nil {
			t.Fatalf("Publish %d: %v", i, err)
		}
	}

	_, err := j.Replay(ctx)
	if err == nil || !strings.Contains(err.Error(), "sequence gap") {
		t.Fatalf("Replay error = %v, want sequence gap", err)
	}
}

func TestReplay_SubscriberErrorAborts(t *testing.T) {
	j, _ := New(memory.NewStore())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := j.Publish(ctx, placedPayload(fmt.Sprintf("ord-%d", i))); err != nil {
			t.Fatalf("Publish %d: %v", i, err)
		}
	}

	j.Subscribe(&recordingSubscriber{name: "bad", fail: errors.New("boom")})

	lastSeq, err := j.Replay(ctx)
	if err == nil {
		t.Fatal("expected replay to abort on subscriber error")
	}
	if lastSeq != 0 {
		t.Fatalf("Replay lastSeq = %d, want 0 (first event failed)", lastSeq)
	}
}

func TestPublish_ConcurrentSequencesAreUnique(t *testing.T) {
	j, _ := New(memory.NewStore())
	ctx := context.Background()

	const n = 50
	seqs := make(chan uint64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			evt, err := j.Publish(ctx, placedPayload(fmt.Sprintf("ord-%d", i)))
			if err != nil {
				t.Errorf("Publish %d: %v", i, err)
				return
			}
			seqs <- evt.Seq
		}(i)
	}
	wg.Wait()
	close(seqs)

	seen := make(map[uint64]bool)
	for seq := range seqs {
		if seen[seq] {
			t.Fatalf("duplicate sequence %d", seq)
		}
		seen[seq] = true
	}
	if len(seen) != n {
		t.Fatalf("got %d unique sequences, want %d", len(seen), n)
	}
}
