// Package sqlite provides the durable SQLite-backed event journal.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/tradebridge/internal/ledger/event"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
    seq          INTEGER PRIMARY KEY,
    timestamp    INTEGER NOT NULL,
    event_type   TEXT    NOT NULL,
    payload_json BLOB    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);
`

// Store persists ledger events in a SQLite database.
type Store struct {
	sqlDB *sql.DB
}

// NewStore opens (or creates) the event database at the given path and
// applies the schema. SQLite is single-writer, so the pool is capped at one
// connection.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite.NewStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.NewStore: apply schema: %w", err)
	}

	return &Store{sqlDB: db}, nil
}

// AppendEvent atomically appends an event and returns it with its sequence
// number set. The sequence is allocated inside the append transaction, so
// assignment and persistence are a single atomic step.
func (s *Store) AppendEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s == nil || s.sqlDB == nil {
		return event.Event{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(string(evt.Type)) == "" {
		return event.Event{}, fmt.Errorf("event type is required")
	}
	if len(evt.PayloadJSON) == 0 {
		return event.Event{}, fmt.Errorf("event payload is required")
	}

	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	evt.Timestamp = evt.Timestamp.UTC().Truncate(time.Millisecond)

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return event.Event{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var next int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM events`,
	).Scan(&next); err != nil {
		return event.Event{}, fmt.Errorf("allocate seq: %w", err)
	}
	evt.Seq = uint64(next)

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO events (seq, timestamp, event_type, payload_json) VALUES (?, ?, ?, ?)`,
		next, toMillis(evt.Timestamp), string(evt.Type), evt.PayloadJSON,
	); err != nil {
		return event.Event{}, fmt.Errorf("append event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return event.Event{}, fmt.Errorf("commit: %w", err)
	}
	return evt, nil
}

// ListEvents returns up to limit events with seq > afterSeq, ordered by
// sequence ascending.
func (s *Store) ListEvents(ctx context.Context, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT seq, timestamp, event_type, payload_json
		 FROM events WHERE seq > ? ORDER BY seq ASC LIMIT ?`,
		int64(afterSeq), int64(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var (
			seq       int64
			millis    int64
			eventType string
			payload   []byte
		)
		if err := rows.Scan(&seq, &millis, &eventType, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event.Event{
			Seq:         uint64(seq),
			Timestamp:   fromMillis(millis),
			Type:        event.Type(eventType),
			PayloadJSON: payload,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// LatestSeq returns the sequence number of the most recent event.
func (s *Store) LatestSeq(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}

	var seq int64
	if err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM events`,
	).Scan(&seq); err != nil {
		return 0, fmt.Errorf("latest seq: %w", err)
	}
	return uint64(seq), nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(millis int64) time.Time {
	return time.UnixMilli(millis).UTC()
}
