package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/filesplit/idgen"
)

// Schema contains the DDL for the event table. Call Store.Init to apply it,
// or embed the constant in your own schema management.
const Schema = `
CREATE TABLE IF NOT EXISTS split_events (
    event_id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    source TEXT NOT NULL,
    format TEXT,
    detail TEXT,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_split_events_kind_time
    ON split_events(kind, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_split_events_time
    ON split_events(created_at DESC);
`

// Store persists events in SQLite. It implements Recorder.
type Store struct {
	db    *sql.DB
	newID idgen.Generator
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithIDGenerator sets a custom ID generator for event IDs.
func WithIDGenerator(gen idgen.Generator) StoreOption {
	return func(s *Store) { s.newID = gen }
}

// NewStore creates a Store backed by the given database.
func NewStore(db *sql.DB, opts ...StoreOption) *Store {
	s := &Store{
		db:    db,
		newID: idgen.Prefixed("sev_", idgen.Default),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Init applies the event schema.
func (s *Store) Init() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return fmt.Errorf("eventlog: init schema: %w", err)
	}
	return nil
}

// Record inserts an event row. Non-blocking on failure: errors are logged
// via slog but do not propagate, so a failing event store never blocks a
// split request.
func (s *Store) Record(ctx context.Context, ev Event) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO split_events (event_id, kind, source, format, detail, created_at)
		VALUES (?,?,?,?,?,?)`,
		s.newID(), ev.Kind, ev.Source, ev.Format, ev.Detail, now().Unix())
	if err != nil {
		slog.Error("eventlog record failed", "error", err, "kind", ev.Kind)
	}
}

// StoredEvent is an event row read back from the store.
type StoredEvent struct {
	EventID   string
	Kind      string
	Source    string
	Format    string
	Detail    string
	CreatedAt time.Time
}

// Recent returns up to limit events, newest first, optionally filtered by
// kind (empty kind means all).
func (s *Store) Recent(ctx context.Context, kind string, limit int) ([]StoredEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	q := `SELECT event_id, kind, source, format, detail, created_at
	      FROM split_events`
	args := []any{}
	if kind != "" {
		q += ` WHERE kind = ?`
		args = append(args, kind)
	}
	q += ` ORDER BY created_at DESC, event_id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("eventlog: query: %w", err)
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var ev StoredEvent
		var ts int64
		if err := rows.Scan(&ev.EventID, &ev.Kind, &ev.Source, &ev.Format, &ev.Detail, &ts); err != nil {
			return nil, fmt.Errorf("eventlog: scan: %w", err)
		}
		ev.CreatedAt = time.Unix(ts, 0)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Cleanup deletes events older than the retention window. days <= 0 is a
// no-op.
func (s *Store) Cleanup(ctx context.Context, days int) error {
	if days <= 0 {
		return nil
	}
	cutoff := now().Unix() - int64(days)*86400
	if _, err := s.db.ExecContext(ctx, `DELETE FROM split_events WHERE created_at < ?`, cutoff); err != nil {
		return fmt.Errorf("eventlog: cleanup: %w", err)
	}
	return nil
}
