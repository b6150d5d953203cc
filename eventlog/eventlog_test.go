package eventlog

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/filesplit/dbopen"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db := dbopen.OpenMemory(t)
	s := NewStore(db)
	if err := s.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	return s
}

func TestStore_RecordAndRecent(t *testing.T) {
	// WHAT: recorded events come back newest first and carry every field.
	s := newTestStore(t)
	ctx := context.Background()

	s.Record(ctx, Event{Kind: KindSplit, Source: "a.pdf", Format: "pdf", Detail: "3 parts"})
	s.Record(ctx, Event{Kind: KindDegrade, Source: "b.zip", Format: "archive", Detail: "zip read: bad header"})
	s.Record(ctx, Event{Kind: KindSplit, Source: "c.bin", Format: "generic", Detail: "2 parts"})

	events, err := s.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("events: got %d, want 3", len(events))
	}
	// Same-second inserts fall back to event_id order; UUIDv7 IDs are
	// time-sortable, so the latest insert still lists first.
	if events[0].Source != "c.bin" {
		t.Errorf("newest first: got %s", events[0].Source)
	}

	ev := events[1]
	if ev.Kind != KindDegrade || ev.Source != "b.zip" || ev.Format != "archive" {
		t.Errorf("fields: got %+v", ev)
	}
	if !strings.HasPrefix(ev.EventID, "sev_") {
		t.Errorf("event id: got %q, want sev_ prefix", ev.EventID)
	}
	if ev.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}
}

func TestStore_RecentFilterAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		s.Record(ctx, Event{Kind: KindSplit, Source: "s.bin"})
	}
	s.Record(ctx, Event{Kind: KindOversized, Source: "o.pdf"})

	got, err := s.Recent(ctx, KindOversized, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 || got[0].Source != "o.pdf" {
		t.Fatalf("kind filter: got %+v", got)
	}

	got, err = s.Recent(ctx, KindSplit, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("limit: got %d events, want 2", len(got))
	}
}

func TestStore_Cleanup(t *testing.T) {
	// WHAT: cleanup drops events past the retention window and keeps the
	// rest; a non-positive window is a no-op.
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now()
	now = func() time.Time { return base.AddDate(0, 0, -10) }
	s.Record(ctx, Event{Kind: KindSplit, Source: "old.bin"})
	now = func() time.Time { return base }
	defer func() { now = time.Now }()
	s.Record(ctx, Event{Kind: KindSplit, Source: "new.bin"})

	if err := s.Cleanup(ctx, 0); err != nil {
		t.Fatalf("cleanup 0: %v", err)
	}
	events, _ := s.Recent(ctx, "", 10)
	if len(events) != 2 {
		t.Fatalf("no-op cleanup removed rows: %d left", len(events))
	}

	if err := s.Cleanup(ctx, 7); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	events, err := s.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 1 || events[0].Source != "new.bin" {
		t.Fatalf("after cleanup: got %+v, want only new.bin", events)
	}
}

func TestStore_RecordFailureDoesNotPanic(t *testing.T) {
	// WHAT: recording into a closed database logs and returns; it must
	// never take down the split request that triggered it.
	db := dbopen.OpenMemory(t)
	s := NewStore(db)
	if err := s.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	db.Close()

	s.Record(context.Background(), Event{Kind: KindSplit, Source: "x"})
}

func TestSlogRecorder_Levels(t *testing.T) {
	// WHAT: degradations and oversized parts log at warn, splits at info.
	var buf bytes.Buffer
	r := &SlogRecorder{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}
	ctx := context.Background()

	r.Record(ctx, Event{Kind: KindSplit, Source: "a.bin"})
	r.Record(ctx, Event{Kind: KindDegrade, Source: "b.pdf"})
	r.Record(ctx, Event{Kind: KindOversized, Source: "c.zip"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("log lines: got %d, want 3", len(lines))
	}
	if !strings.Contains(lines[0], `"level":"INFO"`) {
		t.Errorf("split event level: %s", lines[0])
	}
	for _, l := range lines[1:] {
		if !strings.Contains(l, `"level":"WARN"`) {
			t.Errorf("degrade/oversized level: %s", l)
		}
	}
}

type countRecorder struct{ n int }

func (c *countRecorder) Record(context.Context, Event) { c.n++ }

func TestMulti_FansOut(t *testing.T) {
	a, b := &countRecorder{}, &countRecorder{}
	m := Multi(a, b)
	m.Record(context.Background(), Event{Kind: KindSplit})
	m.Record(context.Background(), Event{Kind: KindSplit})
	if a.n != 2 || b.n != 2 {
		t.Fatalf("fan-out: a=%d b=%d, want 2 each", a.n, b.n)
	}
}
