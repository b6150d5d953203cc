// Package eventlog records split-engine events: completed splits,
// degradations to byte slicing, and oversized parts.
//
// The engine treats recording as fire-and-forget: a failing recorder never
// blocks or fails a split request.
package eventlog

import (
	"context"
	"log/slog"
	"time"
)

// Event kinds.
const (
	KindSplit     = "split"     // a split request completed
	KindDegrade   = "degrade"   // structured parse failed, fell back to byte slicing
	KindOversized = "oversized" // an indivisible unit produced a part above the ceiling
)

// Event is one recordable engine occurrence.
type Event struct {
	Kind   string // KindSplit, KindDegrade, KindOversized
	Source string // source file name
	Format string // detected format at the time of the event
	Detail string // free-form description
}

// Recorder receives events. Implementations must not block on failure.
type Recorder interface {
	Record(ctx context.Context, ev Event)
}

// SlogRecorder logs events through slog. Degradations and oversized parts
// log at Warn, everything else at Info.
type SlogRecorder struct {
	Logger *slog.Logger
}

func (r *SlogRecorder) Record(_ context.Context, ev Event) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"source", ev.Source, "format", ev.Format, "detail", ev.Detail}
	switch ev.Kind {
	case KindDegrade, KindOversized:
		logger.Warn("splitpipe "+ev.Kind, attrs...)
	default:
		logger.Info("splitpipe "+ev.Kind, attrs...)
	}
}

// Multi fans one event out to several recorders in order.
func Multi(rs ...Recorder) Recorder { return multi(rs) }

type multi []Recorder

func (m multi) Record(ctx context.Context, ev Event) {
	for _, r := range m {
		r.Record(ctx, ev)
	}
}

// now is swapped in tests.
var now = time.Now
