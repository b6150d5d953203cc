// Package splitpipe partitions one oversized in-memory file into multiple
// output files, each at or below a caller-supplied byte ceiling, keeping
// every output independently usable where the format allows it.
//
// Recognized container formats are split along structural boundaries:
//   - pdf: page-aware; every part is a valid document (pdfcpu)
//   - archive: zip entry-aware; every part is a valid archive, entry
//     payloads carried raw without recompression
//
// Anything else, including structured sources that fail to parse, falls
// back to contiguous byte slicing, flagged Degraded on the Result because
// the parts only make sense reassembled.
//
// Usage:
//
//	eng := splitpipe.New(splitpipe.Config{})
//	res, err := eng.Split(ctx, "report.pdf", data, 2<<20)
//	for _, p := range res.Parts {
//		fmt.Println(p.Name, p.SizeBytes)
//	}
package splitpipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/filesplit/eventlog"
)

// Fatal input errors. Structural parse failures are not errors: they
// degrade to byte slicing instead.
var (
	ErrEmptySource = errors.New("splitpipe: empty source")
	ErrBadCeiling  = errors.New("splitpipe: ceiling must be positive")
)

// decomposer is the per-format view the packer works against: ordered
// indivisible units, container overhead, and chunk reconstruction.
type decomposer interface {
	units() []unit
	overhead(nUnits, nRes int) int64
	build(start, end int) ([]byte, error)
}

// Engine is the split engine. Stateless across invocations; safe for
// concurrent use.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an Engine with the given configuration.
func New(cfg Config) *Engine {
	cfg.defaults()
	return &Engine{cfg: cfg, logger: cfg.Logger}
}

// Split partitions data into parts of at most ceiling bytes each and
// returns them in source order. The request is atomic: it yields a full
// Result or a single error. Re-invocation with the same input produces the
// same parts.
func (e *Engine) Split(ctx context.Context, name string, data []byte, ceiling int64) (*Result, error) {
	if len(data) == 0 {
		return nil, ErrEmptySource
	}
	if ceiling <= 0 {
		return nil, ErrBadCeiling
	}
	if int64(len(data)) > e.cfg.MaxFileSize {
		return nil, fmt.Errorf("source too large: %d bytes (max %d)", len(data), e.cfg.MaxFileSize)
	}

	format := Detect(name, data)
	if format == FormatGeneric {
		if hint := ExtensionHint(name); hint != FormatGeneric {
			e.logger.Warn("extension suggests a structured format but the signature is missing",
				"name", name, "hint", hint)
		}
	}
	e.logger.Debug("splitting", "name", name, "format", format,
		"size", len(data), "ceiling", ceiling)

	// A source already at or below the ceiling is a single part, bytes
	// verbatim: valid for every format without rebuilding anything.
	if int64(len(data)) <= ceiling {
		return e.assemble(ctx, name, format, ceiling, int64(len(data)), "", [][]byte{data}, nil), nil
	}

	var chunks []builtChunk
	var structErr error

	switch format {
	case FormatPDF:
		var d decomposer
		if d, structErr = newPDFSplitter(data); structErr == nil {
			chunks, structErr = packAndBuild(d.units(), ceiling, d.overhead, d.build)
		}
	case FormatArchive:
		var d decomposer
		if d, structErr = newZipSplitter(data); structErr == nil {
			chunks, structErr = packAndBuild(d.units(), ceiling, d.overhead, d.build)
		}
	}

	var reason string
	if format != FormatGeneric && structErr != nil {
		reason = structErr.Error()
		e.logger.Warn("structured split failed, falling back to byte slicing",
			"name", name, "format", format, "error", structErr)
		e.record(ctx, eventlog.Event{
			Kind:   eventlog.KindDegrade,
			Source: name,
			Format: string(format),
			Detail: reason,
		})
	}

	if format == FormatGeneric || structErr != nil {
		return e.assemble(ctx, name, format, ceiling, int64(len(data)), reason, splitGeneric(data, ceiling), nil), nil
	}

	raw := make([][]byte, len(chunks))
	oversized := make([]bool, len(chunks))
	for i, c := range chunks {
		raw[i] = c.data
		oversized[i] = c.oversized
	}
	return e.assemble(ctx, name, format, ceiling, int64(len(data)), "", raw, oversized), nil
}

// record forwards an event to the configured recorder, if any.
func (e *Engine) record(ctx context.Context, ev eventlog.Event) {
	if e.cfg.Events != nil {
		e.cfg.Events.Record(ctx, ev)
	}
}
