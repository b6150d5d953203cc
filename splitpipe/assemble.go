package splitpipe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hazyhaar/filesplit/eventlog"
)

// partName derives the output name for the idx-th part (1-based):
// base name + zero-padded index + original extension.
func partName(source string, idx int) string {
	base := filepath.Base(source)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		stem = "part"
	}
	return fmt.Sprintf("%s_%03d%s", stem, idx, ext)
}

// assemble builds the ordered Result from the built chunk payloads.
// reason is non-empty when a structured source degraded to byte slicing;
// oversized may be nil when no chunk can exceed the ceiling.
func (e *Engine) assemble(ctx context.Context, name string, format Format, ceiling, srcSize int64, reason string, raw [][]byte, oversized []bool) *Result {
	res := &Result{
		SourceName:    name,
		SourceSize:    srcSize,
		Format:        format,
		CeilingBytes:  ceiling,
		Degraded:      reason != "",
		DegradeReason: reason,
		Parts:         make([]Part, 0, len(raw)),
	}

	for i, data := range raw {
		sum := sha256.Sum256(data)
		p := Part{
			Index:     i + 1,
			Name:      partName(name, i+1),
			SizeBytes: int64(len(data)),
			SHA256:    hex.EncodeToString(sum[:]),
			Data:      data,
		}
		if oversized != nil && oversized[i] {
			p.Oversized = true
			e.logger.Warn("part exceeds ceiling: indivisible unit",
				"name", p.Name, "size", p.SizeBytes, "ceiling", ceiling)
			e.record(ctx, eventlog.Event{
				Kind:   eventlog.KindOversized,
				Source: name,
				Format: string(format),
				Detail: fmt.Sprintf("%s: %d bytes over a %d ceiling", p.Name, p.SizeBytes, ceiling),
			})
		}
		res.Parts = append(res.Parts, p)
	}

	e.record(ctx, eventlog.Event{
		Kind:   eventlog.KindSplit,
		Source: name,
		Format: string(format),
		Detail: fmt.Sprintf("%d parts, ceiling %s", len(res.Parts), FormatBytes(ceiling)),
	})
	return res
}

// FormatBytes returns a human-readable size string.
func FormatBytes(b int64) string {
	const (
		KiB = 1024
		MiB = 1024 * KiB
		GiB = 1024 * MiB
	)

	switch {
	case b >= GiB:
		return fmt.Sprintf("%.2f GiB", float64(b)/float64(GiB))
	case b >= MiB:
		return fmt.Sprintf("%.1f MiB", float64(b)/float64(MiB))
	case b >= KiB:
		return fmt.Sprintf("%.1f KiB", float64(b)/float64(KiB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
