package splitpipe

import "fmt"

// unit is one indivisible piece of a structured source: a PDF page or an
// archive entry. Units are packed strictly in order.
type unit struct {
	// base is the marginal byte cost always paid when the unit joins a
	// chunk: content stream or compressed payload plus per-unit container
	// records.
	base int64

	// res lists the shared resources the unit needs (fonts, image
	// XObjects). A resource is billed once per chunk, however many units
	// in that chunk reference it; it is billed again in every other chunk
	// that needs it, since chunks are independent files.
	res []resRef
}

// resRef identifies a shared resource by container-level identity
// (PDF object number) together with its estimated serialized size.
type resRef struct {
	id   int
	size int64
}

// overheadFunc estimates the fixed container overhead (header, trailer,
// cross-reference table or central directory) for a chunk holding nUnits
// units and nRes distinct shared resources.
type overheadFunc func(nUnits, nRes int) int64

// buildFunc renders the units in [start, end) into a complete stand-alone
// file. end > start always holds.
type buildFunc func(start, end int) ([]byte, error)

// builtChunk is one finished output chunk.
type builtChunk struct {
	start, end int // unit range [start, end)
	data       []byte
	oversized  bool
}

// planEnd proposes the greedy end of the chunk starting at start: units are
// added in order while the estimated chunk size stays at or below the
// ceiling. Shared resources already counted for this chunk are not billed
// again. Always returns at least start+1, so an oversized single unit still
// becomes its own chunk.
func planEnd(units []unit, start int, ceiling int64, overhead overheadFunc) int {
	seen := make(map[int]bool)
	var running int64

	end := start
	for end < len(units) {
		u := units[end]
		marginal := u.base
		var newRes int
		for _, r := range u.res {
			if !seen[r.id] {
				marginal += r.size
				newRes++
			}
		}

		projected := running + marginal + overhead(end-start+1, len(seen)+newRes)
		if projected > ceiling && end > start {
			break
		}

		running += marginal
		for _, r := range u.res {
			seen[r.id] = true
		}
		end++
	}
	return end
}

// packAndBuild walks the unit sequence, proposing chunk boundaries from the
// estimator and verifying each against the real built size. Estimates are
// upper bounds in intent but not guaranteed, so an overshooting chunk backs
// off by deferring its most recent unit to the next chunk, retried until the
// built size fits or one unit remains. A lone unit that still exceeds the
// ceiling is emitted oversized rather than failing the request.
func packAndBuild(units []unit, ceiling int64, overhead overheadFunc, build buildFunc) ([]builtChunk, error) {
	if len(units) == 0 {
		return nil, fmt.Errorf("no units to pack")
	}

	var chunks []builtChunk
	start := 0
	for start < len(units) {
		end := planEnd(units, start, ceiling, overhead)

		data, err := build(start, end)
		if err != nil {
			return nil, fmt.Errorf("build units %d-%d: %w", start+1, end, err)
		}
		for int64(len(data)) > ceiling && end-start > 1 {
			end--
			data, err = build(start, end)
			if err != nil {
				return nil, fmt.Errorf("build units %d-%d: %w", start+1, end, err)
			}
		}

		chunks = append(chunks, builtChunk{
			start:     start,
			end:       end,
			data:      data,
			oversized: int64(len(data)) > ceiling,
		})
		start = end
	}
	return chunks, nil
}
