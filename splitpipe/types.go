package splitpipe

// Format identifies how a source file is decomposed for splitting.
type Format string

const (
	FormatPDF     Format = "pdf"     // page-aware splitting, each part a valid document
	FormatArchive Format = "archive" // zip entry-aware splitting, each part a valid archive
	FormatGeneric Format = "generic" // contiguous byte slicing, parts not independently usable
)

// Part is one produced output file.
type Part struct {
	Index     int    `json:"index"` // 1-based, preserves source order
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	SHA256    string `json:"sha256"`

	// Oversized marks the documented exception to the ceiling invariant:
	// a single indivisible unit (one page, one entry) whose minimal
	// stand-alone container already exceeds the requested ceiling.
	Oversized bool `json:"oversized,omitempty"`

	Data []byte `json:"-"`
}

// Result is the ordered outcome of one split request.
type Result struct {
	SourceName   string `json:"source_name"`
	SourceSize   int64  `json:"source_size"`
	Format       Format `json:"format"`
	CeilingBytes int64  `json:"ceiling_bytes"`

	// Degraded is set when a structured source failed to parse and the
	// engine fell back to raw byte slicing. The parts then reassemble the
	// source byte-for-byte but are not independently openable.
	Degraded      bool   `json:"degraded,omitempty"`
	DegradeReason string `json:"degrade_reason,omitempty"`

	Parts []Part `json:"parts"`
}

// OversizedParts returns the indexes (1-based) of parts that exceed the
// requested ceiling. At most one oversized part exists per indivisible unit
// that could not fit alone.
func (r *Result) OversizedParts() []int {
	var out []int
	for _, p := range r.Parts {
		if p.Oversized {
			out = append(out, p.Index)
		}
	}
	return out
}
