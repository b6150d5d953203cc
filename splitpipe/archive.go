package splitpipe

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
)

// Zip record sizes from the format specification, before variable-length
// name/extra/comment fields.
const (
	zipLocalHeaderSize  = 30
	zipCentralDirSize   = 46
	zipEndOfDirSize     = 22
	zipDataDescSize     = 16 // present when the entry was written streaming
)

// zipSplitter decomposes a zip archive into entry units and rebuilds entry
// subsets as stand-alone archives. Entry payloads are carried raw: never
// decompressed or recompressed, so encodings and CRCs survive untouched.
type zipSplitter struct {
	zr *zip.Reader
}

func newZipSplitter(data []byte) (*zipSplitter, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("zip read: %w", err)
	}
	if len(zr.File) == 0 {
		return nil, fmt.Errorf("archive has no entries")
	}
	return &zipSplitter{zr: zr}, nil
}

// units returns one unit per entry in central-directory order. The base
// cost is the stored compressed payload plus the entry's local header and
// central directory record. Zip entries share nothing across entries, so
// there are no shared resources.
func (s *zipSplitter) units() []unit {
	us := make([]unit, 0, len(s.zr.File))
	for _, f := range s.zr.File {
		varLen := int64(len(f.Name) + len(f.Extra))
		base := int64(f.CompressedSize64) +
			zipLocalHeaderSize + varLen +
			zipCentralDirSize + varLen + int64(len(f.Comment)) +
			zipDataDescSize
		us = append(us, unit{base: base})
	}
	return us
}

// overhead is the end-of-central-directory record plus the archive comment.
func (s *zipSplitter) overhead(nUnits, nRes int) int64 {
	return zipEndOfDirSize + int64(len(s.zr.Comment))
}

// build emits a stand-alone archive holding entries [start, end) in original
// order, copying each record raw and computing a fresh central directory
// for exactly those entries.
func (s *zipSplitter) build(start, end int) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if s.zr.Comment != "" {
		if err := zw.SetComment(s.zr.Comment); err != nil {
			return nil, fmt.Errorf("set comment: %w", err)
		}
	}

	for _, f := range s.zr.File[start:end] {
		fh := f.FileHeader
		w, err := zw.CreateRaw(&fh)
		if err != nil {
			return nil, fmt.Errorf("create %q: %w", f.Name, err)
		}
		rc, err := f.OpenRaw()
		if err != nil {
			return nil, fmt.Errorf("open %q: %w", f.Name, err)
		}
		if _, err := io.Copy(w, rc); err != nil {
			return nil, fmt.Errorf("copy %q: %w", f.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}
