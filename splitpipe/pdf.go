package splitpipe

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Structural constants for PDF size estimation. Per-object cross-reference
// lines are 20 bytes in a classic xref table; the dictionary skeleton around
// a page or stream object costs a few dozen bytes more.
const (
	pdfHeaderSize     = 64  // %PDF-x.y line plus binary comment
	pdfTrailerSize    = 192 // trailer dict, startxref, %%EOF
	pdfXrefLineSize   = 20
	pdfPageDictSize   = 256 // page dict, parent/contents/resources refs
	pdfStreamDictSize = 96  // stream dict skeleton around raw data
)

// pdfSplitter decomposes a PDF into page units and rebuilds page-range
// chunks as stand-alone documents.
type pdfSplitter struct {
	src []byte
	ctx *model.Context
}

func newPDFSplitter(data []byte) (*pdfSplitter, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), pdfConf())
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}
	if ctx.PageCount == 0 {
		return nil, fmt.Errorf("document has no pages")
	}
	return &pdfSplitter{src: data, ctx: ctx}, nil
}

// pdfConf returns a fresh relaxed configuration. pdfcpu mutates the
// configuration during reads, so every call gets its own.
func pdfConf() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// units returns one unit per page, in page order. The base cost covers the
// page's content stream and object skeletons; fonts and image XObjects the
// page references are shared resources, billed once per chunk.
func (s *pdfSplitter) units() []unit {
	us := make([]unit, 0, s.ctx.PageCount)
	for pageNr := 1; pageNr <= s.ctx.PageCount; pageNr++ {
		u := unit{base: s.pageContentSize(pageNr) + pdfPageDictSize + pdfStreamDictSize}
		for _, objNr := range s.pageResourceObjs(pageNr) {
			u.res = append(u.res, resRef{id: objNr, size: s.objectSize(objNr)})
		}
		us = append(us, u)
	}
	return us
}

// overhead estimates the fixed cost of a chunk's container: header, trailer
// and a cross-reference table sized to the objects the chunk will carry
// (catalog + page tree + per-page page and content objects + resources).
func (s *pdfSplitter) overhead(nUnits, nRes int) int64 {
	objCount := 3 + 2*nUnits + nRes
	return pdfHeaderSize + pdfTrailerSize + int64(objCount)*pdfXrefLineSize
}

// build emits a stand-alone document holding pages [start+1 .. end] in
// original order: fresh page tree, object numbering, cross-reference table
// and trailer, with exactly the resource closure those pages need.
func (s *pdfSplitter) build(start, end int) ([]byte, error) {
	var buf bytes.Buffer
	sel := []string{fmt.Sprintf("%d-%d", start+1, end)}
	if err := api.Trim(bytes.NewReader(s.src), &buf, sel, pdfConf()); err != nil {
		return nil, fmt.Errorf("trim pages %d-%d: %w", start+1, end, err)
	}
	return buf.Bytes(), nil
}

// pageContentSize measures the page's decoded content stream. Decoded size
// overestimates the stored size, which keeps the estimate an upper bound.
func (s *pdfSplitter) pageContentSize(pageNr int) int64 {
	r, err := pdfcpu.ExtractPageContent(s.ctx, pageNr)
	if err != nil || r == nil {
		return 1024
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 1024
	}
	return int64(len(data))
}

// pageResourceObjs returns the object numbers of fonts and image XObjects
// referenced by a page, from the optimization pass.
func (s *pdfSplitter) pageResourceObjs(pageNr int) []int {
	var objs []int
	if s.ctx.Optimize != nil && pageNr-1 < len(s.ctx.Optimize.PageFonts) {
		for objNr, used := range s.ctx.Optimize.PageFonts[pageNr-1] {
			if used {
				objs = append(objs, objNr)
			}
		}
	}
	if s.ctx.Optimize != nil {
		objs = append(objs, pdfcpu.ImageObjNrs(s.ctx, pageNr)...)
	}
	return objs
}

// objectSize estimates the serialized size of an object from the xref:
// stream length for stream dicts, PDF string rendering otherwise.
func (s *pdfSplitter) objectSize(objNr int) int64 {
	entry, ok := s.ctx.Table[objNr]
	if !ok || entry == nil || entry.Free || entry.Object == nil {
		return 0
	}
	switch o := entry.Object.(type) {
	case types.StreamDict:
		if o.StreamLength != nil {
			return *o.StreamLength + pdfStreamDictSize
		}
		if o.Raw != nil {
			return int64(len(o.Raw)) + pdfStreamDictSize
		}
		return pdfStreamDictSize
	default:
		return int64(len(o.PDFString()))
	}
}

// pdfPageCount reports the page count of a built part. Test hook and
// observability helper; parses the document from scratch.
func pdfPageCount(data []byte) (int, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), pdfConf())
	if err != nil {
		return 0, err
	}
	return ctx.PageCount, nil
}
