// Package pdftext extracts the embedded text layer of PDF pages.
//
// Digitally produced transcripts usually carry their text as real PDF
// content, and reading it directly is both faster and more accurate
// than rasterizing and recognizing the page. The extractor produces
// the same fragment type as the OCR engines, so a page with a
// substantial text layer can skip recognition entirely.
//
// Extraction is positional: each word keeps its bounding box, scaled
// from PDF points into the pixel space the rest of the pipeline works
// in. Whether a page's text layer is rich enough to trust is decided
// by [PageText.Substantial].
package pdftext

import (
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
)

// Source identifies fragments read from the embedded text layer, in
// the position OCR engine names occupy elsewhere.
const Source = "embedded"

// pointsPerInch is the PDF unit size. Coordinates scale by DPI/72.
const pointsPerInch = 72.0

// Config controls extraction and the fast-path decision.
type Config struct {
	// MinTextLength is the total character count at which a page's
	// text layer counts as substantial.
	MinTextLength int

	// MinCourseHits is the number of course-code-shaped tokens that
	// qualifies a page on its own, even below MinTextLength.
	MinCourseHits int

	// DPI is the pixel scale fragment coordinates are expressed in,
	// matching the resolution rasterized pages use.
	DPI int
}

// DefaultConfig returns the extraction defaults.
func DefaultConfig() Config {
	return Config{
		MinTextLength: 400,
		MinCourseHits: 2,
		DPI:           300,
	}
}

func (c Config) dpi() int {
	if c.DPI <= 0 {
		return 300
	}
	return c.DPI
}

// Document is an open PDF ready for per-page text extraction.
type Document struct {
	f      *os.File
	reader *pdf.Reader
	pages  int
}

// Open opens a PDF for text extraction. Malformed files fail here.
func Open(path string) (doc *Document, err error) {
	// The pdf library panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("open %s: %v", path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return &Document{f: f, reader: reader, pages: reader.NumPage()}, nil
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int {
	if d == nil {
		return 0
	}
	return d.pages
}

// Page extracts the text layer of the 0-based page. Pages without any
// text content return an empty PageText, not an error.
func (d *Document) Page(page int, cfg Config) (pt *PageText, err error) {
	if page < 0 || page >= d.pages {
		return nil, fmt.Errorf("page %d out of range (document has %d)", page, d.pages)
	}

	// Content() panics on fonts and streams it cannot decode; a page
	// that trips it simply has no usable text layer.
	defer func() {
		if r := recover(); r != nil {
			pt = nil
			err = fmt.Errorf("extract page %d text: %v", page, r)
		}
	}()

	p := d.reader.Page(page + 1)
	if p.V.IsNull() {
		return nil, fmt.Errorf("page %d has no content", page)
	}

	widthPts, heightPts := mediaBoxSize(p)
	scale := float64(cfg.dpi()) / pointsPerInch

	content := p.Content()
	fragments := assembleFragments(content.Text, widthPts, heightPts, scale, page)

	return &PageText{
		Page:      page,
		Fragments: fragments,
		Width:     widthPts * scale,
		Height:    heightPts * scale,
	}, nil
}

// Close releases the underlying file.
func (d *Document) Close() error {
	if d == nil || d.f == nil {
		return nil
	}
	return d.f.Close()
}

// letterWidth and letterHeight are the US Letter page size in points,
// assumed when a page carries no MediaBox.
const (
	letterWidth  = 612.0
	letterHeight = 792.0
)

// mediaBoxSize reads the page dimensions, walking up the page tree for
// inherited MediaBox entries.
func mediaBoxSize(p pdf.Page) (w, h float64) {
	v := p.V
	for !v.IsNull() {
		if box := v.Key("MediaBox"); !box.IsNull() && box.Len() == 4 {
			w = box.Index(2).Float64() - box.Index(0).Float64()
			h = box.Index(3).Float64() - box.Index(1).Float64()
			if w > 0 && h > 0 {
				return w, h
			}
		}
		v = v.Key("Parent")
	}
	return letterWidth, letterHeight
}
