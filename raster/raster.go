// Package raster turns input documents into per-page images ready for
// recognition.
//
// Plain image inputs (PNG, JPEG, TIFF, BMP) decode in-process and form
// one-page documents. PDF inputs render through an external renderer
// resolved at open time: pdftoppm from poppler-utils when installed,
// otherwise ImageMagick's magick or convert.
//
// Rasterization failures are page-scoped: a corrupt page yields a
// [RasterizationError] for that page while the rest of the document
// keeps rasterizing.
package raster

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/tsawler/transcripta/format"
)

// DefaultDPI is the render resolution used when none is configured.
const DefaultDPI = 300

// RasterizationError reports that a single page could not be rendered.
type RasterizationError struct {
	Page int
	Err  error
}

func (e *RasterizationError) Error() string {
	return fmt.Sprintf("rasterize page %d: %v", e.Page, e.Err)
}

func (e *RasterizationError) Unwrap() error { return e.Err }

// Options control rasterization.
type Options struct {
	// DPI is the target render resolution. Zero means DefaultDPI.
	DPI int

	// SourceDPI is the resolution assumed for plain image inputs, used
	// to rescale them to DPI. Zero means the image is already at the
	// target resolution and is left alone. PDFs render at DPI directly
	// and ignore this.
	SourceDPI int

	// Grayscale converts rendered pages to 8-bit grayscale before they
	// are handed to recognition.
	Grayscale bool
}

// DefaultOptions returns the options the pipeline uses unless
// configured otherwise.
func DefaultOptions() Options {
	return Options{
		DPI:       DefaultDPI,
		Grayscale: true,
	}
}

func (o Options) dpi() int {
	if o.DPI <= 0 {
		return DefaultDPI
	}
	return o.DPI
}

// Document is an open input ready to rasterize page by page.
// Implementations are safe for concurrent Rasterize calls on distinct
// pages.
type Document interface {
	// PageCount returns the number of pages in the document.
	PageCount() int

	// Rasterize renders the 0-based page at the configured resolution.
	// Failures are reported as *RasterizationError.
	Rasterize(ctx context.Context, page int) (image.Image, error)

	// Close releases resources held by the document.
	Close() error
}

// Open detects the format of the named file and returns a Document for
// it. Unsupported or unrecognizable inputs fail here, before any page
// work starts.
func Open(path string, opts Options) (Document, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	f, err := format.DetectFile(path)
	if err != nil {
		return nil, err
	}

	switch {
	case f == format.PDF:
		return openPDF(path, opts)
	case f.IsImage():
		return &imageDocument{path: path, format: f, opts: opts}, nil
	default:
		return nil, fmt.Errorf("unsupported input format for %s", path)
	}
}
