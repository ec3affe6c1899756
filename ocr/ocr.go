// Package ocr provides the recognition engines that turn raster page
// images into positioned text fragments.
//
// Engines implement the [Engine] interface uniformly so callers can chain
// them for fallback without knowing backend details. An engine never falls
// back to another engine on its own; selection belongs to the caller.
//
// Three backends ship with transcripta:
//
//   - "tesseract" binds libtesseract via gosseract. It requires CGO and is
//     compiled only under the "ocr" build tag; without the tag it reports
//     itself unavailable so chains fall through to the next engine.
//   - "tesseract-cli" shells out to the tesseract binary and parses its
//     hOCR output. No CGO; available whenever the binary is on PATH.
//   - "openai" sends the page image to a vision model. Available only when
//     an API key is configured.
//
// Both Tesseract backends need Tesseract installed. On macOS:
//
//	brew install tesseract
//
// On Ubuntu/Debian:
//
//	apt-get install tesseract-ocr
package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/tsawler/transcripta/model"
)

// Registry names of the built-in engines.
const (
	NameTesseract    = "tesseract"
	NameTesseractCLI = "tesseract-cli"
	NameOpenAI       = "openai"
)

// Engine recognizes text in a page image.
//
// Implementations must be safe for concurrent use. Initialization
// problems surface as *EngineUnavailableError, per-image failures as
// *RecognitionError; context cancellation is returned unwrapped so
// callers can distinguish timeouts from engine faults.
type Engine interface {
	// Name returns the registry identifier of the engine.
	Name() string

	// Recognize extracts positioned text fragments from img. Returned
	// fragments are in page-pixel coordinates with confidence in [0,1]
	// and carry the engine name and opts.PageIndex.
	Recognize(ctx context.Context, img image.Image, opts Options) ([]model.TextFragment, error)
}

// Options control a single recognition call.
type Options struct {
	// Languages lists recognition languages in preference order.
	// Empty means the engine default (English).
	Languages []string

	// PageIndex is the 0-based page the image came from. Engines stamp
	// it on every returned fragment.
	PageIndex int

	// DPI is the resolution the image was rasterized at. Engines that
	// accept a resolution hint pass it to the backend.
	DPI int
}

// LanguageSpec returns the languages joined the way Tesseract expects
// ("eng+fra"), defaulting to "eng" when none are set.
func (o Options) LanguageSpec() string {
	if len(o.Languages) == 0 {
		return "eng"
	}
	return strings.Join(o.Languages, "+")
}

// EngineUnavailableError reports that a backend could not be initialized:
// the library was not compiled in, the binary is not installed, or a
// required credential is missing. It is distinct from [RecognitionError]
// so callers can decide whether trying again on another page is worth it.
type EngineUnavailableError struct {
	Engine string
	Err    error
}

func (e *EngineUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ocr engine %q unavailable: %v", e.Engine, e.Err)
	}
	return fmt.Sprintf("ocr engine %q unavailable", e.Engine)
}

func (e *EngineUnavailableError) Unwrap() error { return e.Err }

// RecognitionError reports that an available engine failed while
// processing one image. It is page-scoped; other pages may still succeed
// with the same engine.
type RecognitionError struct {
	Engine string
	Page   int
	Err    error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("ocr engine %q failed on page %d: %v", e.Engine, e.Page, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }
