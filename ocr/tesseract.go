//go:build ocr

package ocr

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"runtime"
	"strconv"

	"github.com/otiai10/gosseract/v2"

	"github.com/tsawler/transcripta/model"
)

func init() {
	Register(NameTesseract, newTesseractEngine)
}

// tesseractEngine recognizes text with libtesseract via gosseract.
//
// A gosseract client is stateful and must not be shared between
// goroutines, so the engine keeps a pool of clients sized to the CPU
// count and creates extras on demand.
type tesseractEngine struct {
	pool chan *gosseract.Client
}

func newTesseractEngine() (Engine, error) {
	// Creating a client and listing languages verifies that the native
	// library and its language data are actually present.
	probe := gosseract.NewClient()
	if _, err := probe.GetAvailableLanguages(); err != nil {
		probe.Close()
		return nil, &EngineUnavailableError{Engine: NameTesseract, Err: err}
	}

	e := &tesseractEngine{pool: make(chan *gosseract.Client, runtime.NumCPU())}
	e.release(probe)
	return e, nil
}

func (e *tesseractEngine) Name() string { return NameTesseract }

// Recognize runs word-level recognition and converts Tesseract's
// 0-100 confidence scale to [0,1].
func (e *tesseractEngine) Recognize(ctx context.Context, img image.Image, opts Options) ([]model.TextFragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := e.acquire()
	defer e.release(client)

	if err := e.configure(client, opts); err != nil {
		return nil, &RecognitionError{Engine: NameTesseract, Page: opts.PageIndex, Err: err}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, &RecognitionError{Engine: NameTesseract, Page: opts.PageIndex, Err: err}
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, &RecognitionError{Engine: NameTesseract, Page: opts.PageIndex, Err: err}
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, &RecognitionError{Engine: NameTesseract, Page: opts.PageIndex, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fragments := make([]model.TextFragment, 0, len(boxes))
	for _, b := range boxes {
		fragments = append(fragments, model.TextFragment{
			Text: b.Word,
			BBox: model.NewBBoxFromEdges(
				float64(b.Box.Min.X), float64(b.Box.Min.Y),
				float64(b.Box.Max.X), float64(b.Box.Max.Y),
			),
			Confidence: b.Confidence / 100,
			Engine:     NameTesseract,
			Page:       opts.PageIndex,
		})
	}

	bounds := img.Bounds()
	return model.CleanFragments(fragments, float64(bounds.Dx()), float64(bounds.Dy())), nil
}

func (e *tesseractEngine) configure(client *gosseract.Client, opts Options) error {
	if len(opts.Languages) > 0 {
		if err := client.SetLanguage(opts.Languages...); err != nil {
			return err
		}
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return err
	}
	if opts.DPI > 0 {
		if err := client.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(opts.DPI)); err != nil {
			return err
		}
	}
	return nil
}

func (e *tesseractEngine) acquire() *gosseract.Client {
	select {
	case client := <-e.pool:
		return client
	default:
		return gosseract.NewClient()
	}
}

func (e *tesseractEngine) release(client *gosseract.Client) {
	select {
	case e.pool <- client:
	default:
		client.Close()
	}
}

// Close releases all pooled clients.
func (e *tesseractEngine) Close() error {
	var first error
	for {
		select {
		case client := <-e.pool:
			if err := client.Close(); err != nil && first == nil {
				first = err
			}
		default:
			return first
		}
	}
}
