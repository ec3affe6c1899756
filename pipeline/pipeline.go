// Package pipeline orchestrates transcript processing end to end.
//
// Each page moves through a small state machine: rasterize, recognize,
// reconstruct rows, extract records. Pages are processed by a bounded
// worker pool and are fully isolated from each other; one corrupt or
// unreadable page degrades the result, it never aborts the document.
// A run aborts only when the input cannot be opened at all or every
// single page fails.
//
// Recognition works down a fallback chain of OCR engines. An engine
// that is unavailable, errors on a page, times out, or comes back
// below the confidence threshold hands the page to the next engine in
// the chain; the best low-confidence result is kept when the chain
// runs out. PDF pages with a substantial embedded text layer skip
// recognition entirely unless that fast path is disabled.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tsawler/transcripta/extract"
	"github.com/tsawler/transcripta/format"
	"github.com/tsawler/transcripta/layout"
	"github.com/tsawler/transcripta/model"
	"github.com/tsawler/transcripta/ocr"
	"github.com/tsawler/transcripta/pdftext"
	"github.com/tsawler/transcripta/raster"
)

// DefaultMinConfidence is the mean fragment confidence below which a
// page is handed to the next engine in the chain.
const DefaultMinConfidence = 0.6

// DefaultEngines is the fallback chain used when none is configured.
// The remote vision engine joins only when listed explicitly.
func DefaultEngines() []string {
	return []string{ocr.NameTesseract, ocr.NameTesseractCLI}
}

// FatalError aborts a whole run: the input cannot be opened, the
// engine chain cannot be built, or every page failed.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("pipeline %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// Config controls a processing run.
type Config struct {
	// DPI is the rasterization resolution. Zero means raster.DefaultDPI.
	DPI int

	// Engines is the fallback chain, tried in order. Empty means
	// DefaultEngines.
	Engines []string

	// Languages are passed to engines that support language hints.
	Languages []string

	// MinConfidence is the acceptance threshold for a page's mean
	// fragment confidence. Zero means DefaultMinConfidence.
	MinConfidence float64

	// PageTimeout bounds each engine attempt on each page. Zero means
	// no per-attempt timeout.
	PageTimeout time.Duration

	// Workers bounds page parallelism. Zero means GOMAXPROCS.
	Workers int

	// PreferOCR disables the embedded-text fast path for PDFs.
	PreferOCR bool

	// Audit attaches each page's raw fragments to its summary.
	Audit bool

	// DumpRows attaches each page's reconstructed rows to its summary.
	DumpRows bool

	Layout   layout.Config
	Extract  extract.Config
	FastText pdftext.Config

	// Logger receives progress events. Nil means silent.
	Logger *slog.Logger
}

// DefaultConfig returns the processing defaults.
func DefaultConfig() Config {
	return Config{
		DPI:           raster.DefaultDPI,
		Engines:       DefaultEngines(),
		MinConfidence: DefaultMinConfidence,
		Layout:        layout.DefaultConfig(),
		Extract:       extract.DefaultConfig(),
		FastText:      pdftext.DefaultConfig(),
	}
}

func (c Config) dpi() int {
	if c.DPI <= 0 {
		return raster.DefaultDPI
	}
	return c.DPI
}

func (c Config) minConfidence() float64 {
	if c.MinConfidence <= 0 {
		return DefaultMinConfidence
	}
	return c.MinConfidence
}

func (c Config) workers(pages int) int {
	w := c.Workers
	if w <= 0 {
		w = runtime.GOMAXPROCS(0)
	}
	if w > pages {
		w = pages
	}
	if w < 1 {
		w = 1
	}
	return w
}

// Pipeline processes documents into transcript results.
type Pipeline struct {
	config    Config
	logger    *slog.Logger
	recon     *layout.Reconstructor
	extractor *extract.Extractor
}

// New creates a pipeline with default configuration.
func New() *Pipeline {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a pipeline with custom configuration.
func NewWithConfig(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Layout == (layout.Config{}) {
		cfg.Layout = layout.DefaultConfig()
	}

	return &Pipeline{
		config:    cfg,
		logger:    logger,
		recon:     layout.NewReconstructorWithConfig(cfg.Layout),
		extractor: extract.NewExtractorWithConfig(cfg.Extract),
	}
}

// Process runs the pipeline over the named input file.
func (p *Pipeline) Process(ctx context.Context, path string) (*model.TranscriptResult, error) {
	opts := raster.DefaultOptions()
	opts.DPI = p.config.dpi()

	doc, err := raster.Open(path, opts)
	if err != nil {
		return nil, &FatalError{Op: "open", Err: err}
	}
	defer doc.Close()

	var text *pdftext.Document
	if f, _ := format.DetectFile(path); f == format.PDF && !p.config.PreferOCR {
		if td, terr := pdftext.Open(path); terr == nil {
			text = td
			defer td.Close()
		} else {
			p.logger.Debug("embedded text layer unavailable", "source", path, "error", terr)
		}
	}

	return p.run(ctx, path, doc, text)
}

// ProcessDocument runs the pipeline over an already-open document.
// The embedded-text fast path does not apply here.
func (p *Pipeline) ProcessDocument(ctx context.Context, source string, doc raster.Document) (*model.TranscriptResult, error) {
	return p.run(ctx, source, doc, nil)
}

func (p *Pipeline) run(ctx context.Context, source string, rdoc raster.Document, text *pdftext.Document) (*model.TranscriptResult, error) {
	chain, err := p.resolveEngines()
	if err != nil {
		return nil, err
	}

	pages := rdoc.PageCount()
	if pages < 1 {
		return nil, &FatalError{Op: "open", Err: errors.New("document has no pages")}
	}

	doc := newDocument(source, pages)
	workers := p.config.workers(pages)
	p.logger.Info("processing document",
		"source", source, "pages", pages, "workers", workers, "engines", engineNames(chain))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, page := range doc.Pages {
		page := page // per-iteration copy; go directive is below 1.22
		g.Go(func() error {
			return p.processPage(gctx, rdoc, text, page, chain)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := p.merge(doc)
	if doc.AllFailed() {
		return result, &FatalError{Op: "process", Err: fmt.Errorf("all %d pages failed", pages)}
	}
	return result, nil
}

func (p *Pipeline) resolveEngines() ([]*ocr.Lazy, error) {
	names := p.config.Engines
	if len(names) == 0 {
		names = DefaultEngines()
	}

	chain := make([]*ocr.Lazy, 0, len(names))
	for _, name := range names {
		eng, err := ocr.Lookup(name)
		if err != nil {
			return nil, &FatalError{Op: "engines", Err: err}
		}
		chain = append(chain, eng)
	}
	if len(chain) == 0 {
		return nil, &FatalError{Op: "engines", Err: errors.New("no engines configured")}
	}
	return chain, nil
}

func engineNames(chain []*ocr.Lazy) []string {
	names := make([]string, len(chain))
	for i, e := range chain {
		names[i] = e.Name()
	}
	return names
}

// merge assembles per-page outputs into the final result, in page
// index order regardless of completion order.
func (p *Pipeline) merge(doc *Document) *model.TranscriptResult {
	result := &model.TranscriptResult{}
	for _, page := range doc.Pages {
		result.Records = append(result.Records, page.Records...)
		result.Warnings = append(result.Warnings, page.Warnings...)

		summary := model.PageSummary{
			Index:      page.Index,
			Status:     page.Status,
			TextSource: page.TextSource,
			Fragments:  len(page.Fragments),
			Rows:       page.Layout.RowCount(),
			Records:    len(page.Records),
		}
		if page.Err != nil {
			summary.Error = page.Err.Error()
		}
		if p.config.Audit {
			summary.RawFragments = page.Fragments
		}
		if p.config.DumpRows && page.Layout != nil {
			summary.RowDump = dumpRows(page.Layout)
		}
		result.Pages = append(result.Pages, summary)
	}

	result.Confidence = result.OverallConfidence()
	return result
}

func dumpRows(l *layout.RowLayout) []model.RowSummary {
	rows := make([]model.RowSummary, 0, l.RowCount())
	for _, row := range l.Rows {
		rows = append(rows, model.RowSummary{
			Index:  row.Index,
			Top:    row.BBox.Top(),
			Bottom: row.BBox.Bottom(),
			Text:   row.Text,
		})
	}
	return rows
}
