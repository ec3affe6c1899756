package pipeline

import (
	"context"
	"errors"
	"image"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tsawler/transcripta/model"
	"github.com/tsawler/transcripta/ocr"
	"github.com/tsawler/transcripta/raster"
)

// fakeDoc implements raster.Document with scriptable per-page
// rasterization failures.
type fakeDoc struct {
	pages    int
	failPage map[int]error
}

func (d *fakeDoc) PageCount() int { return d.pages }

func (d *fakeDoc) Rasterize(ctx context.Context, page int) (image.Image, error) {
	if err, ok := d.failPage[page]; ok {
		return nil, &raster.RasterizationError{Page: page, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return image.NewGray(image.Rect(0, 0, 1000, 800)), nil
}

func (d *fakeDoc) Close() error { return nil }

// scriptedEngine implements ocr.Engine with canned output.
type scriptedEngine struct {
	name      string
	fragments []model.TextFragment
	err       error
	delay     time.Duration
	calls     atomic.Int32
}

func (e *scriptedEngine) Name() string { return e.name }

func (e *scriptedEngine) Recognize(ctx context.Context, img image.Image, opts ocr.Options) ([]model.TextFragment, error) {
	e.calls.Add(1)
	if e.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.delay):
		}
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.fragments, nil
}

// transcriptFragments lays out the three-row scenario page: two clean
// course rows and one garbled row.
func transcriptFragments(conf float64) []model.TextFragment {
	rows := [][]string{
		{"CS101", "Intro", "to", "CS", "3", "A"},
		{"MATH201", "Calculus", "4", "B+"},
		{"~#!!", "2a&&", "zz"},
	}

	var frags []model.TextFragment
	for r, words := range rows {
		x := 50.0
		y := 100 + float64(r)*50
		for _, w := range words {
			width := float64(len(w)) * 9
			frags = append(frags, model.TextFragment{
				Text:       w,
				BBox:       model.NewBBox(x, y, width, 14),
				Confidence: conf,
			})
			x += width + 12
		}
	}
	return frags
}

// Scripted engines are registered once; tests reset their counters.
var (
	engGood  = &scriptedEngine{name: "test-good", fragments: transcriptFragments(0.9)}
	engLow   = &scriptedEngine{name: "test-low", fragments: transcriptFragments(0.40)}
	engLower = &scriptedEngine{name: "test-lower", fragments: transcriptFragments(0.30)}
	engFail  = &scriptedEngine{name: "test-fail", err: &ocr.RecognitionError{Engine: "test-fail", Err: errors.New("decode failed")}}
	engSlow  = &scriptedEngine{name: "test-slow", delay: 2 * time.Second, fragments: transcriptFragments(0.9)}
	engBlank = &scriptedEngine{name: "test-blank"}
)

func init() {
	ocr.Register("test-good", func() (ocr.Engine, error) { return engGood, nil })
	ocr.Register("test-low", func() (ocr.Engine, error) { return engLow, nil })
	ocr.Register("test-lower", func() (ocr.Engine, error) { return engLower, nil })
	ocr.Register("test-fail", func() (ocr.Engine, error) { return engFail, nil })
	ocr.Register("test-slow", func() (ocr.Engine, error) { return engSlow, nil })
	ocr.Register("test-blank", func() (ocr.Engine, error) { return engBlank, nil })
	ocr.Register("test-down", func() (ocr.Engine, error) { return nil, errors.New("engine offline") })
}

func testConfig(engines ...string) Config {
	cfg := DefaultConfig()
	cfg.Engines = engines
	return cfg
}

func resetCalls(engines ...*scriptedEngine) {
	for _, e := range engines {
		e.calls.Store(0)
	}
}

func TestPipeline_ThreeRowScenario(t *testing.T) {
	p := NewWithConfig(testConfig("test-good"))

	result, err := p.ProcessDocument(context.Background(), "transcript.png", &fakeDoc{pages: 1})
	if err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}

	if len(result.Records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(result.Records))
	}
	if result.Records[0].CourseCode != "CS101" || result.Records[1].CourseCode != "MATH201" {
		t.Errorf("Expected CS101 and MATH201, got %s and %s",
			result.Records[0].CourseCode, result.Records[1].CourseCode)
	}
	if result.Records[0].Grade != "A" || result.Records[1].Grade != "B+" {
		t.Errorf("Expected grades A and B+, got %s and %s",
			result.Records[0].Grade, result.Records[1].Grade)
	}

	unparsed := 0
	for _, w := range result.Warnings {
		if w.Kind == model.WarnUnparsedRow {
			unparsed++
		}
	}
	if unparsed != 1 {
		t.Errorf("Expected 1 unparsed-row warning, got %d (%v)", unparsed, result.Warnings)
	}

	if len(result.Pages) != 1 || result.Pages[0].Status != model.PageOK {
		t.Fatalf("Expected 1 ok page, got %+v", result.Pages)
	}
	if result.Pages[0].TextSource != "test-good" {
		t.Errorf("Expected text source test-good, got %q", result.Pages[0].TextSource)
	}
	if result.Status() != model.DocPartial {
		t.Errorf("Expected partial status with an unparsed row, got %s", result.Status())
	}
}

func TestPipeline_FallbackOnLowConfidence(t *testing.T) {
	resetCalls(engLow, engGood)
	p := NewWithConfig(testConfig("test-low", "test-good"))

	result, err := p.ProcessDocument(context.Background(), "scan.png", &fakeDoc{pages: 1})
	if err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}

	if engLow.calls.Load() != 1 || engGood.calls.Load() != 1 {
		t.Errorf("Expected each engine tried once, got %d/%d",
			engLow.calls.Load(), engGood.calls.Load())
	}
	if result.Pages[0].TextSource != "test-good" {
		t.Errorf("Expected fallback engine's result to be used, got %q", result.Pages[0].TextSource)
	}
	if result.Pages[0].Status != model.PageOK {
		t.Errorf("Expected ok page after successful fallback, got %s", result.Pages[0].Status)
	}

	found := false
	for _, w := range result.Warnings {
		if w.Kind == model.WarnFallback && strings.Contains(w.Message, "below threshold") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a fallback warning naming the threshold, got %v", result.Warnings)
	}
}

func TestPipeline_FallbackOnRecognitionError(t *testing.T) {
	resetCalls(engFail, engGood)
	p := NewWithConfig(testConfig("test-fail", "test-good"))

	result, err := p.ProcessDocument(context.Background(), "scan.png", &fakeDoc{pages: 1})
	if err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}

	if result.Pages[0].TextSource != "test-good" {
		t.Errorf("Expected fallback engine's result, got %q", result.Pages[0].TextSource)
	}
	if len(result.Records) != 2 {
		t.Errorf("Expected 2 records from fallback, got %d", len(result.Records))
	}

	found := false
	for _, w := range result.Warnings {
		if w.Kind == model.WarnFallback && strings.Contains(w.Message, "test-fail") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a fallback warning for the failed engine, got %v", result.Warnings)
	}
}

func TestPipeline_FallbackOnUnavailableEngine(t *testing.T) {
	resetCalls(engGood)
	p := NewWithConfig(testConfig("test-down", "test-good"))

	result, err := p.ProcessDocument(context.Background(), "scan.png", &fakeDoc{pages: 1})
	if err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}
	if result.Pages[0].TextSource != "test-good" {
		t.Errorf("Expected the available engine to serve the page, got %q", result.Pages[0].TextSource)
	}
}

func TestPipeline_PageIsolation(t *testing.T) {
	p := NewWithConfig(testConfig("test-good"))
	doc := &fakeDoc{pages: 2, failPage: map[int]error{1: errors.New("corrupt stream")}}

	result, err := p.ProcessDocument(context.Background(), "two-pages.pdf", doc)
	if err != nil {
		t.Fatalf("Expected partial success, got error: %v", err)
	}

	if len(result.Pages) != 2 {
		t.Fatalf("Expected 2 page summaries, got %d", len(result.Pages))
	}
	if result.Pages[0].Status != model.PageOK {
		t.Errorf("Expected page 0 ok, got %s", result.Pages[0].Status)
	}
	if result.Pages[1].Status != model.PageFailed {
		t.Errorf("Expected page 1 failed, got %s", result.Pages[1].Status)
	}
	if !strings.Contains(result.Pages[1].Error, "rasterize page 1") {
		t.Errorf("Expected rasterization error on page 1, got %q", result.Pages[1].Error)
	}

	if len(result.Records) != 2 {
		t.Errorf("Expected page 0 records to survive, got %d", len(result.Records))
	}
	for _, r := range result.Records {
		if r.Source.Page != 0 {
			t.Errorf("Expected all records from page 0, got page %d", r.Source.Page)
		}
	}

	if result.Status() != model.DocPartial {
		t.Errorf("Expected partial document status, got %s", result.Status())
	}
}

func TestPipeline_AllPagesFailedAborts(t *testing.T) {
	p := NewWithConfig(testConfig("test-good"))
	doc := &fakeDoc{pages: 1, failPage: map[int]error{0: errors.New("corrupt")}}

	result, err := p.ProcessDocument(context.Background(), "broken.pdf", doc)

	var fatal *FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("Expected *FatalError when every page fails, got %v", err)
	}
	if result == nil || result.Status() != model.DocFailed {
		t.Errorf("Expected failed result alongside the error, got %+v", result)
	}
}

func TestPipeline_EnginesExhausted(t *testing.T) {
	p := NewWithConfig(testConfig("test-fail", "test-down"))

	result, err := p.ProcessDocument(context.Background(), "scan.png", &fakeDoc{pages: 1})

	var fatal *FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("Expected *FatalError when the only page fails, got %v", err)
	}
	if result.Pages[0].Status != model.PageFailed {
		t.Errorf("Expected failed page, got %s", result.Pages[0].Status)
	}
	if !strings.Contains(result.Pages[0].Error, "engines exhausted") {
		t.Errorf("Expected exhaustion error, got %q", result.Pages[0].Error)
	}
}

func TestPipeline_DegradedKeepsBestResult(t *testing.T) {
	resetCalls(engLow, engLower)
	p := NewWithConfig(testConfig("test-lower", "test-low"))

	result, err := p.ProcessDocument(context.Background(), "scan.png", &fakeDoc{pages: 1})
	if err != nil {
		t.Fatalf("Expected degraded success, got error: %v", err)
	}

	if result.Pages[0].Status != model.PageDegraded {
		t.Errorf("Expected degraded page, got %s", result.Pages[0].Status)
	}
	if result.Pages[0].TextSource != "test-low" {
		t.Errorf("Expected the higher scoring engine kept, got %q", result.Pages[0].TextSource)
	}
	if len(result.Records) != 2 {
		t.Errorf("Expected records from the degraded page, got %d", len(result.Records))
	}

	found := false
	for _, w := range result.Warnings {
		if w.Kind == model.WarnPageDegraded {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected page-degraded warning, got %v", result.Warnings)
	}
}

func TestPipeline_PerPageTimeoutAdvancesChain(t *testing.T) {
	resetCalls(engSlow, engGood)
	cfg := testConfig("test-slow", "test-good")
	cfg.PageTimeout = 50 * time.Millisecond
	p := NewWithConfig(cfg)

	start := time.Now()
	result, err := p.ProcessDocument(context.Background(), "scan.png", &fakeDoc{pages: 1})
	if err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Expected timeout to cut the slow engine short, took %v", elapsed)
	}

	if result.Pages[0].TextSource != "test-good" {
		t.Errorf("Expected fallback after timeout, got %q", result.Pages[0].TextSource)
	}
	if result.Pages[0].Status != model.PageOK {
		t.Errorf("Expected ok page, got %s", result.Pages[0].Status)
	}
}

func TestPipeline_CancellationPreservesNothingStarted(t *testing.T) {
	p := NewWithConfig(testConfig("test-good"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := p.ProcessDocument(ctx, "scan.png", &fakeDoc{pages: 2})

	var fatal *FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("Expected *FatalError for fully cancelled run, got %v", err)
	}
	for _, page := range result.Pages {
		if page.Status != model.PageFailed {
			t.Errorf("Expected page %d failed after cancellation, got %s", page.Index, page.Status)
		}
	}
}

func TestPipeline_BlankPage(t *testing.T) {
	p := NewWithConfig(testConfig("test-blank"))

	result, err := p.ProcessDocument(context.Background(), "blank.png", &fakeDoc{pages: 1})
	if err != nil {
		t.Fatalf("Expected blank page to succeed, got %v", err)
	}
	if result.Pages[0].Status != model.PageOK {
		t.Errorf("Expected ok status for blank page, got %s", result.Pages[0].Status)
	}
	if len(result.Records) != 0 {
		t.Errorf("Expected no records from blank page, got %d", len(result.Records))
	}
	if result.Status() != model.DocSuccess {
		t.Errorf("Expected success for a cleanly blank document, got %s", result.Status())
	}
}

func TestPipeline_DeterministicMergeOrder(t *testing.T) {
	cfg := testConfig("test-good")
	cfg.Workers = 3
	p := NewWithConfig(cfg)

	run := func() *model.TranscriptResult {
		result, err := p.ProcessDocument(context.Background(), "multi.pdf", &fakeDoc{pages: 3})
		if err != nil {
			t.Fatalf("ProcessDocument failed: %v", err)
		}
		return result
	}

	a, b := run(), run()
	if len(a.Records) != 6 || len(b.Records) != 6 {
		t.Fatalf("Expected 6 records per run, got %d and %d", len(a.Records), len(b.Records))
	}
	for i := range a.Records {
		if a.Records[i].Source.Page != b.Records[i].Source.Page ||
			a.Records[i].CourseCode != b.Records[i].CourseCode {
			t.Errorf("Record %d differs between runs", i)
		}
	}
	for i := 1; i < len(a.Records); i++ {
		if a.Records[i].Source.Page < a.Records[i-1].Source.Page {
			t.Errorf("Records out of page order at index %d", i)
		}
	}
}

func TestPipeline_UnknownEngineIsFatal(t *testing.T) {
	p := NewWithConfig(testConfig("no-such-engine"))

	_, err := p.ProcessDocument(context.Background(), "scan.png", &fakeDoc{pages: 1})

	var fatal *FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("Expected *FatalError for unknown engine, got %v", err)
	}
	if !errors.Is(err, ocr.ErrUnknownEngine) {
		t.Errorf("Expected ErrUnknownEngine in chain, got %v", err)
	}
}

func TestPipeline_DumpRowsAttachesRowText(t *testing.T) {
	cfg := testConfig("test-good")
	cfg.DumpRows = true
	p := NewWithConfig(cfg)

	result, err := p.ProcessDocument(context.Background(), "scan.png", &fakeDoc{pages: 1})
	if err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}

	dump := result.Pages[0].RowDump
	if len(dump) != 3 {
		t.Fatalf("Expected 3 dumped rows, got %d", len(dump))
	}
	if !strings.Contains(dump[0].Text, "CS101") {
		t.Errorf("Expected first row text to carry CS101, got %q", dump[0].Text)
	}
	if dump[0].Bottom <= dump[0].Top {
		t.Errorf("Expected positive row extent, got [%f, %f]", dump[0].Top, dump[0].Bottom)
	}
	if dump[1].Top < dump[0].Bottom {
		t.Errorf("Expected rows ordered top to bottom, got %f then %f", dump[0].Bottom, dump[1].Top)
	}
}

func TestPipeline_AuditAttachesFragments(t *testing.T) {
	cfg := testConfig("test-good")
	cfg.Audit = true
	p := NewWithConfig(cfg)

	result, err := p.ProcessDocument(context.Background(), "scan.png", &fakeDoc{pages: 1})
	if err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}
	if len(result.Pages[0].RawFragments) == 0 {
		t.Error("Expected raw fragments in audit mode")
	}

	p = NewWithConfig(testConfig("test-good"))
	result, err = p.ProcessDocument(context.Background(), "scan.png", &fakeDoc{pages: 1})
	if err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}
	if len(result.Pages[0].RawFragments) != 0 {
		t.Error("Expected no raw fragments without audit mode")
	}
}
