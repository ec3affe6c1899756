package transcripta

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tsawler/transcripta/pipeline"
)

// WithDPI sets the rasterization resolution.
func (p *Processor) WithDPI(dpi int) *Processor {
	cp := p.clone()
	if dpi <= 0 {
		cp.fail(fmt.Errorf("dpi must be positive, got %d", dpi))
		return cp
	}
	cp.config.DPI = dpi
	return cp
}

// WithEngines sets the OCR fallback chain, tried in order.
func (p *Processor) WithEngines(names ...string) *Processor {
	cp := p.clone()
	if len(names) == 0 {
		cp.fail(fmt.Errorf("at least one engine is required"))
		return cp
	}
	cp.config.Engines = append([]string(nil), names...)
	return cp
}

// WithLanguages sets the recognition languages, in preference order.
func (p *Processor) WithLanguages(langs ...string) *Processor {
	cp := p.clone()
	cp.config.Languages = append([]string(nil), langs...)
	return cp
}

// WithMinConfidence sets the mean-confidence threshold below which a
// page falls through to the next engine.
func (p *Processor) WithMinConfidence(threshold float64) *Processor {
	cp := p.clone()
	if threshold <= 0 || threshold > 1 {
		cp.fail(fmt.Errorf("confidence threshold must be in (0, 1], got %g", threshold))
		return cp
	}
	cp.config.MinConfidence = threshold
	return cp
}

// WithPageTimeout bounds each engine attempt on each page.
func (p *Processor) WithPageTimeout(d time.Duration) *Processor {
	cp := p.clone()
	if d < 0 {
		cp.fail(fmt.Errorf("page timeout must be positive, got %v", d))
		return cp
	}
	cp.config.PageTimeout = d
	return cp
}

// WithWorkers bounds how many pages are processed concurrently.
func (p *Processor) WithWorkers(n int) *Processor {
	cp := p.clone()
	if n < 1 {
		cp.fail(fmt.Errorf("workers must be at least 1, got %d", n))
		return cp
	}
	cp.config.Workers = n
	return cp
}

// WithSubjects narrows course-code extraction to the given subject
// alias keys or literal prefixes.
func (p *Processor) WithSubjects(subjects ...string) *Processor {
	cp := p.clone()
	cp.config.Extract.Subjects = append([]string(nil), subjects...)
	return cp
}

// PreferOCR disables the embedded-text fast path so PDF pages are
// always rasterized and recognized.
func (p *Processor) PreferOCR() *Processor {
	cp := p.clone()
	cp.config.PreferOCR = true
	return cp
}

// WithAudit attaches each page's raw OCR fragments to the result.
func (p *Processor) WithAudit() *Processor {
	cp := p.clone()
	cp.config.Audit = true
	return cp
}

// WithLogger directs pipeline progress events to logger.
func (p *Processor) WithLogger(logger *slog.Logger) *Processor {
	cp := p.clone()
	cp.config.Logger = logger
	return cp
}

// WithConfig replaces the whole pipeline configuration. Chained
// options applied afterwards modify the replacement.
func (p *Processor) WithConfig(cfg pipeline.Config) *Processor {
	cp := p.clone()
	cp.config = cfg
	return cp
}

// fail records the first configuration error; later terminal calls
// return it instead of running.
func (p *Processor) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}
