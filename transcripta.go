// Package transcripta extracts structured course records from scanned
// academic transcripts.
//
// Basic usage:
//
//	result, err := transcripta.Open("transcript.pdf").Process(ctx)
//	if err != nil {
//	    // handle error
//	}
//	for _, rec := range result.Records {
//	    fmt.Println(rec.CourseCode, rec.Grade)
//	}
//
// With options:
//
//	result, err := transcripta.Open("scan.png").
//	    WithDPI(400).
//	    WithEngines("tesseract", "openai").
//	    WithSubjects("math", "cs").
//	    Process(ctx)
//
// For advanced use cases, the lower-level pipeline package is also
// available.
package transcripta

import (
	"context"

	"github.com/tsawler/transcripta/model"
	"github.com/tsawler/transcripta/pipeline"
)

// Processor provides a fluent interface for transcript processing.
// Each configuration method returns a new Processor instance, making
// it safe for concurrent use and allowing method chaining. Nothing is
// opened until a terminal operation runs.
type Processor struct {
	path   string
	config pipeline.Config

	// Accumulated error (fail-fast)
	err error
}

// Open prepares a Processor for the named document. The file is not
// touched until Process or Records is called.
//
// Example:
//
//	result, err := transcripta.Open("transcript.pdf").Process(ctx)
func Open(path string) *Processor {
	return &Processor{
		path:   path,
		config: pipeline.DefaultConfig(),
	}
}

// clone creates a copy of the Processor with config slices deep-copied.
// This ensures immutability: each chain method returns a new instance.
func (p *Processor) clone() *Processor {
	cp := &Processor{
		path:   p.path,
		config: p.config,
		err:    p.err,
	}
	cp.config.Engines = append([]string(nil), p.config.Engines...)
	cp.config.Languages = append([]string(nil), p.config.Languages...)
	cp.config.Extract.Subjects = append([]string(nil), p.config.Extract.Subjects...)
	cp.config.Extract.Grades = append([]string(nil), p.config.Extract.Grades...)
	return cp
}

// Process runs the full pipeline and returns the ordered result.
// A partial result may accompany a non-nil error when every page
// failed; callers that want the per-page detail should check both.
func (p *Processor) Process(ctx context.Context) (*model.TranscriptResult, error) {
	if p.err != nil {
		return nil, p.err
	}
	return pipeline.NewWithConfig(p.config).Process(ctx, p.path)
}

// Records runs the pipeline and returns just the extracted records
// with any processing warnings.
func (p *Processor) Records(ctx context.Context) ([]model.Record, []model.Warning, error) {
	result, err := p.Process(ctx)
	if err != nil {
		return nil, nil, err
	}
	return result.Records, result.Warnings, nil
}

// Config returns a copy of the pipeline configuration the Processor
// would run with.
func (p *Processor) Config() pipeline.Config {
	return p.clone().config
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	result := transcripta.Must(transcripta.Open("t.pdf").Process(ctx))
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// MustRecords wraps a call to Records and panics on error, discarding
// warnings.
func MustRecords(records []model.Record, _ []model.Warning, err error) []model.Record {
	if err != nil {
		panic(err)
	}
	return records
}
