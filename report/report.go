// Package report serializes transcript results for consumption
// outside the process. JSON carries the full result with run metadata;
// CSV flattens the record list to one course per row for spreadsheets.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tsawler/transcripta/model"
)

// Format selects a serialization format.
type Format int

const (
	// FormatJSON is the full structured report.
	FormatJSON Format = iota
	// FormatCSV is one extracted record per row.
	FormatCSV
)

// String returns the format's flag spelling.
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatCSV:
		return "csv"
	default:
		return "unknown"
	}
}

// Extension returns the typical file extension for the format.
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return ".csv"
	default:
		return ".json"
	}
}

// ParseFormat maps a flag value to a Format. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	default:
		return FormatJSON, fmt.Errorf("unknown report format %q (want json or csv)", s)
	}
}

// Meta describes the run that produced a report. RunID is unique per
// invocation; DocumentID is derived from the source path so repeated
// runs over the same file share it.
type Meta struct {
	RunID      uuid.UUID      `json:"run_id"`
	DocumentID uuid.UUID      `json:"document_id"`
	Source     string         `json:"source"`
	Started    time.Time      `json:"started"`
	Duration   time.Duration  `json:"duration_ns"`
	Pages      int            `json:"pages"`
	EngineUse  map[string]int `json:"engine_use,omitempty"`
}

// NewMeta builds run metadata from a finished result. EngineUse counts
// the pages each text source ultimately served.
func NewMeta(source string, started time.Time, result *model.TranscriptResult) Meta {
	meta := Meta{
		RunID:      uuid.New(),
		DocumentID: uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+source)),
		Source:     source,
		Started:    started,
		Duration:   time.Since(started),
		Pages:      result.PageCount(),
	}

	for _, page := range result.Pages {
		if page.TextSource == "" {
			continue
		}
		if meta.EngineUse == nil {
			meta.EngineUse = map[string]int{}
		}
		meta.EngineUse[page.TextSource]++
	}
	return meta
}

// Report is the complete output artifact of one run.
type Report struct {
	Meta       Meta                 `json:"meta"`
	Status     model.DocumentStatus `json:"status"`
	Confidence float64              `json:"confidence"`
	Records    []model.Record       `json:"records"`
	Warnings   []model.Warning      `json:"warnings,omitempty"`
	Pages      []model.PageSummary  `json:"pages"`
}

// New assembles a report from a result and its run metadata.
func New(result *model.TranscriptResult, meta Meta) *Report {
	return &Report{
		Meta:       meta,
		Status:     result.Status(),
		Confidence: result.Confidence,
		Records:    result.Records,
		Warnings:   result.Warnings,
		Pages:      result.Pages,
	}
}

// Write serializes the report to w in the given format.
func (r *Report) Write(w io.Writer, format Format) error {
	switch format {
	case FormatCSV:
		return r.WriteCSV(w)
	default:
		return r.WriteJSON(w)
	}
}

// WriteJSON writes the indented JSON form of the report.
func (r *Report) WriteJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(r); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

// csvHeader is the fixed column set of the CSV form.
var csvHeader = []string{
	"course_code", "title", "credits", "grade", "term",
	"status", "confidence", "page", "row", "raw_text",
}

// WriteCSV writes one record per row. Warnings and page summaries are
// JSON-only; spreadsheets get the course table.
func (r *Report) WriteCSV(w io.Writer) error {
	csvWriter := csv.NewWriter(w)

	if err := csvWriter.Write(csvHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for i, rec := range r.Records {
		row := []string{
			rec.CourseCode,
			rec.Title,
			rec.Credits.String(),
			rec.Grade,
			rec.Term,
			string(rec.Status),
			strconv.FormatFloat(rec.Confidence, 'f', 3, 64),
			strconv.Itoa(rec.Source.Page),
			strconv.Itoa(rec.Source.Row),
			rec.Source.RawText,
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", i, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
