// Package extract maps reconstructed rows to course records.
//
// Each row is tried against a small rule library in priority order:
// the full course-line shape first (code, title, credits, grade), the
// gradeless in-progress shape second, and column-positional matching
// last, when an earlier header row established where each field lives.
// Term headings update a running term context instead of producing
// records.
//
// Extraction never fails a page. Rows no rule can read become
// unparsed-row warnings, and records that fail domain validation are
// downgraded and emitted rather than dropped.
package extract

import (
	"fmt"
	"regexp"

	"github.com/tsawler/transcripta/layout"
	"github.com/tsawler/transcripta/model"
)

// Confidence weighting: recognition confidence dominates, match
// strength tempers it, heuristic repairs cost a flat penalty.
const (
	fragmentWeight = 0.6
	strengthWeight = 0.4
	repairPenalty  = 0.1
)

// defaultMaxCredits caps the credit validation range when none is
// configured.
const defaultMaxCredits = 12

// Config controls field extraction.
type Config struct {
	// Subjects are subject alias keys or literal course prefixes the
	// course-code pattern is compiled from. Empty means the generic
	// uppercase-prefix pattern.
	Subjects []string

	// MinCredits and MaxCredits bound the accepted credit range,
	// inclusive. A zero MaxCredits means the default of 12.
	MinCredits float64
	MaxCredits float64

	// Grades is the accepted grade symbol set. Empty means
	// DefaultGrades.
	Grades []string
}

// DefaultConfig returns sensible extraction defaults.
func DefaultConfig() Config {
	return Config{MaxCredits: defaultMaxCredits}
}

// Extractor maps reconstructed rows to validated course records.
type Extractor struct {
	config    Config
	pattern   *regexp.Regexp
	validator *validator
}

// NewExtractor creates an extractor with default configuration.
func NewExtractor() *Extractor {
	return NewExtractorWithConfig(DefaultConfig())
}

// NewExtractorWithConfig creates an extractor with custom
// configuration.
func NewExtractorWithConfig(cfg Config) *Extractor {
	return &Extractor{
		config:    cfg,
		pattern:   compileCoursePattern(ExpandSubjects(cfg.Subjects)),
		validator: newValidator(cfg),
	}
}

// Extract walks one page's rows in order and produces records plus
// warnings. Term and header rows update context and emit nothing.
func (e *Extractor) Extract(rows *layout.RowLayout, page int) ([]model.Record, []model.Warning) {
	if rows == nil || rows.RowCount() == 0 {
		return nil, nil
	}

	var (
		records  []model.Record
		warnings []model.Warning
		ctx      rowContext
	)

	for i := 0; i < rows.RowCount(); i++ {
		row := rows.GetRow(i)
		text := normalizeText(row.Text)
		if text == "" {
			continue
		}

		if term, ok := matchTerm(text); ok {
			ctx.term = term
			continue
		}
		if h := matchHeader(row); h != nil {
			ctx.header = h
			continue
		}

		m, ok := e.matchFullLine(text)
		if !ok {
			m, ok = e.matchNoGrade(text)
		}
		if !ok {
			m, ok = e.matchPositional(row, &ctx)
		}
		if !ok {
			warnings = append(warnings, model.Warning{
				Kind:    model.WarnUnparsedRow,
				Page:    page,
				Row:     row.Index,
				Message: fmt.Sprintf("no extraction rule matched: %q", row.Text),
			})
			continue
		}

		record, warning := e.buildRecord(m, row, page, &ctx)
		records = append(records, record)
		if warning != nil {
			warnings = append(warnings, *warning)
		}
	}

	return records, warnings
}

// buildRecord validates a field match and assembles the record.
// Validation failures downgrade the status and raise a warning; the
// record is emitted either way so nothing silently disappears.
func (e *Extractor) buildRecord(m *fieldMatch, row *layout.Row, page int, ctx *rowContext) (model.Record, *model.Warning) {
	verr := &RecordValidationError{Page: page, Row: row.Index}

	if m.hasCredits {
		if err := e.validator.checkCredits(m.credits); err != nil {
			verr.Problems = append(verr.Problems, err.Error())
		}
	}
	if m.grade != "" {
		if err := e.validator.checkGrade(m.grade); err != nil {
			verr.Problems = append(verr.Problems, err.Error())
		}
	}

	status := model.StatusValid
	switch {
	case len(verr.Problems) >= 2:
		status = model.StatusRejected
	case len(verr.Problems) == 1:
		status = model.StatusWarning
	case m.grade == "" || !m.hasCredits:
		// Incomplete rather than invalid: in-progress courses have no
		// grade yet.
		status = model.StatusWarning
	}

	term := m.term
	if term == "" {
		term = ctx.term
	}

	record := model.Record{
		CourseCode: m.code,
		Title:      m.title,
		Credits:    m.credits,
		Grade:      m.grade,
		Term:       term,
		Confidence: scoreConfidence(row.Confidence, m.strength, m.repaired),
		Source:     model.RowRef{Page: page, Row: row.Index, RawText: row.Text},
		Status:     status,
	}

	if len(verr.Problems) > 0 {
		w := model.Warning{
			Kind:    model.WarnValidation,
			Page:    page,
			Row:     row.Index,
			Message: verr.Error(),
		}
		return record, &w
	}
	return record, nil
}

// scoreConfidence combines mean fragment confidence with the matching
// rule's strength, clamped to [0,1].
func scoreConfidence(fragmentMean, strength float64, repaired bool) float64 {
	score := fragmentWeight*fragmentMean + strengthWeight*strength
	if repaired {
		score -= repairPenalty
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
