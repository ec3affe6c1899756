package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidationStatus is the outcome of applying domain validation rules
// (credit range, grade symbol set) to an extracted Record.
type ValidationStatus string

const (
	// StatusValid indicates the record passed all validation rules.
	StatusValid ValidationStatus = "valid"
	// StatusWarning indicates the record is usable but incomplete or
	// failed a single validation rule.
	StatusWarning ValidationStatus = "warning"
	// StatusRejected indicates the record failed validation and should
	// be reviewed. Rejected records are still emitted, never dropped.
	StatusRejected ValidationStatus = "rejected"
)

// RowRef identifies the reconstructed row a record was extracted from.
// It makes every record traceable back to its source text.
type RowRef struct {
	Page    int    `json:"page"`
	Row     int    `json:"row"`
	RawText string `json:"raw_text"`
}

// Record is one extracted course entry. Records are value objects:
// the extractor creates them fully populated and nothing modifies a
// record after it has been emitted.
type Record struct {
	CourseCode string           `json:"course_code"`
	Title      string           `json:"title"`
	Credits    decimal.Decimal  `json:"credits"`
	Grade      string           `json:"grade"`
	Term       string           `json:"term,omitempty"`
	Confidence float64          `json:"confidence"`
	Source     RowRef           `json:"source"`
	Status     ValidationStatus `json:"status"`
}

// IsValid reports whether the record passed all validation rules.
func (r Record) IsValid() bool {
	return r.Status == StatusValid
}

// WarningKind classifies a processing warning.
type WarningKind string

const (
	// WarnUnparsedRow. A reconstructed row matched no extraction rule.
	// The raw row text is preserved for manual review.
	WarnUnparsedRow WarningKind = "unparsed-row"
	// WarnValidation. A record failed validation and was downgraded.
	WarnValidation WarningKind = "validation"
	// WarnFallback. An engine attempt failed or scored below the
	// confidence threshold and the fallback chain advanced.
	WarnFallback WarningKind = "fallback"
	// WarnPageDegraded. A page produced rows but only at low confidence.
	WarnPageDegraded WarningKind = "page-degraded"
	// WarnPageFailed. A page failed processing entirely.
	WarnPageFailed WarningKind = "page-failed"
)

// Warning describes a non-fatal issue encountered during processing.
// Warnings surface problems as data rather than interrupting the run.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Page    int         `json:"page"`
	Row     int         `json:"row,omitempty"`
	Message string      `json:"message"`
}

// String returns a human-readable representation of the warning.
func (w Warning) String() string {
	if w.Kind == WarnUnparsedRow || w.Kind == WarnValidation {
		return fmt.Sprintf("[%s] page %d row %d: %s", w.Kind, w.Page, w.Row, w.Message)
	}
	return fmt.Sprintf("[%s] page %d: %s", w.Kind, w.Page, w.Message)
}

// FormatWarnings formats a slice of warnings as a multi-line string
// suitable for logging.
func FormatWarnings(warnings []Warning) string {
	if len(warnings) == 0 {
		return ""
	}

	lines := make([]string, len(warnings))
	for i, w := range warnings {
		lines[i] = w.String()
	}
	return strings.Join(lines, "\n")
}
