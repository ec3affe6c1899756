package model

// PageStatus describes the outcome of processing a single page.
type PageStatus string

const (
	// PageOK indicates the page was processed at acceptable confidence.
	PageOK PageStatus = "ok"
	// PageDegraded indicates the page produced rows, but every engine
	// scored below the confidence threshold and the best result was kept.
	PageDegraded PageStatus = "degraded"
	// PageFailed indicates the page produced no usable output.
	PageFailed PageStatus = "failed"
)

// DocumentStatus summarizes the outcome of a whole document run.
type DocumentStatus string

const (
	// DocSuccess indicates every page processed cleanly with no warnings.
	DocSuccess DocumentStatus = "success"
	// DocPartial indicates the run produced output alongside warnings,
	// degraded pages, failed pages, or rejected records.
	DocPartial DocumentStatus = "partial"
	// DocFailed indicates no page produced output.
	DocFailed DocumentStatus = "failed"
)

// TextSourceEmbedded marks a page whose fragments came from the
// document's embedded text layer rather than an OCR engine.
const TextSourceEmbedded = "embedded"

// RowSummary is the diagnostic view of one reconstructed row: its
// vertical extent and joined text, for tuning rule sets against an
// unfamiliar transcript layout.
type RowSummary struct {
	Index  int     `json:"index"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Text   string  `json:"text"`
}

// PageSummary records the per-page outcome for the final report.
// RawFragments is populated only in audit mode, RowDump only in row
// dump mode.
type PageSummary struct {
	Index        int            `json:"index"`
	Status       PageStatus     `json:"status"`
	TextSource   string         `json:"text_source,omitempty"`
	Fragments    int            `json:"fragments"`
	Rows         int            `json:"rows"`
	Records      int            `json:"records"`
	Error        string         `json:"error,omitempty"`
	RawFragments []TextFragment `json:"raw_fragments,omitempty"`
	RowDump      []RowSummary   `json:"row_dump,omitempty"`
}

// TranscriptResult is the ordered outcome of processing one document.
// Records are ordered by (page index, row index) ascending regardless of
// the order pages finished processing.
type TranscriptResult struct {
	Records    []Record      `json:"records"`
	Warnings   []Warning     `json:"warnings,omitempty"`
	Confidence float64       `json:"confidence"`
	Pages      []PageSummary `json:"pages"`
}

// Status derives the overall document status from page outcomes,
// warnings, and record validation results.
func (r *TranscriptResult) Status() DocumentStatus {
	if r == nil {
		return DocFailed
	}

	allFailed := len(r.Pages) > 0
	for _, p := range r.Pages {
		if p.Status != PageFailed {
			allFailed = false
			break
		}
	}
	if allFailed {
		return DocFailed
	}

	if len(r.Warnings) > 0 {
		return DocPartial
	}
	for _, p := range r.Pages {
		if p.Status != PageOK {
			return DocPartial
		}
	}
	for _, rec := range r.Records {
		if rec.Status == StatusRejected {
			return DocPartial
		}
	}

	return DocSuccess
}

// ValidRecords returns only the records that passed validation.
func (r *TranscriptResult) ValidRecords() []Record {
	if r == nil {
		return nil
	}

	var valid []Record
	for _, rec := range r.Records {
		if rec.IsValid() {
			valid = append(valid, rec)
		}
	}
	return valid
}

// RecordCount returns the total number of emitted records.
func (r *TranscriptResult) RecordCount() int {
	if r == nil {
		return 0
	}
	return len(r.Records)
}

// PageCount returns the number of pages the document was split into.
func (r *TranscriptResult) PageCount() int {
	if r == nil {
		return 0
	}
	return len(r.Pages)
}

// OverallConfidence computes the status-weighted mean confidence of the
// emitted records. Valid records carry full weight; warning and rejected
// records are discounted so a transcript full of rejects scores low even
// when individual pattern matches were confident.
func (r *TranscriptResult) OverallConfidence() float64 {
	if r == nil || len(r.Records) == 0 {
		return 0
	}

	var sum, weight float64
	for _, rec := range r.Records {
		w := statusWeight(rec.Status)
		sum += rec.Confidence * w
		weight += w
	}
	if weight == 0 {
		return 0
	}
	return sum / weight
}

func statusWeight(s ValidationStatus) float64 {
	switch s {
	case StatusValid:
		return 1.0
	case StatusWarning:
		return 0.7
	case StatusRejected:
		return 0.3
	default:
		return 0.5
	}
}
