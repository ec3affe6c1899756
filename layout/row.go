package layout

import (
	"math"
	"sort"
	"strings"

	"github.com/tsawler/transcripta/model"
)

// Row represents a single horizontal band of text on a page.
type Row struct {
	// BBox is the bounding box of the row
	BBox model.BBox

	// Fragments are the text fragments that make up this row (sorted left to right)
	Fragments []model.TextFragment

	// Text is the assembled text content of the row
	Text string

	// Index is the row's position in reading order (0-based)
	Index int

	// Column is the index of the column the row belongs to
	// (0 on single-column pages)
	Column int

	// Confidence is the mean confidence of the member fragments
	Confidence float64
}

// RowLayout represents the reconstructed row structure of a page or region.
type RowLayout struct {
	// Rows are the detected rows in reading order
	Rows []Row

	// PageWidth is the width of the page/region
	PageWidth float64

	// PageHeight is the height of the page/region
	PageHeight float64

	// Config is the configuration used for detection
	Config RowConfig
}

// RowConfig holds configuration for row detection.
type RowConfig struct {
	// OverlapTolerance is the minimum vertical overlap for a fragment to
	// join an existing band, as a fraction of the smaller of the two
	// heights (default: 0.35)
	OverlapTolerance float64

	// MergeGapRatio is the maximum horizontal gap between two fragments
	// for them to be rejoined as split pieces of one token, as a fraction
	// of the smaller fragment height (default: 0.25)
	MergeGapRatio float64
}

// DefaultRowConfig returns sensible default configuration.
func DefaultRowConfig() RowConfig {
	return RowConfig{
		OverlapTolerance: 0.35,
		MergeGapRatio:    0.25,
	}
}

// RowDetector groups text fragments into horizontal rows.
type RowDetector struct {
	config RowConfig
}

// NewRowDetector creates a new row detector with default configuration.
func NewRowDetector() *RowDetector {
	return &RowDetector{
		config: DefaultRowConfig(),
	}
}

// NewRowDetectorWithConfig creates a row detector with custom configuration.
func NewRowDetectorWithConfig(config RowConfig) *RowDetector {
	return &RowDetector{
		config: config,
	}
}

// Detect analyzes text fragments and groups them into rows. The result
// is deterministic regardless of input order: rows are sorted top to
// bottom, fragments within a row left to right. Empty input yields an
// empty layout, never an error.
func (d *RowDetector) Detect(fragments []model.TextFragment, pageWidth, pageHeight float64) *RowLayout {
	if len(fragments) == 0 {
		return &RowLayout{
			Rows:       nil,
			PageWidth:  pageWidth,
			PageHeight: pageHeight,
			Config:     d.config,
		}
	}

	// Step 1: Rejoin tokens the engine split into adjacent pieces
	merged := d.mergeSplitTokens(fragments)

	// Step 2: Cluster fragments into horizontal bands by vertical overlap
	bands := d.groupIntoBands(merged)

	// Step 3: Build Row objects with assembled text
	rows := d.buildRows(bands)

	return &RowLayout{
		Rows:       rows,
		PageWidth:  pageWidth,
		PageHeight: pageHeight,
		Config:     d.config,
	}
}

// mergeSplitTokens rejoins fragments that are split pieces of a single
// token: vertically overlapping and separated by a gap smaller than
// MergeGapRatio of the smaller height. OCR engines split course codes
// like "CS" "101" this way when glyph spacing is wide. Confidence of a
// merged fragment is the length-weighted mean of the pieces.
func (d *RowDetector) mergeSplitTokens(fragments []model.TextFragment) []model.TextFragment {
	if len(fragments) < 2 {
		return fragments
	}

	sorted := make([]model.TextFragment, len(fragments))
	copy(sorted, fragments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].BBox.Left() < sorted[j].BBox.Left()
	})

	var out []model.TextFragment
	for _, f := range sorted {
		merged := false

		// Walking backwards, the first fragment that shares the band is
		// the nearest left neighbor; it alone decides the merge.
		for i := len(out) - 1; i >= 0; i-- {
			o := &out[i]
			if o.BBox.VerticalOverlap(f.BBox) < d.config.OverlapTolerance {
				continue
			}
			gap := o.BBox.HorizontalGap(f.BBox)
			limit := d.config.MergeGapRatio * math.Min(o.BBox.Height, f.BBox.Height)
			if gap <= limit {
				wa := float64(len([]rune(o.Text)))
				wb := float64(len([]rune(f.Text)))
				if wa+wb > 0 {
					o.Confidence = (o.Confidence*wa + f.Confidence*wb) / (wa + wb)
				}
				o.Text += f.Text
				o.BBox = o.BBox.Union(f.BBox)
				merged = true
			}
			break
		}

		if !merged {
			out = append(out, f)
		}
	}

	return out
}

// groupIntoBands clusters fragments into horizontal bands. Fragments are
// visited in top-to-bottom order; each joins the current band while its
// vertical overlap with the band extent reaches OverlapTolerance.
func (d *RowDetector) groupIntoBands(fragments []model.TextFragment) [][]model.TextFragment {
	sorted := make([]model.TextFragment, len(fragments))
	copy(sorted, fragments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].BBox.CenterY() < sorted[j].BBox.CenterY()
	})

	var bands [][]model.TextFragment
	var current []model.TextFragment
	var extent model.BBox

	for _, f := range sorted {
		if len(current) == 0 {
			current = []model.TextFragment{f}
			extent = f.BBox
			continue
		}

		if extent.VerticalOverlap(f.BBox) >= d.config.OverlapTolerance {
			current = append(current, f)
			extent = extent.Union(f.BBox)
		} else {
			bands = append(bands, current)
			current = []model.TextFragment{f}
			extent = f.BBox
		}
	}

	if len(current) > 0 {
		bands = append(bands, current)
	}

	return bands
}

// buildRows creates Row objects from fragment bands.
func (d *RowDetector) buildRows(bands [][]model.TextFragment) []Row {
	rows := make([]Row, 0, len(bands))

	for _, band := range bands {
		if len(band) == 0 {
			continue
		}

		sort.SliceStable(band, func(i, j int) bool {
			return band[i].BBox.Left() < band[j].BBox.Left()
		})

		rows = append(rows, Row{
			BBox:       fragmentsBBox(band),
			Fragments:  band,
			Text:       assembleRowText(band),
			Confidence: model.MeanConfidence(band),
		})
	}

	// Bands are seeded top to bottom, but band extents can shift as
	// members join; sort by vertical center for a stable final order.
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].BBox.CenterY() < rows[j].BBox.CenterY()
	})
	for i := range rows {
		rows[i].Index = i
	}

	return rows
}

// assembleRowText joins fragment texts left to right with single spaces.
// Split tokens were rejoined before banding, so every remaining gap
// separates words.
func assembleRowText(fragments []model.TextFragment) string {
	parts := make([]string, len(fragments))
	for i, f := range fragments {
		parts[i] = f.Text
	}
	return strings.Join(parts, " ")
}

// RowLayout methods

// RowCount returns the number of detected rows.
func (l *RowLayout) RowCount() int {
	if l == nil {
		return 0
	}
	return len(l.Rows)
}

// GetRow returns a specific row by index.
func (l *RowLayout) GetRow(index int) *Row {
	if l == nil || index < 0 || index >= len(l.Rows) {
		return nil
	}
	return &l.Rows[index]
}

// GetText returns all row text in reading order, one row per line.
func (l *RowLayout) GetText() string {
	if l == nil || len(l.Rows) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, row := range l.Rows {
		sb.WriteString(row.Text)
		if i < len(l.Rows)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// GetAllFragments returns all fragments in reading order.
func (l *RowLayout) GetAllFragments() []model.TextFragment {
	if l == nil {
		return nil
	}

	var result []model.TextFragment
	for _, row := range l.Rows {
		result = append(result, row.Fragments...)
	}
	return result
}

// Row methods

// IsEmpty returns true if the row has no text content.
func (r *Row) IsEmpty() bool {
	if r == nil {
		return true
	}
	return strings.TrimSpace(r.Text) == ""
}

// WordCount returns the number of whitespace-separated tokens in the row.
func (r *Row) WordCount() int {
	if r == nil {
		return 0
	}
	return len(strings.Fields(r.Text))
}
