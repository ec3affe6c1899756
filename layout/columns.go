package layout

import (
	"sort"

	"github.com/tsawler/transcripta/model"
)

// Column represents a detected text column on a page.
type Column struct {
	// BBox is the bounding box of the column content
	BBox model.BBox

	// Fragments contained in this column (unordered; row detection
	// inside the column establishes reading order)
	Fragments []model.TextFragment

	// Index of the column (0-based, left to right)
	Index int
}

// ColumnLayout represents the detected column structure of a page.
type ColumnLayout struct {
	// Detected columns (sorted left to right)
	Columns []Column

	// Page dimensions
	PageWidth  float64
	PageHeight float64

	// Configuration used for detection
	Config ColumnConfig
}

// ColumnConfig holds configuration for column detection.
type ColumnConfig struct {
	// MinGapRatio is the minimum whitespace gap to consider as a column
	// separator, as a fraction of page width (default: 0.18)
	MinGapRatio float64

	// MinGapHeightRatio is the minimum vertical extent of a gap to be
	// significant, as a fraction of page height (default: 0.5)
	MinGapHeightRatio float64

	// MinColumnWidthRatio is the minimum width for a detected column, as
	// a fraction of page width. A narrower detection means the gap
	// analysis split a coherent region and the page is treated as a
	// single column (default: 0.05)
	MinColumnWidthRatio float64

	// MaxColumns is the maximum number of columns to detect (default: 4)
	MaxColumns int
}

// DefaultColumnConfig returns sensible default configuration.
func DefaultColumnConfig() ColumnConfig {
	return ColumnConfig{
		MinGapRatio:         0.18,
		MinGapHeightRatio:   0.5,
		MinColumnWidthRatio: 0.05,
		MaxColumns:          4,
	}
}

// ColumnDetector detects multi-column layouts from fragment positions.
type ColumnDetector struct {
	config ColumnConfig
}

// NewColumnDetector creates a new column detector with default configuration.
func NewColumnDetector() *ColumnDetector {
	return &ColumnDetector{
		config: DefaultColumnConfig(),
	}
}

// NewColumnDetectorWithConfig creates a column detector with custom configuration.
func NewColumnDetectorWithConfig(config ColumnConfig) *ColumnDetector {
	return &ColumnDetector{
		config: config,
	}
}

// Detect analyzes text fragments and detects column layout.
func (d *ColumnDetector) Detect(fragments []model.TextFragment, pageWidth, pageHeight float64) *ColumnLayout {
	if len(fragments) == 0 {
		return &ColumnLayout{
			Columns:    nil,
			PageWidth:  pageWidth,
			PageHeight: pageHeight,
			Config:     d.config,
		}
	}

	// Find column boundaries using whitespace gap analysis
	gaps := d.findVerticalGaps(fragments, pageWidth, pageHeight)

	// If no significant gaps, treat as single column
	if len(gaps) == 0 {
		return d.singleColumnLayout(fragments, pageWidth, pageHeight)
	}

	// Create columns based on gaps
	columns := d.createColumnsFromGaps(fragments, gaps, pageHeight)

	// A failed validation falls back to a single column so that
	// no fragment is ever dropped on the way to extraction.
	valid, ok := d.validateColumns(columns, pageWidth)
	if !ok {
		return d.singleColumnLayout(fragments, pageWidth, pageHeight)
	}

	return &ColumnLayout{
		Columns:    valid,
		PageWidth:  pageWidth,
		PageHeight: pageHeight,
		Config:     d.config,
	}
}

// Gap represents a vertical whitespace gap between column regions.
type Gap struct {
	Left  float64 // Left edge of gap
	Right float64 // Right edge of gap
}

// Width returns the width of the gap.
func (g Gap) Width() float64 {
	return g.Right - g.Left
}

// Center returns the X center of the gap.
func (g Gap) Center() float64 {
	return (g.Left + g.Right) / 2
}

// slab represents a horizontal range covered by text.
type slab struct {
	left, right float64
}

// wideFragmentRatio is the width, as a fraction of page width, above
// which a fragment is treated as a banner rather than column content.
// Banners are left out of gap discovery so a full-width header does not
// hide the gutter below it; they still count as gap blockers in the
// vertical extent check.
const wideFragmentRatio = 0.5

// findVerticalGaps finds significant vertical whitespace gaps.
func (d *ColumnDetector) findVerticalGaps(fragments []model.TextFragment, pageWidth, pageHeight float64) []Gap {
	if len(fragments) == 0 {
		return nil
	}

	// Collect the X ranges covered by column-width text
	slabs := make([]slab, 0, len(fragments))
	for _, f := range fragments {
		if f.BBox.Width > wideFragmentRatio*pageWidth {
			continue
		}
		slabs = append(slabs, slab{
			left:  f.BBox.Left(),
			right: f.BBox.Right(),
		})
	}
	if len(slabs) == 0 {
		return nil
	}

	sort.Slice(slabs, func(i, j int) bool {
		return slabs[i].left < slabs[j].left
	})

	// Merge overlapping slabs to get covered regions
	merged := mergeSlabs(slabs)

	minGapWidth := d.config.MinGapRatio * pageWidth

	// Find gaps between merged regions
	var gaps []Gap
	for i := 0; i < len(merged)-1; i++ {
		gapLeft := merged[i].right
		gapRight := merged[i+1].left

		if gapRight-gapLeft < minGapWidth {
			continue
		}

		// Verify this gap extends vertically
		extent := d.measureGapVerticalExtent(fragments, gapLeft, gapRight, pageHeight)
		if extent >= d.config.MinGapHeightRatio {
			gaps = append(gaps, Gap{Left: gapLeft, Right: gapRight})
		}
	}

	// Limit to max columns - 1 gaps
	if d.config.MaxColumns > 0 && len(gaps) >= d.config.MaxColumns {
		gaps = gaps[:d.config.MaxColumns-1]
	}

	return gaps
}

// mergeSlabs merges overlapping or nearly adjacent horizontal slabs.
func mergeSlabs(slabs []slab) []slab {
	if len(slabs) == 0 {
		return nil
	}

	merged := []slab{slabs[0]}

	for i := 1; i < len(slabs); i++ {
		current := slabs[i]
		last := &merged[len(merged)-1]

		if current.left <= last.right+5.0 {
			if current.right > last.right {
				last.right = current.right
			}
		} else {
			merged = append(merged, current)
		}
	}

	return merged
}

// measureGapVerticalExtent measures what fraction of the page height a
// gap spans. A fragment crossing the gap horizontally blocks the gap at
// its own Y range.
func (d *ColumnDetector) measureGapVerticalExtent(fragments []model.TextFragment, gapLeft, gapRight, pageHeight float64) float64 {
	if pageHeight <= 0 {
		return 0
	}

	type yRange struct{ top, bottom float64 }
	var crossing []yRange

	for _, f := range fragments {
		if f.BBox.Right() > gapLeft && f.BBox.Left() < gapRight {
			crossing = append(crossing, yRange{
				top:    f.BBox.Top(),
				bottom: f.BBox.Bottom(),
			})
		}
	}

	if len(crossing) == 0 {
		return 1.0
	}

	sort.Slice(crossing, func(i, j int) bool {
		return crossing[i].top < crossing[j].top
	})

	// Merge overlapping Y ranges
	merged := []yRange{crossing[0]}
	for i := 1; i < len(crossing); i++ {
		current := crossing[i]
		last := &merged[len(merged)-1]

		if current.top <= last.bottom {
			if current.bottom > last.bottom {
				last.bottom = current.bottom
			}
		} else {
			merged = append(merged, current)
		}
	}

	blocked := 0.0
	for _, r := range merged {
		blocked += r.bottom - r.top
	}

	return (pageHeight - blocked) / pageHeight
}

// singleColumnLayout creates a layout with all fragments in one column.
func (d *ColumnDetector) singleColumnLayout(fragments []model.TextFragment, pageWidth, pageHeight float64) *ColumnLayout {
	return &ColumnLayout{
		Columns: []Column{
			{
				BBox:      fragmentsBBox(fragments),
				Fragments: fragments,
				Index:     0,
			},
		},
		PageWidth:  pageWidth,
		PageHeight: pageHeight,
		Config:     d.config,
	}
}

// createColumnsFromGaps creates columns based on detected gaps.
func (d *ColumnDetector) createColumnsFromGaps(fragments []model.TextFragment, gaps []Gap, pageHeight float64) []Column {
	sort.Slice(gaps, func(i, j int) bool {
		return gaps[i].Left < gaps[j].Left
	})

	content := fragmentsBBox(fragments)

	// Column windows run from the content edges through the gap centers
	type window struct {
		left, right float64
	}

	windows := make([]window, 0, len(gaps)+1)
	windows = append(windows, window{left: content.Left(), right: gaps[0].Center()})
	for i := 0; i < len(gaps)-1; i++ {
		windows = append(windows, window{left: gaps[i].Center(), right: gaps[i+1].Center()})
	}
	windows = append(windows, window{left: gaps[len(gaps)-1].Center(), right: content.Right()})

	columns := make([]Column, len(windows))
	for i := range columns {
		columns[i].Index = i
	}

	// Assign each fragment to the window holding its center
	for _, f := range fragments {
		center := f.BBox.CenterX()
		for i, w := range windows {
			if center >= w.left && (center < w.right || i == len(windows)-1) {
				columns[i].Fragments = append(columns[i].Fragments, f)
				break
			}
		}
	}

	// Tighten column boxes to actual content
	for i := range columns {
		if len(columns[i].Fragments) > 0 {
			columns[i].BBox = fragmentsBBox(columns[i].Fragments)
		}
	}

	return columns
}

// validateColumns drops empty columns and reports whether the remaining
// segmentation is trustworthy. Any surviving column narrower than the
// minimum width means the analysis cut through a coherent region.
func (d *ColumnDetector) validateColumns(columns []Column, pageWidth float64) ([]Column, bool) {
	minWidth := d.config.MinColumnWidthRatio * pageWidth

	var valid []Column
	for _, col := range columns {
		if len(col.Fragments) == 0 {
			continue
		}
		if col.BBox.Width < minWidth {
			return nil, false
		}
		valid = append(valid, col)
	}

	if len(valid) == 0 {
		return nil, false
	}

	for i := range valid {
		valid[i].Index = i
	}
	return valid, true
}

// fragmentsBBox calculates the bounding box of a set of fragments.
func fragmentsBBox(fragments []model.TextFragment) model.BBox {
	if len(fragments) == 0 {
		return model.BBox{}
	}

	bbox := fragments[0].BBox
	for _, f := range fragments[1:] {
		bbox = bbox.Union(f.BBox)
	}
	return bbox
}

// ColumnCount returns the number of detected columns.
func (l *ColumnLayout) ColumnCount() int {
	if l == nil {
		return 0
	}
	return len(l.Columns)
}

// IsSingleColumn returns true if at most one column was detected.
func (l *ColumnLayout) IsSingleColumn() bool {
	return l.ColumnCount() <= 1
}

// IsMultiColumn returns true if multiple columns were detected.
func (l *ColumnLayout) IsMultiColumn() bool {
	return l.ColumnCount() > 1
}

// GetColumn returns a specific column by index.
func (l *ColumnLayout) GetColumn(index int) *Column {
	if l == nil || index < 0 || index >= len(l.Columns) {
		return nil
	}
	return &l.Columns[index]
}
