package layout

import "github.com/tsawler/transcripta/model"

// Config bundles row and column tuning for one reconstruction pass.
type Config struct {
	Rows    RowConfig
	Columns ColumnConfig
}

// DefaultConfig returns the default row and column configuration.
func DefaultConfig() Config {
	return Config{
		Rows:    DefaultRowConfig(),
		Columns: DefaultColumnConfig(),
	}
}

// Reconstructor turns an unordered set of page fragments into ordered
// rows. Columns are detected first; rows are then reconstructed within
// each column and concatenated in left-to-right column order, top to
// bottom within each column.
type Reconstructor struct {
	rows    *RowDetector
	columns *ColumnDetector
}

// NewReconstructor creates a reconstructor with default configuration.
func NewReconstructor() *Reconstructor {
	return NewReconstructorWithConfig(DefaultConfig())
}

// NewReconstructorWithConfig creates a reconstructor with custom configuration.
func NewReconstructorWithConfig(config Config) *Reconstructor {
	return &Reconstructor{
		rows:    NewRowDetectorWithConfig(config.Rows),
		columns: NewColumnDetectorWithConfig(config.Columns),
	}
}

// Reconstruct orders fragments into rows in reading order. Empty or
// malformed input yields an empty layout, never an error.
func (r *Reconstructor) Reconstruct(fragments []model.TextFragment, pageWidth, pageHeight float64) *RowLayout {
	colLayout := r.columns.Detect(fragments, pageWidth, pageHeight)

	if !colLayout.IsMultiColumn() {
		return r.rows.Detect(fragments, pageWidth, pageHeight)
	}

	var rows []Row
	for _, col := range colLayout.Columns {
		sub := r.rows.Detect(col.Fragments, pageWidth, pageHeight)
		for _, row := range sub.Rows {
			row.Column = col.Index
			rows = append(rows, row)
		}
	}

	// Row indexes restart per column; re-index across the merged order.
	for i := range rows {
		rows[i].Index = i
	}

	return &RowLayout{
		Rows:       rows,
		PageWidth:  pageWidth,
		PageHeight: pageHeight,
		Config:     r.rows.config,
	}
}
