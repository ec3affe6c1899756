// Package layout reconstructs the spatial structure of OCR output.
//
// OCR engines return text fragments in arbitrary order with pixel-space
// bounding boxes. This package turns them back into the rows a reader
// sees, which is what field extraction operates on.
//
// # Rows
//
// The [RowDetector] clusters fragments into horizontal bands by vertical
// overlap: fragments whose Y ranges overlap by at least
// [RowConfig].OverlapTolerance of the smaller height share a row. Before
// banding, fragments separated by a gap smaller than
// [RowConfig].MergeGapRatio of their height are rejoined, repairing
// tokens the engine split ("CS" + "101" becomes "CS101"). Rows come back
// sorted top to bottom with fragments left to right, regardless of input
// order.
//
// # Columns
//
// The [ColumnDetector] finds multi-column layouts by locating vertical
// whitespace gaps at least [ColumnConfig].MinGapRatio of the page width
// wide that run through at least [ColumnConfig].MinGapHeightRatio of the
// page height. When validation finds the segmentation doubtful, the page
// falls back to a single column so no fragment is lost.
//
// # Reconstruction
//
// The [Reconstructor] composes the two: columns first, then rows within
// each column, concatenated left-to-right by column and top-to-bottom
// within each. Use it when you do not care about the intermediate column
// structure:
//
//	rec := layout.NewReconstructor()
//	rows := rec.Reconstruct(fragments, pageW, pageH)
//	for _, row := range rows.Rows {
//		fmt.Println(row.Text)
//	}
package layout
