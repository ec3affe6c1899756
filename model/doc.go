// Package model provides the shared vocabulary types for transcript
// extraction.
//
// This package defines the user-facing data structures produced by the
// pipeline. All recognition, layout, and extraction operations ultimately
// produce these types, making them the primary API for consuming results.
//
// # Records
//
// The [Record] type represents one extracted course entry with its code,
// title, credits, grade, term, and an aggregate confidence score. Every
// record carries a [RowRef] tracing it back to the reconstructed row it
// was extracted from, and a [ValidationStatus] describing the outcome of
// domain validation. Rejected records are emitted, never dropped.
//
// # Fragments
//
// The [TextFragment] type is the currency between recognition and layout:
// a positioned span of text with the confidence its engine reported.
// [CleanFragments] normalizes engine output before reconstruction.
//
// # Results
//
// The [TranscriptResult] type aggregates a document run:
//
//   - Records in (page, row) order
//   - Warnings ([Warning]) for unparsed rows, validation failures,
//     engine fallbacks, and page-level problems
//   - Per-page outcomes ([PageSummary])
//
// # Geometry
//
// Geometric primitives support position and layout calculations in
// page-pixel coordinates (origin top-left, Y growing downward):
//
//   - [BBox] - bounding box with intersection, union, and overlap
//     calculations, plus vertical-overlap and horizontal-gap helpers
//     used by row reconstruction
//   - [Point] - 2D point with distance calculation
package model
