package model

import "strings"

// TextFragment represents a positioned piece of recognized text.
//
// Fragments are produced by OCR engines (or the embedded-text fast path)
// in page-pixel coordinates and carry the recognition confidence reported
// by the producing engine, normalized to [0,1].
type TextFragment struct {
	Text       string
	BBox       BBox
	Confidence float64
	Engine     string
	Page       int
}

// IsEmpty reports whether the fragment carries no visible text.
func (f TextFragment) IsEmpty() bool {
	return strings.TrimSpace(f.Text) == ""
}

// CleanFragments filters a fragment slice to the fragments worth keeping:
// whitespace-only text is dropped, confidence is clamped to [0,1], and
// bounding boxes are clamped to the page bounds. The input slice is not
// modified.
func CleanFragments(fragments []TextFragment, pageWidth, pageHeight float64) []TextFragment {
	if len(fragments) == 0 {
		return nil
	}

	bounds := NewBBox(0, 0, pageWidth, pageHeight)
	out := make([]TextFragment, 0, len(fragments))
	for _, f := range fragments {
		if f.IsEmpty() {
			continue
		}
		if f.Confidence < 0 {
			f.Confidence = 0
		} else if f.Confidence > 1 {
			f.Confidence = 1
		}
		if pageWidth > 0 && pageHeight > 0 {
			f.BBox = f.BBox.ClampTo(bounds)
		}
		out = append(out, f)
	}
	return out
}

// MeanConfidence returns the arithmetic mean of fragment confidences,
// or 0 for an empty slice.
func MeanConfidence(fragments []TextFragment) float64 {
	if len(fragments) == 0 {
		return 0
	}
	var sum float64
	for _, f := range fragments {
		sum += f.Confidence
	}
	return sum / float64(len(fragments))
}
