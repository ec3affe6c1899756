package pdftext

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/tsawler/transcripta/model"
)

// Glyph boxes are approximated around the baseline: ascenders reach
// this fraction of the font size above it, descenders the rest below.
const (
	ascentRatio  = 0.8
	descentRatio = 0.2
)

// wordGapRatio is the largest horizontal gap, as a fraction of the
// font size, that still joins two glyph runs into one word.
const wordGapRatio = 0.3

// courseCodePattern is the generic course-code shape used only for the
// fast-path decision. Field extraction compiles its own rule set.
var courseCodePattern = regexp.MustCompile(`\b[A-Z]{2,5}\s?-?\s?\d{3,4}[A-Za-z]?\b`)

// PageText is the extracted text layer of one page, in pixel space.
type PageText struct {
	Page      int
	Fragments []model.TextFragment

	// Width and Height are the page dimensions at the configured DPI.
	Width  float64
	Height float64
}

// TextLength returns the total character count across fragments.
func (p *PageText) TextLength() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, f := range p.Fragments {
		n += len(f.Text)
	}
	return n
}

// CourseHits counts course-code-shaped tokens in the page text.
func (p *PageText) CourseHits() int {
	if p == nil || len(p.Fragments) == 0 {
		return 0
	}
	parts := make([]string, len(p.Fragments))
	for i, f := range p.Fragments {
		parts[i] = f.Text
	}
	return len(courseCodePattern.FindAllString(strings.Join(parts, " "), -1))
}

// Substantial reports whether the text layer is rich enough to use in
// place of OCR: enough characters overall, or enough course-code hits
// that this is clearly a transcript body even on a sparse page.
func (p *PageText) Substantial(cfg Config) bool {
	if p == nil || len(p.Fragments) == 0 {
		return false
	}

	minText := cfg.MinTextLength
	if minText <= 0 {
		minText = DefaultConfig().MinTextLength
	}
	minHits := cfg.MinCourseHits
	if minHits <= 0 {
		minHits = DefaultConfig().MinCourseHits
	}

	if p.TextLength() >= minText {
		return true
	}
	return p.CourseHits() >= minHits
}

// assembleFragments groups raw glyph runs into word fragments. PDF
// coordinates are points with y growing upward; output is pixel space
// with y growing downward, scaled by scale.
func assembleFragments(texts []pdf.Text, widthPts, heightPts, scale float64, page int) []model.TextFragment {
	if len(texts) == 0 {
		return nil
	}

	// Content-stream order is arbitrary. Top of page first, then
	// left to right.
	sorted := make([]pdf.Text, len(texts))
	copy(sorted, texts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var fragments []model.TextFragment
	var w *wordBuilder

	flush := func() {
		if w == nil {
			return
		}
		if f, ok := w.fragment(heightPts, scale, page); ok {
			fragments = append(fragments, f)
		}
		w = nil
	}

	for _, t := range sorted {
		if strings.TrimSpace(t.S) == "" {
			// Explicit space glyphs separate words.
			flush()
			continue
		}
		if w != nil && !w.accepts(t) {
			flush()
		}
		if w == nil {
			w = newWordBuilder(t)
		} else {
			w.add(t)
		}
	}
	flush()

	return model.CleanFragments(fragments, widthPts*scale, heightPts*scale)
}

// wordBuilder accumulates glyph runs that belong to one word.
type wordBuilder struct {
	text     strings.Builder
	startX   float64
	endX     float64
	baseline float64
	fontSize float64
}

func newWordBuilder(t pdf.Text) *wordBuilder {
	w := &wordBuilder{
		startX:   t.X,
		endX:     t.X + t.W,
		baseline: t.Y,
		fontSize: t.FontSize,
	}
	w.text.WriteString(t.S)
	return w
}

// accepts reports whether t continues this word: same baseline, and
// close enough horizontally that no space was intended.
func (w *wordBuilder) accepts(t pdf.Text) bool {
	size := math.Max(w.fontSize, t.FontSize)
	if size <= 0 {
		size = 1
	}
	if math.Abs(t.Y-w.baseline) > size*0.5 {
		return false
	}
	return t.X-w.endX <= size*wordGapRatio
}

func (w *wordBuilder) add(t pdf.Text) {
	w.text.WriteString(t.S)
	if t.X+t.W > w.endX {
		w.endX = t.X + t.W
	}
	if t.FontSize > w.fontSize {
		w.fontSize = t.FontSize
	}
}

func (w *wordBuilder) fragment(heightPts, scale float64, page int) (model.TextFragment, bool) {
	text := strings.TrimSpace(w.text.String())
	if text == "" {
		return model.TextFragment{}, false
	}

	size := w.fontSize
	if size <= 0 {
		size = 10
	}

	// Flip to y-down and scale to pixels.
	top := (heightPts - (w.baseline + size*ascentRatio)) * scale
	bottom := (heightPts - (w.baseline - size*descentRatio)) * scale

	return model.TextFragment{
		Text:       text,
		BBox:       model.NewBBoxFromEdges(w.startX*scale, top, w.endX*scale, bottom),
		Confidence: 1.0,
		Engine:     Source,
		Page:       page,
	}, true
}
