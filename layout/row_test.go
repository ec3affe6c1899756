package layout

import (
	"math"
	"testing"

	"github.com/tsawler/transcripta/model"
)

// makeFragment creates a test text fragment for layout tests.
func makeFragment(txt string, x, y, width, height float64) model.TextFragment {
	return model.TextFragment{
		Text:       txt,
		BBox:       model.NewBBox(x, y, width, height),
		Confidence: 0.9,
	}
}

func TestRowDetector_EmptyFragments(t *testing.T) {
	detector := NewRowDetector()
	layout := detector.Detect(nil, 600, 800)

	if layout == nil {
		t.Fatal("Expected non-nil layout")
	}

	if layout.RowCount() != 0 {
		t.Errorf("Expected 0 rows, got %d", layout.RowCount())
	}

	if layout.PageWidth != 600 || layout.PageHeight != 800 {
		t.Errorf("Page dimensions not set correctly")
	}
}

func TestRowDetector_SingleFragment(t *testing.T) {
	detector := NewRowDetector()
	fragments := []model.TextFragment{
		makeFragment("CS101", 100, 100, 50, 20),
	}

	layout := detector.Detect(fragments, 600, 800)

	if layout.RowCount() != 1 {
		t.Errorf("Expected 1 row, got %d", layout.RowCount())
	}

	row := layout.GetRow(0)
	if row.Text != "CS101" {
		t.Errorf("Expected 'CS101', got '%s'", row.Text)
	}

	if row.Index != 0 {
		t.Errorf("Expected index 0, got %d", row.Index)
	}
}

func TestRowDetector_SingleRow_MultipleFragments(t *testing.T) {
	detector := NewRowDetector()
	fragments := []model.TextFragment{
		makeFragment("CS101", 40, 100, 60, 20),
		makeFragment("Intro", 130, 100, 50, 20),
		makeFragment("3.0", 300, 100, 30, 20),
		makeFragment("A", 400, 100, 15, 20),
	}

	layout := detector.Detect(fragments, 600, 800)

	if layout.RowCount() != 1 {
		t.Errorf("Expected 1 row, got %d", layout.RowCount())
	}

	row := layout.GetRow(0)
	if row.Text != "CS101 Intro 3.0 A" {
		t.Errorf("Expected 'CS101 Intro 3.0 A', got '%s'", row.Text)
	}

	if len(row.Fragments) != 4 {
		t.Errorf("Expected 4 fragments, got %d", len(row.Fragments))
	}
}

func TestRowDetector_MultipleRows(t *testing.T) {
	detector := NewRowDetector()
	fragments := []model.TextFragment{
		makeFragment("Row one", 100, 100, 70, 20),
		makeFragment("Row two", 100, 130, 70, 20),
		makeFragment("Row three", 100, 160, 80, 20),
	}

	layout := detector.Detect(fragments, 600, 800)

	if layout.RowCount() != 3 {
		t.Errorf("Expected 3 rows, got %d", layout.RowCount())
	}

	// Rows should be in reading order (top to bottom)
	expectedTexts := []string{"Row one", "Row two", "Row three"}
	for i, expected := range expectedTexts {
		row := layout.GetRow(i)
		if row.Text != expected {
			t.Errorf("Row %d: expected '%s', got '%s'", i, expected, row.Text)
		}
		if row.Index != i {
			t.Errorf("Row %d: expected index %d, got %d", i, i, row.Index)
		}
	}
}

func TestRowDetector_UnorderedInput(t *testing.T) {
	detector := NewRowDetector()

	// Same page content delivered in two different orders.
	ordered := []model.TextFragment{
		makeFragment("CS101", 40, 100, 60, 20),
		makeFragment("Intro", 130, 100, 50, 20),
		makeFragment("MATH201", 40, 130, 80, 20),
		makeFragment("Calculus", 130, 130, 80, 20),
	}
	shuffled := []model.TextFragment{ordered[3], ordered[0], ordered[2], ordered[1]}

	a := detector.Detect(ordered, 600, 800)
	b := detector.Detect(shuffled, 600, 800)

	if a.RowCount() != b.RowCount() {
		t.Fatalf("Row counts differ: %d vs %d", a.RowCount(), b.RowCount())
	}

	for i := 0; i < a.RowCount(); i++ {
		if a.Rows[i].Text != b.Rows[i].Text {
			t.Errorf("Row %d differs: '%s' vs '%s'", i, a.Rows[i].Text, b.Rows[i].Text)
		}
	}
}

func TestRowDetector_OverlappingBandsJoin(t *testing.T) {
	detector := NewRowDetector()

	// Second fragment is offset 10 of 20 pixels: 50% overlap, above the
	// 35% tolerance, so both share a row.
	fragments := []model.TextFragment{
		makeFragment("left", 40, 100, 40, 20),
		makeFragment("right", 100, 110, 40, 20),
	}

	layout := detector.Detect(fragments, 600, 800)

	if layout.RowCount() != 1 {
		t.Errorf("Expected 1 row for 50%% overlap, got %d", layout.RowCount())
	}
}

func TestRowDetector_InsufficientOverlapSplits(t *testing.T) {
	detector := NewRowDetector()

	// Offset 17 of 20 pixels: 15% overlap, below the 35% tolerance.
	fragments := []model.TextFragment{
		makeFragment("upper", 40, 100, 40, 20),
		makeFragment("lower", 100, 117, 40, 20),
	}

	layout := detector.Detect(fragments, 600, 800)

	if layout.RowCount() != 2 {
		t.Errorf("Expected 2 rows for 15%% overlap, got %d", layout.RowCount())
	}
}

func TestRowDetector_SplitTokenMerge(t *testing.T) {
	detector := NewRowDetector()

	// "CS" and "101" are 3 pixels apart (limit is 0.25*20 = 5), so they
	// rejoin into one token. "Intro" is 20 pixels away and stays a word.
	fragments := []model.TextFragment{
		makeFragment("CS", 10, 100, 20, 20),
		makeFragment("101", 33, 100, 27, 20),
		makeFragment("Intro", 80, 100, 50, 20),
	}

	layout := detector.Detect(fragments, 600, 800)

	if layout.RowCount() != 1 {
		t.Fatalf("Expected 1 row, got %d", layout.RowCount())
	}

	row := layout.GetRow(0)
	if row.Text != "CS101 Intro" {
		t.Errorf("Expected 'CS101 Intro', got '%s'", row.Text)
	}
	if len(row.Fragments) != 2 {
		t.Errorf("Expected 2 fragments after merge, got %d", len(row.Fragments))
	}
}

func TestRowDetector_MergedConfidenceWeighted(t *testing.T) {
	detector := NewRowDetector()

	a := makeFragment("CS", 10, 100, 20, 20)
	a.Confidence = 0.8
	b := makeFragment("101", 33, 100, 27, 20)
	b.Confidence = 0.9

	layout := detector.Detect([]model.TextFragment{a, b}, 600, 800)

	if layout.RowCount() != 1 {
		t.Fatalf("Expected 1 row, got %d", layout.RowCount())
	}

	// Length-weighted mean: (0.8*2 + 0.9*3) / 5 = 0.86
	got := layout.GetRow(0).Fragments[0].Confidence
	if math.Abs(got-0.86) > 1e-9 {
		t.Errorf("Expected merged confidence 0.86, got %f", got)
	}
}

func TestRowDetector_NoMergeAcrossRows(t *testing.T) {
	detector := NewRowDetector()

	// Horizontally adjacent but on different rows: no merge.
	fragments := []model.TextFragment{
		makeFragment("CS", 10, 100, 20, 20),
		makeFragment("101", 33, 140, 27, 20),
	}

	layout := detector.Detect(fragments, 600, 800)

	if layout.RowCount() != 2 {
		t.Errorf("Expected 2 rows, got %d", layout.RowCount())
	}
}

func TestRowDetector_FragmentsSortedLeftToRight(t *testing.T) {
	detector := NewRowDetector()
	fragments := []model.TextFragment{
		makeFragment("third", 300, 100, 50, 20),
		makeFragment("first", 40, 100, 50, 20),
		makeFragment("second", 150, 100, 55, 20),
	}

	layout := detector.Detect(fragments, 600, 800)

	row := layout.GetRow(0)
	if row == nil {
		t.Fatal("Expected a row")
	}
	if row.Text != "first second third" {
		t.Errorf("Expected 'first second third', got '%s'", row.Text)
	}
}

func TestRowLayout_NilSafety(t *testing.T) {
	var layout *RowLayout

	if layout.RowCount() != 0 {
		t.Error("RowCount on nil layout should be 0")
	}
	if layout.GetRow(0) != nil {
		t.Error("GetRow on nil layout should be nil")
	}
	if layout.GetText() != "" {
		t.Error("GetText on nil layout should be empty")
	}
	if layout.GetAllFragments() != nil {
		t.Error("GetAllFragments on nil layout should be nil")
	}

	var row *Row
	if !row.IsEmpty() {
		t.Error("IsEmpty on nil row should be true")
	}
	if row.WordCount() != 0 {
		t.Error("WordCount on nil row should be 0")
	}
}

func TestRowLayout_GetText(t *testing.T) {
	detector := NewRowDetector()
	fragments := []model.TextFragment{
		makeFragment("CS101", 40, 100, 60, 20),
		makeFragment("A", 300, 100, 15, 20),
		makeFragment("MATH201", 40, 130, 80, 20),
		makeFragment("B+", 300, 130, 25, 20),
	}

	layout := detector.Detect(fragments, 600, 800)

	want := "CS101 A\nMATH201 B+"
	if got := layout.GetText(); got != want {
		t.Errorf("GetText() = %q, want %q", got, want)
	}
}

func TestRow_Confidence(t *testing.T) {
	detector := NewRowDetector()

	a := makeFragment("one", 40, 100, 40, 20)
	a.Confidence = 0.6
	b := makeFragment("two", 100, 100, 40, 20)
	b.Confidence = 1.0

	layout := detector.Detect([]model.TextFragment{a, b}, 600, 800)

	row := layout.GetRow(0)
	if math.Abs(row.Confidence-0.8) > 1e-9 {
		t.Errorf("Expected row confidence 0.8, got %f", row.Confidence)
	}
}

func BenchmarkRowDetector_Detect(b *testing.B) {
	// 40 rows of 8 word fragments, roughly one dense transcript page.
	var fragments []model.TextFragment
	for row := 0; row < 40; row++ {
		for col := 0; col < 8; col++ {
			fragments = append(fragments, makeFragment(
				"word",
				40+float64(col)*70,
				float64(50+row*18),
				60, 14,
			))
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		detector := NewRowDetector()
		detector.Detect(fragments, 600, 800)
	}
}
