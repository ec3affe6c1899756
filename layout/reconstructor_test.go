package layout

import (
	"testing"

	"github.com/tsawler/transcripta/model"
)

func TestReconstructor_Empty(t *testing.T) {
	rec := NewReconstructor()
	layout := rec.Reconstruct(nil, 600, 800)

	if layout == nil {
		t.Fatal("Expected non-nil layout")
	}
	if layout.RowCount() != 0 {
		t.Errorf("Expected 0 rows, got %d", layout.RowCount())
	}
}

func TestReconstructor_SingleColumn(t *testing.T) {
	rec := NewReconstructor()
	fragments := []model.TextFragment{
		makeFragment("MATH201", 40, 130, 80, 20),
		makeFragment("CS101", 40, 100, 60, 20),
		makeFragment("Calculus", 140, 130, 80, 20),
		makeFragment("Intro", 140, 100, 50, 20),
	}

	layout := rec.Reconstruct(fragments, 600, 800)

	if layout.RowCount() != 2 {
		t.Fatalf("Expected 2 rows, got %d", layout.RowCount())
	}
	if layout.Rows[0].Text != "CS101 Intro" {
		t.Errorf("Row 0 = %q, want %q", layout.Rows[0].Text, "CS101 Intro")
	}
	if layout.Rows[1].Text != "MATH201 Calculus" {
		t.Errorf("Row 1 = %q, want %q", layout.Rows[1].Text, "MATH201 Calculus")
	}
	for i, row := range layout.Rows {
		if row.Column != 0 {
			t.Errorf("Row %d column = %d, want 0", i, row.Column)
		}
	}
}

func TestReconstructor_TwoColumns(t *testing.T) {
	rec := NewReconstructor()

	// Left column lists fall term, right column lists spring term.
	fragments := []model.TextFragment{
		makeFragment("CS101", 50, 100, 120, 20),
		makeFragment("CS102", 650, 100, 120, 20),
		makeFragment("MATH201", 50, 140, 140, 20),
		makeFragment("MATH202", 650, 140, 140, 20),
	}
	// Pad both columns so the gutter spans enough of the page height.
	for row := 0; row < 8; row++ {
		y := float64(200 + row*40)
		fragments = append(fragments,
			makeFragment("left", 50, y, 200, 20),
			makeFragment("right", 650, y, 200, 20),
		)
	}

	layout := rec.Reconstruct(fragments, 1000, 800)

	if layout.RowCount() != 20 {
		t.Fatalf("Expected 20 rows, got %d", layout.RowCount())
	}

	// All left-column rows come before any right-column row.
	lastLeft, firstRight := -1, -1
	for i, row := range layout.Rows {
		switch row.Column {
		case 0:
			lastLeft = i
		case 1:
			if firstRight == -1 {
				firstRight = i
			}
		default:
			t.Errorf("Unexpected column %d", row.Column)
		}
	}
	if lastLeft >= firstRight {
		t.Errorf("Left column rows should precede right column rows (last left %d, first right %d)",
			lastLeft, firstRight)
	}

	if layout.Rows[0].Text != "CS101" {
		t.Errorf("First row = %q, want CS101", layout.Rows[0].Text)
	}
	if layout.Rows[10].Text != "CS102" {
		t.Errorf("First right-column row = %q, want CS102", layout.Rows[10].Text)
	}

	// Indexes are sequential across the merged order.
	for i, row := range layout.Rows {
		if row.Index != i {
			t.Errorf("Row %d has index %d", i, row.Index)
		}
	}
}
