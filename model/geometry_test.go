package model

import (
	"math"
	"testing"
)

func TestBBox_Edges(t *testing.T) {
	b := NewBBox(10, 20, 100, 30)

	if b.Left() != 10 {
		t.Errorf("Left: expected 10, got %.1f", b.Left())
	}
	if b.Right() != 110 {
		t.Errorf("Right: expected 110, got %.1f", b.Right())
	}
	if b.Top() != 20 {
		t.Errorf("Top: expected 20, got %.1f", b.Top())
	}
	if b.Bottom() != 50 {
		t.Errorf("Bottom: expected 50, got %.1f", b.Bottom())
	}
}

func TestBBox_FromEdges(t *testing.T) {
	b := NewBBoxFromEdges(10, 20, 110, 50)

	if b.X != 10 || b.Y != 20 || b.Width != 100 || b.Height != 30 {
		t.Errorf("unexpected box: %+v", b)
	}

	// Swapped edges normalize
	swapped := NewBBoxFromEdges(110, 50, 10, 20)
	if swapped != b {
		t.Errorf("swapped edges: expected %+v, got %+v", b, swapped)
	}
}

func TestBBox_Center(t *testing.T) {
	b := NewBBox(0, 0, 100, 50)
	c := b.Center()

	if c.X != 50 || c.Y != 25 {
		t.Errorf("Center: expected (50, 25), got (%.1f, %.1f)", c.X, c.Y)
	}
}

func TestBBox_Contains(t *testing.T) {
	b := NewBBox(10, 10, 100, 100)

	if !b.Contains(Point{X: 50, Y: 50}) {
		t.Error("Point (50, 50) should be inside")
	}
	if b.Contains(Point{X: 5, Y: 50}) {
		t.Error("Point (5, 50) should be outside")
	}
	if !b.Contains(Point{X: 10, Y: 10}) {
		t.Error("Edge point should be inside")
	}
}

func TestBBox_Intersects(t *testing.T) {
	a := NewBBox(0, 0, 100, 100)
	b := NewBBox(50, 50, 100, 100)
	c := NewBBox(200, 200, 10, 10)

	if !a.Intersects(b) {
		t.Error("Overlapping boxes should intersect")
	}
	if a.Intersects(c) {
		t.Error("Distant boxes should not intersect")
	}
}

func TestBBox_Intersection(t *testing.T) {
	a := NewBBox(0, 0, 100, 100)
	b := NewBBox(50, 50, 100, 100)

	inter := a.Intersection(b)
	if inter.X != 50 || inter.Y != 50 || inter.Width != 50 || inter.Height != 50 {
		t.Errorf("unexpected intersection: %+v", inter)
	}

	c := NewBBox(500, 500, 10, 10)
	empty := a.Intersection(c)
	if !empty.IsEmpty() {
		t.Errorf("disjoint intersection should be empty, got %+v", empty)
	}
}

func TestBBox_Union(t *testing.T) {
	a := NewBBox(0, 0, 50, 50)
	b := NewBBox(100, 100, 50, 50)

	u := a.Union(b)
	if u.X != 0 || u.Y != 0 || u.Width != 150 || u.Height != 150 {
		t.Errorf("unexpected union: %+v", u)
	}
}

func TestBBox_OverlapRatio(t *testing.T) {
	a := NewBBox(0, 0, 100, 100)
	b := NewBBox(0, 0, 50, 100) // fully inside a

	ratio := a.OverlapRatio(b)
	if math.Abs(ratio-1.0) > 0.001 {
		t.Errorf("contained box: expected ratio 1.0, got %.3f", ratio)
	}

	c := NewBBox(200, 0, 50, 100)
	if a.OverlapRatio(c) != 0 {
		t.Error("disjoint boxes should have zero overlap ratio")
	}
}

func TestBBox_VerticalOverlap(t *testing.T) {
	a := NewBBox(0, 100, 50, 20) // y 100-120
	b := NewBBox(80, 105, 50, 20) // y 105-125, overlaps 15 of 20

	overlap := a.VerticalOverlap(b)
	if math.Abs(overlap-0.75) > 0.001 {
		t.Errorf("expected vertical overlap 0.75, got %.3f", overlap)
	}

	// Same band, different heights: overlap relative to the smaller box
	c := NewBBox(0, 100, 50, 10) // y 100-110, fully inside a's range
	if math.Abs(a.VerticalOverlap(c)-1.0) > 0.001 {
		t.Errorf("expected vertical overlap 1.0, got %.3f", a.VerticalOverlap(c))
	}

	// Disjoint bands
	d := NewBBox(0, 200, 50, 20)
	if a.VerticalOverlap(d) != 0 {
		t.Error("disjoint Y ranges should have zero vertical overlap")
	}
}

func TestBBox_HorizontalGap(t *testing.T) {
	a := NewBBox(0, 0, 50, 20)
	b := NewBBox(60, 0, 50, 20)

	if gap := a.HorizontalGap(b); gap != 10 {
		t.Errorf("expected gap 10, got %.1f", gap)
	}
	if gap := b.HorizontalGap(a); gap != 10 {
		t.Errorf("gap should be symmetric, got %.1f", gap)
	}

	c := NewBBox(40, 0, 50, 20) // overlaps a
	if gap := a.HorizontalGap(c); gap != 0 {
		t.Errorf("overlapping boxes should have zero gap, got %.1f", gap)
	}
}

func TestBBox_ClampTo(t *testing.T) {
	page := NewBBox(0, 0, 1000, 800)

	b := NewBBox(-10, -5, 100, 50)
	clamped := b.ClampTo(page)
	if clamped.X != 0 || clamped.Y != 0 {
		t.Errorf("expected clamp to origin, got %+v", clamped)
	}
	if clamped.Right() != 90 || clamped.Bottom() != 45 {
		t.Errorf("clamp should preserve in-bounds edges, got %+v", clamped)
	}

	inside := NewBBox(100, 100, 50, 50)
	if inside.ClampTo(page) != inside {
		t.Error("box inside bounds should be unchanged")
	}
}

func TestBBox_Expand(t *testing.T) {
	b := NewBBox(10, 10, 20, 20).Expand(5)
	if b.X != 5 || b.Y != 5 || b.Width != 30 || b.Height != 30 {
		t.Errorf("unexpected expanded box: %+v", b)
	}
}

func TestBBox_Validity(t *testing.T) {
	if !(BBox{}).IsEmpty() {
		t.Error("zero box should be empty")
	}
	if (BBox{}).IsValid() {
		t.Error("zero box should not be valid")
	}
	if !NewBBox(0, 0, 1, 1).IsValid() {
		t.Error("unit box should be valid")
	}
}

func TestPoint_Distance(t *testing.T) {
	p := Point{X: 0, Y: 0}
	q := Point{X: 3, Y: 4}

	if d := p.Distance(q); math.Abs(d-5) > 0.001 {
		t.Errorf("expected distance 5, got %.3f", d)
	}
}
