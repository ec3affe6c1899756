package model

import "math"

// Point represents a 2D point in page-pixel coordinates
type Point struct {
	X, Y float64
}

// Distance calculates the Euclidean distance to another point
func (p Point) Distance(other Point) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// BBox represents a bounding box (rectangle) in page-pixel coordinates.
// The origin is the top-left corner of the page and Y grows downward,
// matching raster image coordinates.
type BBox struct {
	X      float64 // Left
	Y      float64 // Top (raster coordinate system)
	Width  float64
	Height float64
}

// NewBBox creates a bounding box from an origin and dimensions
func NewBBox(x, y, width, height float64) BBox {
	return BBox{X: x, Y: y, Width: width, Height: height}
}

// NewBBoxFromEdges creates a bounding box from edge coordinates
// (x0,y0 top-left, x1,y1 bottom-right). Swapped edges are normalized.
func NewBBoxFromEdges(x0, y0, x1, y1 float64) BBox {
	x := math.Min(x0, x1)
	y := math.Min(y0, y1)
	return BBox{X: x, Y: y, Width: math.Abs(x1 - x0), Height: math.Abs(y1 - y0)}
}

// Left returns the left edge X coordinate
func (b BBox) Left() float64 {
	return b.X
}

// Right returns the right edge X coordinate
func (b BBox) Right() float64 {
	return b.X + b.Width
}

// Top returns the top edge Y coordinate
func (b BBox) Top() float64 {
	return b.Y
}

// Bottom returns the bottom edge Y coordinate
func (b BBox) Bottom() float64 {
	return b.Y + b.Height
}

// Center returns the center point
func (b BBox) Center() Point {
	return Point{
		X: b.X + b.Width/2,
		Y: b.Y + b.Height/2,
	}
}

// CenterX returns the X coordinate of the center
func (b BBox) CenterX() float64 {
	return b.X + b.Width/2
}

// CenterY returns the Y coordinate of the center
func (b BBox) CenterY() float64 {
	return b.Y + b.Height/2
}

// Contains checks if a point is inside the bounding box
func (b BBox) Contains(p Point) bool {
	return p.X >= b.Left() && p.X <= b.Right() &&
		p.Y >= b.Top() && p.Y <= b.Bottom()
}

// Intersects checks if two bounding boxes intersect
func (b BBox) Intersects(other BBox) bool {
	return !(b.Right() < other.Left() ||
		b.Left() > other.Right() ||
		b.Bottom() < other.Top() ||
		b.Top() > other.Bottom())
}

// Intersection returns the intersection of two bounding boxes
func (b BBox) Intersection(other BBox) BBox {
	if !b.Intersects(other) {
		return BBox{}
	}

	x := math.Max(b.Left(), other.Left())
	y := math.Max(b.Top(), other.Top())
	right := math.Min(b.Right(), other.Right())
	bottom := math.Min(b.Bottom(), other.Bottom())

	return BBox{
		X:      x,
		Y:      y,
		Width:  right - x,
		Height: bottom - y,
	}
}

// Union returns the union of two bounding boxes
func (b BBox) Union(other BBox) BBox {
	x := math.Min(b.Left(), other.Left())
	y := math.Min(b.Top(), other.Top())
	right := math.Max(b.Right(), other.Right())
	bottom := math.Max(b.Bottom(), other.Bottom())

	return BBox{
		X:      x,
		Y:      y,
		Width:  right - x,
		Height: bottom - y,
	}
}

// Area returns the area of the bounding box
func (b BBox) Area() float64 {
	return b.Width * b.Height
}

// Expand expands the bounding box by a margin on all sides
func (b BBox) Expand(margin float64) BBox {
	return BBox{
		X:      b.X - margin,
		Y:      b.Y - margin,
		Width:  b.Width + 2*margin,
		Height: b.Height + 2*margin,
	}
}

// OverlapRatio calculates the overlap ratio with another box
// Returns value between 0 and 1
func (b BBox) OverlapRatio(other BBox) float64 {
	if !b.Intersects(other) {
		return 0
	}

	intersection := b.Intersection(other)
	minArea := math.Min(b.Area(), other.Area())

	if minArea == 0 {
		return 0
	}

	return intersection.Area() / minArea
}

// VerticalOverlap calculates how much the Y ranges of two boxes overlap,
// as a fraction of the smaller height. Returns a value between 0 and 1.
// Boxes on the same text line overlap near 1 even when their heights differ.
func (b BBox) VerticalOverlap(other BBox) float64 {
	top := math.Max(b.Top(), other.Top())
	bottom := math.Min(b.Bottom(), other.Bottom())
	if bottom <= top {
		return 0
	}

	minHeight := math.Min(b.Height, other.Height)
	if minHeight <= 0 {
		return 0
	}

	return (bottom - top) / minHeight
}

// HorizontalGap returns the horizontal distance between two boxes.
// Overlapping or touching boxes return 0.
func (b BBox) HorizontalGap(other BBox) float64 {
	if b.Right() < other.Left() {
		return other.Left() - b.Right()
	}
	if other.Right() < b.Left() {
		return b.Left() - other.Right()
	}
	return 0
}

// ClampTo returns the box clipped to the given bounds. A box entirely
// outside the bounds collapses to a zero-size box on the nearest edge.
func (b BBox) ClampTo(bounds BBox) BBox {
	x0 := clamp(b.Left(), bounds.Left(), bounds.Right())
	y0 := clamp(b.Top(), bounds.Top(), bounds.Bottom())
	x1 := clamp(b.Right(), bounds.Left(), bounds.Right())
	y1 := clamp(b.Bottom(), bounds.Top(), bounds.Bottom())
	return BBox{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// IsEmpty returns true if the bounding box has zero area
func (b BBox) IsEmpty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// IsValid returns true if the bounding box has positive dimensions
func (b BBox) IsValid() bool {
	return b.Width > 0 && b.Height > 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
