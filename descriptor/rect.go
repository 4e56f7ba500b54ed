package descriptor

import "math"

// Rect is an axis-aligned bounding rectangle in page coordinates.
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Center returns the rectangle's center point.
func (r Rect) Center() (x, y float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Overlaps reports whether two rectangles overlap or touch at an edge.
func (r Rect) Overlaps(o Rect) bool {
	return r.X <= o.X+o.Width && o.X <= r.X+r.Width &&
		r.Y <= o.Y+o.Height && o.Y <= r.Y+r.Height
}

// Gap returns the box-gap distance between two rectangles: 0 when they
// overlap or touch, otherwise the Euclidean distance between their nearest
// edges.
func (r Rect) Gap(o Rect) float64 {
	if r.Overlaps(o) {
		return 0
	}
	var dx, dy float64
	if o.X > r.X+r.Width {
		dx = o.X - (r.X + r.Width)
	} else if r.X > o.X+o.Width {
		dx = r.X - (o.X + o.Width)
	}
	if o.Y > r.Y+r.Height {
		dy = o.Y - (r.Y + r.Height)
	} else if r.Y > o.Y+o.Height {
		dy = r.Y - (o.Y + o.Height)
	}
	return math.Hypot(dx, dy)
}

// SizeWithin reports whether o's width and height are both within the given
// relative tolerance of r's (e.g. 0.3 for ±30%).
func (r Rect) SizeWithin(o Rect, tolerance float64) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return relDiff(r.Width, o.Width) <= tolerance && relDiff(r.Height, o.Height) <= tolerance
}

func relDiff(a, b float64) float64 {
	if a == 0 {
		if b == 0 {
			return 0
		}
		return 1
	}
	return math.Abs(a-b) / a
}
