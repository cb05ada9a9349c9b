package geometry

import "math"

// Point is a position in pixels. Depending on context it is either in
// viewport coordinates (raw pointer position) or floorplan-local
// coordinates (after a Frame transform).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is the extent of a rectangle or canvas in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is an axis-aligned rectangle with a top-left origin.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

func (r Rect) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}

// Contains reports whether p lies strictly inside r, open interval on all
// four sides. A point exactly on an edge is not contained.
func (r Rect) Contains(p Point) bool {
	return p.X > r.X && p.X < r.X+r.Width && p.Y > r.Y && p.Y < r.Y+r.Height
}

// ContainsClosed is the edge-inclusive variant of Contains.
func (r Rect) ContainsClosed(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Round snaps all four fields to whole pixels for the wire boundary.
func (r Rect) Round() Rect {
	return Rect{
		X:      math.Round(r.X),
		Y:      math.Round(r.Y),
		Width:  math.Round(r.Width),
		Height: math.Round(r.Height),
	}
}

// Frame maps raw viewport pointer coordinates into a scaled local space.
// Origin is the reference element's bounding-box origin in viewport
// coordinates, Scale the current zoom factor. A frame measured from an
// element that is not attached to the document has Scale 0 and is invalid.
type Frame struct {
	Origin Point   `json:"origin"`
	Scale  float64 `json:"scale"`
}

func (f Frame) Valid() bool {
	return f.Scale > 0
}

// ToLocal converts a viewport position into frame-local coordinates:
// offset by the frame origin, offset by the grab offset captured at drag
// start, divided by the zoom scale. An invalid frame returns last
// unchanged so a gesture over an unmeasurable reference never produces
// NaN positions.
func (f Frame) ToLocal(p, grab, last Point) Point {
	if !f.Valid() {
		return last
	}
	return Point{
		X: (p.X - f.Origin.X - grab.X) / f.Scale,
		Y: (p.Y - f.Origin.Y - grab.Y) / f.Scale,
	}
}

// ClampPoint keeps the origin of an element of the given size inside the
// canvas: 0 <= x <= canvas.Width - size.Width, likewise for y.
func ClampPoint(p Point, size, canvas Size) Point {
	return Point{
		X: math.Min(math.Max(0, p.X), canvas.Width-size.Width),
		Y: math.Min(math.Max(0, p.Y), canvas.Height-size.Height),
	}
}

// ClampRect keeps r inside the canvas. The origin is clamped to be
// non-negative and the extent trimmed so the rect never crosses the
// right or bottom canvas edge.
func ClampRect(r Rect, canvas Size) Rect {
	r.X = math.Max(0, r.X)
	r.Y = math.Max(0, r.Y)
	if r.X+r.Width > canvas.Width {
		r.Width = canvas.Width - r.X
	}
	if r.Y+r.Height > canvas.Height {
		r.Height = canvas.Height - r.Y
	}
	return r
}
