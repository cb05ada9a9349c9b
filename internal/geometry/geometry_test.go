package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRectContains(t *testing.T) {
	r := Rect{X: 100, Y: 100, Width: 200, Height: 120}

	tests := []struct {
		name   string
		point  Point
		open   bool
		closed bool
	}{
		{"center", Point{200, 160}, true, true},
		{"outside left", Point{50, 160}, false, false},
		{"outside below", Point{200, 400}, false, false},
		{"on left edge", Point{100, 160}, false, true},
		{"on top edge", Point{200, 100}, false, true},
		{"on bottom-right corner", Point{300, 220}, false, true},
		{"just inside", Point{100.5, 100.5}, true, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.open, r.Contains(tc.point), "expected open-interval containment to match")
			assert.Equal(t, tc.closed, r.ContainsClosed(tc.point), "expected closed-interval containment to match")
		})
	}
}

func TestRectCenter(t *testing.T) {
	r := Rect{X: 100, Y: 100, Width: 200, Height: 120}
	assert.Equal(t, Point{X: 200, Y: 160}, r.Center(), "expected center to be the rect midpoint")
}

func TestFrameToLocal(t *testing.T) {
	t.Run("offset and scale applied", func(t *testing.T) {
		f := Frame{Origin: Point{X: 10, Y: 20}, Scale: 2}
		got := f.ToLocal(Point{X: 110, Y: 220}, Point{X: 4, Y: 8}, Point{})
		assert.Equal(t, Point{X: 48, Y: 96}, got, "expected origin and grab offsets subtracted before scaling")
	})

	t.Run("invalid frame is a no-op", func(t *testing.T) {
		f := Frame{Scale: 0}
		last := Point{X: 33, Y: 44}
		got := f.ToLocal(Point{X: 500, Y: 500}, Point{}, last)
		assert.Equal(t, last, got, "expected last known position when the frame cannot be measured")
	})

	t.Run("negative scale is invalid", func(t *testing.T) {
		f := Frame{Scale: -1}
		assert.False(t, f.Valid(), "expected negative scale to be rejected")
	})
}

func TestClampPoint(t *testing.T) {
	canvas := Size{Width: 1000, Height: 600}
	size := Size{Width: 50, Height: 50}

	tests := []struct {
		name string
		in   Point
		want Point
	}{
		{"inside untouched", Point{100, 100}, Point{100, 100}},
		{"negative clamped to zero", Point{-30, -5}, Point{0, 0}},
		{"past right edge", Point{990, 100}, Point{950, 100}},
		{"past bottom edge", Point{100, 900}, Point{100, 550}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClampPoint(tc.in, size, canvas), "expected position to stay within canvas minus element size")
		})
	}
}

func TestClampRect(t *testing.T) {
	canvas := Size{Width: 1000, Height: 600}

	r := ClampRect(Rect{X: -10, Y: 20, Width: 100, Height: 100}, canvas)
	assert.Equal(t, float64(0), r.X, "expected negative x clamped to zero")

	r = ClampRect(Rect{X: 950, Y: 20, Width: 100, Height: 100}, canvas)
	assert.Equal(t, float64(50), r.Width, "expected width trimmed at the right canvas edge")

	r = ClampRect(Rect{X: 10, Y: 550, Width: 100, Height: 100}, canvas)
	assert.Equal(t, float64(50), r.Height, "expected height trimmed at the bottom canvas edge")
}
