package editor

import (
	"math"

	"github.com/tbuchner/raumplan/internal/geometry"
)

// CanvasConfig are the editing parameters of a plan's canvas.
type CanvasConfig struct {
	Width         float64
	Height        float64
	MinRoomSize   float64
	EdgeMargin    float64
	DrawThreshold float64
}

func (c CanvasConfig) withDefaults() CanvasConfig {
	if c.Width <= 0 {
		c.Width = 1200
	}
	if c.Height <= 0 {
		c.Height = 800
	}
	if c.MinRoomSize <= 0 {
		c.MinRoomSize = 20
	}
	if c.EdgeMargin <= 0 {
		c.EdgeMargin = 8
	}
	if c.DrawThreshold <= 0 {
		c.DrawThreshold = 5
	}
	return c
}

func (c CanvasConfig) size() geometry.Size {
	return geometry.Size{Width: c.Width, Height: c.Height}
}

// Edge is the bitmask of rectangle edges under the pointer at gesture
// start. A corner probe yields two bits.
type Edge uint8

const (
	EdgeTop Edge = 1 << iota
	EdgeBottom
	EdgeLeft
	EdgeRight
)

func (e Edge) String() string {
	var s string
	if e&EdgeTop != 0 {
		s += "t"
	}
	if e&EdgeBottom != 0 {
		s += "b"
	}
	if e&EdgeLeft != 0 {
		s += "l"
	}
	if e&EdgeRight != 0 {
		s += "r"
	}
	return s
}

// DetectEdge probes which edges of r lie within margin of p in local
// coordinates. Zero means the pointer is in the interior and the gesture
// is a move, not a resize.
func DetectEdge(p geometry.Point, r geometry.Rect, margin float64) Edge {
	var e Edge
	if math.Abs(p.Y-r.Y) <= margin {
		e |= EdgeTop
	}
	if math.Abs(p.Y-(r.Y+r.Height)) <= margin {
		e |= EdgeBottom
	}
	if math.Abs(p.X-r.X) <= margin {
		e |= EdgeLeft
	}
	if math.Abs(p.X-(r.X+r.Width)) <= margin {
		e |= EdgeRight
	}
	return e
}

type sessionKind int

const (
	sessionDragging sessionKind = iota + 1
	sessionResizing
	sessionDrawing
)

func (k sessionKind) String() string {
	switch k {
	case sessionDragging:
		return "dragging"
	case sessionResizing:
		return "resizing"
	case sessionDrawing:
		return "drawing"
	}
	return "idle"
}

// Session is one in-flight gesture. A client has at most one; while it is
// active further pointer-downs are ignored. All points and rects are
// frame-local.
type Session struct {
	kind       sessionKind
	targetKind string
	targetId   string
	edge       Edge
	frame      geometry.Frame
	grab       geometry.Point
	// start is the local pointer position at gesture start, orig the
	// target's rect at that moment. cancel restores orig.
	start geometry.Point
	orig  geometry.Rect
	cur   geometry.Rect
	last  geometry.Point
}

func newDragSession(kind, id string, rect geometry.Rect, pd *PointerDown) *Session {
	return &Session{
		kind:       sessionDragging,
		targetKind: kind,
		targetId:   id,
		frame:      pd.Frame,
		grab:       pd.Grab,
		start:      pd.Frame.ToLocal(pd.Position, geometry.Point{}, geometry.Point{}),
		orig:       rect,
		cur:        rect,
		last:       geometry.Point{X: rect.X, Y: rect.Y},
	}
}

func newResizeSession(id string, rect geometry.Rect, edge Edge, pd *PointerDown) *Session {
	s := newDragSession(targetRoom, id, rect, pd)
	s.kind = sessionResizing
	s.edge = edge
	return s
}

func newDrawSession(pd *PointerDown) *Session {
	local := pd.Frame.ToLocal(pd.Position, geometry.Point{}, geometry.Point{})
	return &Session{
		kind:       sessionDrawing,
		targetKind: targetRoom,
		frame:      pd.Frame,
		start:      local,
		orig:       geometry.Rect{X: local.X, Y: local.Y},
		cur:        geometry.Rect{X: local.X, Y: local.Y},
		last:       local,
	}
}

// pointerMove advances the gesture to the given viewport position and
// returns the new rect. The rect is also retained as the session's
// current state.
func (s *Session) pointerMove(p geometry.Point, cfg CanvasConfig) geometry.Rect {
	canvas := cfg.size()
	switch s.kind {
	case sessionDragging:
		local := s.frame.ToLocal(p, s.grab, s.last)
		s.last = local
		clamped := geometry.ClampPoint(local, s.cur.Size(), canvas)
		s.cur.X = clamped.X
		s.cur.Y = clamped.Y
	case sessionResizing:
		local := s.frame.ToLocal(p, geometry.Point{}, s.last)
		s.last = local
		s.cur = geometry.ClampRect(s.resize(local, cfg.MinRoomSize), canvas)
	case sessionDrawing:
		local := s.frame.ToLocal(p, geometry.Point{}, s.last)
		s.last = local
		s.cur.Width = math.Max(1, local.X-s.orig.X)
		s.cur.Height = math.Max(1, local.Y-s.orig.Y)
		s.cur = geometry.ClampRect(s.cur, canvas)
	}
	return s.cur
}

// resize applies the pointer delta since gesture start to the edges
// captured at pointer-down. Width and height floor at minSize; dragging
// the left or top edge past the floor shifts the origin so the opposite
// edge stays fixed.
func (s *Session) resize(local geometry.Point, minSize float64) geometry.Rect {
	dx := local.X - s.start.X
	dy := local.Y - s.start.Y

	r := s.orig
	if s.edge&EdgeRight != 0 {
		r.Width = math.Max(minSize, s.orig.Width+dx)
	}
	if s.edge&EdgeBottom != 0 {
		r.Height = math.Max(minSize, s.orig.Height+dy)
	}
	if s.edge&EdgeLeft != 0 {
		r.Width = math.Max(minSize, s.orig.Width-dx)
		r.X = s.orig.X + s.orig.Width - r.Width
	}
	if s.edge&EdgeTop != 0 {
		r.Height = math.Max(minSize, s.orig.Height-dy)
		r.Y = s.orig.Y + s.orig.Height - r.Height
	}
	return r
}

// finish ends the gesture and reports whether it produced a committable
// rect. A draw commits only when both extents exceed the threshold;
// accidental clicks and degenerate slivers are discarded.
func (s *Session) finish(threshold float64) (geometry.Rect, bool) {
	if s.kind == sessionDrawing && (s.cur.Width <= threshold || s.cur.Height <= threshold) {
		return s.cur, false
	}
	return s.cur, true
}

// cancel discards the gesture and returns the rect to restore.
func (s *Session) cancel() geometry.Rect {
	return s.orig
}
