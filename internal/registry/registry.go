// Package registry holds the in-memory projection of one floorplan: the
// catalogue of room rectangles and the placeables currently assigned to
// each. It performs no persistence and must stay consistent with what is
// rendered; a Registry is owned by a single plan goroutine and is not safe
// for concurrent use.
package registry

import (
	"slices"

	"github.com/tbuchner/raumplan/internal/geometry"
)

type PlaceableKind string

const (
	KindPerson PlaceableKind = "person"
	KindObject PlaceableKind = "object"
)

// Room is a user-drawn rectangle on the floorplan.
type Room struct {
	// Id is the editor-assigned identity, stable for the lifetime of the
	// loaded plan. ServerId is the collaborator's numeric id and is zero
	// until the first save response is merged back.
	Id       string
	ServerId int
	Guid     string
	Name     string
	Rect     geometry.Rect
}

// Placeable is a draggable canvas entity, a person circle or a generic
// object. Attrs is the opaque attribute bag the collaborator round-trips;
// it carries the collaborator's person id and raum id where present.
type Placeable struct {
	Id        string
	Kind      PlaceableKind
	Attrs     map[string]any
	Rect      geometry.Rect
	RoomId    string // owning room's editor id, empty when floating
	Inventory []map[string]any
}

type entry struct {
	room    *Room
	objects []*Placeable
}

type Registry struct {
	// order is registration order and doubles as the explicit z-order used
	// for containment tie-breaks.
	order      []*entry
	byId       map[string]*entry
	placeables map[string]*Placeable
}

func New() *Registry {
	return &Registry{
		byId:       make(map[string]*entry),
		placeables: make(map[string]*Placeable),
	}
}

// Register adds a newly drawn or newly loaded room. Idempotent on id: a
// second registration updates the stored room in place and keeps its
// object list and z-position.
func (g *Registry) Register(room *Room) {
	if e, ok := g.byId[room.Id]; ok {
		e.room = room
		return
	}
	e := &entry{room: room}
	g.order = append(g.order, e)
	g.byId[room.Id] = e
}

func (g *Registry) Room(id string) *Room {
	if e, ok := g.byId[id]; ok {
		return e.room
	}
	return nil
}

// Rooms returns all rooms in registry order.
func (g *Registry) Rooms() []*Room {
	rooms := make([]*Room, len(g.order))
	for i, e := range g.order {
		rooms[i] = e.room
	}
	return rooms
}

// Remove deletes the room and orphans its objects: they remain on canvas
// but lose room membership.
func (g *Registry) Remove(id string) {
	e, ok := g.byId[id]
	if !ok {
		return
	}
	for _, p := range e.objects {
		p.RoomId = ""
	}
	delete(g.byId, id)
	g.order = slices.DeleteFunc(g.order, func(o *entry) bool { return o == e })
}

func (g *Registry) AddPlaceable(p *Placeable) {
	g.placeables[p.Id] = p
	if p.RoomId != "" {
		if e, ok := g.byId[p.RoomId]; ok {
			e.objects = append(e.objects, p)
		} else {
			p.RoomId = ""
		}
	}
}

func (g *Registry) Placeable(id string) *Placeable {
	return g.placeables[id]
}

func (g *Registry) Placeables() []*Placeable {
	out := make([]*Placeable, 0, len(g.placeables))
	for _, p := range g.placeables {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *Placeable) int {
		if a.Id < b.Id {
			return -1
		}
		if a.Id > b.Id {
			return 1
		}
		return 0
	})
	return out
}

// RemovePlaceable takes the placeable off the canvas entirely, detaching
// it from its room first. Returns the removed placeable, or nil.
func (g *Registry) RemovePlaceable(id string) *Placeable {
	p, ok := g.placeables[id]
	if !ok {
		return nil
	}
	g.detach(p)
	delete(g.placeables, id)
	return p
}

// Reassign moves the placeable into the given room's object list,
// removing it from its current room first (a no-op if it was floating).
// Passing a nil room detaches the placeable and leaves it floating. A
// placeable is a member of at most one room's object list at any time.
func (g *Registry) Reassign(p *Placeable, to *Room) {
	g.detach(p)
	if to == nil {
		return
	}
	e, ok := g.byId[to.Id]
	if !ok {
		return
	}
	e.objects = append(e.objects, p)
	p.RoomId = to.Id
}

func (g *Registry) detach(p *Placeable) {
	if p.RoomId == "" {
		return
	}
	if e, ok := g.byId[p.RoomId]; ok {
		e.objects = slices.DeleteFunc(e.objects, func(o *Placeable) bool { return o == p })
	}
	p.RoomId = ""
}

// ObjectCount is the display counter for a room's assigned placeables.
func (g *Registry) ObjectCount(roomId string) int {
	if e, ok := g.byId[roomId]; ok {
		return len(e.objects)
	}
	return 0
}

func (g *Registry) Objects(roomId string) []*Placeable {
	if e, ok := g.byId[roomId]; ok {
		return slices.Clone(e.objects)
	}
	return nil
}

// RoomAt returns the first room in registry order whose rectangle strictly
// contains the point (open interval on all four sides). With overlapping
// rooms this is a deliberate tie-break on registry order, not the visually
// topmost room. O(n) over the room list.
func (g *Registry) RoomAt(p geometry.Point) *Room {
	for _, e := range g.order {
		if e.room.Rect.Contains(p) {
			return e.room
		}
	}
	return nil
}

// PersonAt returns the first person whose bounding rectangle contains the
// point, edge-inclusive. Used to detect an object dropped onto a person.
func (g *Registry) PersonAt(p geometry.Point) *Placeable {
	for _, pl := range g.Placeables() {
		if pl.Kind != KindPerson {
			continue
		}
		if pl.Rect.ContainsClosed(p) {
			return pl
		}
	}
	return nil
}
