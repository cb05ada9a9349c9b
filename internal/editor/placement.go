package editor

import (
	"context"

	"github.com/tbuchner/raumplan/internal/backend"
	"github.com/tbuchner/raumplan/internal/geometry"
	"github.com/tbuchner/raumplan/internal/registry"
	"github.com/tbuchner/raumplan/internal/stats"
	"github.com/tbuchner/raumplan/internal/types"
)

// commitPlaceableDrop resolves a finished placeable drag: absorption into
// a person first, then room membership by the dropped center. Only person
// membership is persisted; objects move in memory only.
func (p *Plan) commitPlaceableDrop(c *Client, msgId int, s *Session, rect geometry.Rect) {
	pl := p.reg.Placeable(s.targetId)
	if pl == nil {
		c.queueMessage(ErrNotFound(msgId))
		return
	}

	pl.Rect = rect
	p.stats.Incr(stats.DragCommits)

	if pl.Kind != registry.KindPerson {
		if host := p.reg.PersonAt(rect.Center()); host != nil {
			p.absorb(c, msgId, pl, host)
			return
		}
	}

	room := p.reg.RoomAt(rect.Center())
	fromRoom := p.reg.Room(pl.RoomId)
	p.reg.Reassign(pl, room)

	placement := &Placement{PlaceableId: pl.Id}
	if room != nil {
		placement.RoomId = room.Id
	}
	if fromRoom != nil {
		placement.FromRoomId = fromRoom.Id
	}

	p.broadcast(&ServerMessage{
		Notification: &Notification{
			Geometry: &GeometryChange{
				TargetKind: string(pl.Kind),
				TargetId:   pl.Id,
				Rect:       rect,
				Final:      true,
			},
		},
	})
	p.broadcast(&ServerMessage{
		Notification: &Notification{Placement: placement},
	})
	c.queueMessage(NoErrOK(msgId, nil))

	if pl.Kind != registry.KindPerson {
		return
	}
	if fromRoom != nil && (room == nil || room.Id != fromRoom.Id) && fromRoom.ServerId != 0 {
		p.removePersonFromRoom(pl, fromRoom)
	}
	if room != nil {
		p.savePersonToRoom(pl, room)
	}
}

// absorb appends a dropped object's attributes to the hosting person's
// inventory and removes the object from the canvas. Persons are never
// absorbed.
func (p *Plan) absorb(c *Client, msgId int, obj, host *registry.Placeable) {
	host.Inventory = append(host.Inventory, obj.Attrs)
	p.reg.RemovePlaceable(obj.Id)
	p.log.Printf("plan %q: %q absorbed into %q", p.key, obj.Id, host.Id)

	p.broadcast(&ServerMessage{
		Notification: &Notification{PlaceableRemoved: &PlaceableRemoved{PlaceableId: obj.Id}},
	})
	p.broadcast(&ServerMessage{
		Notification: &Notification{
			Inventory: &InventoryChange{PlaceableId: host.Id, Inventory: host.Inventory},
		},
	})
	c.queueMessage(NoErrOK(msgId, nil))

	p.savePerson(host)
}

// saveRoom dispatches a create-or-update for the room's current state.
// The collaborator's numeric id is merged back when the response is still
// current.
func (p *Plan) saveRoom(room *registry.Room) {
	p.stats.Incr(stats.RoomSaves)

	rd := types.RoomData{
		Id:         room.ServerId,
		Guid:       room.Guid,
		Name:       room.Name,
		X:          int(room.Rect.X),
		Y:          int(room.Rect.Y),
		Width:      int(room.Rect.Width),
		Height:     int(room.Rect.Height),
		BuildingId: p.buildingId,
		Floor:      p.floor,
	}
	roomId := room.Id

	p.es.dispatcher.Dispatch(backend.Command{
		Entity: "room/" + roomId,
		Op:     "save_room",
		Run: func(ctx context.Context) (func(), error) {
			res, err := p.es.collab.SaveRoom(ctx, rd)
			if err != nil {
				return nil, err
			}
			return func() {
				p.apply(func() {
					if r := p.reg.Room(roomId); r != nil && res.RoomId != 0 {
						r.ServerId = res.RoomId
					}
				})
			}, nil
		},
		OnError: func(err error) {
			p.apply(func() { p.notifyPersistError("save_room", roomId, err) })
		},
	})
}

func (p *Plan) deleteRoom(room *registry.Room) {
	if room.Name == "" {
		// never saved under a name the collaborator knows
		return
	}
	name := room.Name
	roomId := room.Id

	p.es.dispatcher.Dispatch(backend.Command{
		Entity: "room/" + roomId,
		Op:     "delete_room",
		Run: func(ctx context.Context) (func(), error) {
			return nil, p.es.collab.DeleteRoom(ctx, name)
		},
		OnError: func(err error) {
			p.apply(func() { p.notifyPersistError("delete_room", roomId, err) })
		},
	})
}

func (p *Plan) savePersonToRoom(person *registry.Placeable, room *registry.Room) {
	if room.ServerId == 0 {
		// the room has no collaborator id yet, the assignment stays local
		p.log.Printf("plan %q: room %q not yet persisted, skipping person save", p.key, room.Id)
		return
	}

	params := backend.SavePersonParams{
		RoomId: room.ServerId,
		Person: person.Attrs,
		X:      int(person.Rect.X),
		Y:      int(person.Rect.Y),
	}
	personId := person.Id

	p.es.dispatcher.Dispatch(backend.Command{
		Entity: "person/" + personId,
		Op:     "save_person_to_raum",
		Run: func(ctx context.Context) (func(), error) {
			raumId, err := p.es.collab.SavePersonToRoom(ctx, params)
			if err != nil {
				return nil, err
			}
			return func() {
				p.apply(func() {
					if pl := p.reg.Placeable(personId); pl != nil {
						pl.Attrs["raum_id"] = raumId
					}
				})
			}, nil
		},
		OnError: func(err error) {
			p.apply(func() { p.notifyPersistError("save_person_to_raum", personId, err) })
		},
	})
}

func (p *Plan) removePersonFromRoom(person *registry.Placeable, fromRoom *registry.Room) {
	attrId := attrInt(person.Attrs, "id")
	if attrId == 0 {
		p.log.Printf("plan %q: person %q has no collaborator id, skipping detach", p.key, person.Id)
		return
	}
	raumId := fromRoom.ServerId
	personId := person.Id

	p.es.dispatcher.Dispatch(backend.Command{
		Entity: "person/" + personId,
		Op:     "delete_person_from_raum",
		Run: func(ctx context.Context) (func(), error) {
			return nil, p.es.collab.RemovePersonFromRoom(ctx, attrId, raumId)
		},
		OnError: func(err error) {
			p.apply(func() { p.notifyPersistError("delete_person_from_raum", personId, err) })
		},
	})
}

// savePerson persists the person record itself, inventory included.
func (p *Plan) savePerson(person *registry.Placeable) {
	record := make(map[string]any, len(person.Attrs)+1)
	for k, v := range person.Attrs {
		record[k] = v
	}
	record["inventory"] = person.Inventory
	personId := person.Id

	p.es.dispatcher.Dispatch(backend.Command{
		Entity: "person/" + personId,
		Op:     "add_or_update_person",
		Run: func(ctx context.Context) (func(), error) {
			return nil, p.es.collab.SavePerson(ctx, record)
		},
		OnError: func(err error) {
			p.apply(func() { p.notifyPersistError("add_or_update_person", personId, err) })
		},
	})
}

// attrInt reads a numeric attribute from a collaborator attribute bag.
// JSON numbers decode as float64.
func attrInt(attrs map[string]any, key string) int {
	switch v := attrs[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
