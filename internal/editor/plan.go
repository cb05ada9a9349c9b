package editor

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tbuchner/raumplan/internal/geometry"
	"github.com/tbuchner/raumplan/internal/ids"
	"github.com/tbuchner/raumplan/internal/registry"
	"github.com/tbuchner/raumplan/internal/stats"
	"github.com/tbuchner/raumplan/internal/types"
)

const (
	targetRoom   = "room"
	targetPerson = "person"
	targetObject = "object"

	idlePlanTimeout  = 5 * time.Minute
	bootstrapTimeout = 30 * time.Second
)

type exitReq struct {
	done chan bool
}

// Plan is the actor for one building+floor. It owns the registry and the
// per-client sessions; all mutations happen on its goroutine, including
// collaborator responses, which the dispatcher posts to resultChan.
type Plan struct {
	key        string
	buildingId int
	floor      int
	es         *EditorServer
	reg        *registry.Registry
	sessions   map[*Client]*Session
	clients    map[*Client]struct{}
	canvas     CanvasConfig

	joinChan      chan *ClientMessage
	leaveChan     chan *ClientMessage
	clientMsgChan chan *ClientMessage
	resultChan    chan func()

	log   *log.Logger
	stats stats.StatsProvider
	// killTimer unloads the plan when the last client leaves
	killTimer *time.Timer
	exit      chan exitReq
	done      chan struct{}
}

func planKey(buildingId, floor int) string {
	return fmt.Sprintf("%d:%d", buildingId, floor)
}

func (p *Plan) start() {
	defer close(p.done)

	p.log.Printf("starting plan %q", p.key)
	p.killTimer = time.NewTimer(idlePlanTimeout)
	p.killTimer.Stop()

	p.bootstrap()

	for {
		select {
		case join := <-p.joinChan:
			p.handleJoin(join)
		case leaveMsg := <-p.leaveChan:
			p.handleLeave(leaveMsg)
		case msg := <-p.clientMsgChan:
			p.dispatchMessage(msg)
		case apply := <-p.resultChan:
			apply()
		case <-p.killTimer.C:
			p.handlePlanTimeout()
		case e := <-p.exit:
			p.handlePlanExit(e)
			return
		}
	}
}

// bootstrap loads the floorplan and person placements from the
// collaborator. Failures leave the plan empty but usable; rooms drawn
// before the collaborator recovers persist normally.
func (p *Plan) bootstrap() {
	ctx, cancel := context.WithTimeout(context.Background(), bootstrapTimeout)
	defer cancel()

	rooms, err := p.es.collab.LoadFloorplan(ctx, p.buildingId, p.floor)
	if err != nil {
		p.log.Printf("plan %q: load floorplan: %v", p.key, err)
		return
	}
	for _, rd := range rooms {
		p.registerRoomData(rd)
	}

	placements, err := p.es.collab.LoadPersonPlacements(ctx, p.buildingId, p.floor)
	if err != nil {
		p.log.Printf("plan %q: load person placements: %v", p.key, err)
		return
	}
	for _, placement := range placements {
		p.registerPlacement(placement)
	}

	p.log.Printf("plan %q: loaded %d rooms, %d persons", p.key, len(rooms), len(placements))
}

func (p *Plan) registerRoomData(rd types.RoomData) {
	guid := rd.Guid
	if guid == "" {
		guid = ids.NewGuid()
	}

	p.reg.Register(&registry.Room{
		Id:       ids.NewRoomId(),
		ServerId: rd.Id,
		Guid:     guid,
		Name:     rd.Name,
		Rect: geometry.Rect{
			X:      float64(rd.X),
			Y:      float64(rd.Y),
			Width:  float64(rd.Width),
			Height: float64(rd.Height),
		},
	})
}

// registerPlacement places one bootstrapped person: positioned in its
// room when a layout is known, floating centered otherwise.
func (p *Plan) registerPlacement(placement types.PersonPlacement) {
	person := &registry.Placeable{
		Id:    ids.NewPlaceableId(),
		Kind:  registry.KindPerson,
		Attrs: placement.Person,
		Rect: geometry.Rect{
			X:      p.canvas.Width / 2,
			Y:      p.canvas.Height / 2,
			Width:  40,
			Height: 40,
		},
	}

	for _, pr := range placement.Rooms {
		room := p.roomByServerId(pr.Room.Id)
		if room == nil {
			continue
		}
		if pr.Layout != nil {
			person.Rect.X = float64(pr.Layout.X)
			person.Rect.Y = float64(pr.Layout.Y)
		}
		person.RoomId = room.Id
		break
	}

	p.reg.AddPlaceable(person)
}

func (p *Plan) roomByServerId(serverId int) *registry.Room {
	for _, room := range p.reg.Rooms() {
		if room.ServerId == serverId && serverId != 0 {
			return room
		}
	}
	return nil
}

func (p *Plan) handlePlanTimeout() {
	p.log.Printf("plan %q timed out", p.key)
	p.es.unloadChan <- p.key
}

func (p *Plan) handlePlanExit(e exitReq) {
	p.log.Printf("plan %q is exiting", p.key)
	for c := range p.clients {
		c.delPlan()
	}
	if e.done != nil {
		e.done <- true
	}
}

func (p *Plan) handleJoin(join *ClientMessage) {
	p.killTimer.Stop()

	c := join.client
	p.clients[c] = struct{}{}
	c.setPlan(p)

	c.queueMessage(NoErrOK(join.Id, nil))
	c.queueMessage(&ServerMessage{
		BaseMessage:  BaseMessage{Timestamp: Now()},
		Notification: &Notification{Snapshot: p.snapshot()},
	})
}

func (p *Plan) handleLeave(leaveMsg *ClientMessage) {
	c := leaveMsg.client
	if _, ok := p.clients[c]; !ok {
		return
	}

	p.endSession(c)
	delete(p.clients, c)
	c.delPlan()

	if leaveMsg.Id != 0 {
		c.queueMessage(NoErrOK(leaveMsg.Id, nil))
	}

	if len(p.clients) == 0 {
		p.log.Printf("no clients in plan %q, starting kill timer", p.key)
		p.killTimer.Reset(idlePlanTimeout)
	}
}

func (p *Plan) dispatchMessage(msg *ClientMessage) {
	switch {
	case msg.PointerDown != nil:
		p.handlePointerDown(msg)
	case msg.PointerMove != nil:
		p.handlePointerMove(msg)
	case msg.PointerUp != nil:
		p.handlePointerUp(msg)
	case msg.Cancel != nil:
		p.handleCancel(msg)
	case msg.RenameRoom != nil:
		p.handleRenameRoom(msg)
	case msg.DeleteRoom != nil:
		p.handleDeleteRoom(msg)
	case msg.AddPlaceable != nil:
		p.handleAddPlaceable(msg)
	case msg.RemovePlaceable != nil:
		p.handleRemovePlaceable(msg)
	case msg.DropInventory != nil:
		p.handleDropInventory(msg)
	default:
		msg.client.queueMessage(ErrInvalidMessage(msg.Id))
	}
}

func (p *Plan) snapshot() *Snapshot {
	snap := &Snapshot{
		BuildingId: p.buildingId,
		Floor:      p.floor,
		Rooms:      []*RoomState{},
		Placeables: []*PlaceableState{},
	}
	for _, room := range p.reg.Rooms() {
		snap.Rooms = append(snap.Rooms, roomState(room))
	}
	for _, pl := range p.reg.Placeables() {
		snap.Placeables = append(snap.Placeables, placeableState(pl))
	}
	return snap
}

func roomState(room *registry.Room) *RoomState {
	return &RoomState{
		RoomId: room.Id,
		Guid:   room.Guid,
		Name:   room.Name,
		Rect:   room.Rect,
	}
}

func placeableState(pl *registry.Placeable) *PlaceableState {
	return &PlaceableState{
		PlaceableId: pl.Id,
		Kind:        string(pl.Kind),
		Attrs:       pl.Attrs,
		Rect:        pl.Rect,
		RoomId:      pl.RoomId,
		Inventory:   pl.Inventory,
	}
}

func (p *Plan) handlePointerDown(msg *ClientMessage) {
	c := msg.client
	pd := msg.PointerDown

	// one gesture per client, a second press is ignored until the first
	// resolves
	if _, active := p.sessions[c]; active {
		c.queueMessage(NoErrAccepted(msg.Id))
		return
	}
	// only the primary button starts a gesture
	if pd.Button != 0 {
		c.queueMessage(NoErrAccepted(msg.Id))
		return
	}
	if !pd.Frame.Valid() {
		c.queueMessage(ErrInvalidMessage(msg.Id))
		return
	}

	var s *Session
	switch pd.TargetKind {
	case targetRoom:
		room := p.reg.Room(pd.TargetId)
		if room == nil {
			c.queueMessage(ErrNotFound(msg.Id))
			return
		}
		local := pd.Frame.ToLocal(pd.Position, geometry.Point{}, geometry.Point{})
		if edge := DetectEdge(local, room.Rect, p.canvas.EdgeMargin); edge != 0 {
			s = newResizeSession(room.Id, room.Rect, edge, pd)
		} else {
			s = newDragSession(targetRoom, room.Id, room.Rect, pd)
		}
	case targetPerson, targetObject:
		pl := p.reg.Placeable(pd.TargetId)
		if pl == nil {
			c.queueMessage(ErrNotFound(msg.Id))
			return
		}
		s = newDragSession(string(pl.Kind), pl.Id, pl.Rect, pd)
	case "":
		s = newDrawSession(pd)
	default:
		c.queueMessage(ErrInvalidMessage(msg.Id))
		return
	}

	p.sessions[c] = s
	p.stats.Incr(stats.ActiveSessions)
	p.log.Printf("plan %q: %s session on %s %q", p.key, s.kind, s.targetKind, s.targetId)
	c.queueMessage(NoErrOK(msg.Id, map[string]any{"mode": s.kind.String(), "edge": s.edge.String()}))
}

func (p *Plan) handlePointerMove(msg *ClientMessage) {
	s, ok := p.sessions[msg.client]
	if !ok {
		return
	}

	rect := s.pointerMove(msg.PointerMove.Position, p.canvas)
	p.broadcast(&ServerMessage{
		Notification: &Notification{
			Geometry: &GeometryChange{
				TargetKind: s.targetKind,
				TargetId:   s.targetId,
				Rect:       rect.Round(),
			},
		},
	})
}

func (p *Plan) handlePointerUp(msg *ClientMessage) {
	c := msg.client
	s, ok := p.sessions[c]
	if !ok {
		c.queueMessage(NoErrAccepted(msg.Id))
		return
	}
	p.endSession(c)

	rect, commit := s.finish(p.canvas.DrawThreshold)
	if !commit {
		// an accidental click, nothing was drawn
		c.queueMessage(NoErrOK(msg.Id, nil))
		return
	}
	rect = rect.Round()

	switch s.kind {
	case sessionDrawing:
		p.commitDraw(c, msg.Id, rect)
		return
	case sessionDragging, sessionResizing:
		if s.targetKind == targetRoom {
			p.commitRoomGeometry(c, msg.Id, s, rect)
			return
		}
		p.commitPlaceableDrop(c, msg.Id, s, rect)
	}
}

// commitDraw materializes a drawn rect as a new room.
func (p *Plan) commitDraw(c *Client, msgId int, rect geometry.Rect) {
	room := &registry.Room{
		Id:   ids.NewRoomId(),
		Guid: ids.NewGuid(),
		Rect: rect,
	}
	room.Name = room.Id
	p.reg.Register(room)
	p.stats.Incr(stats.DragCommits)

	p.broadcast(&ServerMessage{
		Notification: &Notification{RoomCreated: roomState(room)},
	})
	c.queueMessage(NoErrOK(msgId, map[string]any{"room_id": room.Id}))

	p.saveRoom(room)
}

func (p *Plan) commitRoomGeometry(c *Client, msgId int, s *Session, rect geometry.Rect) {
	room := p.reg.Room(s.targetId)
	if room == nil {
		c.queueMessage(ErrNotFound(msgId))
		return
	}
	room.Rect = rect
	p.stats.Incr(stats.DragCommits)

	p.broadcast(&ServerMessage{
		Notification: &Notification{
			Geometry: &GeometryChange{
				TargetKind: targetRoom,
				TargetId:   room.Id,
				Rect:       rect,
				Final:      true,
			},
		},
	})
	c.queueMessage(NoErrOK(msgId, nil))

	p.saveRoom(room)
}

func (p *Plan) handleCancel(msg *ClientMessage) {
	c := msg.client
	s, ok := p.sessions[c]
	if !ok {
		c.queueMessage(NoErrAccepted(msg.Id))
		return
	}
	p.endSession(c)

	rect := s.cancel()
	if s.kind != sessionDrawing && s.targetId != "" {
		p.restoreRect(s.targetKind, s.targetId, rect)
		p.broadcast(&ServerMessage{
			Notification: &Notification{
				Geometry: &GeometryChange{
					TargetKind: s.targetKind,
					TargetId:   s.targetId,
					Rect:       rect,
					Final:      true,
				},
			},
		})
	}
	c.queueMessage(NoErrOK(msg.Id, nil))
}

func (p *Plan) restoreRect(kind, id string, rect geometry.Rect) {
	if kind == targetRoom {
		if room := p.reg.Room(id); room != nil {
			room.Rect = rect
		}
		return
	}
	if pl := p.reg.Placeable(id); pl != nil {
		pl.Rect = rect
	}
}

func (p *Plan) handleRenameRoom(msg *ClientMessage) {
	room := p.reg.Room(msg.RenameRoom.RoomId)
	if room == nil {
		msg.client.queueMessage(ErrNotFound(msg.Id))
		return
	}

	room.Name = msg.RenameRoom.Name
	p.broadcast(&ServerMessage{
		Notification: &Notification{RoomRenamed: roomState(room)},
	})
	msg.client.queueMessage(NoErrOK(msg.Id, nil))

	p.saveRoom(room)
}

func (p *Plan) handleDeleteRoom(msg *ClientMessage) {
	room := p.reg.Room(msg.DeleteRoom.RoomId)
	if room == nil {
		msg.client.queueMessage(ErrNotFound(msg.Id))
		return
	}

	p.reg.Remove(room.Id)
	p.broadcast(&ServerMessage{
		Notification: &Notification{RoomDeleted: &RoomDeleted{RoomId: room.Id}},
	})
	msg.client.queueMessage(NoErrOK(msg.Id, nil))

	p.deleteRoom(room)
}

func (p *Plan) handleAddPlaceable(msg *ClientMessage) {
	add := msg.AddPlaceable
	kind := registry.PlaceableKind(add.Kind)
	if kind != registry.KindPerson && kind != registry.KindObject {
		msg.client.queueMessage(ErrInvalidMessage(msg.Id))
		return
	}

	// pull the origin back onto the canvas first; trimming alone would
	// leave a rect placed past the far edge with a negative extent
	rect := add.Rect.Round()
	origin := geometry.ClampPoint(geometry.Point{X: rect.X, Y: rect.Y}, rect.Size(), p.canvas.size())
	rect.X, rect.Y = origin.X, origin.Y

	pl := &registry.Placeable{
		Id:    ids.NewPlaceableId(),
		Kind:  kind,
		Attrs: add.Attrs,
		Rect:  geometry.ClampRect(rect, p.canvas.size()),
	}
	p.reg.AddPlaceable(pl)

	p.broadcast(&ServerMessage{
		Notification: &Notification{PlaceableAdded: placeableState(pl)},
	})
	msg.client.queueMessage(NoErrOK(msg.Id, map[string]any{"placeable_id": pl.Id}))
}

// handleRemovePlaceable takes a placeable off the canvas. A person that
// was assigned to a persisted room is also detached on the collaborator.
func (p *Plan) handleRemovePlaceable(msg *ClientMessage) {
	pl := p.reg.Placeable(msg.RemovePlaceable.PlaceableId)
	if pl == nil {
		msg.client.queueMessage(ErrNotFound(msg.Id))
		return
	}

	fromRoom := p.reg.Room(pl.RoomId)
	p.reg.RemovePlaceable(pl.Id)

	p.broadcast(&ServerMessage{
		Notification: &Notification{PlaceableRemoved: &PlaceableRemoved{PlaceableId: pl.Id}},
	})
	msg.client.queueMessage(NoErrOK(msg.Id, nil))

	if pl.Kind == registry.KindPerson && fromRoom != nil && fromRoom.ServerId != 0 {
		p.removePersonFromRoom(pl, fromRoom)
	}
}

// handleDropInventory removes one inventory item from a person and puts
// it back on the canvas, centered.
func (p *Plan) handleDropInventory(msg *ClientMessage) {
	drop := msg.DropInventory
	person := p.reg.Placeable(drop.PlaceableId)
	if person == nil || person.Kind != registry.KindPerson {
		msg.client.queueMessage(ErrNotFound(msg.Id))
		return
	}
	if drop.Index < 0 || drop.Index >= len(person.Inventory) {
		msg.client.queueMessage(ErrInvalidMessage(msg.Id))
		return
	}

	attrs := person.Inventory[drop.Index]
	person.Inventory = append(person.Inventory[:drop.Index], person.Inventory[drop.Index+1:]...)

	obj := &registry.Placeable{
		Id:    ids.NewPlaceableId(),
		Kind:  registry.KindObject,
		Attrs: attrs,
		Rect: geometry.Rect{
			X:      p.canvas.Width/2 - 20,
			Y:      p.canvas.Height/2 - 20,
			Width:  40,
			Height: 40,
		},
	}
	p.reg.AddPlaceable(obj)

	p.broadcast(&ServerMessage{
		Notification: &Notification{
			Inventory: &InventoryChange{PlaceableId: person.Id, Inventory: person.Inventory},
		},
	})
	p.broadcast(&ServerMessage{
		Notification: &Notification{PlaceableAdded: placeableState(obj)},
	})
	msg.client.queueMessage(NoErrOK(msg.Id, map[string]any{"placeable_id": obj.Id}))

	p.savePerson(person)
}

func (p *Plan) endSession(c *Client) {
	if _, ok := p.sessions[c]; !ok {
		return
	}
	delete(p.sessions, c)
	p.stats.Decr(stats.ActiveSessions)
}

func (p *Plan) broadcast(msg *ServerMessage) {
	msg.Timestamp = Now()

	for client := range p.clients {
		if client == msg.SkipClient {
			continue
		}
		client.queueMessage(msg)
	}
}

// notifyPersistError surfaces a failed collaborator request to all
// clients. Local state is intentionally left as committed.
func (p *Plan) notifyPersistError(op, entity string, err error) {
	p.broadcast(&ServerMessage{
		Notification: &Notification{
			PersistError: &PersistError{Op: op, Entity: entity, Error: err.Error()},
		},
	})
}

// apply posts a dispatcher result onto the plan goroutine. Results for a
// plan that is shutting down are dropped.
func (p *Plan) apply(fn func()) {
	select {
	case p.resultChan <- fn:
	case <-p.done:
	}
}
