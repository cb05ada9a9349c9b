// Package backend serializes floorplan and placement changes to the
// collaborator HTTP endpoints. The collaborator owns persistence; this
// package only dispatches mutations and merges server-assigned ids back
// into in-memory state.
package backend

import (
	"context"

	"github.com/tbuchner/raumplan/internal/types"
)

// SaveRoomResult carries the collaborator's echo of a saved room. RoomId
// is the server-assigned id, relevant on first save.
type SaveRoomResult struct {
	RoomId   int
	RoomName string
}

// SavePersonParams is the person-to-room assignment payload. RoomId is
// the collaborator's numeric room id, X/Y the floorplan-local position.
type SavePersonParams struct {
	RoomId int            `json:"raum"`
	Person map[string]any `json:"person"`
	X      int            `json:"x"`
	Y      int            `json:"y"`
}

type Collaborator interface {
	LoadFloorplan(ctx context.Context, buildingId, floor int) ([]types.RoomData, error)
	SaveRoom(ctx context.Context, room types.RoomData) (SaveRoomResult, error)
	DeleteRoom(ctx context.Context, name string) error
	SavePersonToRoom(ctx context.Context, params SavePersonParams) (int, error)
	RemovePersonFromRoom(ctx context.Context, personId, raumId int) error
	SavePerson(ctx context.Context, person map[string]any) error
	LoadPersonPlacements(ctx context.Context, buildingId, floor int) ([]types.PersonPlacement, error)
}
