// Package ids generates identifiers for editor entities. Room ids are
// short and human-readable since they show up in logs and wire messages;
// GUIDs are full UUIDs the collaborator stores alongside a room.
package ids

import (
	"github.com/google/uuid"
	"github.com/teris-io/shortid"
)

var sid = shortid.MustNew(1, shortid.DefaultABC, 2342)

// generate is swapped out in tests for deterministic ids.
var generate = func() string {
	id, err := sid.Generate()
	if err != nil {
		// shortid only fails on clock rollback, fall back to a uuid
		return uuid.NewString()
	}
	return id
}

func NewRoomId() string {
	return "room-" + generate()
}

func NewPlaceableId() string {
	return "p-" + generate()
}

func NewGuid() string {
	return uuid.NewString()
}
