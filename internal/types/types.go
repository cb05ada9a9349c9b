package types

import (
	"time"
)

type User struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email_address,omitempty"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// RoomData is a room record as the collaborator backend exchanges it.
// Geometry fields are floorplan-local whole pixels.
type RoomData struct {
	Id         int    `json:"id,omitempty"`
	Guid       string `json:"guid,omitempty"`
	Name       string `json:"name"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	BuildingId int    `json:"building_id,omitempty"`
	Floor      int    `json:"floor,omitempty"`
}

// PersonPlacement is one entry of the collaborator's bulk person/placement
// payload: the person's opaque attribute bag plus the rooms it is placed
// in, each with an optional layout position.
type PersonPlacement struct {
	Person map[string]any `json:"person"`
	Rooms  []PersonRoom   `json:"rooms"`
}

type PersonRoom struct {
	Room   RoomRef `json:"room"`
	Layout *Layout `json:"layout"`
}

type RoomRef struct {
	Id int `json:"id"`
}

type Layout struct {
	X int `json:"x"`
	Y int `json:"y"`
}
