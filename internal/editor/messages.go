package editor

import (
	"net/http"
	"time"

	"github.com/tbuchner/raumplan/internal/geometry"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is the union of everything a client can send. Exactly one
// of the pointer fields is set per message.
type ClientMessage struct {
	BaseMessage
	Join            *Join            `json:"join,omitempty"`
	PointerDown     *PointerDown     `json:"pointer_down,omitempty"`
	PointerMove     *PointerMove     `json:"pointer_move,omitempty"`
	PointerUp       *PointerUp       `json:"pointer_up,omitempty"`
	Cancel          *Cancel          `json:"cancel,omitempty"`
	RenameRoom      *RenameRoom      `json:"rename_room,omitempty"`
	DeleteRoom      *DeleteRoom      `json:"delete_room,omitempty"`
	AddPlaceable    *AddPlaceable    `json:"add_placeable,omitempty"`
	RemovePlaceable *RemovePlaceable `json:"remove_placeable,omitempty"`
	DropInventory   *DropInventory   `json:"drop_inventory,omitempty"`
	UserId          int              `json:"-"`
	client          *Client          `json:"-"`
}

type Join struct {
	BuildingId int `json:"building_id"`
	Floor      int `json:"floor"`
}

// PointerDown starts a gesture. TargetKind is "room", "person", "object"
// or empty for the bare canvas (which starts a draw). Frame is the
// client-measured reference frame for the dragged element, Grab the
// offset of the pointer inside it at grab time.
type PointerDown struct {
	TargetKind string         `json:"target_kind"`
	TargetId   string         `json:"target_id,omitempty"`
	Position   geometry.Point `json:"position"`
	Frame      geometry.Frame `json:"frame"`
	Grab       geometry.Point `json:"grab"`
	Button     int            `json:"button"`
}

type PointerMove struct {
	Position geometry.Point `json:"position"`
}

type PointerUp struct {
	Position geometry.Point `json:"position"`
}

// Cancel aborts the active gesture without committing. Clients send it on
// Escape or when pointer-up lands while a text input has focus.
type Cancel struct{}

type RenameRoom struct {
	RoomId string `json:"room_id"`
	Name   string `json:"name"`
}

type DeleteRoom struct {
	RoomId string `json:"room_id"`
}

type AddPlaceable struct {
	Kind  string         `json:"kind"`
	Attrs map[string]any `json:"attrs,omitempty"`
	Rect  geometry.Rect  `json:"rect"`
}

type RemovePlaceable struct {
	PlaceableId string `json:"placeable_id"`
}

// DropInventory removes one item from a person's inventory and puts it
// back on the canvas.
type DropInventory struct {
	PlaceableId string `json:"placeable_id"`
	Index       int    `json:"index"`
}

type ServerMessage struct {
	BaseMessage
	Response     *Response     `json:"response,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
	SkipClient   *Client       `json:"-"`
}

type Response struct {
	ResponseCode int            `json:"response_code"`
	Error        string         `json:"error,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

type Notification struct {
	Snapshot         *Snapshot         `json:"snapshot,omitempty"`
	Geometry         *GeometryChange   `json:"geometry,omitempty"`
	RoomCreated      *RoomState        `json:"room_created,omitempty"`
	RoomRenamed      *RoomState        `json:"room_renamed,omitempty"`
	RoomDeleted      *RoomDeleted      `json:"room_deleted,omitempty"`
	Placement        *Placement        `json:"placement,omitempty"`
	Inventory        *InventoryChange  `json:"inventory,omitempty"`
	PlaceableAdded   *PlaceableState   `json:"placeable_added,omitempty"`
	PlaceableRemoved *PlaceableRemoved `json:"placeable_removed,omitempty"`
	PersistError     *PersistError     `json:"persist_error,omitempty"`
}

// Snapshot is the full plan state sent to a client on join.
type Snapshot struct {
	BuildingId int               `json:"building_id"`
	Floor      int               `json:"floor"`
	Rooms      []*RoomState      `json:"rooms"`
	Placeables []*PlaceableState `json:"placeables"`
}

type RoomState struct {
	RoomId string        `json:"room_id"`
	Guid   string        `json:"guid,omitempty"`
	Name   string        `json:"name"`
	Rect   geometry.Rect `json:"rect"`
}

type RoomDeleted struct {
	RoomId string `json:"room_id"`
}

// GeometryChange streams a live rect while a gesture is in progress and
// carries the final rect on commit or the restored rect on cancel.
type GeometryChange struct {
	TargetKind string        `json:"target_kind"`
	TargetId   string        `json:"target_id"`
	Rect       geometry.Rect `json:"rect"`
	Final      bool          `json:"final,omitempty"`
}

type PlaceableState struct {
	PlaceableId string           `json:"placeable_id"`
	Kind        string           `json:"kind"`
	Attrs       map[string]any   `json:"attrs,omitempty"`
	Rect        geometry.Rect    `json:"rect"`
	RoomId      string           `json:"room_id,omitempty"`
	Inventory   []map[string]any `json:"inventory,omitempty"`
}

type PlaceableRemoved struct {
	PlaceableId string `json:"placeable_id"`
}

// Placement announces a room membership change after a drag commit.
type Placement struct {
	PlaceableId string `json:"placeable_id"`
	RoomId      string `json:"room_id,omitempty"`
	FromRoomId  string `json:"from_room_id,omitempty"`
}

type InventoryChange struct {
	PlaceableId string           `json:"placeable_id"`
	Inventory   []map[string]any `json:"inventory"`
}

// PersistError is the toast-style notification for a failed or dropped
// collaborator request. Local state is not rolled back.
type PersistError struct {
	Op     string `json:"op"`
	Entity string `json:"entity"`
	Error  string `json:"error"`
}

func NoErrOK(id int, data map[string]any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func NoErrAccepted(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusAccepted,
		},
	}
}

func ErrPlanNotFound(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusNotFound,
			Error:        "plan not found",
		},
	}
}

func ErrNotFound(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusNotFound,
			Error:        "not found",
		},
	}
}

func ErrInternalError(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusInternalServerError,
			Error:        "internal server error",
		},
	}
}

func ErrServiceUnavailable(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusServiceUnavailable,
			Error:        "service unavailable",
		},
	}
}

func ErrInvalidMessage(id int) *ServerMessage {
	msg := &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        "invalid message format",
		},
	}

	if id > 0 {
		msg.Id = id
	}
	return msg
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
