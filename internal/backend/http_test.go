package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tbuchner/raumplan/internal/testutil"
	"github.com/tbuchner/raumplan/internal/types"
)

func newTestCollaborator(t *testing.T, handler http.Handler) *HTTPCollaborator {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewHTTPCollaborator(srv.URL, time.Second, testutil.TestLogger(t))
	if err != nil {
		t.Fatalf("failed to create collaborator: %v", err)
	}
	return c
}

func TestNewHTTPCollaborator(t *testing.T) {
	_, err := NewHTTPCollaborator("", time.Second, testutil.TestLogger(t))
	assert.Error(t, err, "expected an error for an empty base URL")

	c, err := NewHTTPCollaborator("http://localhost:5000/", time.Second, testutil.TestLogger(t))
	assert.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", c.baseURL, "expected trailing slash trimmed")
}

func TestLoadFloorplan(t *testing.T) {
	c := newTestCollaborator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get_floorplan", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("building_id"))
		assert.Equal(t, "1", r.URL.Query().Get("etage"))

		json.NewEncoder(w).Encode([]types.RoomData{
			{Id: 7, Name: "lab", X: 100, Y: 100, Width: 200, Height: 120},
		})
	}))

	rooms, err := c.LoadFloorplan(context.Background(), 3, 1)
	assert.NoError(t, err)
	assert.Len(t, rooms, 1)
	assert.Equal(t, "lab", rooms[0].Name)
	assert.Equal(t, 200, rooms[0].Width)
}

func TestSaveRoom(t *testing.T) {
	t.Run("success merges server id", func(t *testing.T) {
		c := newTestCollaborator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/save_or_update_room", r.URL.Path)

			var room types.RoomData
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&room))
			assert.Equal(t, "lab", room.Name)
			assert.Equal(t, 3, room.BuildingId)

			json.NewEncoder(w).Encode(map[string]any{
				"status": "success", "room_id": 42, "room_name": "lab",
			})
		}))

		res, err := c.SaveRoom(context.Background(), types.RoomData{Name: "lab", BuildingId: 3, Floor: 1})
		assert.NoError(t, err)
		assert.Equal(t, 42, res.RoomId, "expected the server-assigned room id")
	})

	t.Run("rejection surfaces collaborator error", func(t *testing.T) {
		c := newTestCollaborator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"status": "error", "error": "duplicate name"})
		}))

		_, err := c.SaveRoom(context.Background(), types.RoomData{Name: "lab"})
		assert.ErrorContains(t, err, "duplicate name")
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		c := newTestCollaborator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

		_, err := c.SaveRoom(context.Background(), types.RoomData{Name: "lab"})
		assert.Error(t, err, "expected an error for a 500 response")
	})
}

func TestDeleteRoom(t *testing.T) {
	c := newTestCollaborator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/delete_room", r.URL.Path)

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "lab", body["name"])

		json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	}))

	assert.NoError(t, c.DeleteRoom(context.Background(), "lab"))
}

func TestSavePersonToRoom(t *testing.T) {
	t.Run("returns raum id", func(t *testing.T) {
		c := newTestCollaborator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/save_person_to_raum", r.URL.Path)

			var params SavePersonParams
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&params))
			assert.Equal(t, 42, params.RoomId)
			assert.Equal(t, 150, params.X)

			json.NewEncoder(w).Encode(map[string]any{"status": "success", "raum_id": 42})
		}))

		raumId, err := c.SavePersonToRoom(context.Background(), SavePersonParams{
			RoomId: 42,
			Person: map[string]any{"id": float64(7), "vorname": "Ada"},
			X:      150, Y: 160,
		})
		assert.NoError(t, err)
		assert.Equal(t, 42, raumId)
	})

	t.Run("missing raum_id is an error", func(t *testing.T) {
		c := newTestCollaborator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"status": "success"})
		}))

		_, err := c.SavePersonToRoom(context.Background(), SavePersonParams{RoomId: 1})
		assert.ErrorContains(t, err, "raum_id")
	})
}

func TestRemovePersonFromRoom(t *testing.T) {
	c := newTestCollaborator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/delete_person_from_raum", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "7", r.URL.Query().Get("person_id"))
		assert.Equal(t, "42", r.URL.Query().Get("raum_id"))

		json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	}))

	assert.NoError(t, c.RemovePersonFromRoom(context.Background(), 7, 42))
}

func TestLoadPersonPlacements(t *testing.T) {
	c := newTestCollaborator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/get_person_raum_data", r.URL.Path)

		json.NewEncoder(w).Encode([]types.PersonPlacement{
			{
				Person: map[string]any{"id": float64(7), "vorname": "Ada"},
				Rooms: []types.PersonRoom{
					{Room: types.RoomRef{Id: 42}, Layout: &types.Layout{X: 150, Y: 160}},
				},
			},
			{Person: map[string]any{"id": float64(8)}},
		})
	}))

	placements, err := c.LoadPersonPlacements(context.Background(), 3, 1)
	assert.NoError(t, err)
	assert.Len(t, placements, 2)
	assert.Equal(t, 42, placements[0].Rooms[0].Room.Id)
	assert.Nil(t, placements[1].Rooms, "expected a person without rooms to have no placements")
}
