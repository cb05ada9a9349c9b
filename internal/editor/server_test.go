package editor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/tbuchner/raumplan/internal/backend"
	"github.com/tbuchner/raumplan/internal/types"
)

func TestNewEditorServer(t *testing.T) {
	collab := &backend.MockCollaborator{}
	es := newTestEditorServer(t, collab)

	assert.NotNil(t, es, "expected EditorServer to be non-nil")
	assert.Equal(t, collab, es.collab, "expected collaborator to be set")
	assert.NotNil(t, es.joinChan, "expected joinChan to be initialized")
	assert.NotNil(t, es.unloadChan, "expected unloadChan to be initialized")
	assert.NotNil(t, es.plans, "expected plans map to be initialized")
	assert.NotNil(t, es.clients, "expected clients map to be initialized")
	assert.Equal(t, 1200.0, es.canvas.Width, "expected canvas defaults to be applied")
	assert.Equal(t, 8.0, es.canvas.EdgeMargin, "expected canvas defaults to be applied")
}

func TestEditorServer_addClient_removeClient(t *testing.T) {
	es := newTestEditorServer(t, &backend.MockCollaborator{})
	client := &Client{user: types.User{Id: 1, Username: "testuser"}}

	es.addClient(client)
	assert.Len(t, es.clients, 1, "expected 1 client after adding")
	assert.Contains(t, es.clients, client, "expected client to be added to clients map")

	es.removeClient(client)
	assert.Len(t, es.clients, 0, "expected 0 clients after removing")
}

func TestEditorServer_handleJoin(t *testing.T) {
	t.Run("join loads a new plan", func(t *testing.T) {
		collab := &backend.MockCollaborator{}
		collab.On("LoadFloorplan", mock.Anything, 3, 1).Return([]types.RoomData{}, nil)
		collab.On("LoadPersonPlacements", mock.Anything, 3, 1).Return([]types.PersonPlacement{}, nil)

		es := newTestEditorServer(t, collab)
		c := newTestClient(t)

		es.handleJoin(&ClientMessage{
			BaseMessage: BaseMessage{Id: 1, Timestamp: Now()},
			Join:        &Join{BuildingId: 3, Floor: 1},
			client:      c,
		})

		plan, ok := es.plans["3:1"]
		assert.True(t, ok, "expected plan to be loaded")
		assert.NotNil(t, plan, "expected plan to be non-nil")

		// the plan goroutine answers the join with a snapshot
		deadline := time.After(time.Second)
		for {
			select {
			case msg := <-c.send:
				if msg.Notification != nil && msg.Notification.Snapshot != nil {
					assert.Equal(t, 3, msg.Notification.Snapshot.BuildingId, "expected snapshot for the joined plan")
					es.unloadPlan("3:1")
					return
				}
			case <-deadline:
				t.Fatal("timeout: no snapshot received")
			}
		}
	})

	t.Run("join routes to an existing plan", func(t *testing.T) {
		es := newTestEditorServer(t, &backend.MockCollaborator{})
		plan := &Plan{key: "3:1", joinChan: make(chan *ClientMessage, 1)}
		es.plans["3:1"] = plan

		es.handleJoin(&ClientMessage{
			BaseMessage: BaseMessage{Id: 1, Timestamp: Now()},
			Join:        &Join{BuildingId: 3, Floor: 1},
		})

		select {
		case <-plan.joinChan:
		default:
			t.Error("expected join message to be sent to the existing plan")
		}
	})

	t.Run("join fails when joinChan full", func(t *testing.T) {
		es := newTestEditorServer(t, &backend.MockCollaborator{})
		plan := &Plan{key: "3:1", joinChan: make(chan *ClientMessage, 1)}
		es.plans["3:1"] = plan
		plan.joinChan <- &ClientMessage{}

		c := newTestClient(t)
		es.handleJoin(&ClientMessage{
			BaseMessage: BaseMessage{Id: 1, Timestamp: Now()},
			Join:        &Join{BuildingId: 3, Floor: 1},
			client:      c,
		})

		select {
		case msg := <-c.send:
			assert.NotNil(t, msg.Response, "expected a response message")
			assert.Equal(t, 503, msg.Response.ResponseCode, "expected response code to be 503")
		default:
			t.Error("expected a message to be sent to the client, but none was sent")
		}
	})
}

func TestEditorServer_unloadPlan(t *testing.T) {
	collab := &backend.MockCollaborator{}
	collab.On("LoadFloorplan", mock.Anything, 3, 1).Return([]types.RoomData{}, nil)
	collab.On("LoadPersonPlacements", mock.Anything, 3, 1).Return([]types.PersonPlacement{}, nil)

	es := newTestEditorServer(t, collab)
	c := newTestClient(t)

	es.handleJoin(&ClientMessage{
		Join:   &Join{BuildingId: 3, Floor: 1},
		client: c,
	})
	assert.Contains(t, es.plans, "3:1", "expected plan to be loaded")

	es.unloadPlan("3:1")
	assert.NotContains(t, es.plans, "3:1", "expected plan to be removed")
	assert.Nil(t, c.getPlan(), "expected the client's plan to be cleared on unload")

	// unloading twice is a no-op
	es.unloadPlan("3:1")
}

func TestEditorServerShutdown(t *testing.T) {
	t.Run("shutdown with no plans", func(t *testing.T) {
		es := newTestEditorServer(t, &backend.MockCollaborator{})
		go es.Run()

		done := make(chan struct{})
		go func() {
			es.Shutdown()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("timeout: shutdown did not complete")
		}
	})

	t.Run("shutdown with an active plan", func(t *testing.T) {
		collab := &backend.MockCollaborator{}
		collab.On("LoadFloorplan", mock.Anything, 3, 1).Return([]types.RoomData{}, nil)
		collab.On("LoadPersonPlacements", mock.Anything, 3, 1).Return([]types.PersonPlacement{}, nil)

		es := newTestEditorServer(t, collab)
		go es.Run()

		c := newTestClient(t)
		es.RegisterChan <- c
		es.joinChan <- &ClientMessage{
			Join:   &Join{BuildingId: 3, Floor: 1},
			client: c,
		}

		done := make(chan struct{})
		go func() {
			es.Shutdown()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("timeout: shutdown did not stop the plan")
		}
	})
}
