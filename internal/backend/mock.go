package backend

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/tbuchner/raumplan/internal/types"
)

type MockCollaborator struct {
	mock.Mock
}

func (m *MockCollaborator) LoadFloorplan(ctx context.Context, buildingId, floor int) ([]types.RoomData, error) {
	args := m.Called(ctx, buildingId, floor)
	if rooms, ok := args.Get(0).([]types.RoomData); ok {
		return rooms, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCollaborator) SaveRoom(ctx context.Context, room types.RoomData) (SaveRoomResult, error) {
	args := m.Called(ctx, room)
	return args.Get(0).(SaveRoomResult), args.Error(1)
}

func (m *MockCollaborator) DeleteRoom(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockCollaborator) SavePersonToRoom(ctx context.Context, params SavePersonParams) (int, error) {
	args := m.Called(ctx, params)
	return args.Int(0), args.Error(1)
}

func (m *MockCollaborator) RemovePersonFromRoom(ctx context.Context, personId, raumId int) error {
	args := m.Called(ctx, personId, raumId)
	return args.Error(0)
}

func (m *MockCollaborator) SavePerson(ctx context.Context, person map[string]any) error {
	args := m.Called(ctx, person)
	return args.Error(0)
}

func (m *MockCollaborator) LoadPersonPlacements(ctx context.Context, buildingId, floor int) ([]types.PersonPlacement, error) {
	args := m.Called(ctx, buildingId, floor)
	if placements, ok := args.Get(0).([]types.PersonPlacement); ok {
		return placements, args.Error(1)
	}
	return nil, args.Error(1)
}
