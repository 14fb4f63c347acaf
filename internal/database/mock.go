package database

import (
	"context"

	"github.com/npezzotti/go-roomboard/internal/types"
	"github.com/stretchr/testify/mock"
)

type MockRoomBoardRepository struct {
	mock.Mock
}

func (m *MockRoomBoardRepository) Ping(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockRoomBoardRepository) ListRooms(ctx context.Context, filter types.RoomFilter) ([]types.Room, error) {
	args := m.Called(filter)
	if rooms, ok := args.Get(0).([]types.Room); ok {
		return rooms, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockRoomBoardRepository) ListRecentRooms(ctx context.Context) ([]types.Room, error) {
	args := m.Called()
	if rooms, ok := args.Get(0).([]types.Room); ok {
		return rooms, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockRoomBoardRepository) GetRoom(ctx context.Context, id string) (types.Room, error) {
	args := m.Called(id)
	return args.Get(0).(types.Room), args.Error(1)
}
func (m *MockRoomBoardRepository) CreateRooms(ctx context.Context, params []CreateRoomParams) ([]types.Room, error) {
	args := m.Called(params)
	if rooms, ok := args.Get(0).([]types.Room); ok {
		return rooms, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockRoomBoardRepository) UpdateRoom(ctx context.Context, id string, update types.RoomUpdate) error {
	args := m.Called(id, update)
	return args.Error(0)
}
func (m *MockRoomBoardRepository) SetRoomStatus(ctx context.Context, id string, status types.Status) error {
	args := m.Called(id, status)
	return args.Error(0)
}
func (m *MockRoomBoardRepository) ToggleRoomStatus(ctx context.Context, id string) (types.Status, error) {
	args := m.Called(id)
	return args.Get(0).(types.Status), args.Error(1)
}
func (m *MockRoomBoardRepository) DeleteRoom(ctx context.Context, id string) error {
	args := m.Called(id)
	return args.Error(0)
}
func (m *MockRoomBoardRepository) CountRooms(ctx context.Context) (RoomCounts, error) {
	args := m.Called()
	return args.Get(0).(RoomCounts), args.Error(1)
}
func (m *MockRoomBoardRepository) CreateAccount(ctx context.Context, params CreateAccountParams) (types.Account, error) {
	args := m.Called(params)
	return args.Get(0).(types.Account), args.Error(1)
}
func (m *MockRoomBoardRepository) GetAccountById(ctx context.Context, id int) (types.Account, error) {
	args := m.Called(id)
	return args.Get(0).(types.Account), args.Error(1)
}
func (m *MockRoomBoardRepository) GetAccountByEmail(ctx context.Context, email string) (types.Account, error) {
	args := m.Called(email)
	return args.Get(0).(types.Account), args.Error(1)
}
func (m *MockRoomBoardRepository) ListAccountsByRole(ctx context.Context, role types.Role) ([]types.Account, error) {
	args := m.Called(role)
	if accounts, ok := args.Get(0).([]types.Account); ok {
		return accounts, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockRoomBoardRepository) CountAccountsByRole(ctx context.Context, role types.Role) (int, error) {
	args := m.Called(role)
	return args.Int(0), args.Error(1)
}
func (m *MockRoomBoardRepository) SetRoleByEmail(ctx context.Context, email string, role types.Role) (bool, error) {
	args := m.Called(email, role)
	return args.Bool(0), args.Error(1)
}
func (m *MockRoomBoardRepository) DeleteAccount(ctx context.Context, id int) error {
	args := m.Called(id)
	return args.Error(0)
}
