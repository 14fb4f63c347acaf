package database

import (
	"context"

	"github.com/npezzotti/go-roomboard/internal/types"
)

type RoomRepository interface {
	// ListRooms returns rooms matching filter ordered by ascending tier,
	// newest first within a tier.
	ListRooms(ctx context.Context, filter types.RoomFilter) ([]types.Room, error)
	// ListRecentRooms returns every room, newest first.
	ListRecentRooms(ctx context.Context) ([]types.Room, error)
	GetRoom(ctx context.Context, id string) (types.Room, error)
	CreateRooms(ctx context.Context, params []CreateRoomParams) ([]types.Room, error)
	UpdateRoom(ctx context.Context, id string, update types.RoomUpdate) error
	SetRoomStatus(ctx context.Context, id string, status types.Status) error
	ToggleRoomStatus(ctx context.Context, id string) (types.Status, error)
	DeleteRoom(ctx context.Context, id string) error
	CountRooms(ctx context.Context) (RoomCounts, error)
}

type AccountRepository interface {
	CreateAccount(ctx context.Context, params CreateAccountParams) (types.Account, error)
	GetAccountById(ctx context.Context, id int) (types.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (types.Account, error)
	ListAccountsByRole(ctx context.Context, role types.Role) ([]types.Account, error)
	CountAccountsByRole(ctx context.Context, role types.Role) (int, error)
	SetRoleByEmail(ctx context.Context, email string, role types.Role) (bool, error)
	DeleteAccount(ctx context.Context, id int) error
}

type RoomBoardRepository interface {
	Ping(ctx context.Context) error
	RoomRepository
	AccountRepository
}
