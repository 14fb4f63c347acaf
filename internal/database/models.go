package database

import (
	"database/sql"
	"time"

	"github.com/npezzotti/go-roomboard/internal/types"
)

type CreateRoomParams struct {
	types.RoomFields
	CreatedBy string
}

type CreateAccountParams struct {
	Name         string
	EmailAddress string
	GameId       string
	PasswordHash string
	Role         types.Role
}

type RoomCounts struct {
	Total  int
	Active int
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	ts := t.Time
	return &ts
}

func nullString[T ~string](s *T) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*s), Valid: true}
}
