package types

import (
	"time"
)

type Tier string

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

type Role string

const (
	RolePlayer   Role = "player"
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

// IsStaff reports whether the role may manage rooms.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleEmployee
}

// Room is a single tournament lobby as stored in the record store.
// CreatedAt is nil while the store has not yet assigned a timestamp.
type Room struct {
	Id        string     `json:"id"`
	RoomId    string     `json:"room_id"`
	Password  string     `json:"password"`
	Game      string     `json:"game"`
	Tier      Tier       `json:"tier"`
	Status    Status     `json:"status"`
	CreatedBy string     `json:"created_by,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// RoomFilter holds the equality predicates applied to room queries.
// Empty fields match every record.
type RoomFilter struct {
	Game   string `json:"game,omitempty"`
	Status Status `json:"status,omitempty"`
}

func (f RoomFilter) Match(r Room) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Game != "" && r.Game != f.Game {
		return false
	}
	return true
}

// TierBucket groups the rooms of one price tier for display.
type TierBucket struct {
	Tier        Tier   `json:"tier"`
	DisplayName string `json:"display_name"`
	KillReward  int    `json:"kill_reward"`
	Premium     bool   `json:"premium"`
	Rooms       []Room `json:"rooms"`
}

type RoomFields struct {
	RoomId   string `json:"room_id"`
	Password string `json:"password"`
	Tier     Tier   `json:"tier"`
	Game     string `json:"game"`
}

// RoomUpdate is a partial update; nil fields are left untouched.
type RoomUpdate struct {
	RoomId   *string `json:"room_id,omitempty"`
	Password *string `json:"password,omitempty"`
	Tier     *Tier   `json:"tier,omitempty"`
	Game     *string `json:"game,omitempty"`
}

func (u RoomUpdate) Empty() bool {
	return u.RoomId == nil && u.Password == nil && u.Tier == nil && u.Game == nil
}

type BulkCreateParams struct {
	Prefix   string `json:"prefix"`
	Count    int    `json:"count"`
	Password string `json:"password"`
	Tier     Tier   `json:"tier"`
	Game     string `json:"game"`
}

type Account struct {
	Id           int       `json:"id"`
	Name         string    `json:"name"`
	EmailAddress string    `json:"email_address"`
	GameId       string    `json:"game_id,omitempty"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type DashboardStats struct {
	TotalRooms  int `json:"total_rooms"`
	ActiveRooms int `json:"active_rooms"`
	Employees   int `json:"employees"`
}

// Principal identifies the authenticated caller of an operation.
type Principal struct {
	AccountId    int    `json:"id"`
	EmailAddress string `json:"email_address"`
	Name         string `json:"name"`
	Role         Role   `json:"role"`
}

type EmployeeParams struct {
	Name         string `json:"name"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
	GameId       string `json:"game_id"`
}
