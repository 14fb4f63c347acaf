package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/npezzotti/go-roomboard/internal/types"
)

const (
	roomColumns = "id, room_id, password, game, tier, status, created_by, created_at, updated_at"

	// tiers are stored as text; ordering by length first keeps numeric order
	listRoomsQuery = "SELECT " + roomColumns + " FROM rooms " +
		"WHERE ($1 = '' OR game = $1) AND ($2 = '' OR status = $2) " +
		"ORDER BY length(tier), tier, created_at DESC NULLS FIRST"

	listRecentRoomsQuery = "SELECT " + roomColumns + " FROM rooms ORDER BY created_at DESC NULLS FIRST"

	insertRoomQuery = "INSERT INTO rooms (id, room_id, password, game, tier, status, created_by, created_at, updated_at) " +
		"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)"

	accountColumns = "id, name, email, game_id, password_hash, role, created_at, updated_at"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (types.Room, error) {
	var (
		room      types.Room
		createdAt sql.NullTime
		updatedAt sql.NullTime
	)

	err := row.Scan(
		&room.Id,
		&room.RoomId,
		&room.Password,
		&room.Game,
		&room.Tier,
		&room.Status,
		&room.CreatedBy,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return types.Room{}, err
	}

	room.CreatedAt = timePtr(createdAt)
	room.UpdatedAt = timePtr(updatedAt)
	return room, nil
}

func (db *PgRoomBoardRepository) queryRooms(ctx context.Context, query string, args ...any) ([]types.Room, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	rooms := make([]types.Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", classify(err))
	}

	return rooms, nil
}

func (db *PgRoomBoardRepository) ListRooms(ctx context.Context, filter types.RoomFilter) ([]types.Room, error) {
	return db.queryRooms(ctx, listRoomsQuery, filter.Game, string(filter.Status))
}

func (db *PgRoomBoardRepository) ListRecentRooms(ctx context.Context) ([]types.Room, error) {
	return db.queryRooms(ctx, listRecentRoomsQuery)
}

func (db *PgRoomBoardRepository) GetRoom(ctx context.Context, id string) (types.Room, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+roomColumns+" FROM rooms WHERE id = $1 LIMIT 1", id)

	room, err := scanRoom(row)
	if err != nil {
		return types.Room{}, classify(err)
	}
	return room, nil
}

// CreateRooms inserts all rooms in a single transaction and returns them with
// their assigned ids and timestamps.
func (db *PgRoomBoardRepository) CreateRooms(ctx context.Context, params []CreateRoomParams) ([]types.Room, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := db.now()
	rooms := make([]types.Room, 0, len(params))
	for _, p := range params {
		var id string
		id, err = db.newId()
		if err != nil {
			return nil, fmt.Errorf("generate room id: %w", err)
		}

		room := types.Room{
			Id:        id,
			RoomId:    p.RoomId,
			Password:  p.Password,
			Game:      p.Game,
			Tier:      p.Tier,
			Status:    types.StatusActive,
			CreatedBy: p.CreatedBy,
			CreatedAt: &now,
			UpdatedAt: &now,
		}

		_, err = tx.ExecContext(ctx, insertRoomQuery,
			room.Id,
			room.RoomId,
			room.Password,
			room.Game,
			room.Tier,
			room.Status,
			room.CreatedBy,
			now,
			now,
		)
		if err != nil {
			return nil, classify(err)
		}
		rooms = append(rooms, room)
	}

	if err = tx.Commit(); err != nil {
		return nil, classify(err)
	}

	return rooms, nil
}

func (db *PgRoomBoardRepository) UpdateRoom(ctx context.Context, id string, update types.RoomUpdate) error {
	res, err := db.conn.ExecContext(ctx,
		"UPDATE rooms SET room_id = COALESCE($2, room_id), password = COALESCE($3, password), "+
			"tier = COALESCE($4, tier), game = COALESCE($5, game), updated_at = $6 WHERE id = $1",
		id,
		nullString(update.RoomId),
		nullString(update.Password),
		nullString(update.Tier),
		nullString(update.Game),
		db.now(),
	)
	return checkAffected(res, err)
}

func (db *PgRoomBoardRepository) SetRoomStatus(ctx context.Context, id string, status types.Status) error {
	res, err := db.conn.ExecContext(ctx,
		"UPDATE rooms SET status = $2, updated_at = $3 WHERE id = $1",
		id,
		status,
		db.now(),
	)
	return checkAffected(res, err)
}

// ToggleRoomStatus flips a room between active and inactive in a single
// statement and returns the stored status.
func (db *PgRoomBoardRepository) ToggleRoomStatus(ctx context.Context, id string) (types.Status, error) {
	row := db.conn.QueryRowContext(ctx,
		"UPDATE rooms SET status = CASE status WHEN 'active' THEN 'inactive' ELSE 'active' END, "+
			"updated_at = $2 WHERE id = $1 RETURNING status",
		id,
		db.now(),
	)

	var status types.Status
	if err := row.Scan(&status); err != nil {
		return "", classify(err)
	}
	return status, nil
}

func (db *PgRoomBoardRepository) DeleteRoom(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM rooms WHERE id = $1", id)
	return checkAffected(res, err)
}

func (db *PgRoomBoardRepository) CountRooms(ctx context.Context) (RoomCounts, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT count(*), count(*) FILTER (WHERE status = 'active') FROM rooms",
	)

	var counts RoomCounts
	if err := row.Scan(&counts.Total, &counts.Active); err != nil {
		return RoomCounts{}, classify(err)
	}
	return counts, nil
}

func checkAffected(res sql.Result, err error) error {
	if err != nil {
		return classify(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

func scanAccount(row rowScanner) (types.Account, error) {
	var a types.Account
	err := row.Scan(
		&a.Id,
		&a.Name,
		&a.EmailAddress,
		&a.GameId,
		&a.PasswordHash,
		&a.Role,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

func (db *PgRoomBoardRepository) CreateAccount(ctx context.Context, params CreateAccountParams) (types.Account, error) {
	now := db.now()
	row := db.conn.QueryRowContext(ctx,
		"INSERT INTO accounts (name, email, game_id, password_hash, role, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING "+accountColumns,
		params.Name,
		params.EmailAddress,
		params.GameId,
		params.PasswordHash,
		params.Role,
		now,
		now,
	)

	a, err := scanAccount(row)
	if err != nil {
		return types.Account{}, classify(err)
	}
	return a, nil
}

func (db *PgRoomBoardRepository) GetAccountById(ctx context.Context, id int) (types.Account, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = $1 LIMIT 1", id)

	a, err := scanAccount(row)
	if err != nil {
		return types.Account{}, classify(err)
	}
	return a, nil
}

func (db *PgRoomBoardRepository) GetAccountByEmail(ctx context.Context, email string) (types.Account, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE email = $1 LIMIT 1", email)

	a, err := scanAccount(row)
	if err != nil {
		return types.Account{}, classify(err)
	}
	return a, nil
}

func (db *PgRoomBoardRepository) ListAccountsByRole(ctx context.Context, role types.Role) ([]types.Account, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE role = $1 ORDER BY created_at DESC",
		role,
	)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	accounts := make([]types.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", classify(err))
	}
	return accounts, nil
}

func (db *PgRoomBoardRepository) CountAccountsByRole(ctx context.Context, role types.Role) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, "SELECT count(*) FROM accounts WHERE role = $1", role).Scan(&n); err != nil {
		return 0, classify(err)
	}
	return n, nil
}

// SetRoleByEmail changes the role of an existing account. It reports whether
// an account with that email exists.
func (db *PgRoomBoardRepository) SetRoleByEmail(ctx context.Context, email string, role types.Role) (bool, error) {
	err := checkAffected(db.conn.ExecContext(ctx,
		"UPDATE accounts SET role = $2, updated_at = $3 WHERE email = $1",
		email,
		role,
		db.now(),
	))
	if errors.Is(err, types.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (db *PgRoomBoardRepository) DeleteAccount(ctx context.Context, id int) error {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM accounts WHERE id = $1", id)
	return checkAffected(res, err)
}
