package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/npezzotti/go-roomboard/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

var roomRowColumns = []string{"id", "room_id", "password", "game", "tier", "status", "created_by", "created_at", "updated_at"}

func setupMockDB(t *testing.T) (sqlmock.Sqlmock, *PgRoomBoardRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewPgRoomBoardRepositoryFromDB(db)
	repo.now = func() time.Time { return fixedNow }

	n := 0
	repo.newId = func() (string, error) {
		n++
		return fmt.Sprintf("id-%d", n), nil
	}

	return mock, repo
}

func TestListRooms(t *testing.T) {
	mock, repo := setupMockDB(t)

	rows := sqlmock.NewRows(roomRowColumns).
		AddRow("a", "1001", "pw", "freefire", "50", "active", "admin@example.com", fixedNow, fixedNow).
		AddRow("b", "1002", "pw", "freefire", "100", "active", "", nil, nil)

	mock.ExpectQuery(`SELECT id, room_id, password, game, tier, status, created_by, created_at, updated_at FROM rooms WHERE`).
		WithArgs("freefire", "active").
		WillReturnRows(rows)

	rooms, err := repo.ListRooms(context.Background(), types.RoomFilter{Game: "freefire", Status: types.StatusActive})
	require.NoError(t, err)
	require.Len(t, rooms, 2)

	assert.Equal(t, "a", rooms[0].Id)
	assert.Equal(t, types.Tier("50"), rooms[0].Tier)
	assert.Equal(t, types.StatusActive, rooms[0].Status)
	require.NotNil(t, rooms[0].CreatedAt)
	assert.True(t, fixedNow.Equal(*rooms[0].CreatedAt))

	assert.Nil(t, rooms[1].CreatedAt, "expected NULL created_at to scan as nil")
	assert.Empty(t, rooms[1].CreatedBy)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRooms_networkError(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectQuery(`SELECT`).
		WithArgs("freefire", "active").
		WillReturnError(&net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET})

	_, err := repo.ListRooms(context.Background(), types.RoomFilter{Game: "freefire", Status: types.StatusActive})
	assert.ErrorIs(t, err, types.ErrNetworkUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRecentRooms(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectQuery(`ORDER BY created_at DESC NULLS FIRST`).
		WillReturnRows(sqlmock.NewRows(roomRowColumns))

	rooms, err := repo.ListRecentRooms(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, rooms)
	assert.Empty(t, rooms)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRoom_notFound(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectQuery(`SELECT .* FROM rooms WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(roomRowColumns))

	_, err := repo.GetRoom(context.Background(), "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRooms(t *testing.T) {
	params := []CreateRoomParams{
		{RoomFields: types.RoomFields{RoomId: "FF1", Password: "pw", Tier: "50", Game: "freefire"}, CreatedBy: "admin@example.com"},
		{RoomFields: types.RoomFields{RoomId: "FF2", Password: "pw", Tier: "50", Game: "freefire"}, CreatedBy: "admin@example.com"},
	}

	t.Run("commits all rooms", func(t *testing.T) {
		mock, repo := setupMockDB(t)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO rooms`).
			WithArgs("id-1", "FF1", "pw", "freefire", "50", "active", "admin@example.com", fixedNow, fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO rooms`).
			WithArgs("id-2", "FF2", "pw", "freefire", "50", "active", "admin@example.com", fixedNow, fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		rooms, err := repo.CreateRooms(context.Background(), params)
		require.NoError(t, err)
		require.Len(t, rooms, 2)
		assert.Equal(t, "id-1", rooms[0].Id)
		assert.Equal(t, "FF2", rooms[1].RoomId)
		assert.Equal(t, types.StatusActive, rooms[1].Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		mock, repo := setupMockDB(t)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO rooms`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO rooms`).WillReturnError(&pq.Error{Code: "42501"})
		mock.ExpectRollback()

		_, err := repo.CreateRooms(context.Background(), params)
		assert.ErrorIs(t, err, types.ErrPermissionDenied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateRoom(t *testing.T) {
	password := "new-pw"
	tier := types.Tier("200")

	t.Run("partial update", func(t *testing.T) {
		mock, repo := setupMockDB(t)

		mock.ExpectExec(`UPDATE rooms SET room_id = COALESCE`).
			WithArgs("a", nil, "new-pw", "200", nil, fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateRoom(context.Background(), "a", types.RoomUpdate{Password: &password, Tier: &tier})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing room", func(t *testing.T) {
		mock, repo := setupMockDB(t)

		mock.ExpectExec(`UPDATE rooms`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateRoom(context.Background(), "missing", types.RoomUpdate{Password: &password})
		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSetRoomStatus(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectExec(`UPDATE rooms SET status = \$2`).
		WithArgs("a", "inactive", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.SetRoomStatus(context.Background(), "a", types.StatusInactive))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToggleRoomStatus(t *testing.T) {
	t.Run("flips in one statement", func(t *testing.T) {
		mock, repo := setupMockDB(t)

		mock.ExpectQuery(`UPDATE rooms SET status = CASE status WHEN 'active' THEN 'inactive' ELSE 'active' END`).
			WithArgs("a", fixedNow).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("inactive"))

		status, err := repo.ToggleRoomStatus(context.Background(), "a")
		require.NoError(t, err)
		assert.Equal(t, types.StatusInactive, status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing room", func(t *testing.T) {
		mock, repo := setupMockDB(t)

		mock.ExpectQuery(`UPDATE rooms SET status = CASE`).
			WithArgs("missing", fixedNow).
			WillReturnRows(sqlmock.NewRows([]string{"status"}))

		_, err := repo.ToggleRoomStatus(context.Background(), "missing")
		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeleteRoom(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectExec(`DELETE FROM rooms WHERE id = \$1`).
		WithArgs("a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM rooms WHERE id = \$1`).
		WithArgs("a").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.DeleteRoom(context.Background(), "a"))
	assert.ErrorIs(t, repo.DeleteRoom(context.Background(), "a"), types.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountRooms(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectQuery(`SELECT count\(\*\), count\(\*\) FILTER`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "count"}).AddRow(7, 4))

	counts, err := repo.CountRooms(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RoomCounts{Total: 7, Active: 4}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccount(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectQuery(`INSERT INTO accounts`).
		WithArgs("Jane", "jane@example.com", "Not set", "hash", "employee", fixedNow, fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "game_id", "password_hash", "role", "created_at", "updated_at"}).
			AddRow(3, "Jane", "jane@example.com", "Not set", "hash", "employee", fixedNow, fixedNow))

	a, err := repo.CreateAccount(context.Background(), CreateAccountParams{
		Name:         "Jane",
		EmailAddress: "jane@example.com",
		GameId:       "Not set",
		PasswordHash: "hash",
		Role:         types.RoleEmployee,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, a.Id)
	assert.Equal(t, types.RoleEmployee, a.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccount_duplicateEmail(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectQuery(`INSERT INTO accounts`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "accounts_email_key"})

	_, err := repo.CreateAccount(context.Background(), CreateAccountParams{
		Name:         "Jane",
		EmailAddress: "jane@example.com",
		PasswordHash: "hash",
		Role:         types.RoleEmployee,
	})
	assert.ErrorIs(t, err, types.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetRoleByEmail(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectExec(`UPDATE accounts SET role = \$2`).
		WithArgs("boss@example.com", "admin", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE accounts SET role = \$2`).
		WithArgs("nobody@example.com", "admin", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.SetRoleByEmail(context.Background(), "boss@example.com", types.RoleAdmin)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.SetRoleByEmail(context.Background(), "nobody@example.com", types.RoleAdmin)
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_classify(t *testing.T) {
	tcases := []struct {
		name     string
		err      error
		expected error
	}{
		{name: "no rows", err: sql.ErrNoRows, expected: types.ErrNotFound},
		{name: "insufficient privilege", err: &pq.Error{Code: "42501"}, expected: types.ErrPermissionDenied},
		{name: "unique violation", err: &pq.Error{Code: "23505"}, expected: types.ErrAlreadyExists},
		{name: "connection failure", err: &pq.Error{Code: "08006"}, expected: types.ErrNetworkUnavailable},
		{name: "admin shutdown", err: &pq.Error{Code: "57P01"}, expected: types.ErrNetworkUnavailable},
		{name: "bad conn", err: driver.ErrBadConn, expected: types.ErrNetworkUnavailable},
		{name: "conn done", err: fmt.Errorf("exec: %w", sql.ErrConnDone), expected: types.ErrNetworkUnavailable},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			err := classify(tc.err)
			assert.ErrorIs(t, err, tc.expected)
			assert.ErrorIs(t, err, tc.err, "expected original error to stay in the chain")
		})
	}

	assert.NoError(t, classify(nil))

	truncated := &pq.Error{Code: "22001"}
	assert.Same(t, truncated, classify(truncated), "expected unrelated pq errors to pass through")

	plain := errors.New("plain")
	assert.Equal(t, plain, classify(plain))
}
