package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/teris-io/shortid"
)

type PgRoomBoardRepository struct {
	conn  *sql.DB
	newId func() (string, error)
	now   func() time.Time
}

func NewPgRoomBoardRepository(dsn string) (*PgRoomBoardRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", classify(err))
	}

	return NewPgRoomBoardRepositoryFromDB(db), nil
}

// NewPgRoomBoardRepositoryFromDB wraps an already opened connection pool.
func NewPgRoomBoardRepositoryFromDB(db *sql.DB) *PgRoomBoardRepository {
	return &PgRoomBoardRepository{
		conn:  db,
		newId: shortid.Generate,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (db *PgRoomBoardRepository) DB() *sql.DB {
	return db.conn
}

func (db *PgRoomBoardRepository) Ping(ctx context.Context) error {
	return classify(db.conn.PingContext(ctx))
}

func (db *PgRoomBoardRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
