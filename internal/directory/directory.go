// Package directory binds the room store and the change feed into the
// query/subscribe surface consumed by live views.
package directory

import (
	"context"
	"fmt"

	"github.com/npezzotti/go-roomboard/internal/database"
	"github.com/npezzotti/go-roomboard/internal/live"
	"github.com/npezzotti/go-roomboard/internal/notify"
	"github.com/npezzotti/go-roomboard/internal/types"
	"go.uber.org/zap"
)

type Service struct {
	log  *zap.Logger
	repo database.RoomRepository
	feed notify.Feed
}

func NewService(logger *zap.Logger, repo database.RoomRepository, feed notify.Feed) *Service {
	return &Service{
		log:  logger,
		repo: repo,
		feed: feed,
	}
}

func (s *Service) Query(ctx context.Context, filter types.RoomFilter) ([]types.Room, error) {
	rooms, err := s.repo.ListRooms(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	return rooms, nil
}

// Subscribe calls onChange once for the initial snapshot and again after
// every room write. Room notifications are coarse, so filter is not used to
// narrow delivery.
func (s *Service) Subscribe(ctx context.Context, filter types.RoomFilter, onChange func()) (live.Subscription, error) {
	sub, err := s.feed.Subscribe(ctx, notify.TopicRooms, onChange)
	if err != nil {
		return nil, fmt.Errorf("subscribe rooms: %w", err)
	}

	s.log.Debug("directory subscription opened",
		zap.String("game", filter.Game),
		zap.String("status", string(filter.Status)),
	)

	onChange()
	return sub, nil
}
