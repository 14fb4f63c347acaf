// Package command implements the write side of the room board. Every
// operation validates its input before touching the store and publishes a
// change notification after a successful write; callers observe the effect
// only through that notification.
package command

import (
	"context"

	"github.com/npezzotti/go-roomboard/internal/database"
	"github.com/npezzotti/go-roomboard/internal/notify"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const MaxBulkCount = 50

type Service struct {
	log  *zap.Logger
	repo database.RoomBoardRepository
	pub  notify.Publisher
	hash func(password string) (string, error)
}

func NewService(logger *zap.Logger, repo database.RoomBoardRepository, pub notify.Publisher) *Service {
	return &Service{
		log:  logger,
		repo: repo,
		pub:  pub,
		hash: hashPassword,
	}
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// publish reports a completed write. The write has already been committed,
// so a failed publish is logged rather than returned.
func (s *Service) publish(ctx context.Context, topic string) {
	if err := s.pub.Publish(ctx, topic); err != nil {
		s.log.Error("failed to publish change notification",
			zap.String("topic", topic),
			zap.Error(err),
		)
	}
}
