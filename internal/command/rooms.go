package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/npezzotti/go-roomboard/internal/database"
	"github.com/npezzotti/go-roomboard/internal/notify"
	"github.com/npezzotti/go-roomboard/internal/types"
	"go.uber.org/zap"
)

func (s *Service) CreateRoom(ctx context.Context, p types.Principal, fields types.RoomFields) (string, error) {
	fields = trimFields(fields)
	if err := validateRoomFields(fields); err != nil {
		return "", err
	}

	rooms, err := s.repo.CreateRooms(ctx, []database.CreateRoomParams{
		{RoomFields: fields, CreatedBy: p.EmailAddress},
	})
	if err != nil {
		return "", fmt.Errorf("create room: %w", err)
	}

	s.log.Info("room created",
		zap.String("id", rooms[0].Id),
		zap.String("tier", string(fields.Tier)),
		zap.String("created_by", p.EmailAddress),
	)
	s.publish(ctx, notify.TopicRooms)

	return rooms[0].Id, nil
}

// BulkCreate creates Count rooms named Prefix1..PrefixN sharing one password
// and tier. Either all rooms are created or none are.
func (s *Service) BulkCreate(ctx context.Context, p types.Principal, params types.BulkCreateParams) ([]string, error) {
	params.Prefix = strings.TrimSpace(params.Prefix)
	params.Game = strings.TrimSpace(params.Game)
	if err := validateBulk(params); err != nil {
		return nil, err
	}

	batch := make([]database.CreateRoomParams, 0, params.Count)
	for i := 1; i <= params.Count; i++ {
		batch = append(batch, database.CreateRoomParams{
			RoomFields: types.RoomFields{
				RoomId:   params.Prefix + strconv.Itoa(i),
				Password: params.Password,
				Tier:     params.Tier,
				Game:     params.Game,
			},
			CreatedBy: p.EmailAddress,
		})
	}

	rooms, err := s.repo.CreateRooms(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("bulk create rooms: %w", err)
	}

	ids := make([]string, len(rooms))
	for i, r := range rooms {
		ids[i] = r.Id
	}

	s.log.Info("rooms bulk created",
		zap.Int("count", len(ids)),
		zap.String("prefix", params.Prefix),
		zap.String("created_by", p.EmailAddress),
	)
	s.publish(ctx, notify.TopicRooms)

	return ids, nil
}

func (s *Service) DeleteRoom(ctx context.Context, id string) error {
	if err := required("id", id); err != nil {
		return err
	}

	if err := s.repo.DeleteRoom(ctx, id); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}

	s.log.Info("room deleted", zap.String("id", id))
	s.publish(ctx, notify.TopicRooms)
	return nil
}

func (s *Service) SetStatus(ctx context.Context, id string, status types.Status) error {
	if err := required("id", id); err != nil {
		return err
	}
	if !status.Valid() {
		return types.NewValidationError("status", fmt.Sprintf("must be %q or %q", types.StatusActive, types.StatusInactive))
	}

	if err := s.repo.SetRoomStatus(ctx, id, status); err != nil {
		return fmt.Errorf("set room status: %w", err)
	}

	s.publish(ctx, notify.TopicRooms)
	return nil
}

// ToggleStatus flips a room between active and inactive and returns the new
// status.
func (s *Service) ToggleStatus(ctx context.Context, id string) (types.Status, error) {
	if err := required("id", id); err != nil {
		return "", err
	}

	next, err := s.repo.ToggleRoomStatus(ctx, id)
	if err != nil {
		return "", fmt.Errorf("toggle room status: %w", err)
	}

	s.publish(ctx, notify.TopicRooms)
	return next, nil
}

func (s *Service) UpdateFields(ctx context.Context, id string, update types.RoomUpdate) error {
	if err := required("id", id); err != nil {
		return err
	}
	update = trimUpdate(update)
	if err := validateRoomUpdate(update); err != nil {
		return err
	}

	if err := s.repo.UpdateRoom(ctx, id, update); err != nil {
		return fmt.Errorf("update room: %w", err)
	}

	s.publish(ctx, notify.TopicRooms)
	return nil
}

func (s *Service) Stats(ctx context.Context) (types.DashboardStats, error) {
	counts, err := s.repo.CountRooms(ctx)
	if err != nil {
		return types.DashboardStats{}, fmt.Errorf("count rooms: %w", err)
	}

	employees, err := s.repo.CountAccountsByRole(ctx, types.RoleEmployee)
	if err != nil {
		return types.DashboardStats{}, fmt.Errorf("count employees: %w", err)
	}

	return types.DashboardStats{
		TotalRooms:  counts.Total,
		ActiveRooms: counts.Active,
		Employees:   employees,
	}, nil
}

func trimFields(f types.RoomFields) types.RoomFields {
	f.RoomId = strings.TrimSpace(f.RoomId)
	f.Game = strings.TrimSpace(f.Game)
	f.Tier = types.Tier(strings.TrimSpace(string(f.Tier)))
	return f
}

func trimUpdate(u types.RoomUpdate) types.RoomUpdate {
	if u.RoomId != nil {
		v := strings.TrimSpace(*u.RoomId)
		u.RoomId = &v
	}
	if u.Game != nil {
		v := strings.TrimSpace(*u.Game)
		u.Game = &v
	}
	if u.Tier != nil {
		v := types.Tier(strings.TrimSpace(string(*u.Tier)))
		u.Tier = &v
	}
	return u
}
