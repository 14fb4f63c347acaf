package api

import (
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/npezzotti/go-roomboard/internal/catalog"
	"github.com/npezzotti/go-roomboard/internal/live"
	"github.com/npezzotti/go-roomboard/internal/session"
	"github.com/npezzotti/go-roomboard/internal/stats"
	"github.com/npezzotti/go-roomboard/internal/types"
	"go.uber.org/zap"
)

// AdminRoom is a room as listed on the management dashboard.
type AdminRoom struct {
	types.Room
	TierName string `json:"tier_name"`
	TimeAgo  string `json:"time_ago"`
}

type StatusRequest struct {
	Status types.Status `json:"status"`
}

// listRooms returns a one-shot projection of a game's active rooms in the
// same shape the live view streams.
func (s *RoomBoardApp) listRooms(w http.ResponseWriter, r *http.Request) {
	game := r.URL.Query().Get("game")
	if game == "" {
		s.writeError(w, types.NewValidationError("game", "cannot be empty"))
		return
	}
	if !slices.Contains(s.games, game) {
		s.writeError(w, NewNotFoundError())
		return
	}

	filter := types.RoomFilter{Game: game, Status: types.StatusActive}
	rooms, err := s.repo.ListRooms(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}

	ev := live.Event{Game: game, State: live.StateEmpty}
	if buckets := catalog.Project(rooms, filter); len(buckets) > 0 {
		ev.State = live.StateReady
		ev.Buckets = buckets
	}

	s.writeJson(w, http.StatusOK, ev)
}

func (s *RoomBoardApp) joinInstructions(w http.ResponseWriter, r *http.Request) {
	room, err := s.repo.GetRoom(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if room.Status != types.StatusActive {
		s.writeError(w, NewNotFoundError())
		return
	}

	text, err := catalog.JoinInstructions(room)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(text))
}

func (s *RoomBoardApp) adminListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.repo.ListRecentRooms(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	now := time.Now()
	resp := make([]AdminRoom, 0, len(rooms))
	for _, room := range rooms {
		resp = append(resp, AdminRoom{
			Room:     room,
			TierName: tierName(room.Tier),
			TimeAgo:  catalog.TimeAgo(now, room.CreatedAt),
		})
	}

	s.writeJson(w, http.StatusOK, resp)
}

func tierName(tier types.Tier) string {
	if info, ok := catalog.Lookup(tier); ok {
		return info.DisplayName
	}
	return "Unknown"
}

func (s *RoomBoardApp) createRoom(w http.ResponseWriter, r *http.Request) {
	var fields types.RoomFields
	if !s.decodeJson(w, r, &fields) {
		return
	}

	p, _ := session.CurrentPrincipal(r.Context())
	id, err := s.cmd.CreateRoom(r.Context(), p, fields)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.stats.Incr(stats.RoomWrites)
	s.writeJson(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *RoomBoardApp) bulkCreateRooms(w http.ResponseWriter, r *http.Request) {
	var params types.BulkCreateParams
	if !s.decodeJson(w, r, &params) {
		return
	}

	p, _ := session.CurrentPrincipal(r.Context())
	ids, err := s.cmd.BulkCreate(r.Context(), p, params)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.stats.Incr(stats.RoomWrites)
	s.writeJson(w, http.StatusCreated, map[string][]string{"ids": ids})
}

func (s *RoomBoardApp) updateRoom(w http.ResponseWriter, r *http.Request) {
	var update types.RoomUpdate
	if !s.decodeJson(w, r, &update) {
		return
	}

	if err := s.cmd.UpdateFields(r.Context(), r.PathValue("id"), update); err != nil {
		s.writeError(w, err)
		return
	}

	s.stats.Incr(stats.RoomWrites)
	w.WriteHeader(http.StatusNoContent)
}

func (s *RoomBoardApp) setRoomStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !s.decodeJson(w, r, &req) {
		return
	}

	if err := s.cmd.SetStatus(r.Context(), r.PathValue("id"), req.Status); err != nil {
		s.writeError(w, err)
		return
	}

	s.stats.Incr(stats.RoomWrites)
	w.WriteHeader(http.StatusNoContent)
}

func (s *RoomBoardApp) toggleRoomStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.cmd.ToggleStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.stats.Incr(stats.RoomWrites)
	s.writeJson(w, http.StatusOK, StatusRequest{Status: status})
}

func (s *RoomBoardApp) deleteRoom(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.cmd.DeleteRoom(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}

	p, _ := session.CurrentPrincipal(r.Context())
	s.log.Info("room deleted by staff", zap.String("id", id), zap.Int("account_id", p.AccountId))
	s.stats.Incr(stats.RoomWrites)
	w.WriteHeader(http.StatusNoContent)
}

func (s *RoomBoardApp) dashboardStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.cmd.Stats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, st)
}

func (s *RoomBoardApp) listEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := s.cmd.ListEmployees(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	if employees == nil {
		employees = []types.Account{}
	}
	s.writeJson(w, http.StatusOK, employees)
}

func (s *RoomBoardApp) addEmployee(w http.ResponseWriter, r *http.Request) {
	var params types.EmployeeParams
	if !s.decodeJson(w, r, &params) {
		return
	}

	account, err := s.cmd.AddEmployee(r.Context(), params)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusCreated, account)
}

func (s *RoomBoardApp) removeEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	if err := s.cmd.RemoveEmployee(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
