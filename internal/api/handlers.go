package api

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-roomboard/internal/session"
	"go.uber.org/zap"
)

func (s *RoomBoardApp) writeJson(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("json encode", zap.Error(err))
	}
}

func (s *RoomBoardApp) writeError(w http.ResponseWriter, err error) {
	errResp := errorFor(err)
	if errResp.StatusCode >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.Int("status", errResp.StatusCode), zap.Error(err))
	}
	s.writeJson(w, errResp.StatusCode, errResp)
}

// decodeJson reads a JSON request body into v and writes a 400 on failure.
func (s *RoomBoardApp) decodeJson(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, NewBadRequestError())
		return false
	}
	return true
}

func (s *RoomBoardApp) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Ping(r.Context()); err != nil {
		s.log.Error("health check failed", zap.Error(err))
		s.writeError(w, NewInternalServerError(err))
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *RoomBoardApp) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	return slices.Contains(s.allowedOrigins, origin)
}

func (s *RoomBoardApp) serveWs(w http.ResponseWriter, r *http.Request) {
	p, ok := session.CurrentPrincipal(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: s.checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Info("error upgrading connection", zap.Error(err))
		return
	}

	s.vs.Serve(p, conn)
}
