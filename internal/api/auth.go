package api

import (
	"net/http"
	"time"

	"github.com/npezzotti/go-roomboard/internal/session"
	"go.uber.org/zap"
)

const tokenCookieKey = "token"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func createTokenCookie(tokenString string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     tokenCookieKey,
		Value:    tokenString,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

func (s *RoomBoardApp) register(w http.ResponseWriter, r *http.Request) {
	var req session.RegisterParams
	if !s.decodeJson(w, r, &req) {
		return
	}

	sess, err := s.sessions.Register(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	http.SetCookie(w, createTokenCookie(sess.Token, sess.ExpiresAt))
	s.writeJson(w, http.StatusCreated, sess)
}

func (s *RoomBoardApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if !s.decodeJson(w, r, &lr) {
		return
	}

	if lr.Email == "" || lr.Password == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	sess, err := s.sessions.Create(r.Context(), lr.Email, lr.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}

	http.SetCookie(w, createTokenCookie(sess.Token, sess.ExpiresAt))
	s.writeJson(w, http.StatusOK, sess)
}

func (s *RoomBoardApp) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(tokenCookieKey); err == nil {
		if err := s.sessions.Destroy(c.Value); err != nil {
			s.log.Info("destroy session", zap.Error(err))
		}
	}

	// overwrite the cookie with an expired one so the browser drops it
	http.SetCookie(w, createTokenCookie("", time.Unix(0, 0)))
	w.WriteHeader(http.StatusNoContent)
}

func (s *RoomBoardApp) session(w http.ResponseWriter, r *http.Request) {
	p, ok := session.CurrentPrincipal(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	s.writeJson(w, http.StatusOK, p)
}
