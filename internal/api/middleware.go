package api

import (
	"fmt"
	"net/http"

	"github.com/npezzotti/go-roomboard/internal/session"
	"github.com/npezzotti/go-roomboard/internal/types"
	"go.uber.org/zap"
)

func (s *RoomBoardApp) errorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				var panicError error
				switch e := err.(type) {
				case error:
					panicError = e
				default:
					panicError = fmt.Errorf("%v", e)
				}
				s.log.Error("panic", zap.Error(panicError), zap.String("path", r.URL.Path))
				errResp := NewInternalServerError(panicError)
				w.Header().Set("Connection", "close")
				s.writeJson(w, errResp.StatusCode, errResp)
				return
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (s *RoomBoardApp) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenCookie, err := r.Cookie(tokenCookieKey)
		if err != nil {
			s.writeError(w, NewUnauthorizedError())
			return
		}

		p, err := s.sessions.Verify(r.Context(), tokenCookie.Value)
		if err != nil {
			s.log.Info("failed to verify session token", zap.Error(err))
			s.writeError(w, err)
			return
		}

		ctx := session.WithPrincipal(r.Context(), p)
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")

		next(w, r.WithContext(ctx))
	}
}

func (s *RoomBoardApp) requireRole(allowed func(types.Role) bool, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := session.CurrentPrincipal(r.Context())
		if !ok {
			s.writeError(w, NewUnauthorizedError())
			return
		}
		if !allowed(p.Role) {
			s.log.Info("forbidden",
				zap.Int("account_id", p.AccountId),
				zap.String("role", string(p.Role)),
				zap.String("path", r.URL.Path),
			)
			s.writeError(w, NewForbiddenError())
			return
		}

		next(w, r)
	}
}

// requireStaff admits admins and employees.
func (s *RoomBoardApp) requireStaff(next http.HandlerFunc) http.HandlerFunc {
	return s.requireRole(types.Role.IsStaff, next)
}

func (s *RoomBoardApp) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireRole(func(r types.Role) bool { return r == types.RoleAdmin }, next)
}
