package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/npezzotti/go-roomboard/internal/command"
	"github.com/npezzotti/go-roomboard/internal/config"
	"github.com/npezzotti/go-roomboard/internal/database"
	"github.com/npezzotti/go-roomboard/internal/server"
	"github.com/npezzotti/go-roomboard/internal/session"
	"github.com/npezzotti/go-roomboard/internal/stats"
	"go.uber.org/zap"
)

type RoomBoardApp struct {
	log            *zap.Logger
	repo           database.RoomBoardRepository
	cmd            *command.Service
	sessions       *session.Manager
	vs             *server.ViewServer
	stats          stats.StatsProvider
	srv            *http.Server
	allowedOrigins []string
	games          []string
}

func NewRoomBoardApp(
	mux *http.ServeMux,
	logger *zap.Logger,
	vs *server.ViewServer,
	repo database.RoomBoardRepository,
	cmd *command.Service,
	sessions *session.Manager,
	sp stats.StatsProvider,
	cfg *config.Config,
) *RoomBoardApp {
	s := &RoomBoardApp{
		log:            logger,
		repo:           repo,
		cmd:            cmd,
		sessions:       sessions,
		vs:             vs,
		stats:          sp,
		allowedOrigins: cfg.AllowedOrigins,
		games:          cfg.Games,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)

	mux.HandleFunc("POST /api/auth/register", s.register)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.HandleFunc("GET /api/auth/logout", s.authMiddleware(s.logout))

	mux.HandleFunc("GET /api/rooms", s.authMiddleware(s.listRooms))
	mux.HandleFunc("GET /api/rooms/{id}/join", s.authMiddleware(s.joinInstructions))

	mux.HandleFunc("GET /api/admin/rooms", s.authMiddleware(s.requireStaff(s.adminListRooms)))
	mux.HandleFunc("GET /api/admin/rooms/export", s.authMiddleware(s.requireStaff(s.exportRooms)))
	mux.HandleFunc("POST /api/admin/rooms", s.authMiddleware(s.requireStaff(s.createRoom)))
	mux.HandleFunc("POST /api/admin/rooms/bulk", s.authMiddleware(s.requireStaff(s.bulkCreateRooms)))
	mux.HandleFunc("PUT /api/admin/rooms/{id}", s.authMiddleware(s.requireStaff(s.updateRoom)))
	mux.HandleFunc("PUT /api/admin/rooms/{id}/status", s.authMiddleware(s.requireStaff(s.setRoomStatus)))
	mux.HandleFunc("POST /api/admin/rooms/{id}/toggle", s.authMiddleware(s.requireStaff(s.toggleRoomStatus)))
	mux.HandleFunc("DELETE /api/admin/rooms/{id}", s.authMiddleware(s.requireStaff(s.deleteRoom)))
	mux.HandleFunc("GET /api/admin/stats", s.authMiddleware(s.requireStaff(s.dashboardStats)))

	mux.HandleFunc("GET /api/admin/employees", s.authMiddleware(s.requireAdmin(s.listEmployees)))
	mux.HandleFunc("POST /api/admin/employees", s.authMiddleware(s.requireAdmin(s.addEmployee)))
	mux.HandleFunc("DELETE /api/admin/employees/{id}", s.authMiddleware(s.requireAdmin(s.removeEmployee)))

	mux.HandleFunc("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = handlers.CombinedLoggingHandler(zap.NewStdLog(logger).Writer(), h)
	h = s.errorHandler(h)

	s.srv = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return s
}

func (s *RoomBoardApp) Start() error {
	s.log.Info("starting server", zap.String("addr", s.srv.Addr))
	return s.srv.ListenAndServe()
}

func (s *RoomBoardApp) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
