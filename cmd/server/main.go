package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/npezzotti/go-roomboard/internal/api"
	"github.com/npezzotti/go-roomboard/internal/command"
	"github.com/npezzotti/go-roomboard/internal/config"
	"github.com/npezzotti/go-roomboard/internal/database"
	"github.com/npezzotti/go-roomboard/internal/directory"
	"github.com/npezzotti/go-roomboard/internal/logging"
	"github.com/npezzotti/go-roomboard/internal/notify"
	"github.com/npezzotti/go-roomboard/internal/server"
	"github.com/npezzotti/go-roomboard/internal/session"
	"github.com/npezzotti/go-roomboard/internal/stats"
	"github.com/npezzotti/go-roomboard/internal/types"
	"go.uber.org/zap"
)

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

func main() {
	envFile := flag.String("env-file", ".env", "optional file of ROOMBOARD_* variables")
	addr := flag.String("addr", "", "server address (overrides ROOMBOARD_ADDR)")
	dsn := flag.String("dsn", "", "database connection string (overrides ROOMBOARD_DATABASE_DSN)")
	var allowedOrigins stringSliceFlag
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *addr != "" {
		cfg.ServerAddr = *addr
	}
	if *dsn != "" {
		cfg.DatabaseDSN = *dsn
	}
	if len(allowedOrigins) > 0 {
		cfg.AllowedOrigins = allowedOrigins
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, "roomboard")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	os.Exit(finish(logger, run(logger, cfg)))
}

// finish logs how run ended and flushes the logger before the process exits.
func finish(logger *zap.Logger, err error) int {
	code := 0
	if err != nil {
		logger.Error("server exited", zap.Error(err))
		code = 1
	} else {
		logger.Info("shutdown complete")
	}

	_ = logger.Sync()
	return code
}

func run(logger *zap.Logger, cfg *config.Config) error {
	if err := database.Migrate(cfg.DatabaseDSN); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	repo, err := database.NewPgRoomBoardRepository(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("db close", zap.Error(err))
		}
	}()

	promoteAdmins(logger, repo, cfg.AdminEmails)

	feed, closeFeed, err := newFeed(logger, cfg, repo)
	if err != nil {
		return err
	}
	defer closeFeed()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(logger.Named("stats"), mux)
	statsUpdater.Run()
	defer statsUpdater.Stop()

	dir := directory.NewService(logger.Named("directory"), repo, feed)
	viewServer := server.NewViewServer(logger.Named("views"), dir, statsUpdater, cfg.Games)
	go viewServer.Run()

	sessions := session.NewManager(logger.Named("session"), repo, cfg.SigningKey, cfg.SessionTTL)
	unregister := sessions.OnAuthChange(func(p *types.Principal) {
		if p == nil {
			logger.Debug("signed out")
			return
		}
		logger.Debug("signed in", zap.Int("account_id", p.AccountId), zap.String("role", string(p.Role)))
	})
	defer unregister()

	cmd := command.NewService(logger.Named("command"), repo, feed)
	srv := api.NewRoomBoardApp(mux, logger.Named("api"), viewServer, repo, cmd, sessions, statsUpdater, cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigs:
		logger.Info("received signal", zap.String("signal", sig.String()))
	case serveErr = <-errCh:
		logger.Error("server", zap.Error(serveErr))
	}

	shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}

	logger.Info("shutting down view server")
	viewServer.Shutdown()

	if errors.Is(serveErr, http.ErrServerClosed) {
		return nil
	}
	return serveErr
}

// newFeed returns the configured change feed and a func releasing it.
func newFeed(logger *zap.Logger, cfg *config.Config, repo *database.PgRoomBoardRepository) (notify.Feed, func(), error) {
	switch cfg.Notifier {
	case config.NotifierRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}

		logger.Info("using redis change feed", zap.String("addr", cfg.RedisAddr))
		feed := notify.NewRedisFeed(logger.Named("feed"), client, cfg.RedisChannelPrefix)
		return feed, func() {
			feed.Close()
			if err := client.Close(); err != nil {
				logger.Error("redis close", zap.Error(err))
			}
		}, nil
	default:
		logger.Info("using postgres change feed")
		feed := notify.NewPgFeed(logger.Named("feed"), cfg.DatabaseDSN, repo.DB())
		return feed, func() {
			if err := feed.Close(); err != nil {
				logger.Error("feed close", zap.Error(err))
			}
		}, nil
	}
}

// promoteAdmins grants the admin role to configured accounts that exist.
func promoteAdmins(logger *zap.Logger, repo database.AccountRepository, emails []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, email := range emails {
		ok, err := repo.SetRoleByEmail(ctx, email, types.RoleAdmin)
		switch {
		case err != nil:
			logger.Error("promote admin", zap.String("email", email), zap.Error(err))
		case !ok:
			logger.Warn("admin account not registered yet", zap.String("email", email))
		default:
			logger.Info("admin promoted", zap.String("email", email))
		}
	}
}
