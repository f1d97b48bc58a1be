// Command inkpost-server starts the inkpost HTTP API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/redis/go-redis/v9"

	"github.com/Isma450/inkpost/internal/config"
	"github.com/Isma450/inkpost/internal/limiter"
	"github.com/Isma450/inkpost/internal/migrate"
	"github.com/Isma450/inkpost/internal/repository/postgres"
	"github.com/Isma450/inkpost/internal/server/httpapi"
	"github.com/Isma450/inkpost/internal/service"
	"github.com/Isma450/inkpost/internal/tokenstore"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations, and serves the HTTP API.
func main() {
	cfg := config.Load()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
	)

	if cfg.JWTKey == "" {
		logger.Fatal("missing jwt signing key (INKPOST_JWT_KEY)")
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DatabaseDSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	// DB pool
	db, err := postgres.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	userRepo := postgres.NewUserRepo(db)
	postRepo := postgres.NewPostRepo(db)

	// Refresh tokens live in Redis when configured, in Postgres otherwise.
	var tokens tokenstore.Store = tokenstore.NewPG(db.Pool)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("redis ping", zap.Error(err))
		}
		tokens = tokenstore.NewRedis(rdb)
		logger.Info("refresh tokens stored in redis", zap.String("addr", cfg.RedisAddr))
	}

	lim := limiter.NewPG(db.Pool, 15*time.Minute, 5, 15*time.Minute)

	// Services
	authSvc := service.NewAuthService(userRepo, tokens, []byte(cfg.JWTKey), cfg.AccessTTL, cfg.RefreshTTL, lim)
	postSvc := service.NewPostService(postRepo, userRepo)

	api := httpapi.New(authSvc, postSvc, []byte(cfg.JWTKey), logger)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
