package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/useradmin/internal/app"
	"github.com/odyssey-erp/useradmin/internal/audit"
	"github.com/odyssey-erp/useradmin/internal/auth"
	"github.com/odyssey-erp/useradmin/internal/observability"
	"github.com/odyssey-erp/useradmin/internal/platform/cache"
	"github.com/odyssey-erp/useradmin/internal/platform/db"
	"github.com/odyssey-erp/useradmin/internal/platform/validation"
	"github.com/odyssey-erp/useradmin/internal/users"
	"github.com/odyssey-erp/useradmin/jobs"
)

const usage = "usage: useradmin [serve|migrate]"

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	switch cmd {
	case "serve":
		err = serve(ctx, stop, cfg, logger)
	case "migrate":
		err = migrate(ctx, cfg, logger)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error(cmd+" failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func migrate(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}
	logger.Info("migrations applied")
	return nil
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	redisOpts := cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	redisClient, err := cache.New(ctx, redisOpts)
	if err != nil {
		logger.Warn("redis unavailable at startup", slog.Any("error", err))
		redisClient = redis.NewClient(&redis.Options{Addr: redisOpts.Addr, Password: redisOpts.Password, DB: redisOpts.DB})
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	recorder, closeRecorder := auditRecorder(cfg, pool, redisOpts)
	defer closeRecorder()

	tokens, err := auth.NewTokenService([]byte(cfg.JWTSecret), cfg.JWTTTL)
	if err != nil {
		return err
	}
	metrics := observability.NewMetrics()
	usersRepo := users.NewRepository(pool)

	authService := auth.NewService(usersRepo, auth.NewBcryptHasher(cfg.BcryptCost), tokens, recorder, metrics, logger)
	usersService := users.NewService(usersRepo, validation.New(), recorder, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		AuthHandler:    auth.NewHandler(logger, authService),
		UsersHandler:   users.NewHandler(logger, usersService),
		AuthMiddleware: auth.NewMiddleware(tokens, usersRepo, logger, metrics),
		Metrics:        metrics,
		Readiness: []app.ReadinessCheck{
			{Name: "postgres", Ping: pool.Ping},
			{Name: "redis", Ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("audit_sink", cfg.AuditSink))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	return nil
}

func auditRecorder(cfg *app.Config, pool *pgxpool.Pool, redisOpts cache.Options) (audit.Recorder, func()) {
	if cfg.AuditSink == app.AuditSinkQueue {
		client := jobs.NewClient(redisOpts.AsynqOpt())
		return client, func() { _ = client.Close() }
	}
	return audit.NewStore(pool), func() {}
}
