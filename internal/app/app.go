package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/auth"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/config"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/db"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/handlers"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/httpserver"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/logging"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/middleware"
)

// Run bootstraps the daily video journal service or one of its commands.
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected command: serve, migrate, seed, upload, record, or reconcile")
	}

	switch args[0] {
	case "serve":
		return serve(ctx)
	case "migrate":
		return runMigrations(ctx, args[1:])
	case "seed":
		return runSeed(ctx, args[1:])
	case "upload":
		return runUpload(ctx, args[1:])
	case "record":
		return runRecord(ctx, args[1:])
	case "reconcile":
		return runReconcile(ctx)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// process is the process-wide state shared by every command.
type process struct {
	cfg    config.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
	redis  *redis.Client
	svc    *services
}

func bootstrap(ctx context.Context) (*process, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DatabaseMax)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	svc, err := buildServices(ctx, pool, rdb, cfg, logger)
	if err != nil {
		_ = rdb.Close()
		pool.Close()
		return nil, err
	}

	return &process{cfg: cfg, logger: logger, pool: pool, redis: rdb, svc: svc}, nil
}

func (p *process) close() {
	if err := p.redis.Close(); err != nil {
		p.logger.Warn("close redis client", "error", err)
	}
	p.pool.Close()
}

func serve(ctx context.Context) error {
	p, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer p.close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]handlers.HealthCheck{
		"database": p.pool.Ping,
		"redis":    func(ctx context.Context) error { return p.redis.Ping(ctx).Err() },
	}

	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, p.svc.handlerDependencies(p.cfg, checks))

	srv := httpserver.New(auth.Identity(middleware.RequestLogger(p.logger)(mux)), httpserver.Options{
		Port:            p.cfg.AppPort,
		WriteTimeout:    p.cfg.WriteTimeout,
		ShutdownTimeout: p.cfg.DrainTimeout,
	})
	srv.OnShutdown(p.svc.reconciler.Shutdown)

	p.svc.reconciler.Start()
	p.logger.Info("starting http server", "port", p.cfg.AppPort, "remote_backend", p.cfg.Remote.Backend)

	err = srv.Serve(ctx)
	p.logger.Info("server stopped")
	return err
}
