package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/auth"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/capture"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/compress"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/config"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/db"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/folders"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/handlers"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/middleware"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/notify"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/remote"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/remote/drive"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/repositories"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/storage"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/upload"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/videos"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/workflow"
)

// services holds the wired core shared by the HTTP server and the CLI commands.
type services struct {
	auth       *auth.Manager
	store      remote.Store
	runner     *workflow.Runner
	runs       *workflow.ActiveRuns
	folders    *folders.Service
	videos     *videos.Service
	reconciler *folders.Reconciler
	preset     compress.Preset
}

// buildServices wires together concrete implementations of the journal core.
func buildServices(ctx context.Context, pool db.Pool, rdb redis.Cmdable, cfg config.Config, logger *slog.Logger) (*services, error) {
	preset, err := compress.ParsePreset(cfg.Compression.DefaultPreset)
	if err != nil {
		return nil, fmt.Errorf("default compression preset: %w", err)
	}

	store, err := newRemoteStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	videoRepo := repositories.NewPostgresVideoRepository(pool)
	folderRepo := repositories.NewPostgresFolderRepository(pool)
	intents := repositories.NewPostgresIntentStore(pool)

	manager := auth.NewManager(auth.NewRedisTokenStore(rdb))
	notifier := notify.NewRedisPublisher(rdb, cfg.Redis.RefreshChannel)

	mode := compress.Reject
	if cfg.Compression.QueueWhenBusy {
		mode = compress.Queue
	}
	engine := compress.NewEngine(compress.NewFFmpegLoader(cfg.Capture.FFmpegPath, cfg.Compression.ScratchDir), mode)
	prober := capture.NewFFProbe(cfg.Capture.FFprobePath, cfg.Capture.ProbeTimeout)

	videoSvc := videos.NewService(manager, store, videoRepo, notifier, cfg.FeedCacheTTL)
	pipeline := upload.NewPipeline(manager, store, folderRepo, videoRepo, intents, notify.Fanout{notifier, videoSvc}, upload.Options{
		MaxAttempts: cfg.Upload.MaxAttempts,
		BaseBackoff: cfg.Upload.BaseBackoff,
	})

	observer := func(s workflow.State) {
		logger.Debug("workflow state", slog.String("phase", string(s.Phase)), slog.Int("progress", s.Progress))
	}

	return &services{
		auth:    manager,
		store:   store,
		runner:  workflow.NewRunner(manager, prober, engine, pipeline, cfg.Capture.MaxDuration, observer),
		runs:    workflow.NewActiveRuns(),
		folders: folders.NewService(manager, store, folderRepo, videoRepo, intents, notifier),
		videos:  videoSvc,
		reconciler: folders.NewReconciler(intents, folderRepo, videoRepo, folders.ReconcilerConfig{
			Interval:  cfg.Reconcile.Interval,
			MinAge:    cfg.Reconcile.MinAge,
			BatchSize: cfg.Reconcile.BatchSize,
		}, logger),
		preset: preset,
	}, nil
}

func newRemoteStore(ctx context.Context, cfg config.Config) (remote.Store, error) {
	switch strings.ToLower(cfg.Remote.Backend) {
	case "s3":
		store, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
		if err != nil {
			return nil, fmt.Errorf("configure s3 store: %w", err)
		}
		return store, nil
	case "drive", "":
		return drive.NewClient(cfg.Remote.DriveAPIURL, cfg.Remote.DriveUploadURL, nil, cfg.Remote.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown remote backend %q", cfg.Remote.Backend)
	}
}

// handlerDependencies exposes the services to the HTTP handlers.
func (s *services) handlerDependencies(cfg config.Config, checks map[string]handlers.HealthCheck) handlers.Dependencies {
	return handlers.Dependencies{
		Tokens:         s.auth,
		Folders:        s.folders,
		Videos:         s.videos,
		Runner:         s.runner,
		Runs:           s.runs,
		Syncer:         s.reconciler,
		Limiter:        newLimiter(cfg.RateLimit),
		HealthChecks:   checks,
		MaxUploadBytes: cfg.Upload.MaxBytes,
		DefaultPreset:  s.preset,
	}
}

func newLimiter(cfg config.RateLimitConfig) *middleware.ScopedLimiter {
	return middleware.NewScopedLimiter(middleware.Policy{
		Requests: cfg.Requests,
		Window:   cfg.Window,
		Burst:    cfg.Burst,
	}, 0).WithScope(handlers.ScopeUpload, middleware.Policy{
		Requests: cfg.UploadRequests,
		Window:   cfg.Window,
		Burst:    cfg.UploadBurst,
	})
}
