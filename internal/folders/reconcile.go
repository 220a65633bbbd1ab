package folders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/logging"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/models"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/repositories"
)

// PendingIntents lists and settles saga intents.
type PendingIntents interface {
	ListPending(ctx context.Context, limit int) ([]models.Intent, error)
	SetStatus(ctx context.Context, intentID string, status models.IntentStatus) error
}

// FolderAdopter records folders left behind by an interrupted create.
type FolderAdopter interface {
	Create(ctx context.Context, folder models.Folder) error
	ExistsByRemoteFolder(ctx context.Context, ownerID, remoteFolderID string) (bool, error)
}

// VideoAdopter records videos left behind by an interrupted upload.
type VideoAdopter interface {
	Create(ctx context.Context, video models.VideoRecord) error
	ExistsByRemoteFile(ctx context.Context, ownerID, remoteFileID string) (bool, error)
}

// Report summarises one sync pass.
type Report struct {
	Adopted   int
	Completed int
	Abandoned int
	Failed    int
}

// ReconcilerConfig tunes the background sync loop.
type ReconcilerConfig struct {
	Interval  time.Duration
	MinAge    time.Duration
	BatchSize int
}

// Reconciler repairs remote writes whose local record was never saved. Every pass is
// idempotent: an intent whose row already exists is only marked done.
type Reconciler struct {
	intents PendingIntents
	folders FolderAdopter
	videos  VideoAdopter
	cfg     ReconcilerConfig
	logger  *slog.Logger
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	start  sync.Once
	once   sync.Once
}

// NewReconciler constructs a reconciler. Call Start to run it in the background.
func NewReconciler(intents PendingIntents, folders FolderAdopter, videos VideoAdopter, cfg ReconcilerConfig, logger *slog.Logger) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.MinAge < 0 {
		cfg.MinAge = 0
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Reconciler{
		intents: intents,
		folders: folders,
		videos:  videos,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// SyncNow runs one pass over pending intents older than the configured minimum age.
func (r *Reconciler) SyncNow(ctx context.Context) (Report, error) {
	ctx, span := logging.StartSpan(logging.WithLogger(ctx, r.logger), "reconcile")
	report, err := r.sync(ctx)
	span.End(err)
	return report, err
}

func (r *Reconciler) sync(ctx context.Context) (Report, error) {
	var report Report

	pending, err := r.intents.ListPending(ctx, r.cfg.BatchSize)
	if err != nil {
		return report, fmt.Errorf("list pending intents: %w", err)
	}

	cutoff := r.now().Add(-r.cfg.MinAge)
	logger := logging.FromContext(ctx)

	for _, intent := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if intent.CreatedAt.After(cutoff) {
			continue
		}

		status, adopted, err := r.settle(ctx, intent)
		if err != nil {
			report.Failed++
			logger.Error("reconcile intent", slog.String("intent_id", intent.ID), slog.String("kind", string(intent.Kind)), slog.Any("error", err))
			continue
		}
		if err := r.intents.SetStatus(ctx, intent.ID, status); err != nil {
			report.Failed++
			logger.Error("settle intent", slog.String("intent_id", intent.ID), slog.Any("error", err))
			continue
		}

		switch {
		case status == models.IntentAbandoned:
			report.Abandoned++
		case adopted:
			report.Adopted++
		default:
			report.Completed++
		}
	}

	logger.Info("reconcile pass finished",
		slog.Int("adopted", report.Adopted),
		slog.Int("completed", report.Completed),
		slog.Int("abandoned", report.Abandoned),
		slog.Int("failed", report.Failed),
	)
	return report, nil
}

// settle decides the final status of one intent and writes the missing row if needed.
func (r *Reconciler) settle(ctx context.Context, intent models.Intent) (models.IntentStatus, bool, error) {
	if intent.RemoteID == "" {
		return models.IntentAbandoned, false, nil
	}

	switch intent.Kind {
	case models.IntentFolderCreate:
		var folder models.Folder
		if err := json.Unmarshal(intent.Payload, &folder); err != nil {
			return "", false, fmt.Errorf("decode folder payload: %w", err)
		}
		exists, err := r.folders.ExistsByRemoteFolder(ctx, intent.OwnerID, intent.RemoteID)
		if err != nil {
			return "", false, err
		}
		if exists {
			return models.IntentDone, false, nil
		}
		folder.UserID = intent.OwnerID
		folder.RemoteFolderID = intent.RemoteID
		folder.IsDefault = false
		if err := r.folders.Create(ctx, folder); err != nil && !errors.Is(err, repositories.ErrConflict) {
			return "", false, err
		}
		return models.IntentDone, true, nil

	case models.IntentVideoUpload:
		var video models.VideoRecord
		if err := json.Unmarshal(intent.Payload, &video); err != nil {
			return "", false, fmt.Errorf("decode video payload: %w", err)
		}
		exists, err := r.videos.ExistsByRemoteFile(ctx, intent.OwnerID, intent.RemoteID)
		if err != nil {
			return "", false, err
		}
		if exists {
			return models.IntentDone, false, nil
		}
		video.OwnerID = intent.OwnerID
		video.RemoteFileID = intent.RemoteID
		video.Status = models.VideoStatusCompleted

		err = r.videos.Create(ctx, video)
		if errors.Is(err, repositories.ErrNotFound) && video.FolderID != nil {
			// The destination folder is gone; the video lands in root.
			video.FolderID = nil
			err = r.videos.Create(ctx, video)
		}
		if err != nil && !errors.Is(err, repositories.ErrConflict) {
			return "", false, err
		}
		return models.IntentDone, true, nil

	default:
		return "", false, fmt.Errorf("unknown intent kind %q", intent.Kind)
	}
}

// Start runs SyncNow on the configured interval until Shutdown.
func (r *Reconciler) Start() {
	r.start.Do(func() {
		r.wg.Add(1)
		go r.loop()
	})
}

func (r *Reconciler) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.SyncNow(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.logger.Error("background reconcile failed", slog.Any("error", err))
			}
		}
	}
}

// Shutdown stops the background loop and waits for an in-flight pass to finish.
func (r *Reconciler) Shutdown(ctx context.Context) error {
	r.once.Do(r.cancel)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
