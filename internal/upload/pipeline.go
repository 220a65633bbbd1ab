package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/auth"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/capture"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/logging"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/models"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/notify"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/remote"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/retry"
)

// FolderLookup resolves a local folder to its remote counterpart.
type FolderLookup interface {
	Get(ctx context.Context, ownerID, folderID string) (models.Folder, error)
}

// VideoWriter inserts video records.
type VideoWriter interface {
	Create(ctx context.Context, video models.VideoRecord) error
}

// IntentRecorder tracks remote-then-local writes.
type IntentRecorder interface {
	Create(ctx context.Context, intent models.Intent) error
	AttachRemote(ctx context.Context, intentID, remoteID string) error
	SetStatus(ctx context.Context, intentID string, status models.IntentStatus) error
}

// Stage marks a checkpoint reached during an upload.
type Stage int

const (
	StageAuthorized Stage = iota
	StageUploaded
	StagePersisted
)

// Destination describes where and how an upload is filed.
type Destination struct {
	Name         string
	MimeType     string
	FolderID     *string
	Title        string
	Caption      string
	Tags         []string
	IsPublic     bool
	OriginalSize int64
}

// Result is a successful upload.
type Result struct {
	Video    models.VideoRecord
	Attempts int
}

// Options tune the retry envelope around the remote call.
type Options struct {
	MaxAttempts int
	BaseBackoff time.Duration
}

// Pipeline uploads a blob to the remote provider and records it locally.
type Pipeline struct {
	auth     auth.Collaborator
	store    remote.Store
	folders  FolderLookup
	videos   VideoWriter
	intents  IntentRecorder
	notifier notify.Notifier
	opts     Options

	newID func() string
	now   func() time.Time
}

// NewPipeline wires an upload pipeline. A nil notifier discards refresh events.
func NewPipeline(collab auth.Collaborator, store remote.Store, folders FolderLookup, videos VideoWriter, intents IntentRecorder, notifier notify.Notifier, opts Options) *Pipeline {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 500 * time.Millisecond
	}
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Pipeline{
		auth:     collab,
		store:    store,
		folders:  folders,
		videos:   videos,
		intents:  intents,
		notifier: notifier,
		opts:     opts,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Upload runs one upload. progress may be nil.
func (p *Pipeline) Upload(ctx context.Context, blob capture.Blob, dest Destination, progress func(Stage)) (Result, error) {
	if progress == nil {
		progress = func(Stage) {}
	}

	ctx, span := logging.StartSpan(ctx, "upload")
	result, err := p.upload(ctx, blob, dest, progress)
	span.End(err)
	return result, err
}

func (p *Pipeline) upload(ctx context.Context, blob capture.Blob, dest Destination, progress func(Stage)) (Result, error) {
	logger := logging.FromContext(ctx)

	token, err := p.auth.CurrentAccessToken(ctx)
	if err != nil {
		return Result{}, err
	}
	ownerID, err := p.auth.CurrentUserID(ctx)
	if err != nil {
		return Result{}, err
	}
	progress(StageAuthorized)

	parentID := ""
	if dest.FolderID != nil {
		folder, err := p.folders.Get(ctx, ownerID, *dest.FolderID)
		if err != nil {
			return Result{}, fmt.Errorf("resolve destination folder: %w", err)
		}
		parentID = folder.RemoteFolderID
	}

	name := strings.TrimSpace(dest.Name)
	if name == "" {
		name = blob.Name
	}
	mimeType := dest.MimeType
	if mimeType == "" {
		mimeType = blob.MimeType
	}
	if mimeType == "" {
		mimeType = "video/mp4"
	}

	video := models.VideoRecord{
		ID:             p.newID(),
		OwnerID:        ownerID,
		FolderID:       dest.FolderID,
		Title:          titleOrDefault(dest.Title, p.now()),
		Caption:        dest.Caption,
		Tags:           dest.Tags,
		OriginalSize:   dest.OriginalSize,
		CompressedSize: blob.Size(),
		MimeType:       mimeType,
		IsPublic:       dest.IsPublic,
		Status:         models.VideoStatusCompleted,
		CreatedAt:      p.now().UTC(),
	}

	payload, err := json.Marshal(video)
	if err != nil {
		return Result{}, fmt.Errorf("encode upload intent: %w", err)
	}
	intent := models.Intent{
		ID:        p.newID(),
		OwnerID:   ownerID,
		Kind:      models.IntentVideoUpload,
		Payload:   payload,
		CreatedAt: video.CreatedAt,
	}
	if err := p.intents.Create(ctx, intent); err != nil {
		return Result{}, fmt.Errorf("record upload intent: %w", err)
	}

	attempts := 0
	fileID, err := retry.Do(ctx, retry.Policy{
		MaxAttempts: p.opts.MaxAttempts,
		BaseDelay:   p.opts.BaseBackoff,
		Permanent:   func(err error) bool { return errors.Is(err, remote.ErrAuthRejected) },
		OnRetry: func(attempt int, err error) {
			logger.Warn("upload attempt failed, retrying", slog.Int("attempt", attempt), slog.Any("error", err))
		},
	}, func(ctx context.Context, attempt int) (string, error) {
		attempts = attempt
		return p.store.UploadFile(ctx, token, remote.File{
			Name:     name,
			MimeType: mimeType,
			ParentID: parentID,
			Data:     blob.Data,
		})
	})
	if err != nil {
		p.abandon(ctx, intent.ID)
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			return Result{}, &UploadFailedError{Attempts: exhausted.Attempts, Err: exhausted.Err}
		}
		return Result{}, err
	}
	progress(StageUploaded)

	if err := p.intents.AttachRemote(ctx, intent.ID, fileID); err != nil {
		logger.Error("attach remote file to intent", slog.String("intent_id", intent.ID), slog.Any("error", err))
	}

	video.RemoteFileID = fileID
	if err := p.videos.Create(ctx, video); err != nil {
		return Result{}, &MetadataPersistError{RemoteFileID: fileID, Err: err}
	}

	if err := p.intents.SetStatus(ctx, intent.ID, models.IntentDone); err != nil {
		logger.Error("complete upload intent", slog.String("intent_id", intent.ID), slog.Any("error", err))
	}
	if err := p.notifier.VideosChanged(ctx, ownerID); err != nil {
		logger.Warn("publish refresh event", slog.Any("error", err))
	}
	progress(StagePersisted)

	logger.Info("video uploaded",
		slog.String("video_id", video.ID),
		slog.String("remote_file_id", fileID),
		slog.Int("attempts", attempts),
	)

	return Result{Video: video, Attempts: attempts}, nil
}

func (p *Pipeline) abandon(ctx context.Context, intentID string) {
	if err := p.intents.SetStatus(context.WithoutCancel(ctx), intentID, models.IntentAbandoned); err != nil {
		logging.FromContext(ctx).Error("abandon upload intent", slog.String("intent_id", intentID), slog.Any("error", err))
	}
}

func titleOrDefault(title string, now time.Time) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return "Video from " + now.Format("Jan 2, 2006")
}
