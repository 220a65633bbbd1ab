package folders

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
	"github.com/OkeleyeVickkk/day-one-one-day/internal/logging"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/models"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/notify"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/remote"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/repositories"
)

// VideoStore is the slice of video persistence the folder service touches.
type VideoStore interface {
	Get(ctx context.Context, ownerID, videoID string) (models.VideoRecord, error)
	List(ctx context.Context, query models.VideoQuery) ([]models.VideoRecord, error)
	UpdateFolder(ctx context.Context, ownerID, videoID string, folderID *string) error
	ClearFolder(ctx context.Context, ownerID, folderID string) (int64, error)
}

// IntentRecorder tracks remote-then-local writes.
type IntentRecorder interface {
	Create(ctx context.Context, intent models.Intent) error
	AttachRemote(ctx context.Context, intentID, remoteID string) error
	SetStatus(ctx context.Context, intentID string, status models.IntentStatus) error
}

// CreateInput describes a new folder. Empty color and icon take the defaults.
type CreateInput struct {
	Name      string
	Color     string
	Icon      string
	IsDefault bool
}

// Service keeps the owner's folders in step with the storage provider.
type Service struct {
	auth     auth.Collaborator
	store    remote.Store
	folders  repositories.FolderRepository
	videos   VideoStore
	intents  IntentRecorder
	notifier notify.Notifier

	newID func() string
	now   func() time.Time
}

// NewService wires the folder directory service. A nil notifier discards refresh events.
func NewService(collab auth.Collaborator, store remote.Store, folders repositories.FolderRepository, videos VideoStore, intents IntentRecorder, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Service{
		auth:     collab,
		store:    store,
		folders:  folders,
		videos:   videos,
		intents:  intents,
		notifier: notifier,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

func (s *Service) credentials(ctx context.Context) (string, string, error) {
	ownerID, err := s.auth.CurrentUserID(ctx)
	if err != nil {
		return "", "", err
	}
	token, err := s.auth.CurrentAccessToken(ctx)
	if err != nil {
		return "", "", err
	}
	return ownerID, token, nil
}

// CreateFolder creates the folder on the provider first, then records it.
func (s *Service) CreateFolder(ctx context.Context, in CreateInput) (models.Folder, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Folder{}, ErrInvalidName
	}

	ownerID, token, err := s.credentials(ctx)
	if err != nil {
		return models.Folder{}, err
	}
	logger := logging.FromContext(ctx)

	folder := models.Folder{
		ID:        s.newID(),
		UserID:    ownerID,
		Name:      name,
		Color:     valueOr(in.Color, models.DefaultFolderColor),
		Icon:      valueOr(in.Icon, models.DefaultFolderIcon),
		CreatedAt: s.now().UTC(),
	}

	payload, err := json.Marshal(folder)
	if err != nil {
		return models.Folder{}, fmt.Errorf("encode folder intent: %w", err)
	}
	intent := models.Intent{
		ID:        s.newID(),
		OwnerID:   ownerID,
		Kind:      models.IntentFolderCreate,
		Payload:   payload,
		CreatedAt: folder.CreatedAt,
	}
	if err := s.intents.Create(ctx, intent); err != nil {
		return models.Folder{}, fmt.Errorf("record folder intent: %w", err)
	}

	remoteID, err := s.store.CreateFolder(ctx, token, name)
	if err != nil {
		if serr := s.intents.SetStatus(context.WithoutCancel(ctx), intent.ID, models.IntentAbandoned); serr != nil {
			logger.Error("abandon folder intent", slog.String("intent_id", intent.ID), slog.Any("error", serr))
		}
		return models.Folder{}, &RemoteMutationError{Op: "create folder", Err: err}
	}
	if err := s.intents.AttachRemote(ctx, intent.ID, remoteID); err != nil {
		logger.Error("attach remote folder to intent", slog.String("intent_id", intent.ID), slog.Any("error", err))
	}

	folder.RemoteFolderID = remoteID
	if err := s.folders.Create(ctx, folder); err != nil {
		return models.Folder{}, &LocalPersistError{Op: "create folder", RemoteID: remoteID, Err: err}
	}
	if err := s.intents.SetStatus(ctx, intent.ID, models.IntentDone); err != nil {
		logger.Error("complete folder intent", slog.String("intent_id", intent.ID), slog.Any("error", err))
	}

	if in.IsDefault {
		if err := s.folders.SetDefault(ctx, ownerID, folder.ID); err != nil {
			return folder, &LocalPersistError{Op: "set default folder", Err: err}
		}
		folder.IsDefault = true
	}

	logger.Info("folder created", slog.String("folder_id", folder.ID), slog.String("remote_folder_id", remoteID))
	return folder, nil
}

// DeleteFolder removes the folder from the provider and locally. Its videos are moved to
// root on both sides first. Deleting a folder that no longer exists succeeds.
func (s *Service) DeleteFolder(ctx context.Context, folderID string) error {
	ownerID, err := s.auth.CurrentUserID(ctx)
	if err != nil {
		return err
	}

	folder, err := s.folders.Get(ctx, ownerID, folderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load folder: %w", err)
	}

	token, err := s.auth.CurrentAccessToken(ctx)
	if err != nil {
		return err
	}

	if err := s.evacuate(ctx, ownerID, token, folder); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, token, folder.RemoteFolderID); err != nil {
		return &RemoteMutationError{Op: "delete folder", Err: err}
	}

	if _, err := s.videos.ClearFolder(ctx, ownerID, folder.ID); err != nil {
		return &LocalPersistError{Op: "reassign videos to root", Err: err}
	}
	if err := s.folders.Delete(ctx, ownerID, folder.ID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return &LocalPersistError{Op: "delete folder", Err: err}
	}

	s.refresh(ctx, ownerID)
	logging.FromContext(ctx).Info("folder deleted", slog.String("folder_id", folder.ID))
	return nil
}

// evacuate moves every video of the folder to root so deleting the remote folder does not
// take the files with it.
func (s *Service) evacuate(ctx context.Context, ownerID, token string, folder models.Folder) error {
	folderID := folder.ID
	for {
		videos, err := s.videos.List(ctx, models.VideoQuery{OwnerID: ownerID, FolderID: &folderID, Limit: 500})
		if err != nil {
			return fmt.Errorf("list folder videos: %w", err)
		}
		if len(videos) == 0 {
			return nil
		}

		for _, v := range videos {
			if v.RemoteFileID != "" {
				err := s.store.Move(ctx, token, v.RemoteFileID, folder.RemoteFolderID, remote.Root)
				if err != nil && !errors.Is(err, remote.ErrNotFound) {
					return &RemoteMutationError{Op: "move video to root", Err: err}
				}
			}
			if err := s.videos.UpdateFolder(ctx, ownerID, v.ID, nil); err != nil {
				return &LocalPersistError{Op: "move video to root", Err: err}
			}
		}
	}
}

// MoveVideo files the video under target, or root when target is nil. The provider is
// updated first; if that fails the local record is left as it was.
func (s *Service) MoveVideo(ctx context.Context, videoID string, target *string) error {
	ownerID, err := s.auth.CurrentUserID(ctx)
	if err != nil {
		return err
	}

	video, err := s.videos.Get(ctx, ownerID, videoID)
	if err != nil {
		return fmt.Errorf("load video: %w", err)
	}
	if video.InFolder(target) {
		return nil
	}
	if video.RemoteFileID == "" {
		return ErrNotUploaded
	}

	from := remote.Root
	if video.FolderID != nil {
		prev, err := s.folders.Get(ctx, ownerID, *video.FolderID)
		switch {
		case err == nil:
			from = prev.RemoteFolderID
		case errors.Is(err, repositories.ErrNotFound):
		default:
			return fmt.Errorf("load current folder: %w", err)
		}
	}

	to := remote.Root
	if target != nil {
		next, err := s.folders.Get(ctx, ownerID, *target)
		if err != nil {
			return fmt.Errorf("load target folder: %w", err)
		}
		to = next.RemoteFolderID
	}

	token, err := s.auth.CurrentAccessToken(ctx)
	if err != nil {
		return err
	}

	if err := s.store.Move(ctx, token, video.RemoteFileID, from, to); err != nil {
		return &RemoteMutationError{Op: "move video", Err: err}
	}
	if err := s.videos.UpdateFolder(ctx, ownerID, video.ID, target); err != nil {
		return &LocalPersistError{Op: "move video", RemoteID: video.RemoteFileID, Err: err}
	}

	s.refresh(ctx, ownerID)
	return nil
}

// SetDefaultFolder makes the folder the owner's only default.
func (s *Service) SetDefaultFolder(ctx context.Context, folderID string) error {
	ownerID, err := s.auth.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	if err := s.folders.SetDefault(ctx, ownerID, folderID); err != nil {
		return fmt.Errorf("set default folder: %w", err)
	}
	return nil
}

// ListFolders returns the owner's folders, newest first, with video counts.
func (s *Service) ListFolders(ctx context.Context) ([]models.Folder, error) {
	ownerID, err := s.auth.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	folders, err := s.folders.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	return folders, nil
}

func (s *Service) refresh(ctx context.Context, ownerID string) {
	if err := s.notifier.VideosChanged(ctx, ownerID); err != nil {
		logging.FromContext(ctx).Warn("publish refresh event", slog.Any("error", err))
	}
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
