package videos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/auth"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/logging"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/models"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/notify"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/remote"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/repositories"
)

// ListOptions narrows a listing. Public lists the public feed instead of the caller's videos.
type ListOptions struct {
	Public   bool
	FolderID *string
	Root     bool
	Filter   models.VideoFilter
	Sort     models.VideoSort
	Search   string
	Limit    int
}

// Service exposes the operations on already uploaded videos.
type Service struct {
	auth     auth.Collaborator
	store    remote.Store
	videos   repositories.VideoRepository
	feed     *FeedCache
	notifier notify.Notifier
}

// NewService wires the video service. Public listings are cached for feedTTL.
func NewService(collab auth.Collaborator, store remote.Store, videos repositories.VideoRepository, notifier notify.Notifier, feedTTL time.Duration) *Service {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Service{
		auth:     collab,
		store:    store,
		videos:   videos,
		feed:     NewFeedCache(videos, feedTTL),
		notifier: notifier,
	}
}

// List returns the caller's videos, or the public feed when opts.Public is set.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]models.VideoRecord, error) {
	query := models.VideoQuery{
		FolderID: opts.FolderID,
		Root:     opts.Root,
		Filter:   opts.Filter,
		Sort:     opts.Sort,
		Search:   strings.TrimSpace(opts.Search),
		Limit:    opts.Limit,
	}

	if !opts.Public {
		ownerID, err := s.auth.CurrentUserID(ctx)
		if err != nil {
			return nil, err
		}
		query.OwnerID = ownerID
	}

	videos, err := s.feed.List(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	return videos, nil
}

// Rename changes the title of one of the caller's videos.
func (s *Service) Rename(ctx context.Context, videoID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrInvalidTitle
	}

	ownerID, err := s.auth.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	if err := s.videos.UpdateTitle(ctx, ownerID, videoID, title); err != nil {
		return fmt.Errorf("rename video: %w", err)
	}

	s.changed(ctx, ownerID)
	return nil
}

// SetVisibility publishes or hides one of the caller's videos.
func (s *Service) SetVisibility(ctx context.Context, videoID string, public bool) error {
	ownerID, err := s.auth.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	if err := s.videos.UpdateVisibility(ctx, ownerID, videoID, public); err != nil {
		return fmt.Errorf("update video visibility: %w", err)
	}

	s.changed(ctx, ownerID)
	return nil
}

// RecordView counts a view of a public video and returns the resulting count. Views by
// the owner are not counted. Private and unknown videos report repositories.ErrNotFound.
func (s *Service) RecordView(ctx context.Context, videoID, viewerID string) (int64, error) {
	video, err := s.videos.GetPublic(ctx, videoID)
	if err != nil {
		return 0, fmt.Errorf("load video: %w", err)
	}
	if viewerID != "" && viewerID == video.OwnerID {
		return video.ViewsCount, nil
	}

	views, err := s.videos.IncrementViews(ctx, videoID)
	if err != nil {
		return 0, fmt.Errorf("record view: %w", err)
	}
	return views, nil
}

// Delete removes one of the caller's videos. The provider file is deleted first on a
// best-effort basis; the record is removed even when that fails.
func (s *Service) Delete(ctx context.Context, videoID string) error {
	ownerID, err := s.auth.CurrentUserID(ctx)
	if err != nil {
		return err
	}

	video, err := s.videos.Get(ctx, ownerID, videoID)
	if err != nil {
		return fmt.Errorf("load video: %w", err)
	}

	logger := logging.FromContext(ctx)
	if video.RemoteFileID != "" {
		if err := s.deleteRemote(ctx, video.RemoteFileID); err != nil {
			logger.Warn("remote file delete failed",
				slog.String("video_id", videoID),
				slog.String("remote_file_id", video.RemoteFileID),
				slog.Any("error", err),
			)
		}
	}

	if err := s.videos.Delete(ctx, ownerID, videoID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("delete video: %w", err)
	}

	logger.Info("video deleted", slog.String("video_id", videoID))
	s.changed(ctx, ownerID)
	return nil
}

func (s *Service) deleteRemote(ctx context.Context, fileID string) error {
	token, err := s.auth.CurrentAccessToken(ctx)
	if err != nil {
		return err
	}
	return s.store.Delete(ctx, token, fileID)
}

// VideosChanged drops the cached public feed. The upload pipeline calls it once a new
// record is saved.
func (s *Service) VideosChanged(context.Context, string) error {
	s.feed.Invalidate()
	return nil
}

func (s *Service) changed(ctx context.Context, ownerID string) {
	s.feed.Invalidate()
	if err := s.notifier.VideosChanged(ctx, ownerID); err != nil {
		logging.FromContext(ctx).Warn("publish video refresh", slog.Any("error", err))
	}
}
