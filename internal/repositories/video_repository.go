package repositories

import (
	"context"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/models"
)

// VideoRepository exposes data access for journal videos. Every owner-scoped method
// ignores rows that belong to other owners.
type VideoRepository interface {
	Create(ctx context.Context, video models.VideoRecord) error
	Get(ctx context.Context, ownerID, videoID string) (models.VideoRecord, error)
	GetPublic(ctx context.Context, videoID string) (models.VideoRecord, error)
	List(ctx context.Context, query models.VideoQuery) ([]models.VideoRecord, error)
	ExistsByRemoteFile(ctx context.Context, ownerID, remoteFileID string) (bool, error)
	UpdateFolder(ctx context.Context, ownerID, videoID string, folderID *string) error
	UpdateTitle(ctx context.Context, ownerID, videoID, title string) error
	UpdateVisibility(ctx context.Context, ownerID, videoID string, public bool) error
	IncrementViews(ctx context.Context, videoID string) (int64, error)
	ClearFolder(ctx context.Context, ownerID, folderID string) (int64, error)
	Delete(ctx context.Context, ownerID, videoID string) error
}
