package repositories

import (
	"context"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/models"
)

// FolderRepository defines data access for an owner's folders.
type FolderRepository interface {
	Create(ctx context.Context, folder models.Folder) error
	Get(ctx context.Context, ownerID, folderID string) (models.Folder, error)
	List(ctx context.Context, ownerID string) ([]models.Folder, error)
	ExistsByRemoteFolder(ctx context.Context, ownerID, remoteFolderID string) (bool, error)
	SetDefault(ctx context.Context, ownerID, folderID string) error
	Delete(ctx context.Context, ownerID, folderID string) error
}

// IntentRepository stores saga intents for remote-then-local writes.
type IntentRepository interface {
	Create(ctx context.Context, intent models.Intent) error
	AttachRemote(ctx context.Context, intentID, remoteID string) error
	SetStatus(ctx context.Context, intentID string, status models.IntentStatus) error
	ListPending(ctx context.Context, limit int) ([]models.Intent, error)
}
