package handlers

import (
	"context"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/auth"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/folders"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/models"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/videos"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/workflow"
)

// ProviderTokens stores and forgets the caller's storage provider token.
type ProviderTokens interface {
	Connect(ctx context.Context, token auth.Token) error
	SignOut(ctx context.Context) error
}

// FolderService captures the folder operations exposed over HTTP.
type FolderService interface {
	CreateFolder(ctx context.Context, in folders.CreateInput) (models.Folder, error)
	DeleteFolder(ctx context.Context, folderID string) error
	MoveVideo(ctx context.Context, videoID string, target *string) error
	SetDefaultFolder(ctx context.Context, folderID string) error
	ListFolders(ctx context.Context) ([]models.Folder, error)
}

// VideoService captures the operations on uploaded videos.
type VideoService interface {
	List(ctx context.Context, opts videos.ListOptions) ([]models.VideoRecord, error)
	Rename(ctx context.Context, videoID, title string) error
	SetVisibility(ctx context.Context, videoID string, public bool) error
	RecordView(ctx context.Context, videoID, viewerID string) (int64, error)
	Delete(ctx context.Context, videoID string) error
}

// WorkflowRunner runs one validate, compress and upload pass.
type WorkflowRunner interface {
	Run(ctx context.Context, req workflow.Request) (workflow.State, error)
}

// Syncer repairs interrupted remote writes.
type Syncer interface {
	SyncNow(ctx context.Context) (folders.Report, error)
}
