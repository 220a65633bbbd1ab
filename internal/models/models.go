package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// VideoStatus tracks where a journal video is in its lifecycle.
type VideoStatus string

const (
	VideoStatusPending     VideoStatus = "pending"
	VideoStatusCompressing VideoStatus = "compressing"
	VideoStatusUploading   VideoStatus = "uploading"
	VideoStatusCompleted   VideoStatus = "completed"
	VideoStatusFailed      VideoStatus = "failed"
)

var statusOrder = map[VideoStatus]int{
	VideoStatusPending:     0,
	VideoStatusCompressing: 1,
	VideoStatusUploading:   2,
	VideoStatusCompleted:   3,
}

// CanTransitionStatus reports whether a record may move from one status to another.
// Statuses only move forward, except that any non-terminal status may fail. A failed
// record stays failed until it is retried manually (retry resets to pending).
func CanTransitionStatus(from, to VideoStatus) bool {
	if from == VideoStatusFailed {
		return to == VideoStatusPending
	}
	if to == VideoStatusFailed {
		return from != VideoStatusCompleted
	}
	fromRank, okFrom := statusOrder[from]
	toRank, okTo := statusOrder[to]
	if !okFrom || !okTo {
		return false
	}
	return toRank > fromRank
}

// ErrMissingRemoteFile is returned when a completed video lacks a remote file reference.
var ErrMissingRemoteFile = errors.New("completed video requires a remote file id")

// VideoRecord is a journal entry stored remotely and tracked in the database.
type VideoRecord struct {
	ID             string      `json:"id"`
	OwnerID        string      `json:"owner_id"`
	FolderID       *string     `json:"folder_id"`
	Title          string      `json:"title"`
	Caption        string      `json:"caption,omitempty"`
	Tags           []string    `json:"tags"`
	OriginalSize   int64       `json:"original_size"`
	CompressedSize int64       `json:"compressed_size"`
	RemoteFileID   string      `json:"drive_file_id"`
	MimeType       string      `json:"mime_type"`
	IsPublic       bool        `json:"is_public"`
	ViewsCount     int64       `json:"views_count"`
	Status         VideoStatus `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
}

// CompressionRatio returns the size reduction as a percentage of the original size.
func (v VideoRecord) CompressionRatio() float64 {
	if v.OriginalSize <= 0 {
		return 0
	}
	return (1 - float64(v.CompressedSize)/float64(v.OriginalSize)) * 100
}

// Validate checks record invariants before it is written.
func (v VideoRecord) Validate() error {
	if strings.TrimSpace(v.OwnerID) == "" {
		return errors.New("video owner is required")
	}
	if v.Status != "" && v.Status != VideoStatusPending && !CanTransitionStatus(VideoStatusPending, v.Status) {
		return fmt.Errorf("unknown video status %q", v.Status)
	}
	if v.Status == VideoStatusCompleted && strings.TrimSpace(v.RemoteFileID) == "" {
		return ErrMissingRemoteFile
	}
	return nil
}

// InFolder reports whether the record belongs to the folder. A nil folder means root.
func (v VideoRecord) InFolder(folderID *string) bool {
	if v.FolderID == nil || folderID == nil {
		return v.FolderID == nil && folderID == nil
	}
	return *v.FolderID == *folderID
}

const (
	DefaultFolderColor = "#3b82f6"
	DefaultFolderIcon  = "folder"
)

// Folder groups videos for a single owner and mirrors a folder held by the remote provider.
type Folder struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	RemoteFolderID string    `json:"drive_folder_id"`
	Name           string    `json:"name"`
	Color          string    `json:"color"`
	Icon           string    `json:"icon"`
	IsDefault      bool      `json:"is_default"`
	CreatedAt      time.Time `json:"created_at"`
	VideoCount     int64     `json:"video_count"`
}

// IntentKind names the remote write an intent guards.
type IntentKind string

const (
	IntentFolderCreate IntentKind = "folder_create"
	IntentVideoUpload  IntentKind = "video_upload"
)

// IntentStatus is the reconciliation state of an intent.
type IntentStatus string

const (
	IntentPending   IntentStatus = "pending"
	IntentDone      IntentStatus = "done"
	IntentAbandoned IntentStatus = "abandoned"
)

// Intent records a remote-then-local write so a split-brain outcome can be repaired later.
// Payload holds the JSON encoding of the local row that should exist once the write completes.
// An intent whose RemoteID is still empty never reached the remote provider.
type Intent struct {
	ID        string
	OwnerID   string
	Kind      IntentKind
	RemoteID  string
	Payload   []byte
	Status    IntentStatus
	CreatedAt time.Time
}

// VideoFilter narrows a video listing.
type VideoFilter string

const (
	FilterAll        VideoFilter = ""
	FilterCompleted  VideoFilter = "completed"
	FilterProcessing VideoFilter = "processing"
	FilterPublic     VideoFilter = "public"
	FilterPrivate    VideoFilter = "private"
)

// VideoSort orders a video listing.
type VideoSort string

const (
	SortNewest    VideoSort = "newest"
	SortOldest    VideoSort = "oldest"
	SortLargest   VideoSort = "largest"
	SortSmallest  VideoSort = "smallest"
	SortMostViews VideoSort = "most_views"
)

// VideoQuery describes a listing request. An empty OwnerID lists public videos only.
type VideoQuery struct {
	OwnerID  string
	FolderID *string
	Root     bool
	Filter   VideoFilter
	Sort     VideoSort
	Search   string
	Limit    int
}
