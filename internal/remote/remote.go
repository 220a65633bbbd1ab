package remote

import (
	"context"
	"errors"
	"fmt"
)

// Root is the identifier of the provider's top-level folder.
const Root = "root"

var (
	// ErrAuthRejected indicates the provider refused the access token (401 or 403).
	ErrAuthRejected = errors.New("remote provider rejected the access token")
	// ErrNotFound indicates the remote resource does not exist.
	ErrNotFound = errors.New("remote resource not found")
)

// File is one upload request. An empty ParentID places the file in Root.
type File struct {
	Name     string
	MimeType string
	ParentID string
	Data     []byte
}

// Store is the remote storage provider every journal video and folder is mirrored to.
// Each call takes the access token explicitly; stores never cache credentials.
type Store interface {
	UploadFile(ctx context.Context, token string, file File) (string, error)
	CreateFolder(ctx context.Context, token, name string) (string, error)
	// Delete removes a file or folder. A missing resource is not an error.
	Delete(ctx context.Context, token, id string) error
	// Move reparents a file from one folder to another in a single call.
	Move(ctx context.Context, token, fileID, fromParentID, toParentID string) error
}

// StatusError reports an unexpected HTTP status from the provider.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// ParentOrRoot maps an empty parent onto Root.
func ParentOrRoot(id string) string {
	if id == "" {
		return Root
	}
	return id
}
