package folders

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidName indicates a folder without a usable name.
	ErrInvalidName = errors.New("folder name is required")
	// ErrNotUploaded indicates a video that has no provider file to move yet.
	ErrNotUploaded = errors.New("video has not finished uploading")
)

// RemoteMutationError reports a provider call that failed. Local state was not changed.
type RemoteMutationError struct {
	Op  string
	Err error
}

func (e *RemoteMutationError) Error() string {
	return fmt.Sprintf("%s on the storage provider failed: %v", e.Op, e.Err)
}

func (e *RemoteMutationError) Unwrap() error { return e.Err }

// LocalPersistError reports a provider change that succeeded but could not be recorded
// locally. RemoteID names the provider resource left behind, if any.
type LocalPersistError struct {
	Op       string
	RemoteID string
	Err      error
}

func (e *LocalPersistError) Error() string {
	if e.RemoteID == "" {
		return fmt.Sprintf("%s could not be saved: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s could not be saved (remote %s): %v", e.Op, e.RemoteID, e.Err)
}

func (e *LocalPersistError) Unwrap() error { return e.Err }
