package upload

import "fmt"

// UploadFailedError reports that every upload attempt failed.
type UploadFailedError struct {
	Attempts int
	Err      error
}

func (e *UploadFailedError) Error() string {
	return fmt.Sprintf("upload failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *UploadFailedError) Unwrap() error { return e.Err }

// MetadataPersistError reports a file that reached the remote provider but whose record
// could not be written. The remote file exists and is left for reconciliation.
type MetadataPersistError struct {
	RemoteFileID string
	Err          error
}

func (e *MetadataPersistError) Error() string {
	return fmt.Sprintf("uploaded file %s but could not save its record: %v", e.RemoteFileID, e.Err)
}

func (e *MetadataPersistError) Unwrap() error { return e.Err }
