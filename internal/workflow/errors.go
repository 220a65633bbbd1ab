package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/auth"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/capture"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/compress"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/folders"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/remote"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/upload"
)

// Kind classifies a failure for the client.
type Kind string

const (
	KindDeviceAccess      Kind = "device_access"
	KindDurationExceeded  Kind = "duration_exceeded"
	KindCompressionFailed Kind = "compression_failed"
	KindBusy              Kind = "busy"
	KindNotAuthenticated  Kind = "not_authenticated"
	KindAuthRejected      Kind = "auth_rejected"
	KindUploadFailed      Kind = "upload_failed"
	KindMetadataPersist   Kind = "metadata_persist"
	KindRemoteMutation    Kind = "remote_mutation"
	KindLocalPersist      Kind = "local_persist"
	KindCanceled          Kind = "canceled"
	KindUnknown           Kind = "unknown"
)

// KindOf maps an error onto its kind.
func KindOf(err error) Kind {
	var (
		deviceErr   *capture.DeviceAccessError
		durationErr *capture.DurationExceededError
		compressErr *compress.CompressionFailedError
		uploadErr   *upload.UploadFailedError
		metaErr     *upload.MetadataPersistError
		remoteErr   *folders.RemoteMutationError
		localErr    *folders.LocalPersistError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &metaErr):
		return KindMetadataPersist
	case errors.As(err, &localErr):
		return KindLocalPersist
	case errors.As(err, &deviceErr):
		return KindDeviceAccess
	case errors.As(err, &durationErr):
		return KindDurationExceeded
	case errors.Is(err, compress.ErrBusy):
		return KindBusy
	case errors.As(err, &compressErr):
		return KindCompressionFailed
	case errors.Is(err, auth.ErrNotAuthenticated):
		return KindNotAuthenticated
	case errors.Is(err, remote.ErrAuthRejected):
		return KindAuthRejected
	case errors.As(err, &uploadErr):
		return KindUploadFailed
	case errors.As(err, &remoteErr):
		return KindRemoteMutation
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindUnknown
	}
}

// Message is the short text shown to the user for err.
func Message(err error) string {
	var durationErr *capture.DurationExceededError

	switch KindOf(err) {
	case "":
		return ""
	case KindDeviceAccess:
		return "Camera or microphone access was denied or no device is available."
	case KindDurationExceeded:
		errors.As(err, &durationErr)
		return fmt.Sprintf("Video must be %d seconds or less.", int(durationErr.Max.Seconds()))
	case KindCompressionFailed:
		return "The video could not be compressed."
	case KindBusy:
		return "Another video is being compressed. Try again when it finishes."
	case KindNotAuthenticated:
		return "Connect your storage account before uploading."
	case KindAuthRejected:
		return "Your storage account access has expired or was revoked. Sign in again."
	case KindUploadFailed:
		return "The upload failed after several attempts."
	case KindMetadataPersist:
		return "Your video is safely stored but is not listed yet. It will appear after the next sync."
	case KindLocalPersist:
		return "The change was made in your storage account but could not be saved here. It will be repaired on the next sync."
	case KindRemoteMutation:
		return "Your storage account rejected the change. Nothing was modified."
	case KindCanceled:
		return "The upload was cancelled."
	default:
		return "Something went wrong: " + err.Error()
	}
}
