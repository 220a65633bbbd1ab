package compress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/capture"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/logging"
)

// ErrBusy is returned when a compression is already running and the engine rejects overlap.
var ErrBusy = errors.New("compression engine is busy")

// CompressionFailedError wraps any failure to load the engine or transcode a blob.
type CompressionFailedError struct {
	Err error
}

func (e *CompressionFailedError) Error() string {
	return fmt.Sprintf("compression failed: %v", e.Err)
}

func (e *CompressionFailedError) Unwrap() error { return e.Err }

// Transcoder re-encodes a blob with the given settings.
type Transcoder interface {
	Transcode(ctx context.Context, in capture.Blob, settings Settings) ([]byte, error)
}

// Loader prepares a Transcoder. It runs on first use and again after a failed attempt.
type Loader func(ctx context.Context) (Transcoder, error)

// Mode decides what happens to a compression requested while another one runs.
type Mode int

const (
	// Reject fails overlapping requests with ErrBusy.
	Reject Mode = iota
	// Queue makes overlapping requests wait their turn.
	Queue
)

// Engine is the single transcoding slot of the process. It is an owned handle: create one
// and pass it to whoever compresses.
type Engine struct {
	load Loader
	mode Mode
	slot *semaphore.Weighted

	mu         sync.Mutex
	transcoder Transcoder
}

// NewEngine constructs an engine that loads its transcoder lazily.
func NewEngine(load Loader, mode Mode) *Engine {
	return &Engine{load: load, mode: mode, slot: semaphore.NewWeighted(1)}
}

// Compress re-encodes the blob with the preset and returns an MP4 blob.
func (e *Engine) Compress(ctx context.Context, in capture.Blob, preset Preset) (capture.Blob, error) {
	if e.mode == Queue {
		if err := e.slot.Acquire(ctx, 1); err != nil {
			return capture.Blob{}, err
		}
	} else if !e.slot.TryAcquire(1) {
		return capture.Blob{}, ErrBusy
	}
	defer e.slot.Release(1)

	ctx, span := logging.StartSpan(ctx, "compress")
	out, err := e.compress(ctx, in, preset)
	span.End(err)
	return out, err
}

func (e *Engine) compress(ctx context.Context, in capture.Blob, preset Preset) (capture.Blob, error) {
	if len(in.Data) == 0 {
		return capture.Blob{}, &CompressionFailedError{Err: errors.New("input is empty")}
	}

	transcoder, err := e.transcoderFor(ctx)
	if err != nil {
		return capture.Blob{}, &CompressionFailedError{Err: fmt.Errorf("load transcoder: %w", err)}
	}

	settings := preset.Settings()
	data, err := transcoder.Transcode(ctx, in, settings)
	if err != nil {
		return capture.Blob{}, &CompressionFailedError{Err: err}
	}
	if len(data) == 0 {
		return capture.Blob{}, &CompressionFailedError{Err: errors.New("transcoder produced no output")}
	}

	logging.FromContext(ctx).Info("video compressed",
		slog.String("preset", string(preset)),
		slog.Int("input_bytes", len(in.Data)),
		slog.Int("output_bytes", len(data)),
	)

	return capture.Blob{Name: "compressed_" + in.Name, MimeType: "video/mp4", Data: data}, nil
}

func (e *Engine) transcoderFor(ctx context.Context) (Transcoder, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.transcoder != nil {
		return e.transcoder, nil
	}
	if e.load == nil {
		return nil, errors.New("no transcoder loader configured")
	}

	t, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	e.transcoder = t
	return t, nil
}
