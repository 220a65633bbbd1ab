package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/auth"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/capture"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/compress"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/logging"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/upload"
)

// Compressor shrinks a blob with a preset.
type Compressor interface {
	Compress(ctx context.Context, in capture.Blob, preset compress.Preset) (capture.Blob, error)
}

// Uploader sends a blob to the provider and records it.
type Uploader interface {
	Upload(ctx context.Context, blob capture.Blob, dest upload.Destination, progress func(upload.Stage)) (upload.Result, error)
}

// Request is one upload run.
type Request struct {
	Blob        capture.Blob
	Preset      compress.Preset
	Destination upload.Destination
}

// Runner drives validation, compression and upload through the state machine.
type Runner struct {
	auth        auth.Collaborator
	prober      capture.Prober
	compressor  Compressor
	uploader    Uploader
	maxDuration time.Duration
	observer    func(State)
	now         func() time.Time
}

// NewRunner wires a runner. observer receives every state the run passes through and may be nil.
func NewRunner(collab auth.Collaborator, prober capture.Prober, compressor Compressor, uploader Uploader, maxDuration time.Duration, observer func(State)) *Runner {
	if observer == nil {
		observer = func(State) {}
	}
	return &Runner{
		auth:        collab,
		prober:      prober,
		compressor:  compressor,
		uploader:    uploader,
		maxDuration: maxDuration,
		observer:    observer,
		now:         time.Now,
	}
}

// Run executes one run from idle and returns the final state. The error is the failure
// that ended the run, if any.
func (r *Runner) Run(ctx context.Context, req Request) (State, error) {
	ctx, span := logging.StartSpan(ctx, "workflow")
	state, err := r.run(ctx, req)
	span.End(err)
	return state, err
}

func (r *Runner) run(ctx context.Context, req Request) (State, error) {
	state := Initial()
	r.observer(state)

	step := func(ev Event) error {
		next, err := Transition(state, ev)
		if err != nil {
			return err
		}
		state = next
		r.observer(state)
		return nil
	}
	fail := func(cause error) (State, error) {
		if err := step(Fail{Err: cause}); err != nil {
			return state, fmt.Errorf("record failure %v: %w", cause, err)
		}
		logging.FromContext(ctx).Warn("workflow failed",
			slog.String("kind", string(state.Failure.Kind)),
			slog.Int("progress", state.Progress),
			slog.Any("error", cause),
		)
		return state, cause
	}

	duration, err := capture.ValidateSelection(ctx, r.prober, req.Blob, r.maxDuration)
	if err != nil {
		return fail(err)
	}
	if err := step(Select{Source: Source{Blob: req.Blob, Duration: duration}}); err != nil {
		return fail(err)
	}

	ownerID, err := r.auth.CurrentUserID(ctx)
	if err != nil {
		return fail(err)
	}
	if _, err := r.auth.CurrentAccessToken(ctx); err != nil {
		return fail(err)
	}
	if err := step(Compress{}); err != nil {
		return fail(err)
	}

	compressed, err := r.compressor.Compress(ctx, req.Blob, req.Preset)
	if err != nil {
		return fail(err)
	}
	if err := step(Compressed{Blob: compressed}); err != nil {
		return fail(&compress.CompressionFailedError{Err: err})
	}

	dest := req.Destination
	if dest.Name == "" {
		dest.Name = capture.FileName(ownerID, r.now())
	}
	if dest.MimeType == "" {
		dest.MimeType = compressed.MimeType
	}
	dest.OriginalSize = req.Blob.Size()

	res, err := r.uploader.Upload(ctx, compressed, dest, func(stage upload.Stage) {
		if stage == upload.StageUploaded {
			_ = step(Uploaded{})
		}
	})
	if err != nil {
		return fail(err)
	}
	if err := step(Persisted{Video: res.Video}); err != nil {
		return fail(err)
	}

	logging.FromContext(ctx).Info("workflow completed",
		slog.String("video_id", res.Video.ID),
		slog.Float64("compression_ratio", res.Video.CompressionRatio()),
	)
	return state, nil
}

// ActiveRuns admits at most one run per owner at a time.
type ActiveRuns struct {
	mu     sync.Mutex
	owners map[string]struct{}
}

// NewActiveRuns constructs an empty registry.
func NewActiveRuns() *ActiveRuns {
	return &ActiveRuns{owners: make(map[string]struct{})}
}

// TryBegin claims the owner's slot. The returned release must be called once the run ends.
func (a *ActiveRuns) TryBegin(ownerID string) (func(), bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, busy := a.owners[ownerID]; busy {
		return nil, false
	}
	a.owners[ownerID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.owners, ownerID)
			a.mu.Unlock()
		})
	}, true
}
