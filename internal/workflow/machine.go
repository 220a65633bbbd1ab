package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/capture"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/models"
)

// Phase is where an upload run currently is.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseFileSelected Phase = "fileSelected"
	PhaseCompressing  Phase = "compressing"
	PhaseUploading    Phase = "uploading"
	PhaseCompleted    Phase = "completed"
	PhaseError        Phase = "error"
)

// Progress checkpoints of a run.
const (
	ProgressAuthorized = 10
	ProgressCompressed = 50
	ProgressUploaded   = 90
	ProgressPersisted  = 100
)

// ErrInvalidTransition is returned for an event the current phase does not accept.
var ErrInvalidTransition = errors.New("invalid workflow transition")

// Source is a validated selection: a recording or picked file that passed the duration check.
type Source struct {
	Blob     capture.Blob
	Duration time.Duration
}

// Failure is the error carried by a run in PhaseError.
type Failure struct {
	Kind    Kind
	Message string
	// Progress is how far the run got before failing.
	Progress int
	Err      error
}

// State is the whole state of one upload session. Fields beyond Phase are only meaningful
// in the phases that set them.
type State struct {
	Phase          Phase
	Progress       int
	Source         *Source
	CompressedSize int64
	Video          *models.VideoRecord
	Failure        *Failure
}

// Event moves the machine from one state to the next.
type Event interface{ event() }

type (
	// Select records a validated source.
	Select struct{ Source Source }
	// Compress starts compression once the caller holds a provider token.
	Compress struct{}
	// Compressed hands the compressed blob to the upload step.
	Compressed struct{ Blob capture.Blob }
	// Uploaded marks the remote upload as done.
	Uploaded struct{}
	// Persisted marks the record as saved and ends the run.
	Persisted struct{ Video models.VideoRecord }
	// Fail ends the run with an error.
	Fail struct{ Err error }
	// Retry starts a fresh run with the source of a failed one.
	Retry struct{}
	// Reset returns to idle.
	Reset struct{}
)

func (Select) event()     {}
func (Compress) event()   {}
func (Compressed) event() {}
func (Uploaded) event()   {}
func (Persisted) event()  {}
func (Fail) event()       {}
func (Retry) event()      {}
func (Reset) event()      {}

// Initial is the state of a fresh session.
func Initial() State { return State{Phase: PhaseIdle} }

// Transition applies ev to s. It never mutates s and returns ErrInvalidTransition for
// events the phase does not accept.
func Transition(s State, ev Event) (State, error) {
	switch e := ev.(type) {
	case Select:
		if s.Phase != PhaseIdle {
			break
		}
		if len(e.Source.Blob.Data) == 0 {
			return s, fmt.Errorf("%w: empty source", ErrInvalidTransition)
		}
		src := e.Source
		return State{Phase: PhaseFileSelected, Source: &src}, nil

	case Compress:
		if s.Phase != PhaseFileSelected || s.Source == nil {
			break
		}
		return advance(s, PhaseCompressing, ProgressAuthorized), nil

	case Compressed:
		if s.Phase != PhaseCompressing {
			break
		}
		if len(e.Blob.Data) == 0 {
			return s, fmt.Errorf("%w: empty compressed output", ErrInvalidTransition)
		}
		next := advance(s, PhaseUploading, ProgressCompressed)
		next.CompressedSize = int64(len(e.Blob.Data))
		return next, nil

	case Uploaded:
		if s.Phase != PhaseUploading {
			break
		}
		return advance(s, PhaseUploading, ProgressUploaded), nil

	case Persisted:
		if s.Phase != PhaseUploading {
			break
		}
		video := e.Video
		next := advance(s, PhaseCompleted, ProgressPersisted)
		next.Video = &video
		return next, nil

	case Fail:
		switch s.Phase {
		case PhaseIdle, PhaseFileSelected, PhaseCompressing, PhaseUploading:
		default:
			return s, fmt.Errorf("%w: fail from %s", ErrInvalidTransition, s.Phase)
		}
		next := s
		next.Phase = PhaseError
		next.Failure = &Failure{Kind: KindOf(e.Err), Message: Message(e.Err), Progress: s.Progress, Err: e.Err}
		return next, nil

	case Retry:
		if s.Phase != PhaseError || s.Source == nil {
			break
		}
		return State{Phase: PhaseFileSelected, Source: s.Source}, nil

	case Reset:
		if s.Phase != PhaseCompleted && s.Phase != PhaseError {
			break
		}
		return Initial(), nil
	}

	return s, fmt.Errorf("%w: %T from %s", ErrInvalidTransition, ev, s.Phase)
}

func advance(s State, phase Phase, progress int) State {
	next := s
	next.Phase = phase
	if progress > next.Progress {
		next.Progress = progress
	}
	return next
}
