package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// MaxDuration is the longest journal entry a user may record or pick.
const MaxDuration = 90 * time.Second

// Blob is an immutable chunk of media bytes with a name and MIME type.
type Blob struct {
	Name     string
	MimeType string
	Data     []byte
}

// Size returns the blob length in bytes.
func (b Blob) Size() int64 { return int64(len(b.Data)) }

// Recorder is a capture device. Stop finalises the recording and returns the encoded bytes.
type Recorder interface {
	Start(ctx context.Context) error
	Stop() ([]byte, error)
}

// DeviceAccessError reports that the capture device was denied or missing.
type DeviceAccessError struct {
	Err error
}

func (e *DeviceAccessError) Error() string {
	return fmt.Sprintf("capture device unavailable: %v", e.Err)
}

func (e *DeviceAccessError) Unwrap() error { return e.Err }

// DurationExceededError reports a recording or picked file longer than allowed.
type DurationExceededError struct {
	Duration time.Duration
	Max      time.Duration
}

func (e *DurationExceededError) Error() string {
	return fmt.Sprintf("video is %s long, the limit is %s", e.Duration.Round(time.Second), e.Max)
}

var errNotStarted = errors.New("capture session was never started")

// Session is one recording. It stops on its own once the limit has elapsed; Stop may be called
// any number of times and always yields the same blob.
type Session struct {
	recorder Recorder
	limit    time.Duration
	name     string
	mimeType string

	mu      sync.Mutex
	started bool
	timer   *time.Timer

	stopOnce sync.Once
	done     chan struct{}
	blob     Blob
	err      error
}

// NewSession prepares a recording of at most limit. A non-positive limit uses MaxDuration.
func NewSession(recorder Recorder, limit time.Duration, name, mimeType string) *Session {
	if limit <= 0 {
		limit = MaxDuration
	}
	return &Session{
		recorder: recorder,
		limit:    limit,
		name:     name,
		mimeType: mimeType,
		done:     make(chan struct{}),
	}
}

// Start opens the device and arms the auto-stop timer.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("capture session already started")
	}
	select {
	case <-s.done:
		return errors.New("capture session already stopped")
	default:
	}
	if err := s.recorder.Start(ctx); err != nil {
		return &DeviceAccessError{Err: err}
	}
	s.started = true
	s.timer = time.AfterFunc(s.limit, func() { _, _ = s.Stop() })
	return nil
}

// Stop finalises the recording. Calls after the first return the first result.
func (s *Session) Stop() (Blob, error) {
	s.stopOnce.Do(func() {
		defer close(s.done)

		s.mu.Lock()
		started := s.started
		if s.timer != nil {
			s.timer.Stop()
		}
		s.mu.Unlock()

		if !started {
			s.err = errNotStarted
			return
		}

		data, err := s.recorder.Stop()
		if err != nil {
			s.err = fmt.Errorf("stop recorder: %w", err)
			return
		}
		s.blob = Blob{Name: s.name, MimeType: s.mimeType, Data: data}
	})

	<-s.done
	return s.blob, s.err
}

// Done is closed once the recording has been finalised.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the recording stops on its own or ctx ends. Cancellation stops the
// recording and returns the context error.
func (s *Session) Wait(ctx context.Context) (Blob, error) {
	select {
	case <-s.done:
		return s.blob, s.err
	case <-ctx.Done():
		_, _ = s.Stop()
		return Blob{}, ctx.Err()
	}
}

// FileName names a journal entry the way uploads are stored: owner and capture day.
func FileName(ownerID string, at time.Time) string {
	return fmt.Sprintf("%s_%s.mp4", ownerID, at.UTC().Format(time.DateOnly))
}
