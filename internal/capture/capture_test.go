package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeRecorder struct {
	mu       sync.Mutex
	startErr error
	stops    int
	data     []byte
}

func (f *fakeRecorder) Start(ctx context.Context) error { return f.startErr }

func (f *fakeRecorder) Stop() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	if f.stops > 1 {
		return nil, errors.New("recorder stopped twice")
	}
	return f.data, nil
}

func (f *fakeRecorder) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

func TestSessionAutoStopsAtLimit(t *testing.T) {
	rec := &fakeRecorder{data: []byte("webm")}
	session := NewSession(rec, 20*time.Millisecond, "clip.webm", "video/webm")

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case <-session.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop on its own")
	}

	blob, err := session.Stop()
	if err != nil {
		t.Fatalf("Stop() after auto-stop error = %v", err)
	}
	if string(blob.Data) != "webm" || blob.Name != "clip.webm" || blob.MimeType != "video/webm" {
		t.Fatalf("unexpected blob %+v", blob)
	}
	if rec.stopCount() != 1 {
		t.Fatalf("expected recorder to stop once got %d", rec.stopCount())
	}
}

func TestSessionStopIsIdempotent(t *testing.T) {
	rec := &fakeRecorder{data: []byte("bytes")}
	session := NewSession(rec, time.Hour, "clip.webm", "video/webm")
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := session.Stop(); err != nil {
				t.Errorf("Stop() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if rec.stopCount() != 1 {
		t.Fatalf("expected one recorder stop got %d", rec.stopCount())
	}
}

func TestSessionStartMapsDeviceErrors(t *testing.T) {
	denied := errors.New("permission denied")
	session := NewSession(&fakeRecorder{startErr: denied}, time.Minute, "x", "video/webm")

	err := session.Start(context.Background())
	var deviceErr *DeviceAccessError
	if !errors.As(err, &deviceErr) {
		t.Fatalf("expected DeviceAccessError got %v", err)
	}
	if !errors.Is(err, denied) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestSessionWaitCancelStopsRecording(t *testing.T) {
	rec := &fakeRecorder{data: []byte("x")}
	session := NewSession(rec, time.Hour, "x", "video/webm")
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := session.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled got %v", err)
	}
	if rec.stopCount() != 1 {
		t.Fatalf("expected recorder to be stopped, got %d stops", rec.stopCount())
	}
}

func TestFileName(t *testing.T) {
	at := time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC)
	if got := FileName("user-1", at); got != "user-1_2024-03-09.mp4" {
		t.Fatalf("unexpected file name %q", got)
	}
}
