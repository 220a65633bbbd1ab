package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FFmpegRecorder captures camera and microphone input through the ffmpeg binary.
type FFmpegRecorder struct {
	Binary      string
	VideoDevice string
	AudioDevice string
	// Grace bounds how long Stop waits for ffmpeg to flush after asking it to quit.
	Grace time.Duration

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	dir    string
	output string
}

// NewFFmpegRecorder constructs a Recorder reading from v4l2 video and alsa audio devices.
func NewFFmpegRecorder(binary, videoDevice, audioDevice string) *FFmpegRecorder {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &FFmpegRecorder{
		Binary:      binary,
		VideoDevice: videoDevice,
		AudioDevice: audioDevice,
		Grace:       10 * time.Second,
	}
}

func (r *FFmpegRecorder) args(output string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-f", "v4l2", "-i", r.VideoDevice}
	if r.AudioDevice != "" {
		args = append(args, "-f", "alsa", "-i", r.AudioDevice)
	}
	return append(args, "-c:v", "libx264", "-preset", "veryfast", "-c:a", "aac", "-movflags", "+faststart", "-y", output)
}

// Start launches ffmpeg. The recording runs until Stop, or is killed when ctx ends.
func (r *FFmpegRecorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd != nil {
		return errors.New("recorder already running")
	}
	if _, err := os.Stat(r.VideoDevice); err != nil {
		return fmt.Errorf("video device %s: %w", r.VideoDevice, err)
	}

	dir, err := os.MkdirTemp("", "dayone-capture-*")
	if err != nil {
		return fmt.Errorf("create capture dir: %w", err)
	}
	output := filepath.Join(dir, "capture.mp4")

	cmd := exec.CommandContext(ctx, r.Binary, r.args(output)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		os.RemoveAll(dir)
		return fmt.Errorf("open ffmpeg stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		os.RemoveAll(dir)
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	r.cmd, r.stdin, r.dir, r.output = cmd, stdin, dir, output
	return nil
}

// Stop asks ffmpeg to quit, waits for the container to be finalised and returns its bytes.
func (r *FFmpegRecorder) Stop() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd == nil {
		return nil, errors.New("recorder is not running")
	}
	defer func() {
		os.RemoveAll(r.dir)
		r.cmd, r.stdin, r.dir, r.output = nil, nil, "", ""
	}()

	_, _ = io.WriteString(r.stdin, "q")
	_ = r.stdin.Close()

	waitErr := make(chan error, 1)
	go func() { waitErr <- r.cmd.Wait() }()

	select {
	case err := <-waitErr:
		if err != nil {
			return nil, fmt.Errorf("ffmpeg exited: %w", err)
		}
	case <-time.After(r.Grace):
		_ = r.cmd.Process.Kill()
		<-waitErr
		return nil, errors.New("ffmpeg did not stop in time")
	}

	data, err := os.ReadFile(r.output)
	if err != nil {
		return nil, fmt.Errorf("read capture: %w", err)
	}
	return data, nil
}

var _ Recorder = (*FFmpegRecorder)(nil)
