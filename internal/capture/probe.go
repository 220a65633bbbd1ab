package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// CommandRunner executes an external command with the provided stdin and returns stdout bytes.
type CommandRunner func(ctx context.Context, stdin []byte, binary string, args ...string) ([]byte, error)

// Prober reports the playback duration of a media blob.
type Prober interface {
	Duration(ctx context.Context, blob Blob) (time.Duration, error)
}

// ProberFunc adapts a function into a Prober.
type ProberFunc func(ctx context.Context, blob Blob) (time.Duration, error)

// Duration implements Prober.
func (f ProberFunc) Duration(ctx context.Context, blob Blob) (time.Duration, error) {
	return f(ctx, blob)
}

// FFProbe reads the container duration with the ffprobe CLI, streaming the blob over stdin.
type FFProbe struct {
	Binary  string
	Run     CommandRunner
	Timeout time.Duration
}

// NewFFProbe constructs a Prober that shells out to ffprobe.
func NewFFProbe(binary string, timeout time.Duration) *FFProbe {
	if strings.TrimSpace(binary) == "" {
		binary = "ffprobe"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FFProbe{Binary: binary, Run: defaultCommandRunner, Timeout: timeout}
}

// Duration implements Prober.
func (p *FFProbe) Duration(ctx context.Context, blob Blob) (time.Duration, error) {
	if p.Run == nil {
		p.Run = defaultCommandRunner
	}

	execCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	out, err := p.Run(execCtx, blob.Data, p.Binary,
		"-v", "error", "-print_format", "json", "-show_format", "-i", "pipe:0")
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	var payload struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return 0, fmt.Errorf("parse ffprobe response: %w", err)
	}
	if payload.Format.Duration == "" {
		return 0, fmt.Errorf("ffprobe reported no duration")
	}

	seconds, err := strconv.ParseFloat(payload.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", payload.Format.Duration, err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// ValidateSelection checks a picked or recorded blob against the duration ceiling.
func ValidateSelection(ctx context.Context, prober Prober, blob Blob, limit time.Duration) (time.Duration, error) {
	if limit <= 0 {
		limit = MaxDuration
	}
	if len(blob.Data) == 0 {
		return 0, fmt.Errorf("selected video is empty")
	}

	d, err := prober.Duration(ctx, blob)
	if err != nil {
		return 0, fmt.Errorf("read video duration: %w", err)
	}
	if d > limit {
		return d, &DurationExceededError{Duration: d, Max: limit}
	}
	return d, nil
}

func defaultCommandRunner(ctx context.Context, stdin []byte, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil && stderr.Len() > 0 {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, err
}
