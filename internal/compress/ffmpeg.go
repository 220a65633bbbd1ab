package compress

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/capture"
)

// CommandRunner executes an external command and returns its combined output.
type CommandRunner func(ctx context.Context, binary string, args ...string) ([]byte, error)

// FFmpegTranscoder runs ffmpeg against files in a private scratch directory.
type FFmpegTranscoder struct {
	Binary     string
	ScratchDir string
	Run        CommandRunner
}

// NewFFmpegLoader returns a Loader that locates the ffmpeg binary and checks it runs.
func NewFFmpegLoader(binary, scratchDir string) Loader {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return func(ctx context.Context) (Transcoder, error) {
		path, err := exec.LookPath(binary)
		if err != nil {
			return nil, fmt.Errorf("locate %s: %w", binary, err)
		}
		if _, err := defaultCommandRunner(ctx, path, "-hide_banner", "-version"); err != nil {
			return nil, fmt.Errorf("run %s: %w", binary, err)
		}
		return &FFmpegTranscoder{Binary: path, ScratchDir: scratchDir, Run: defaultCommandRunner}, nil
	}
}

// Transcode implements Transcoder.
func (t *FFmpegTranscoder) Transcode(ctx context.Context, in capture.Blob, settings Settings) ([]byte, error) {
	run := t.Run
	if run == nil {
		run = defaultCommandRunner
	}

	dir, err := os.MkdirTemp(t.ScratchDir, "dayone-compress-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input"+inputExt(in))
	output := filepath.Join(dir, "output.mp4")
	if err := os.WriteFile(input, in.Data, 0o600); err != nil {
		return nil, fmt.Errorf("write input: %w", err)
	}

	args := append([]string{"-hide_banner", "-loglevel", "error", "-i", input}, settings.Args()...)
	args = append(args, "-y", output)

	if out, err := run(ctx, t.Binary, args...); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(string(out)))
	}

	data, err := os.ReadFile(output)
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	return data, nil
}

func inputExt(in capture.Blob) string {
	if ext := filepath.Ext(in.Name); ext != "" {
		return ext
	}
	if strings.HasPrefix(in.MimeType, "video/webm") {
		return ".webm"
	}
	return ".mp4"
}

func defaultCommandRunner(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}
