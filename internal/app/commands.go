package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/auth"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/capture"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/compress"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/upload"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/workflow"
)

// uploadFlags are shared by the upload and record commands.
type uploadFlags struct {
	title   string
	caption string
	tags    string
	folder  string
	preset  string
	public  bool
	token   string
}

func parseUploadFlags(name string, args []string) (uploadFlags, []string, error) {
	var f uploadFlags
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&f.title, "title", "", "video title (defaults to the capture date)")
	fs.StringVar(&f.caption, "caption", "", "video caption")
	fs.StringVar(&f.tags, "tags", "", "comma separated tags")
	fs.StringVar(&f.folder, "folder", "", "destination folder id (empty for root)")
	fs.StringVar(&f.preset, "preset", "", "compression preset: low, medium or high")
	fs.BoolVar(&f.public, "public", false, "publish the video to the public feed")
	fs.StringVar(&f.token, "token", "", "provider access token to store before uploading")
	if err := fs.Parse(args); err != nil {
		return uploadFlags{}, nil, err
	}
	return f, fs.Args(), nil
}

func (f uploadFlags) request(blob capture.Blob, fallback compress.Preset) (workflow.Request, error) {
	preset := fallback
	if f.preset != "" {
		p, err := compress.ParsePreset(f.preset)
		if err != nil {
			return workflow.Request{}, err
		}
		preset = p
	}

	var folderID *string
	if id := strings.TrimSpace(f.folder); id != "" {
		folderID = &id
	}

	var tags []string
	for _, tag := range strings.Split(f.tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	return workflow.Request{
		Blob:   blob,
		Preset: preset,
		Destination: upload.Destination{
			FolderID: folderID,
			Title:    strings.TrimSpace(f.title),
			Caption:  strings.TrimSpace(f.caption),
			Tags:     tags,
			IsPublic: f.public,
		},
	}, nil
}

// cliContext signs the CLI user in and stores a provider token when one is given.
func (p *process) cliContext(ctx context.Context, token string) (context.Context, error) {
	if p.cfg.CLIUserID == "" {
		return nil, errors.New("DAYONE_CLI_USER_ID must be set for CLI uploads")
	}
	ctx = auth.WithUserID(ctx, p.cfg.CLIUserID)
	if token != "" {
		if err := p.svc.auth.Connect(ctx, auth.Token{AccessToken: token}); err != nil {
			return nil, fmt.Errorf("store provider token: %w", err)
		}
	}
	return ctx, nil
}

func runUpload(ctx context.Context, args []string) error {
	flags, rest, err := parseUploadFlags("upload", args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return errors.New("usage: upload [flags] <file>")
	}

	data, err := os.ReadFile(rest[0])
	if err != nil {
		return fmt.Errorf("read video: %w", err)
	}

	p, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer p.close()

	ctx, err = p.cliContext(ctx, flags.token)
	if err != nil {
		return err
	}

	mimeType := mime.TypeByExtension(filepath.Ext(rest[0]))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	blob := capture.Blob{Name: filepath.Base(rest[0]), MimeType: mimeType, Data: data}

	return p.runWorkflow(ctx, flags, blob)
}

func runRecord(ctx context.Context, args []string) error {
	flags, rest, err := parseUploadFlags("record", args)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return errors.New("usage: record [flags]")
	}

	p, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer p.close()

	ctx, err = p.cliContext(ctx, flags.token)
	if err != nil {
		return err
	}

	recorder := capture.NewFFmpegRecorder(p.cfg.Capture.FFmpegPath, p.cfg.Capture.VideoDevice, p.cfg.Capture.AudioDevice)
	name := capture.FileName(p.cfg.CLIUserID, time.Now())
	session := capture.NewSession(recorder, p.cfg.Capture.MaxDuration, name, "video/mp4")

	if err := session.Start(ctx); err != nil {
		return err
	}
	fmt.Printf("recording for up to %s, press Ctrl+C to stop\n", p.cfg.Capture.MaxDuration)

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-session.Done():
	case <-sigCtx.Done():
	}
	stop()

	blob, err := session.Stop()
	if err != nil {
		return err
	}
	fmt.Printf("captured %d bytes\n", blob.Size())

	return p.runWorkflow(ctx, flags, blob)
}

func (p *process) runWorkflow(ctx context.Context, flags uploadFlags, blob capture.Blob) error {
	req, err := flags.request(blob, p.svc.preset)
	if err != nil {
		return err
	}

	state, err := p.svc.runner.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("%s (%s at %d%%): %w", workflow.Message(err), workflow.KindOf(err), state.Progress, err)
	}

	video := state.Video
	fmt.Printf("uploaded %s as %q (%d -> %d bytes, %.1f%% smaller)\n",
		video.ID, video.Title, video.OriginalSize, video.CompressedSize, video.CompressionRatio())
	return nil
}

func runReconcile(ctx context.Context) error {
	p, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer p.close()

	report, err := p.svc.reconciler.SyncNow(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("adopted %d, completed %d, abandoned %d, failed %d\n",
		report.Adopted, report.Completed, report.Abandoned, report.Failed)
	return nil
}
