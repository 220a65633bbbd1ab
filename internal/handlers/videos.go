package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/auth"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/capture"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/compress"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/logging"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/models"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/upload"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/videos"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/workflow"
)

const multipartMemory = 32 << 20

// VideoHandler provides endpoints for uploading and managing journal videos.
type VideoHandler struct {
	Videos         VideoService
	Runner         WorkflowRunner
	Runs           *workflow.ActiveRuns
	Limiter        RateLimiter
	MaxUploadBytes int64
	DefaultPreset  compress.Preset
}

// List handles GET /api/v1/videos for the caller's own videos.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

// Feed handles GET /api/v1/videos/feed, the public videos of every user.
func (h VideoHandler) Feed(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h VideoHandler) list(w http.ResponseWriter, r *http.Request, public bool) {
	ctx := r.Context()

	opts, err := parseListOptions(r)
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	opts.Public = public

	list, err := h.Videos.List(ctx, opts)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	out := make([]videoView, 0, len(list))
	for _, v := range list {
		out = append(out, newVideoView(v))
	}
	respondJSON(ctx, w, http.StatusOK, videoListResponse{Videos: out})
}

// Upload handles POST /api/v1/videos. The request is a multipart form with the video in
// the "file" field.
func (h VideoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if throttled(w, r, h.Limiter, ScopeUpload) {
		return
	}

	ownerID := auth.UserIDFromContext(ctx)
	if ownerID == "" {
		respondError(ctx, w, auth.ErrNotAuthenticated)
		return
	}

	if h.Runs != nil {
		release, ok := h.Runs.TryBegin(ownerID)
		if !ok {
			respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "an upload is already in progress"})
			return
		}
		defer release()
	}

	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}

	req, err := h.uploadRequest(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondJSON(ctx, w, http.StatusRequestEntityTooLarge, map[string]string{"error": "video file is too large"})
			return
		}
		logger.Warn("invalid upload form", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	state, err := h.Runner.Run(ctx, req)
	if err != nil {
		respondJSON(ctx, w, statusFor(err), uploadResponse{
			Phase:    state.Phase,
			Progress: state.Progress,
			Error:    workflow.Message(err),
			Kind:     workflow.KindOf(err),
		})
		return
	}

	resp := uploadResponse{Phase: state.Phase, Progress: state.Progress}
	if state.Video != nil {
		view := newVideoView(*state.Video)
		resp.Video = &view
	}
	respondJSON(ctx, w, http.StatusCreated, resp)
}

func (h VideoHandler) uploadRequest(r *http.Request) (workflow.Request, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return workflow.Request{}, err
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return workflow.Request{}, errors.New("a video file is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return workflow.Request{}, err
	}

	preset := h.DefaultPreset
	if name := r.FormValue("preset"); name != "" {
		preset, err = compress.ParsePreset(name)
		if err != nil {
			return workflow.Request{}, err
		}
	}

	var folderID *string
	if id := strings.TrimSpace(r.FormValue("folder_id")); id != "" {
		folderID = &id
	}

	public, err := parseOptionalBool(r.FormValue("is_public"))
	if err != nil {
		return workflow.Request{}, errors.New("is_public must be a boolean")
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return workflow.Request{
		Blob:   capture.Blob{Name: header.Filename, MimeType: mimeType, Data: data},
		Preset: preset,
		Destination: upload.Destination{
			FolderID: folderID,
			Title:    strings.TrimSpace(r.FormValue("title")),
			Caption:  strings.TrimSpace(r.FormValue("caption")),
			Tags:     splitTags(r.FormValue("tags")),
			IsPublic: public,
		},
	}, nil
}

// Update handles PATCH /api/v1/videos/{id} for the title and visibility.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if throttled(w, r, h.Limiter, ScopeVideos) {
		return
	}
	videoID := r.PathValue("id")

	var req updateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Title == nil && req.IsPublic == nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "nothing to update"})
		return
	}

	if req.Title != nil {
		if err := h.Videos.Rename(ctx, videoID, *req.Title); err != nil {
			respondError(ctx, w, err)
			return
		}
	}
	if req.IsPublic != nil {
		if err := h.Videos.SetVisibility(ctx, videoID, *req.IsPublic); err != nil {
			respondError(ctx, w, err)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/v1/videos/{id}.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if throttled(w, r, h.Limiter, ScopeVideos) {
		return
	}

	if err := h.Videos.Delete(ctx, r.PathValue("id")); err != nil {
		respondError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// View handles POST /api/v1/videos/{id}/views.
func (h VideoHandler) View(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	views, err := h.Videos.RecordView(ctx, r.PathValue("id"), auth.UserIDFromContext(ctx))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]int64{"views_count": views})
}

func parseListOptions(r *http.Request) (videos.ListOptions, error) {
	q := r.URL.Query()
	opts := videos.ListOptions{
		Filter: models.VideoFilter(q.Get("filter")),
		Sort:   models.VideoSort(q.Get("sort")),
		Search: q.Get("q"),
	}

	switch opts.Filter {
	case models.FilterAll, models.FilterCompleted, models.FilterProcessing, models.FilterPublic, models.FilterPrivate:
	default:
		return videos.ListOptions{}, errors.New("unknown filter")
	}
	switch opts.Sort {
	case "", models.SortNewest, models.SortOldest, models.SortLargest, models.SortSmallest, models.SortMostViews:
	default:
		return videos.ListOptions{}, errors.New("unknown sort")
	}

	switch folder := q.Get("folder"); folder {
	case "":
	case "root":
		opts.Root = true
	default:
		opts.FolderID = &folder
	}

	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			return videos.ListOptions{}, errors.New("limit must be a positive integer")
		}
		opts.Limit = n
	}
	return opts, nil
}

func parseOptionalBool(v string) (bool, error) {
	if strings.TrimSpace(v) == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

func splitTags(raw string) []string {
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

type updateVideoRequest struct {
	Title    *string `json:"title"`
	IsPublic *bool   `json:"is_public"`
}

type videoView struct {
	models.VideoRecord
	CompressionRatio float64 `json:"compression_ratio"`
}

func newVideoView(v models.VideoRecord) videoView {
	return videoView{VideoRecord: v, CompressionRatio: v.CompressionRatio()}
}

type videoListResponse struct {
	Videos []videoView `json:"videos"`
}

type uploadResponse struct {
	Phase    workflow.Phase `json:"phase"`
	Progress int            `json:"progress"`
	Video    *videoView     `json:"video,omitempty"`
	Error    string         `json:"error,omitempty"`
	Kind     workflow.Kind  `json:"kind,omitempty"`
}
