package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/auth"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/capture"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/compress"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/models"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/repositories"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/videos"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/workflow"
)

type runnerStub struct {
	req   workflow.Request
	calls int
	err   error
}

func (s *runnerStub) Run(ctx context.Context, req workflow.Request) (workflow.State, error) {
	s.calls++
	s.req = req
	if s.err != nil {
		return workflow.State{Phase: workflow.PhaseError}, s.err
	}
	video := models.VideoRecord{
		ID:             "v1",
		OwnerID:        auth.UserIDFromContext(ctx),
		Title:          req.Destination.Title,
		OriginalSize:   req.Blob.Size(),
		CompressedSize: req.Blob.Size() / 4,
		Status:         models.VideoStatusCompleted,
	}
	return workflow.State{Phase: workflow.PhaseCompleted, Progress: workflow.ProgressPersisted, Video: &video}, nil
}

type videoServiceStub struct {
	opts       videos.ListOptions
	list       []models.VideoRecord
	renamed    string
	renameErr  error
	visibility *bool
	viewer     string
	views      int64
	viewErr    error
	deleted    string
}

func (s *videoServiceStub) List(_ context.Context, opts videos.ListOptions) ([]models.VideoRecord, error) {
	s.opts = opts
	return s.list, nil
}

func (s *videoServiceStub) Rename(_ context.Context, _ string, title string) error {
	s.renamed = title
	return s.renameErr
}

func (s *videoServiceStub) SetVisibility(_ context.Context, _ string, public bool) error {
	s.visibility = &public
	return nil
}

func (s *videoServiceStub) RecordView(_ context.Context, _ string, viewerID string) (int64, error) {
	s.viewer = viewerID
	return s.views, s.viewErr
}

func (s *videoServiceStub) Delete(_ context.Context, videoID string) error {
	s.deleted = videoID
	return nil
}

func multipartUpload(t *testing.T, fields map[string]string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if payload != nil {
		part, err := mw.CreateFormFile("file", "clip.webm")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(payload); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func uploadRequest(t *testing.T, userID string, fields map[string]string, payload []byte) *http.Request {
	t.Helper()
	body, contentType := multipartUpload(t, fields, payload)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos", body)
	req.Header.Set("Content-Type", contentType)
	if userID != "" {
		req = req.WithContext(auth.WithUserID(req.Context(), userID))
	}
	return req
}

func TestVideoHandlerUploadSuccess(t *testing.T) {
	runner := &runnerStub{}
	handler := VideoHandler{Runner: runner, Runs: workflow.NewActiveRuns(), DefaultPreset: compress.PresetMedium}

	req := uploadRequest(t, "user-1", map[string]string{
		"title":     " Beach ",
		"tags":      "summer, ,sea",
		"folder_id": "f1",
		"preset":    "low",
		"is_public": "true",
	}, bytes.Repeat([]byte("x"), 400))
	rec := httptest.NewRecorder()

	handler.Upload(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	got := runner.req
	if got.Preset != compress.PresetLow || got.Blob.Name != "clip.webm" || len(got.Blob.Data) != 400 {
		t.Fatalf("unexpected request: preset=%s name=%s size=%d", got.Preset, got.Blob.Name, len(got.Blob.Data))
	}
	dest := got.Destination
	if dest.Title != "Beach" || !dest.IsPublic || dest.FolderID == nil || *dest.FolderID != "f1" {
		t.Fatalf("unexpected destination: %+v", dest)
	}
	if len(dest.Tags) != 2 || dest.Tags[0] != "summer" || dest.Tags[1] != "sea" {
		t.Fatalf("unexpected tags: %v", dest.Tags)
	}

	var resp uploadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Phase != workflow.PhaseCompleted || resp.Progress != 100 || resp.Video == nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Video.CompressionRatio != 75 {
		t.Fatalf("expected ratio 75 got %v", resp.Video.CompressionRatio)
	}
}

func TestVideoHandlerUploadFailures(t *testing.T) {
	cases := []struct {
		name     string
		userID   string
		fields   map[string]string
		payload  []byte
		runErr   error
		wantCode int
		wantRuns int
	}{
		{"anonymous", "", nil, []byte("x"), nil, http.StatusUnauthorized, 0},
		{"missingFile", "user-1", nil, nil, nil, http.StatusBadRequest, 0},
		{"badPreset", "user-1", map[string]string{"preset": "ultra"}, []byte("x"), nil, http.StatusBadRequest, 0},
		{"badVisibility", "user-1", map[string]string{"is_public": "maybe"}, []byte("x"), nil, http.StatusBadRequest, 0},
		{"tooLong", "user-1", nil, []byte("x"), &capture.DurationExceededError{Duration: 95 * time.Second, Max: 90 * time.Second}, http.StatusUnprocessableEntity, 1},
		{"noProviderToken", "user-1", nil, []byte("x"), auth.ErrNotAuthenticated, http.StatusUnauthorized, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runner := &runnerStub{err: tc.runErr}
			handler := VideoHandler{Runner: runner, Runs: workflow.NewActiveRuns()}

			rec := httptest.NewRecorder()
			handler.Upload(rec, uploadRequest(t, tc.userID, tc.fields, tc.payload))

			if rec.Code != tc.wantCode {
				t.Fatalf("expected status %d got %d: %s", tc.wantCode, rec.Code, rec.Body.String())
			}
			if runner.calls != tc.wantRuns {
				t.Fatalf("expected %d runs got %d", tc.wantRuns, runner.calls)
			}
		})
	}
}

func TestVideoHandlerUploadReportsDurationMessage(t *testing.T) {
	runner := &runnerStub{err: &capture.DurationExceededError{Duration: 95 * time.Second, Max: 90 * time.Second}}
	handler := VideoHandler{Runner: runner}

	rec := httptest.NewRecorder()
	handler.Upload(rec, uploadRequest(t, "user-1", nil, []byte("x")))

	var resp uploadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Kind != workflow.KindDurationExceeded || resp.Error != "Video must be 90 seconds or less." {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestVideoHandlerUploadRejectsConcurrentRun(t *testing.T) {
	runs := workflow.NewActiveRuns()
	release, ok := runs.TryBegin("user-1")
	if !ok {
		t.Fatal("expected first run to start")
	}
	defer release()

	runner := &runnerStub{}
	handler := VideoHandler{Runner: runner, Runs: runs}

	rec := httptest.NewRecorder()
	handler.Upload(rec, uploadRequest(t, "user-1", nil, []byte("x")))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status %d got %d", http.StatusConflict, rec.Code)
	}
	if runner.calls != 0 {
		t.Fatalf("expected no run got %d", runner.calls)
	}
}

func TestVideoHandlerUploadTooLarge(t *testing.T) {
	handler := VideoHandler{Runner: &runnerStub{}, MaxUploadBytes: 64}

	rec := httptest.NewRecorder()
	handler.Upload(rec, uploadRequest(t, "user-1", nil, bytes.Repeat([]byte("x"), 4096)))

	if rec.Code != http.StatusRequestEntityTooLarge && rec.Code != http.StatusBadRequest {
		t.Fatalf("expected the oversized upload to be rejected got %d", rec.Code)
	}
}

func TestVideoHandlerListParsesQuery(t *testing.T) {
	stub := &videoServiceStub{list: []models.VideoRecord{{ID: "v1", OriginalSize: 100, CompressedSize: 50}}}
	handler := VideoHandler{Videos: stub}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos?folder=root&filter=private&sort=largest&q=beach&limit=20", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	opts := stub.opts
	if opts.Public || !opts.Root || opts.Filter != models.FilterPrivate || opts.Sort != models.SortLargest || opts.Search != "beach" || opts.Limit != 20 {
		t.Fatalf("unexpected options: %+v", opts)
	}

	var resp videoListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Videos) != 1 || resp.Videos[0].CompressionRatio != 50 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/videos/feed?folder=f1", nil)
	rec = httptest.NewRecorder()
	handler.Feed(rec, req)
	if !stub.opts.Public || stub.opts.FolderID == nil || *stub.opts.FolderID != "f1" {
		t.Fatalf("unexpected feed options: %+v", stub.opts)
	}

	for _, query := range []string{"filter=weird", "sort=random", "limit=0", "limit=abc"} {
		rec = httptest.NewRecorder()
		handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/videos?"+query, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("query %q: expected 400 got %d", query, rec.Code)
		}
	}
}

func TestVideoHandlerUpdateViewDelete(t *testing.T) {
	stub := &videoServiceStub{views: 7}
	mux := http.NewServeMux()
	RegisterRoutes(mux, Dependencies{Videos: stub})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/videos/v1", strings.NewReader(`{"title":"New","is_public":false}`)))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204 got %d", rec.Code)
	}
	if stub.renamed != "New" || stub.visibility == nil || *stub.visibility {
		t.Fatalf("unexpected update: %q %v", stub.renamed, stub.visibility)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/videos/v1", strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected empty update to be rejected got %d", rec.Code)
	}

	stub.renameErr = videos.ErrInvalidTitle
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/videos/v1", strings.NewReader(`{"title":""}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected invalid title to be rejected got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/v1/views", nil)
	req = req.WithContext(auth.WithUserID(req.Context(), "viewer"))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || stub.viewer != "viewer" {
		t.Fatalf("unexpected view result %d %q", rec.Code, stub.viewer)
	}
	var views map[string]int64
	if err := json.NewDecoder(rec.Body).Decode(&views); err != nil || views["views_count"] != 7 {
		t.Fatalf("unexpected view body %v %v", views, err)
	}

	stub.viewErr = repositories.ErrNotFound
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/videos/private/views", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected private view to be hidden got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/videos/v9", nil))
	if rec.Code != http.StatusNoContent || stub.deleted != "v9" {
		t.Fatalf("unexpected delete result %d %q", rec.Code, stub.deleted)
	}
}
