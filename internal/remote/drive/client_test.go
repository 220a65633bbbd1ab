package drive

import (
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/remote"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/drive/v3", srv.URL+"/upload/drive/v3", srv.Client(), time.Second)
}

func TestUploadFileSendsMultipartBody(t *testing.T) {
	data := []byte("\x00\x01fake-mp4-bytes")

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/upload/drive/v3/files", r.URL.Path)
		assert.Equal(t, "multipart", r.URL.Query().Get("uploadType"))
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, "multipart/related", mediaType)
		assert.True(t, strings.HasPrefix(params["boundary"], boundaryPrefix))

		reader := multipart.NewReader(r.Body, params["boundary"])

		metaPart, err := reader.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "application/json; charset=UTF-8", metaPart.Header.Get("Content-Type"))
		var meta fileMetadata
		require.NoError(t, json.NewDecoder(metaPart).Decode(&meta))
		assert.Equal(t, fileMetadata{Name: "clip.mp4", MimeType: "video/mp4", Parents: []string{"drv-folder"}}, meta)

		filePart, err := reader.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "video/mp4", filePart.Header.Get("Content-Type"))
		got, err := io.ReadAll(filePart)
		require.NoError(t, err)
		assert.Equal(t, data, got)

		_, err = reader.NextPart()
		assert.ErrorIs(t, err, io.EOF)

		_, _ = w.Write([]byte(`{"id":"file-123"}`))
	})

	id, err := client.UploadFile(t.Context(), "tok-1", remote.File{
		Name: "clip.mp4", MimeType: "video/mp4", ParentID: "drv-folder", Data: data,
	})
	require.NoError(t, err)
	assert.Equal(t, "file-123", id)
}

func TestUploadFileMapsAuthRejection(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})

		_, err := client.UploadFile(t.Context(), "stale", remote.File{Name: "a.mp4", Data: []byte("x")})
		assert.ErrorIs(t, err, remote.ErrAuthRejected, "status %d", status)
	}
}

func TestUploadFileReportsServerErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
	})

	_, err := client.UploadFile(t.Context(), "tok", remote.File{Name: "a.mp4", Data: []byte("x")})

	var statusErr *remote.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "backend unavailable")
}

func TestCreateFolderUnderRoot(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/drive/v3/files", r.URL.Path)

		var meta fileMetadata
		require.NoError(t, json.NewDecoder(r.Body).Decode(&meta))
		assert.Equal(t, "Trips", meta.Name)
		assert.Equal(t, folderMimeType, meta.MimeType)
		assert.Equal(t, []string{"root"}, meta.Parents)

		_, _ = w.Write([]byte(`{"id":"drv123"}`))
	})

	id, err := client.CreateFolder(t.Context(), "tok", "Trips")
	require.NoError(t, err)
	assert.Equal(t, "drv123", id)
}

func TestDeleteTreatsNotFoundAsSuccess(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/drive/v3/files/drv123", r.URL.Path)
		if calls == 1 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	require.NoError(t, client.Delete(t.Context(), "tok", "drv123"))
	require.NoError(t, client.Delete(t.Context(), "tok", "drv123"))
	assert.Equal(t, 2, calls)
}

func TestMoveSwapsParents(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/drive/v3/files/file-1", r.URL.Path)
		assert.Equal(t, "drv-b", r.URL.Query().Get("addParents"))
		assert.Equal(t, "root", r.URL.Query().Get("removeParents"))
		_, _ = w.Write([]byte(`{}`))
	})

	require.NoError(t, client.Move(t.Context(), "tok", "file-1", "", "drv-b"))
}

func TestMoveFailureIsReported(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := client.Move(t.Context(), "tok", "file-1", "drv-a", "drv-b")
	var statusErr *remote.StatusError
	require.ErrorAs(t, err, &statusErr)
}

func TestNewClientAppliesTimeoutToDefaultHTTPClient(t *testing.T) {
	client := NewClient("http://drive.invalid/v3", "http://drive.invalid/upload/v3", nil, 2*time.Minute)
	assert.Equal(t, 2*time.Minute, client.httpClient.Timeout)

	custom := &http.Client{}
	client = NewClient("http://drive.invalid/v3", "http://drive.invalid/upload/v3", custom, 2*time.Minute)
	assert.Same(t, custom, client.httpClient)
}
