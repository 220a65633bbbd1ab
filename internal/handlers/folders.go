package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/folders"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/logging"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/models"
)

// FolderHandler exposes the folder directory.
type FolderHandler struct {
	Folders FolderService
	Limiter RateLimiter
}

// List handles GET /api/v1/folders.
func (h FolderHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	list, err := h.Folders.ListFolders(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	if list == nil {
		list = []models.Folder{}
	}
	respondJSON(ctx, w, http.StatusOK, folderListResponse{Folders: list})
}

// Create handles POST /api/v1/folders.
func (h FolderHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if throttled(w, r, h.Limiter, ScopeFolders) {
		return
	}

	var req createFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid folder payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	folder, err := h.Folders.CreateFolder(ctx, folders.CreateInput{
		Name:      req.Name,
		Color:     strings.TrimSpace(req.Color),
		Icon:      strings.TrimSpace(req.Icon),
		IsDefault: req.IsDefault,
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, folder)
}

// Delete handles DELETE /api/v1/folders/{id}.
func (h FolderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if throttled(w, r, h.Limiter, ScopeFolders) {
		return
	}

	if err := h.Folders.DeleteFolder(ctx, r.PathValue("id")); err != nil {
		respondError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetDefault handles PUT /api/v1/folders/{id}/default.
func (h FolderHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Folders.SetDefaultFolder(ctx, r.PathValue("id")); err != nil {
		respondError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveVideo handles PUT /api/v1/videos/{id}/folder. A null folder_id moves the video to root.
func (h FolderHandler) MoveVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if throttled(w, r, h.Limiter, ScopeFolders) {
		return
	}

	var req moveVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.FolderID != nil && strings.TrimSpace(*req.FolderID) == "" {
		req.FolderID = nil
	}

	if err := h.Folders.MoveVideo(ctx, r.PathValue("id"), req.FolderID); err != nil {
		respondError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createFolderRequest struct {
	Name      string `json:"name"`
	Color     string `json:"color"`
	Icon      string `json:"icon"`
	IsDefault bool   `json:"is_default"`
}

type moveVideoRequest struct {
	FolderID *string `json:"folder_id"`
}

type folderListResponse struct {
	Folders []models.Folder `json:"folders"`
}
