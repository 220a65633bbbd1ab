package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/folders"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/logging"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/repositories"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/videos"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/workflow"
)

type errorResponse struct {
	Error string        `json:"error"`
	Kind  workflow.Kind `json:"kind,omitempty"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

// respondError writes err with the status and user message of its kind.
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFor(err)
	body := errorResponse{Error: workflow.Message(err), Kind: workflow.KindOf(err)}

	switch {
	case errors.Is(err, repositories.ErrNotFound):
		body = errorResponse{Error: "not found"}
	case errors.Is(err, repositories.ErrConflict):
		body = errorResponse{Error: "conflicting record"}
	case status == http.StatusBadRequest:
		body = errorResponse{Error: err.Error()}
	}

	logging.FromContext(ctx).Debug("mapped error", "status", status, "error", err)
	respondJSON(ctx, w, status, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repositories.ErrConflict), errors.Is(err, folders.ErrNotUploaded):
		return http.StatusConflict
	case errors.Is(err, videos.ErrInvalidTitle), errors.Is(err, folders.ErrInvalidName):
		return http.StatusBadRequest
	}

	switch workflow.KindOf(err) {
	case workflow.KindNotAuthenticated, workflow.KindAuthRejected:
		return http.StatusUnauthorized
	case workflow.KindDurationExceeded, workflow.KindCompressionFailed:
		return http.StatusUnprocessableEntity
	case workflow.KindBusy:
		return http.StatusConflict
	case workflow.KindDeviceAccess:
		return http.StatusServiceUnavailable
	case workflow.KindUploadFailed, workflow.KindRemoteMutation:
		return http.StatusBadGateway
	case workflow.KindCanceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
