package handlers

import (
	"net/http"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/auth"
)

// SyncHandler triggers a reconciliation pass on demand.
type SyncHandler struct {
	Syncer Syncer
}

// SyncNow handles POST /api/v1/sync.
func (h SyncHandler) SyncNow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if auth.UserIDFromContext(ctx) == "" {
		respondError(ctx, w, auth.ErrNotAuthenticated)
		return
	}

	report, err := h.Syncer.SyncNow(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, syncResponse{
		Adopted:   report.Adopted,
		Completed: report.Completed,
		Abandoned: report.Abandoned,
		Failed:    report.Failed,
	})
}

type syncResponse struct {
	Adopted   int `json:"adopted"`
	Completed int `json:"completed"`
	Abandoned int `json:"abandoned"`
	Failed    int `json:"failed"`
}
