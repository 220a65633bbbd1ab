package handlers

import (
	"net/http"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/compress"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/workflow"
)

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{Checks: deps.HealthChecks}
	tokens := ProviderTokenHandler{Tokens: deps.Tokens}
	folders := FolderHandler{Folders: deps.Folders, Limiter: deps.Limiter}
	videos := VideoHandler{
		Videos:         deps.Videos,
		Runner:         deps.Runner,
		Runs:           deps.Runs,
		Limiter:        deps.Limiter,
		MaxUploadBytes: deps.MaxUploadBytes,
		DefaultPreset:  deps.DefaultPreset,
	}
	sync := SyncHandler{Syncer: deps.Syncer}

	mux.HandleFunc("/healthz", health.Handle)

	mux.HandleFunc("PUT /api/v1/auth/provider-token", tokens.Connect)
	mux.HandleFunc("DELETE /api/v1/auth/provider-token", tokens.SignOut)

	mux.HandleFunc("GET /api/v1/folders", folders.List)
	mux.HandleFunc("POST /api/v1/folders", folders.Create)
	mux.HandleFunc("DELETE /api/v1/folders/{id}", folders.Delete)
	mux.HandleFunc("PUT /api/v1/folders/{id}/default", folders.SetDefault)
	mux.HandleFunc("PUT /api/v1/videos/{id}/folder", folders.MoveVideo)

	mux.HandleFunc("GET /api/v1/videos", videos.List)
	mux.HandleFunc("GET /api/v1/videos/feed", videos.Feed)
	mux.HandleFunc("POST /api/v1/videos", videos.Upload)
	mux.HandleFunc("PATCH /api/v1/videos/{id}", videos.Update)
	mux.HandleFunc("DELETE /api/v1/videos/{id}", videos.Delete)
	mux.HandleFunc("POST /api/v1/videos/{id}/views", videos.View)

	mux.HandleFunc("POST /api/v1/sync", sync.SyncNow)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Tokens         ProviderTokens
	Folders        FolderService
	Videos         VideoService
	Runner         WorkflowRunner
	Runs           *workflow.ActiveRuns
	Syncer         Syncer
	Limiter        RateLimiter
	HealthChecks   map[string]HealthCheck
	MaxUploadBytes int64
	DefaultPreset  compress.Preset
}
