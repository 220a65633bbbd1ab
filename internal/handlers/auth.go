package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/auth"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/logging"
)

// ProviderTokenHandler lets a signed-in user hand over and revoke their storage provider token.
type ProviderTokenHandler struct {
	Tokens  ProviderTokens
	NowFunc func() time.Time
}

// Connect handles PUT /api/v1/auth/provider-token.
func (h ProviderTokenHandler) Connect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Tokens == nil {
		logger.Error("provider token store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "authentication services unavailable"})
		return
	}

	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid provider token payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.AccessToken = strings.TrimSpace(req.AccessToken)
	if req.AccessToken == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "access token is required"})
		return
	}
	if req.ExpiresIn < 0 {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "expires_in must not be negative"})
		return
	}

	token := auth.Token{AccessToken: req.AccessToken}
	if req.ExpiresIn > 0 {
		token.ExpiresAt = h.now().Add(time.Duration(req.ExpiresIn) * time.Second)
	}

	if err := h.Tokens.Connect(ctx, token); err != nil {
		logger.Warn("connect provider token failed", "error", err)
		respondError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SignOut handles DELETE /api/v1/auth/provider-token.
func (h ProviderTokenHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Tokens == nil {
		logging.FromContext(ctx).Error("provider token store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "authentication services unavailable"})
		return
	}

	if err := h.Tokens.SignOut(ctx); err != nil {
		respondError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type connectRequest struct {
	AccessToken string `json:"access_token"`
	// ExpiresIn is the token lifetime in seconds as reported by the provider. Zero means unknown.
	ExpiresIn int64 `json:"expires_in"`
}

func (h ProviderTokenHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
