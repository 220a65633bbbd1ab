package handlers

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RateLimiter admits a client's request within a scope or says how long to back off.
type RateLimiter interface {
	Reserve(scope, client string) (time.Duration, bool)
}

// Rate limit scopes, each with its own budget per client.
const (
	ScopeUpload  = "upload"
	ScopeFolders = "folders"
	ScopeVideos  = "videos"
)

// throttled answers 429 with a Retry-After hint once the client spent its budget for scope.
func throttled(w http.ResponseWriter, r *http.Request, limiter RateLimiter, scope string) bool {
	if limiter == nil {
		return false
	}
	wait, ok := limiter.Reserve(scope, clientIP(r))
	if ok {
		return false
	}

	seconds := int(math.Ceil(wait.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	respondJSON(r.Context(), w, http.StatusTooManyRequests, errorResponse{Error: "too many requests", Kind: "rate_limited"})
	return true
}

// clientIP prefers the proxy headers, then the socket peer.
func clientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	return addr
}
