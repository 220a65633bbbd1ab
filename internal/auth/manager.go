package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotAuthenticated indicates no user is signed in or the provider token is missing or expired.
	ErrNotAuthenticated = errors.New("not authenticated with the storage provider")
	// ErrTokenNotFound indicates the store holds no provider token for the user.
	ErrTokenNotFound = errors.New("provider token not found")
)

// Token is an OAuth access token issued by the storage provider.
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the token is past its expiry. A zero expiry never expires.
func (t Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// TokenStore persists provider tokens per user so they survive process restarts.
type TokenStore interface {
	Save(ctx context.Context, userID string, token Token) error
	Find(ctx context.Context, userID string) (Token, error)
	Delete(ctx context.Context, userID string) error
}

// Collaborator answers who the caller is and which provider token to use for them.
// The token is looked up again on every call and never held between operations.
type Collaborator interface {
	CurrentUserID(ctx context.Context) (string, error)
	CurrentAccessToken(ctx context.Context) (string, error)
	SignOut(ctx context.Context) error
}

// Manager implements Collaborator on top of a TokenStore and the identity carried in ctx.
type Manager struct {
	store TokenStore
	now   func() time.Time
}

// NewManager constructs a Manager backed by the provided store.
func NewManager(store TokenStore) *Manager {
	if store == nil {
		panic("auth: token store must not be nil")
	}
	return &Manager{store: store, now: time.Now}
}

// CurrentUserID returns the signed-in user.
func (m *Manager) CurrentUserID(ctx context.Context) (string, error) {
	userID := UserIDFromContext(ctx)
	if userID == "" {
		return "", ErrNotAuthenticated
	}
	return userID, nil
}

// CurrentAccessToken returns the provider token of the signed-in user. Expired tokens
// are removed and reported as ErrNotAuthenticated.
func (m *Manager) CurrentAccessToken(ctx context.Context) (string, error) {
	userID, err := m.CurrentUserID(ctx)
	if err != nil {
		return "", err
	}

	token, err := m.store.Find(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return "", ErrNotAuthenticated
		}
		return "", fmt.Errorf("load provider token: %w", err)
	}

	if token.Expired(m.now()) || strings.TrimSpace(token.AccessToken) == "" {
		_ = m.store.Delete(ctx, userID)
		return "", ErrNotAuthenticated
	}
	return token.AccessToken, nil
}

// Connect stores a provider token for the signed-in user.
func (m *Manager) Connect(ctx context.Context, token Token) error {
	userID, err := m.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return errors.New("access token must be provided")
	}
	if token.Expired(m.now()) {
		return errors.New("access token already expired")
	}
	return m.store.Save(ctx, userID, token)
}

// SignOut forgets the provider token of the signed-in user.
func (m *Manager) SignOut(ctx context.Context) error {
	userID, err := m.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	return m.store.Delete(ctx, userID)
}

var _ Collaborator = (*Manager)(nil)
