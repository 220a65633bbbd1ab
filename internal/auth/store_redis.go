package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "dayone:provider_token:"

// RedisTokenStore keeps provider tokens in Redis, expiring keys together with the token.
type RedisTokenStore struct {
	client redis.Cmdable
	now    func() time.Time
}

// NewRedisTokenStore constructs a store on the provided client.
func NewRedisTokenStore(client redis.Cmdable) *RedisTokenStore {
	return &RedisTokenStore{client: client, now: time.Now}
}

// Save persists the token. Keys of tokens with an expiry get a matching TTL.
func (s *RedisTokenStore) Save(ctx context.Context, userID string, token Token) error {
	payload, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode provider token: %w", err)
	}

	var ttl time.Duration
	if !token.ExpiresAt.IsZero() {
		ttl = token.ExpiresAt.Sub(s.now())
		if ttl <= 0 {
			return s.Delete(ctx, userID)
		}
	}

	if err := s.client.Set(ctx, redisKeyPrefix+userID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store provider token: %w", err)
	}
	return nil
}

// Find retrieves the user's token.
func (s *RedisTokenStore) Find(ctx context.Context, userID string) (Token, error) {
	payload, err := s.client.Get(ctx, redisKeyPrefix+userID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Token{}, ErrTokenNotFound
		}
		return Token{}, fmt.Errorf("load provider token: %w", err)
	}

	var token Token
	if err := json.Unmarshal(payload, &token); err != nil {
		return Token{}, fmt.Errorf("decode provider token: %w", err)
	}
	return token, nil
}

// Delete removes the user's token.
func (s *RedisTokenStore) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("delete provider token: %w", err)
	}
	return nil
}

var _ TokenStore = (*RedisTokenStore)(nil)
