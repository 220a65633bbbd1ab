package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Notifier tells listening clients that an owner's video list changed.
type Notifier interface {
	VideosChanged(ctx context.Context, ownerID string) error
}

// Event is the message published on the refresh channel.
type Event struct {
	OwnerID string    `json:"owner_id"`
	At      time.Time `json:"at"`
}

// RedisPublisher publishes refresh events over Redis pub/sub.
type RedisPublisher struct {
	client  redis.Cmdable
	channel string
	now     func() time.Time
}

// NewRedisPublisher constructs a publisher for the channel.
func NewRedisPublisher(client redis.Cmdable, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel, now: time.Now}
}

// VideosChanged implements Notifier.
func (p *RedisPublisher) VideosChanged(ctx context.Context, ownerID string) error {
	payload, err := json.Marshal(Event{OwnerID: ownerID, At: p.now().UTC()})
	if err != nil {
		return fmt.Errorf("encode refresh event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish refresh event: %w", err)
	}
	return nil
}

// Discard drops every event.
type Discard struct{}

// VideosChanged implements Notifier.
func (Discard) VideosChanged(context.Context, string) error { return nil }

// Fanout forwards every event to each notifier in turn.
type Fanout []Notifier

// VideosChanged implements Notifier. Every notifier runs even if an earlier one failed.
func (f Fanout) VideosChanged(ctx context.Context, ownerID string) error {
	var errs []error
	for _, n := range f {
		if err := n.VideosChanged(ctx, ownerID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
