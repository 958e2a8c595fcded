// Package events announces committed project lifecycle transitions.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/domain"
)

// Publisher delivers lifecycle events. Publishing is best effort: callers
// log failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, domain.Event) error { return nil }

const eventChannelPrefix = "apk:events:" // Pub/Sub channel per project: apk:events:{project_id}

// Channel returns the Pub/Sub channel for a project.
func Channel(projectID string) string {
	return eventChannelPrefix + projectID
}

// RedisPublisher publishes events on a per-project Redis channel.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, Channel(ev.ProjectID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
