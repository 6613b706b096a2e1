// Package events publishes audio job progress to Redis Streams for
// downstream consumers. The job table stays the source of truth; the stream
// is a convenience for listeners that would otherwise poll.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Publisher publishes audio job events to Redis Streams
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher creates a new Publisher instance
func NewPublisher(redisURL string) (*Publisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	return &Publisher{rdb: client}, nil
}

// PublishJobEvent publishes a job event to the stream
func (p *Publisher) PublishJobEvent(ctx context.Context, ev AudioJobEvent) (string, error) {
	ev.EventID = uuid.New().String()

	payload, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	result := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamAudioEvents,
		MaxLen: 10000,
		Approx: true,
		ID:     "*", // auto-generate ID
		Values: map[string]interface{}{
			"payload":        string(payload),
			"published_at":   time.Now().Unix(),
			"schema_version": SchemaVersionV1,
		},
	})

	if result.Err() != nil {
		return "", fmt.Errorf("failed to publish to stream: %w", result.Err())
	}

	return result.Val(), nil
}

// Close closes the Redis client connection
func (p *Publisher) Close() error {
	return p.rdb.Close()
}
