package queue

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Publisher appends events to a stream.
type Publisher interface {
	// Publish returns the message ID assigned by Redis.
	Publish(ctx context.Context, stream string, event BlogEvent) (messageID string, err error)
}

// RedisPublisher implements Publisher using Redis Streams.
type RedisPublisher struct {
	client *redis.Client
	maxLen int64
}

// DefaultStreamMaxLen bounds the stream; old entries are trimmed approximately.
const DefaultStreamMaxLen = 10000

func NewPublisher(client *redis.Client) Publisher {
	return &RedisPublisher{client: client, maxLen: DefaultStreamMaxLen}
}

// Publish adds an event with XADD and an auto-generated ID.
func (p *RedisPublisher) Publish(ctx context.Context, stream string, event BlogEvent) (string, error) {
	startTime := time.Now()

	values, err := event.ToMap()
	if err != nil {
		log.Printf("[Publisher] Publish FAILED: stream=%s type=%s err=%v", stream, event.Type, err)
		return "", fmt.Errorf("serialize event: %w", err)
	}

	messageID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: values,
	}).Result()
	if err != nil {
		log.Printf("[Publisher] Publish FAILED: stream=%s type=%s err=%v", stream, event.Type, err)
		return "", fmt.Errorf("xadd to stream: %w", err)
	}

	log.Printf("[Publisher] Publish OK: stream=%s type=%s post=%s msgID=%s duration=%v",
		stream, event.Type, event.PostID, messageID, time.Since(startTime))
	return messageID, nil
}

// PublishBestEffort publishes to the blog stream and only logs failures.
// The write the event describes has already been committed.
func PublishBestEffort(ctx context.Context, p Publisher, component string, event BlogEvent) {
	if p == nil {
		return
	}
	msgID, err := p.Publish(ctx, StreamBlog, event)
	if err != nil {
		log.Printf("[%s] Failed to publish %s event: post=%s err=%v", component, event.Type, event.PostID, err)
		return
	}
	log.Printf("[%s] Published %s: post=%s msgID=%s", component, event.Type, event.PostID, msgID)
}
