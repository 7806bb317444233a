package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher is the part of *redis.Client the Redis sink needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSink publishes score-changed events as JSON on a Redis pub/sub channel,
// where the notification workers pick them up.
type RedisSink struct {
	client  Publisher
	channel string
}

func NewRedisSink(client Publisher, channel string) *RedisSink {
	return &RedisSink{client: client, channel: channel}
}

func (s *RedisSink) PublishScoreChanged(ctx context.Context, ev ScoreChanged) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode score event: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish score event to %s: %w", s.channel, err)
	}
	return nil
}
