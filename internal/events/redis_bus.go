package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// redisPublishAPI is the part of *redis.Client used for publishing.
type redisPublishAPI interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher implements Publisher using Redis Pub/Sub
type RedisPublisher struct {
	client   redisPublishAPI
	resolver ChannelResolver
}

func NewRedisPublisher(client *redis.Client, resolver ChannelResolver) *RedisPublisher {
	return &RedisPublisher{client: client, resolver: resolver}
}

func (p *RedisPublisher) Publish(ctx context.Context, env Envelope) error {
	payload, err := env.DecodePayload()
	if err != nil {
		return fmt.Errorf("failed to decode event payload: %w", err)
	}
	channels := p.resolver.ResolveChannels(env, payload)
	if len(channels) == 0 {
		return nil
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	var errs []error
	for _, channel := range channels {
		if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
			errs = append(errs, fmt.Errorf("publish to %s: %w", channel, err))
		}
	}
	return errors.Join(errs...)
}

// Close is a no-op; the redis client is owned by the caller.
func (p *RedisPublisher) Close() error {
	return nil
}
