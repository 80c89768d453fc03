package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Redis relays envelopes over a pub/sub channel.
type Redis struct {
	client *redis.Client
}

func NewRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Name() string {
	return "redis"
}

func (r *Redis) Publish(ctx context.Context, env *Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}
	if err := r.client.Publish(ctx, UpdatesTopic, body).Err(); err != nil {
		return fmt.Errorf("failed to publish envelope: %w", err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, handler func(*Envelope)) error {
	pubsub := r.client.Subscribe(ctx, UpdatesTopic)
	// Wait for the subscription confirmation so no envelope is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", UpdatesTopic, err)
	}

	slog.Info("started consuming chat updates", slog.String("channel", UpdatesTopic))

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				slog.Info("stopping relay consumer")
				return
			case msg, ok := <-ch:
				if !ok {
					slog.Warn("relay consumer channel closed")
					return
				}
				if env, ok := decodeEnvelope(r.Name(), []byte(msg.Payload)); ok {
					handler(env)
				}
			}
		}
	}()

	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
