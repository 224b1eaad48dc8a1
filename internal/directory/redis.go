// Package directory reads user profiles that an external identity system publishes to Redis.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/and161185/annotator/internal/errs"
	"github.com/and161185/annotator/internal/model"
)

const defaultPrefix = "userdetails:"

// Redis implements userdetails.Directory over JSON values in Redis.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to redisURL and checks the connection.
func NewRedis(ctx context.Context, redisURL string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisWithClient(client), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: defaultPrefix}
}

func (r *Redis) key(login string) string { return r.prefix + login }

// FetchDetails returns the profile for login, or nil when none is published.
func (r *Redis) FetchDetails(ctx context.Context, login string) (*model.UserDetails, error) {
	raw, err := r.client.Get(ctx, r.key(login)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user details: %w", err)
	}
	var d model.UserDetails
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode user details: %w", err)
	}
	if d.Login == "" {
		d.Login = login
	}
	return &d, nil
}

// Publish stores the profile under its login. A zero ttl keeps it forever.
func (r *Redis) Publish(ctx context.Context, d model.UserDetails, ttl time.Duration) error {
	if d.Login == "" {
		return fmt.Errorf("%w: empty login", errs.ErrValidation)
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode user details: %w", err)
	}
	if err := r.client.Set(ctx, r.key(d.Login), raw, ttl).Err(); err != nil {
		return fmt.Errorf("publish user details: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *Redis) Close() error { return r.client.Close() }
