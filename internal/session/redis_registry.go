package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tutorhub/frontend/internal/models"
)

const redisKeyPrefix = "tutorhub:session:"

// RedisRegistry keeps credentials in Redis so that several front-end replicas share sessions
type RedisRegistry struct {
	client *redis.Client
}

// NewRedisRegistry creates a registry on top of an existing client
func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	return &RedisRegistry{client: client}
}

// ConnectRedis parses the URL, connects and pings the server
func ConnectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.PoolTimeout = 30 * time.Second
	opts.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Load implements Registry
func (r *RedisRegistry) Load(ctx context.Context, sid string) (models.Credentials, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+sid).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Credentials{}, ErrNoCredentials
		}
		return models.Credentials{}, fmt.Errorf("failed to load session credentials: %w", err)
	}

	var creds models.Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return models.Credentials{}, fmt.Errorf("failed to decode session credentials: %w", err)
	}
	return creds, nil
}

// Save implements Registry. A non-positive ttl never expires.
func (r *RedisRegistry) Save(ctx context.Context, sid string, creds models.Credentials, ttl time.Duration) error {
	raw, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode session credentials: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, redisKeyPrefix+sid, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session credentials: %w", err)
	}
	return nil
}

// Delete implements Registry
func (r *RedisRegistry) Delete(ctx context.Context, sid string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+sid).Err(); err != nil {
		return fmt.Errorf("failed to delete session credentials: %w", err)
	}
	return nil
}
