package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tier-rewards-go/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores session snapshots as JSON under rewards:session:<id>.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func sessionKey(sessionId string) string {
	return "rewards:session:" + sessionId
}

func (c *RedisCache) Get(ctx context.Context, sessionId string) (*models.User, error) {
	raw, err := c.client.Get(ctx, sessionKey(sessionId)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read session: %w", err)
	}
	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("unable to decode session: %w", err)
	}
	return &user, nil
}

func (c *RedisCache) Set(ctx context.Context, sessionId string, user *models.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("unable to encode session: %w", err)
	}
	return c.client.Set(ctx, sessionKey(sessionId), raw, c.ttl).Err()
}

func (c *RedisCache) Clear(ctx context.Context, sessionId string) error {
	return c.client.Del(ctx, sessionKey(sessionId)).Err()
}
