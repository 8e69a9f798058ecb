package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/PropertyListing/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "property_detail:"

// RedisDetailCache stores property details as JSON with a fixed TTL.
type RedisDetailCache struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewRedisDetailCache(client *goredis.Client, ttl time.Duration) *RedisDetailCache {
	return &RedisDetailCache{client: client, ttl: ttl}
}

// NewRedisClient connects to addr and verifies the connection with PING.
func NewRedisClient(ctx context.Context, addr string) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return client, nil
}

func (c *RedisDetailCache) Get(ctx context.Context, id string) (*domain.PropertyDetail, error) {
	data, err := c.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read detail cache: %w", err)
	}

	var detail domain.PropertyDetail
	if err := json.Unmarshal(data, &detail); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached detail %s: %w", id, err)
	}
	return &detail, nil
}

func (c *RedisDetailCache) Set(ctx context.Context, detail *domain.PropertyDetail) error {
	data, err := json.Marshal(detail)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, keyPrefix+detail.ID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write detail cache: %w", err)
	}
	return nil
}
