package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "imagevault:content:"

// ContentCache keeps recently served image bytes in redis so repeated
// content reads skip the storage backend. It is strictly an
// accelerator: a miss or a redis failure falls through to storage, and
// every write path drops the cached entry once the stored bytes have
// changed.
type ContentCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewContentCache(address string, ttl time.Duration) (*ContentCache, error) {
	client := redis.NewClient(&redis.Options{Addr: address})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", address, err)
	}

	return &ContentCache{
		client: client,
		ttl:    ttl,
	}, nil
}

// Get returns the cached bytes for an identifier, or ok=false on miss.
// Redis failures are logged and reported as misses.
func (c *ContentCache) Get(ctx context.Context, id string) ([]byte, bool) {
	data, err := c.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("content cache read failed", "id", id, "error", err)
		}
		return nil, false
	}
	return data, true
}

// Set stores content bytes under an identifier with the configured TTL.
func (c *ContentCache) Set(ctx context.Context, id string, data []byte) {
	if err := c.client.Set(ctx, keyPrefix+id, data, c.ttl).Err(); err != nil {
		slog.Warn("content cache write failed", "id", id, "error", err)
	}
}

// Invalidate drops the cached entry for an identifier. Called after
// edits have overwritten the blob and after deletes, so a concurrent
// reader repopulates from the committed bytes, never the replaced
// ones.
func (c *ContentCache) Invalidate(ctx context.Context, id string) {
	if err := c.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		slog.Warn("content cache invalidation failed", "id", id, "error", err)
	}
}

func (c *ContentCache) Close() error {
	return c.client.Close()
}
