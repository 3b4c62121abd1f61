// Package cache provides a redis read-through cache for page lookups.
// Pages are written exactly once and never mutated, so cached entries can
// never go stale.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Neerazan/ocr-project/internal/models"
)

type PageCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewPageCache(ctx context.Context, addr, password string, db int, ttl time.Duration, logger *slog.Logger) (*PageCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PageCache{client: client, ttl: ttl, logger: logger}, nil
}

func pageCacheKey(documentID string, pageNumber int) string {
	return fmt.Sprintf("page:%s:%d", documentID, pageNumber)
}

// Get returns the cached page, or nil on a miss. Cache errors are logged
// and treated as misses so redis never takes the read path down.
func (c *PageCache) Get(ctx context.Context, documentID string, pageNumber int) *models.Page {
	raw, err := c.client.Get(ctx, pageCacheKey(documentID, pageNumber)).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		c.logger.Warn("page cache read failed", "error", err)
		return nil
	}
	var page models.Page
	if err := json.Unmarshal(raw, &page); err != nil {
		c.logger.Warn("page cache entry corrupt", "error", err)
		return nil
	}
	return &page
}

// Set stores the page; failures are logged and ignored.
func (c *PageCache) Set(ctx context.Context, page *models.Page) {
	raw, err := json.Marshal(page)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, pageCacheKey(page.DocumentID, page.PageNumber), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("page cache write failed", "error", err)
	}
}

func (c *PageCache) Close() error { return c.client.Close() }
