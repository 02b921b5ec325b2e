package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"blogcristao/internal/model"
	"blogcristao/internal/observability"
)

const (
	// PageCachePrefix is the key prefix for cached first pages.
	PageCachePrefix = "feed:page1:"

	// DefaultPageCacheTTL bounds staleness if an invalidation is lost.
	DefaultPageCacheTTL = time.Minute
)

// PageCache stores the anonymous first page of the global feed and of each
// author feed. Entries are dropped by the worker whenever a post of that
// feed changes.
type PageCache interface {
	// Get returns the cached page. found=false on a miss.
	Get(ctx context.Context, authorUID string) (page *model.FeedPage, found bool, err error)

	// Set stores a page. Viewer-specific fields must already be cleared.
	Set(ctx context.Context, authorUID string, page *model.FeedPage) error

	// Invalidate drops the pages of the given feeds; "" is the global feed.
	Invalidate(ctx context.Context, authorUIDs ...string) error
}

// RedisPageCache implements PageCache with JSON strings.
type RedisPageCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPageCache(client *redis.Client, ttl time.Duration) PageCache {
	if ttl <= 0 {
		ttl = DefaultPageCacheTTL
	}
	return &RedisPageCache{client: client, ttl: ttl}
}

// PageKey returns the key of a feed's first page.
func PageKey(authorUID string) string {
	if authorUID == "" {
		return PageCachePrefix + "all"
	}
	return PageCachePrefix + "author:" + authorUID
}

func (c *RedisPageCache) Get(ctx context.Context, authorUID string) (*model.FeedPage, bool, error) {
	key := PageKey(authorUID)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		observability.FeedPageCache.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		observability.FeedPageCache.WithLabelValues("error").Inc()
		log.Printf("[PageCache] Get FAILED: key=%s err=%v", key, err)
		return nil, false, fmt.Errorf("get cached page: %w", err)
	}

	var page model.FeedPage
	if err := json.Unmarshal(data, &page); err != nil {
		// Treat a corrupt entry as a miss and drop it.
		observability.FeedPageCache.WithLabelValues("error").Inc()
		log.Printf("[PageCache] corrupt entry dropped: key=%s err=%v", key, err)
		c.client.Del(ctx, key)
		return nil, false, nil
	}

	observability.FeedPageCache.WithLabelValues("hit").Inc()
	return &page, true, nil
}

func (c *RedisPageCache) Set(ctx context.Context, authorUID string, page *model.FeedPage) error {
	key := PageKey(authorUID)

	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("marshal page: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("[PageCache] Set FAILED: key=%s err=%v", key, err)
		return fmt.Errorf("set cached page: %w", err)
	}

	log.Printf("[PageCache] Set OK: key=%s posts=%d ttl=%v", key, len(page.Posts), c.ttl)
	return nil
}

func (c *RedisPageCache) Invalidate(ctx context.Context, authorUIDs ...string) error {
	if len(authorUIDs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(authorUIDs))
	for _, uid := range authorUIDs {
		keys = append(keys, PageKey(uid))
	}

	removed, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		log.Printf("[PageCache] Invalidate FAILED: keys=%v err=%v", keys, err)
		return fmt.Errorf("invalidate pages: %w", err)
	}

	log.Printf("[PageCache] Invalidate OK: keys=%v removed=%d", keys, removed)
	return nil
}
