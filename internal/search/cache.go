package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores synthesized search responses in Redis keyed by the query
// parameters. Misses and Redis failures are equivalent: the pipeline just
// searches again.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// NewCache wraps an existing Redis client. A nil client yields a nil cache,
// which every call site treats as "caching disabled".
func NewCache(rdb *redis.Client, ttl time.Duration, logger *log.Logger) *Cache {
	if rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[SEARCH] ", log.LstdFlags)
	}
	return &Cache{rdb: rdb, ttl: ttl, logger: logger}
}

func cacheKey(query string, numResults int, deepMode bool) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%t", query, numResults, deepMode)))
	return "search:cache:" + hex.EncodeToString(sum[:16])
}

// Get returns a cached response for the query parameters if present.
func (c *Cache) Get(ctx context.Context, query string, numResults int, deepMode bool) (Response, bool) {
	raw, err := c.rdb.Get(ctx, cacheKey(query, numResults, deepMode)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Printf("cache get failed: %v", err)
		}
		return Response{}, false
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, false
	}
	return resp, true
}

// Put stores a response; failures are logged and ignored.
func (c *Cache) Put(ctx context.Context, query string, numResults int, deepMode bool, resp Response) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(query, numResults, deepMode), raw, c.ttl).Err(); err != nil {
		c.logger.Printf("cache put failed: %v", err)
	}
}
