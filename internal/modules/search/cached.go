package search

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"dinecall/internal/metrics"
	"dinecall/internal/types"
)

const cacheKeyPrefix = "dinecall:search:"

// CachedSearcher stores provider candidates in Redis keyed by Search Signature,
// so different calls asking the same thing share provider work. A nil client
// disables caching.
type CachedSearcher struct {
	next Searcher
	rdb  *redis.Client
	ttl  time.Duration
	log  *zap.Logger
}

func NewCachedSearcher(next Searcher, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *CachedSearcher {
	return &CachedSearcher{next: next, rdb: rdb, ttl: ttl, log: log}
}

func (c *CachedSearcher) Name() string { return c.next.Name() }

func (c *CachedSearcher) Search(ctx context.Context, req Request) ([]types.Venue, error) {
	if c.rdb == nil || c.ttl <= 0 {
		return c.next.Search(ctx, req)
	}
	key := cacheKeyPrefix + string(req.Slots.Signature())

	if !req.Fresh {
		raw, err := c.rdb.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var venues []types.Venue
			if err := sonic.Unmarshal(raw, &venues); err == nil {
				metrics.SearchCacheTotal.WithLabelValues("hit").Inc()
				return venues, nil
			}
			c.log.Warn("discarding corrupt search cache entry", zap.String("key", key))
		case !errors.Is(err, redis.Nil):
			c.log.Warn("search cache read failed", zap.Error(err))
		}
		metrics.SearchCacheTotal.WithLabelValues("miss").Inc()
	} else {
		metrics.SearchCacheTotal.WithLabelValues("bypass").Inc()
	}

	venues, err := c.next.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	if payload, err := sonic.Marshal(venues); err == nil {
		if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.log.Warn("search cache write failed", zap.Error(err))
		}
	}
	return venues, nil
}
