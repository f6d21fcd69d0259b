package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmehra2102/market-preorders/internal/catalog/domain"
)

// GenerationKey is bumped on every stock change. Entries written under an older
// generation are never read again and age out with their TTL.
const GenerationKey = "catalog:search:gen"

type client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

type SearchCache struct {
	rdb client
	ttl time.Duration
}

func NewSearchCache(rdb client, ttl time.Duration) *SearchCache {
	return &SearchCache{rdb: rdb, ttl: ttl}
}

func (c *SearchCache) Get(ctx context.Context, term string) ([]domain.ProductHit, bool, error) {
	key, err := c.key(ctx, term)
	if err != nil {
		return nil, false, err
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var hits []domain.ProductHit
	if err := json.Unmarshal(raw, &hits); err != nil {
		return nil, false, fmt.Errorf("decode cached search: %w", err)
	}
	return hits, true, nil
}

func (c *SearchCache) Set(ctx context.Context, term string, hits []domain.ProductHit) error {
	key, err := c.key(ctx, term)
	if err != nil {
		return err
	}
	if hits == nil {
		hits = []domain.ProductHit{}
	}
	raw, err := json.Marshal(hits)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, c.ttl).Err()
}

func (c *SearchCache) Invalidate(ctx context.Context) error {
	return c.rdb.Incr(ctx, GenerationKey).Err()
}

func (c *SearchCache) key(ctx context.Context, term string) (string, error) {
	gen, err := c.rdb.Get(ctx, GenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		gen = 0
	} else if err != nil {
		return "", err
	}
	return fmt.Sprintf("catalog:search:%d:%s", gen, term), nil
}
