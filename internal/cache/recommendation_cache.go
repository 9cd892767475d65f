package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/retailinventory/forecast-engine/internal/config"
	"github.com/retailinventory/forecast-engine/internal/domain"
)

const (
	recommendationKeyPrefix = "reorder:recommendation"
	recommendationScanBatch = 100
)

// RecommendationCache keeps the numeric core of recent reorder
// evaluations (reorder point, safety stock, lead-time demand) so repeated
// reads do not redo forecast work. The trigger evaluation itself is never
// served from cache. Entries are invalidated whenever a pair is
// retrained.
type RecommendationCache interface {
	Get(ctx context.Context, storeID, productID string) (*domain.ReorderRecommendation, bool, error)
	Set(ctx context.Context, rec *domain.ReorderRecommendation) error
	Invalidate(ctx context.Context, storeID, productID string) error
	InvalidateAll(ctx context.Context) error
}

type redisRecommendationCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopRecommendationCache struct{}

func NewRecommendationCache(cfg config.CacheConfig) (RecommendationCache, error) {
	if !cfg.Enabled {
		return &noopRecommendationCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisRecommendationCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopRecommendationCache() RecommendationCache {
	return &noopRecommendationCache{}
}

func (c *redisRecommendationCache) Get(ctx context.Context, storeID, productID string) (*domain.ReorderRecommendation, bool, error) {
	payload, err := c.client.Get(ctx, recommendationKey(storeID, productID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var rec domain.ReorderRecommendation
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, false, fmt.Errorf("decode recommendation cache: %w", err)
	}
	return &rec, true, nil
}

func (c *redisRecommendationCache) Set(ctx context.Context, rec *domain.ReorderRecommendation) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode recommendation cache: %w", err)
	}

	key := recommendationKey(rec.StoreID, rec.ProductID)
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisRecommendationCache) Invalidate(ctx context.Context, storeID, productID string) error {
	return c.client.Del(ctx, recommendationKey(storeID, productID)).Err()
}

func (c *redisRecommendationCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, recommendationKeyPrefix, recommendationScanBatch)
}

func (n *noopRecommendationCache) Get(ctx context.Context, storeID, productID string) (*domain.ReorderRecommendation, bool, error) {
	return nil, false, nil
}

func (n *noopRecommendationCache) Set(ctx context.Context, rec *domain.ReorderRecommendation) error {
	return nil
}

func (n *noopRecommendationCache) Invalidate(ctx context.Context, storeID, productID string) error {
	return nil
}

func (n *noopRecommendationCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func recommendationKey(storeID, productID string) string {
	return fmt.Sprintf("%s:%s:%s", recommendationKeyPrefix, storeID, productID)
}
