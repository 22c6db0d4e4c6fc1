package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storefront-service/internal/domain"
)

const categoriesCacheKey = "storefront:categories"

// CachedCatalog serves the category list from Redis and delegates everything
// else to the wrapped catalog. Products are never cached so prices stay live.
type CachedCatalog struct {
	CatalogStorer
	redis  redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedCatalog wraps catalog with a category cache.
func NewCachedCatalog(catalog CatalogStorer, rdb redis.Cmdable, ttl time.Duration, logger *zap.Logger) *CachedCatalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedCatalog{CatalogStorer: catalog, redis: rdb, ttl: ttl, logger: logger}
}

func (c *CachedCatalog) ListCategories(ctx context.Context) ([]domain.Category, error) {
	data, err := c.redis.Get(ctx, categoriesCacheKey).Bytes()
	switch {
	case err == nil:
		var categories []domain.Category
		if err := json.Unmarshal(data, &categories); err == nil {
			return categories, nil
		}
		c.logger.Warn("Discarding undecodable category cache entry")
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("Category cache read failed", zap.Error(err))
	}

	categories, err := c.CatalogStorer.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(categories); err == nil {
		if err := c.redis.Set(ctx, categoriesCacheKey, data, c.ttl).Err(); err != nil {
			c.logger.Warn("Category cache write failed", zap.Error(err))
		}
	}
	return categories, nil
}
