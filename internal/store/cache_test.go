package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/domain"
)

type countingCatalog struct {
	CatalogStorer
	categories []domain.Category
	calls      int
}

func (c *countingCatalog) ListCategories(ctx context.Context) ([]domain.Category, error) {
	c.calls++
	return c.categories, nil
}

func TestCachedCatalog_ListCategories(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	backing := &countingCatalog{categories: []domain.Category{{ID: 1, Name: "Dresses"}, {ID: 2, Name: "Shoes"}}}
	cached := NewCachedCatalog(backing, rdb, time.Minute, nil)

	first, err := cached.ListCategories(context.Background())
	require.NoError(t, err)
	second, err := cached.ListCategories(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, backing.calls, "second read should be served from Redis")
	assert.True(t, mr.Exists(categoriesCacheKey))

	mr.FastForward(2 * time.Minute)
	_, err = cached.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, backing.calls, "expired entry should be reloaded")
}

func TestCachedCatalog_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	backing := &countingCatalog{categories: []domain.Category{{ID: 1, Name: "Dresses"}}}
	cached := NewCachedCatalog(backing, rdb, time.Minute, nil)

	categories, err := cached.ListCategories(context.Background())

	require.NoError(t, err)
	assert.Len(t, categories, 1)
	assert.Equal(t, 1, backing.calls)
}
