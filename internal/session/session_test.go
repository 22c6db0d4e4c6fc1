package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisStore(rdb, 30*time.Minute), mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SavePendingOrders(ctx, 7, []int64{11, 12}))

	ids, err := store.PendingOrders(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 12}, ids)
	assert.Equal(t, 30*time.Minute, mr.TTL(pendingOrdersKey(7)))

	_, err = store.PendingOrders(ctx, 8)
	assert.True(t, errors.Is(err, ErrNoPendingOrders), "sessions are per user")
}

func TestRedisStore_SaveReplaces(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SavePendingOrders(ctx, 7, []int64{1}))
	require.NoError(t, store.SavePendingOrders(ctx, 7, []int64{2, 3}))

	ids, err := store.PendingOrders(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids)
}

func TestRedisStore_ExpiryAndClear(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SavePendingOrders(ctx, 7, []int64{1}))
	mr.FastForward(time.Hour)
	_, err := store.PendingOrders(ctx, 7)
	assert.True(t, errors.Is(err, ErrNoPendingOrders))

	require.NoError(t, store.SavePendingOrders(ctx, 7, []int64{1}))
	require.NoError(t, store.ClearPendingOrders(ctx, 7))
	_, err = store.PendingOrders(ctx, 7)
	assert.True(t, errors.Is(err, ErrNoPendingOrders))
}

func TestRedisStore_EmptyList(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.SavePendingOrders(context.Background(), 7, []int64{}))

	_, err := store.PendingOrders(context.Background(), 7)
	assert.True(t, errors.Is(err, ErrNoPendingOrders))
}
