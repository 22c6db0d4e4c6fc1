// Package session keeps per-user checkout state between the checkout
// request and the payment initiation request.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoPendingOrders is returned when the user has no stashed order ids.
var ErrNoPendingOrders = errors.New("session: no pending orders")

// Store reads and writes pending order ids.
type Store interface {
	SavePendingOrders(ctx context.Context, userID int64, orderIDs []int64) error
	PendingOrders(ctx context.Context, userID int64) ([]int64, error)
	ClearPendingOrders(ctx context.Context, userID int64) error
}

// RedisStore keeps pending order ids in Redis, one key per user.
type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func pendingOrdersKey(userID int64) string {
	return fmt.Sprintf("storefront:session:%d:pending_orders", userID)
}

// SavePendingOrders replaces the user's pending order ids.
func (s *RedisStore) SavePendingOrders(ctx context.Context, userID int64, orderIDs []int64) error {
	data, err := json.Marshal(orderIDs)
	if err != nil {
		return fmt.Errorf("session: failed to encode order ids: %w", err)
	}
	if err := s.rdb.Set(ctx, pendingOrdersKey(userID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: failed to save pending orders: %w", err)
	}
	return nil
}

// PendingOrders returns ErrNoPendingOrders when nothing is stashed or the list is empty.
func (s *RedisStore) PendingOrders(ctx context.Context, userID int64) ([]int64, error) {
	data, err := s.rdb.Get(ctx, pendingOrdersKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoPendingOrders
	}
	if err != nil {
		return nil, fmt.Errorf("session: failed to read pending orders: %w", err)
	}
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("session: failed to decode pending orders: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrNoPendingOrders
	}
	return ids, nil
}

func (s *RedisStore) ClearPendingOrders(ctx context.Context, userID int64) error {
	if err := s.rdb.Del(ctx, pendingOrdersKey(userID)).Err(); err != nil {
		return fmt.Errorf("session: failed to clear pending orders: %w", err)
	}
	return nil
}
