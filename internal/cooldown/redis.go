// Package cooldown provides a shared CooldownStore for deployments that run
// more than one platewise process against the same diary.
package cooldown

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/hyperengineering/platewise/internal/engine"
	"github.com/hyperengineering/platewise/internal/store"
)

// DefaultKeyPrefix namespaces the cooldown keys.
const DefaultKeyPrefix = "platewise:cooldown"

// maxRetries bounds optimistic transaction retries under contention.
const maxRetries = 10

// ErrContention is returned when an update keeps losing the optimistic race.
var ErrContention = errors.New("cooldown update contention")

// RedisStore keeps the cooldown timestamps in a Redis hash and updates them
// with WATCH/MULTI so concurrent writers cannot interleave.
type RedisStore struct {
	client *redis.Client
	key    string
}

var _ engine.CooldownStore = (*RedisStore)(nil)

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int, prefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisStoreWithClient(client, prefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, key: prefix}
}

// Close closes the underlying client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// LoadCooldown reads the current state.
func (r *RedisStore) LoadCooldown(ctx context.Context) (engine.CooldownState, error) {
	return r.load(ctx, r.client)
}

// UpdateCooldown runs fn against the watched state and commits its result
// atomically, retrying when another writer got in first.
func (r *RedisStore) UpdateCooldown(ctx context.Context, fn engine.UpdateFunc) error {
	txf := func(tx *redis.Tx) error {
		current, err := r.load(ctx, tx)
		if err != nil {
			return err
		}
		next, changed := fn(current)
		if !changed {
			return nil
		}

		fields := map[string]interface{}{}
		if next.LastS != nil {
			fields[store.KeyLastSFoodTime] = engine.FormatTimestamp(next.LastS)
		}
		if next.LastP != nil {
			fields[store.KeyLastPFoodTime] = engine.FormatTimestamp(next.LastP)
		}
		if len(fields) == 0 {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, r.key, fields)
			return nil
		})
		return err
	}

	for i := 0; i < maxRetries; i++ {
		err := r.client.Watch(ctx, txf, r.key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return fmt.Errorf("failed to update cooldown: %w", err)
	}
	return ErrContention
}

type hashGetter interface {
	HGetAll(ctx context.Context, key string) *redis.StringStringMapCmd
}

func (r *RedisStore) load(ctx context.Context, c hashGetter) (engine.CooldownState, error) {
	values, err := c.HGetAll(ctx, r.key).Result()
	if err != nil && err != redis.Nil {
		return engine.CooldownState{}, fmt.Errorf("failed to get cooldown: %w", err)
	}
	return engine.CooldownState{
		LastS: engine.ParseTimestamp(values[store.KeyLastSFoodTime]),
		LastP: engine.ParseTimestamp(values[store.KeyLastPFoodTime]),
	}, nil
}
