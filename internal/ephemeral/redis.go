// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

package ephemeral

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/colligo-dev/colligo/internal/config"
	"github.com/colligo-dev/colligo/internal/metrics"
)

// toggleScript flips set membership server-side so concurrent toggles of the
// same (key, member) pair serialize inside Redis. Returns 1 if the member was
// added, 0 if removed.
var toggleScript = redis.NewScript(`
if redis.call("SISMEMBER", KEYS[1], ARGV[1]) == 1 then
	redis.call("SREM", KEYS[1], ARGV[1])
	return 0
else
	redis.call("SADD", KEYS[1], ARGV[1])
	return 1
end
`)

// RedisStore implements Store on a shared Redis instance. This is the
// production driver: multiple service instances see the same like sets and
// feed cache.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg config.EphemeralConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}

	return &RedisStore{client: client}, nil
}

// ToggleMember flips membership atomically via a server-side script.
func (s *RedisStore) ToggleMember(ctx context.Context, key, member string) (bool, error) {
	res, err := toggleScript.Run(ctx, s.client, []string{key}, member).Int()
	metrics.RecordEphemeralOperation("toggle_member", err)
	if err != nil {
		return false, fmt.Errorf("toggle member %s in %s: %w", member, key, err)
	}
	return res == 1, nil
}

// SetMembers returns all members of the set at key.
func (s *RedisStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.SMembers(ctx, key).Result()
	metrics.RecordEphemeralOperation("set_members", err)
	if err != nil {
		return nil, fmt.Errorf("smembers %s: %w", key, err)
	}
	return members, nil
}

// IsMember reports whether member is in the set at key.
func (s *RedisStore) IsMember(ctx context.Context, key, member string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, key, member).Result()
	metrics.RecordEphemeralOperation("is_member", err)
	if err != nil {
		return false, fmt.Errorf("sismember %s: %w", key, err)
	}
	return ok, nil
}

// Keys scans the keyspace for keys with the given prefix. SCAN is used rather
// than KEYS so discovery never blocks the server.
func (s *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	err := iter.Err()
	metrics.RecordEphemeralOperation("keys", err)
	if err != nil {
		return nil, fmt.Errorf("scan %s*: %w", prefix, err)
	}
	return keys, nil
}

// Delete removes the given keys.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	err := s.client.Del(ctx, keys...).Err()
	metrics.RecordEphemeralOperation("delete", err)
	if err != nil {
		return fmt.Errorf("del %d keys: %w", len(keys), err)
	}
	return nil
}

// Get returns the value at key, or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordEphemeralOperation("get", nil)
		return nil, ErrNotFound
	}
	metrics.RecordEphemeralOperation("get", err)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return val, nil
}

// SetWithTTL stores value at key with an expiry.
func (s *RedisStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := s.client.Set(ctx, key, value, ttl).Err()
	metrics.RecordEphemeralOperation("set_with_ttl", err)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
