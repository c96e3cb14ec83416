// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

// Package ephemeral provides the shared fast-access store backing the hot
// engagement path and the feed cache.
//
// The store offers two primitives over one keyspace: string sets (like
// membership, keyed post_like:<postId>) and TTL'd byte values (cached feeds
// and author post lists). State here is authoritative only between
// reconciliation cycles; losing it loses at most the likes toggled since the
// last reconciliation pass.
//
// Three drivers are provided: redis (production, shared across instances),
// badger (single-node persistent) and memory (development and tests).
package ephemeral

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/colligo-dev/colligo/internal/config"
)

// ErrNotFound is returned by Get when the key does not exist or has expired.
var ErrNotFound = errors.New("ephemeral: key not found")

// Store is the ephemeral store contract shared by the like path, the
// reconciler and the feed cache.
//
// ToggleMember must be atomic with respect to concurrent toggles of the same
// (key, member) pair: two racing toggles must observe each other, never both
// add or both remove.
type Store interface {
	// ToggleMember flips membership of member in the set at key and reports
	// the resulting state: true if the member is now present.
	ToggleMember(ctx context.Context, key, member string) (bool, error)

	// SetMembers returns all members of the set at key. A missing key yields
	// an empty slice, not an error.
	SetMembers(ctx context.Context, key string) ([]string, error)

	// IsMember reports whether member is in the set at key.
	IsMember(ctx context.Context, key, member string) (bool, error)

	// Keys returns all keys with the given prefix. Used by the reconciler to
	// discover pending like sets.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// Get returns the value at key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// SetWithTTL stores value at key, expiring after ttl.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Close releases the underlying driver resources.
	Close() error
}

// Open constructs the Store selected by the configuration.
func Open(cfg config.EphemeralConfig) (Store, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedisStore(cfg)
	case "badger":
		return NewBadgerStore(cfg.BadgerPath)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("ephemeral: unknown driver %q", cfg.Driver)
	}
}
