// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

package ephemeral

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/colligo-dev/colligo/internal/metrics"
)

// maxToggleRetries bounds retry of toggle transactions aborted by BadgerDB's
// optimistic conflict detection.
const maxToggleRetries = 8

// BadgerStore implements Store on an embedded BadgerDB. Suitable for
// single-node deployments: state survives restarts but is not shared across
// instances.
//
// Sets are stored as JSON-encoded sorted string slices under their key.
// Membership toggles run inside Update transactions; Badger's conflict
// detection aborts racing toggles of the same key and the loser retries, so
// two concurrent toggles never both add or both remove.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) a BadgerDB at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return &BadgerStore{db: db}, nil
}

// NewBadgerStoreInMemory opens an in-memory BadgerDB. Used in tests.
func NewBadgerStoreInMemory() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func readSet(txn *badger.Txn, key string) ([]string, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var members []string
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &members)
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}

func writeSet(txn *badger.Txn, key string, members []string) error {
	if len(members) == 0 {
		err := txn.Delete([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	}
	sort.Strings(members)
	data, err := json.Marshal(members)
	if err != nil {
		return err
	}
	return txn.Set([]byte(key), data)
}

// ToggleMember flips membership of member in the set at key.
func (s *BadgerStore) ToggleMember(ctx context.Context, key, member string) (bool, error) {
	var present bool

	var err error
	for attempt := 0; attempt < maxToggleRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			metrics.RecordEphemeralOperation("toggle_member", ctxErr)
			return false, ctxErr
		}

		err = s.db.Update(func(txn *badger.Txn) error {
			members, err := readSet(txn, key)
			if err != nil {
				return err
			}

			idx := -1
			for i, m := range members {
				if m == member {
					idx = i
					break
				}
			}

			if idx >= 0 {
				members = append(members[:idx], members[idx+1:]...)
				present = false
			} else {
				members = append(members, member)
				present = true
			}
			return writeSet(txn, key, members)
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}

	metrics.RecordEphemeralOperation("toggle_member", err)
	if err != nil {
		return false, fmt.Errorf("toggle member %s in %s: %w", member, key, err)
	}
	return present, nil
}

// SetMembers returns all members of the set at key.
func (s *BadgerStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	var members []string
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		members, err = readSet(txn, key)
		return err
	})
	metrics.RecordEphemeralOperation("set_members", err)
	if err != nil {
		return nil, fmt.Errorf("read set %s: %w", key, err)
	}
	if members == nil {
		members = []string{}
	}
	return members, nil
}

// IsMember reports whether member is in the set at key.
func (s *BadgerStore) IsMember(ctx context.Context, key, member string) (bool, error) {
	members, err := s.SetMembers(ctx, key)
	if err != nil {
		return false, err
	}
	for _, m := range members {
		if m == member {
			return true, nil
		}
	}
	return false, nil
}

// Keys returns all keys with the given prefix.
func (s *BadgerStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	metrics.RecordEphemeralOperation("keys", err)
	if err != nil {
		return nil, fmt.Errorf("scan prefix %s: %w", prefix, err)
	}
	return keys, nil
}

// Delete removes the given keys.
func (s *BadgerStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete([]byte(key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return nil
	})
	metrics.RecordEphemeralOperation("delete", err)
	if err != nil {
		return fmt.Errorf("delete %d keys: %w", len(keys), err)
	}
	return nil
}

// Get returns the value at key, or ErrNotFound. Expired entries are treated
// as missing.
func (s *BadgerStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		metrics.RecordEphemeralOperation("get", nil)
		return nil, ErrNotFound
	}
	metrics.RecordEphemeralOperation("get", err)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// SetWithTTL stores value at key with an expiry.
func (s *BadgerStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	metrics.RecordEphemeralOperation("set_with_ttl", err)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying BadgerDB.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
