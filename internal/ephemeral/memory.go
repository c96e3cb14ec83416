// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

package ephemeral

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryValue struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore implements Store with in-process maps. It exists for
// development and tests; state is lost on restart and never shared.
type MemoryStore struct {
	mu     sync.Mutex
	sets   map[string]map[string]struct{}
	values map[string]memoryValue

	// now is swappable in tests to exercise expiry.
	now func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sets:   make(map[string]map[string]struct{}),
		values: make(map[string]memoryValue),
		now:    time.Now,
	}
}

// ToggleMember flips membership of member in the set at key. The whole toggle
// runs under one lock, so racing toggles serialize.
func (s *MemoryStore) ToggleMember(ctx context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{})
		s.sets[key] = set
	}

	if _, present := set[member]; present {
		delete(set, member)
		if len(set) == 0 {
			delete(s.sets, key)
		}
		return false, nil
	}
	set[member] = struct{}{}
	return true, nil
}

// SetMembers returns all members of the set at key, sorted.
func (s *MemoryStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	members := make([]string, 0, len(s.sets[key]))
	for m := range s.sets[key] {
		members = append(members, m)
	}
	sort.Strings(members)
	return members, nil
}

// IsMember reports whether member is in the set at key.
func (s *MemoryStore) IsMember(ctx context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, present := s.sets[key][member]
	return present, nil
}

// Keys returns all keys with the given prefix, covering both sets and values.
func (s *MemoryStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for k := range s.sets {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	now := s.now()
	for k, v := range s.values {
		if strings.HasPrefix(k, prefix) && now.Before(v.expiresAt) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete removes the given keys.
func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.sets, key)
		delete(s.values, key)
	}
	return nil
}

// Get returns the value at key, or ErrNotFound. Expired values are dropped.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	if !s.now().Before(v.expiresAt) {
		delete(s.values, key)
		return nil, ErrNotFound
	}
	return v.data, nil
}

// SetWithTTL stores value at key with an expiry.
func (s *MemoryStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = memoryValue{
		data:      append([]byte(nil), value...),
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// Close is a no-op for the in-memory driver.
func (s *MemoryStore) Close() error {
	return nil
}
