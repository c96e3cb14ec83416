// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

package feed

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"

	"github.com/colligo-dev/colligo/internal/config"
	"github.com/colligo-dev/colligo/internal/ephemeral"
	"github.com/colligo-dev/colligo/internal/logging"
	"github.com/colligo-dev/colligo/internal/metrics"
	"github.com/colligo-dev/colligo/internal/models"
)

// Cache stores assembled feeds and author post lists in the shared ephemeral
// store. Feeds are cached as one JSON-encoded entry list per viewer under
// user_feed:<viewerId>; a cached feed is replaced whole on refresh, never
// patched.
//
// The cache is strictly an accelerator: any read or decode failure is
// reported as a miss, and write failures are logged and swallowed so feed
// reads degrade to compute-fresh rather than erroring.
type Cache struct {
	store          ephemeral.Store
	feedTTL        time.Duration
	authorPostsTTL time.Duration
}

// NewCache creates a feed cache over the shared ephemeral store.
func NewCache(store ephemeral.Store, cfg config.FeedConfig) *Cache {
	return &Cache{
		store:          store,
		feedTTL:        cfg.CacheTTL,
		authorPostsTTL: cfg.AuthorCacheTTL,
	}
}

// GetFeed returns the cached feed for a viewer. The second return is false on
// miss, decode failure, or store failure.
func (c *Cache) GetFeed(ctx context.Context, viewerID string) ([]models.FeedEntry, bool) {
	data, err := c.store.Get(ctx, ephemeral.FeedKey(viewerID))
	if errors.Is(err, ephemeral.ErrNotFound) {
		metrics.FeedCacheMisses.Inc()
		return nil, false
	}
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("viewer_id", viewerID).
			Msg("feed cache read failed, computing fresh")
		metrics.FeedCacheMisses.Inc()
		return nil, false
	}

	var entries []models.FeedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("viewer_id", viewerID).
			Msg("cached feed is corrupt, treating as miss")
		metrics.FeedCacheMisses.Inc()
		return nil, false
	}

	metrics.FeedCacheHits.Inc()
	return entries, true
}

// SetFeed caches a freshly assembled feed. Failures are logged and reported
// but never fatal to the caller's read.
func (c *Cache) SetFeed(ctx context.Context, viewerID string, entries []models.FeedEntry) error {
	if entries == nil {
		entries = []models.FeedEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	if err := c.store.SetWithTTL(ctx, ephemeral.FeedKey(viewerID), data, c.feedTTL); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("viewer_id", viewerID).
			Msg("feed cache write failed, serving uncached")
		return err
	}
	return nil
}

// InvalidateFeed drops a viewer's cached feed.
func (c *Cache) InvalidateFeed(ctx context.Context, viewerID string) error {
	return c.store.Delete(ctx, ephemeral.FeedKey(viewerID))
}

// AuthorPosts returns the cached post list for an author, or false on miss.
func (c *Cache) AuthorPosts(ctx context.Context, authorID string) ([]models.Post, bool) {
	data, err := c.store.Get(ctx, ephemeral.AuthorPostsKey(authorID))
	if err != nil {
		return nil, false
	}
	var posts []models.Post
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, false
	}
	return posts, true
}

// SetAuthorPosts caches an author's post list.
func (c *Cache) SetAuthorPosts(ctx context.Context, authorID string, posts []models.Post) error {
	if posts == nil {
		posts = []models.Post{}
	}
	data, err := json.Marshal(posts)
	if err != nil {
		return err
	}
	return c.store.SetWithTTL(ctx, ephemeral.AuthorPostsKey(authorID), data, c.authorPostsTTL)
}

// InvalidateAuthorPosts drops an author's cached post list. Called on post
// create and delete so the next assembly sees current posts.
func (c *Cache) InvalidateAuthorPosts(ctx context.Context, authorID string) error {
	return c.store.Delete(ctx, ephemeral.AuthorPostsKey(authorID))
}
