// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

package feed

import (
	"context"

	"github.com/colligo-dev/colligo/internal/config"
	"github.com/colligo-dev/colligo/internal/models"
)

// RefreshScheduler queues a background rebuild of a viewer's cached feed.
// Implemented by the Refresher; requests for a key already being refreshed
// coalesce into a no-op.
type RefreshScheduler interface {
	Request(viewerID string)
}

// Paginator serves pages of a viewer's feed from the cache, assembling the
// feed on miss.
type Paginator struct {
	assembler *Assembler
	cache     *Cache
	refresh   RefreshScheduler
	cfg       config.FeedConfig
}

// NewPaginator creates a paginator. refresh may be nil, disabling
// last-page-triggered background refresh.
func NewPaginator(assembler *Assembler, cache *Cache, refresh RefreshScheduler, cfg config.FeedConfig) *Paginator {
	return &Paginator{
		assembler: assembler,
		cache:     cache,
		refresh:   refresh,
		cfg:       cfg,
	}
}

// Page returns one page of a viewer's feed and whether it was served from
// cache. Out-of-range pages return an empty slice; pagination never errors.
//
// Re-reading the same (viewer, page, size) before any refresh returns the
// same slice: the underlying feed is only replaced whole, never mutated.
func (p *Paginator) Page(ctx context.Context, viewerID string, pageIndex, pageSize int) (models.FeedPage, bool) {
	if pageIndex < 0 {
		pageIndex = 0
	}
	if pageSize < 1 {
		pageSize = p.cfg.DefaultPageSize
	}
	if pageSize > p.cfg.MaxPageSize {
		pageSize = p.cfg.MaxPageSize
	}

	entries, cached := p.cache.GetFeed(ctx, viewerID)
	if !cached {
		entries = p.assembler.Assemble(ctx, viewerID)
		// A failed cache write degrades to serving uncached; already logged
		// at the cache boundary.
		_ = p.cache.SetFeed(ctx, viewerID, entries)
	}

	// pageIndex*pageSize can wrap on absurd page numbers; a wrapped start or
	// end is past the feed either way.
	start := pageIndex * pageSize
	end := start + pageSize
	if start < 0 || start > len(entries) {
		start = len(entries)
	}
	if end < start || end > len(entries) {
		end = len(entries)
	}

	// Reaching the end of the materialized feed schedules an out-of-band
	// rebuild so the next session starts fresh. The current response is
	// never delayed by it.
	if end == len(entries) && p.refresh != nil {
		p.refresh.Request(viewerID)
	}

	page := models.FeedPage{
		ViewerID: viewerID,
		Page:     pageIndex,
		Size:     pageSize,
		Entries:  entries[start:end],
	}
	if page.Entries == nil {
		page.Entries = []models.FeedEntry{}
	}
	return page, cached
}
