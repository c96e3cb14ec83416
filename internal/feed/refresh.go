// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

package feed

import (
	"context"
	"sync"
	"time"

	"github.com/colligo-dev/colligo/internal/events"
	"github.com/colligo-dev/colligo/internal/logging"
	"github.com/colligo-dev/colligo/internal/metrics"
)

// Refresher rebuilds cached feeds out-of-band. Requests travel over the event
// bus; the worker enforces at-most-one rebuild in flight per viewer key, so a
// request for a key already being refreshed is a no-op instead of a second
// concurrent rebuild.
type Refresher struct {
	assembler *Assembler
	cache     *Cache
	bus       *events.Bus

	inFlight sync.Map // viewerID -> struct{}

	// wg tracks rebuild goroutines for clean shutdown.
	wg sync.WaitGroup
}

// NewRefresher creates a feed refresher.
func NewRefresher(assembler *Assembler, cache *Cache, bus *events.Bus) *Refresher {
	return &Refresher{
		assembler: assembler,
		cache:     cache,
		bus:       bus,
	}
}

// Request queues a background refresh for a viewer. Fire-and-forget: the
// caller's response path never waits on the rebuild.
func (r *Refresher) Request(viewerID string) {
	err := r.bus.Publish(events.TopicFeedRefresh, events.FeedRefreshRequested{
		ViewerID: viewerID,
		At:       time.Now().UTC(),
	})
	if err != nil {
		logging.Warn().Err(err).Str("viewer_id", viewerID).
			Msg("feed refresh request dropped")
		return
	}
	metrics.FeedRefreshesQueued.Inc()
}

// Run consumes refresh requests until ctx is cancelled. It returns after all
// in-flight rebuilds complete.
func (r *Refresher) Run(ctx context.Context) error {
	messages, err := r.bus.Subscribe(ctx, events.TopicFeedRefresh)
	if err != nil {
		return err
	}

	for msg := range messages {
		var req events.FeedRefreshRequested
		if err := events.Decode(msg, &req); err != nil {
			logging.Warn().Err(err).Msg("dropping malformed refresh request")
			continue
		}
		r.dispatch(ctx, req.ViewerID)
	}

	r.wg.Wait()
	return ctx.Err()
}

// dispatch starts a rebuild for viewerID unless one is already in flight.
func (r *Refresher) dispatch(ctx context.Context, viewerID string) {
	if viewerID == "" {
		return
	}
	if _, loaded := r.inFlight.LoadOrStore(viewerID, struct{}{}); loaded {
		metrics.FeedRefreshesCoalesced.Inc()
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.inFlight.Delete(viewerID)
		r.rebuild(ctx, viewerID)
	}()
}

func (r *Refresher) rebuild(ctx context.Context, viewerID string) {
	entries := r.assembler.Assemble(ctx, viewerID)
	if err := r.cache.SetFeed(ctx, viewerID, entries); err != nil {
		// Already logged at the cache boundary; the stale entry stays until
		// its TTL runs out.
		return
	}
	logging.Debug().Str("viewer_id", viewerID).Int("entries", len(entries)).
		Msg("feed refreshed in background")
}
