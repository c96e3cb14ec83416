// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

// Package reconcile implements the scheduled like reconciler.
//
// Each pass discovers pending like sets in the ephemeral store, merges them
// into the durable store as idempotent set unions, and deletes only the keys
// whose merge confirmed. Failed keys survive untouched for the next pass:
// the protocol is at-least-once and never lossy.
package reconcile

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/colligo-dev/colligo/internal/database"
	"github.com/colligo-dev/colligo/internal/ephemeral"
	"github.com/colligo-dev/colligo/internal/logging"
	"github.com/colligo-dev/colligo/internal/metrics"
)

// Merger applies pending like sets to the durable store. Implemented by
// database.DB.
type Merger interface {
	BulkMergeLikes(ctx context.Context, pending map[string][]string) *database.MergeReport
}

// Result summarizes one reconciliation pass.
type Result struct {
	Skipped    bool
	Discovered int
	Merged     int
	Missing    int
	Failed     int
	Duration   time.Duration
}

// Reconciler merges ephemeral like deltas into the durable store on a
// schedule.
type Reconciler struct {
	store    ephemeral.Store
	merger   Merger
	interval time.Duration

	// running enforces at most one pass in flight: interleaved
	// merge-then-delete against the same post is not safe across two
	// uncoordinated passes.
	running atomic.Bool
}

// New creates a reconciler.
func New(store ephemeral.Store, merger Merger, interval time.Duration) *Reconciler {
	return &Reconciler{
		store:    store,
		merger:   merger,
		interval: interval,
	}
}

// Run executes passes on the configured interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				logging.Error().Err(err).Msg("reconciliation pass failed, deltas retained for retry")
			}
		}
	}
}

// RunOnce executes a single reconciliation pass. If a pass is already in
// flight the call is a no-op reporting Skipped.
func (r *Reconciler) RunOnce(ctx context.Context) (Result, error) {
	if !r.running.CompareAndSwap(false, true) {
		metrics.ReconcileRuns.WithLabelValues("skipped").Inc()
		return Result{Skipped: true}, nil
	}
	defer r.running.Store(false)

	start := time.Now()
	result, err := r.pass(ctx)
	result.Duration = time.Since(start)

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case result.Failed > 0:
		outcome = "partial"
	}
	metrics.RecordReconcilePass(outcome, result.Duration, result.Merged, result.Failed)

	logging.Info().
		Str("outcome", outcome).
		Int("discovered", result.Discovered).
		Int("merged", result.Merged).
		Int("missing", result.Missing).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("reconciliation pass finished")
	return result, err
}

func (r *Reconciler) pass(ctx context.Context) (Result, error) {
	var result Result

	keys, err := r.store.Keys(ctx, ephemeral.LikeKeyPrefix)
	if err != nil {
		// Nothing was touched; every delta survives for the next pass.
		return result, fmt.Errorf("discover pending like sets: %w", err)
	}
	result.Discovered = len(keys)
	if len(keys) == 0 {
		return result, nil
	}

	pending := make(map[string][]string, len(keys))
	var emptyKeys []string
	for _, key := range keys {
		postID, ok := ephemeral.PostIDFromLikeKey(key)
		if !ok {
			logging.Warn().Str("key", key).Msg("foreign key under like prefix, skipping")
			continue
		}
		members, err := r.store.SetMembers(ctx, key)
		if err != nil {
			// Abort before any durable write; the pass retries whole.
			return result, fmt.Errorf("read pending likes of %s: %w", postID, err)
		}
		if len(members) == 0 {
			// All toggles cancelled out; nothing to merge, key can go.
			emptyKeys = append(emptyKeys, key)
			continue
		}
		pending[postID] = members
	}

	report := r.merger.BulkMergeLikes(ctx, pending)
	result.Merged = len(report.Merged)
	result.Missing = len(report.Missing)
	result.Failed = len(report.Failed)

	for _, postID := range report.Missing {
		logging.Warn().Str("post_id", postID).
			Msg("post gone before reconciliation, dropping its pending likes")
	}
	for postID, mergeErr := range report.Failed {
		logging.Error().Err(mergeErr).Str("post_id", postID).
			Msg("like merge failed, deltas retained for retry")
	}

	// Delete only confirmed keys. A failed delete leaves the key for the
	// next pass; re-merging is an idempotent union, so nothing drifts.
	drainKeys := emptyKeys
	for _, postID := range report.Drainable() {
		drainKeys = append(drainKeys, ephemeral.LikeKey(postID))
	}
	if len(drainKeys) > 0 {
		if err := r.store.Delete(ctx, drainKeys...); err != nil {
			logging.Error().Err(err).Int("keys", len(drainKeys)).
				Msg("drain of reconciled like sets failed, keys retained")
		}
	}

	return result, nil
}
