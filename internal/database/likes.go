// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/colligo-dev/colligo/internal/metrics"
)

// MergeReport summarizes one bulk like merge. Merged and Missing carry post
// IDs whose ephemeral keys may safely be deleted: merged likes are durable,
// and likes of deleted posts are dropped deliberately. Failed entries must be
// retained for the next pass.
type MergeReport struct {
	Merged  []string
	Missing []string
	Failed  map[string]error
}

// Drainable returns the post IDs whose pending like sets may be deleted.
func (r *MergeReport) Drainable() []string {
	drainable := make([]string, 0, len(r.Merged)+len(r.Missing))
	drainable = append(drainable, r.Merged...)
	drainable = append(drainable, r.Missing...)
	return drainable
}

// MergeLikes applies a pending like set to one post inside a transaction.
//
// The merge is a set union: pending likers are added, never removed, so
// retrying with a superset of already-applied likes is a no-op. like_count is
// recomputed as the resulting set cardinality, never incremented. Returns the
// new count, or ErrPostNotFound.
func (db *DB) MergeLikes(ctx context.Context, postID string, users []string) (int64, error) {
	start := time.Now()
	count, err := db.mergeLikes(ctx, postID, users)
	metrics.RecordDBQuery("merge_likes", "post_likes", time.Since(start), err)
	return count, err
}

func (db *DB) mergeLikes(ctx context.Context, postID string, users []string) (int64, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin merge: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE id = ?`, postID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrPostNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("check post %s: %w", postID, err)
	}

	// The primary key makes the insert idempotent; re-merging after a crash
	// between durable write and ephemeral drain converges to the same state.
	for _, userID := range users {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO post_likes (post_id, user_id) VALUES (?, ?)
			 ON CONFLICT (post_id, user_id) DO NOTHING`,
			postID, userID)
		if err != nil {
			return 0, fmt.Errorf("merge like %s on %s: %w", userID, postID, err)
		}
	}

	var count int64
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM post_likes WHERE post_id = ?`, postID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("recount likes of %s: %w", postID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE posts SET like_count = ? WHERE id = ?`, count, postID); err != nil {
		return 0, fmt.Errorf("update like count of %s: %w", postID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit merge of %s: %w", postID, err)
	}
	return count, nil
}

// BulkMergeLikes merges many pending like sets, one transaction per post, in
// map iteration order (deliberately unordered). A failure on one post never
// blocks the others; the report isolates each outcome.
func (db *DB) BulkMergeLikes(ctx context.Context, pending map[string][]string) *MergeReport {
	report := &MergeReport{
		Merged:  []string{},
		Missing: []string{},
		Failed:  map[string]error{},
	}

	for postID, users := range pending {
		_, err := db.MergeLikes(ctx, postID, users)
		switch {
		case err == nil:
			report.Merged = append(report.Merged, postID)
		case errors.Is(err, ErrPostNotFound):
			report.Missing = append(report.Missing, postID)
		default:
			report.Failed[postID] = err
		}
	}
	return report
}
