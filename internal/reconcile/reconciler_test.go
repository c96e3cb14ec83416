// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

package reconcile

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/colligo-dev/colligo/internal/config"
	"github.com/colligo-dev/colligo/internal/database"
	"github.com/colligo-dev/colligo/internal/engagement"
	"github.com/colligo-dev/colligo/internal/ephemeral"
	"github.com/colligo-dev/colligo/internal/models"
)

// testDBSemaphore limits concurrent in-memory DuckDB instances; the CGO
// driver misbehaves when many are opened in parallel test processes.
var testDBSemaphore = make(chan struct{}, 2)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	db, err := database.New(&config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "512MB",
	})
	if err != nil {
		t.Fatalf("create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func mustCreatePost(t *testing.T, db *database.DB, id, authorID string) {
	t.Helper()
	post := models.Post{
		ID:        id,
		AuthorID:  authorID,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := db.CreatePost(context.Background(), &post); err != nil {
		t.Fatalf("create post %s: %v", id, err)
	}
}

// fakeMerger reports a scripted outcome per post and can block mid-merge.
type fakeMerger struct {
	mu      sync.Mutex
	failing map[string]error
	missing map[string]bool
	calls   int
	block   chan struct{}
}

func (f *fakeMerger) BulkMergeLikes(ctx context.Context, pending map[string][]string) *database.MergeReport {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}

	report := &database.MergeReport{Merged: []string{}, Missing: []string{}, Failed: map[string]error{}}
	for postID := range pending {
		switch {
		case f.failing[postID] != nil:
			report.Failed[postID] = f.failing[postID]
		case f.missing[postID]:
			report.Missing = append(report.Missing, postID)
		default:
			report.Merged = append(report.Merged, postID)
		}
	}
	return report
}

func (f *fakeMerger) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func seedLikes(t *testing.T, store ephemeral.Store, postID string, users ...string) {
	t.Helper()
	for _, userID := range users {
		if _, err := store.ToggleMember(context.Background(), ephemeral.LikeKey(postID), userID); err != nil {
			t.Fatalf("seed like %s on %s: %v", userID, postID, err)
		}
	}
}

func TestRunOnceMergesAndDrains(t *testing.T) {
	db := setupTestDB(t)
	store := ephemeral.NewMemoryStore()
	ctx := context.Background()

	mustCreatePost(t, db, "p1", "a1")
	mustCreatePost(t, db, "p2", "a1")

	toggler := engagement.NewToggler(store, nil)
	for _, userID := range []string{"u1", "u2", "u3"} {
		if _, err := toggler.Toggle(ctx, "p1", userID); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := toggler.Toggle(ctx, "p2", "u1"); err != nil {
		t.Fatal(err)
	}

	reconciler := New(store, db, time.Minute)
	result, err := reconciler.RunOnce(ctx)
	if err != nil {
		t.Fatalf("pass: %v", err)
	}
	if result.Discovered != 2 || result.Merged != 2 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	post, err := db.GetPost(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if post.LikeCount != 3 || len(post.Likes) != 3 {
		t.Errorf("expected 3 durable likes on p1, got count=%d likes=%v", post.LikeCount, post.Likes)
	}

	// Merged keys are drained; nothing remains pending.
	keys, err := store.Keys(ctx, ephemeral.LikeKeyPrefix)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 0 {
		t.Errorf("expected drained like keys, got %v", keys)
	}
}

func TestRunOnceConverges(t *testing.T) {
	db := setupTestDB(t)
	store := ephemeral.NewMemoryStore()
	ctx := context.Background()

	mustCreatePost(t, db, "p1", "a1")
	toggler := engagement.NewToggler(store, nil)
	if _, err := toggler.Toggle(ctx, "p1", "u1"); err != nil {
		t.Fatal(err)
	}

	reconciler := New(store, db, time.Minute)
	if _, err := reconciler.RunOnce(ctx); err != nil {
		t.Fatal(err)
	}

	// A second pass over the drained store is a no-op and changes nothing.
	result, err := reconciler.RunOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.Discovered != 0 || result.Merged != 0 {
		t.Errorf("second pass should find nothing, got %+v", result)
	}

	post, err := db.GetPost(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if post.LikeCount != 1 {
		t.Errorf("like count drifted across passes: %d", post.LikeCount)
	}
}

// A like toggled on and off again before reconciliation must never reach the
// durable store.
func TestRunOnceCancelledToggleNeverPersists(t *testing.T) {
	db := setupTestDB(t)
	store := ephemeral.NewMemoryStore()
	ctx := context.Background()

	mustCreatePost(t, db, "p1", "a1")
	toggler := engagement.NewToggler(store, nil)
	for i := 0; i < 2; i++ {
		if _, err := toggler.Toggle(ctx, "p1", "u1"); err != nil {
			t.Fatal(err)
		}
	}

	reconciler := New(store, db, time.Minute)
	if _, err := reconciler.RunOnce(ctx); err != nil {
		t.Fatal(err)
	}

	post, err := db.GetPost(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if post.LikeCount != 0 || len(post.Likes) != 0 {
		t.Errorf("cancelled toggle leaked to durable store: count=%d likes=%v",
			post.LikeCount, post.Likes)
	}

	// The emptied key is drained too.
	keys, err := store.Keys(ctx, ephemeral.LikeKeyPrefix)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 0 {
		t.Errorf("expected empty key to drain, got %v", keys)
	}
}

func TestRunOnceMissingPostDrainsKey(t *testing.T) {
	db := setupTestDB(t)
	store := ephemeral.NewMemoryStore()
	ctx := context.Background()

	seedLikes(t, store, "ghost", "u1", "u2")

	reconciler := New(store, db, time.Minute)
	result, err := reconciler.RunOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.Missing != 1 || result.Merged != 0 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	keys, err := store.Keys(ctx, ephemeral.LikeKeyPrefix)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 0 {
		t.Errorf("likes of a deleted post must drain, got %v", keys)
	}
}

func TestRunOnceRetainsFailedKeys(t *testing.T) {
	store := ephemeral.NewMemoryStore()
	ctx := context.Background()

	seedLikes(t, store, "pOK", "u1")
	seedLikes(t, store, "pBAD", "u2")

	merger := &fakeMerger{failing: map[string]error{"pBAD": errors.New("disk full")}}
	reconciler := New(store, merger, time.Minute)

	result, err := reconciler.RunOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.Merged != 1 || result.Failed != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	keys, err := store.Keys(ctx, ephemeral.LikeKeyPrefix)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(keys, []string{ephemeral.LikeKey("pBAD")}) {
		t.Errorf("only the failed key should survive, got %v", keys)
	}
}

func TestRunOnceSingleFlight(t *testing.T) {
	store := ephemeral.NewMemoryStore()
	ctx := context.Background()
	seedLikes(t, store, "p1", "u1")

	block := make(chan struct{})
	merger := &fakeMerger{block: block}
	reconciler := New(store, merger, time.Minute)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := reconciler.RunOnce(ctx); err != nil {
			t.Errorf("blocked pass: %v", err)
		}
	}()
	for merger.callCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	// While the first pass is mid-merge, a second call must skip.
	result, err := reconciler.RunOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Skipped {
		t.Error("overlapping pass should report Skipped")
	}

	close(block)
	<-done

	// With the first pass finished, subsequent calls run again.
	result, err = reconciler.RunOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.Skipped {
		t.Error("pass after release should not skip")
	}
}
