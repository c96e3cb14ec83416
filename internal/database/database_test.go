// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

package database

import (
	"context"
	"testing"
	"time"

	"github.com/colligo-dev/colligo/internal/config"
	"github.com/colligo-dev/colligo/internal/models"
)

// testDBSemaphore limits concurrent in-memory DuckDB instances; the CGO
// driver misbehaves when many are opened in parallel test processes.
var testDBSemaphore = make(chan struct{}, 2)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	db, err := New(&config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "512MB",
	})
	if err != nil {
		t.Fatalf("create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func mustCreatePost(t *testing.T, db *DB, post models.Post) models.Post {
	t.Helper()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	if err := db.CreatePost(context.Background(), &post); err != nil {
		t.Fatalf("create post %s: %v", post.ID, err)
	}
	return post
}

func TestPing(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestSchemaIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	if err := db.createTables(); err != nil {
		t.Fatalf("second createTables run: %v", err)
	}
}
