// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/colligo-dev/colligo/internal/config"
	"github.com/colligo-dev/colligo/internal/database"
	"github.com/colligo-dev/colligo/internal/engagement"
	"github.com/colligo-dev/colligo/internal/ephemeral"
	"github.com/colligo-dev/colligo/internal/feed"
	"github.com/colligo-dev/colligo/internal/models"
	"github.com/colligo-dev/colligo/internal/reconcile"
)

// testDBSemaphore limits concurrent in-memory DuckDB instances; the CGO
// driver misbehaves when many are opened in parallel test processes.
var testDBSemaphore = make(chan struct{}, 2)

// stubResolver serves fixed candidate pools.
type stubResolver struct {
	following []models.CandidateAuthor
	random    []models.CandidateAuthor
}

func (s *stubResolver) Following(ctx context.Context, viewerID string, limit int) ([]models.CandidateAuthor, error) {
	return s.following, nil
}

func (s *stubResolver) RandomPublic(ctx context.Context, viewerID string, limit int) ([]models.CandidateAuthor, error) {
	return s.random, nil
}

type testServer struct {
	handler http.Handler
	db      *database.DB
	store   ephemeral.Store
}

func setupTestServer(t *testing.T, resolver feed.CandidateResolver) *testServer {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB"})
	if err != nil {
		t.Fatalf("create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := ephemeral.NewMemoryStore()
	feedCfg := config.FeedConfig{
		SampleSize:        10,
		TopPostsPerAuthor: 5,
		CacheTTL:          time.Minute,
		AuthorCacheTTL:    time.Minute,
		DefaultPageSize:   10,
		MaxPageSize:       50,
	}

	cache := feed.NewCache(store, feedCfg)
	assembler := feed.NewAssembler(resolver, db, cache, feedCfg)
	paginator := feed.NewPaginator(assembler, cache, nil, feedCfg)
	toggler := engagement.NewToggler(store, nil)
	reconciler := reconcile.New(store, db, time.Minute)

	handler := NewHandler(db, store, paginator, cache, toggler, reconciler, nil)
	router := NewRouter(handler, &config.SecurityConfig{AuthMode: "none"}, nil)

	return &testServer{handler: router, db: db, store: store}
}

func (ts *testServer) request(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode envelope: %v (body: %s)", err, rec.Body.String())
	}
	return resp
}

func createTestPost(t *testing.T, ts *testServer, id, authorID string) {
	t.Helper()
	rec := ts.request(t, http.MethodPost, "/api/v1/posts", createPostRequest{
		ID:       id,
		AuthorID: authorID,
		Caption:  "hello",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create post %s: status %d body %s", id, rec.Code, rec.Body.String())
	}
}

func TestPostLifecycle(t *testing.T) {
	ts := setupTestServer(t, &stubResolver{})

	createTestPost(t, ts, "p1", "a1")

	rec := ts.request(t, http.MethodGet, "/api/v1/posts/p1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Status != "success" {
		t.Errorf("unexpected status %q", resp.Status)
	}

	rec = ts.request(t, http.MethodDelete, "/api/v1/posts/p1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = ts.request(t, http.MethodGet, "/api/v1/posts/p1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestGetPostNotFound(t *testing.T) {
	ts := setupTestServer(t, &stubResolver{})

	rec := ts.request(t, http.MethodGet, "/api/v1/posts/ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || resp.Error.Code != ErrCodeNotFound {
		t.Errorf("unexpected error payload: %+v", resp.Error)
	}
}

func TestCreatePostValidation(t *testing.T) {
	ts := setupTestServer(t, &stubResolver{})

	rec := ts.request(t, http.MethodPost, "/api/v1/posts", createPostRequest{Caption: "no author"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || resp.Error.Code != ErrCodeValidation {
		t.Errorf("unexpected error payload: %+v", resp.Error)
	}
}

func TestToggleLikeEndpoint(t *testing.T) {
	ts := setupTestServer(t, &stubResolver{})
	createTestPost(t, ts, "p1", "a1")

	rec := ts.request(t, http.MethodPost, "/api/v1/posts/p1/like", likeRequest{UserID: "u1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("like: status %d body %s", rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	data, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatal(err)
	}
	var result models.LikeResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatal(err)
	}
	if !result.Liked || result.PostID != "p1" || result.UserID != "u1" {
		t.Errorf("unexpected result: %+v", result)
	}

	// Second toggle unlikes.
	rec = ts.request(t, http.MethodPost, "/api/v1/posts/p1/like", likeRequest{UserID: "u1"})
	resp = decodeEnvelope(t, rec)
	data, _ = json.Marshal(resp.Data)
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatal(err)
	}
	if result.Liked {
		t.Error("second toggle should report unliked")
	}
}

func TestToggleLikeRequiresUserID(t *testing.T) {
	ts := setupTestServer(t, &stubResolver{})

	rec := ts.request(t, http.MethodPost, "/api/v1/posts/p1/like", likeRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestFeedEndpoint(t *testing.T) {
	resolver := &stubResolver{
		following: []models.CandidateAuthor{{ID: "a1", DisplayName: "Author One", Handle: "one"}},
	}
	ts := setupTestServer(t, resolver)
	createTestPost(t, ts, "p1", "a1")
	createTestPost(t, ts, "p2", "a1")

	rec := ts.request(t, http.MethodGet, "/api/v1/feed?viewer_id=viewer&page=0&size=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("feed: status %d body %s", rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	data, _ := json.Marshal(resp.Data)
	var page models.FeedPage
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatal(err)
	}
	if len(page.Entries) != 2 {
		t.Errorf("expected 2 feed entries, got %d", len(page.Entries))
	}
}

func TestFeedEmptyIsSuccess(t *testing.T) {
	ts := setupTestServer(t, &stubResolver{})

	rec := ts.request(t, http.MethodGet, "/api/v1/feed?viewer_id=viewer", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("empty feed must be 200, got %d", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	data, _ := json.Marshal(resp.Data)
	var page models.FeedPage
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatal(err)
	}
	if page.Entries == nil {
		t.Error("entries must be an empty list, not null")
	}
}

func TestFeedRequiresViewer(t *testing.T) {
	ts := setupTestServer(t, &stubResolver{})

	rec := ts.request(t, http.MethodGet, "/api/v1/feed", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestFeedRejectsNonIntegerPage(t *testing.T) {
	ts := setupTestServer(t, &stubResolver{})

	rec := ts.request(t, http.MethodGet, "/api/v1/feed?viewer_id=v&page=abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestFeedHugePageIsEmptySuccess(t *testing.T) {
	ts := setupTestServer(t, &stubResolver{})

	rec := ts.request(t, http.MethodGet,
		"/api/v1/feed?viewer_id=v&page=2305843009213693952&size=4", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("far-out-of-range page must be 200, got %d", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	data, _ := json.Marshal(resp.Data)
	var page models.FeedPage
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatal(err)
	}
	if page.Entries == nil || len(page.Entries) != 0 {
		t.Errorf("expected empty page, got %v", page.Entries)
	}
}

func TestAuthorPostsEndpoint(t *testing.T) {
	ts := setupTestServer(t, &stubResolver{})
	createTestPost(t, ts, "p1", "a1")
	createTestPost(t, ts, "p2", "a1")
	createTestPost(t, ts, "p3", "a2")

	rec := ts.request(t, http.MethodGet, "/api/v1/users/a1/posts", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	data, _ := json.Marshal(resp.Data)
	var posts []models.Post
	if err := json.Unmarshal(data, &posts); err != nil {
		t.Fatal(err)
	}
	if len(posts) != 2 {
		t.Errorf("expected 2 posts for a1, got %d", len(posts))
	}
}

func TestAdminReconcileEndpoint(t *testing.T) {
	ts := setupTestServer(t, &stubResolver{})
	createTestPost(t, ts, "p1", "a1")

	rec := ts.request(t, http.MethodPost, "/api/v1/posts/p1/like", likeRequest{UserID: "u1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("like: status %d", rec.Code)
	}

	rec = ts.request(t, http.MethodPost, "/api/v1/admin/reconcile", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reconcile: status %d body %s", rec.Code, rec.Body.String())
	}

	// The like is now durable.
	post, err := ts.db.GetPost(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if post.LikeCount != 1 {
		t.Errorf("expected durable like count 1, got %d", post.LikeCount)
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts := setupTestServer(t, &stubResolver{})

	for _, path := range []string{"/api/v1/health", "/api/v1/health/live", "/api/v1/health/ready"} {
		rec := ts.request(t, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status %d", path, rec.Code)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t, &stubResolver{})

	rec := ts.request(t, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: status %d", rec.Code)
	}
}
