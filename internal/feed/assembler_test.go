// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

package feed

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/colligo-dev/colligo/internal/config"
	"github.com/colligo-dev/colligo/internal/ephemeral"
	"github.com/colligo-dev/colligo/internal/models"
)

// fakeResolver serves canned candidate pools and counts calls.
type fakeResolver struct {
	following []models.CandidateAuthor
	random    []models.CandidateAuthor
	err       error
	calls     atomic.Int64
	block     chan struct{} // when set, calls wait until closed
}

func (f *fakeResolver) Following(ctx context.Context, viewerID string, limit int) ([]models.CandidateAuthor, error) {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	if len(f.following) > limit {
		return f.following[:limit], nil
	}
	return f.following, nil
}

func (f *fakeResolver) RandomPublic(ctx context.Context, viewerID string, limit int) ([]models.CandidateAuthor, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.random) > limit {
		return f.random[:limit], nil
	}
	return f.random, nil
}

// fakePostSource serves canned posts per author.
type fakePostSource struct {
	posts   map[string][]models.Post
	failing map[string]bool
	calls   atomic.Int64
}

func (f *fakePostSource) TopEngagedPosts(ctx context.Context, authorID string, limit int) ([]models.Post, error) {
	f.calls.Add(1)
	if f.failing[authorID] {
		return nil, errors.New("post source unavailable")
	}
	posts := f.posts[authorID]
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func testFeedConfig() config.FeedConfig {
	return config.FeedConfig{
		SampleSize:        10,
		TopPostsPerAuthor: 5,
		CacheTTL:          10 * time.Minute,
		AuthorCacheTTL:    20 * time.Minute,
		DefaultPageSize:   10,
		MaxPageSize:       50,
	}
}

func author(id string) models.CandidateAuthor {
	return models.CandidateAuthor{ID: id, DisplayName: "Author " + id, Handle: "@" + id}
}

func post(id, authorID string) models.Post {
	return models.Post{
		ID:        id,
		AuthorID:  authorID,
		Caption:   "caption " + id,
		MediaIDs:  []string{},
		Likes:     []string{},
		CreatedAt: time.Now().UTC(),
	}
}

func entryIDs(entries []models.FeedEntry) map[string]int {
	ids := make(map[string]int)
	for _, e := range entries {
		ids[e.PostID]++
	}
	return ids
}

func newTestAssembler(res CandidateResolver, src PostSource) (*Assembler, *Cache) {
	cache := NewCache(ephemeral.NewMemoryStore(), testFeedConfig())
	return NewAssembler(res, src, cache, testFeedConfig()), cache
}

func TestAssembleBuildsEntries(t *testing.T) {
	res := &fakeResolver{
		following: []models.CandidateAuthor{author("a1")},
		random:    []models.CandidateAuthor{author("a2")},
	}
	src := &fakePostSource{posts: map[string][]models.Post{
		"a1": {post("p1", "a1"), post("p2", "a1")},
		"a2": {post("p3", "a2")},
	}}
	assembler, _ := newTestAssembler(res, src)

	entries := assembler.Assemble(context.Background(), "viewer")
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	ids := entryIDs(entries)
	for _, want := range []string{"p1", "p2", "p3"} {
		if ids[want] != 1 {
			t.Errorf("expected post %s exactly once, got %d", want, ids[want])
		}
	}

	for _, e := range entries {
		if e.AuthorDisplayName == "" || e.AuthorHandle == "" {
			t.Errorf("entry %s missing author join fields: %+v", e.PostID, e)
		}
	}
}

func TestAssembleDeduplicatesAcrossPools(t *testing.T) {
	// The same author surfacing in both pools must contribute posts once.
	res := &fakeResolver{
		following: []models.CandidateAuthor{author("a1")},
		random:    []models.CandidateAuthor{author("a1"), author("a2")},
	}
	src := &fakePostSource{posts: map[string][]models.Post{
		"a1": {post("p1", "a1")},
		"a2": {post("p2", "a2")},
	}}
	assembler, _ := newTestAssembler(res, src)

	entries := assembler.Assemble(context.Background(), "viewer")
	ids := entryIDs(entries)
	if ids["p1"] != 1 {
		t.Errorf("duplicate author produced %d copies of p1", ids["p1"])
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries, got %d", len(entries))
	}
}

func TestAssembleExcludesViewer(t *testing.T) {
	res := &fakeResolver{
		random: []models.CandidateAuthor{author("viewer"), author("a1")},
	}
	src := &fakePostSource{posts: map[string][]models.Post{
		"viewer": {post("own", "viewer")},
		"a1":     {post("p1", "a1")},
	}}
	assembler, _ := newTestAssembler(res, src)

	entries := assembler.Assemble(context.Background(), "viewer")
	for _, e := range entries {
		if e.AuthorID == "viewer" {
			t.Errorf("viewer's own post %s leaked into the feed", e.PostID)
		}
	}
}

func TestAssembleDropsMalformedPosts(t *testing.T) {
	res := &fakeResolver{following: []models.CandidateAuthor{author("a1")}}
	src := &fakePostSource{posts: map[string][]models.Post{
		"a1": {post("p1", "a1"), {ID: "", AuthorID: "a1"}, {ID: "p3", AuthorID: ""}},
	}}
	assembler, _ := newTestAssembler(res, src)

	entries := assembler.Assemble(context.Background(), "viewer")
	if len(entries) != 1 || entries[0].PostID != "p1" {
		t.Errorf("malformed posts should be dropped, got %+v", entries)
	}
}

func TestAssembleEmptyCandidates(t *testing.T) {
	assembler, _ := newTestAssembler(&fakeResolver{}, &fakePostSource{})

	entries := assembler.Assemble(context.Background(), "viewer")
	if entries == nil {
		t.Fatal("empty feed must be an empty slice, not nil")
	}
	if len(entries) != 0 {
		t.Errorf("expected empty feed, got %d entries", len(entries))
	}
}

func TestAssembleResolverFailureDegrades(t *testing.T) {
	res := &fakeResolver{err: errors.New("resolver timeout")}
	assembler, _ := newTestAssembler(res, &fakePostSource{})

	entries := assembler.Assemble(context.Background(), "viewer")
	if len(entries) != 0 {
		t.Errorf("resolver failure should yield empty feed, got %d entries", len(entries))
	}
}

func TestAssemblePerAuthorFailureIsolated(t *testing.T) {
	res := &fakeResolver{
		following: []models.CandidateAuthor{author("broken"), author("a1")},
	}
	src := &fakePostSource{
		posts:   map[string][]models.Post{"a1": {post("p1", "a1")}},
		failing: map[string]bool{"broken": true},
	}
	assembler, _ := newTestAssembler(res, src)

	entries := assembler.Assemble(context.Background(), "viewer")
	if len(entries) != 1 || entries[0].PostID != "p1" {
		t.Errorf("one failing author should not abort assembly, got %+v", entries)
	}
}

func TestAssembleUsesAuthorPostCache(t *testing.T) {
	res := &fakeResolver{following: []models.CandidateAuthor{author("a1")}}
	src := &fakePostSource{posts: map[string][]models.Post{
		"a1": {post("p1", "a1")},
	}}
	assembler, _ := newTestAssembler(res, src)
	ctx := context.Background()

	assembler.Assemble(ctx, "viewer")
	first := src.calls.Load()
	assembler.Assemble(ctx, "viewer")

	if src.calls.Load() != first {
		t.Errorf("second assembly should hit the author post cache, calls went %d -> %d",
			first, src.calls.Load())
	}
}

func TestAssembleShufflePreservesSet(t *testing.T) {
	var authors []models.CandidateAuthor
	posts := map[string][]models.Post{}
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("a%d", i)
		authors = append(authors, author(id))
		posts[id] = []models.Post{post(fmt.Sprintf("p%d", i), id)}
	}
	res := &fakeResolver{following: authors}
	assembler, _ := newTestAssembler(res, &fakePostSource{posts: posts})

	entries := assembler.Assemble(context.Background(), "viewer")
	if len(entries) != 8 {
		t.Fatalf("expected 8 entries, got %d", len(entries))
	}
	ids := entryIDs(entries)
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("p%d", i)
		if ids[id] != 1 {
			t.Errorf("post %s appears %d times after shuffle", id, ids[id])
		}
	}
}
