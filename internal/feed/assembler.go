// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

// Package feed implements feed assembly, pagination, caching and background
// refresh.
//
// A feed is built per viewer from a bounded candidate pool: a sample of
// followed users plus a sample of random public users, each contributing
// their top engaged posts. The result is deduplicated, shuffled and cached
// whole; pagination slices the cached list.
package feed

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/colligo-dev/colligo/internal/config"
	"github.com/colligo-dev/colligo/internal/logging"
	"github.com/colligo-dev/colligo/internal/metrics"
	"github.com/colligo-dev/colligo/internal/models"
)

// CandidateResolver nominates candidate authors for a viewer's feed.
// Implemented by the external resolver client.
type CandidateResolver interface {
	Following(ctx context.Context, viewerID string, limit int) ([]models.CandidateAuthor, error)
	RandomPublic(ctx context.Context, viewerID string, limit int) ([]models.CandidateAuthor, error)
}

// PostSource supplies an author's top engaged posts. Implemented by the
// durable engagement store.
type PostSource interface {
	TopEngagedPosts(ctx context.Context, authorID string, limit int) ([]models.Post, error)
}

// Assembler builds complete feeds.
type Assembler struct {
	resolver CandidateResolver
	posts    PostSource
	cache    *Cache
	cfg      config.FeedConfig

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewAssembler creates a feed assembler.
func NewAssembler(resolver CandidateResolver, posts PostSource, cache *Cache, cfg config.FeedConfig) *Assembler {
	return &Assembler{
		resolver: resolver,
		posts:    posts,
		cache:    cache,
		cfg:      cfg,
		//nolint:gosec // math/rand is fine for feed shuffling
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Assemble builds a viewer's feed from scratch. It never fails: every
// per-source failure degrades to fewer entries, down to an empty feed when no
// candidate can be resolved. An empty feed is a valid result.
func (a *Assembler) Assemble(ctx context.Context, viewerID string) []models.FeedEntry {
	start := time.Now()

	candidates := a.candidates(ctx, viewerID)

	entries := []models.FeedEntry{}
	seenPosts := make(map[string]struct{})
	for _, author := range candidates {
		posts := a.authorPosts(ctx, author.ID)
		for _, post := range posts {
			// Malformed posts cannot be rendered; drop them rather than
			// failing the batch.
			if post.ID == "" || post.AuthorID == "" {
				continue
			}
			// First occurrence wins when two candidate pools surface the
			// same post.
			if _, seen := seenPosts[post.ID]; seen {
				continue
			}
			seenPosts[post.ID] = struct{}{}
			entries = append(entries, models.NewFeedEntry(author, post))
		}
	}

	a.shuffle(entries)
	metrics.RecordFeedAssembly(time.Since(start), len(entries))
	logging.Ctx(ctx).Debug().
		Str("viewer_id", viewerID).
		Int("candidates", len(candidates)).
		Int("entries", len(entries)).
		Msg("feed assembled")
	return entries
}

// candidates gathers the two bounded candidate pools. Either pool failing
// degrades to an empty pool; both failing yields an empty feed.
func (a *Assembler) candidates(ctx context.Context, viewerID string) []models.CandidateAuthor {
	followed, err := a.resolver.Following(ctx, viewerID, a.cfg.SampleSize)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("viewer_id", viewerID).
			Msg("followed-candidates lookup failed, continuing without")
		followed = nil
	}

	random, err := a.resolver.RandomPublic(ctx, viewerID, a.cfg.SampleSize)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("viewer_id", viewerID).
			Msg("random-candidates lookup failed, continuing without")
		random = nil
	}

	// Dedupe authors across pools, first occurrence wins. The resolver is
	// untrusted, so the viewer exclusion is enforced here as well.
	candidates := make([]models.CandidateAuthor, 0, len(followed)+len(random))
	seen := make(map[string]struct{}, len(followed)+len(random))
	for _, author := range append(followed, random...) {
		if author.ID == viewerID {
			continue
		}
		if _, dup := seen[author.ID]; dup {
			continue
		}
		seen[author.ID] = struct{}{}
		candidates = append(candidates, author)
	}
	return candidates
}

// authorPosts returns an author's top engaged posts, via the author post
// cache when warm. A failed lookup skips the author, never the assembly.
func (a *Assembler) authorPosts(ctx context.Context, authorID string) []models.Post {
	if posts, ok := a.cache.AuthorPosts(ctx, authorID); ok {
		return posts
	}

	posts, err := a.posts.TopEngagedPosts(ctx, authorID, a.cfg.TopPostsPerAuthor)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("author_id", authorID).
			Msg("author post lookup failed, skipping candidate")
		return nil
	}

	if err := a.cache.SetAuthorPosts(ctx, authorID, posts); err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("author_id", authorID).
			Msg("author post cache write failed")
	}
	return posts
}

func (a *Assembler) shuffle(entries []models.FeedEntry) {
	a.rngMu.Lock()
	defer a.rngMu.Unlock()
	a.rng.Shuffle(len(entries), func(i, j int) {
		entries[i], entries[j] = entries[j], entries[i]
	})
}
