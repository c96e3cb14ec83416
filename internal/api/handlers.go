// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/colligo-dev/colligo/internal/database"
	"github.com/colligo-dev/colligo/internal/engagement"
	"github.com/colligo-dev/colligo/internal/ephemeral"
	"github.com/colligo-dev/colligo/internal/events"
	"github.com/colligo-dev/colligo/internal/feed"
	"github.com/colligo-dev/colligo/internal/logging"
	"github.com/colligo-dev/colligo/internal/models"
	"github.com/colligo-dev/colligo/internal/reconcile"
	"github.com/colligo-dev/colligo/internal/validation"
)

// ReconcileRunner triggers a reconciliation pass on demand.
type ReconcileRunner interface {
	RunOnce(ctx context.Context) (reconcile.Result, error)
}

// Handler serves the API endpoints.
type Handler struct {
	db         *database.DB
	store      ephemeral.Store
	paginator  *feed.Paginator
	cache      *feed.Cache
	toggler    *engagement.Toggler
	reconciler ReconcileRunner
	bus        *events.Bus
	started    time.Time
}

// NewHandler wires the API handler. bus and reconciler may be nil; the
// corresponding features degrade (no events, admin reconcile returns 503).
func NewHandler(db *database.DB, store ephemeral.Store, paginator *feed.Paginator,
	cache *feed.Cache, toggler *engagement.Toggler, reconciler ReconcileRunner,
	bus *events.Bus) *Handler {
	return &Handler{
		db:         db,
		store:      store,
		paginator:  paginator,
		cache:      cache,
		toggler:    toggler,
		reconciler: reconciler,
		bus:        bus,
		started:    time.Now(),
	}
}

// Feed serves GET /api/v1/feed. An empty feed is a valid success with an
// empty entry list, never an error.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	rw := newResponseWriter(w, r)

	viewerID := r.URL.Query().Get("viewer_id")
	if viewerID == "" {
		rw.BadRequest("viewer_id is required")
		return
	}

	page, ok := queryInt(r, "page", 0)
	if !ok {
		rw.BadRequest("page must be an integer")
		return
	}
	size, ok := queryInt(r, "size", 0)
	if !ok {
		rw.BadRequest("size must be an integer")
		return
	}

	feedPage, cached := h.paginator.Page(r.Context(), viewerID, page, size)
	rw.SuccessCached(feedPage, cached)
}

// ToggleLike serves POST /api/v1/posts/{id}/like.
func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	rw := newResponseWriter(w, r)

	postID := chi.URLParam(r, "id")
	if postID == "" {
		rw.BadRequest("post id is required")
		return
	}

	var req likeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid request body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr)
		return
	}

	liked, err := h.toggler.Toggle(r.Context(), postID, req.UserID)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("post_id", postID).Msg("like toggle failed")
		rw.InternalError("like toggle failed")
		return
	}

	rw.Success(models.LikeResult{PostID: postID, UserID: req.UserID, Liked: liked})
}

// CreatePost serves POST /api/v1/posts.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	rw := newResponseWriter(w, r)

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid request body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr)
		return
	}

	post := models.Post{
		ID:        req.ID,
		AuthorID:  req.AuthorID,
		Caption:   req.Caption,
		MediaIDs:  req.MediaIDs,
		Location:  req.Location,
		CreatedAt: time.Now().UTC(),
	}
	if post.ID == "" {
		post.ID = uuid.New().String()
	}

	if err := h.db.CreatePost(r.Context(), &post); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("post_id", post.ID).Msg("create post failed")
		rw.InternalError("create post failed")
		return
	}

	// The author's cached top-posts list is now stale.
	_ = h.cache.InvalidateAuthorPosts(r.Context(), post.AuthorID)
	h.publish(r.Context(), events.TopicPostCreated, events.PostCreatedEvent{
		PostID:   post.ID,
		AuthorID: post.AuthorID,
		At:       time.Now().UTC(),
	})

	rw.Created(post)
}

// GetPost serves GET /api/v1/posts/{id}.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	rw := newResponseWriter(w, r)

	postID := chi.URLParam(r, "id")
	post, err := h.db.GetPost(r.Context(), postID)
	if errors.Is(err, database.ErrPostNotFound) {
		rw.NotFound("post not found")
		return
	}
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("post_id", postID).Msg("get post failed")
		rw.InternalError("get post failed")
		return
	}

	rw.Success(post)
}

// DeletePost serves DELETE /api/v1/posts/{id}. The post's pending ephemeral
// likes are dropped with it; likes toggled after this point drain as missing
// at the next reconciliation pass.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	rw := newResponseWriter(w, r)

	postID := chi.URLParam(r, "id")
	post, err := h.db.GetPost(r.Context(), postID)
	if errors.Is(err, database.ErrPostNotFound) {
		rw.NotFound("post not found")
		return
	}
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("post_id", postID).Msg("load post for delete failed")
		rw.InternalError("delete post failed")
		return
	}

	if err := h.db.DeletePost(r.Context(), postID); err != nil {
		if errors.Is(err, database.ErrPostNotFound) {
			rw.NotFound("post not found")
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Str("post_id", postID).Msg("delete post failed")
		rw.InternalError("delete post failed")
		return
	}

	if err := h.store.Delete(r.Context(), ephemeral.LikeKey(postID)); err != nil {
		// Harmless leftovers; the reconciler drains them as missing.
		logging.Ctx(r.Context()).Warn().Err(err).Str("post_id", postID).
			Msg("pending like cleanup failed")
	}
	_ = h.cache.InvalidateAuthorPosts(r.Context(), post.AuthorID)
	h.publish(r.Context(), events.TopicPostDeleted, events.PostDeletedEvent{
		PostID:   postID,
		AuthorID: post.AuthorID,
		At:       time.Now().UTC(),
	})

	rw.Success(map[string]string{"deleted": postID})
}

// AuthorPosts serves GET /api/v1/users/{id}/posts.
func (h *Handler) AuthorPosts(w http.ResponseWriter, r *http.Request) {
	rw := newResponseWriter(w, r)

	authorID := chi.URLParam(r, "id")
	limit, ok := queryInt(r, "limit", 0)
	if !ok || limit < 0 {
		rw.BadRequest("limit must be a non-negative integer")
		return
	}

	posts, err := h.db.PostsByAuthor(r.Context(), authorID, limit)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("author_id", authorID).Msg("list posts failed")
		rw.InternalError("list posts failed")
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}

	rw.Success(posts)
}

// TriggerReconcile serves POST /api/v1/admin/reconcile.
func (h *Handler) TriggerReconcile(w http.ResponseWriter, r *http.Request) {
	rw := newResponseWriter(w, r)

	if h.reconciler == nil {
		rw.Error(http.StatusServiceUnavailable, ErrCodeUnavailable, "reconciler not running")
		return
	}

	result, err := h.reconciler.RunOnce(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("manual reconciliation failed")
		rw.InternalError("reconciliation failed")
		return
	}
	if result.Skipped {
		rw.Error(http.StatusConflict, ErrCodeConflict, "a reconciliation pass is already running")
		return
	}

	rw.Success(result)
}

// HealthLive serves GET /api/v1/health/live.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	newResponseWriter(w, r).Success(map[string]string{"status": "alive"})
}

// HealthReady serves GET /api/v1/health/ready. Readiness requires the
// durable store.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := newResponseWriter(w, r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("readiness check failed")
		rw.Error(http.StatusServiceUnavailable, ErrCodeUnavailable, "database unavailable")
		return
	}

	rw.Success(map[string]string{"status": "ready"})
}

// Health serves GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	newResponseWriter(w, r).Success(map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	})
}

func (h *Handler) publish(ctx context.Context, topic string, event interface{}) {
	if h.bus == nil {
		return
	}
	if err := h.bus.Publish(topic, event); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("topic", topic).Msg("event publish failed")
	}
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return value, true
}
