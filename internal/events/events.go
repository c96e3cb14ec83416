// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

// Package events provides the in-process domain event bus.
//
// Events are fire-and-forget notifications: publishing never blocks a request
// path, and no domain invariant depends on a subscriber observing an event.
// The bus is backed by Watermill's gochannel pub/sub.
package events

import "time"

// Topics carried by the bus.
const (
	TopicLikeToggled = "engagement.like_toggled"
	TopicPostCreated = "post.created"
	TopicPostDeleted = "post.deleted"
	TopicFeedRefresh = "feed.refresh"
)

// LikeToggledEvent is published after every successful like toggle.
type LikeToggledEvent struct {
	PostID string    `json:"post_id"`
	UserID string    `json:"user_id"`
	Liked  bool      `json:"liked"`
	At     time.Time `json:"at"`
}

// PostCreatedEvent is published after a post is durably created.
type PostCreatedEvent struct {
	PostID   string    `json:"post_id"`
	AuthorID string    `json:"author_id"`
	At       time.Time `json:"at"`
}

// PostDeletedEvent is published after a post is removed.
type PostDeletedEvent struct {
	PostID   string    `json:"post_id"`
	AuthorID string    `json:"author_id"`
	At       time.Time `json:"at"`
}

// FeedRefreshRequested asks the refresh worker to rebuild a viewer's cached
// feed. Emitted when a reader drains the last page of their cached feed.
type FeedRefreshRequested struct {
	ViewerID string    `json:"viewer_id"`
	At       time.Time `json:"at"`
}
