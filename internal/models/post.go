// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

package models

import "time"

// Post is the durable post document stored in the primary database.
//
// Likes is the authoritative like set; LikeCount is derived from it and is
// always recomputed as the set's cardinality, never incremented. Both are
// mutated only by the like reconciler — the hot-path like toggle writes to
// the ephemeral store instead and converges here on the next reconciliation
// cycle, so LikeCount may transiently lag the ephemeral state.
type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Caption   string    `json:"caption"`
	MediaIDs  []string  `json:"media_ids"`
	Location  string    `json:"location,omitempty"`
	Likes     []string  `json:"likes"`
	LikeCount int64     `json:"like_count"`
	CreatedAt time.Time `json:"created_at"`
}

// CandidateAuthor is an immutable snapshot of a user whose posts are eligible
// for a viewer's feed. It comes from the external candidate resolver and is
// used only to build feed entries — never as authoritative identity data.
type CandidateAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Handle      string `json:"handle"`
	AvatarRef   string `json:"avatar_ref,omitempty"`
}

// FeedEntry is the joined author+post view served to feed readers.
//
// Entries exist only inside the feed cache: a viewer's feed is fully
// regenerated on every cache miss and never patched entry-by-entry.
type FeedEntry struct {
	PostID            string    `json:"post_id"`
	AuthorID          string    `json:"author_id"`
	AuthorDisplayName string    `json:"author_display_name"`
	AuthorHandle      string    `json:"author_handle"`
	AuthorAvatarRef   string    `json:"author_avatar_ref,omitempty"`
	Caption           string    `json:"caption"`
	MediaIDs          []string  `json:"media_ids"`
	Location          string    `json:"location,omitempty"`
	Likes             []string  `json:"likes"`
	LikeCount         int64     `json:"like_count"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewFeedEntry joins a candidate author snapshot with one of their posts.
func NewFeedEntry(author CandidateAuthor, post Post) FeedEntry {
	mediaIDs := post.MediaIDs
	if mediaIDs == nil {
		mediaIDs = []string{}
	}
	likes := post.Likes
	if likes == nil {
		likes = []string{}
	}
	return FeedEntry{
		PostID:            post.ID,
		AuthorID:          post.AuthorID,
		AuthorDisplayName: author.DisplayName,
		AuthorHandle:      author.Handle,
		AuthorAvatarRef:   author.AvatarRef,
		Caption:           post.Caption,
		MediaIDs:          mediaIDs,
		Location:          post.Location,
		Likes:             likes,
		LikeCount:         post.LikeCount,
		CreatedAt:         post.CreatedAt,
	}
}
