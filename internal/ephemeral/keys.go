// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

package ephemeral

import "strings"

// Key prefixes for the shared ephemeral keyspace. The like prefix doubles as
// the reconciler's discovery namespace: every key under it is a pending like
// set, and nothing else may be stored there.
const (
	LikeKeyPrefix        = "post_like:"
	FeedKeyPrefix        = "user_feed:"
	AuthorPostsKeyPrefix = "user_posts:"
)

// LikeKey returns the like set key for a post.
func LikeKey(postID string) string {
	return LikeKeyPrefix + postID
}

// PostIDFromLikeKey extracts the post ID from a like set key.
// Returns false if the key is not under the like prefix.
func PostIDFromLikeKey(key string) (string, bool) {
	id, ok := strings.CutPrefix(key, LikeKeyPrefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// FeedKey returns the cached feed key for a viewer.
func FeedKey(viewerID string) string {
	return FeedKeyPrefix + viewerID
}

// AuthorPostsKey returns the cached post list key for an author.
func AuthorPostsKey(authorID string) string {
	return AuthorPostsKeyPrefix + authorID
}
