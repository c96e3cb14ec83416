// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

package api

// likeRequest is the body of POST /api/v1/posts/{id}/like.
type likeRequest struct {
	UserID string `json:"user_id" validate:"required,max=128"`
}

// createPostRequest is the body of POST /api/v1/posts. ID is optional; the
// server assigns one when absent.
type createPostRequest struct {
	ID       string   `json:"id" validate:"omitempty,max=128"`
	AuthorID string   `json:"author_id" validate:"required,max=128"`
	Caption  string   `json:"caption" validate:"max=2200"`
	MediaIDs []string `json:"media_ids" validate:"omitempty,dive,required,max=128"`
	Location string   `json:"location" validate:"max=256"`
}
