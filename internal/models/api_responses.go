// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

package models

import "time"

// APIResponse is the standard envelope for all API responses.
//
// Status is "success" or "error". Data carries the payload (may be an empty
// list — an empty feed page is a valid success, never an error). Error is
// populated only for error responses.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError represents an error response with structured details.
//
// Common codes:
//   - VALIDATION_ERROR: invalid input parameters
//   - NOT_FOUND: the referenced post does not exist
//   - UNAUTHORIZED: missing or invalid caller credential
//   - INTERNAL_ERROR: unexpected server-side failure
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// LikeResult is the response payload for a like toggle.
type LikeResult struct {
	PostID string `json:"post_id"`
	UserID string `json:"user_id"`
	Liked  bool   `json:"liked"`
}

// FeedPage is the response payload for one page of a viewer's feed.
type FeedPage struct {
	ViewerID string      `json:"viewer_id"`
	Page     int         `json:"page"`
	Size     int         `json:"size"`
	Entries  []FeedEntry `json:"entries"`
}
