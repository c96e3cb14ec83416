// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

// Package models defines the shared data types for Colligo: durable posts,
// candidate authors, feed entries, and the API response envelope.
//
// These types are plain data carriers with JSON tags; behavior lives in the
// packages that own the data (internal/database for durable state,
// internal/ephemeral for cached state, internal/feed for assembly).
package models
