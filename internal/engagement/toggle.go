// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

// Package engagement implements the hot-path like toggle.
//
// A toggle flips the user's membership in the post's ephemeral like set and
// nothing else: the durable store is deliberately untouched, so toggles stay
// fast and converge durably on the next reconciliation pass.
package engagement

import (
	"context"
	"fmt"
	"time"

	"github.com/colligo-dev/colligo/internal/ephemeral"
	"github.com/colligo-dev/colligo/internal/events"
	"github.com/colligo-dev/colligo/internal/logging"
	"github.com/colligo-dev/colligo/internal/metrics"
)

// Toggler flips like state against the shared ephemeral store.
type Toggler struct {
	store ephemeral.Store
	bus   *events.Bus
}

// NewToggler creates a like toggler. bus may be nil, disabling event
// publication.
func NewToggler(store ephemeral.Store, bus *events.Bus) *Toggler {
	return &Toggler{store: store, bus: bus}
}

// Toggle flips userID's like on postID and returns the resulting state: true
// if the post is now liked. The flip is a single atomic operation against the
// shared store; concurrent toggles of the same pair serialize there, so no
// partial state is ever observable.
func (t *Toggler) Toggle(ctx context.Context, postID, userID string) (bool, error) {
	liked, err := t.store.ToggleMember(ctx, ephemeral.LikeKey(postID), userID)
	if err != nil {
		return false, fmt.Errorf("toggle like: %w", err)
	}
	metrics.RecordLikeToggle(liked)

	if t.bus != nil {
		err := t.bus.Publish(events.TopicLikeToggled, events.LikeToggledEvent{
			PostID: postID,
			UserID: userID,
			Liked:  liked,
			At:     time.Now().UTC(),
		})
		if err != nil {
			// The toggle itself succeeded; the event is best-effort.
			logging.Ctx(ctx).Warn().Err(err).Str("post_id", postID).
				Msg("like event publish failed")
		}
	}

	logging.Ctx(ctx).Debug().
		Str("post_id", postID).
		Str("user_id", userID).
		Bool("liked", liked).
		Msg("like toggled")
	return liked, nil
}
