// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

package events

import (
	"context"
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus()
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := bus.Subscribe(ctx, TopicLikeToggled)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	want := LikeToggledEvent{
		PostID: "p1",
		UserID: "u1",
		Liked:  true,
		At:     time.Now().UTC().Truncate(time.Second),
	}
	if err := bus.Publish(TopicLikeToggled, want); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-messages:
		var got LikeToggledEvent
		if err := Decode(msg, &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.PostID != want.PostID || got.UserID != want.UserID || got.Liked != want.Liked {
			t.Errorf("got %+v, want %+v", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	bus := NewBus()
	defer func() { _ = bus.Close() }()

	// Events are fire-and-forget; no subscriber is not an error.
	if err := bus.Publish(TopicPostCreated, PostCreatedEvent{PostID: "p1"}); err != nil {
		t.Fatalf("publish without subscribers: %v", err)
	}
}

func TestDecodeMalformedPayload(t *testing.T) {
	bus := NewBus()
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := bus.Subscribe(ctx, TopicFeedRefresh)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := bus.Publish(TopicFeedRefresh, "not-an-object"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-messages:
		var got FeedRefreshRequested
		if err := Decode(msg, &got); err == nil {
			t.Error("expected decode error for malformed payload")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	// The malformed message is dropped, not redelivered; the next message on
	// the channel must be a fresh publish.
	if err := bus.Publish(TopicFeedRefresh, FeedRefreshRequested{ViewerID: "v1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case msg := <-messages:
		var got FeedRefreshRequested
		if err := Decode(msg, &got); err != nil {
			t.Fatalf("decode after drop: %v", err)
		}
		if got.ViewerID != "v1" {
			t.Errorf("expected the fresh event, got %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event after dropped message")
	}
}
