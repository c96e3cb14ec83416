// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/colligo-dev/colligo/internal/metrics"
)

// Bus is the in-process pub/sub bus for domain events.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// NewBus creates a bus with a bounded per-subscriber buffer. Slow subscribers
// buffer up to the channel size; the buffer keeps publishers from blocking on
// request paths.
func NewBus() *Bus {
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, NewWatermillLogger())
	return &Bus{pubsub: pubsub}
}

// Publish encodes payload as JSON and publishes it on topic.
func (b *Bus) Publish(topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event for %s: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	metrics.EventsPublished.WithLabelValues(topic).Inc()
	return nil
}

// Subscribe returns a channel of messages for topic. The subscription ends
// when ctx is cancelled or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	messages, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	return messages, nil
}

// Close shuts the bus down and terminates all subscriptions.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// Decode unmarshals a message payload into dst and acks the message. A
// payload that does not decode is acked too: nacking makes gochannel
// redeliver it immediately, and a poison message would spin the consumer.
func Decode(msg *message.Message, dst interface{}) error {
	if err := json.Unmarshal(msg.Payload, dst); err != nil {
		msg.Ack()
		return fmt.Errorf("decode event %s: %w", msg.UUID, err)
	}
	msg.Ack()
	return nil
}
