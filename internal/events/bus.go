/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import (
	"sync"

	"github.com/friendsincode/eventdesk/internal/telemetry"
)

// EventType enumerates event categories.
type EventType string

const (
	EventProjectCreated  EventType = "project.created"
	EventProjectUpdated  EventType = "project.updated"
	EventProjectDeleted  EventType = "project.deleted"
	EventArtifactCreated EventType = "artifact.created"
)

// ProjectEvents lists the event types a project stream follows.
var ProjectEvents = []EventType{
	EventProjectCreated,
	EventProjectUpdated,
	EventProjectDeleted,
	EventArtifactCreated,
}

// Payload keys shared by publishers and the NATS bridge.
const (
	KeyProjectID = "project_id"
	KeyVersion   = "version"
	KeyOrigin    = "origin" // instance that first published the event
)

// Payload generic event payload.
type Payload map[string]any

// ProjectID returns the payload's project id, or "".
func (p Payload) ProjectID() string {
	id, _ := p[KeyProjectID].(string)
	return id
}

// Subscriber receives event payloads.
type Subscriber chan Payload

// Bus implements a simple in-process pubsub. Slow subscribers drop events
// rather than block publishers.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 16)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	telemetry.EventsPublishedTotal.WithLabelValues(string(eventType)).Inc()

	// Sends never block, so holding the read lock keeps Unsubscribe from
	// closing a channel mid-send.
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs[eventType] {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			b.subs[eventType] = append(subs[:i], subs[i+1:]...)
			close(sub)
			return
		}
	}
}
