// Package pubsub fans registration events out to any number of listeners.
package pubsub

import (
	"context"
	"time"
)

// EventType represents the type of event being published.
type EventType string

const (
	// RegisteredEvent follows a pass that bound or confirmed every route.
	RegisteredEvent EventType = "registered"
	// IncompleteEvent follows a pass that left routes unbound or failed.
	IncompleteEvent EventType = "incomplete"
	// RejectedEvent reports a manifest that failed to load or validate.
	RejectedEvent EventType = "rejected"
)

// Event represents a published event with a typed payload. Seq increases by
// one per Publish call on the same broker.
type Event[T any] struct {
	Type      EventType
	Seq       uint64
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
