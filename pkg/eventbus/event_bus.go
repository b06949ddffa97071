// Package eventbus delivers host events to the scripting panel.
package eventbus

import (
	"context"

	"github.com/dukex/scriptpanel/pkg/events"
)

// Event is a host event. Handlers receive *events.ExecutionFinished or
// *events.ConsoleOutput.
type Event interface {
	GetType() events.EventType
}

// EventPublisher publishes host events keyed by the node they belong to.
type EventPublisher interface {
	Publish(ctx context.Context, nodeID string, event Event) error
}

// EventSubscriber dispatches host events to at most one handler per type.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventHandler func(ctx context.Context, event Event) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
