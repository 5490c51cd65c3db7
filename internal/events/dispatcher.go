package events

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrUnknownEventType is returned when publishing an event the account service
// never emits.
var ErrUnknownEventType = errors.New("unknown account event type")

// EventHandler reacts to one account event.
type EventHandler func(context.Context, Event) error

// Dispatcher carries account lifecycle events (signup, login, logout,
// availability) from the account service to its subscribers.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

type accountEventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]EventHandler
}

// NewAccountEventBus returns an in-process bus that runs handlers on the
// publishing goroutine.
func NewAccountEventBus() Dispatcher {
	return &accountEventBus{subscribers: make(map[EventType][]EventHandler, len(AllEventTypes))}
}

// Publish runs every subscriber of event.Type, even after one fails. Handler
// errors come back joined and tagged with the event type.
func (b *accountEventBus) Publish(ctx context.Context, event Event) error {
	if !slices.Contains(AllEventTypes, event.Type) {
		return fmt.Errorf("%w: %q", ErrUnknownEventType, event.Type)
	}

	b.mu.RLock()
	subscribers := slices.Clone(b.subscribers[event.Type])
	b.mu.RUnlock()

	var errs []error
	for _, handle := range subscribers {
		if err := handle(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s subscriber: %w", event.Type, err))
		}
	}
	return errors.Join(errs...)
}

func (b *accountEventBus) Subscribe(eventType EventType, handler EventHandler) {
	b.mu.Lock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
	b.mu.Unlock()
}
