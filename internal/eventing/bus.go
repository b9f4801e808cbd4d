package eventing

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// EventHandler handles a published event.
type EventHandler func(ctx context.Context, event any) error

// EventBus delivers events to subscribed handlers.
type EventBus interface {
	Publish(ctx context.Context, event any) error
	Subscribe(eventType string, handler EventHandler)
}

// ErrNilEvent is returned when a nil event is published.
var ErrNilEvent = errors.New("eventing: nil event")

// ErrInvalidEventType is returned when the event type cannot be determined.
var ErrInvalidEventType = errors.New("eventing: invalid event type")

// InMemoryBus is a synchronous in-process event bus.
// Handlers run on the publisher's goroutine in subscription order.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]EventHandler
}

// NewInMemoryBus constructs a new in-memory bus.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]EventHandler),
	}
}

// Publish dispatches an event to all handlers of its type.
// Every handler runs; their errors are joined.
func (b *InMemoryBus) Publish(ctx context.Context, event any) error {
	if event == nil {
		return ErrNilEvent
	}

	eventType := EventType(event)
	if eventType == "" {
		return ErrInvalidEventType
	}

	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.handlers[eventType]...)
	b.mu.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", eventType, err))
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers a handler for an event type.
func (b *InMemoryBus) Subscribe(eventType string, handler EventHandler) {
	if eventType == "" || handler == nil {
		return
	}

	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.mu.Unlock()
}

// Handle subscribes a typed handler. Events of other types never reach it.
func Handle[T any](bus EventBus, handler func(ctx context.Context, event T) error) {
	if bus == nil || handler == nil {
		return
	}
	bus.Subscribe(EventTypeOf[T](), func(ctx context.Context, event any) error {
		switch typed := event.(type) {
		case T:
			return handler(ctx, typed)
		case *T:
			if typed == nil {
				return ErrNilEvent
			}
			return handler(ctx, *typed)
		default:
			return ErrInvalidEventType
		}
	})
}

// EventType returns the fully-qualified type name for an event instance.
func EventType(event any) string {
	if event == nil {
		return ""
	}
	t := reflect.TypeOf(event)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.String()
}

// EventTypeOf returns the fully-qualified type name for a type parameter.
func EventTypeOf[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}
