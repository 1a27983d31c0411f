package domain

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"odoodeploy.io/console/internal/pkg/logger"
)

// EventHandler processes a domain event.
type EventHandler func(ctx context.Context, event *DomainEvent) error

// EventDispatcher routes domain events to registered handlers.
type EventDispatcher struct {
	handlers map[EventType][]EventHandler
	mu       sync.RWMutex
}

// NewEventDispatcher creates a new EventDispatcher.
func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{
		handlers: make(map[EventType][]EventHandler),
	}
}

// Register registers a handler for a specific event type.
func (d *EventDispatcher) Register(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

// RegisterAll registers handler for each of the given event types.
func (d *EventDispatcher) RegisterAll(handler EventHandler, eventTypes ...EventType) {
	for _, et := range eventTypes {
		d.Register(et, handler)
	}
}

// Publish builds an event and dispatches it. Failures are logged and never
// returned; callers publish after their outcome has settled.
func (d *EventDispatcher) Publish(ctx context.Context, eventType EventType, aggregateType, aggregateID string, payload any) {
	if d == nil {
		return
	}
	event, err := NewEvent(eventType, aggregateType, aggregateID, payload)
	if err != nil {
		logger.Error("Failed to build domain event",
			zap.String("event_type", string(eventType)),
			zap.Error(err),
		)
		return
	}
	_ = d.Dispatch(ctx, event)
}

// Dispatch dispatches an event to all registered handlers.
// All handlers are called sequentially. If any handler fails, the error is logged
// but remaining handlers are still executed (best-effort delivery).
func (d *EventDispatcher) Dispatch(ctx context.Context, event *DomainEvent) error {
	d.mu.RLock()
	handlers := d.handlers[event.EventType]
	d.mu.RUnlock()

	if len(handlers) == 0 {
		logger.Debug("No handlers registered for event type",
			zap.String("event_type", string(event.EventType)),
			zap.String("event_id", event.EventID),
		)
		return nil
	}

	var firstErr error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			logger.Error("Event handler failed",
				zap.String("event_type", string(event.EventType)),
				zap.String("event_id", event.EventID),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = fmt.Errorf("handler for %s failed: %w", event.EventType, err)
			}
		}
	}

	return firstErr
}
