package events

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// registry keeps subscriptions for both dispatchers.
type registry struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
}

// Subscribe registers a handler for the given event type.
func (r *registry) Subscribe(eventType EventType, handler EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners[eventType] = append(r.listeners[eventType], handler)
}

func (r *registry) subscribed(eventType EventType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners[eventType]) > 0
}

func (r *registry) handlers(eventType EventType) []EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]EventHandler{}, r.listeners[eventType]...)
}

// deliver runs every handler, logging failures instead of returning them.
// A panicking handler is logged and does not stop the others.
func (r *registry) deliver(ctx context.Context, logger *zap.Logger, event Event) {
	for _, handler := range r.handlers(event.Type) {
		if err := call(ctx, logger, handler, event); err != nil {
			logger.Warn("event handler failed",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.String("ticket_id", event.TicketID),
				zap.Error(err))
		}
	}
}

func call(ctx context.Context, logger *zap.Logger, handler EventHandler, event Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("event handler panicked",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.Any("panic", rec),
				zap.Stack("stack"))
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return handler(ctx, event)
}

// inMemoryDispatcher is a simple synchronous dispatcher.
type inMemoryDispatcher struct {
	registry
	logger *zap.Logger
}

// NewInMemoryDispatcher creates a dispatcher that runs handlers inline.
func NewInMemoryDispatcher(logger *zap.Logger) Dispatcher {
	return &inMemoryDispatcher{
		registry: registry{listeners: make(map[EventType][]EventHandler)},
		logger:   logger,
	}
}

// Publish synchronously invokes handlers for the given event.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.deliver(ctx, d.logger, event)
	return nil
}
