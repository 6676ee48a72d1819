package events

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrQueueFull is returned by Publish when the buffer has no room.
var ErrQueueFull = errors.New("event queue full")

// AsyncDispatcher buffers events and delivers them on worker goroutines.
// Publish never blocks; a full buffer drops the event.
type AsyncDispatcher struct {
	registry
	logger *zap.Logger
	queue  chan Event
	once   sync.Once
	wg     sync.WaitGroup
	// OnDrop is called for every event rejected by a full queue.
	OnDrop func(Event)
}

// NewAsyncDispatcher creates a dispatcher with the given buffer size.
func NewAsyncDispatcher(logger *zap.Logger, size int) *AsyncDispatcher {
	if size <= 0 {
		size = 1
	}
	return &AsyncDispatcher{
		registry: registry{listeners: make(map[EventType][]EventHandler)},
		logger:   logger,
		queue:    make(chan Event, size),
	}
}

// Publish enqueues event for background delivery. Events nobody
// subscribed to are discarded without taking a queue slot.
func (d *AsyncDispatcher) Publish(_ context.Context, event Event) error {
	if !d.subscribed(event.Type) {
		return nil
	}
	select {
	case d.queue <- event:
		return nil
	default:
		d.logger.Warn("dropping event; queue full",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
		if d.OnDrop != nil {
			d.OnDrop(event)
		}
		return ErrQueueFull
	}
}

// Start launches workers that drain the queue until ctx is cancelled.
// Handlers receive a context detached from the publishing request.
func (d *AsyncDispatcher) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 1
	}
	d.once.Do(func() {
		for i := 0; i < workers; i++ {
			d.wg.Add(1)
			go d.run(ctx)
		}
	})
}

// Wait blocks until every worker has exited.
func (d *AsyncDispatcher) Wait() {
	d.wg.Wait()
}

func (d *AsyncDispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-d.queue:
			d.deliver(ctx, d.logger, event)
		}
	}
}
