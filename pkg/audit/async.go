package audit

import (
	"context"
	"fmt"
)

// AsyncPublisher buffers events on a channel and hands them to an inner
// publisher from a background worker, keeping audit writes off the request
// path. Emit never blocks; events are dropped when the buffer is full.
type AsyncPublisher struct {
	inner   Publisher
	inbox   chan Event
	dropped func(Event)
}

// AsyncOption configures an AsyncPublisher.
type AsyncOption func(*AsyncPublisher)

// WithDropHandler is called for every event discarded because the buffer was
// full.
func WithDropHandler(fn func(Event)) AsyncOption {
	return func(p *AsyncPublisher) {
		if fn != nil {
			p.dropped = fn
		}
	}
}

// NewAsyncPublisher wraps inner with a buffered channel of the given size.
func NewAsyncPublisher(inner Publisher, buffer int, opts ...AsyncOption) *AsyncPublisher {
	if buffer <= 0 {
		buffer = 256
	}
	p := &AsyncPublisher{
		inner:   inner,
		inbox:   make(chan Event, buffer),
		dropped: func(Event) {},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit queues the event for the background worker.
func (p *AsyncPublisher) Emit(_ context.Context, event Event) error {
	select {
	case p.inbox <- event:
		return nil
	default:
		p.dropped(event)
		return fmt.Errorf("audit buffer full, event %s dropped", event.Action)
	}
}

// Run drains the inbox until ctx is cancelled. Call it from a goroutine at
// startup; it returns ctx.Err() on shutdown after draining what is buffered.
func (p *AsyncPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			// Drain without blocking so buffered events are not lost.
			for {
				select {
				case event := <-p.inbox:
					_ = p.inner.Emit(context.Background(), event)
				default:
					return ctx.Err()
				}
			}
		case event := <-p.inbox:
			_ = p.inner.Emit(ctx, event)
		}
	}
}
