package event

import (
	"context"
	"sync/atomic"
)

// DefaultQueueSize is the capacity used by NewQueue when size <= 0.
const DefaultQueueSize = 64

// Queue hands events from a producer goroutine to a consumer goroutine.
// Emit never blocks: when the queue is full the event is dropped and counted.
type Queue struct {
	// OnDrop is called on the producer goroutine for every dropped event.
	OnDrop func(Event)

	ch      chan Event
	dropped atomic.Uint64
}

// NewQueue creates a Queue.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{ch: make(chan Event, size)}
}

// Emit implements Sink.
func (q *Queue) Emit(ev Event) {
	select {
	case q.ch <- ev:
	default:
		q.dropped.Add(1)
		if q.OnDrop != nil {
			q.OnDrop(ev)
		}
	}
}

// C returns the receiving side of the queue.
func (q *Queue) C() <-chan Event {
	return q.ch
}

// Dropped returns the number of events dropped because the queue was full.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Drain delivers all currently queued events to sink without waiting.
func (q *Queue) Drain(sink Sink) {
	for {
		select {
		case ev := <-q.ch:
			sink.Emit(ev)
		default:
			return
		}
	}
}

// Run delivers queued events to sink until ctx is done.
func (q *Queue) Run(ctx context.Context, sink Sink) error {
	for {
		select {
		case <-ctx.Done():
			q.Drain(sink)
			return ctx.Err()
		case ev := <-q.ch:
			sink.Emit(ev)
		}
	}
}

// Pump binds a Queue to its consumer so it can be run as a Runnable.
type Pump struct {
	Queue *Queue
	Sink  Sink
}

// Run implements Runnable.
func (p *Pump) Run(ctx context.Context) error {
	return p.Queue.Run(ctx, p.Sink)
}
