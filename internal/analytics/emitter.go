// Package analytics delivers fire-and-forget events to sinks without
// blocking the caller.
package analytics

import (
	"context"
	"sync"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/ports"
)

// Sink receives events on the emitter goroutine.
type Sink interface {
	Name() string
	Handle(ctx context.Context, e core.Event) error
}

const defaultBuffer = 256

// Emitter queues events on a bounded channel and hands them to every sink
// from a single goroutine. A full queue drops the event.
type Emitter struct {
	events chan core.Event
	sinks  []Sink
	logger *applog.Logger

	sinkTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

var _ ports.EventSink = (*Emitter)(nil)

// NewEmitter starts the delivery goroutine. Close must be called to
// flush queued events.
func NewEmitter(buffer int, logger *applog.Logger, sinks ...Sink) *Emitter {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if logger == nil {
		logger = applog.Discard()
	}
	e := &Emitter{
		events:      make(chan core.Event, buffer),
		sinks:       sinks,
		logger:      logger.WithComponent(applog.ComponentAnalytics),
		sinkTimeout: 5 * time.Second,
		done:        make(chan struct{}),
	}
	go e.run()
	return e
}

// Emit never blocks and never fails.
func (e *Emitter) Emit(_ context.Context, ev core.Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}

	select {
	case e.events <- ev:
		EventsTotal.WithLabelValues(ev.Name).Inc()
	default:
		EventsDropped.Inc()
		e.logger.Warn("Analytics buffer full, event dropped", applog.FieldEvent, ev.Name)
	}
}

func (e *Emitter) run() {
	defer close(e.done)
	for ev := range e.events {
		for _, s := range e.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), e.sinkTimeout)
			if err := s.Handle(ctx, ev); err != nil {
				SinkFailures.WithLabelValues(s.Name()).Inc()
				e.logger.Warn("Analytics sink failed",
					"sink", s.Name(),
					applog.FieldEvent, ev.Name,
					applog.FieldError, err.Error())
			}
			cancel()
		}
	}
}

// Close stops accepting events and waits for queued ones to be delivered
// or for ctx to end.
func (e *Emitter) Close(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.events)
	}
	e.mu.Unlock()

	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
