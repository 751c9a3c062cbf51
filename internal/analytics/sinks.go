package analytics

import (
	"context"
	"sync"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// LogSink writes each event as a structured log line.
type LogSink struct {
	logger *applog.Logger
}

func NewLogSink(logger *applog.Logger) *LogSink {
	return &LogSink{logger: logger.WithComponent(applog.ComponentAnalytics)}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Handle(ctx context.Context, e core.Event) error {
	args := []any{applog.FieldEvent, e.Name, "occurred_at", e.OccurredAt}
	if e.UserID != "" {
		args = append(args, applog.FieldUserID, e.UserID)
	}
	for k, v := range e.Properties {
		args = append(args, "prop_"+k, v)
	}
	s.logger.InfoContext(ctx, "Analytics event", args...)
	return nil
}

// Recorder keeps every event in memory. It is both a Sink and a
// synchronous ports.EventSink, which makes it handy in tests.
type Recorder struct {
	mu     sync.Mutex
	events []core.Event
}

func (r *Recorder) Name() string { return "recorder" }

func (r *Recorder) Handle(_ context.Context, e core.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Emit(ctx context.Context, e core.Event) {
	_ = r.Handle(ctx, e)
}

// Events returns a copy of what was recorded.
func (r *Recorder) Events() []core.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.Event(nil), r.events...)
}

// Names lists recorded event names in order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.events))
	for i, e := range r.events {
		names[i] = e.Name
	}
	return names
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
