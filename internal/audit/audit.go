// Package audit implements the AuditSink outbound port (spec.md §6):
// "record(event) ... never blocks the request path." Durable storage
// of audit events is an external concern (spec.md §1, "compliance/audit
// log surfaces"); this package only owns the non-blocking contract and
// a default adapter that degrades to the teacher's own "log a warning,
// keep going" idiom (cmd/engine/main.go) when its buffer is saturated.
package audit

import (
	"context"
	"log"
	"time"
)

// Event is one audit record: kind, correlation id, actor, and an
// opaque payload (§6).
type Event struct {
	Kind          string
	CorrelationID string
	Actor         string
	Payload       map[string]interface{}
	At            time.Time
}

// Sink is the outbound port. Record must never block its caller —
// implementations own their own buffering/backpressure policy.
type Sink interface {
	Record(event Event)
}

// AsyncLogSink is the default Sink: a bounded channel drained by one
// background goroutine that logs every event through the standard
// logger, the same destination the teacher sends its own diagnostics
// to. When the channel is full, the event is dropped with a log line
// rather than blocking the caller — audit is advisory to the request
// path, never load-bearing for it (§7: "Cache and Embedder failures
// degrade silently"; this port degrades the same way).
type AsyncLogSink struct {
	events  chan Event
	dropped chan struct{}
}

// DefaultBuffer bounds the in-flight event queue.
const DefaultBuffer = 1024

// NewAsyncLogSink starts the background drain goroutine. Stop must be
// called at shutdown to let it exit; Stop does not wait for it.
func NewAsyncLogSink() *AsyncLogSink {
	s := &AsyncLogSink{
		events:  make(chan Event, DefaultBuffer),
		dropped: make(chan struct{}, 1),
	}
	go s.drain()
	return s
}

func (s *AsyncLogSink) Record(event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	select {
	case s.events <- event:
	default:
		log.Printf("audit: buffer full, dropping event kind=%s correlationId=%s", event.Kind, event.CorrelationID)
	}
}

func (s *AsyncLogSink) drain() {
	for e := range s.events {
		log.Printf("audit: kind=%s correlationId=%s actor=%s at=%s payload=%v",
			e.Kind, e.CorrelationID, e.Actor, e.At.Format(time.RFC3339), e.Payload)
	}
}

// Stop closes the event channel and lets the drain goroutine finish
// logging whatever is already buffered.
func (s *AsyncLogSink) Stop() {
	close(s.events)
}

// NoopSink discards every event; used in tests and in configurations
// that route audit elsewhere.
type NoopSink struct{}

func (NoopSink) Record(Event) {}

// WithTimeout wraps Record with ctx solely so callers on the request
// path can express "fire and forget, bounded by my own deadline"
// without the Sink implementation needing to know about contexts —
// AuditSink's contract (§6) takes no context at all.
func WithTimeout(ctx context.Context, sink Sink, event Event) {
	select {
	case <-ctx.Done():
	default:
		sink.Record(event)
	}
}
