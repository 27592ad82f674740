package observability

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TraceEvent is one fired rule's record, queued for async span export so
// a high-throughput caller's reason() call is never blocked on exporter
// I/O.
type TraceEvent struct {
	CallID    string
	RuleID    string
	Fired     bool
	Writes    int
	Timestamp time.Time
}

// AsyncEmitter buffers TraceEvents and exports them as OpenTelemetry
// spans on a background goroutine.
type AsyncEmitter struct {
	buffer chan TraceEvent
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewAsyncEmitter creates an emitter with the given buffer capacity.
func NewAsyncEmitter(bufferSize int) *AsyncEmitter {
	ctx, cancel := context.WithCancel(context.Background())
	return &AsyncEmitter{
		buffer: make(chan TraceEvent, bufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins the background worker that exports queued events.
func (e *AsyncEmitter) Start() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for {
			select {
			case ev := <-e.buffer:
				e.exportEvent(ev)
			case <-e.ctx.Done():
				e.drainBuffer()
				return
			}
		}
	}()
}

// Emit queues a rule trace event for async export. Non-blocking: if the
// buffer is full the event is dropped and a warning logged, so a slow
// exporter never backs up into the reason() call path.
func (e *AsyncEmitter) Emit(callID, ruleID string, fired bool, writes int) {
	ev := TraceEvent{CallID: callID, RuleID: ruleID, Fired: fired, Writes: writes, Timestamp: time.Now()}
	select {
	case e.buffer <- ev:
	default:
		log.Printf("trace event buffer full, dropping event: call=%s rule=%s", callID, ruleID)
	}
}

// Stop gracefully shuts down the emitter, draining the buffer.
func (e *AsyncEmitter) Stop() {
	e.cancel()
	e.wg.Wait()
}

func (e *AsyncEmitter) drainBuffer() {
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-e.buffer:
			e.exportEvent(ev)
		case <-timeout:
			return
		default:
			if len(e.buffer) == 0 {
				return
			}
		}
	}
}

func (e *AsyncEmitter) exportEvent(ev TraceEvent) {
	_, span := Tracer.Start(context.Background(), "rule.trace")
	defer span.End()

	span.SetAttributes(
		attribute.String("symbolica.call_id", ev.CallID),
		attribute.String("rule.id", ev.RuleID),
		attribute.Bool("rule.fired", ev.Fired),
		attribute.Int("rule.writes", ev.Writes),
	)
	span.AddEvent("rule.trace_recorded", trace.WithAttributes(
		attribute.String("rule.id", ev.RuleID),
	))
}

// BufferSize returns the current number of buffered events.
func (e *AsyncEmitter) BufferSize() int { return len(e.buffer) }

// BufferCapacity returns the maximum buffer capacity.
func (e *AsyncEmitter) BufferCapacity() int { return cap(e.buffer) }
