// ABOUTME: Telemetry Sink interface and the log- and store-backed implementations
// ABOUTME: Emit is fire-and-forget and must never block the streaming relay

package telemetry

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/mission-gateway/internal/store"
)

// maxJournaledPayload caps the payload size written to the journal.
const maxJournaledPayload = 4096

// Sink accepts (eventType, payload) pairs. Implementations must not block;
// a slow or failing sink drops events rather than stalling the caller.
type Sink interface {
	Emit(event EventType, payload map[string]any)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Emit(EventType, map[string]any) {}

// LogSink writes telemetry events to the structured log.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink that logs each event at debug level.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "telemetry")}
}

func (s *LogSink) Emit(event EventType, payload map[string]any) {
	s.logger.Debug("telemetry event", "event_type", string(event), "payload", payload)
}

// StoreSink journals telemetry events to the control-plane store through a
// buffered channel. Writes happen on a background goroutine so Emit never
// blocks; events are dropped when the buffer is full or the sink is closed.
// Sessions may outlive the server drain window, so Emit must stay safe
// against a concurrent Close.
type StoreSink struct {
	store  store.Store
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	ch     chan *store.TelemetryEvent
	done   chan struct{}
}

// NewStoreSink creates a journal-backed sink and starts its writer goroutine.
func NewStoreSink(s store.Store, logger *slog.Logger) *StoreSink {
	if logger == nil {
		logger = slog.Default()
	}
	sink := &StoreSink{
		store:  s,
		logger: logger.With("component", "telemetry"),
		ch:     make(chan *store.TelemetryEvent, 256),
		done:   make(chan struct{}),
	}
	go sink.run()
	return sink
}

func (s *StoreSink) run() {
	defer close(s.done)
	for e := range s.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.store.AppendTelemetry(ctx, e); err != nil {
			s.logger.Warn("failed to journal telemetry event", "error", err, "event_type", e.EventType)
		}
		cancel()
	}
}

func (s *StoreSink) Emit(event EventType, payload map[string]any) {
	tenantID, _ := payload["tenant_id"].(string)

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("failed to marshal telemetry payload", "event_type", string(event), "error", err)
		return
	}
	if len(data) > maxJournaledPayload {
		data = data[:maxJournaledPayload]
	}

	e := &store.TelemetryEvent{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		EventType: string(event),
		Payload:   string(data),
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.logger.Debug("dropped telemetry event after close", "event_type", string(event))
		return
	}
	select {
	case s.ch <- e:
	default:
		// Buffer full - drop rather than stall the relay
		s.logger.Debug("dropped telemetry event", "event_type", string(event))
	}
}

// Close stops the writer goroutine after draining buffered events.
// Idempotent; later Emit calls drop their events. The channel is closed
// under the same mutex Emit sends under, so no send can race the close.
func (s *StoreSink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()
	<-s.done
}
