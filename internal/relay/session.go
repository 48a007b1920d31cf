// ABOUTME: Session controller composing decoder, SSE writer, heartbeat, and telemetry
// ABOUTME: Owns the cancellation signal and the once-only cleanup latch

package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/2389/mission-gateway/internal/auth"
	"github.com/2389/mission-gateway/internal/telemetry"
	"github.com/2389/mission-gateway/internal/upstream"
)

// UpstreamRunner issues the streaming run request to the execution service.
// Satisfied by *upstream.Client; narrowed to an interface for tests.
type UpstreamRunner interface {
	Run(ctx context.Context, missionID, playID string, ac *auth.Context) (io.ReadCloser, error)
}

// Session coordinates one client's streaming execution request from open to
// close. It is created after the downstream SSE response has been opened:
// every failure past that point is communicated as an in-band error event,
// never as an HTTP status.
type Session struct {
	MissionID  string
	PlayID     string
	Auth       *auth.Context
	IncidentID string

	Writer            *SSEWriter
	Upstream          UpstreamRunner
	Telemetry         telemetry.Sink
	HeartbeatInterval time.Duration
	Logger            *slog.Logger

	cancel    context.CancelFunc
	closeOnce sync.Once
	terminal  sync.Once
	frames    atomic.Int64
	bytes     atomic.Int64
}

// Run drives the session to completion. It blocks until the upstream stream
// ends, the client disconnects, or a terminal error occurs, and guarantees
// cleanup on every exit path. The client receives execution_started, then
// relayed and heartbeat frames in generation order, then exactly one of
// execution_complete or error (unless the writer closed first).
func (s *Session) Run(ctx context.Context) {
	sctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer s.close()

	s.emitStarted()

	hb := StartHeartbeat(s.HeartbeatInterval, s.emitHeartbeat)
	defer hb.Stop()

	body, err := s.Upstream.Run(sctx, s.MissionID, s.PlayID, s.Auth)
	if err != nil {
		s.terminalUpstreamError(sctx, err)
		return
	}
	defer body.Close()

	s.relayLoop(sctx, body)
}

// relayLoop reads upstream chunks, decodes frames, and forwards them until
// EOF, cancellation, or a read failure. The upstream body is exclusively
// owned by this loop; the heartbeat timer never touches it.
func (s *Session) relayLoop(ctx context.Context, body io.Reader) {
	dec := NewDecoder()
	buf := make([]byte, 4096)

	for {
		n, err := body.Read(buf)
		if n > 0 {
			s.bytes.Add(int64(n))
			for _, d := range dec.Feed(buf[:n]) {
				s.forward(d)
			}
		}
		if err == nil {
			continue
		}

		if errors.Is(err, io.EOF) {
			// Flush a trailing partial frame: many upstream writers omit
			// the final newline on the last event.
			if d, ok := dec.Flush(); ok {
				s.forward(d)
			}
			s.terminalComplete()
			return
		}

		if ctx.Err() != nil {
			// Deliberate cancellation - no further frames are sent.
			return
		}

		s.terminalError("Execution stream read failed", nil)
		return
	}
}

// forward relays one decoded frame to the client and, for telemetered
// types, to the sink. A malformed line becomes one in-band error event and
// the session keeps going.
func (s *Session) forward(d Decoded) {
	if d.Err != nil {
		s.writeError("Invalid execution stream payload", nil)
		return
	}

	f := d.Frame
	event := f.Type
	if event == "" {
		event = "message"
	}

	data := f.Data
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}

	// An upstream terminal frame consumes the terminal latch, so the EOF
	// path afterwards is a no-op and the client still sees exactly one of
	// execution_complete or error.
	if event == string(telemetry.EventExecutionComplete) || event == string(telemetry.EventError) {
		s.terminal.Do(func() {
			if err := s.Writer.WriteEvent(f.ID, event, data); err != nil {
				s.logWriteFailure(event, err)
				return
			}
			s.frames.Add(1)
		})
		return
	}

	if err := s.Writer.WriteEvent(f.ID, event, data); err != nil {
		s.logWriteFailure(event, err)
		return
	}
	s.frames.Add(1)

	if telemetry.EventType(event).Telemetered() {
		s.Telemetry.Emit(telemetry.EventType(event), s.telemetryPayload(data))
	}
}

// logWriteFailure logs a failed SSE write. ErrClosed is routine teardown
// noise and stays at debug.
func (s *Session) logWriteFailure(what string, err error) {
	if errors.Is(err, ErrClosed) {
		s.Logger.Debug("dropped write to closed stream", "event", what)
		return
	}
	s.Logger.Warn("failed to write SSE record", "error", err, "event", what)
}

// telemetryPayload merges the frame data with session identity fields.
func (s *Session) telemetryPayload(data json.RawMessage) map[string]any {
	payload := make(map[string]any)
	if len(data) > 0 {
		// Best effort - non-object data is telemetered without frame fields
		_ = json.Unmarshal(data, &payload)
	}
	payload["mission_id"] = s.MissionID
	payload["tenant_id"] = s.Auth.TenantID
	return payload
}

func (s *Session) emitStarted() {
	data := map[string]string{
		"mission_id": s.MissionID,
		"play_id":    s.PlayID,
	}
	if err := s.Writer.WriteEvent("", string(telemetry.EventExecutionStarted), data); err != nil {
		s.logWriteFailure("execution_started", err)
		return
	}
	s.Telemetry.Emit(telemetry.EventExecutionStarted, map[string]any{
		"mission_id": s.MissionID,
		"play_id":    s.PlayID,
		"tenant_id":  s.Auth.TenantID,
		"user_id":    s.Auth.UserID,
	})
}

// emitHeartbeat runs on the heartbeat goroutine. It communicates with the
// session only through the serialized writer and the sink, never by
// mutating shared relay state.
func (s *Session) emitHeartbeat() {
	data := map[string]string{
		"mission_id": s.MissionID,
		"tenant_id":  s.Auth.TenantID,
	}
	if err := s.Writer.WriteEvent("", string(telemetry.EventSessionHeartbeat), data); err != nil {
		s.logWriteFailure("session_heartbeat", err)
		return
	}
	s.Telemetry.Emit(telemetry.EventSessionHeartbeat, map[string]any{
		"mission_id": s.MissionID,
		"tenant_id":  s.Auth.TenantID,
	})
}

// terminalUpstreamError maps a failed upstream call to its in-band error
// event. All three failure modes are terminal: emit, then clean up without
// re-raising.
func (s *Session) terminalUpstreamError(ctx context.Context, err error) {
	if ctx.Err() != nil {
		// Cancelled while connecting - stay quiet.
		return
	}

	var statusErr *upstream.StatusError
	switch {
	case errors.As(err, &statusErr):
		s.Logger.Warn("execution service returned an error",
			"backend_status", statusErr.Status, "incident_id", s.IncidentID)
		s.terminalError("Execution service returned an error", map[string]any{
			"backend_status": statusErr.Status,
			"backend_body":   statusErr.Body,
		})
	case errors.Is(err, upstream.ErrNoStream):
		s.Logger.Warn("execution service did not return a stream", "incident_id", s.IncidentID)
		s.terminalError("Execution service did not return a stream", nil)
	default:
		s.Logger.Warn("execution service unreachable", "error", err, "incident_id", s.IncidentID)
		s.terminalError("Unable to reach execution service", nil)
	}
}

// terminalComplete emits the success terminal frame. At most one terminal
// frame is ever sent; the latch settles races between exit paths.
func (s *Session) terminalComplete() {
	s.terminal.Do(func() {
		data := map[string]string{"mission_id": s.MissionID}
		if err := s.Writer.WriteEvent("", string(telemetry.EventExecutionComplete), data); err != nil {
			s.logWriteFailure("execution_complete", err)
		}
	})
}

// terminalError emits the failure terminal frame.
func (s *Session) terminalError(message string, extra map[string]any) {
	s.terminal.Do(func() {
		s.writeError(message, extra)
	})
}

// writeError writes one in-band error event carrying the incident ID that
// correlates client-visible failures with server logs.
func (s *Session) writeError(message string, extra map[string]any) {
	data := map[string]any{
		"message":     message,
		"incident_id": s.IncidentID,
	}
	for k, v := range extra {
		data[k] = v
	}
	if err := s.Writer.WriteEvent("", string(telemetry.EventError), data); err != nil {
		s.logWriteFailure("error", err)
	}
}

// close releases every session resource exactly once. It can be reached
// from racing exit paths (reader loop completion, upstream failure, client
// abort); the latch keeps cleanup single-shot.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.Writer.Close()
		s.Logger.Debug("session closed",
			"mission_id", s.MissionID,
			"frames", s.frames.Load(),
			"bytes", s.bytes.Load(),
		)
	})
}
