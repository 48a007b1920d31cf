// Package relay implements the mission execution streaming gateway core:
// an NDJSON-to-SSE relay session with heartbeats, telemetry classification,
// and guaranteed once-only cleanup.
//
// # Session lifecycle
//
// A Session is created after request validation and authentication have
// succeeded and the downstream SSE response has been opened. From then on
// no HTTP-status-level error is possible; every failure is an in-band
// "error" event carrying a message and an incident ID.
//
// The client-visible ordering guarantee:
//
//	execution_started
//	<relayed frames and session_heartbeat, in generation order>
//	execution_complete | error        (exactly one, never both)
//
// # Concurrency
//
// Two goroutines touch a session: the relay loop (exclusive owner of the
// upstream body) and the heartbeat timer. They share only the SSEWriter,
// which serializes records behind a mutex, and the telemetry sink, which
// never blocks. Cancellation is a single context shared by the upstream
// call and the relay loop, triggered by client disconnect, cleanup, or an
// unrecoverable error; triggering it twice is a no-op.
package relay
