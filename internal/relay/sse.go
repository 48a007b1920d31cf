// ABOUTME: SSE wire-format writer with serialized, close-safe record writes
// ABOUTME: Guards the response stream against interleaving from concurrent senders

package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// ErrClosed reports a write attempted after Close. Late writes are expected
// during teardown; callers drop the record and skip its bookkeeping rather
// than treating it as a failure.
var ErrClosed = errors.New("sse writer closed")

// SSEWriter serializes {id?, event, data} triples into the SSE wire format
// and writes them to the client connection. Records can originate from two
// concurrent sources (the relay loop and the heartbeat timer); a single
// mutex keeps each record atomic on the wire.
type SSEWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	closed  bool
}

// NewSSEWriter wraps a response writer. Returns an error if the underlying
// connection does not support streaming.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}
	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent writes one SSE record: "id: <id>\nevent: <event>\ndata: <json>\n\n".
// The id line is omitted when id is empty. Writes after Close are dropped
// and reported as ErrClosed; the session may already be tearing down when a
// late heartbeat or terminal frame arrives, and the record must not be
// counted as delivered.
func (s *SSEWriter) WriteEvent(id, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling SSE data: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if id != "" {
		fmt.Fprintf(s.w, "id: %s\n", id)
	}
	fmt.Fprintf(s.w, "event: %s\n", event)
	fmt.Fprintf(s.w, "data: %s\n\n", payload)
	s.flusher.Flush()
	return nil
}

// Close marks the writer closed. Idempotent; later writes become no-ops.
func (s *SSEWriter) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
