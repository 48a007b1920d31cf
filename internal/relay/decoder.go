// ABOUTME: Incremental NDJSON frame decoder for the upstream byte stream
// ABOUTME: Buffers partial lines across chunks and flushes a trailing frame on EOF

package relay

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrMalformedFrame marks a line that was not valid JSON. The relay emits
// one in-band error event for it and keeps going; a single bad line must
// not terminate the session.
var ErrMalformedFrame = errors.New("invalid execution stream payload")

// Frame is one decoded upstream NDJSON record. It is transient: forwarded
// to the SSE writer and the telemetry sink, then discarded.
type Frame struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Decoded pairs a frame with a decode error. Exactly one of the two is
// meaningful: Err != nil means the line could not be parsed.
type Decoded struct {
	Frame Frame
	Err   error
}

// Decoder incrementally decodes newline-delimited JSON. Feed it raw chunks
// as they arrive; it keeps the unterminated remainder buffered until the
// next chunk or Flush.
type Decoder struct {
	buf []byte
}

// NewDecoder creates an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends a chunk and returns every frame completed by it, in order.
func (d *Decoder) Feed(chunk []byte) []Decoded {
	d.buf = append(d.buf, chunk...)

	var out []Decoded
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			return out
		}
		line := d.buf[:i]
		d.buf = d.buf[i+1:]

		if decoded, ok := decodeLine(line); ok {
			out = append(out, decoded)
		}
	}
}

// Flush decodes a trailing unterminated line, if any. Call it once at
// upstream EOF: many writers omit the final newline on the last event.
func (d *Decoder) Flush() (Decoded, bool) {
	line := d.buf
	d.buf = nil
	return decodeLine(line)
}

// decodeLine parses one line into a frame. Blank lines are skipped (ok is
// false); unparsable lines yield a Decoded carrying ErrMalformedFrame.
func decodeLine(line []byte) (Decoded, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Decoded{}, false
	}

	var f Frame
	if err := json.Unmarshal(line, &f); err != nil {
		return Decoded{Err: ErrMalformedFrame}, true
	}
	return Decoded{Frame: f}, true
}
