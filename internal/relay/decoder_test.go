// ABOUTME: Tests for the incremental NDJSON decoder
// ABOUTME: Covers chunk splits mid-line, trailing partial frames, and malformed lines

package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoderSingleChunk(t *testing.T) {
	d := NewDecoder()

	out := d.Feed([]byte(`{"type":"execution_step_completed","data":{"step":1}}` + "\n" +
		`{"type":"execution_tool_invoked","data":{"tool":"lookup"}}` + "\n"))

	require.Len(t, out, 2)
	assert.NoError(t, out[0].Err)
	assert.Equal(t, "execution_step_completed", out[0].Frame.Type)
	assert.Equal(t, "execution_tool_invoked", out[1].Frame.Type)
	assert.JSONEq(t, `{"step":1}`, string(out[0].Frame.Data))
}

func TestDecoderSplitMidLine(t *testing.T) {
	d := NewDecoder()

	out := d.Feed([]byte(`{"type":"execution_step_comp`))
	assert.Empty(t, out, "partial line must stay buffered")

	out = d.Feed([]byte(`leted","data":{"step":3}}` + "\n"))
	require.Len(t, out, 1)
	assert.NoError(t, out[0].Err)
	assert.Equal(t, "execution_step_completed", out[0].Frame.Type)
	assert.JSONEq(t, `{"step":3}`, string(out[0].Frame.Data))
}

func TestDecoderByteAtATime(t *testing.T) {
	d := NewDecoder()
	raw := `{"type":"safeguard_alert","id":"f-1"}` + "\n"

	var out []Decoded
	for i := 0; i < len(raw); i++ {
		out = append(out, d.Feed([]byte{raw[i]})...)
	}

	require.Len(t, out, 1)
	assert.Equal(t, "safeguard_alert", out[0].Frame.Type)
	assert.Equal(t, "f-1", out[0].Frame.ID)
}

func TestDecoderFlushTrailingPartial(t *testing.T) {
	d := NewDecoder()

	out := d.Feed([]byte(`{"type":"a"}` + "\n" + `{"type":"execution_step_completed"}`))
	require.Len(t, out, 1)

	decoded, ok := d.Flush()
	require.True(t, ok, "unterminated final line must be flushed")
	assert.NoError(t, decoded.Err)
	assert.Equal(t, "execution_step_completed", decoded.Frame.Type)

	_, ok = d.Flush()
	assert.False(t, ok, "second flush must find nothing")
}

func TestDecoderFlushEmpty(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte(`{"type":"a"}` + "\n"))

	_, ok := d.Flush()
	assert.False(t, ok)
}

func TestDecoderMalformedLine(t *testing.T) {
	d := NewDecoder()

	out := d.Feed([]byte("{\"type\":\"a\"}\nnot json at all\n{\"type\":\"b\"}\n"))

	require.Len(t, out, 3)
	assert.NoError(t, out[0].Err)
	assert.ErrorIs(t, out[1].Err, ErrMalformedFrame)
	assert.NoError(t, out[2].Err, "frames after a malformed line must still decode")
	assert.Equal(t, "b", out[2].Frame.Type)
}

func TestDecoderSkipsBlankLines(t *testing.T) {
	d := NewDecoder()

	out := d.Feed([]byte("\n  \n{\"type\":\"a\"}\n\r\n"))

	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].Frame.Type)
}
