package wire

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteResponseFraming(t *testing.T) {
	var buf bytes.Buffer
	body := []byte(`{"ok":true}`)
	require.NoError(t, WriteResponse(&buf, 201, "application/json", body))

	out := buf.String()
	head, gotBody, found := strings.Cut(out, "\r\n\r\n")
	require.True(t, found, "missing header/body boundary")

	lines := strings.Split(head, "\r\n")
	assert.Equal(t, "HTTP/1.1 201 Created", lines[0])
	assert.Contains(t, lines, "Content-Type: application/json")
	assert.Contains(t, lines, fmt.Sprintf("Content-Length: %d", len(body)))
	assert.Contains(t, lines, "Access-Control-Allow-Origin: *")
	assert.Contains(t, lines, "Access-Control-Allow-Methods: GET, POST, PUT, DELETE, OPTIONS")
	assert.Contains(t, lines, "Access-Control-Allow-Headers: Content-Type, Authorization")
	assert.Equal(t, string(body), gotBody)
}

func TestReasonPhrases(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{200, "OK"},
		{201, "Created"},
		{400, "Bad Request"},
		{401, "Unauthorized"},
		{403, "Forbidden"},
		{404, "Not Found"},
		{405, "Method Not Allowed"},
		{500, "Internal Server Error"},
		{418, "Internal Server Error"}, // unmapped falls back to the generic phrase
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ReasonPhrase(tt.status), "status %d", tt.status)
	}
}

func TestWriteError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteError(&buf, 401, "Not authenticated"))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 401 Unauthorized\r\n"))
	assert.True(t, strings.HasSuffix(out, `{"error":"Not authenticated"}`))
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEmpty(&buf, 200))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n"))
	assert.Contains(t, out, "Content-Length: 0\r\n")
	assert.True(t, strings.HasSuffix(out, "\r\n\r\n"))
}

func TestSingleWritePerResponse(t *testing.T) {
	w := &countingWriter{}
	require.NoError(t, WriteJSON(w, 200, map[string]bool{"success": true}))
	assert.Equal(t, 1, w.writes, "response must reach the transport in one write")
}

type countingWriter struct {
	writes int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.writes++
	return len(p), nil
}
