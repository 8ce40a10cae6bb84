package wire

import (
	"bufio"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestReadRequestBasic(t *testing.T) {
	req, err := ReadRequest(reader("GET /api/messages HTTP/1.1\r\nHost: x\r\nAuthorization: Bearer abc123\r\n\r\n"))
	require.NoError(t, err)

	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/api/messages", req.Path)
	assert.Equal(t, "HTTP/1.1", req.Proto)
	assert.Equal(t, "x", req.Headers["Host"])
	assert.Equal(t, "abc123", req.BearerToken())
	assert.Empty(t, req.Body)
}

func TestReadRequestBody(t *testing.T) {
	body := `{"username":"alice","password":"secret1"}`
	raw := "POST /api/login HTTP/1.1\r\nContent-Type: application/json\r\nContent-Length: " +
		"41\r\n\r\n" + body
	req, err := ReadRequest(reader(raw))
	require.NoError(t, err)

	assert.Equal(t, body, string(req.Body))
	obj := req.JSONBody()
	assert.Equal(t, "alice", obj["username"])
	assert.Equal(t, "secret1", obj["password"])
}

func TestReadRequestSplitAcrossWrites(t *testing.T) {
	// The parser must accumulate a request that arrives in fragments.
	pr, pw := io.Pipe()
	defer pr.Close()

	go func() {
		parts := []string{
			"POST /api/message HT",
			"TP/1.1\r\nContent-Length: 16\r\n",
			"\r\n{\"content\"",
			":\"hi\"}",
		}
		for _, p := range parts {
			_, _ = pw.Write([]byte(p))
			time.Sleep(5 * time.Millisecond)
		}
		pw.Close()
	}()

	req, err := ReadRequest(bufio.NewReader(pr))
	require.NoError(t, err)
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "/api/message", req.Path)
	assert.Equal(t, `{"content":"hi"}`, string(req.Body))
}

func TestReadRequestNoAuthHeader(t *testing.T) {
	req, err := ReadRequest(reader("GET / HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "", req.BearerToken())
}

func TestBearerTokenShapes(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"normal", "Bearer tok", "tok"},
		{"empty token", "Bearer ", ""},
		{"basic auth", "Basic dXNlcg==", ""},
		{"missing prefix", "tok", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &Request{Headers: map[string]string{"Authorization": tt.header}}
			assert.Equal(t, tt.want, req.BearerToken())
		})
	}
}

func TestReadRequestMalformed(t *testing.T) {
	_, err := ReadRequest(reader("GARBAGE\r\n\r\n"))
	assert.ErrorIs(t, err, ErrMalformedRequest)
}

func TestReadRequestTruncatedBody(t *testing.T) {
	_, err := ReadRequest(reader("POST /api/message HTTP/1.1\r\nContent-Length: 100\r\n\r\nshort"))
	assert.Error(t, err)
}

func TestReadRequestOversizedBody(t *testing.T) {
	_, err := ReadRequest(reader("POST /x HTTP/1.1\r\nContent-Length: 99999999\r\n\r\n"))
	assert.Error(t, err)
}

func TestJSONBodyDefaults(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"get with body", Request{Method: "GET", Body: []byte(`{"a":1}`)}},
		{"post empty body", Request{Method: "POST"}},
		{"post invalid json", Request{Method: "POST", Body: []byte("{nope")}},
		{"post json array", Request{Method: "POST", Body: []byte("[1,2]")}},
		{"post json null", Request{Method: "POST", Body: []byte("null")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := tt.req.JSONBody()
			require.NotNil(t, obj)
			assert.Empty(t, obj, "expected empty object")
		})
	}
}

func TestJunkHeaderLineSkipped(t *testing.T) {
	req, err := ReadRequest(reader("GET / HTTP/1.1\r\nthis line has no colon\r\nHost: y\r\n\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "y", req.Headers["Host"])
}

type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

func TestReadRequestHeaderLineBounded(t *testing.T) {
	// An unterminated multi-megabyte header line must fail at the bound,
	// not after the whole line has been pulled off the transport.
	raw := "GET / HTTP/1.1\r\nX-Junk: " + strings.Repeat("a", 1<<20) + "\r\n\r\n"
	cr := &countingReader{r: strings.NewReader(raw)}

	_, err := ReadRequest(bufio.NewReader(cr))
	require.ErrorIs(t, err, ErrLineTooLong)
	assert.Less(t, cr.n, 2*MaxLineBytes, "parser drained far past the line bound")
}

func TestReadRequestLongRequestLineBounded(t *testing.T) {
	raw := "GET /" + strings.Repeat("a", 2*MaxLineBytes) + " HTTP/1.1\r\n\r\n"
	cr := &countingReader{r: strings.NewReader(raw)}

	_, err := ReadRequest(bufio.NewReader(cr))
	require.ErrorIs(t, err, ErrLineTooLong)
	assert.Less(t, cr.n, 2*MaxLineBytes)
}
