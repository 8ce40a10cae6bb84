// Package wire implements the hand-rolled text request/response framing the
// server speaks: an HTTP-compatible request line, Name: value header lines
// up to a blank line, and an optional body.
package wire

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// MaxBodyBytes bounds a declared Content-Length before the body is read.
const MaxBodyBytes = 1 << 20

// MaxLineBytes bounds a single request or header line.
const MaxLineBytes = 8 << 10

var ErrMalformedRequest = errors.New("wire: malformed request line")
var ErrLineTooLong = errors.New("wire: header line too long")

// Request is a single parsed wire request. It lives for one dispatch:
// the router consumes it and it is not retained.
type Request struct {
	Method  string
	Path    string
	Proto   string
	Headers map[string]string // keys kept exactly as received
	Body    []byte
}

// ReadRequest reads one request off the buffered reader. It accumulates
// bytes until the header boundary is seen and, when a Content-Length is
// declared, until the full body has arrived, so a request split across
// packets parses the same as one that arrived whole. Without a declared
// length the body is whatever already sits in the buffer, which preserves
// the historical single-read behavior for clients that omit the header.
func ReadRequest(br *bufio.Reader) (*Request, error) {
	line, err := readLine(br)
	if err != nil {
		return nil, err
	}

	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil, ErrMalformedRequest
	}
	req := &Request{
		Method:  fields[0],
		Path:    fields[1],
		Headers: make(map[string]string),
	}
	if len(fields) > 2 {
		req.Proto = fields[2]
	}

	for {
		line, err := readLine(br)
		if err != nil {
			return nil, err
		}
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue // junk header line, best-effort skip
		}
		req.Headers[name] = strings.TrimSpace(value)
	}

	if length, ok := req.contentLength(); ok {
		if length < 0 || length > MaxBodyBytes {
			return nil, fmt.Errorf("wire: content length %d out of range", length)
		}
		body := make([]byte, length)
		if _, err := io.ReadFull(br, body); err != nil {
			return nil, fmt.Errorf("wire: read body: %w", err)
		}
		req.Body = body
	} else if n := br.Buffered(); n > 0 {
		body := make([]byte, n)
		_, _ = br.Read(body)
		req.Body = body
	}

	return req, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. An absent or differently shaped header yields "", never an error.
func (r *Request) BearerToken() string {
	auth := r.Headers["Authorization"]
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return auth[len(prefix):]
}

// JSONBody decodes the body into a generic object. Only POST requests with
// a non-empty body are decoded; everything else, including unparseable
// JSON, yields an empty object, so handlers must validate required fields
// themselves.
func (r *Request) JSONBody() map[string]any {
	if r.Method != "POST" || len(r.Body) == 0 {
		return map[string]any{}
	}
	var obj map[string]any
	if err := json.Unmarshal(r.Body, &obj); err != nil || obj == nil {
		return map[string]any{}
	}
	return obj
}

func (r *Request) contentLength() (int, bool) {
	v, ok := r.Headers["Content-Length"]
	if !ok {
		v, ok = r.Headers["content-length"]
	}
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

// readLine reads up to the next '\n', stripping the terminator and an
// optional preceding '\r'. The length bound is enforced as the line
// accumulates, so an endless unterminated line fails after MaxLineBytes
// instead of being drained into memory first.
func readLine(br *bufio.Reader) (string, error) {
	var line []byte
	for {
		chunk, err := br.ReadSlice('\n')
		line = append(line, chunk...)
		if len(line) > MaxLineBytes {
			return "", ErrLineTooLong
		}
		if err == nil {
			break
		}
		if err != bufio.ErrBufferFull {
			return "", err
		}
	}
	return string(bytes.TrimRight(line, "\r\n")), nil
}
