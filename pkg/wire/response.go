package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Every response carries the permissive CORS header set; the browser client
// is served from an arbitrary origin.
const corsHeaders = "Access-Control-Allow-Origin: *\r\n" +
	"Access-Control-Allow-Methods: GET, POST, PUT, DELETE, OPTIONS\r\n" +
	"Access-Control-Allow-Headers: Content-Type, Authorization\r\n"

var reasonPhrases = map[int]string{
	200: "OK",
	201: "Created",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	500: "Internal Server Error",
}

// ReasonPhrase maps a status code to its phrase, with a generic fallback
// for unmapped codes.
func ReasonPhrase(status int) string {
	if phrase, ok := reasonPhrases[status]; ok {
		return phrase
	}
	return "Internal Server Error"
}

// WriteResponse serializes a complete response (status line, fixed CORS
// headers, Content-Length, body) and hands it to the transport in a single
// write. No streaming, no chunking.
func WriteResponse(w io.Writer, status int, contentType string, body []byte) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "HTTP/1.1 %d %s\r\n", status, ReasonPhrase(status))
	fmt.Fprintf(&buf, "Content-Type: %s\r\n", contentType)
	fmt.Fprintf(&buf, "Content-Length: %d\r\n", len(body))
	buf.WriteString(corsHeaders)
	buf.WriteString("\r\n")
	buf.Write(body)

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("wire: write response: %w", err)
	}
	return nil
}

// WriteJSON marshals v and writes it as an application/json response.
func WriteJSON(w io.Writer, status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return WriteError(w, 500, "Internal server error")
	}
	return WriteResponse(w, status, "application/json", body)
}

// WriteError writes the standard {"error": message} body.
func WriteError(w io.Writer, status int, message string) error {
	body, _ := json.Marshal(map[string]string{"error": message})
	return WriteResponse(w, status, "application/json", body)
}

// WriteEmpty writes a bodyless response, used for CORS preflight.
func WriteEmpty(w io.Writer, status int) error {
	return WriteResponse(w, status, "text/plain", nil)
}
