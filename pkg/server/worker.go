package server

import (
	"bufio"
	"errors"
	"io"
	"log/slog"

	"github.com/codehubbers/hubbergram/pkg/wire"
)

// methodPrefixes are the first bytes of the request methods we serve.
// Anything else in the stream is noise and gets discarded.
var methodPrefixes = [][]byte{
	[]byte("GET"),
	[]byte("POS"),
	[]byte("OPT"),
}

// handleConn serves one client connection until it closes or sends a
// request we cannot parse.
func (s *Server) handleConn(client *Client) {
	conn := client.Conn
	remoteAddr := conn.RemoteAddr().String()
	slog.Debug("new client connection", "remote", remoteAddr)

	defer func() {
		_ = conn.Close()
		s.registry.Remove(client)
		s.metrics.ActiveConnections.Add(-1)
		s.metrics.TotalDisconnects.Add(1)
		slog.Debug("client disconnected", "remote", remoteAddr)
	}()

	br := bufio.NewReader(conn)
	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		ok, err := sniffMethod(br)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Debug("read failed", "remote", remoteAddr, "err", err)
			}
			return
		}
		if !ok {
			// Not a request we understand. Drop the buffered bytes and
			// keep the connection; the client may send a real request next.
			s.metrics.DiscardedReads.Add(1)
			if _, err := br.Discard(br.Buffered()); err != nil {
				return
			}
			continue
		}

		req, err := wire.ReadRequest(br)
		if err != nil {
			if errors.Is(err, wire.ErrMalformedRequest) || errors.Is(err, wire.ErrLineTooLong) {
				s.metrics.DiscardedReads.Add(1)
				slog.Debug("malformed request, dropping connection", "remote", remoteAddr, "err", err)
			}
			return
		}

		s.authenticate(client, req)

		s.metrics.RequestsHandled.Add(1)
		if err := s.router.dispatch(conn, client, req); err != nil {
			slog.Debug("write failed", "remote", remoteAddr, "err", err)
			return
		}
	}
}

// sniffMethod peeks at the stream and reports whether the next bytes
// look like the start of a request line.
func sniffMethod(br *bufio.Reader) (bool, error) {
	head, err := br.Peek(3)
	if err != nil {
		return false, err
	}
	for _, p := range methodPrefixes {
		if string(head) == string(p) {
			return true, nil
		}
	}
	return false, nil
}

// authenticate attaches a verified identity to the client when the
// request carries a valid bearer token. A bad token leaves the client
// in its previous state; per-route access checks happen in the router.
func (s *Server) authenticate(client *Client, req *wire.Request) {
	token := req.BearerToken()
	if token == "" {
		return
	}

	userID, issuedAt, err := s.codec.Decode(token)
	if err != nil {
		slog.Debug("token decode failed", "err", err)
		return
	}
	if !s.codec.Valid(issuedAt) {
		slog.Debug("token expired", "user_id", userID, "issued_at", issuedAt)
		return
	}

	user, err := s.store.NonTx().GetUserByID(userID)
	if err != nil || user == nil {
		slog.Debug("token user lookup failed", "user_id", userID, "err", err)
		return
	}

	s.registry.Authenticate(client, user.ID, user.Username, user.Role)
}
