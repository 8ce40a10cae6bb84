package server

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/codehubbers/hubbergram/pkg/model"
)

// ErrServerFull is returned by Add when the registry is at capacity.
var ErrServerFull = errors.New("server: connection registry full")

// Client is one tracked connection. Identity fields are zero until the
// connection authenticates.
type Client struct {
	Conn          net.Conn
	UserID        int64
	Username      string
	Role          model.Role
	Authenticated bool
	ConnectedAt   time.Time
}

// Registry tracks live client connections up to a fixed capacity.
// A single mutex guards the slice; removal preserves insertion order.
type Registry struct {
	mu       sync.Mutex
	capacity int
	clients  []*Client
}

// NewRegistry creates a registry that holds at most capacity clients.
func NewRegistry(capacity int) *Registry {
	return &Registry{
		capacity: capacity,
		clients:  make([]*Client, 0, capacity),
	}
}

// Add registers a connection. It fails with ErrServerFull at capacity.
func (r *Registry) Add(conn net.Conn) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.clients) >= r.capacity {
		return nil, ErrServerFull
	}
	c := &Client{Conn: conn, ConnectedAt: time.Now()}
	r.clients = append(r.clients, c)
	return c, nil
}

// Remove drops a client from the registry. Unknown clients are ignored.
func (r *Registry) Remove(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cur := range r.clients {
		if cur == c {
			r.clients = append(r.clients[:i], r.clients[i+1:]...)
			return
		}
	}
}

// Authenticate attaches a verified identity to the client.
func (r *Registry) Authenticate(c *Client, userID int64, username string, role model.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.UserID = userID
	c.Username = username
	c.Role = role
	c.Authenticated = true
}

// Len returns the current number of tracked connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Capacity returns the maximum number of tracked connections.
func (r *Registry) Capacity() int {
	return r.capacity
}

// Snapshot returns a copy of the current client list in insertion order.
func (r *Registry) Snapshot() []Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Client, len(r.clients))
	for i, c := range r.clients {
		out[i] = *c
	}
	return out
}
