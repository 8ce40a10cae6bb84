// Package server implements the Hubbergram messaging server.
package server

import (
	"context"
	"net"
	"time"

	"github.com/codehubbers/hubbergram/pkg/datastore"
	"github.com/codehubbers/hubbergram/pkg/session"
)

// Dependencies holds external dependencies for the server.
// Server assumes ownership of Store and will Close() it on shutdown.
type Dependencies struct {
	Store datastore.DataProviderFactory
}

// Server accepts client connections and serves the messaging API.
type Server struct {
	cfg      Config
	store    datastore.DataProviderFactory
	registry *Registry
	codec    *session.Codec
	metrics  *Metrics
	router   *router
	listener net.Listener
	now      func() time.Time
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a new Server instance.
func New(cfg Config, deps Dependencies) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:      cfg,
		store:    deps.Store,
		registry: NewRegistry(cfg.MaxConnections),
		codec:    session.NewCodec(),
		metrics:  NewMetrics(),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
	s.router = newRouter(s)
	return s
}

// Registry returns the connection registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Metrics returns the server metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}
