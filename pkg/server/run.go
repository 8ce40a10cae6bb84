package server

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codehubbers/hubbergram/pkg/model"
)

// Run starts the server and blocks until shutdown signal.
func (s *Server) Run() error {
	if err := s.Start(); err != nil {
		return err
	}

	// Start Prometheus metrics HTTP endpoint
	s.StartMetricsHTTP()

	// Start periodic metrics logging (every 60s)
	s.metrics.StartPeriodicLog(60*time.Second, s.ctx.Done())

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")
	s.Shutdown()
	return nil
}

// Start binds the listener and launches the accept loop without blocking.
func (s *Server) Start() error {
	if s.store == nil {
		return fmt.Errorf("server: missing store dependency")
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	if err := s.ensureAdminUser(); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	s.listener = ln

	slog.Info("hubbergram server running",
		"addr", ln.Addr().String(),
		"max_connections", s.cfg.MaxConnections,
	)

	go s.acceptLoop(ln)
	return nil
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				slog.Error("accept error", "err", err)
				continue
			}
		}

		s.metrics.TotalConnections.Add(1)

		client, err := s.registry.Add(conn)
		if err != nil {
			s.metrics.RejectedConnections.Add(1)
			slog.Warn("connection refused: server full", "remote", conn.RemoteAddr())
			_ = conn.Close()
			continue
		}

		s.metrics.ActiveConnections.Add(1)
		go s.handleConn(client)
	}
}

// Shutdown gracefully stops the server and closes the store.
func (s *Server) Shutdown() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	for _, c := range s.registry.Snapshot() {
		_ = c.Conn.Close()
	}
	if s.store != nil {
		_ = s.store.NonTx().Close()
	}
}

// ensureAdminUser creates the bootstrap administrator only on first run
// (empty user table). The default credentials are logged loudly so the
// operator changes them.
func (s *Server) ensureAdminUser() error {
	st := s.store.NonTx()
	has, err := st.HasUsers()
	if err != nil {
		return fmt.Errorf("server: check users: %w", err)
	}
	if has {
		return nil
	}

	id, err := st.CreateUser(s.cfg.AdminUsername, s.cfg.AdminEmail, s.cfg.AdminPassword, model.RoleAdmin)
	if err != nil {
		return fmt.Errorf("server: create admin user: %w", err)
	}

	slog.Info("========================================")
	slog.Info("DEFAULT ADMIN ACCOUNT CREATED (change the password!)",
		"username", s.cfg.AdminUsername, "user_id", id)
	slog.Info("========================================")
	return nil
}
