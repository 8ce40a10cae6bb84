package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// StartMetricsHTTP starts a lightweight HTTP server that exposes /metrics
// in Prometheus text exposition format. It runs in the background and
// shuts down when the server context is cancelled.
//
// Bind address is :8081 by default, configurable via Config.MetricsAddr.
func (s *Server) StartMetricsHTTP() {
	addr := s.cfg.MetricsAddr
	if addr == "" {
		return // metrics endpoint disabled
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("metrics HTTP listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics HTTP error", "err", err)
		}
	}()

	go func() {
		<-s.ctx.Done()
		_ = srv.Close()
	}()
}

// handleMetrics writes all metrics in Prometheus text exposition format.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	m := s.metrics
	uptime := time.Since(m.startTime).Seconds()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	// Helper for gauge/counter lines.
	// Write errors to http.ResponseWriter are non-actionable; suppress errcheck.
	write := func(name, help, mtype string, value int64) {
		_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		_, _ = fmt.Fprintf(w, "%s %d\n", name, value)
	}
	writeFloat := func(name, help, mtype string, value float64) {
		_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		_, _ = fmt.Fprintf(w, "%s %f\n", name, value)
	}

	writeFloat("hubbergram_uptime_seconds", "Server uptime in seconds.", "gauge", uptime)

	write("hubbergram_connections_active", "Current active client connections.", "gauge",
		m.ActiveConnections.Load())
	write("hubbergram_connections_total", "Lifetime TCP connections accepted.", "counter",
		m.TotalConnections.Load())
	write("hubbergram_connections_rejected_total", "Connections refused at capacity.", "counter",
		m.RejectedConnections.Load())
	write("hubbergram_disconnects_total", "Total client disconnects.", "counter",
		m.TotalDisconnects.Load())

	write("hubbergram_auth_success_total", "Successful login attempts.", "counter",
		m.SuccessfulAuths.Load())
	write("hubbergram_auth_failed_total", "Failed login attempts.", "counter",
		m.FailedAuths.Load())

	write("hubbergram_requests_total", "Parsed requests routed to a handler.", "counter",
		m.RequestsHandled.Load())
	write("hubbergram_discarded_reads_total", "Unparseable input discarded.", "counter",
		m.DiscardedReads.Load())

	write("hubbergram_messages_total", "Messages stored.", "counter",
		m.MessagesSent.Load())
	write("hubbergram_location_updates_total", "Location fixes stored.", "counter",
		m.LocationUpdates.Load())
}
