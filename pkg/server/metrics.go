package server

import (
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"
)

// Metrics tracks server runtime statistics.
// All counters use atomic operations for lock-free concurrent access.
type Metrics struct {
	startTime time.Time

	// Connection counters
	TotalConnections    atomic.Int64 // lifetime TCP connections accepted
	ActiveConnections   atomic.Int64 // current active connections
	RejectedConnections atomic.Int64 // connections refused at capacity
	TotalDisconnects    atomic.Int64 // total client disconnects (clean + unclean)

	// Auth counters
	SuccessfulAuths atomic.Int64 // successful login attempts
	FailedAuths     atomic.Int64 // failed login attempts

	// Request counters
	RequestsHandled atomic.Int64 // parsed requests routed to a handler
	DiscardedReads  atomic.Int64 // unparseable input discarded

	// API counters
	MessagesSent    atomic.Int64 // messages stored
	LocationUpdates atomic.Int64 // location fixes stored
}

// NewMetrics creates a new Metrics instance with the start time set to now.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
	}
}

// MetricsSnapshot is a point-in-time view of all metrics as a serializable struct.
type MetricsSnapshot struct {
	Uptime        string `json:"uptime"`
	UptimeSeconds int64  `json:"uptime_seconds"`

	ActiveConnections   int64 `json:"active_connections"`
	TotalConnections    int64 `json:"total_connections"`
	RejectedConnections int64 `json:"rejected_connections"`
	TotalDisconnects    int64 `json:"total_disconnects"`

	SuccessfulAuths int64 `json:"successful_auths"`
	FailedAuths     int64 `json:"failed_auths"`

	RequestsHandled int64 `json:"requests_handled"`
	DiscardedReads  int64 `json:"discarded_reads"`

	MessagesSent    int64 `json:"messages_sent"`
	LocationUpdates int64 `json:"location_updates"`
}

// Snapshot returns a read-consistent snapshot of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	uptime := time.Since(m.startTime)
	return MetricsSnapshot{
		Uptime:              uptime.Truncate(time.Second).String(),
		UptimeSeconds:       int64(uptime.Seconds()),
		ActiveConnections:   m.ActiveConnections.Load(),
		TotalConnections:    m.TotalConnections.Load(),
		RejectedConnections: m.RejectedConnections.Load(),
		TotalDisconnects:    m.TotalDisconnects.Load(),
		SuccessfulAuths:     m.SuccessfulAuths.Load(),
		FailedAuths:         m.FailedAuths.Load(),
		RequestsHandled:     m.RequestsHandled.Load(),
		DiscardedReads:      m.DiscardedReads.Load(),
		MessagesSent:        m.MessagesSent.Load(),
		LocationUpdates:     m.LocationUpdates.Load(),
	}
}

// JSON returns the metrics snapshot as a JSON string.
func (m *Metrics) JSON() string {
	data, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// LogSummary writes a periodic metrics summary to the logger.
func (m *Metrics) LogSummary() {
	s := m.Snapshot()
	slog.Info("metrics",
		"uptime", s.Uptime,
		"connections", s.ActiveConnections,
		"total_connections", s.TotalConnections,
		"rejected", s.RejectedConnections,
		"requests", s.RequestsHandled,
		"messages", s.MessagesSent,
		"location_updates", s.LocationUpdates,
	)
}

// StartPeriodicLog starts a goroutine that logs metrics every interval.
// It stops when the done channel is closed.
func (m *Metrics) StartPeriodicLog(interval time.Duration, done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				m.LogSummary()
			}
		}
	}()
}
