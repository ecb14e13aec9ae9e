// Package metrics exposes Prometheus instrumentation for the relay.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the relay.
type Metrics struct {
	registry *prometheus.Registry

	// Session metrics
	SessionsActive  prometheus.Gauge
	SessionsTotal   *prometheus.CounterVec
	SessionErrors   prometheus.Counter

	// Upstream metrics
	UpstreamReconnects prometheus.Counter
	UpstreamCloses     *prometheus.CounterVec

	// Client transport metrics
	ClientFramesTotal *prometheus.CounterVec
	AudioBytesTotal   *prometheus.CounterVec
}

// New creates a Metrics instance with all metrics registered on a private
// registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "rev_relay"
	}

	registry := prometheus.NewRegistry()

	sessionsActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of active relay sessions",
		},
	)

	sessionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of relay sessions started",
		},
		[]string{"mode"},
	)

	sessionErrors := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_errors_total",
			Help:      "Total number of session_error events emitted",
		},
	)

	upstreamReconnects := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_reconnects_total",
			Help:      "Total number of scheduled upstream reconnect attempts",
		},
	)

	upstreamCloses := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_closes_total",
			Help:      "Total number of upstream connection closes",
		},
		[]string{"class"},
	)

	clientFramesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "client_frames_total",
			Help:      "Total number of inbound client frames",
		},
		[]string{"type"},
	)

	audioBytesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_total",
			Help:      "Total base64 audio bytes relayed",
		},
		[]string{"direction"},
	)

	registry.MustRegister(
		sessionsActive,
		sessionsTotal,
		sessionErrors,
		upstreamReconnects,
		upstreamCloses,
		clientFramesTotal,
		audioBytesTotal,
	)

	return &Metrics{
		registry:           registry,
		SessionsActive:     sessionsActive,
		SessionsTotal:      sessionsTotal,
		SessionErrors:      sessionErrors,
		UpstreamReconnects: upstreamReconnects,
		UpstreamCloses:     upstreamCloses,
		ClientFramesTotal:  clientFramesTotal,
		AudioBytesTotal:    audioBytesTotal,
	}
}

// Handler returns an HTTP handler serving the relay registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordSessionStart records a new session starting in the given mode
// ("live" or "mock").
func (m *Metrics) RecordSessionStart(mode string) {
	if m == nil {
		return
	}
	m.SessionsActive.Inc()
	m.SessionsTotal.WithLabelValues(mode).Inc()
}

// RecordSessionEnd records a session ending.
func (m *Metrics) RecordSessionEnd() {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
}

// RecordSessionError records a session_error event.
func (m *Metrics) RecordSessionError() {
	if m == nil {
		return
	}
	m.SessionErrors.Inc()
}

// RecordReconnect records a scheduled upstream reconnect attempt.
func (m *Metrics) RecordReconnect() {
	if m == nil {
		return
	}
	m.UpstreamReconnects.Inc()
}

// RecordUpstreamClose records an upstream close by classification
// ("normal", "transient" or "terminal").
func (m *Metrics) RecordUpstreamClose(class string) {
	if m == nil {
		return
	}
	m.UpstreamCloses.WithLabelValues(class).Inc()
}

// RecordClientFrame records one inbound client frame by type.
func (m *Metrics) RecordClientFrame(frameType string) {
	if m == nil {
		return
	}
	m.ClientFramesTotal.WithLabelValues(frameType).Inc()
}

// RecordAudioBytes records relayed audio payload size by direction
// ("upstream" or "downstream").
func (m *Metrics) RecordAudioBytes(direction string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.AudioBytesTotal.WithLabelValues(direction).Add(float64(n))
}
