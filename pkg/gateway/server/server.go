// Package server assembles the relay's HTTP surface.
package server

import (
	"log/slog"
	"net/http"

	"github.com/revlabs/rev-relay/pkg/gateway/config"
	"github.com/revlabs/rev-relay/pkg/gateway/handlers"
	"github.com/revlabs/rev-relay/pkg/gateway/mw"
	"github.com/revlabs/rev-relay/pkg/gateway/sessions"
	"github.com/revlabs/rev-relay/pkg/metrics"
	"github.com/revlabs/rev-relay/pkg/store"
	"github.com/revlabs/rev-relay/pkg/upstream"
	"github.com/revlabs/rev-relay/pkg/upstream/gemini"
)

type Server struct {
	cfg      config.Config
	logger   *slog.Logger
	mux      *http.ServeMux
	registry *sessions.Registry
	metrics  *metrics.Metrics
	recorder store.Recorder
	cache    *gemini.SetupCache
}

func New(cfg config.Config, logger *slog.Logger, recorder store.Recorder) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = store.NopRecorder{}
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		mux:      http.NewServeMux(),
		registry: sessions.NewRegistry(),
		metrics:  metrics.New(""),
		recorder: recorder,
		cache:    gemini.NewSetupCache(),
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("/healthz", handlers.HealthHandler{})
	s.mux.Handle("/readyz", handlers.ReadyHandler{Config: s.cfg, Registry: s.registry})
	s.mux.Handle("/metrics", s.metrics.Handler())

	s.mux.Handle("/ws", handlers.ClientHandler{
		Config:     s.cfg,
		Logger:     s.logger,
		Registry:   s.registry,
		Metrics:    s.metrics,
		Recorder:   s.recorder,
		NewSession: s.newSession,
	})
}

// newSession selects the mock or live upstream session per the production
// flag.
func (s *Server) newSession(clientID string, sink upstream.EventSink) upstream.Session {
	if !s.cfg.Production {
		return gemini.NewMockSession(clientID, s.logger, s.metrics, sink)
	}
	return gemini.NewSession(clientID, gemini.Config{
		APIKey:            s.cfg.GeminiAPIKey,
		Model:             s.cfg.GeminiModel,
		SystemInstruction: s.cfg.SystemInstructions,
		Endpoint:          s.cfg.GeminiEndpoint,
		MaxRetries:        s.cfg.MaxRetries,
		RetryBaseDelay:    s.cfg.RetryBaseDelay,
		DialTimeout:       s.cfg.DialTimeout,
		Logger:            s.logger,
		Metrics:           s.metrics,
	}, s.cache, sink)
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.CORS(s.cfg, h)
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}

// Registry exposes the session registry for shutdown draining.
func (s *Server) Registry() *sessions.Registry {
	return s.registry
}

// Drain disconnects every live session exactly once.
func (s *Server) Drain() {
	n := s.registry.DisconnectAll()
	if n > 0 {
		s.logger.Info("disconnected active sessions", "count", n)
	}
}
