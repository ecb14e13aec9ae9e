package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/revlabs/rev-relay/pkg/gateway/config"
	"github.com/revlabs/rev-relay/pkg/gateway/sessions"
)

type HealthHandler struct{}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

type ReadyHandler struct {
	Config   config.Config
	Registry *sessions.Registry
}

func (h ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type readyResp struct {
		OK             bool     `json:"ok"`
		Production     bool     `json:"production"`
		CredentialSet  bool     `json:"credential_set"`
		ActiveSessions int      `json:"active_sessions"`
		Issues         []string `json:"issues,omitempty"`
	}

	issues := make([]string, 0, 4)

	// A missing key is not fatal at startup, but a production relay cannot
	// serve real sessions without one.
	if h.Config.Production && strings.TrimSpace(h.Config.GeminiAPIKey) == "" {
		issues = append(issues, "production mode enabled but GEMINI_API_KEY is not set")
	}
	if strings.TrimSpace(h.Config.GeminiModel) == "" {
		issues = append(issues, "gemini model must not be empty")
	}
	if h.Config.MaxRetries < 0 {
		issues = append(issues, "max retries must be >= 0")
	}
	if h.Config.RetryBaseDelay <= 0 {
		issues = append(issues, "retry base delay must be > 0")
	}
	if h.Config.DialTimeout <= 0 {
		issues = append(issues, "dial timeout must be > 0")
	}
	if h.Config.WSWriteTimeout <= 0 || h.Config.WSPingInterval <= 0 {
		issues = append(issues, "websocket timeouts must be > 0")
	}

	ok := len(issues) == 0
	status := http.StatusOK
	if !ok {
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(readyResp{
		OK:             ok,
		Production:     h.Config.Production,
		CredentialSet:  strings.TrimSpace(h.Config.GeminiAPIKey) != "",
		ActiveSessions: h.Registry.Count(),
		Issues:         issues,
	})
}
