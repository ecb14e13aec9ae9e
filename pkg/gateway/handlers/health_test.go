package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/revlabs/rev-relay/pkg/gateway/config"
	"github.com/revlabs/rev-relay/pkg/gateway/sessions"
)

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthHandler{}.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "ok\n" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestReadyHandler(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.Config
		wantStatus int
		wantOK     bool
	}{
		{
			name:       "mock mode without credentials",
			cfg:        config.Config{Production: false},
			wantStatus: http.StatusOK,
			wantOK:     true,
		},
		{
			name:       "production with credentials",
			cfg:        config.Config{Production: true, GeminiAPIKey: "key"},
			wantStatus: http.StatusOK,
			wantOK:     true,
		},
		{
			name:       "production without credentials",
			cfg:        config.Config{Production: true},
			wantStatus: http.StatusInternalServerError,
			wantOK:     false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h := ReadyHandler{Config: tc.cfg, Registry: sessions.NewRegistry()}
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			var resp struct {
				OK             bool `json:"ok"`
				ActiveSessions int  `json:"active_sessions"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if resp.OK != tc.wantOK {
				t.Fatalf("ok = %v, want %v", resp.OK, tc.wantOK)
			}
			if resp.ActiveSessions != 0 {
				t.Fatalf("active_sessions = %d, want 0", resp.ActiveSessions)
			}
		})
	}
}
