// Package config loads relay configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultSystemInstructions is the Rev persona sent in the upstream setup
// handshake when no override is configured.
const DefaultSystemInstructions = `You are Rev, the AI assistant for Revolt Motors, India's leading electric motorcycle company.

About Revolt Motors:
- Founded to revolutionize urban mobility with electric motorcycles
- Offers eco-friendly, high-performance electric bikes
- Key models include RV400 and RV1+ with impressive range and speed
- Features like removable batteries, mobile app connectivity, and artificial exhaust sounds
- Booking available for just ₹499
- Focus on sustainability and reducing carbon footprint
- Strong presence across India with service centers and charging infrastructure

Your role:
- Help users learn about Revolt Motors' electric motorcycles
- Assist with product information, specifications, and features
- Guide users through the booking process
- Answer questions about electric mobility, sustainability, and benefits
- Maintain an enthusiastic, knowledgeable, and helpful tone
- Keep responses conversational and engaging
- If asked about topics outside Revolt Motors, politely redirect the conversation back to electric motorcycles and Revolt Motors

Always stay in character as Rev, the Revolt Motors assistant, and focus on helping users discover the future of electric mobility.`

type Config struct {
	Addr string

	// GeminiAPIKey may be empty: sessions then fail individually with a
	// missing-credential error instead of the process refusing to start.
	GeminiAPIKey string
	GeminiModel  string

	// GeminiEndpoint overrides the upstream WebSocket URL, key excluded.
	// Empty means the production endpoint.
	GeminiEndpoint string

	SystemInstructions string

	// Production selects the live upstream session; otherwise every client
	// gets a mock session.
	Production bool

	MaxRetries     int
	RetryBaseDelay time.Duration
	DialTimeout    time.Duration

	// Client WebSocket keepalive.
	WSWriteTimeout time.Duration
	WSPingInterval time.Duration

	// CORS
	CORSAllowedOrigins map[string]struct{} // empty => allow all, matching the source deployment

	// DatabaseURL enables the Postgres transcript store when set.
	DatabaseURL string

	LogLevel string

	ReadHeaderTimeout   time.Duration
	ShutdownGracePeriod time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                listenAddr(),
		GeminiAPIKey:        strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:         envOr("GEMINI_MODEL", "gemini-2.5-flash-preview-native-audio-dialog"),
		GeminiEndpoint:      strings.TrimSpace(os.Getenv("REV_RELAY_GEMINI_ENDPOINT")),
		SystemInstructions:  envOr("REV_RELAY_SYSTEM_INSTRUCTIONS", DefaultSystemInstructions),
		Production:          envBoolOr("REV_RELAY_PRODUCTION", os.Getenv("NODE_ENV") == "production"),
		MaxRetries:          envIntOr("REV_RELAY_MAX_RETRIES", 3),
		RetryBaseDelay:      envDurationOr("REV_RELAY_RETRY_BASE_DELAY", 30*time.Second),
		DialTimeout:         envDurationOr("REV_RELAY_DIAL_TIMEOUT", 15*time.Second),
		WSWriteTimeout:      envDurationOr("REV_RELAY_WS_WRITE_TIMEOUT", 10*time.Second),
		WSPingInterval:      envDurationOr("REV_RELAY_WS_PING_INTERVAL", 20*time.Second),
		CORSAllowedOrigins:  make(map[string]struct{}),
		DatabaseURL:         strings.TrimSpace(os.Getenv("REV_RELAY_DATABASE_URL")),
		LogLevel:            envOr("REV_RELAY_LOG_LEVEL", "info"),
		ReadHeaderTimeout:   envDurationOr("REV_RELAY_READ_HEADER_TIMEOUT", 10*time.Second),
		ShutdownGracePeriod: envDurationOr("REV_RELAY_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}

	for _, origin := range splitCSV(os.Getenv("REV_RELAY_CORS_ORIGINS")) {
		cfg.CORSAllowedOrigins[origin] = struct{}{}
	}

	if strings.TrimSpace(cfg.GeminiModel) == "" {
		return Config{}, fmt.Errorf("GEMINI_MODEL must not be empty")
	}
	if strings.TrimSpace(cfg.SystemInstructions) == "" {
		return Config{}, fmt.Errorf("REV_RELAY_SYSTEM_INSTRUCTIONS must not be empty")
	}
	if cfg.MaxRetries < 0 {
		return Config{}, fmt.Errorf("REV_RELAY_MAX_RETRIES must be >= 0")
	}
	if cfg.RetryBaseDelay <= 0 {
		return Config{}, fmt.Errorf("REV_RELAY_RETRY_BASE_DELAY must be > 0")
	}
	if cfg.DialTimeout <= 0 {
		return Config{}, fmt.Errorf("REV_RELAY_DIAL_TIMEOUT must be > 0")
	}
	if cfg.WSWriteTimeout <= 0 {
		return Config{}, fmt.Errorf("REV_RELAY_WS_WRITE_TIMEOUT must be > 0")
	}
	if cfg.WSPingInterval <= 0 {
		return Config{}, fmt.Errorf("REV_RELAY_WS_PING_INTERVAL must be > 0")
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("REV_RELAY_LOG_LEVEL must be one of debug|info|warn|error")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("REV_RELAY_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("REV_RELAY_SHUTDOWN_GRACE_PERIOD must be > 0")
	}

	return cfg, nil
}

// listenAddr honors REV_RELAY_ADDR, then the bare PORT convention of the
// original deployment, then the default port.
func listenAddr() string {
	if addr := strings.TrimSpace(os.Getenv("REV_RELAY_ADDR")); addr != "" {
		return addr
	}
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		return ":" + port
	}
	return ":3000"
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envBoolOr(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	switch strings.ToLower(raw) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
