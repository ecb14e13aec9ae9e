// Command rev-relay runs the voice relay gateway: a WebSocket server that
// bridges browser clients to the Gemini Live API (or a local mock).
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/revlabs/rev-relay/internal/dotenv"
	"github.com/revlabs/rev-relay/pkg/gateway/config"
	gatewayserver "github.com/revlabs/rev-relay/pkg/gateway/server"
	"github.com/revlabs/rev-relay/pkg/store"
)

type relayDeps struct {
	loadConfig   func() (config.Config, error)
	newGateway   func(config.Config, *slog.Logger, store.Recorder) *gatewayserver.Server
	openStore    func(context.Context, string, *slog.Logger) (*store.Postgres, error)
	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)
}

func defaultRelayDeps() relayDeps {
	return relayDeps{
		loadConfig: config.LoadFromEnv,
		newGateway: gatewayserver.New,
		openStore:  store.Open,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildHTTPServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func runRelay(ctx context.Context, logger *slog.Logger, deps relayDeps) error {
	if deps.loadConfig == nil {
		return errors.New("missing loadConfig dependency")
	}
	if deps.newGateway == nil {
		return errors.New("missing newGateway dependency")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Production && cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set, live sessions will fail")
	}

	var recorder store.Recorder = store.NopRecorder{}
	if cfg.DatabaseURL != "" && deps.openStore != nil {
		pg, err := deps.openStore(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return fmt.Errorf("open transcript store: %w", err)
		}
		defer pg.Close()
		recorder = pg
	}

	gw := deps.newGateway(cfg, logger, recorder)
	httpSrv := buildHTTPServer(cfg, gw.Handler())

	mode := "mock"
	if cfg.Production {
		mode = "live"
	}
	logger.Info("starting relay", "addr", cfg.Addr, "mode", mode, "model", cfg.GeminiModel)

	listenErrCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	gw.Drain()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if err := <-listenErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("relay stopped")
	return nil
}

func runMain(ctx context.Context, stderr io.Writer, deps relayDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}

	if err := dotenv.Load(".env"); err != nil {
		fmt.Fprintf(stderr, "rev-relay: %v\n", err)
		return 1
	}

	level := logLevel(os.Getenv("REV_RELAY_LOG_LEVEL"))
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if err := runRelay(ctx, logger, deps); err != nil {
		fmt.Fprintf(stderr, "rev-relay: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultRelayDeps()))
}
