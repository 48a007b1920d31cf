// ABOUTME: Gateway orchestrator wiring config, store, auth, upstream, and HTTP routes
// ABOUTME: Manages listener setup, graceful shutdown, and health endpoints

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"tailscale.com/tsnet"

	"github.com/2389/mission-gateway/internal/auth"
	"github.com/2389/mission-gateway/internal/config"
	"github.com/2389/mission-gateway/internal/store"
	"github.com/2389/mission-gateway/internal/telemetry"
	"github.com/2389/mission-gateway/internal/upstream"
)

// Gateway orchestrates the mission-gateway server components: the control
// plane CRUD API, the streaming execution endpoint, and health checks.
type Gateway struct {
	config      *config.Config
	store       store.Store
	resolver    auth.Resolver
	upstream    *upstream.Client
	telemetry   telemetry.Sink
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger

	// serverID identifies this gateway instance
	serverID string

	// storeSink is retained for drain-on-shutdown when telemetry journaling
	// is enabled; nil otherwise.
	storeSink *telemetry.StoreSink
}

// initStore creates and returns a store based on config and environment.
func initStore(cfg *config.Config) (store.Store, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("MISSION_DB_PATH"); envPath != "" {
		dbPath = envPath
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// newResolver builds the auth resolver selected by config.
func newResolver(cfg *config.Config) (auth.Resolver, error) {
	switch cfg.Auth.Mode {
	case "", "jwt":
		return auth.NewJWTResolver([]byte(cfg.Auth.JWTSecret)), nil
	case "remote":
		return auth.NewRemoteResolver(cfg.Auth.ProviderURL), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Auth.Mode)
	}
}

// New creates a new Gateway instance with the given configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	s, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	resolver, err := newResolver(cfg)
	if err != nil {
		return nil, err
	}

	gw := &Gateway{
		config:   cfg,
		store:    s,
		resolver: resolver,
		upstream: upstream.New(cfg.Upstream.BaseURL, cfg.Upstream.ConnectTimeout),
		logger:   logger.With("component", "gateway"),
		serverID: generateServerID(),
	}

	if cfg.Telemetry.Enabled {
		sink := telemetry.NewStoreSink(s, logger)
		gw.telemetry = sink
		gw.storeSink = sink
	} else {
		gw.telemetry = telemetry.NopSink{}
	}

	mux := http.NewServeMux()
	gw.registerRoutes(mux)

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// registerRoutes attaches all HTTP routes to the mux. Health endpoints are
// unauthenticated; every /api route requires a resolvable bearer token. The
// execute endpoint authenticates inside the handler so it can order
// validation before auth and attach incident IDs to refusals.
func (g *Gateway) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/health/ready", g.handleReady)

	mux.HandleFunc("/api/missions/execute", g.handleExecuteMission)

	authMiddleware := auth.HTTPAuthMiddleware(g.resolver)
	mux.Handle("/api/missions", authMiddleware(http.HandlerFunc(g.handleMissions)))
	mux.Handle("/api/missions/", authMiddleware(http.HandlerFunc(g.handleMissionRoutes)))
	mux.Handle("/api/plays", authMiddleware(http.HandlerFunc(g.handleCreatePlay)))
	mux.Handle("/api/safeguards", authMiddleware(http.HandlerFunc(g.handleSafeguards)))
	mux.Handle("/api/feedback", authMiddleware(http.HandlerFunc(g.handleCreateFeedback)))
}

// setupTCPListener creates the standard TCP listener for HTTP.
func (g *Gateway) setupTCPListener() (net.Listener, error) {
	g.logger.Info("starting gateway", "http_addr", g.config.Server.HTTPAddr)

	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	return ln, nil
}

// setupListener creates a listener based on configuration (Tailscale or TCP).
func (g *Gateway) setupListener(ctx context.Context) (net.Listener, error) {
	if g.config.Tailscale.Enabled {
		if g.config.Server.HTTPAddr != "" {
			g.logger.Warn("server.http_addr is ignored when tailscale is enabled",
				"http_addr", g.config.Server.HTTPAddr)
		}
		return g.setupTailscaleListener(ctx)
	}
	return g.setupTCPListener()
}

// Run starts the gateway server and blocks until the context is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := g.setupListener(ctx)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String(), "server_id", g.serverID)
		if err := g.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is
// already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown gracefully stops the gateway and releases resources. In-flight
// streaming sessions observe their request contexts being canceled and run
// their own cleanup before the HTTP server finishes draining.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))

	if g.tsnetServer != nil {
		errs = appendCloseError(errs, "tailscale shutdown", g.tsnetServer.Close())
	}

	if g.storeSink != nil {
		g.storeSink.Close()
	}
	errs = appendCloseError(errs, "store close", g.store.Close())

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK once the control-plane store answers queries.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := g.store.ListTelemetry(r.Context(), "readiness-probe", 1); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// generateServerID creates a unique identifier for this gateway instance.
func generateServerID() string {
	return fmt.Sprintf("mission-gateway-%d", time.Now().UnixNano()%1000000)
}
