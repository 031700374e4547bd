package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"go.uber.org/zap"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/planforge/planforge/internal/agent"
	"github.com/planforge/planforge/internal/config"
	"github.com/planforge/planforge/internal/llm/configbuilder"
	"github.com/planforge/planforge/internal/observability"
	agentrpc "github.com/planforge/planforge/internal/rpc/agent"
	"github.com/planforge/planforge/internal/version"
)

// Server hosts the daemon endpoints: health, metrics, and agent chat RPC.
type Server struct {
	cfg     *config.Config
	logger  *zap.Logger
	agent   *agent.Agent
	runner  agentrpc.Runner
	metrics *observability.Metrics
}

// NewServer constructs a daemon instance.
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	registry, err := configbuilder.BuildRegistryFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}

	metrics := observability.NewMetrics()
	agentCore := agent.New(registry, cfg.Agent)
	agentCore.SetMetrics(metrics)
	runner := agentrpc.NewChatRunner(agentCore, logger)

	return &Server{cfg: cfg, logger: logger, agent: agentCore, runner: runner, metrics: metrics}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/metrics", s.metricsHandler)
	mux.Handle("/agent/reset", agentrpc.NewResetHandler(s.agent))

	transport := strings.ToLower(strings.TrimSpace(s.cfg.Server.Transport))
	switch transport {
	case "ndjson":
		mux.Handle("/agent/chat", agentrpc.NewHandler(s.runner, s.metrics))
	default:
		path, handler := agentrpc.NewConnectHandler(s.runner, s.metrics)
		mux.Handle(path, handler)
		// keep the NDJSON path available alongside Connect
		mux.Handle("/agent/chat", agentrpc.NewHandler(s.runner, s.metrics))
	}

	handler := http.Handler(mux)
	if transport != "ndjson" {
		handler = h2c.NewHandler(handler, &http2.Server{})
	}

	server := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting planforge daemon",
			zap.String("addr", s.cfg.Server.Addr),
			zap.String("transport", transport))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down planforge daemon")
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.Server.MetricsEnabled {
		http.NotFound(w, r)
		return
	}

	promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}
