package cli

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"ambiance/internal/core/app"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type healthStatus struct {
	Status string `json:"status"`
	State  string `json:"state"`
}

// ObservabilityServer exposes Prometheus metrics and the compactor state
// while a long-running command is active.
type ObservabilityServer struct {
	addr      string
	compactor *app.Compactor
	server    *http.Server
}

func NewObservabilityServer(addr string, compactor *app.Compactor) *ObservabilityServer {
	return &ObservabilityServer{
		addr:      addr,
		compactor: compactor,
	}
}

func (s *ObservabilityServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		state := s.compactor.State()
		status := healthStatus{Status: "up", State: string(state)}
		if state == app.StateFailed || state == app.StateDisposed {
			status.Status = "down"
		}
		w.Header().Set("Content-Type", "application/json")
		if status.Status != "up" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			slog.Debug("failed to write health response", "error", err)
		}
	})
	return mux
}

func (s *ObservabilityServer) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	slog.Info("observability server starting", "addr", s.addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("observability server failed", "error", err)
		}
	}()

	return nil
}

func (s *ObservabilityServer) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
