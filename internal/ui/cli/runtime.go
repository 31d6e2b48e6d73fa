package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ambiance/internal/core/app"
	"ambiance/internal/core/config"
	"ambiance/internal/shared/observability"
	"ambiance/internal/shared/util"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

// projectFlags are shared by every command that compacts a tree.
type projectFlags struct {
	root      string
	query     string
	task      string
	maxTokens int
	history   bool
}

func (pf *projectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&pf.root, "root", "", "Project root (overrides config)")
	cmd.Flags().StringVar(&pf.query, "query", "", "Keep only symbols relevant to this query")
	cmd.Flags().StringVar(&pf.task, "task", "", "Task type steering relevance ("+strings.Join(config.TaskTypes, ", ")+")")
	cmd.Flags().IntVar(&pf.maxTokens, "max-tokens", 0, "Token budget for relevance selection")
	cmd.Flags().BoolVar(&pf.history, "history", false, "Record this run in the local history database")
}

// apply overlays flags and an optional positional root onto cfg.
func (pf *projectFlags) apply(cfg *config.Config, root string) {
	switch {
	case strings.TrimSpace(root) != "":
		cfg.Root = root
	case strings.TrimSpace(pf.root) != "":
		cfg.Root = pf.root
	}
	if pf.query != "" {
		cfg.Relevance.Query = pf.query
	}
	if pf.task != "" {
		cfg.Relevance.TaskType = pf.task
	}
	if pf.maxTokens > 0 {
		cfg.Relevance.MaxTokens = pf.maxTokens
	}
	if pf.history {
		cfg.History.Enabled = true
	}
}

// session owns the compactor and the optional tracing and metrics
// endpoints for one command invocation.
type session struct {
	cfg       *config.Config
	compactor *app.Compactor
	shutdown  []func(context.Context) error
}

func (rt *runtime) openSession(ctx context.Context, cfg *config.Config, serveMetrics bool) (*session, error) {
	s := &session{cfg: cfg}

	if endpoint := strings.TrimSpace(cfg.Observability.OTLPEndpoint); endpoint != "" {
		stop, err := observability.InitTracing(ctx, endpoint, cfg.Observability.OTLPInsecure)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		s.shutdown = append(s.shutdown, stop)
	}

	compactor, err := initializeCompactor(cfg, rt.factory)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.compactor = compactor

	if addr := strings.TrimSpace(cfg.Observability.MetricsAddress); serveMetrics && addr != "" {
		srv := NewObservabilityServer(addr, compactor)
		if err := srv.Start(ctx); err != nil {
			s.Close()
			return nil, err
		}
		s.shutdown = append(s.shutdown, srv.Stop)
	}
	return s, nil
}

func (s *session) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for i := len(s.shutdown) - 1; i >= 0; i-- {
		if err := s.shutdown[i](ctx); err != nil {
			slog.Warn("shutdown failed", "error", err)
		}
	}
	if s.compactor != nil {
		s.compactor.Dispose()
	}
}

// compact runs one compaction and logs its outcome. Partial statistics of a
// failed run are logged before the error is returned.
func (s *session) compact(ctx context.Context) (*app.CompactedProject, error) {
	project, err := s.compactor.Compact(ctx)
	if err != nil {
		if stats, ok := app.StatsFrom(err); ok {
			slog.Warn("compaction aborted",
				"files_processed", stats.FilesProcessed,
				"total_files", stats.TotalFiles,
				"errors", len(stats.Errors),
			)
		}
		return nil, err
	}
	for _, fe := range project.Stats.Errors {
		slog.Warn("file skipped", "path", fe.Path, "stage", fe.Stage, "error", fe.Message)
	}
	return project, nil
}

func writeBytes(path string, data []byte) error {
	return util.WriteFileAtomic(path, data, 0o644)
}

func parseSince(value string) (time.Time, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return time.Time{}, nil
	}

	rfc3339, err := time.Parse(time.RFC3339, raw)
	if err == nil {
		return rfc3339.UTC(), nil
	}

	dateOnly, err := time.Parse("2006-01-02", raw)
	if err == nil {
		return dateOnly.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("--since must be RFC3339 or YYYY-MM-DD, got %q", value)
}

func parseHistoryWindow(value string) (time.Duration, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("--window must be a Go duration (example: 24h), got %q", value)
	}
	if d <= 0 {
		return 0, fmt.Errorf("--window must be > 0, got %q", value)
	}
	return d, nil
}
