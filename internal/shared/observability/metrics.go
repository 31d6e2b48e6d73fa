package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ambiance_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ambiance_stage_seconds",
		Help:    "Time spent in each compaction pipeline stage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	FilesParsedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ambiance_files_parsed_total",
		Help: "Total number of files parsed successfully.",
	})

	FileErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ambiance_file_errors_total",
		Help: "Total number of recoverable per-file errors.",
	}, []string{"stage"})

	DuplicatesRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ambiance_duplicates_removed_total",
		Help: "Total number of duplicate symbols collapsed.",
	})

	CompressionRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ambiance_compression_ratio",
		Help: "Compression ratio of the most recent compaction run.",
	})

	ActiveParsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ambiance_active_parsers",
		Help: "Number of tree-sitter parser instances currently leased.",
	})

	SecretsRedactedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ambiance_secrets_redacted_total",
		Help: "Total number of secrets masked in compacted output.",
	}, []string{"kind"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ambiance_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
