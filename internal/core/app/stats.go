package app

import (
	"sort"
	"sync"
	"time"

	"ambiance/internal/shared/observability"
)

// statsAggregator is the only writer of ProcessingStats during a run.
// Parse workers report through it concurrently.
type statsAggregator struct {
	mu      sync.Mutex
	started time.Time
	stats   ProcessingStats
}

func newStatsAggregator() *statsAggregator {
	return &statsAggregator{started: time.Now()}
}

func (a *statsAggregator) setTotalFiles(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.TotalFiles = n
}

func (a *statsAggregator) fileParsed(symbols int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.FilesProcessed++
	a.stats.TotalSymbols += symbols
	observability.FilesParsedTotal.Inc()
}

func (a *statsAggregator) fileFailed(path, stage, msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.Errors = append(a.stats.Errors, FileError{Path: path, Stage: stage, Message: msg})
	observability.FileErrorsTotal.WithLabelValues(stage).Inc()
}

func (a *statsAggregator) deduplicated(after, removed int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.SymbolsAfterDedup = after
	a.stats.DuplicatesRemoved = removed
	observability.DuplicatesRemovedTotal.Add(float64(removed))
}

func (a *statsAggregator) redacted(kinds []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.SecretsRedacted += len(kinds)
	for _, kind := range kinds {
		observability.SecretsRedactedTotal.WithLabelValues(kind).Inc()
	}
}

// snapshot returns a copy with Duration filled in. Errors are ordered by
// path so parallel workers do not make the output nondeterministic.
func (a *statsAggregator) snapshot() ProcessingStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.stats
	out.Errors = append([]FileError(nil), a.stats.Errors...)
	sort.SliceStable(out.Errors, func(i, j int) bool {
		return out.Errors[i].Path < out.Errors[j].Path
	})
	out.Duration = time.Since(a.started)
	return out
}
