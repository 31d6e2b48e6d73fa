// Package app sequences the compaction pipeline and owns its resources.
package app

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ambiance/internal/core/config"
	"ambiance/internal/core/errors"
	"ambiance/internal/core/ports"
	"ambiance/internal/data/history"
	"ambiance/internal/engine/dedup"
	"ambiance/internal/engine/discovery"
	"ambiance/internal/engine/parser"
	"ambiance/internal/engine/pruner"
	"ambiance/internal/engine/relevance"
	"ambiance/internal/engine/secrets"
	"ambiance/internal/engine/summarizer"
	"ambiance/internal/shared/observability"
	"ambiance/internal/shared/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// Dependencies are the collaborators a Compactor drives. Engine is
// required; Enumerator defaults to the filesystem walker and a nil History
// disables run recording.
type Dependencies struct {
	Engine     ports.SyntaxEngine
	Enumerator ports.FileEnumerator
	History    ports.HistoryRecorder
}

// Compactor turns a project tree into a compacted, deduplicated and
// optionally relevance-filtered digest. It is safe for concurrent use;
// Compact calls are serialized.
type Compactor struct {
	cfg        *config.Config
	engine     ports.SyntaxEngine
	enumerator ports.FileEnumerator
	history    ports.HistoryRecorder
	pruner     *pruner.Pruner
	scorer     *relevance.Scorer
	redactor   *secrets.Detector
	throttle   *util.ReadThrottle

	runMu sync.Mutex

	mu      sync.RWMutex
	state   State
	project *CompactedProject
	symbols map[string]symbolRef

	disposeOnce sync.Once
}

type symbolRef struct {
	sym  *pruner.PrunedSymbol
	file *pruner.PrunedFile
}

// New validates cfg and builds a Compactor backed by tree-sitter, the
// filesystem walker and, when enabled, the SQLite run history. A nil cfg
// uses the defaults.
func New(cfg *config.Config) (*Compactor, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := config.Prepare(cfg); err != nil {
		return nil, err
	}

	engine, err := parser.New(cfg.SupportedLanguages, cfg.MaxConcurrentFiles)
	if err != nil {
		return nil, err
	}
	deps := Dependencies{Engine: engine, Enumerator: discovery.Walker{}}
	if cfg.History.Enabled {
		store, err := history.Open(HistoryPath(cfg))
		if err != nil {
			engine.Close()
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "open run history"), errors.CtxPath, cfg.History.Path)
		}
		deps.History = store
	}
	return NewWithDependencies(cfg, deps)
}

// NewWithDependencies builds a Compactor around injected collaborators.
func NewWithDependencies(cfg *config.Config, deps Dependencies) (*Compactor, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := config.Prepare(cfg); err != nil {
		return nil, err
	}
	if deps.Engine == nil {
		return nil, errors.New(errors.CodeValidationError, "syntax engine is required")
	}
	if deps.Enumerator == nil {
		deps.Enumerator = discovery.Walker{}
	}

	var redactor *secrets.Detector
	if config.Enabled(cfg.Redaction.Enabled, true) {
		patterns := make([]secrets.PatternConfig, 0, len(cfg.Redaction.Patterns))
		for _, p := range cfg.Redaction.Patterns {
			patterns = append(patterns, secrets.PatternConfig{Name: p.Name, Regex: p.Regex, Severity: p.Severity})
		}
		d, err := secrets.NewDetector(secrets.Config{
			EntropyThreshold: cfg.Redaction.EntropyThreshold,
			MinTokenLength:   cfg.Redaction.MinTokenLength,
			DisableEntropy:   !config.Enabled(cfg.Redaction.Entropy, true),
			Patterns:         patterns,
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeValidationError, "invalid redaction patterns")
		}
		redactor = d
	}

	return &Compactor{
		cfg:        cfg,
		engine:     deps.Engine,
		enumerator: deps.Enumerator,
		history:    deps.History,
		pruner: pruner.New(pruner.Options{
			MaxFunctionBodyLines:  cfg.AST.MaxFunctionBodyLines,
			IncludePrivateMethods: config.Enabled(cfg.AST.IncludePrivateMethods, true),
			IncludeComments:       cfg.AST.IncludeComments,
			IncludeDocstrings:     config.Enabled(cfg.IncludeDocstrings, true),
		}),
		scorer:   relevance.NewScorer(),
		redactor: redactor,
		throttle: util.NewReadThrottle(cfg.ReadsPerSecond, cfg.MaxConcurrentFiles),
		state:    StateIdle,
	}, nil
}

// HistoryPath resolves the configured history database against the root.
func HistoryPath(cfg *config.Config) string {
	if filepath.IsAbs(cfg.History.Path) {
		return cfg.History.Path
	}
	return filepath.Join(cfg.Root, cfg.History.Path)
}

func (c *Compactor) Config() *config.Config {
	return c.cfg
}

func (c *Compactor) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Compactor) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateDisposed {
		c.state = s
	}
}

// Project returns the result of the last successful Compact, or nil.
func (c *Compactor) Project() *CompactedProject {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.project
}

// Compact runs the full pipeline over the configured root. Per-file
// failures are reported in the stats; discovery finding nothing is fatal.
// When the configured timeout expires the error carries the statistics
// gathered so far (see StatsFrom).
func (c *Compactor) Compact(ctx context.Context) (*CompactedProject, error) {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if c.State() == StateDisposed {
		return nil, errors.New(errors.CodeNotReady, "compactor is disposed")
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	ctx, span := observability.Tracer().Start(ctx, "Compactor.Compact")
	defer span.End()
	span.SetAttributes(attribute.String("root", c.cfg.Root))

	stats := newStatsAggregator()
	project, err := c.run(ctx, stats)
	if err != nil {
		c.setState(StateFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	c.mu.Lock()
	c.project = project
	c.symbols = indexSymbols(project.Files)
	if c.state != StateDisposed {
		c.state = StateAssembled
	}
	c.mu.Unlock()

	observability.CompressionRatio.Set(project.CompressionRatio)
	span.SetAttributes(
		attribute.Int("files", project.Stats.FilesProcessed),
		attribute.Int("symbols", project.Stats.SymbolsAfterDedup),
		attribute.Float64("compression_ratio", project.CompressionRatio),
	)
	slog.Info("compaction finished",
		"root", project.Root,
		"files", project.Stats.FilesProcessed,
		"symbols", project.Stats.SymbolsAfterDedup,
		"duplicates", project.Stats.DuplicatesRemoved,
		"errors", len(project.Stats.Errors),
		"ratio", project.CompressionRatio,
		"duration", project.Stats.Duration,
	)
	c.recordRun(project)
	return project, nil
}

func (c *Compactor) run(ctx context.Context, stats *statsAggregator) (*CompactedProject, error) {
	files, err := c.discover(ctx, stats)
	if err != nil {
		return nil, err
	}

	results, err := c.parse(ctx, files, stats)
	if err != nil {
		return nil, err
	}

	pruned, originalTokens, err := c.prune(ctx, files, results, stats)
	if err != nil {
		return nil, err
	}

	groups, err := c.deduplicate(ctx, pruned, stats)
	if err != nil {
		return nil, err
	}

	selection, err := c.score(ctx, pruned, stats)
	if err != nil {
		return nil, err
	}

	done := c.enter(ctx, StateSummarizing)
	summary := summarizer.Project(pruned)
	compacted := 0
	for _, f := range pruned {
		compacted += f.TokenCount
	}
	done()

	project := &CompactedProject{
		RunID:            uuid.NewString(),
		Root:             c.cfg.Root,
		Files:            pruned,
		Summary:          summary,
		Stats:            stats.snapshot(),
		OriginalTokens:   originalTokens,
		CompactedTokens:  compacted,
		CompressionRatio: ratio(compacted, originalTokens),
		Groups:           groups,
	}
	if selection != nil {
		project.Selection = selection
		project.Selected = selection.Selected
	}
	return project, nil
}

func ratio(compacted, original int) float64 {
	if original == 0 {
		return 0
	}
	return float64(compacted) / float64(original)
}

// enter moves to stage s and returns a func that closes the stage span and
// records its duration.
func (c *Compactor) enter(ctx context.Context, s State) func() {
	c.setState(s)
	slog.Debug("compaction stage", "stage", s)
	_, span := observability.Tracer().Start(ctx, "compact."+string(s))
	start := time.Now()
	return func() {
		observability.StageDuration.WithLabelValues(string(s)).Observe(time.Since(start).Seconds())
		span.End()
	}
}

// interrupted converts an expired or cancelled context into a fatal error
// carrying the partial statistics.
func interrupted(ctx context.Context, stage State, stats *statsAggregator) error {
	ctxErr := ctx.Err()
	if ctxErr == nil {
		return nil
	}
	var err error
	if stderrors.Is(ctxErr, context.DeadlineExceeded) {
		err = errors.Wrap(ctxErr, errors.CodeTimeout, "compaction timed out")
	} else {
		err = errors.Wrap(ctxErr, errors.CodeInternal, "compaction cancelled")
	}
	err = errors.AddContext(err, errors.CtxStage, string(stage))
	return errors.WithDetail(err, stats.snapshot())
}

// StatsFrom returns the partial statistics attached to an aborted run.
func StatsFrom(err error) (ProcessingStats, bool) {
	detail, ok := errors.DetailOf(err)
	if !ok {
		return ProcessingStats{}, false
	}
	stats, ok := detail.(ProcessingStats)
	return stats, ok
}

func (c *Compactor) discover(ctx context.Context, stats *statsAggregator) ([]discovery.FileInfo, error) {
	done := c.enter(ctx, StateDiscovering)
	defer done()

	files, err := c.enumerator.Discover(ctx, discovery.Options{
		Root:               c.cfg.Root,
		Languages:          c.engine.Languages(),
		Exclude:            c.cfg.Discovery.Exclude,
		MaxFileSize:        c.cfg.MaxFileSize,
		RespectIgnoreFiles: config.Enabled(c.cfg.Discovery.RespectIgnoreFiles, true),
		IncludeTests:       config.Enabled(c.cfg.Discovery.IncludeTests, true),
	})
	if ierr := interrupted(ctx, StateDiscovering, stats); ierr != nil {
		return nil, ierr
	}
	if err != nil {
		return nil, err
	}
	stats.setTotalFiles(len(files))
	slog.Debug("discovered files", "root", c.cfg.Root, "count", len(files))
	return files, nil
}

// parse reads and parses files on a bounded pool. Results are stored by
// index so later stages see discovery order.
func (c *Compactor) parse(ctx context.Context, files []discovery.FileInfo, stats *statsAggregator) ([]*parser.ParseResult, error) {
	done := c.enter(ctx, StateParsing)
	defer done()

	results := make([]*parser.ParseResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.MaxConcurrentFiles)
	for i, fi := range files {
		g.Go(func() error {
			if err := c.throttle.Acquire(gctx); err != nil {
				return err
			}
			content, err := os.ReadFile(fi.AbsPath)
			if err != nil {
				slog.Warn("failed to read file", "path", fi.RelPath, "error", err)
				stats.fileFailed(fi.RelPath, StageRead, err.Error())
				return nil
			}

			res := c.engine.Parse(gctx, fi.RelPath, content)
			for _, msg := range res.Errors {
				stats.fileFailed(fi.RelPath, StageParse, msg)
			}
			if !res.OK() && len(res.Symbols) == 0 {
				slog.Warn("dropping unparsable file", "path", fi.RelPath, "errors", len(res.Errors))
				return nil
			}
			results[i] = res
			stats.fileParsed(len(res.Symbols))
			return nil
		})
	}
	// Workers only return context errors; those are reported below.
	_ = g.Wait()

	if err := interrupted(ctx, StateParsing, stats); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Compactor) prune(ctx context.Context, files []discovery.FileInfo, results []*parser.ParseResult, stats *statsAggregator) ([]*pruner.PrunedFile, int, error) {
	done := c.enter(ctx, StatePruning)
	defer done()

	pruned := make([]*pruner.PrunedFile, 0, len(results))
	original := 0
	for i, res := range results {
		if res == nil {
			continue
		}
		pf := c.pruner.PruneFile(res, files[i].AbsPath)
		original += pf.OriginalTokens
		c.redact(pf, stats)
		pruned = append(pruned, pf)
	}
	c.pruner.LinkFiles(pruned)

	for _, pf := range pruned {
		if dropped := pf.TrimToBudget(c.cfg.MaxTokensPerFile); dropped > 0 {
			slog.Debug("trimmed file to token budget", "path", pf.RelPath, "dropped", dropped, "budget", c.cfg.MaxTokensPerFile)
		}
	}

	if err := interrupted(ctx, StatePruning, stats); err != nil {
		return nil, 0, err
	}
	return pruned, original, nil
}

// redact masks secrets in the compacted text of pf. Token counts are
// recomputed for touched symbols.
func (c *Compactor) redact(pf *pruner.PrunedFile, stats *statsAggregator) {
	if c.redactor == nil {
		return
	}
	var kinds []string
	for _, sym := range pf.Symbols {
		body, inBody := c.redactor.Redact(sym.CompactedBody)
		doc, inDoc := c.redactor.Redact(sym.Docstring)
		if len(inBody)+len(inDoc) == 0 {
			continue
		}
		sym.CompactedBody = body
		sym.Docstring = doc
		sym.Recount()
		for _, f := range append(inBody, inDoc...) {
			kinds = append(kinds, f.Kind)
			slog.Debug("secret redacted", "symbol", sym.ID, "kind", f.Kind, "value", secrets.MaskValue(f.Value))
		}
	}
	if len(kinds) > 0 {
		pf.Recount()
		stats.redacted(kinds)
	}
}

func (c *Compactor) deduplicate(ctx context.Context, files []*pruner.PrunedFile, stats *statsAggregator) ([]dedup.Group, error) {
	done := c.enter(ctx, StateDeduplicating)
	defer done()

	if !config.Enabled(c.cfg.Dedup.Enabled, true) {
		stats.deduplicated(countSymbols(files), 0)
		return nil, nil
	}
	res := dedup.Deduplicate(files, dedup.Options{
		CrossFile:              config.Enabled(c.cfg.Dedup.EnableCrossFileDeduplication, true),
		SignatureDuplicates:    c.cfg.Dedup.SignatureDuplicates,
		PrioritizeExports:      config.Enabled(c.cfg.Dedup.PrioritizeExports, true),
		MaxAnnotationLocations: c.cfg.Dedup.MaxAnnotationLocations,
	})
	stats.deduplicated(res.SymbolsAfter, res.DuplicatesFound)
	slog.Debug("deduplicated symbols", "before", res.SymbolsBefore, "after", res.SymbolsAfter, "groups", len(res.Groups))

	if err := interrupted(ctx, StateDeduplicating, stats); err != nil {
		return nil, err
	}
	return res.Groups, nil
}

// score applies relevance selection when a query, task or hint is
// configured. Files keep only their selected symbols, in source order.
func (c *Compactor) score(ctx context.Context, files []*pruner.PrunedFile, stats *statsAggregator) (*relevance.Selection, error) {
	if !c.cfg.HasRelevanceContext() {
		return nil, nil
	}
	done := c.enter(ctx, StateScoring)
	defer done()

	sel := c.scorer.ScoreAndFilter(files, c.relevanceContext())
	keep := make(map[*pruner.PrunedSymbol]bool, len(sel.Selected))
	for _, s := range sel.Selected {
		keep[s.PrunedSymbol] = true
	}
	for _, f := range files {
		kept := f.Symbols[:0]
		for _, sym := range f.Symbols {
			if keep[sym] {
				kept = append(kept, sym)
			}
		}
		f.Symbols = kept
		f.Recount()
	}
	slog.Debug("selected relevant symbols",
		"selected", len(sel.Selected),
		"considered", sel.Considered,
		"cost", sel.TotalCost,
		"budget", sel.Budget,
	)

	if err := interrupted(ctx, StateScoring, stats); err != nil {
		return nil, err
	}
	return &sel, nil
}

func (c *Compactor) relevanceContext() relevance.Context {
	r := c.cfg.Relevance
	kinds := make([]parser.SymbolKind, 0, len(r.PreferredKinds))
	for _, k := range r.PreferredKinds {
		kinds = append(kinds, parser.SymbolKind(k))
	}
	return relevance.Context{
		Query:          r.Query,
		Task:           relevance.TaskType(r.TaskType),
		FileHints:      r.FileHints,
		SymbolHints:    r.SymbolHints,
		PreferredKinds: kinds,
		MaxTokens:      c.cfg.RelevanceBudget(),
	}
}

func countSymbols(files []*pruner.PrunedFile) int {
	n := 0
	for _, f := range files {
		n += len(f.Symbols)
	}
	return n
}

func indexSymbols(files []*pruner.PrunedFile) map[string]symbolRef {
	out := make(map[string]symbolRef)
	for _, f := range files {
		for _, sym := range f.Symbols {
			out[sym.ID] = symbolRef{sym: sym, file: f}
		}
	}
	return out
}

// recordRun persists project to the run history. Failures are logged.
func (c *Compactor) recordRun(project *CompactedProject) {
	if c.history == nil {
		return
	}
	_, err := c.history.SaveRun(history.Run{
		ID:                project.RunID,
		ProjectKey:        c.cfg.History.ProjectKey,
		Root:              project.Root,
		TotalFiles:        project.Stats.TotalFiles,
		FilesProcessed:    project.Stats.FilesProcessed,
		TotalSymbols:      project.Stats.TotalSymbols,
		SymbolsAfterDedup: project.Stats.SymbolsAfterDedup,
		DuplicatesRemoved: project.Stats.DuplicatesRemoved,
		SecretsRedacted:   project.Stats.SecretsRedacted,
		OriginalTokens:    project.OriginalTokens,
		CompactedTokens:   project.CompactedTokens,
		CompressionRatio:  project.CompressionRatio,
		Duration:          project.Stats.Duration,
		ErrorCount:        len(project.Stats.Errors),
		Query:             c.cfg.Relevance.Query,
		TaskType:          c.cfg.Relevance.TaskType,
	})
	if err != nil {
		slog.Warn("failed to record run history", "run", project.RunID, "error", err)
	}
}

// Dispose releases parser pools and the history store. It is idempotent
// and safe after a failed run; cleanup errors are logged.
func (c *Compactor) Dispose() {
	c.disposeOnce.Do(func() {
		c.mu.Lock()
		c.state = StateDisposed
		c.project = nil
		c.symbols = nil
		c.mu.Unlock()

		freed := c.engine.Close()
		slog.Debug("released parser instances", "count", freed)
		if c.history != nil {
			if err := c.history.Close(); err != nil {
				slog.Warn("failed to close run history", "error", err)
			}
		}
	})
}
