package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"ambiance/internal/core/app"
	"ambiance/internal/core/errors"
	"ambiance/internal/core/ports"
	"ambiance/internal/data/history"
	"ambiance/internal/ui/report"

	"github.com/spf13/cobra"
)

type renderFlags struct {
	format      string
	output      string
	inject      string
	verbosity   string
	projectName string
	toc         bool
}

func (rf *renderFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&rf.format, "format", "markdown", "Output format (markdown, json)")
	cmd.Flags().StringVarP(&rf.output, "output", "o", "", "Write the digest to this file instead of stdout")
	cmd.Flags().StringVar(&rf.inject, "inject", "", "Replace the digest between ambiance markers in <file>:<marker>")
	cmd.Flags().StringVar(&rf.verbosity, "verbosity", "standard", "Digest detail (summary, standard, detailed)")
	cmd.Flags().StringVar(&rf.projectName, "project-name", "", "Project name shown in the digest header")
	cmd.Flags().BoolVar(&rf.toc, "toc", false, "Include a table of contents")
}

func (rf *renderFlags) validate() error {
	switch rf.format {
	case "markdown", "json":
	default:
		return errors.Newf(errors.CodeValidationError, "unsupported format: %s", rf.format)
	}
	if rf.inject != "" {
		if rf.format != "markdown" {
			return errors.New(errors.CodeValidationError, "--inject requires markdown format")
		}
		if _, _, ok := splitInjectTarget(rf.inject); !ok {
			return errors.Newf(errors.CodeValidationError, "--inject must be <file>:<marker>, got %q", rf.inject)
		}
	}
	return nil
}

func splitInjectTarget(raw string) (string, string, bool) {
	idx := strings.LastIndex(raw, ":")
	if idx <= 0 || idx == len(raw)-1 {
		return "", "", false
	}
	return raw[:idx], raw[idx+1:], true
}

func (rf *renderFlags) render(project *app.CompactedProject, root string) ([]byte, error) {
	if rf.format == "json" {
		return report.RenderJSON(project)
	}
	name := rf.projectName
	if name == "" {
		if abs, err := filepath.Abs(root); err == nil {
			name = filepath.Base(abs)
		}
	}
	out, err := report.NewMarkdownGenerator().Generate(project, report.DigestOptions{
		ProjectName:         name,
		Version:             versionString,
		Verbosity:           rf.verbosity,
		TableOfContents:     rf.toc,
		CollapsibleSections: true,
	})
	return []byte(out), err
}

func (rt *runtime) emit(rf *renderFlags, data []byte) error {
	switch {
	case rf.inject != "":
		path, marker, _ := splitInjectTarget(rf.inject)
		return report.InjectDigest(path, marker, string(data))
	case rf.output != "":
		return writeBytes(rf.output, data)
	default:
		_, err := rt.stdout.Write(data)
		return err
	}
}

func newCompactCommand(rt *runtime) *cobra.Command {
	var pf projectFlags
	var rf renderFlags
	cmd := &cobra.Command{
		Use:   "compact [root]",
		Short: "Compact a project into a context digest",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rf.validate(); err != nil {
				return err
			}
			cfg, err := rt.loadConfig()
			if err != nil {
				return err
			}
			pf.apply(cfg, firstArg(args))

			s, err := rt.openSession(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer s.Close()

			project, err := s.compact(cmd.Context())
			if err != nil {
				return err
			}
			data, err := rf.render(project, cfg.Root)
			if err != nil {
				return err
			}
			return rt.emit(&rf, data)
		},
	}
	pf.register(cmd)
	rf.register(cmd)
	return cmd
}

func newSummaryCommand(rt *runtime) *cobra.Command {
	var pf projectFlags
	var format string
	cmd := &cobra.Command{
		Use:   "summary <file>",
		Short: "Describe one file of the compacted project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rt.loadConfig()
			if err != nil {
				return err
			}
			pf.apply(cfg, "")

			s, err := rt.openSession(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := s.compact(cmd.Context()); err != nil {
				return err
			}
			summary, err := s.compactor.GetSummary(args[0])
			if err != nil {
				return err
			}
			out, err := FormatResponse(summary, OutputFormat(format))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(rt.stdout, out)
			return err
		},
	}
	pf.register(cmd)
	cmd.Flags().StringVar(&format, "format", "human", "Output format (json, human)")
	return cmd
}

func newSymbolCommand(rt *runtime) *cobra.Command {
	var pf projectFlags
	var format string
	var similar bool
	var threshold float64
	cmd := &cobra.Command{
		Use:   "symbol <id>",
		Short: "Show a symbol with its relationships and duplicates",
		Long: `Show a compacted symbol by id. Ids have the form <path>#<name>@<line>,
where path is relative to the project root.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rt.loadConfig()
			if err != nil {
				return err
			}
			pf.apply(cfg, "")

			s, err := rt.openSession(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := s.compact(cmd.Context()); err != nil {
				return err
			}
			sc, err := s.compactor.GetContextForSymbol(args[0])
			if err != nil {
				return err
			}
			resp := newSymbolResponse(sc, nil)
			if similar {
				matches, err := s.compactor.FindSimilar(args[0], threshold)
				if err != nil {
					return err
				}
				resp = newSymbolResponse(sc, matches)
			}
			out, err := FormatResponse(resp, OutputFormat(format))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(rt.stdout, out)
			return err
		},
	}
	pf.register(cmd)
	cmd.Flags().StringVar(&format, "format", "human", "Output format (json, human)")
	cmd.Flags().BoolVar(&similar, "similar", false, "Also list similar symbols")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Similarity threshold for --similar (default from config)")
	return cmd
}

func newWatchCommand(rt *runtime) *cobra.Command {
	var pf projectFlags
	var rf renderFlags
	cmd := &cobra.Command{
		Use:   "watch [root]",
		Short: "Recompact whenever source files change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rf.validate(); err != nil {
				return err
			}
			cfg, err := rt.loadConfig()
			if err != nil {
				return err
			}
			pf.apply(cfg, firstArg(args))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := rt.openSession(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer s.Close()

			publish := func(project *app.CompactedProject) {
				data, err := rf.render(project, cfg.Root)
				if err == nil {
					err = rt.emit(&rf, data)
				}
				if err != nil {
					slog.Error("failed to publish digest", "error", err)
					return
				}
				slog.Info("digest updated",
					"run_id", project.RunID,
					"files", project.Stats.FilesProcessed,
					"tokens", project.CompactedTokens,
					"ratio", fmt.Sprintf("%.2f", project.CompressionRatio),
				)
			}

			project, err := s.compact(ctx)
			if err != nil {
				return err
			}
			publish(project)

			return s.compactor.Watch(ctx, func(project *app.CompactedProject, err error) {
				if err != nil {
					if ctx.Err() == nil {
						slog.Error("recompaction failed", "error", err)
					}
					return
				}
				publish(project)
			})
		},
	}
	pf.register(cmd)
	rf.register(cmd)
	return cmd
}

func newHistoryCommand(rt *runtime) *cobra.Command {
	var root, since, window, format, output, projectKey string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Report compaction trends from the run history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rt.loadConfig()
			if err != nil {
				return err
			}
			if root != "" {
				cfg.Root = root
			}
			if projectKey == "" {
				projectKey = cfg.History.ProjectKey
			}
			sinceTime, err := parseSince(since)
			if err != nil {
				return errors.Wrap(err, errors.CodeValidationError, "invalid --since")
			}
			windowDur, err := parseHistoryWindow(window)
			if err != nil {
				return errors.Wrap(err, errors.CodeValidationError, "invalid --window")
			}

			var store ports.RunHistory
			store, err = history.Open(app.HistoryPath(cfg))
			if err != nil {
				return fmt.Errorf("open history store: %w", err)
			}
			defer func() {
				if err := store.Close(); err != nil {
					slog.Warn("failed to close history store", "error", err)
				}
			}()

			runs, err := store.LoadRuns(projectKey, sinceTime)
			if err != nil {
				return err
			}
			trend, err := history.BuildTrendReport(projectKey, runs, windowDur)
			if err != nil {
				return errors.Wrap(err, errors.CodeNotFound, "no history available")
			}

			var data []byte
			switch format {
			case "tsv":
				data, err = report.RenderTrendTSV(trend)
			case "json":
				data, err = report.RenderTrendJSON(trend)
			default:
				return errors.Newf(errors.CodeValidationError, "unsupported format: %s", format)
			}
			if err != nil {
				return err
			}
			if output != "" {
				return writeBytes(output, data)
			}
			_, err = rt.stdout.Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "Project root used to resolve the history path")
	cmd.Flags().StringVar(&since, "since", "", "Only include runs at/after this timestamp (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&window, "window", "24h", "Moving-window duration for averages")
	cmd.Flags().StringVar(&format, "format", "tsv", "Output format (tsv, json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the report to this file")
	cmd.Flags().StringVar(&projectKey, "project-key", "", "History project key (default from config)")
	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
