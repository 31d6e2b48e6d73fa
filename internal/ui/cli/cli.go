// Package cli implements the ambiance command line.
package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"ambiance/internal/core/config"
	"ambiance/internal/core/errors"

	"github.com/spf13/cobra"
)

const versionString = "1.0.0"
const defaultConfigPath = "./ambiance.toml"

// Exit codes returned by Run.
const (
	exitOK          = 0
	exitFailure     = 1
	exitNoFiles     = 2
	exitTimeout     = 3
	exitInvalidArgs = 64
)

type rootOptions struct {
	configPath string
	verbose    bool
}

type runtime struct {
	opts    rootOptions
	factory compactorFactory
	stdout  io.Writer
	stderr  io.Writer
}

// Run executes the command line in args and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand(&runtime{factory: coreCompactorFactory{}, stdout: stdout, stderr: stderr})
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitCode(err)
	}
	return exitOK
}

func newRootCommand(rt *runtime) *cobra.Command {
	root := &cobra.Command{
		Use:   "ambiance",
		Short: "Compact source trees into token-efficient context",
		Long: `ambiance parses a project with tree-sitter, prunes function bodies,
collapses duplicate code and renders a digest sized for an LLM context window.`,
		Version:       versionString,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(rt.stderr, rt.opts.verbose)
		},
	}
	root.SetOut(rt.stdout)
	root.SetErr(rt.stderr)
	root.SetVersionTemplate("ambiance v{{.Version}}\n")
	root.PersistentFlags().StringVar(&rt.opts.configPath, "config", defaultConfigPath, "Path to config file")
	root.PersistentFlags().BoolVar(&rt.opts.verbose, "verbose", false, "Enable verbose logging")

	root.AddCommand(
		newCompactCommand(rt),
		newSummaryCommand(rt),
		newSymbolCommand(rt),
		newWatchCommand(rt),
		newHistoryCommand(rt),
	)
	return root
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// loadConfig reads the configured file. A missing file at the default path
// falls back to the built-in defaults.
func (rt *runtime) loadConfig() (*config.Config, error) {
	path := strings.TrimSpace(rt.opts.configPath)
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if path == defaultConfigPath && stderrors.Is(err, os.ErrNotExist) {
		slog.Debug("no config file found, using defaults", "path", path)
		return config.Default(), nil
	}
	return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "load config"), errors.CtxPath, path)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.IsNoSupportedFiles(err):
		return exitNoFiles
	case errors.IsTimeout(err):
		return exitTimeout
	case errors.IsCode(err, errors.CodeValidationError):
		return exitInvalidArgs
	default:
		return exitFailure
	}
}
