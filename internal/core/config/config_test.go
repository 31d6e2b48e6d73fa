package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ambiance/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ambiance.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
root = "./src"
max_file_size = 50000
supported_languages = ["TypeScript", "python", "python"]
max_concurrent_files = 4
timeout = "30s"

[ast]
max_function_body_lines = 6
include_private_methods = false

[dedup]
enable_cross_file_deduplication = false
similarity_threshold = 0.9

[relevance]
query = "  auth token  "
task_type = "Debug"
max_tokens = 4000
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "./src", cfg.Root)
	assert.Equal(t, int64(50000), cfg.MaxFileSize)
	assert.Equal(t, []string{"typescript", "python"}, cfg.SupportedLanguages)
	assert.Equal(t, 4, cfg.MaxConcurrentFiles)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 6, cfg.AST.MaxFunctionBodyLines)
	assert.False(t, Enabled(cfg.AST.IncludePrivateMethods, true))
	assert.False(t, Enabled(cfg.Dedup.EnableCrossFileDeduplication, true))
	assert.True(t, Enabled(cfg.Dedup.PrioritizeExports, false))
	assert.Equal(t, 0.9, cfg.Dedup.SimilarityThreshold)
	assert.Equal(t, "auth token", cfg.Relevance.Query)
	assert.Equal(t, "debug", cfg.Relevance.TaskType)
	assert.Equal(t, 4000, cfg.RelevanceBudget())
	assert.True(t, cfg.HasRelevanceContext())
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, ".", cfg.Root)
	assert.Equal(t, int64(DefaultMaxFileSize), cfg.MaxFileSize)
	assert.Equal(t, DefaultLanguages, cfg.SupportedLanguages)
	assert.True(t, Enabled(cfg.IncludeDocstrings, false))
	assert.Equal(t, DefaultMaxConcurrentFiles, cfg.MaxConcurrentFiles)
	assert.Equal(t, DefaultMaxFunctionBodyLines, cfg.AST.MaxFunctionBodyLines)
	assert.True(t, Enabled(cfg.Dedup.EnableCrossFileDeduplication, false))
	assert.Equal(t, DefaultMaxTotalTokens, cfg.RelevanceBudget())
	assert.False(t, cfg.HasRelevanceContext())
	assert.InDelta(t, 1.0, cfg.Dedup.Weights.Name+cfg.Dedup.Weights.Kind+cfg.Dedup.Weights.Body+cfg.Dedup.Weights.Overlap, 1e-9)
	assert.NoError(t, Validate(cfg))
}

func TestValidate_Rejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "negative concurrency", mutate: func(c *Config) { c.MaxConcurrentFiles = -1 }},
		{name: "unknown task", mutate: func(c *Config) { c.Relevance.TaskType = "deploy" }},
		{name: "threshold above one", mutate: func(c *Config) { c.Dedup.SimilarityThreshold = 1.5 }},
		{name: "negative timeout", mutate: func(c *Config) { c.Timeout = -time.Second }},
		{name: "bad exclude glob", mutate: func(c *Config) { c.Discovery.Exclude = []string{"[unterminated"} }},
		{name: "future version", mutate: func(c *Config) { c.Version = 7 }},
		{name: "bad redaction regex", mutate: func(c *Config) {
			c.Redaction.Patterns = []RedactionPattern{{Name: "x", Regex: "("}}
		}},
		{name: "unnamed redaction pattern", mutate: func(c *Config) {
			c.Redaction.Patterns = []RedactionPattern{{Regex: "abc"}}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeValidationError))
		})
	}
}

func TestLoad_Redaction(t *testing.T) {
	path := writeConfig(t, `
[redaction]
entropy = false
min_token_length = 12

[[redaction.patterns]]
name = "internal-token"
regex = "itk_[a-z0-9]{8}"
severity = "high"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, Enabled(cfg.Redaction.Enabled, false))
	assert.False(t, Enabled(cfg.Redaction.Entropy, true))
	assert.Equal(t, 12, cfg.Redaction.MinTokenLength)
	assert.Equal(t, DefaultEntropyThreshold, cfg.Redaction.EntropyThreshold)
	require.Len(t, cfg.Redaction.Patterns, 1)
	assert.Equal(t, "internal-token", cfg.Redaction.Patterns[0].Name)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestPrepare_AppliesDefaultsToPartialConfig(t *testing.T) {
	cfg := &Config{Root: "/tmp/project", MaxConcurrentFiles: 2}
	require.NoError(t, Prepare(cfg))

	assert.Equal(t, 2, cfg.MaxConcurrentFiles)
	assert.Equal(t, DefaultMaxFunctionBodyLines, cfg.AST.MaxFunctionBodyLines)
	assert.NotNil(t, cfg.Dedup.PrioritizeExports)
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ambiance.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
root: ./app
timeout: 45s
ast:
  include_private_methods: false
relevance:
  task_type: Refactor
  symbol_hints: [UserService]
watch:
  debounce: 250ms
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "./app", cfg.Root)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.False(t, Enabled(cfg.AST.IncludePrivateMethods, true))
	assert.Equal(t, "refactor", cfg.Relevance.TaskType)
	assert.Equal(t, []string{"UserService"}, cfg.Relevance.SymbolHints)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, DefaultMaxFunctionBodyLines, cfg.AST.MaxFunctionBodyLines)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ambiance.yml")
	require.NoError(t, os.WriteFile(path, []byte("root: [unclosed\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse yaml config")
}
