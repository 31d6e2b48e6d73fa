package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxFileSize          = 100_000
	DefaultMaxTokensPerFile     = 2_000
	DefaultMaxTotalTokens       = 20_000
	DefaultMaxConcurrentFiles   = 10
	DefaultMaxFunctionBodyLines = 10
	DefaultSimilarityThreshold  = 0.8
	DefaultAnnotationLocations  = 5
	DefaultEntropyThreshold     = 4.5
	DefaultMinSecretLength      = 20
)

// DefaultLanguages are enabled when supported_languages is empty.
var DefaultLanguages = []string{"typescript", "tsx", "javascript", "python", "go", "java", "rust"}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads a TOML config, or YAML when the file ends in .yaml or .yml.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := decode(path, data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse yaml config: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("parse toml config: %w", err)
		}
	}
	return nil
}

// Prepare applies defaults and normalization to a programmatically built
// config and validates it. Load calls the same steps.
func Prepare(cfg *Config) error {
	applyDefaults(cfg)
	normalize(cfg)
	return Validate(cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if strings.TrimSpace(cfg.Root) == "" {
		cfg.Root = "."
	}
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if len(cfg.SupportedLanguages) == 0 {
		cfg.SupportedLanguages = append([]string(nil), DefaultLanguages...)
	}
	if cfg.IncludeDocstrings == nil {
		cfg.IncludeDocstrings = boolPtr(true)
	}
	if cfg.MaxTokensPerFile == 0 {
		cfg.MaxTokensPerFile = DefaultMaxTokensPerFile
	}
	if cfg.MaxTotalTokens == 0 {
		cfg.MaxTotalTokens = DefaultMaxTotalTokens
	}
	if cfg.MaxConcurrentFiles == 0 {
		cfg.MaxConcurrentFiles = DefaultMaxConcurrentFiles
	}

	if cfg.Discovery.RespectIgnoreFiles == nil {
		cfg.Discovery.RespectIgnoreFiles = boolPtr(true)
	}
	if cfg.Discovery.IncludeTests == nil {
		cfg.Discovery.IncludeTests = boolPtr(true)
	}

	if cfg.AST.MaxFunctionBodyLines == 0 {
		cfg.AST.MaxFunctionBodyLines = DefaultMaxFunctionBodyLines
	}
	if cfg.AST.IncludePrivateMethods == nil {
		cfg.AST.IncludePrivateMethods = boolPtr(true)
	}

	if cfg.Dedup.Enabled == nil {
		cfg.Dedup.Enabled = boolPtr(true)
	}
	if cfg.Dedup.EnableCrossFileDeduplication == nil {
		cfg.Dedup.EnableCrossFileDeduplication = boolPtr(true)
	}
	if cfg.Dedup.PrioritizeExports == nil {
		cfg.Dedup.PrioritizeExports = boolPtr(true)
	}
	if cfg.Dedup.SimilarityThreshold == 0 {
		cfg.Dedup.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if cfg.Dedup.MaxAnnotationLocations == 0 {
		cfg.Dedup.MaxAnnotationLocations = DefaultAnnotationLocations
	}
	w := &cfg.Dedup.Weights
	if w.Name == 0 && w.Kind == 0 && w.Body == 0 && w.Overlap == 0 {
		*w = SimilarityWeights{Name: 0.3, Kind: 0.1, Body: 0.4, Overlap: 0.2}
	}

	if cfg.Redaction.Enabled == nil {
		cfg.Redaction.Enabled = boolPtr(true)
	}
	if cfg.Redaction.Entropy == nil {
		cfg.Redaction.Entropy = boolPtr(true)
	}
	if cfg.Redaction.EntropyThreshold == 0 {
		cfg.Redaction.EntropyThreshold = DefaultEntropyThreshold
	}
	if cfg.Redaction.MinTokenLength == 0 {
		cfg.Redaction.MinTokenLength = DefaultMinSecretLength
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = ".ambiance/history.db"
	}
	if strings.TrimSpace(cfg.History.ProjectKey) == "" {
		cfg.History.ProjectKey = "default"
	}
}

func normalize(cfg *Config) {
	cfg.Root = strings.TrimSpace(cfg.Root)
	langs := make([]string, 0, len(cfg.SupportedLanguages))
	seen := make(map[string]bool, len(cfg.SupportedLanguages))
	for _, lang := range cfg.SupportedLanguages {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if lang == "" || seen[lang] {
			continue
		}
		seen[lang] = true
		langs = append(langs, lang)
	}
	cfg.SupportedLanguages = langs
	cfg.Relevance.TaskType = strings.ToLower(strings.TrimSpace(cfg.Relevance.TaskType))
	cfg.Relevance.Query = strings.TrimSpace(cfg.Relevance.Query)
}
