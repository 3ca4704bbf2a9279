package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/l3aro/dfg-linearity-query/pkg/linearity"
)

// Config holds all configuration for dfg-linearity-query
type Config struct {
	// Operator policy. Empty lists mean the built-in default sets.
	LinearOperators    []string `yaml:"linear_operators" env:"DLQ_LINEAR_OPERATORS"`
	NonlinearOperators []string `yaml:"nonlinear_operators" env:"DLQ_NONLINEAR_OPERATORS"`

	// Report settings
	ReportFormat  string `yaml:"report_format" env:"DLQ_REPORT_FORMAT"`
	ReportSignals bool   `yaml:"report_signals" env:"DLQ_REPORT_SIGNALS"`
	OutputDir     string `yaml:"output_dir" env:"DLQ_OUTPUT_DIR"`

	// Default backward depth for focused subgraphs
	FocusDepth int `yaml:"focus_depth" env:"DLQ_FOCUS_DEPTH"`

	// Parallelism for batch analysis
	Workers int `yaml:"workers" env:"DLQ_WORKERS"`

	// Result cache
	CacheEnabled bool   `yaml:"cache_enabled" env:"DLQ_CACHE_ENABLED"`
	CacheDir     string `yaml:"cache_dir" env:"DLQ_CACHE_DIR"`
	CacheMaxMB   int    `yaml:"cache_max_mb" env:"DLQ_CACHE_MAX_MB"`

	// Logging
	Verbose bool `yaml:"verbose" env:"DLQ_VERBOSE"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LinearOperators:    nil,
		NonlinearOperators: nil,
		ReportFormat:       "text",
		ReportSignals:      false,
		OutputDir:          "results",
		FocusDepth:         2,
		Workers:            4,
		CacheEnabled:       true,
		CacheDir:           "",
		CacheMaxMB:         100,
		Verbose:            false,
	}
}

// globalConfigFilePath returns the global config file path (~/.dlq/config.yaml)
func globalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dlq/config.yaml"
	}
	return filepath.Join(home, ".dlq", "config.yaml")
}

// projectConfigFilePath returns the project-level config file path (./.dlq/config.yaml)
func projectConfigFilePath() string {
	return ".dlq/config.yaml"
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.dlq/config.yaml)
// 3. Global config (~/.dlq/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	globalConfigPath := globalConfigFilePath()
	if data, err := os.ReadFile(globalConfigPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", globalConfigPath, err)
		}
	}

	projectConfigPath := projectConfigFilePath()
	if data, err := os.ReadFile(projectConfigPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", projectConfigPath, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(path); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DLQ_LINEAR_OPERATORS"); v != "" {
		cfg.LinearOperators = splitList(v)
	}
	if v := os.Getenv("DLQ_NONLINEAR_OPERATORS"); v != "" {
		cfg.NonlinearOperators = splitList(v)
	}
	if v := os.Getenv("DLQ_REPORT_FORMAT"); v != "" {
		cfg.ReportFormat = v
	}
	if v := os.Getenv("DLQ_REPORT_SIGNALS"); v != "" {
		cfg.ReportSignals = isTruthy(v)
	}
	if v := os.Getenv("DLQ_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("DLQ_FOCUS_DEPTH"); v != "" {
		if i := parseInt(v); i >= 0 {
			cfg.FocusDepth = i
		}
	}
	if v := os.Getenv("DLQ_WORKERS"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.Workers = i
		}
	}
	if v := os.Getenv("DLQ_CACHE_ENABLED"); v != "" {
		cfg.CacheEnabled = isTruthy(v)
	}
	if v := os.Getenv("DLQ_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("DLQ_CACHE_MAX_MB"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.CacheMaxMB = i
		}
	}
	if v := os.Getenv("DLQ_VERBOSE"); v != "" {
		cfg.Verbose = isTruthy(v)
	}
}

// Validate checks that the configuration has valid required fields
func (c *Config) Validate() error {
	switch c.ReportFormat {
	case "text", "json", "summary":
	default:
		return fmt.Errorf("invalid report_format: %s (must be 'text', 'json' or 'summary')", c.ReportFormat)
	}

	if c.FocusDepth < 0 {
		return fmt.Errorf("focus_depth must be non-negative")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.CacheMaxMB <= 0 {
		return fmt.Errorf("cache_max_mb must be positive")
	}
	return nil
}

// Policy builds the operator policy the config describes. Empty lists fall
// back to the built-in defaults. Overlapping entries resolve to nonlinear
// at classification time; `dlq doctor` reports them.
func (c *Config) Policy() linearity.Policy {
	lin := c.LinearOperators
	if len(lin) == 0 {
		lin = linearity.DefaultLinearOps
	}
	non := c.NonlinearOperators
	if len(non) == 0 {
		non = linearity.DefaultNonlinearOps
	}
	return linearity.NewPolicy(lin, non)
}

// PolicyOverlap lists operators present in both configured sets, sorted.
func (c *Config) PolicyOverlap() []string {
	pol := c.Policy()
	var both []string
	for _, op := range pol.LinearOps() {
		if pol.IsNonlinear(op) {
			both = append(both, op)
		}
	}
	return both
}

// EffectiveCacheDir resolves the cache directory, defaulting to
// ~/.dlq/cache when unset.
func (c *Config) EffectiveCacheDir() string {
	if c.CacheDir != "" {
		return c.CacheDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dlq/cache"
	}
	return filepath.Join(home, ".dlq", "cache")
}

// splitList parses a comma-separated list, trimming blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isTruthy(s string) bool {
	return s == "true" || s == "1" || s == "yes"
}

// parseInt attempts to parse a string as int
func parseInt(s string) int {
	var i int
	if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
		return 0
	}
	return i
}
