package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config holds the eigenimages run configuration. Every field can also be
// set from the command line; flags win over the file.
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Output   OutputConfig   `yaml:"output"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// PipelineConfig holds the numerical settings of a run.
type PipelineConfig struct {
	StaticResize      *bool   `yaml:"static_resize"`      // 100x100 working shape; false = 10% of original
	Components        int     `yaml:"components"`         // PCA component budget
	VarianceThreshold float64 `yaml:"variance_threshold"` // cumulative explained variance to stop at
}

// OutputConfig holds artifact location settings.
type OutputConfig struct {
	ResultsDir string `yaml:"results_dir"` // batch mode; relative paths resolve against the input folder
}

// DatabaseConfig holds run ledger settings.
type DatabaseConfig struct {
	Path     string `yaml:"path"`
	Disabled bool   `yaml:"disabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`
}

// MetricsConfig holds metrics export settings.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // prometheus text exposition output; empty disables
}

// Defaults used when neither the file nor a flag sets a value.
const (
	DefaultComponents        = 10
	DefaultVarianceThreshold = 0.8
	DefaultResultsDir        = "Results"
	DefaultLogLevel          = "info"
)

// Default returns a configuration with all defaults applied.
func Default() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

// Load reads a YAML configuration file. An empty path yields Default().
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Pipeline.StaticResize == nil {
		staticResize := true
		c.Pipeline.StaticResize = &staticResize
	}
	if c.Pipeline.Components == 0 {
		c.Pipeline.Components = DefaultComponents
	}
	if c.Pipeline.VarianceThreshold == 0 {
		c.Pipeline.VarianceThreshold = DefaultVarianceThreshold
	}
	if c.Output.ResultsDir == "" {
		c.Output.ResultsDir = DefaultResultsDir
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
}

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	if c.Pipeline.Components < 1 {
		return fmt.Errorf("pipeline.components must be at least 1, got %d", c.Pipeline.Components)
	}
	if c.Pipeline.VarianceThreshold <= 0 || c.Pipeline.VarianceThreshold > 1 {
		return fmt.Errorf("pipeline.variance_threshold must be in (0, 1], got %g", c.Pipeline.VarianceThreshold)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	return nil
}

// UseStaticResize reports the resize policy, defaulting to the fixed shape.
func (c *Config) UseStaticResize() bool {
	return c.Pipeline.StaticResize == nil || *c.Pipeline.StaticResize
}

var envVarRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRe.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envVarRe.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}
