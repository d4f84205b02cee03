package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rewired-gh/busyhour/internal/models"
)

// EnvPrefix prefixes every environment variable override, e.g. BUSYHOUR_ANALYSIS_ALGORITHM.
const EnvPrefix = "BUSYHOUR"

// Config represents the complete application configuration
type Config struct {
	Input     InputConfig     `mapstructure:"input"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Synthesis SynthesisConfig `mapstructure:"synthesis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Output    OutputConfig    `mapstructure:"output"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// InputConfig holds the measurement files and how they are read.
// Empty paths select the built-in data.
type InputConfig struct {
	TurnaroundFile    string `mapstructure:"turnaround_file"`
	IntensityFile     string `mapstructure:"intensity_file"`
	IntensityDir      string `mapstructure:"intensity_dir"`
	TurnaroundDecimal string `mapstructure:"turnaround_decimal"`
	IntensityDecimal  string `mapstructure:"intensity_decimal"`
	Extension         string `mapstructure:"extension"`
}

// AnalysisConfig holds the busy-window algorithm selection
type AnalysisConfig struct {
	Algorithm string `mapstructure:"algorithm"`
}

// SynthesisConfig controls the multi-day dataset synthesized from a single day
type SynthesisConfig struct {
	Days       int    `mapstructure:"days"`
	Seed       uint64 `mapstructure:"seed"` // 0 draws a fresh seed per run
	ScratchDir string `mapstructure:"scratch_dir"`
}

// CacheConfig holds the parsed-file cache configuration
type CacheConfig struct {
	MaxEntries int `mapstructure:"max_entries"`
}

// OutputConfig holds rendering configuration
type OutputConfig struct {
	Format string `mapstructure:"format"`
	Width  int    `mapstructure:"width"`
}

// MetricsConfig holds metrics export configuration
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// flagBindings maps CLI flag names to configuration keys
var flagBindings = map[string]string{
	"turnaround":       "input.turnaround_file",
	"intensity":        "input.intensity_file",
	"intensity-dir":    "input.intensity_dir",
	"extension":        "input.extension",
	"algorithm":        "analysis.algorithm",
	"days":             "synthesis.days",
	"seed":             "synthesis.seed",
	"scratch-dir":      "synthesis.scratch_dir",
	"cache-size":       "cache.max_entries",
	"output":           "output.format",
	"width":            "output.width",
	"metrics-textfile": "metrics.textfile",
	"log-level":        "logging.level",
	"log-format":       "logging.format",
}

// Load reads configuration from defaults, an optional config file,
// environment variables and the given command-line flags, in increasing
// order of precedence. An empty path skips the config file; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind only the flags the command actually defines
	if flags != nil {
		for name, key := range flagBindings {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Input defaults
	v.SetDefault("input.turnaround_file", "")
	v.SetDefault("input.intensity_file", "")
	v.SetDefault("input.intensity_dir", "")
	v.SetDefault("input.turnaround_decimal", ".")
	v.SetDefault("input.intensity_decimal", ",")
	v.SetDefault("input.extension", ".txt")

	// Analysis defaults
	v.SetDefault("analysis.algorithm", string(models.TCBH))

	// Synthesis defaults
	v.SetDefault("synthesis.days", 9)
	v.SetDefault("synthesis.seed", 0)
	v.SetDefault("synthesis.scratch_dir", "")

	// Cache defaults
	v.SetDefault("cache.max_entries", 256)

	// Output defaults
	v.SetDefault("output.format", "text")
	v.SetDefault("output.width", 60)

	// Metrics defaults
	v.SetDefault("metrics.textfile", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Input config
	if c.Input.IntensityFile != "" && c.Input.IntensityDir != "" {
		return fmt.Errorf("input.intensity_file and input.intensity_dir are mutually exclusive")
	}
	validDecimals := map[string]bool{",": true, ".": true}
	if !validDecimals[c.Input.TurnaroundDecimal] {
		return fmt.Errorf("input.turnaround_decimal must be one of: , .")
	}
	if !validDecimals[c.Input.IntensityDecimal] {
		return fmt.Errorf("input.intensity_decimal must be one of: , .")
	}
	if !strings.HasPrefix(c.Input.Extension, ".") || len(c.Input.Extension) < 2 {
		return fmt.Errorf("input.extension must start with a dot, e.g. .txt")
	}

	// Validate Analysis config
	if _, err := models.ParseAlgorithm(c.Analysis.Algorithm); err != nil {
		return fmt.Errorf("analysis.algorithm: %w", err)
	}

	// Validate Synthesis config
	if c.Synthesis.Days < 0 || c.Synthesis.Days > 1000 {
		return fmt.Errorf("synthesis.days must be between 0 and 1000")
	}

	// Validate Cache config
	if c.Cache.MaxEntries < 1 {
		return fmt.Errorf("cache.max_entries must be at least 1")
	}

	// Validate Output config
	validFormats := map[string]bool{"text": true, "json": true, "yaml": true}
	if !validFormats[c.Output.Format] {
		return fmt.Errorf("output.format must be one of: text, json, yaml")
	}
	if c.Output.Width < 10 {
		return fmt.Errorf("output.width must be at least 10")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// Algorithm returns the configured algorithm. Call Validate first.
func (c *Config) Algorithm() models.Algorithm {
	alg, err := models.ParseAlgorithm(c.Analysis.Algorithm)
	if err != nil {
		return models.TCBH
	}
	return alg
}

// HasSelection reports whether any input file or directory was configured.
// Without a selection the built-in data is analyzed.
func (c *Config) HasSelection() bool {
	return c.Input.TurnaroundFile != "" || c.Input.IntensityFile != "" || c.Input.IntensityDir != ""
}

// Selection returns the analysis configuration described by the input section.
func (c *Config) Selection() models.AnalysisConfiguration {
	source := models.IntensitySource{Path: c.Input.IntensityFile}
	if c.Input.IntensityDir != "" {
		source = models.IntensitySource{Path: c.Input.IntensityDir, Dir: true}
	}
	return models.AnalysisConfiguration{
		TurnaroundFile: c.Input.TurnaroundFile,
		Intensity:      source,
		Algorithm:      c.Algorithm(),
	}
}
