// Package config loads pipeline configuration from a YAML file and
// environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the pipeline binaries.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Matcher    MatcherConfig    `mapstructure:"matcher"`
	Validation ValidationConfig `mapstructure:"validation"`
	Report     ReportConfig     `mapstructure:"report"`
	Sources    []SourceConfig   `mapstructure:"sources"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"` // trace..panic, logrus levels
}

// StorageConfig selects the store backend and its connection strings.
type StorageConfig struct {
	Backend       string `mapstructure:"backend"` // "memory" or "postgres"
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	ClickhouseDSN string `mapstructure:"clickhouse_dsn"` // empty disables archival
}

// MetricsConfig holds the Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// PipelineConfig holds run-level knobs. Windows are in seconds.
type PipelineConfig struct {
	Workers         int   `mapstructure:"workers"`
	DryRun          bool  `mapstructure:"dry_run"`
	FetchWindowSec  int64 `mapstructure:"fetch_window_sec"`
	ValidationSec   int64 `mapstructure:"validation_window_sec"`
	StaleAfterSec   int64 `mapstructure:"stale_after_sec"`
	ArchiveAfterSec int64 `mapstructure:"archive_after_sec"`
	LockStaleSec    int64 `mapstructure:"lock_stale_sec"`
}

// MatcherConfig holds the scoring knobs exposed to operators. Zero
// values fall through to the matcher's tuned defaults.
type MatcherConfig struct {
	Threshold     float64 `mapstructure:"threshold"`
	AmbiguityBand float64 `mapstructure:"ambiguity_band"`
}

// ValidationConfig holds price sanity ratios. Zero values fall through
// to the validator's defaults.
type ValidationConfig struct {
	RejectRatio float64 `mapstructure:"reject_ratio"`
	HighRatio   float64 `mapstructure:"high_ratio"`
	LowRatio    float64 `mapstructure:"low_ratio"`
}

// ReportConfig holds report generation settings.
type ReportConfig struct {
	WindowSec int64  `mapstructure:"window_sec"`
	OutputDir string `mapstructure:"output_dir"`
}

// SourceConfig describes one marketplace source.
type SourceConfig struct {
	Name           string  `mapstructure:"name"`
	Type           string  `mapstructure:"type"` // "http" or "ws"
	URL            string  `mapstructure:"url"`
	RequestsPerSec float64 `mapstructure:"requests_per_sec"`
}

// Load reads configuration from path, or from the default search paths
// when path is empty. Environment variables prefixed HIFI_ override
// file values (HIFI_STORAGE_POSTGRES_DSN and so on).
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/hifi-market-lab/")
	}

	v.SetEnvPrefix("HIFI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// No file found; environment variables and defaults apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")

	v.SetDefault("storage.backend", "memory")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.fetch_window_sec", 24*60*60)
	v.SetDefault("pipeline.validation_window_sec", 48*60*60)
	v.SetDefault("pipeline.stale_after_sec", 7*24*60*60)
	v.SetDefault("pipeline.archive_after_sec", 30*24*60*60)
	v.SetDefault("pipeline.lock_stale_sec", 2*60*60)

	v.SetDefault("report.window_sec", 48*60*60)
	v.SetDefault("report.output_dir", "reports")
}

func validate(cfg *Config) error {
	switch cfg.Storage.Backend {
	case "memory":
	case "postgres":
		if cfg.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("storage.backend must be 'memory' or 'postgres', got: %s", cfg.Storage.Backend)
	}

	if cfg.Pipeline.Workers < 0 {
		return fmt.Errorf("pipeline.workers must not be negative")
	}

	if t := cfg.Matcher.Threshold; t < 0 || t > 1 {
		return fmt.Errorf("matcher.threshold must be in [0, 1], got: %g", t)
	}

	seen := make(map[string]bool, len(cfg.Sources))
	for i, s := range cfg.Sources {
		if s.Name == "" {
			return fmt.Errorf("sources[%d]: name is required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("sources[%d]: duplicate source name %q", i, s.Name)
		}
		seen[s.Name] = true
		if s.Type != "http" && s.Type != "ws" {
			return fmt.Errorf("sources[%d]: type must be 'http' or 'ws', got: %s", i, s.Type)
		}
		if s.URL == "" {
			return fmt.Errorf("sources[%d]: url is required", i)
		}
	}

	return nil
}
