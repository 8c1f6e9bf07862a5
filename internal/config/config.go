// Package config loads engine settings from an optional YAML file overlaid
// with PATHWAYCORE_* environment variables.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pathwaycore/internal/blob"
	"pathwaycore/internal/core"
	"pathwaycore/internal/pool"
)

// Metrics exporters selectable through Config.Metrics.
const (
	MetricsNone       = "none"
	MetricsExpvar     = "expvar"
	MetricsPrometheus = "prometheus"
)

// Config is the complete engine configuration.
type Config struct {
	PoolSize         int                 `yaml:"pool_size"`
	ReplenishBackoff time.Duration       `yaml:"replenish_backoff"`
	SampleCacheSize  int                 `yaml:"sample_cache_size"`
	Storage          core.StorageOptions `yaml:"storage"`
	LogLevel         string              `yaml:"log_level"`
	LogFormat        string              `yaml:"log_format"`
	Metrics          string              `yaml:"metrics"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		PoolSize:         pool.DefaultSize,
		ReplenishBackoff: pool.DefaultBackoff,
		SampleCacheSize:  core.DefaultSampleCacheSize,
		Storage: core.StorageOptions{
			Driver:     core.StorageSQLite,
			SQLitePath: "pathwaycore.db",
			GraphKey:   core.DefaultGraphKey,
			Blob:       blob.Config{Driver: blob.DriverFilesystem, FSRoot: "./blobdata"},
		},
		LogLevel:  "info",
		LogFormat: "text",
		Metrics:   MetricsNone,
	}
}

// Load reads path (when non-empty) over the defaults, applies the
// environment and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides every setting whose environment variable is set.
//
//	PATHWAYCORE_POOL_SIZE, PATHWAYCORE_REPLENISH_BACKOFF,
//	PATHWAYCORE_SAMPLE_CACHE_SIZE, PATHWAYCORE_LOG_LEVEL,
//	PATHWAYCORE_LOG_FORMAT, PATHWAYCORE_METRICS
//
// Storage variables are documented in core.StorageOptionsFromEnv and
// blob.ConfigFromEnv.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("PATHWAYCORE_POOL_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PATHWAYCORE_POOL_SIZE: %w", err)
		}
		c.PoolSize = n
	}
	if v := os.Getenv("PATHWAYCORE_REPLENISH_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PATHWAYCORE_REPLENISH_BACKOFF: %w", err)
		}
		c.ReplenishBackoff = d
	}
	if v := os.Getenv("PATHWAYCORE_SAMPLE_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PATHWAYCORE_SAMPLE_CACHE_SIZE: %w", err)
		}
		c.SampleCacheSize = n
	}
	setString(&c.LogLevel, "PATHWAYCORE_LOG_LEVEL")
	setString(&c.LogFormat, "PATHWAYCORE_LOG_FORMAT")
	setString(&c.Metrics, "PATHWAYCORE_METRICS")

	env := core.StorageOptionsFromEnv()
	if env.Driver != "" {
		c.Storage.Driver = env.Driver
	}
	setIfNotEmpty(&c.Storage.SQLitePath, env.SQLitePath)
	setIfNotEmpty(&c.Storage.PostgresDSN, env.PostgresDSN)
	setIfNotEmpty(&c.Storage.GraphKey, env.GraphKey)
	if env.Blob.Driver != "" {
		c.Storage.Blob.Driver = env.Blob.Driver
	}
	setIfNotEmpty(&c.Storage.Blob.FSRoot, env.Blob.FSRoot)
	s3, envS3 := &c.Storage.Blob.S3, env.Blob.S3
	setIfNotEmpty(&s3.Bucket, envS3.Bucket)
	setIfNotEmpty(&s3.Region, envS3.Region)
	setIfNotEmpty(&s3.Endpoint, envS3.Endpoint)
	setIfNotEmpty(&s3.AccessKeyID, envS3.AccessKeyID)
	setIfNotEmpty(&s3.SecretAccessKey, envS3.SecretAccessKey)
	setIfNotEmpty(&s3.SessionToken, envS3.SessionToken)
	if os.Getenv("PATHWAYCORE_BLOB_S3_PATH_STYLE") != "" {
		s3.PathStyle = envS3.PathStyle
	}
	return nil
}

func setString(dst *string, key string) {
	setIfNotEmpty(dst, os.Getenv(key))
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	if c.PoolSize < 1 {
		return fmt.Errorf("pool_size must be at least 1, got %d", c.PoolSize)
	}
	if c.ReplenishBackoff <= 0 {
		return fmt.Errorf("replenish_backoff must be positive, got %s", c.ReplenishBackoff)
	}
	if c.SampleCacheSize < 1 {
		return fmt.Errorf("sample_cache_size must be at least 1, got %d", c.SampleCacheSize)
	}
	switch c.Storage.Driver {
	case core.StorageMemory, core.StorageSQLite, core.StoragePostgres, core.StorageBlob:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Storage.Blob.Driver {
	case "", blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Storage.Driver == core.StorageBlob && c.Storage.Blob.S3.Bucket == "" {
			return fmt.Errorf("s3 blob driver requires a bucket")
		}
	default:
		return fmt.Errorf("unknown blob driver %q", c.Storage.Blob.Driver)
	}
	if _, err := c.slogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	switch c.Metrics {
	case MetricsNone, MetricsExpvar, MetricsPrometheus:
	default:
		return fmt.Errorf("unknown metrics exporter %q", c.Metrics)
	}
	return nil
}

func (c Config) slogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// NewLogger builds the slog logger described by the configuration.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := c.slogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ServiceOptions maps the pool and cache settings onto core options.
func (c Config) ServiceOptions() []core.Option {
	return []core.Option{
		core.WithPoolSize(c.PoolSize),
		core.WithReplenishBackoff(c.ReplenishBackoff),
		core.WithSampleCacheSize(c.SampleCacheSize),
	}
}
