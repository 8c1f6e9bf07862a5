package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pathwaycore/internal/blob"
	"pathwaycore/internal/core"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pathwaycore.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PoolSize != 3 || cfg.ReplenishBackoff != 500*time.Millisecond || cfg.Storage.Driver != core.StorageSQLite {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Storage.GraphKey != core.DefaultGraphKey || cfg.Metrics != MetricsNone {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadFileThenEnvironment(t *testing.T) {
	path := writeFile(t, `
pool_size: 5
replenish_backoff: 2s
storage:
  driver: blob
  graph_key: graphs/test.json
  blob:
    driver: s3
    s3:
      bucket: from-file
      region: eu-central-1
      path_style: true
log_level: debug
log_format: json
metrics: prometheus
`)
	t.Setenv("PATHWAYCORE_POOL_SIZE", "7")
	t.Setenv("PATHWAYCORE_BLOB_S3_BUCKET", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PoolSize != 7 || cfg.ReplenishBackoff != 2*time.Second {
		t.Fatalf("unexpected pool settings %+v", cfg)
	}
	s := cfg.Storage
	if s.Driver != core.StorageBlob || s.GraphKey != "graphs/test.json" || s.Blob.Driver != blob.DriverS3 {
		t.Fatalf("unexpected storage %+v", s)
	}
	if s.Blob.S3.Bucket != "from-env" || s.Blob.S3.Region != "eu-central-1" || !s.Blob.S3.PathStyle {
		t.Fatalf("unexpected s3 settings %+v", s.Blob.S3)
	}
	if cfg.Metrics != MetricsPrometheus || cfg.SampleCacheSize != core.DefaultSampleCacheSize {
		t.Fatalf("unexpected %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected missing file error")
	}
	if _, err := Load(writeFile(t, "pool_size: [")); err == nil {
		t.Fatal("expected parse error")
	}
	t.Setenv("PATHWAYCORE_POOL_SIZE", "many")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "PATHWAYCORE_POOL_SIZE") {
		t.Fatalf("expected env error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"pool size":      func(c *Config) { c.PoolSize = 0 },
		"backoff":        func(c *Config) { c.ReplenishBackoff = 0 },
		"cache":          func(c *Config) { c.SampleCacheSize = 0 },
		"storage driver": func(c *Config) { c.Storage.Driver = "etcd" },
		"blob driver":    func(c *Config) { c.Storage.Blob.Driver = "ftp" },
		"s3 bucket": func(c *Config) {
			c.Storage.Driver = core.StorageBlob
			c.Storage.Blob.Driver = blob.DriverS3
		},
		"log level":  func(c *Config) { c.LogLevel = "loud" },
		"log format": func(c *Config) { c.LogFormat = "xml" },
		"metrics":    func(c *Config) { c.Metrics = "statsd" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected %s to be rejected", name)
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.LogFormat = "json"
	cfg.LogLevel = "warn"
	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", 1)
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"msg":"shown"`) {
		t.Fatalf("unexpected log output %q", out)
	}
	if len(cfg.ServiceOptions()) != 3 {
		t.Fatal("expected pool, backoff and cache options")
	}
}
