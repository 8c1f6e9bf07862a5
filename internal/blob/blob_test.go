package blob

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, Config{FSRoot: t.TempDir()})
	if err != nil || store.Driver() != DriverFilesystem {
		t.Fatalf("expected default fs store, got %v %v", store, err)
	}
	store, err = Open(ctx, Config{Driver: DriverMemory})
	if err != nil || store.Driver() != DriverMemory {
		t.Fatalf("expected memory store, got %v %v", store, err)
	}
	if _, err := Open(ctx, Config{Driver: DriverS3}); err == nil {
		t.Fatal("expected s3 without bucket to fail")
	}
	if _, err := Open(ctx, Config{Driver: "ftp"}); err == nil {
		t.Fatal("expected unknown driver error")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("PATHWAYCORE_BLOB_DRIVER", "s3")
	t.Setenv("PATHWAYCORE_BLOB_S3_BUCKET", "pathways")
	t.Setenv("PATHWAYCORE_BLOB_S3_REGION", "eu-west-1")
	t.Setenv("PATHWAYCORE_BLOB_S3_ENDPOINT", "http://minio:9000")
	t.Setenv("PATHWAYCORE_BLOB_S3_PATH_STYLE", "TRUE")
	t.Setenv("AWS_ACCESS_KEY_ID", "id")
	cfg := ConfigFromEnv()
	if cfg.Driver != DriverS3 || cfg.S3.Bucket != "pathways" || cfg.S3.Region != "eu-west-1" ||
		cfg.S3.Endpoint != "http://minio:9000" || !cfg.S3.PathStyle || cfg.S3.AccessKeyID != "id" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

type report struct {
	Token string `json:"token"`
	Hits  int    `json:"hits"`
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	for name, store := range map[string]Store{"memory": NewMemory(), "s3": NewMockS3ForTests()} {
		t.Run(name, func(t *testing.T) {
			if _, err := PutJSON(ctx, store, "reports/t1.json", report{Token: "t1", Hits: 3}, map[string]string{"species": "human"}); err != nil {
				t.Fatalf("put json: %v", err)
			}
			if _, err := PutJSON(ctx, store, "reports/t1.json", report{Token: "t1", Hits: 4}, nil); err != nil {
				t.Fatalf("overwrite json: %v", err)
			}
			var got report
			info, err := GetJSON(ctx, store, "reports/t1.json", &got)
			if err != nil {
				t.Fatalf("get json: %v", err)
			}
			if got.Hits != 4 || info.ContentType != "application/json" {
				t.Fatalf("unexpected %+v %+v", got, info)
			}
			if _, err := GetJSON(ctx, store, "reports/missing.json", &got); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestGetJSONDetectsTamperedReport(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewFilesystem(root)
	if err != nil {
		t.Fatalf("filesystem: %v", err)
	}
	if _, err := PutJSON(ctx, store, "reports/r1.json", map[string]int{"found": 1}, nil); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "reports", "r1.json"), []byte(`{"found": 9}`), 0o644); err != nil {
		t.Fatalf("tamper: %v", err)
	}
	var got map[string]int
	if _, err := GetJSON(ctx, store, "reports/r1.json", &got); !errors.Is(err, ErrChecksum) {
		t.Fatalf("expected ErrChecksum, got %v", err)
	}
	if _, err := PutJSON(ctx, store, "../outside.json", got, nil); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}
