package blob

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Config selects and configures a blob backend.
type Config struct {
	Driver Driver   `yaml:"driver"`
	FSRoot string   `yaml:"fs_root"`
	S3     S3Config `yaml:"s3"`
}

// ConfigFromEnv reads the blob settings from the environment.
//
//	PATHWAYCORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	PATHWAYCORE_BLOB_FS_ROOT: directory root when driver=fs (default ./blobdata)
//	PATHWAYCORE_BLOB_S3_BUCKET: bucket when driver=s3 (required)
//	PATHWAYCORE_BLOB_S3_REGION: region (default us-east-1)
//	PATHWAYCORE_BLOB_S3_ENDPOINT: custom endpoint, e.g. MinIO
//	PATHWAYCORE_BLOB_S3_PATH_STYLE: true|false (default false)
//	AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY / AWS_SESSION_TOKEN (optional)
func ConfigFromEnv() Config {
	return Config{
		Driver: Driver(os.Getenv("PATHWAYCORE_BLOB_DRIVER")),
		FSRoot: os.Getenv("PATHWAYCORE_BLOB_FS_ROOT"),
		S3: S3Config{
			Bucket:          os.Getenv("PATHWAYCORE_BLOB_S3_BUCKET"),
			Region:          os.Getenv("PATHWAYCORE_BLOB_S3_REGION"),
			Endpoint:        os.Getenv("PATHWAYCORE_BLOB_S3_ENDPOINT"),
			PathStyle:       strings.EqualFold(os.Getenv("PATHWAYCORE_BLOB_S3_PATH_STYLE"), "true"),
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		},
	}
}

// Open constructs the blob.Store selected by cfg. Defaults to the filesystem
// driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
