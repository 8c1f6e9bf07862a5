// Package core holds the blob contract shared by the backends under
// internal/infra/blob: graph documents and analysis reports are written
// through it.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Driver names a blob backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
	DriverMemory     Driver = "memory"
)

// SidecarSuffix is reserved for backend bookkeeping files and may not end a
// key.
const SidecarSuffix = ".info"

// PutOptions tune a single write.
type PutOptions struct {
	ContentType string
	// Metadata is stored with the blob, for example the graph version a
	// report was computed against.
	Metadata  map[string]string
	Overwrite bool
}

// Info describes a stored blob.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store is a flat key namespace. Keys are slash separated relative paths
// accepted by ValidateKey.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

var (
	ErrNotFound = errors.New("blob not found")
	// ErrExists is returned by a Put without Overwrite on an existing key.
	ErrExists = errors.New("blob already exists")
	// ErrInvalidKey is returned for keys rejected by ValidateKey.
	ErrInvalidKey = errors.New("invalid blob key")
	// ErrChecksum is returned when stored content no longer matches the
	// checksum recorded at write time.
	ErrChecksum = errors.New("blob checksum mismatch")
)

// ValidateKey returns the canonical form of key or an error wrapping
// ErrInvalidKey. Keys must be relative, must not climb out of the namespace
// and must not end in SidecarSuffix.
func ValidateKey(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	switch {
	case trimmed == "":
		return "", fmt.Errorf("%w: empty", ErrInvalidKey)
	case strings.HasPrefix(trimmed, "/"):
		return "", fmt.Errorf("%w: %q is absolute", ErrInvalidKey, key)
	case strings.HasSuffix(trimmed, SidecarSuffix):
		return "", fmt.Errorf("%w: %q uses reserved suffix %s", ErrInvalidKey, key, SidecarSuffix)
	}
	for _, segment := range strings.Split(trimmed, "/") {
		if segment == ".." {
			return "", fmt.Errorf("%w: %q leaves the namespace", ErrInvalidKey, key)
		}
	}
	return path.Clean(trimmed), nil
}

// CloneMetadata copies in; nil stays nil.
func CloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
