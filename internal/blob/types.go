// Package blob is the entry point to blob storage. It re-exports the core
// contract and constructs the infra-backed implementations, so that callers
// never import internal/infra/blob directly.
package blob

import (
	"pathwaycore/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	// ErrNotFound reports a missing key.
	ErrNotFound = core.ErrNotFound
	// ErrExists reports a create-only write to an existing key.
	ErrExists = core.ErrExists
	// ErrInvalidKey reports a key outside the blob namespace rules.
	ErrInvalidKey = core.ErrInvalidKey
	// ErrChecksum reports stored content that fails verification.
	ErrChecksum = core.ErrChecksum
)
