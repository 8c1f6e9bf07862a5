package core

import (
	"context"
	"fmt"
	"os"

	"pathwaycore/internal/blob"
	"pathwaycore/internal/infra/persistence/memory"
	"pathwaycore/internal/infra/persistence/objectstore"
	"pathwaycore/internal/infra/persistence/postgres"
	"pathwaycore/internal/infra/persistence/sqlite"
	"pathwaycore/pkg/domain"
)

// StorageDriver identifies a graph document store implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageBlob     StorageDriver = "blob"     // JSON document in a blob store
)

// DefaultGraphKey is the blob key of the graph document.
const DefaultGraphKey = "graphs/current.json"

// StorageOptions selects and configures a graph store.
type StorageOptions struct {
	Driver      StorageDriver `yaml:"driver"`
	SQLitePath  string        `yaml:"sqlite_path"`
	PostgresDSN string        `yaml:"postgres_dsn"`
	GraphKey    string        `yaml:"graph_key"`
	Blob        blob.Config   `yaml:"blob"`
}

// StorageOptionsFromEnv reads storage settings from the environment.
//
//	PATHWAYCORE_STORAGE_DRIVER: memory|sqlite|postgres|blob (default sqlite)
//	PATHWAYCORE_SQLITE_PATH: path to sqlite file (default ./pathwaycore.db)
//	PATHWAYCORE_POSTGRES_DSN: postgres DSN when driver=postgres
//	PATHWAYCORE_GRAPH_KEY: blob key of the graph document when driver=blob
//	(blob driver variables are documented in blob.ConfigFromEnv)
func StorageOptionsFromEnv() StorageOptions {
	return StorageOptions{
		Driver:      StorageDriver(os.Getenv("PATHWAYCORE_STORAGE_DRIVER")),
		SQLitePath:  os.Getenv("PATHWAYCORE_SQLITE_PATH"),
		PostgresDSN: os.Getenv("PATHWAYCORE_POSTGRES_DSN"),
		GraphKey:    os.Getenv("PATHWAYCORE_GRAPH_KEY"),
		Blob:        blob.ConfigFromEnv(),
	}
}

// OpenGraphStore constructs the graph store selected by opts. Defaults to
// sqlite when no driver is set.
func OpenGraphStore(ctx context.Context, opts StorageOptions) (domain.GraphStore, error) {
	driver := opts.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(opts.SQLitePath)
	case StoragePostgres:
		return postgres.NewStore(ctx, opts.PostgresDSN)
	case StorageBlob:
		store, err := blob.Open(ctx, opts.Blob)
		if err != nil {
			return nil, fmt.Errorf("open blob store: %w", err)
		}
		key := opts.GraphKey
		if key == "" {
			key = DefaultGraphKey
		}
		return objectstore.NewStore(store, key), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
