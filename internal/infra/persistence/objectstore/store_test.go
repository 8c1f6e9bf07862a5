package objectstore

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"pathwaycore/internal/blob"
	"pathwaycore/internal/graph/graphtest"
	"pathwaycore/pkg/domain"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	backends := map[string]func(t *testing.T) blob.Store{
		"memory": func(*testing.T) blob.Store { return blob.NewMemory() },
		"fs": func(t *testing.T) blob.Store {
			s, err := blob.NewFilesystem(t.TempDir())
			if err != nil {
				t.Fatalf("fs: %v", err)
			}
			return s
		},
		"s3": func(*testing.T) blob.Store { return blob.NewMockS3ForTests() },
	}
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			blobs := open(t)
			store := NewStore(blobs, "graphs/current.json")
			if _, err := store.Load(ctx); !errors.Is(err, domain.ErrGraphNotStored) {
				t.Fatalf("expected ErrGraphNotStored, got %v", err)
			}
			doc := graphtest.Document()
			if err := store.Store(ctx, doc); err != nil {
				t.Fatalf("store: %v", err)
			}
			if err := store.Store(ctx, doc); err != nil {
				t.Fatalf("replace: %v", err)
			}
			got, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if !reflect.DeepEqual(got, doc.Normalize()) {
				t.Fatalf("round trip mismatch\nwant %+v\ngot  %+v", doc.Normalize(), got)
			}
			info, err := blobs.Head(ctx, store.Key())
			if err != nil {
				t.Fatalf("head: %v", err)
			}
			if info.Metadata["version"] != doc.Version {
				t.Fatalf("expected version metadata, got %v", info.Metadata)
			}
		})
	}
}
