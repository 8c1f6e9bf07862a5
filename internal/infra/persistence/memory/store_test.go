package memory

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"pathwaycore/internal/graph/graphtest"
	"pathwaycore/pkg/domain"
)

func TestStoreIsolatesDocuments(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	if _, err := store.Load(ctx); !errors.Is(err, domain.ErrGraphNotStored) {
		t.Fatalf("expected ErrGraphNotStored, got %v", err)
	}

	doc := graphtest.Document()
	if err := store.Store(ctx, doc); err != nil {
		t.Fatalf("store: %v", err)
	}
	doc.Entities[0].Identifier.ID = "mutated"

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, graphtest.Document().Normalize()) {
		t.Fatal("stored document changed after caller mutation")
	}
	got.Pathways[0].Name = "mutated"
	again, _ := store.Load(ctx)
	if again.Pathways[0].Name == "mutated" {
		t.Fatal("loaded document shares state with the store")
	}
}

func TestStoreHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewStore()
	if err := store.Store(ctx, graphtest.Document()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
