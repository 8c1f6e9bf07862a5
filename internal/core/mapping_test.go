package core

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"pathwaycore/internal/graph/graphtest"
	"pathwaycore/pkg/domain"
)

func TestMapReportsEveryInput(t *testing.T) {
	svc := newLoadedService(t)
	got, err := svc.Map(context.Background(), []string{"UniProtX", "unknown123", "SHARED", "UniProtX"}, domain.AnalysisOptions{})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected three distinct inputs, got %d", len(got))
	}
	want := []domain.MappedIdentifier{{Resource: graphtest.UniProt, Identifier: "UniProtX", Species: graphtest.Human}}
	if !reflect.DeepEqual(got["UniProtX"], want) {
		t.Fatalf("unexpected mapping %v", got["UniProtX"])
	}
	unknown, present := got["unknown123"]
	if !present || unknown == nil || len(unknown) != 0 {
		t.Fatalf("expected present empty mapping, got %#v (present=%v)", unknown, present)
	}
	if len(got["SHARED"]) != 2 {
		t.Fatalf("expected both SHARED targets, got %v", got["SHARED"])
	}
	if svc.Stats().MappingsInFlight != 0 {
		t.Fatal("mapping counter leaked")
	}
	if svc.Stats().AnalysesInFlight != 0 {
		t.Fatal("mapping must not register analyses")
	}
}

func TestMapInteractorsAndProjection(t *testing.T) {
	svc := newLoadedService(t)
	ctx := context.Background()

	got, err := svc.Map(ctx, []string{"INTX"}, domain.AnalysisOptions{IncludeInteractors: true})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	want := []domain.MappedIdentifier{
		{Resource: graphtest.UniProt, Identifier: "HP12", Species: graphtest.Human, Interactor: "IA1"},
		{Resource: graphtest.UniProt, Identifier: "UniProtX", Species: graphtest.Human, Interactor: "IA1"},
	}
	if !reflect.DeepEqual(got["INTX"], want) {
		t.Fatalf("unexpected interactor mapping %v", got["INTX"])
	}

	projected, err := svc.Map(ctx, []string{"MP1", "MP4"}, domain.AnalysisOptions{TargetSpecies: "9606"})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if m := projected["MP1"]; len(m) != 1 || m[0].Identifier != "UniProtX" || m[0].Species != graphtest.Human {
		t.Fatalf("expected MP1 projected onto UniProtX, got %v", m)
	}
	if m := projected["MP4"]; len(m) != 0 {
		t.Fatalf("expected MP4 without projection to map to nothing, got %v", m)
	}
}

func TestMapRequiresLoadedGraph(t *testing.T) {
	svc := NewService()
	if _, err := svc.Map(context.Background(), []string{"UniProtX"}, domain.AnalysisOptions{}); !errors.Is(err, domain.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if svc.Stats().MappingsInFlight != 0 {
		t.Fatal("mapping counter leaked on failure")
	}
}
