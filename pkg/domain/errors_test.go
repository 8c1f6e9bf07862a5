package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorTaxonomy(t *testing.T) {
	notReady := fmt.Errorf("take snapshot: %w", NotReadyError{Reason: "graph loading"})
	if !errors.Is(notReady, ErrNotReady) {
		t.Fatalf("expected NotReadyError to match ErrNotReady")
	}
	if !IsRetryable(notReady) {
		t.Fatalf("expected not ready to be retryable")
	}
	if (NotReadyError{}).Error() != ErrNotReady.Error() {
		t.Fatalf("unexpected empty reason message")
	}

	species := fmt.Errorf("compare: %w", SpeciesNotFoundError{Species: "Dragon"})
	if !errors.Is(species, ErrSpeciesNotFound) {
		t.Fatalf("expected species error to match sentinel")
	}
	if IsRetryable(species) {
		t.Fatalf("species errors are user errors")
	}
	var typed SpeciesNotFoundError
	if !errors.As(species, &typed) || typed.Species != "Dragon" {
		t.Fatalf("expected typed species error, got %v", typed)
	}
}

func TestResourceAndSpecies(t *testing.T) {
	if !MainResource("UniProt").IsMain() {
		t.Fatalf("main resource should be main")
	}
	if AuxResource("Symbol").IsMain() || InteractorResource("IntAct").IsMain() {
		t.Fatalf("aux and interactor resources cannot anchor entities")
	}
	human := Species{TaxID: "9606", Name: "Homo sapiens"}
	for _, q := range []string{"9606", "homo sapiens", " Homo sapiens "} {
		if !human.Matches(q) {
			t.Fatalf("expected %q to match", q)
		}
	}
	if human.Matches("") || human.Matches("Mus musculus") {
		t.Fatalf("unexpected species match")
	}
	a := MainIdentifier{Resource: MainResource("UniProt"), Value: NewIdentifier(IdentifierSpec{ID: "P1", ExpressionValues: []*float64{Float(1)}})}
	b := MainIdentifier{Resource: MainResource("UniProt"), Value: NewIdentifier(IdentifierSpec{ID: "P1"})}
	if a.Key() != b.Key() {
		t.Fatalf("expression values must not change main identifier key")
	}
}
