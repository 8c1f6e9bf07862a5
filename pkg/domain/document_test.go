package domain

import "testing"

func TestNormalizeDropsDanglingReferences(t *testing.T) {
	doc := GraphDocument{
		Pathways: []PathwayRecord{
			{ID: "P2", Name: "child", Species: "Human", Parent: "P1"},
			{ID: "P1", Name: "root", Species: "Human"},
			{ID: "P3", Name: "orphan", Species: "Human", Parent: "missing"},
		},
		Entities: []EntityRecord{
			{ID: 2, Species: "Human", Pathways: map[string][]string{"P2": {"R2", "R1", "R2"}, "PX": {"R9"}}, Projections: map[string]int64{"Mouse": 99, "Self": 2}},
			{ID: 1, Species: "Human"},
		},
		Interactors: []InteractorRecord{
			{Accession: "I2", InteractsWith: []int64{1, 1, 42}},
			{Accession: "I1", InteractsWith: []int64{42}},
		},
	}
	got := doc.Normalize()
	if got.Resources == nil || got.Species == nil {
		t.Fatalf("expected empty collections, got nil")
	}
	if got.Pathways[0].ID != "P1" || got.Pathways[2].Parent != "" {
		t.Fatalf("unexpected pathways %+v", got.Pathways)
	}
	if got.Entities[0].ID != 1 {
		t.Fatalf("entities not ordered: %+v", got.Entities)
	}
	ent := got.Entities[1]
	if _, ok := ent.Pathways["PX"]; ok {
		t.Fatalf("unknown pathway kept")
	}
	if r := ent.Pathways["P2"]; len(r) != 2 || r[0] != "R1" {
		t.Fatalf("reactions not deduplicated: %v", r)
	}
	if len(ent.Projections) != 0 {
		t.Fatalf("dangling projections kept: %v", ent.Projections)
	}
	if len(got.Interactors) != 1 || got.Interactors[0].Accession != "I2" || len(got.Interactors[0].InteractsWith) != 1 {
		t.Fatalf("unexpected interactors %+v", got.Interactors)
	}
	if len(doc.Entities[0].Pathways["P2"]) != 3 {
		t.Fatalf("normalize mutated its input")
	}
}
