// Package graphtest provides a small two-species graph document shared by the
// engine tests.
package graphtest

import (
	"fmt"
	"time"

	"pathwaycore/pkg/domain"
)

// Well-known names of the fixture.
const (
	Human = "Homo sapiens"
	Mouse = "Mus musculus"

	UniProt = "UniProt"
	ChEBI   = "ChEBI"
	Symbol  = "Symbol"
	IntAct  = "IntAct"

	SignalTransduction = "R-HSA-1"
	SignalingByX       = "R-HSA-11"
	Metabolism         = "R-HSA-2"
	MouseSignaling     = "R-MMU-1"
)

// Resources of the fixture.
var (
	UniProtResource = domain.MainResource(UniProt)
	ChEBIResource   = domain.MainResource(ChEBI)
	SymbolResource  = domain.AuxResource(Symbol)
	IntActResource  = domain.InteractorResource(IntAct)
)

// CreatedAt is the fixed creation time of the fixture document.
var CreatedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// Document returns the fixture graph:
//
//	Homo sapiens (9606)
//	  R-HSA-1 Signal Transduction          entities 7-10, plus R-HSA-11 by propagation
//	    R-HSA-11 Signaling by X             entities 1-6 (UniProtX is 1), 11
//	  R-HSA-2 Metabolism                   entities 11-13
//	Mus musculus (10090)
//	  R-MMU-1 Signal Transduction          entities 101-105
//
// Entity 11 is ChEBI CHEBI:15422; every other human entity is a UniProt
// protein. Mouse entities 101, 102 and 103 project onto human 1, 2 and 12;
// 104 has no projection and 105 has no main identifier. The Symbol alias
// GENEX names entity 1 and SHARED names entities 2 and 12. Interactor IA1
// (alias INTX) interacts with entities 1 and 12.
func Document() domain.GraphDocument {
	doc := domain.GraphDocument{
		Version:   "fixture-1",
		CreatedAt: CreatedAt,
		Resources: []domain.Resource{UniProtResource, ChEBIResource, SymbolResource, IntActResource},
		Species: []domain.Species{
			{TaxID: "9606", Name: Human},
			{TaxID: "10090", Name: Mouse},
		},
		Pathways: []domain.PathwayRecord{
			{ID: SignalTransduction, Name: "Signal Transduction", Species: Human},
			{ID: SignalingByX, Name: "Signaling by X", Species: Human, Parent: SignalTransduction},
			{ID: Metabolism, Name: "Metabolism", Species: Human},
			{ID: MouseSignaling, Name: "Signal Transduction", Species: Mouse},
		},
	}

	protein := func(id int64, acc, pathway string) domain.EntityRecord {
		return domain.EntityRecord{
			ID:         id,
			Species:    Human,
			Resource:   UniProt,
			Identifier: domain.Identifier{ID: acc},
			Pathways:   map[string][]string{pathway: {fmt.Sprintf("R-HSA-R%d", id)}},
		}
	}
	for id := int64(1); id <= 10; id++ {
		pathway := SignalingByX
		if id > 6 {
			pathway = SignalTransduction
		}
		acc := fmt.Sprintf("HP%d", id)
		if id == 1 {
			acc = "UniProtX"
		}
		doc.Entities = append(doc.Entities, protein(id, acc, pathway))
	}
	doc.Entities[0].Aliases = []domain.AliasRecord{{Resource: Symbol, Text: "GENEX"}}
	doc.Entities[1].Aliases = []domain.AliasRecord{{Resource: Symbol, Text: "SHARED"}}

	doc.Entities = append(doc.Entities,
		domain.EntityRecord{
			ID:         11,
			Species:    Human,
			Resource:   ChEBI,
			Identifier: domain.Identifier{ID: "CHEBI:15422"},
			Pathways: map[string][]string{
				Metabolism:   {"R-HSA-R11"},
				SignalingByX: {"R-HSA-R11b"},
			},
		},
		protein(12, "HP12", Metabolism),
		protein(13, "HP13", Metabolism),
	)
	doc.Entities[11].Aliases = []domain.AliasRecord{{Resource: Symbol, Text: "SHARED"}}

	mouse := func(id int64, acc string, human int64) domain.EntityRecord {
		rec := domain.EntityRecord{
			ID:         id,
			Species:    Mouse,
			Resource:   UniProt,
			Identifier: domain.Identifier{ID: acc},
			Pathways:   map[string][]string{MouseSignaling: {fmt.Sprintf("R-MMU-R%d", id)}},
		}
		if human != 0 {
			rec.Projections = map[string]int64{Human: human}
		}
		return rec
	}
	doc.Entities = append(doc.Entities,
		mouse(101, "MP1", 1),
		mouse(102, "MP2", 2),
		mouse(103, "MP3", 12),
		mouse(104, "MP4", 0),
		domain.EntityRecord{
			ID:       105,
			Species:  Mouse,
			Pathways: map[string][]string{MouseSignaling: {"R-MMU-R105"}},
		},
	)

	doc.Interactors = []domain.InteractorRecord{{
		Accession:     "IA1",
		Resource:      IntAct,
		Aliases:       []domain.AliasRecord{{Resource: IntAct, Text: "INTX"}},
		InteractsWith: []int64{1, 12},
	}}
	return doc
}

// Identifier builds a submitted identifier with optional expression values.
func Identifier(id string, expression ...float64) domain.Identifier {
	spec := domain.IdentifierSpec{ID: id}
	for _, v := range expression {
		spec.ExpressionValues = append(spec.ExpressionValues, domain.Float(v))
	}
	return domain.NewIdentifier(spec)
}
