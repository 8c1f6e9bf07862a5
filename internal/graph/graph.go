// Package graph holds the canonical, read-only knowledge graph: entities,
// interactors, per-species pathway hierarchies and the identifier indexes used
// to resolve raw text into graph nodes. Analyses never mutate it; they work on
// Snapshots obtained from Clone.
package graph

import (
	"sort"
	"time"

	"pathwaycore/pkg/domain"
	"pathwaycore/pkg/multimap"
)

// Graph is the canonical graph. It is immutable once Build returns and may be
// shared by any number of goroutines without locking.
type Graph struct {
	version   string
	createdAt time.Time

	resources     map[string]domain.Resource
	mainResources []domain.Resource
	species       []domain.Species

	entities    []*EntityNode
	entityByID  map[int64]*EntityNode
	interactors []*InteractorNode
	hierarchies map[string]*PathwayHierarchy
	pathways    []domain.PathwayRecord

	entityIndex     *multimap.IdentifiersMap[*EntityNode]
	interactorIndex *multimap.IdentifiersMap[*InteractorNode]

	aliases           map[*EntityNode][]domain.AliasRecord
	interactorAliases map[*InteractorNode][]domain.AliasRecord

	ready bool
}

// Version returns the document version the graph was built from.
func (g *Graph) Version() string {
	if g == nil {
		return ""
	}
	return g.version
}

// Ready reports whether the statistics initialization pass has completed.
func (g *Graph) Ready() bool { return g != nil && g.ready }

// Entities returns every canonical entity ordered by id.
func (g *Graph) Entities() []*EntityNode {
	out := make([]*EntityNode, len(g.entities))
	copy(out, g.entities)
	return out
}

// Entity returns the entity with id.
func (g *Graph) Entity(id int64) (*EntityNode, bool) {
	e, ok := g.entityByID[id]
	return e, ok
}

// Interactors returns every interactor ordered by accession.
func (g *Graph) Interactors() []*InteractorNode {
	out := make([]*InteractorNode, len(g.interactors))
	copy(out, g.interactors)
	return out
}

// EntityIndex returns the identifier index of canonical entities.
func (g *Graph) EntityIndex() *multimap.IdentifiersMap[*EntityNode] { return g.entityIndex }

// InteractorIndex returns the identifier index of interactors.
func (g *Graph) InteractorIndex() *multimap.IdentifiersMap[*InteractorNode] {
	return g.interactorIndex
}

// MainResources lists the resources able to anchor entities, by name.
func (g *Graph) MainResources() []domain.Resource {
	out := make([]domain.Resource, len(g.mainResources))
	copy(out, g.mainResources)
	return out
}

// Species lists every species known to the graph, by name.
func (g *Graph) Species() []domain.Species {
	out := make([]domain.Species, len(g.species))
	copy(out, g.species)
	return out
}

// LookupSpecies resolves a species by tax id or name.
func (g *Graph) LookupSpecies(query string) (domain.Species, bool) {
	for _, s := range g.species {
		if s.Matches(query) {
			return s, true
		}
	}
	return domain.Species{}, false
}

// Hierarchy returns the canonical hierarchy of species. Callers must treat it
// as read-only.
func (g *Graph) Hierarchy(species domain.Species) (*PathwayHierarchy, bool) {
	h, ok := g.hierarchies[speciesKey(species)]
	return h, ok
}

// Clone returns a fresh snapshot: every hierarchy is copied with empty found
// sets while totals, topology metadata and entity references stay shared.
func (g *Graph) Clone() (*Snapshot, error) {
	if !g.Ready() {
		return nil, domain.NotReadyError{Reason: "statistics not initialized"}
	}
	hierarchies := make(map[string]*PathwayHierarchy, len(g.hierarchies))
	species := make([]domain.Species, 0, len(g.hierarchies))
	for _, s := range g.species {
		if h, ok := g.hierarchies[speciesKey(s)]; ok {
			hierarchies[speciesKey(s)] = h.clone()
			species = append(species, s)
		}
	}
	return newSnapshot(species, hierarchies), nil
}

// Document converts the graph back into its persistence form.
func (g *Graph) Document() domain.GraphDocument {
	doc := domain.GraphDocument{
		Version:   g.version,
		CreatedAt: g.createdAt,
		Species:   g.Species(),
		Pathways:  append([]domain.PathwayRecord(nil), g.pathways...),
	}
	for _, r := range g.resources {
		doc.Resources = append(doc.Resources, r)
	}
	sort.Slice(doc.Resources, func(i, j int) bool { return doc.Resources[i].Name < doc.Resources[j].Name })
	for _, e := range g.entities {
		rec := domain.EntityRecord{
			ID:          e.ID,
			Species:     e.Species.Name,
			Aliases:     append([]domain.AliasRecord(nil), g.aliases[e]...),
			Pathways:    make(map[string][]string),
			Projections: make(map[string]int64),
		}
		if main, ok := e.Identifier(); ok {
			rec.Resource = main.Resource.Name
			rec.Identifier = main.Value
		}
		for _, pathwayID := range e.PathwayIDs() {
			rec.Pathways[pathwayID] = e.Reactions(pathwayID)
		}
		for _, p := range e.projections {
			rec.Projections[p.Species.Name] = p.ID
		}
		doc.Entities = append(doc.Entities, rec)
	}
	for _, in := range g.interactors {
		rec := domain.InteractorRecord{
			Accession: in.Accession,
			Resource:  in.Resource.Name,
			Aliases:   append([]domain.AliasRecord(nil), g.interactorAliases[in]...),
		}
		for _, e := range in.interactsWith {
			rec.InteractsWith = append(rec.InteractsWith, e.ID)
		}
		doc.Interactors = append(doc.Interactors, rec)
	}
	return doc.Normalize()
}
