package graph

import (
	"sort"

	"pathwaycore/pkg/domain"
	"pathwaycore/pkg/multimap"
)

// EntityNode is a canonical biological entity. It is created by Build and
// never mutated afterwards; analyses record their hits on a Snapshot instead.
type EntityNode struct {
	ID      int64
	Species domain.Species

	main        *domain.MainIdentifier
	pathways    []string
	reactions   *multimap.SetMultimap[string, string]
	projections map[string]*EntityNode
}

// Identifier returns the entity's main identifier, if it has one.
func (e *EntityNode) Identifier() (domain.MainIdentifier, bool) {
	if e == nil || e.main == nil {
		return domain.MainIdentifier{}, false
	}
	return *e.main, true
}

// PathwayIDs lists the pathways the entity takes part in, by id.
func (e *EntityNode) PathwayIDs() []string {
	out := make([]string, len(e.pathways))
	copy(out, e.pathways)
	return out
}

// Reactions lists the reactions the entity takes part in within pathwayID.
func (e *EntityNode) Reactions(pathwayID string) []string {
	return e.reactions.Get(pathwayID)
}

// Projection returns the orthologous entity in species, if any. Projections
// point across the same canonical graph and carry no ownership.
func (e *EntityNode) Projection(species domain.Species) (*EntityNode, bool) {
	if e == nil {
		return nil, false
	}
	p, ok := e.projections[speciesKey(species)]
	return p, ok
}

// ProjectedSpecies lists the species the entity has a projection into.
func (e *EntityNode) ProjectedSpecies() []domain.Species {
	out := make([]domain.Species, 0, len(e.projections))
	for _, p := range e.projections {
		out = append(out, p.Species)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// InteractorNode is an external accession linked to canonical entities.
type InteractorNode struct {
	Accession string
	Resource  domain.Resource

	interactsWith []*EntityNode
	reactions     *multimap.SetMultimap[string, string]
}

// InteractsWith returns the canonical entities the interactor is linked to.
func (i *InteractorNode) InteractsWith() []*EntityNode {
	out := make([]*EntityNode, len(i.interactsWith))
	copy(out, i.interactsWith)
	return out
}

// PathwayReactions returns the pathway to reaction multimap aggregated from
// every entity the interactor interacts with.
func (i *InteractorNode) PathwayReactions() map[string][]string {
	out := make(map[string][]string, i.reactions.Len())
	for _, pathwayID := range i.reactions.Keys() {
		out[pathwayID] = i.reactions.Get(pathwayID)
	}
	return out
}

func (i *InteractorNode) link(entity *EntityNode) {
	i.interactsWith = append(i.interactsWith, entity)
	for _, pathwayID := range entity.PathwayIDs() {
		i.reactions.AddAll(pathwayID, entity.Reactions(pathwayID)...)
	}
}
