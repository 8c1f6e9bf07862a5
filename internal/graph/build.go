package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"pathwaycore/pkg/domain"
	"pathwaycore/pkg/multimap"
)

// ErrInvalidDocument wraps every structural problem found by Build.
var ErrInvalidDocument = errors.New("invalid graph document")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidDocument, fmt.Sprintf(format, args...))
}

// Build constructs the canonical graph from doc and runs the statistics
// initialization pass. Dangling references are dropped (see
// domain.GraphDocument.Normalize); duplicated ids, cross-species pathway
// links, cycles and entities anchored on a non-main resource are rejected.
func Build(ctx context.Context, doc domain.GraphDocument) (*Graph, error) {
	doc = doc.Normalize()
	g := &Graph{
		version:           doc.Version,
		createdAt:         doc.CreatedAt,
		resources:         make(map[string]domain.Resource, len(doc.Resources)),
		entityByID:        make(map[int64]*EntityNode, len(doc.Entities)),
		hierarchies:       make(map[string]*PathwayHierarchy),
		pathways:          doc.Pathways,
		entityIndex:       multimap.NewIdentifiersMap[*EntityNode](),
		interactorIndex:   multimap.NewIdentifiersMap[*InteractorNode](),
		aliases:           make(map[*EntityNode][]domain.AliasRecord),
		interactorAliases: make(map[*InteractorNode][]domain.AliasRecord),
	}
	for _, r := range doc.Resources {
		if r.Name == "" {
			return nil, invalid("resource without name")
		}
		g.resources[r.Name] = r
	}
	species := make(map[string]domain.Species)
	for _, s := range doc.Species {
		species[speciesKey(s)] = s
	}
	speciesFor := func(name string) domain.Species {
		s := domain.Species{Name: name}
		if known, ok := species[speciesKey(s)]; ok {
			return known
		}
		species[speciesKey(s)] = s
		return s
	}

	if err := g.buildHierarchies(doc.Pathways, speciesFor); err != nil {
		return nil, err
	}
	if err := g.buildEntities(doc.Entities, speciesFor); err != nil {
		return nil, err
	}
	g.buildInteractors(doc.Interactors)

	for _, s := range species {
		g.species = append(g.species, s)
	}
	sort.Slice(g.species, func(i, j int) bool { return g.species[i].Name < g.species[j].Name })
	for _, r := range g.resources {
		if r.IsMain() {
			g.mainResources = append(g.mainResources, r)
		}
	}
	sort.Slice(g.mainResources, func(i, j int) bool { return g.mainResources[i].Name < g.mainResources[j].Name })

	if err := g.resetStatistics(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) resourceFor(name string, kind domain.ResourceKind) domain.Resource {
	if r, ok := g.resources[name]; ok {
		return r
	}
	r := domain.Resource{Name: name, Kind: kind}
	g.resources[name] = r
	return r
}

func (g *Graph) buildHierarchies(records []domain.PathwayRecord, speciesFor func(string) domain.Species) error {
	byID := make(map[string]*PathwayNode, len(records))
	for _, rec := range records {
		if _, dup := byID[rec.ID]; dup {
			return invalid("duplicate pathway %s", rec.ID)
		}
		sp := speciesFor(rec.Species)
		h, ok := g.hierarchies[speciesKey(sp)]
		if !ok {
			h = newPathwayHierarchy(sp)
			g.hierarchies[speciesKey(sp)] = h
		}
		node := &PathwayNode{ID: rec.ID, Name: rec.Name, Species: sp, data: newPathwayNodeData(&pathwayTotals{})}
		byID[rec.ID] = node
		h.nodes[rec.ID] = node
	}
	for _, rec := range records {
		node := byID[rec.ID]
		h := g.hierarchies[speciesKey(node.Species)]
		if rec.Parent == "" {
			h.roots = append(h.roots, node)
			continue
		}
		parent := byID[rec.Parent]
		if speciesKey(parent.Species) != speciesKey(node.Species) {
			return invalid("pathway %s and its parent %s belong to different species", rec.ID, rec.Parent)
		}
		node.parent = parent
		parent.children = append(parent.children, node)
	}
	for _, node := range byID {
		steps := 0
		for n := node.parent; n != nil; n = n.parent {
			if steps++; steps > len(byID) {
				return invalid("pathway %s is part of a cycle", node.ID)
			}
		}
	}
	return nil
}

func (g *Graph) buildEntities(records []domain.EntityRecord, speciesFor func(string) domain.Species) error {
	for _, rec := range records {
		if _, dup := g.entityByID[rec.ID]; dup {
			return invalid("duplicate entity %d", rec.ID)
		}
		e := &EntityNode{
			ID:          rec.ID,
			Species:     speciesFor(rec.Species),
			reactions:   multimap.NewSetMultimap[string, string](),
			projections: make(map[string]*EntityNode),
		}
		if rec.Resource != "" && rec.Identifier.ID != "" {
			res := g.resourceFor(rec.Resource, domain.ResourceMain)
			if !res.IsMain() {
				return invalid("entity %d anchored on non-main resource %s", rec.ID, res.Name)
			}
			main := domain.MainIdentifier{Resource: res, Value: domain.NewIdentifier(domain.IdentifierSpec{
				ID:            rec.Identifier.ID,
				Modifications: rec.Identifier.Modifications,
			})}
			e.main = &main
			g.entityIndex.Add(main.Value.ID, res, e)
		}
		pathwayIDs := make([]string, 0, len(rec.Pathways))
		for id := range rec.Pathways {
			pathwayIDs = append(pathwayIDs, id)
		}
		sort.Strings(pathwayIDs)
		h := g.hierarchies[speciesKey(e.Species)]
		for _, id := range pathwayIDs {
			if h == nil || h.nodes[id] == nil {
				return invalid("entity %d references pathway %s outside species %s", rec.ID, id, e.Species.Name)
			}
			e.pathways = append(e.pathways, id)
			e.reactions.AddAll(id, rec.Pathways[id]...)
		}
		for _, alias := range rec.Aliases {
			g.entityIndex.Add(alias.Text, g.resourceFor(alias.Resource, domain.ResourceAux), e)
		}
		g.aliases[e] = append([]domain.AliasRecord(nil), rec.Aliases...)
		g.entities = append(g.entities, e)
		g.entityByID[e.ID] = e
	}
	for _, rec := range records {
		e := g.entityByID[rec.ID]
		for _, target := range rec.Projections {
			p := g.entityByID[target]
			e.projections[speciesKey(p.Species)] = p
		}
	}
	return nil
}

func (g *Graph) buildInteractors(records []domain.InteractorRecord) {
	for _, rec := range records {
		in := &InteractorNode{
			Accession: rec.Accession,
			Resource:  g.resourceFor(rec.Resource, domain.ResourceInteractor),
			reactions: multimap.NewSetMultimap[string, string](),
		}
		for _, id := range rec.InteractsWith {
			in.link(g.entityByID[id])
		}
		g.interactorIndex.Add(in.Accession, in.Resource, in)
		for _, alias := range rec.Aliases {
			g.interactorIndex.Add(alias.Text, g.resourceFor(alias.Resource, domain.ResourceInteractor), in)
		}
		g.interactorAliases[in] = append([]domain.AliasRecord(nil), rec.Aliases...)
		g.interactors = append(g.interactors, in)
	}
}

type totalsBuilder struct {
	entities    map[domain.Resource]map[string]struct{}
	interactors map[domain.Resource]map[string]struct{}
	reactions   map[domain.Resource]map[string]struct{}
	all         map[string]struct{}
}

func newTotalsBuilder() *totalsBuilder {
	return &totalsBuilder{
		entities:    make(map[domain.Resource]map[string]struct{}),
		interactors: make(map[domain.Resource]map[string]struct{}),
		reactions:   make(map[domain.Resource]map[string]struct{}),
		all:         make(map[string]struct{}),
	}
}

func addTo(m map[domain.Resource]map[string]struct{}, r domain.Resource, keys ...string) {
	set, ok := m[r]
	if !ok {
		set = make(map[string]struct{})
		m[r] = set
	}
	for _, k := range keys {
		set[k] = struct{}{}
	}
}

func counts(m map[domain.Resource]map[string]struct{}) map[domain.Resource]int {
	out := make(map[domain.Resource]int, len(m))
	for r, set := range m {
		out[r] = len(set)
	}
	return out
}

type interactorLink struct {
	interactor *InteractorNode
	entity     *EntityNode
}

// resetStatistics recomputes every pathway total and species population and
// replaces all statistics buckets of the canonical hierarchies with empty
// ones. Species are processed in parallel; each goroutine only touches its own
// hierarchy. Build runs it; loaders must not hand out a graph before it has
// completed.
func (g *Graph) resetStatistics(ctx context.Context) error {
	g.ready = false
	entities := make(map[string][]*EntityNode)
	for _, e := range g.entities {
		key := speciesKey(e.Species)
		entities[key] = append(entities[key], e)
	}
	links := make(map[string][]interactorLink)
	for _, in := range g.interactors {
		for _, e := range in.interactsWith {
			key := speciesKey(e.Species)
			links[key] = append(links[key], interactorLink{interactor: in, entity: e})
		}
	}

	eg, ctx := errgroup.WithContext(ctx)
	for key, h := range g.hierarchies {
		key, h := key, h
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			h.initialize(entities[key], links[key])
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return fmt.Errorf("initialize statistics: %w", err)
	}
	g.ready = true
	return nil
}

func (h *PathwayHierarchy) initialize(entities []*EntityNode, links []interactorLink) {
	builders := make(map[*PathwayNode]*totalsBuilder, len(h.nodes))
	builderFor := func(n *PathwayNode) *totalsBuilder {
		b, ok := builders[n]
		if !ok {
			b = newTotalsBuilder()
			builders[n] = b
		}
		return b
	}
	pop := newTotalsBuilder()

	for _, e := range entities {
		main, ok := e.Identifier()
		if !ok {
			continue
		}
		key := main.Key()
		for _, pathwayID := range e.PathwayIDs() {
			reactions := e.Reactions(pathwayID)
			for n := h.nodes[pathwayID]; n != nil; n = n.parent {
				b := builderFor(n)
				addTo(b.entities, main.Resource, key)
				addTo(b.reactions, main.Resource, reactions...)
				for _, r := range reactions {
					b.all[r] = struct{}{}
				}
			}
			addTo(pop.entities, main.Resource, key)
		}
	}
	for _, link := range links {
		main, ok := link.entity.Identifier()
		if !ok {
			continue
		}
		for _, pathwayID := range link.entity.PathwayIDs() {
			reactions := link.entity.Reactions(pathwayID)
			for n := h.nodes[pathwayID]; n != nil; n = n.parent {
				b := builderFor(n)
				addTo(b.interactors, main.Resource, link.interactor.Accession)
				addTo(b.reactions, main.Resource, reactions...)
				for _, r := range reactions {
					b.all[r] = struct{}{}
				}
			}
			addTo(pop.interactors, main.Resource, link.interactor.Accession)
		}
	}

	for _, n := range h.nodes {
		b := builderFor(n)
		n.data = newPathwayNodeData(&pathwayTotals{
			entities:    counts(b.entities),
			interactors: counts(b.interactors),
			reactions:   counts(b.reactions),
			allReact:    len(b.all),
		})
	}
	h.population = &population{
		entities:    counts(pop.entities),
		interactors: counts(pop.interactors),
	}
}
