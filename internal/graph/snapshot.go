package graph

import (
	"math"
	"sort"
	"time"

	"pathwaycore/pkg/domain"
)

// Snapshot is the per-analysis working copy of every species hierarchy plus
// the analysis bookkeeping (found, not found, resolved sample). It is owned by
// exactly one analysis and never returned to the pool.
type Snapshot struct {
	token     string
	createdAt time.Time
	options   domain.AnalysisOptions

	species     []domain.Species
	hierarchies map[string]*PathwayHierarchy

	submitted int
	found     *domain.IdentifierSet
	notFound  *domain.IdentifierSet
	resolved  map[string]struct{}
	samples   map[domain.Resource]map[string]struct{}
	touched   map[*PathwayNode]struct{}
}

func newSnapshot(species []domain.Species, hierarchies map[string]*PathwayHierarchy) *Snapshot {
	return &Snapshot{
		species:     species,
		hierarchies: hierarchies,
		found:       domain.NewIdentifierSet(),
		notFound:    domain.NewIdentifierSet(),
		resolved:    make(map[string]struct{}),
		samples:     make(map[domain.Resource]map[string]struct{}),
		touched:     make(map[*PathwayNode]struct{}),
	}
}

// Begin stamps the snapshot with the analysis token, start time and options.
func (s *Snapshot) Begin(token string, at time.Time, opts domain.AnalysisOptions, submitted int) {
	s.token = token
	s.createdAt = at
	s.options = opts
	s.submitted = submitted
}

// Token returns the analysis token assigned by Begin.
func (s *Snapshot) Token() string { return s.token }

// Options returns the options the analysis ran with.
func (s *Snapshot) Options() domain.AnalysisOptions { return s.options }

// Species lists the species with a hierarchy in the snapshot.
func (s *Snapshot) Species() []domain.Species {
	out := make([]domain.Species, len(s.species))
	copy(out, s.species)
	return out
}

// Hierarchy returns the snapshot's hierarchy for species.
func (s *Snapshot) Hierarchy(species domain.Species) (*PathwayHierarchy, bool) {
	h, ok := s.hierarchies[speciesKey(species)]
	return h, ok
}

// Pathway finds a pathway node by id in any species.
func (s *Snapshot) Pathway(id string) (*PathwayNode, bool) {
	for _, sp := range s.species {
		if n, ok := s.hierarchies[speciesKey(sp)].Node(id); ok {
			return n, true
		}
	}
	return nil, false
}

// MarkFound records that submitted resolved to at least one node.
func (s *Snapshot) MarkFound(submitted domain.Identifier) { s.found.Add(submitted) }

// MarkNotFound records that submitted resolved to nothing.
func (s *Snapshot) MarkNotFound(submitted domain.Identifier) { s.notFound.Add(submitted) }

// RecordEntityHit records node as hit by submitted. The hit is the node's main
// identifier carrying the submitted expression values; it is added to every
// pathway the node takes part in and to all of their ancestors. It reports
// false when the node has no main identifier and therefore cannot be counted.
func (s *Snapshot) RecordEntityHit(submitted domain.Identifier, node *EntityNode) bool {
	main, ok := node.Identifier()
	if !ok {
		return false
	}
	hit := domain.MainIdentifier{
		Resource: main.Resource,
		Value: domain.NewIdentifier(domain.IdentifierSpec{
			ID:               main.Value.ID,
			ExpressionValues: submitted.ExpressionValues,
			Modifications:    main.Value.Modifications,
		}),
	}
	s.resolve(main.Resource, hit.Key())
	h, ok := s.hierarchies[speciesKey(node.Species)]
	if !ok {
		return true
	}
	for _, pathwayID := range node.PathwayIDs() {
		reactions := node.Reactions(pathwayID)
		for n, ok := h.nodes[pathwayID]; ok && n != nil; n = n.parent {
			n.data.addEntity(hit, reactions)
			s.touched[n] = struct{}{}
		}
	}
	return true
}

// RecordInteractorHit records interactor as hit through node, counting it
// under the node's main resource.
func (s *Snapshot) RecordInteractorHit(interactor *InteractorNode, node *EntityNode) bool {
	main, ok := node.Identifier()
	if !ok {
		return false
	}
	s.resolve(main.Resource, "interactor|"+interactor.Resource.Name+"|"+interactor.Accession)
	h, ok := s.hierarchies[speciesKey(node.Species)]
	if !ok {
		return true
	}
	for _, pathwayID := range node.PathwayIDs() {
		reactions := node.Reactions(pathwayID)
		for n, ok := h.nodes[pathwayID]; ok && n != nil; n = n.parent {
			n.data.addInteractor(main.Resource, interactor.Accession, reactions)
			s.touched[n] = struct{}{}
		}
	}
	return true
}

func (s *Snapshot) resolve(res domain.Resource, key string) {
	s.resolved[key] = struct{}{}
	sample, ok := s.samples[res]
	if !ok {
		sample = make(map[string]struct{})
		s.samples[res] = sample
	}
	sample[key] = struct{}{}
}

// NotFound returns the identifiers that resolved to nothing, ordered by key.
func (s *Snapshot) NotFound() []domain.Identifier { return s.notFound.Sorted() }

// FoundCount returns the number of submitted identifiers that resolved.
func (s *Snapshot) FoundCount() int { return s.found.Len() }

// ResolvedCount returns the number of distinct main identifiers (and
// interactor accessions) hit.
func (s *Snapshot) ResolvedCount() int { return len(s.resolved) }

// SampleSize is the resolved count plus the not-found count.
func (s *Snapshot) SampleSize() int { return len(s.resolved) + s.notFound.Len() }

// ResourceSampleSize returns the resolved sample size for resource.
func (s *Snapshot) ResourceSampleSize(r domain.Resource) int { return len(s.samples[r]) }

// TouchedPathways returns every pathway node with at least one hit, ordered by
// species then id.
func (s *Snapshot) TouchedPathways() []*PathwayNode {
	out := make([]*PathwayNode, 0, len(s.touched))
	for n := range s.touched {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Species.Name != out[j].Species.Name {
			return out[i].Species.Name < out[j].Species.Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Summary returns the analysis counters.
func (s *Snapshot) Summary() domain.AnalysisSummary {
	sizes := make(map[string]int, len(s.samples))
	for r, sample := range s.samples {
		sizes[r.Name] = len(sample)
	}
	return domain.AnalysisSummary{
		SampleSize:          s.SampleSize(),
		Submitted:           s.submitted,
		Found:               s.found.Len(),
		NotFound:            s.notFound.Len(),
		ResolvedMain:        len(s.resolved),
		ResourceSampleSizes: sizes,
		PathwaysHit:         len(s.touched),
	}
}

// Result converts the snapshot into a plain result value. Pathways are sorted
// by combined p-value, then species and id.
func (s *Snapshot) Result() domain.AnalysisResult {
	touched := s.TouchedPathways()
	pathways := make([]domain.PathwayResult, 0, len(touched))
	for _, n := range touched {
		res := domain.PathwayResult{
			ID:        n.ID,
			Name:      n.Name,
			Species:   n.Species.Name,
			Combined:  n.data.CombinedStatistics(),
			Resources: make(map[string]domain.PathwayStatistics),
		}
		for _, r := range n.data.Resources() {
			res.Resources[r.Name] = n.data.Statistics(r)
		}
		pathways = append(pathways, res)
	}
	sort.SliceStable(pathways, func(i, j int) bool {
		pi, pj := pathways[i].Combined.PValue, pathways[j].Combined.PValue
		if pi != pj && !math.IsNaN(pi) && !math.IsNaN(pj) {
			return pi < pj
		}
		if pathways[i].Species != pathways[j].Species {
			return pathways[i].Species < pathways[j].Species
		}
		return pathways[i].ID < pathways[j].ID
	})
	notFound := s.NotFound()
	if notFound == nil {
		notFound = []domain.Identifier{}
	}
	return domain.AnalysisResult{
		Token:     s.token,
		CreatedAt: s.createdAt,
		Options:   s.options,
		Summary:   s.Summary(),
		NotFound:  notFound,
		Pathways:  pathways,
	}
}
