package graph

import (
	"math"
	"sort"
	"strings"

	"pathwaycore/pkg/domain"
)

func speciesKey(s domain.Species) string { return strings.ToLower(s.Name) }

// pathwayTotals holds the build-time totals of a pathway node. It is computed
// once by Build and shared, read-only, by every clone of the node.
type pathwayTotals struct {
	entities    map[domain.Resource]int
	interactors map[domain.Resource]int
	reactions   map[domain.Resource]int
	allReact    int
}

// population holds the per-species denominators of the enrichment test.
type population struct {
	entities    map[domain.Resource]int
	interactors map[domain.Resource]int
}

type score struct {
	pValue float64
	fdr    float64
}

// PathwayNodeData records, per main resource, the totals and the hits of one
// pathway node. Totals are fixed at build time; found sets start empty on
// every cloned snapshot and are filled by exactly one analysis.
type PathwayNodeData struct {
	totals *pathwayTotals

	entities    map[domain.Resource]map[string]domain.MainIdentifier
	interactors map[domain.Resource]map[string]struct{}
	reactions   map[domain.Resource]map[string]struct{}
	allReact    map[string]struct{}

	scores   map[domain.Resource]score
	combined score
}

func newPathwayNodeData(totals *pathwayTotals) *PathwayNodeData {
	return &PathwayNodeData{
		totals:      totals,
		entities:    make(map[domain.Resource]map[string]domain.MainIdentifier),
		interactors: make(map[domain.Resource]map[string]struct{}),
		reactions:   make(map[domain.Resource]map[string]struct{}),
		allReact:    make(map[string]struct{}),
		scores:      make(map[domain.Resource]score),
		combined:    score{pValue: 1, fdr: 1},
	}
}

func (d *PathwayNodeData) addEntity(hit domain.MainIdentifier, reactions []string) {
	res := hit.Resource
	found, ok := d.entities[res]
	if !ok {
		found = make(map[string]domain.MainIdentifier)
		d.entities[res] = found
	}
	if _, dup := found[hit.Key()]; !dup {
		found[hit.Key()] = hit
	}
	d.addReactions(res, reactions)
}

func (d *PathwayNodeData) addInteractor(res domain.Resource, accession string, reactions []string) {
	found, ok := d.interactors[res]
	if !ok {
		found = make(map[string]struct{})
		d.interactors[res] = found
	}
	found[accession] = struct{}{}
	d.addReactions(res, reactions)
}

func (d *PathwayNodeData) addReactions(res domain.Resource, reactions []string) {
	found, ok := d.reactions[res]
	if !ok {
		found = make(map[string]struct{})
		d.reactions[res] = found
	}
	for _, r := range reactions {
		found[r] = struct{}{}
		d.allReact[r] = struct{}{}
	}
}

// HasHits reports whether any entity or interactor was recorded.
func (d *PathwayNodeData) HasHits() bool {
	return len(d.entities) > 0 || len(d.interactors) > 0
}

// Resources lists the main resources with a non-zero total, by name.
func (d *PathwayNodeData) Resources() []domain.Resource {
	seen := make(map[domain.Resource]struct{})
	for r, n := range d.totals.entities {
		if n > 0 {
			seen[r] = struct{}{}
		}
	}
	for r, n := range d.totals.interactors {
		if n > 0 {
			seen[r] = struct{}{}
		}
	}
	out := make([]domain.Resource, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// TotalEntities returns the build-time entity total for resource.
func (d *PathwayNodeData) TotalEntities(r domain.Resource) int { return d.totals.entities[r] }

// FoundEntities returns the number of distinct entities hit for resource.
func (d *PathwayNodeData) FoundEntities(r domain.Resource) int { return len(d.entities[r]) }

// TotalInteractors returns the build-time interactor total for resource.
func (d *PathwayNodeData) TotalInteractors(r domain.Resource) int { return d.totals.interactors[r] }

// FoundInteractors returns the number of distinct interactors hit for resource.
func (d *PathwayNodeData) FoundInteractors(r domain.Resource) int { return len(d.interactors[r]) }

// TotalReactions returns the build-time reaction total for resource.
func (d *PathwayNodeData) TotalReactions(r domain.Resource) int { return d.totals.reactions[r] }

// FoundReactions returns the number of distinct reactions hit for resource.
func (d *PathwayNodeData) FoundReactions(r domain.Resource) int { return len(d.reactions[r]) }

// TotalEntitiesCombined sums entity totals over every resource.
func (d *PathwayNodeData) TotalEntitiesCombined() int { return sumInts(d.totals.entities) }

// FoundEntitiesCombined sums entity hits over every resource.
func (d *PathwayNodeData) FoundEntitiesCombined() int {
	n := 0
	for _, found := range d.entities {
		n += len(found)
	}
	return n
}

// TotalInteractorsCombined sums interactor totals over every resource.
func (d *PathwayNodeData) TotalInteractorsCombined() int { return sumInts(d.totals.interactors) }

// FoundInteractorsCombined counts distinct interactor accessions hit.
func (d *PathwayNodeData) FoundInteractorsCombined() int {
	seen := make(map[string]struct{})
	for _, found := range d.interactors {
		for acc := range found {
			seen[acc] = struct{}{}
		}
	}
	return len(seen)
}

// TotalReactionsCombined returns the distinct reactions of the pathway subtree.
func (d *PathwayNodeData) TotalReactionsCombined() int { return d.totals.allReact }

// FoundReactionsCombined returns the distinct reactions hit.
func (d *PathwayNodeData) FoundReactionsCombined() int { return len(d.allReact) }

// FoundIdentifiers returns the main identifiers hit for resource, by key. They
// carry the submitted expression values.
func (d *PathwayNodeData) FoundIdentifiers(r domain.Resource) []domain.MainIdentifier {
	found := d.entities[r]
	keys := make([]string, 0, len(found))
	for k := range found {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]domain.MainIdentifier, 0, len(keys))
	for _, k := range keys {
		out = append(out, found[k])
	}
	return out
}

// SetScores stores the significance of the pathway for resource.
func (d *PathwayNodeData) SetScores(r domain.Resource, pValue, fdr float64) {
	d.scores[r] = score{pValue: pValue, fdr: fdr}
}

// SetCombinedScores stores the significance across all resources.
func (d *PathwayNodeData) SetCombinedScores(pValue, fdr float64) {
	d.combined = score{pValue: pValue, fdr: fdr}
}

// Statistics returns the finalized view for resource.
func (d *PathwayNodeData) Statistics(r domain.Resource) domain.PathwayStatistics {
	s, ok := d.scores[r]
	if !ok {
		s = score{pValue: 1, fdr: 1}
	}
	return domain.PathwayStatistics{
		EntitiesTotal:    d.TotalEntities(r),
		EntitiesFound:    d.FoundEntities(r),
		EntitiesRatio:    ratio(d.FoundEntities(r), d.TotalEntities(r)),
		InteractorsTotal: d.TotalInteractors(r),
		InteractorsFound: d.FoundInteractors(r),
		ReactionsTotal:   d.TotalReactions(r),
		ReactionsFound:   d.FoundReactions(r),
		ReactionsRatio:   ratio(d.FoundReactions(r), d.TotalReactions(r)),
		PValue:           s.pValue,
		FDR:              s.fdr,
		Expression:       meanExpression(d.FoundIdentifiers(r)),
	}
}

// CombinedStatistics returns the finalized view across all resources.
func (d *PathwayNodeData) CombinedStatistics() domain.PathwayStatistics {
	var all []domain.MainIdentifier
	for _, r := range d.Resources() {
		all = append(all, d.FoundIdentifiers(r)...)
	}
	return domain.PathwayStatistics{
		EntitiesTotal:    d.TotalEntitiesCombined(),
		EntitiesFound:    d.FoundEntitiesCombined(),
		EntitiesRatio:    ratio(d.FoundEntitiesCombined(), d.TotalEntitiesCombined()),
		InteractorsTotal: d.TotalInteractorsCombined(),
		InteractorsFound: d.FoundInteractorsCombined(),
		ReactionsTotal:   d.TotalReactionsCombined(),
		ReactionsFound:   d.FoundReactionsCombined(),
		ReactionsRatio:   ratio(d.FoundReactionsCombined(), d.TotalReactionsCombined()),
		PValue:           d.combined.pValue,
		FDR:              d.combined.fdr,
		Expression:       meanExpression(all),
	}
}

func ratio(found, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(found) / float64(total)
}

func sumInts(m map[domain.Resource]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}

// meanExpression averages expression columns, ignoring absent values. A
// column with no value at all stays nil.
func meanExpression(ids []domain.MainIdentifier) []*float64 {
	width := 0
	for _, id := range ids {
		if n := len(id.Value.ExpressionValues); n > width {
			width = n
		}
	}
	if width == 0 {
		return nil
	}
	sums := make([]float64, width)
	counts := make([]int, width)
	for _, id := range ids {
		for col, v := range id.Value.ExpressionValues {
			if v == nil || math.IsNaN(*v) {
				continue
			}
			sums[col] += *v
			counts[col]++
		}
	}
	out := make([]*float64, width)
	for col := range out {
		if counts[col] > 0 {
			out[col] = domain.Float(sums[col] / float64(counts[col]))
		}
	}
	return out
}

// PathwayNode is one pathway in a per-species hierarchy.
type PathwayNode struct {
	ID      string
	Name    string
	Species domain.Species

	parent   *PathwayNode
	children []*PathwayNode
	data     *PathwayNodeData
}

// Parent returns the enclosing pathway, nil for top-level pathways.
func (n *PathwayNode) Parent() *PathwayNode { return n.parent }

// Children returns the direct sub-pathways.
func (n *PathwayNode) Children() []*PathwayNode {
	out := make([]*PathwayNode, len(n.children))
	copy(out, n.children)
	return out
}

// Data returns the statistics bucket of the node.
func (n *PathwayNode) Data() *PathwayNodeData { return n.data }

// PathwayHierarchy is the pathway forest of one species.
type PathwayHierarchy struct {
	Species domain.Species

	roots      []*PathwayNode
	nodes      map[string]*PathwayNode
	population *population
}

func newPathwayHierarchy(species domain.Species) *PathwayHierarchy {
	return &PathwayHierarchy{
		Species: species,
		nodes:   make(map[string]*PathwayNode),
		population: &population{
			entities:    make(map[domain.Resource]int),
			interactors: make(map[domain.Resource]int),
		},
	}
}

// Node returns the pathway with id.
func (h *PathwayHierarchy) Node(id string) (*PathwayNode, bool) {
	n, ok := h.nodes[id]
	return n, ok
}

// Roots returns the top-level pathways.
func (h *PathwayHierarchy) Roots() []*PathwayNode {
	out := make([]*PathwayNode, len(h.roots))
	copy(out, h.roots)
	return out
}

// Nodes returns every pathway of the hierarchy ordered by id.
func (h *PathwayHierarchy) Nodes() []*PathwayNode {
	out := make([]*PathwayNode, 0, len(h.nodes))
	for _, n := range h.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PopulationEntities is the number of distinct entities of resource taking
// part in any pathway of the species.
func (h *PathwayHierarchy) PopulationEntities(r domain.Resource) int {
	return h.population.entities[r]
}

// PopulationInteractors is the number of distinct interactors linked to
// entities of resource taking part in any pathway of the species.
func (h *PathwayHierarchy) PopulationInteractors(r domain.Resource) int {
	return h.population.interactors[r]
}

// PopulationCombined sums the entity (and optionally interactor) populations
// over every resource.
func (h *PathwayHierarchy) PopulationCombined(includeInteractors bool) int {
	n := sumInts(h.population.entities)
	if includeInteractors {
		n += sumInts(h.population.interactors)
	}
	return n
}

// clone copies the hierarchy shape with fresh, empty statistics buckets. The
// totals and the population are shared with the source.
func (h *PathwayHierarchy) clone() *PathwayHierarchy {
	out := &PathwayHierarchy{
		Species:    h.Species,
		roots:      make([]*PathwayNode, 0, len(h.roots)),
		nodes:      make(map[string]*PathwayNode, len(h.nodes)),
		population: h.population,
	}
	var copyNode func(src, parent *PathwayNode) *PathwayNode
	copyNode = func(src, parent *PathwayNode) *PathwayNode {
		dst := &PathwayNode{
			ID:       src.ID,
			Name:     src.Name,
			Species:  src.Species,
			parent:   parent,
			children: make([]*PathwayNode, 0, len(src.children)),
			data:     newPathwayNodeData(src.data.totals),
		}
		out.nodes[dst.ID] = dst
		for _, child := range src.children {
			dst.children = append(dst.children, copyNode(child, dst))
		}
		return dst
	}
	for _, root := range h.roots {
		out.roots = append(out.roots, copyNode(root, nil))
	}
	return out
}
