package core

import (
	"math"
	"sort"

	"pathwaycore/internal/graph"
	"pathwaycore/pkg/domain"
)

// finalize scores every touched pathway of snap, per main resource and
// combined, then applies a Benjamini-Hochberg correction across the touched
// pathways of each view.
//
// The score is the hypergeometric probability of observing at least the found
// count when drawing the resolved sample of a resource from the species
// population, with the pathway total as the number of successes. Interactor
// hits and totals join the counts when the analysis includes interactors.
func finalize(snap *graph.Snapshot, includeInteractors bool) {
	touched := snap.TouchedPathways()

	type scored struct {
		node *graph.PathwayNode
		p    float64
	}
	perResource := make(map[domain.Resource][]scored)
	combined := make([]scored, 0, len(touched))

	for _, n := range touched {
		h, ok := snap.Hierarchy(n.Species)
		if !ok {
			continue
		}
		d := n.Data()
		for _, r := range d.Resources() {
			population := h.PopulationEntities(r)
			total := d.TotalEntities(r)
			found := d.FoundEntities(r)
			if includeInteractors {
				population += h.PopulationInteractors(r)
				total += d.TotalInteractors(r)
				found += d.FoundInteractors(r)
			}
			if found == 0 {
				continue
			}
			p := hypergeometricUpperTail(population, total, snap.ResourceSampleSize(r), found)
			perResource[r] = append(perResource[r], scored{node: n, p: p})
		}

		total := d.TotalEntitiesCombined()
		found := d.FoundEntitiesCombined()
		if includeInteractors {
			total += d.TotalInteractorsCombined()
			found += d.FoundInteractorsCombined()
		}
		if found == 0 {
			continue
		}
		p := hypergeometricUpperTail(h.PopulationCombined(includeInteractors), total, snap.ResolvedCount(), found)
		combined = append(combined, scored{node: n, p: p})
	}

	for r, list := range perResource {
		ps := make([]float64, len(list))
		for i, s := range list {
			ps[i] = s.p
		}
		for i, fdr := range benjaminiHochberg(ps) {
			list[i].node.Data().SetScores(r, list[i].p, fdr)
		}
	}
	ps := make([]float64, len(combined))
	for i, s := range combined {
		ps[i] = s.p
	}
	for i, fdr := range benjaminiHochberg(ps) {
		combined[i].node.Data().SetCombinedScores(combined[i].p, fdr)
	}
}

func logChoose(n, k int) float64 {
	a, _ := math.Lgamma(float64(n + 1))
	b, _ := math.Lgamma(float64(k + 1))
	c, _ := math.Lgamma(float64(n - k + 1))
	return a - b - c
}

// hypergeometricUpperTail returns P(X >= observed) for X drawn from a
// hypergeometric distribution with the given population, successes and
// draws. The population is raised to the draw count when smaller.
func hypergeometricUpperTail(population, successes, draws, observed int) float64 {
	if observed <= 0 {
		return 1
	}
	if population < draws {
		population = draws
	}
	if successes > population {
		successes = population
	}
	hi := min(successes, draws)
	if observed > hi {
		return 0
	}
	failures := population - successes
	denom := logChoose(population, draws)
	p := 0.0
	for x := observed; x <= hi; x++ {
		if draws-x > failures {
			continue
		}
		p += math.Exp(logChoose(successes, x) + logChoose(failures, draws-x) - denom)
	}
	return math.Min(1, p)
}

// benjaminiHochberg returns the step-up adjusted p-values, in input order.
func benjaminiHochberg(ps []float64) []float64 {
	m := len(ps)
	out := make([]float64, m)
	if m == 0 {
		return out
	}
	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return ps[order[a]] < ps[order[b]] })
	running := 1.0
	for rank := m; rank >= 1; rank-- {
		idx := order[rank-1]
		adjusted := ps[idx] * float64(m) / float64(rank)
		if adjusted < running {
			running = adjusted
		}
		out[idx] = running
	}
	return out
}
