package core

import (
	"context"

	"pathwaycore/internal/graph"
	"pathwaycore/pkg/domain"
)

// SynthesizeSample returns the canonical identifiers of every entity native to
// species, ordered by key. Entities without a main identifier are skipped.
// Results are cached per loaded graph.
func (s *Service) SynthesizeSample(ctx context.Context, species string) ([]domain.Identifier, error) {
	var out []domain.Identifier
	err := s.observe(ctx, OpSynthesize, func(ctx context.Context) error {
		g, _, err := s.current()
		if err != nil {
			return err
		}
		sp, ok := g.LookupSpecies(species)
		if !ok {
			return domain.SpeciesNotFoundError{Species: species}
		}
		key := sampleKey{graph: g, species: sp.Name}
		if cached, ok := s.samples.Get(key); ok {
			out = append([]domain.Identifier(nil), cached...)
			return nil
		}
		set := domain.NewIdentifierSet()
		for _, e := range g.Entities() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if e.Species.Name != sp.Name {
				continue
			}
			if main, ok := e.Identifier(); ok {
				set.Add(main.Value)
			}
		}
		sample := set.Sorted()
		s.cacheSample(key, sample)
		out = append([]domain.Identifier(nil), sample...)
		return nil
	}, "species", species)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// sampleKey identifies a synthesized sample by the graph instance it was
// drawn from, so equal version strings across reloads never collide.
type sampleKey struct {
	graph   *graph.Graph
	species string
}

// cacheSample stores sample unless key.graph has been replaced since the
// sample was collected. Load purges under the write lock, so holding the read
// lock here keeps a late writer from repopulating a purged cache.
func (s *Service) cacheSample(key sampleKey, sample []domain.Identifier) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.graph != key.graph {
		return false
	}
	s.samples.Add(key, sample)
	return true
}

// Compare analyses the native sample of from projected onto to, without
// interactors. It fails with domain.SpeciesNotFoundError when to has no
// pathway hierarchy.
func (s *Service) Compare(ctx context.Context, from, to string) (*graph.Snapshot, error) {
	var snap *graph.Snapshot
	err := s.observe(ctx, OpCompare, func(ctx context.Context) error {
		g, _, err := s.current()
		if err != nil {
			return err
		}
		target, err := s.lookupHierarchySpecies(g, to)
		if err != nil {
			return err
		}
		sample, err := s.SynthesizeSample(ctx, from)
		if err != nil {
			return err
		}
		snap, err = s.Analyze(ctx, sample, domain.AnalysisOptions{TargetSpecies: target.Name})
		return err
	}, "from", from, "to", to)
	if err != nil {
		return nil, err
	}
	return snap, nil
}
