package core

import (
	"context"

	"pathwaycore/internal/graph"
	"pathwaycore/pkg/domain"
)

// Analyze resolves identifiers against the canonical graph and returns a
// finalized snapshot owned by the caller.
//
// Identifiers are deduplicated by key and processed in key order, so the
// outcome only depends on the graph, the sample and opts. An empty sample is
// rejected with domain.ErrEmptySample before any snapshot is borrowed. When
// opts.TargetSpecies is set every resolved entity is replaced by its
// projection into that species and dropped when it has none. Cancelling ctx
// aborts the analysis between identifiers and discards the snapshot.
func (s *Service) Analyze(ctx context.Context, identifiers []domain.Identifier, opts domain.AnalysisOptions) (*graph.Snapshot, error) {
	var snap *graph.Snapshot
	err := s.observe(ctx, OpAnalyze, func(ctx context.Context) error {
		var err error
		snap, err = s.analyze(ctx, identifiers, opts)
		return err
	}, "identifiers", len(identifiers), "target_species", opts.TargetSpecies, "interactors", opts.IncludeInteractors)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// AnalyzeResult runs Analyze and converts the snapshot into a plain result.
func (s *Service) AnalyzeResult(ctx context.Context, identifiers []domain.Identifier, opts domain.AnalysisOptions) (domain.AnalysisResult, error) {
	snap, err := s.Analyze(ctx, identifiers, opts)
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	return snap.Result(), nil
}

func (s *Service) analyze(ctx context.Context, identifiers []domain.Identifier, opts domain.AnalysisOptions) (*graph.Snapshot, error) {
	sample := domain.NewIdentifierSet()
	for _, id := range identifiers {
		if id.ID == "" {
			continue
		}
		sample.Add(id)
	}
	if sample.Len() == 0 {
		return nil, domain.ErrEmptySample
	}

	g, p, err := s.current()
	if err != nil {
		return nil, err
	}
	var target *domain.Species
	if opts.TargetSpecies != "" {
		sp, err := s.lookupHierarchySpecies(g, opts.TargetSpecies)
		if err != nil {
			return nil, err
		}
		target = &sp
		opts.TargetSpecies = sp.Name
	}

	release := p.Acquire()
	defer release()

	snap, err := p.Take()
	if err != nil {
		return nil, err
	}
	snap.Begin(s.newToken(), s.clock.Now(), opts, sample.Len())

	for _, id := range sample.Sorted() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if resolveIdentifier(g, snap, id, target, opts.IncludeInteractors) {
			snap.MarkFound(id)
		} else {
			snap.MarkNotFound(id)
		}
	}
	finalize(snap, opts.IncludeInteractors)
	return snap, nil
}

// resolveIdentifier records every entity (and, optionally, interactor) hit of
// id. Multiple matches across resources are all recorded. It reports whether
// at least one node was reached.
func resolveIdentifier(g *graph.Graph, snap *graph.Snapshot, id domain.Identifier, target *domain.Species, includeInteractors bool) bool {
	found := false
	for _, match := range g.EntityIndex().Lookup(id.ID) {
		for _, node := range match.Values {
			if n, ok := project(node, target); ok {
				found = true
				snap.RecordEntityHit(id, n)
			}
		}
	}
	if !includeInteractors {
		return found
	}
	for _, match := range g.InteractorIndex().Lookup(id.ID) {
		for _, interactor := range match.Values {
			for _, node := range interactor.InteractsWith() {
				if n, ok := project(node, target); ok {
					found = true
					snap.RecordInteractorHit(interactor, n)
				}
			}
		}
	}
	return found
}

func project(node *graph.EntityNode, target *domain.Species) (*graph.EntityNode, bool) {
	if target == nil {
		return node, node != nil
	}
	return node.Projection(*target)
}
