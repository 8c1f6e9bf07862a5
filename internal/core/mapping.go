package core

import (
	"context"
	"sort"

	"pathwaycore/internal/graph"
	"pathwaycore/pkg/domain"
)

// Map reports, for every submitted text, the canonical identifiers (and, with
// opts.IncludeInteractors, the interactor-mediated targets) it resolves to.
// Every input is present in the result; texts that match nothing map to an
// empty slice. Map never touches the snapshot pool.
func (s *Service) Map(ctx context.Context, identifiers []string, opts domain.AnalysisOptions) (map[string][]domain.MappedIdentifier, error) {
	var out map[string][]domain.MappedIdentifier
	err := s.observe(ctx, OpMap, func(ctx context.Context) error {
		s.mappings.Add(1)
		defer s.mappings.Add(-1)

		g, _, err := s.current()
		if err != nil {
			return err
		}
		var target *domain.Species
		if opts.TargetSpecies != "" {
			sp, err := s.lookupHierarchySpecies(g, opts.TargetSpecies)
			if err != nil {
				return err
			}
			target = &sp
		}
		out = make(map[string][]domain.MappedIdentifier, len(identifiers))
		for _, text := range identifiers {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, done := out[text]; done {
				continue
			}
			out[text] = mapIdentifier(g, text, target, opts.IncludeInteractors)
		}
		return nil
	}, "identifiers", len(identifiers))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func mapIdentifier(g *graph.Graph, text string, target *domain.Species, includeInteractors bool) []domain.MappedIdentifier {
	seen := make(map[domain.MappedIdentifier]struct{})
	out := []domain.MappedIdentifier{}
	add := func(node *graph.EntityNode, interactor string) {
		main, ok := node.Identifier()
		if !ok {
			return
		}
		m := domain.MappedIdentifier{
			Resource:   main.Resource.Name,
			Identifier: main.Value.Key(),
			Species:    node.Species.Name,
			Interactor: interactor,
		}
		if _, dup := seen[m]; dup {
			return
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}

	for _, match := range g.EntityIndex().Lookup(text) {
		for _, node := range match.Values {
			if n, ok := project(node, target); ok {
				add(n, "")
			}
		}
	}
	if includeInteractors {
		for _, match := range g.InteractorIndex().Lookup(text) {
			for _, interactor := range match.Values {
				for _, node := range interactor.InteractsWith() {
					if n, ok := project(node, target); ok {
						add(n, interactor.Accession)
					}
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Resource != b.Resource {
			return a.Resource < b.Resource
		}
		if a.Identifier != b.Identifier {
			return a.Identifier < b.Identifier
		}
		if a.Species != b.Species {
			return a.Species < b.Species
		}
		return a.Interactor < b.Interactor
	})
	return out
}
