package domain

import (
	"sort"
	"time"
)

// GraphDocument is the flat, serializable form of the canonical graph. The
// build pipeline produces it and the persistence layer stores it; the engine
// rebuilds the in-memory graph (and recomputes every statistic) from it.
type GraphDocument struct {
	Version     string             `json:"version"`
	CreatedAt   time.Time          `json:"created_at"`
	Resources   []Resource         `json:"resources"`
	Species     []Species          `json:"species"`
	Pathways    []PathwayRecord    `json:"pathways"`
	Entities    []EntityRecord     `json:"entities"`
	Interactors []InteractorRecord `json:"interactors"`
}

// PathwayRecord describes one pathway node. Parent is empty for top-level
// pathways.
type PathwayRecord struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Species string `json:"species"`
	Parent  string `json:"parent,omitempty"`
}

// AliasRecord indexes an entity or interactor under an extra text in a
// resource (for example a gene symbol under an auxiliary resource).
type AliasRecord struct {
	Resource string `json:"resource"`
	Text     string `json:"text"`
}

// EntityRecord describes one canonical entity. Resource and Identifier are
// empty for entities without a main identifier. Pathways maps a pathway id to
// the reactions the entity takes part in there; Projections maps a species
// name to the id of the orthologous entity.
type EntityRecord struct {
	ID          int64               `json:"id"`
	Species     string              `json:"species"`
	Resource    string              `json:"resource,omitempty"`
	Identifier  Identifier          `json:"identifier"`
	Aliases     []AliasRecord       `json:"aliases,omitempty"`
	Pathways    map[string][]string `json:"pathways,omitempty"`
	Projections map[string]int64    `json:"projections,omitempty"`
}

// InteractorRecord describes an interactor accession and the entities it
// interacts with.
type InteractorRecord struct {
	Accession     string        `json:"accession"`
	Resource      string        `json:"resource"`
	Aliases       []AliasRecord `json:"aliases,omitempty"`
	InteractsWith []int64       `json:"interacts_with"`
}

// Normalize returns a copy of the document with nil collections replaced by
// empty ones and dangling references (unknown pathways, projection targets or
// interaction partners) removed. Records are ordered by id (resources and
// species by name) for stable output.
func (d GraphDocument) Normalize() GraphDocument {
	out := d
	out.Resources = append([]Resource{}, d.Resources...)
	sort.SliceStable(out.Resources, func(a, b int) bool { return out.Resources[a].Name < out.Resources[b].Name })
	out.Species = append([]Species{}, d.Species...)
	sort.SliceStable(out.Species, func(a, b int) bool { return out.Species[a].Name < out.Species[b].Name })
	pathways := make(map[string]struct{}, len(d.Pathways))
	out.Pathways = make([]PathwayRecord, 0, len(d.Pathways))
	for _, p := range d.Pathways {
		if p.ID == "" {
			continue
		}
		pathways[p.ID] = struct{}{}
		out.Pathways = append(out.Pathways, p)
	}
	for i, p := range out.Pathways {
		if _, ok := pathways[p.Parent]; !ok {
			out.Pathways[i].Parent = ""
		}
	}
	sort.SliceStable(out.Pathways, func(a, b int) bool { return out.Pathways[a].ID < out.Pathways[b].ID })

	entities := make(map[int64]struct{}, len(d.Entities))
	for _, e := range d.Entities {
		entities[e.ID] = struct{}{}
	}
	out.Entities = make([]EntityRecord, 0, len(d.Entities))
	for _, e := range d.Entities {
		ent := e
		ent.Pathways = make(map[string][]string, len(e.Pathways))
		for pathwayID, reactions := range e.Pathways {
			if _, ok := pathways[pathwayID]; !ok {
				continue
			}
			ent.Pathways[pathwayID] = dedupeStrings(reactions)
		}
		ent.Projections = make(map[string]int64, len(e.Projections))
		for species, target := range e.Projections {
			if _, ok := entities[target]; ok && target != e.ID {
				ent.Projections[species] = target
			}
		}
		out.Entities = append(out.Entities, ent)
	}
	sort.SliceStable(out.Entities, func(a, b int) bool { return out.Entities[a].ID < out.Entities[b].ID })

	out.Interactors = make([]InteractorRecord, 0, len(d.Interactors))
	for _, in := range d.Interactors {
		rec := in
		rec.InteractsWith = nil
		seen := make(map[int64]struct{}, len(in.InteractsWith))
		for _, target := range in.InteractsWith {
			if _, ok := entities[target]; !ok {
				continue
			}
			if _, dup := seen[target]; dup {
				continue
			}
			seen[target] = struct{}{}
			rec.InteractsWith = append(rec.InteractsWith, target)
		}
		if len(rec.InteractsWith) == 0 {
			continue
		}
		sort.Slice(rec.InteractsWith, func(a, b int) bool { return rec.InteractsWith[a] < rec.InteractsWith[b] })
		out.Interactors = append(out.Interactors, rec)
	}
	sort.SliceStable(out.Interactors, func(a, b int) bool { return out.Interactors[a].Accession < out.Interactors[b].Accession })
	return out
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
