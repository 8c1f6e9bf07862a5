package domain

import "strings"

// ResourceKind distinguishes resources that can anchor a canonical entity from
// those that can only map onto one.
type ResourceKind string

// Supported resource kinds.
const (
	// ResourceMain marks a resource eligible to anchor a canonical entity.
	ResourceMain ResourceKind = "main"
	// ResourceAux marks a cross-reference resource (gene symbols, Ensembl ...).
	ResourceAux ResourceKind = "aux"
	// ResourceInteractor marks a resource providing interactor accessions.
	ResourceInteractor ResourceKind = "interactor"
)

// Resource is a tagged data source such as UniProt or ChEBI.
type Resource struct {
	Name string       `json:"name"`
	Kind ResourceKind `json:"kind"`
}

// MainResource returns a resource able to anchor canonical entities.
func MainResource(name string) Resource { return Resource{Name: name, Kind: ResourceMain} }

// AuxResource returns a cross-reference resource.
func AuxResource(name string) Resource { return Resource{Name: name, Kind: ResourceAux} }

// InteractorResource returns an interactor accession resource.
func InteractorResource(name string) Resource {
	return Resource{Name: name, Kind: ResourceInteractor}
}

// IsMain reports whether the resource can anchor a canonical entity.
func (r Resource) IsMain() bool { return r.Kind == ResourceMain }

func (r Resource) String() string { return r.Name }

// MainIdentifier anchors an entity (or an analysis hit) to a main resource.
type MainIdentifier struct {
	Resource Resource   `json:"resource"`
	Value    Identifier `json:"value"`
}

// Key identifies the main identifier independently of expression values.
func (m MainIdentifier) Key() string {
	return m.Resource.Name + "|" + m.Value.Key()
}

// Species names an organism with a registered pathway hierarchy.
type Species struct {
	TaxID string `json:"tax_id"`
	Name  string `json:"name"`
}

// Matches reports whether query names this species, by tax id or by
// case-insensitive name.
func (s Species) Matches(query string) bool {
	q := strings.TrimSpace(query)
	if q == "" {
		return false
	}
	return q == s.TaxID || strings.EqualFold(q, s.Name)
}

func (s Species) String() string { return s.Name }

// MappedIdentifier is one canonical target reported by the identifier mapping
// service. Interactor is the interactor accession when the target was reached
// through interaction evidence.
type MappedIdentifier struct {
	Resource   string `json:"resource"`
	Identifier string `json:"identifier"`
	Species    string `json:"species,omitempty"`
	Interactor string `json:"interactor,omitempty"`
}
