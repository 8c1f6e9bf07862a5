package multimap

import (
	"sort"
	"strings"

	"pathwaycore/pkg/domain"
)

// Match groups the values one identifier text resolves to in a resource.
type Match[V comparable] struct {
	Resource domain.Resource
	Values   []V
}

// IdentifiersMap indexes values by raw identifier text and resource. Keys are
// matched case-insensitively after trimming surrounding whitespace. It is
// built once and then shared read-only.
type IdentifiersMap[V comparable] struct {
	entries map[string]*SetMultimap[domain.Resource, V]
}

// NewIdentifiersMap returns an empty index.
func NewIdentifiersMap[V comparable]() *IdentifiersMap[V] {
	return &IdentifiersMap[V]{entries: make(map[string]*SetMultimap[domain.Resource, V])}
}

// NormalizeKey returns the lookup form of an identifier text.
func NormalizeKey(text string) string {
	return strings.ToUpper(strings.TrimSpace(text))
}

// Add indexes v under text in resource. Empty texts are ignored.
func (m *IdentifiersMap[V]) Add(text string, resource domain.Resource, v V) {
	key := NormalizeKey(text)
	if key == "" {
		return
	}
	if m.entries == nil {
		m.entries = make(map[string]*SetMultimap[domain.Resource, V])
	}
	byResource, ok := m.entries[key]
	if !ok {
		byResource = NewSetMultimap[domain.Resource, V]()
		m.entries[key] = byResource
	}
	byResource.Add(resource, v)
}

// Get returns the values indexed under text grouped by resource. Unknown keys
// yield an empty, non-nil map.
func (m *IdentifiersMap[V]) Get(text string) map[domain.Resource][]V {
	out := make(map[domain.Resource][]V)
	if m == nil {
		return out
	}
	byResource, ok := m.entries[NormalizeKey(text)]
	if !ok {
		return out
	}
	for _, resource := range byResource.Keys() {
		out[resource] = byResource.Get(resource)
	}
	return out
}

// Lookup is Get with a deterministic order: matches are sorted by resource
// name and values keep their insertion order.
func (m *IdentifiersMap[V]) Lookup(text string) []Match[V] {
	grouped := m.Get(text)
	out := make([]Match[V], 0, len(grouped))
	for resource, values := range grouped {
		out = append(out, Match[V]{Resource: resource, Values: values})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Resource.Name != out[j].Resource.Name {
			return out[i].Resource.Name < out[j].Resource.Name
		}
		return out[i].Resource.Kind < out[j].Resource.Kind
	})
	return out
}

// Contains reports whether text is indexed at all.
func (m *IdentifiersMap[V]) Contains(text string) bool {
	if m == nil {
		return false
	}
	_, ok := m.entries[NormalizeKey(text)]
	return ok
}

// Len returns the number of distinct identifier texts.
func (m *IdentifiersMap[V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}
