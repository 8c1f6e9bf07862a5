// Package multimap provides small generic multimaps used to index canonical
// graph nodes by identifier text and pathway.
package multimap

// SetMultimap maps a key to an insertion-ordered set of values. The zero
// value is ready to use. It is not safe for concurrent mutation; once built it
// may be read from many goroutines.
type SetMultimap[K comparable, V comparable] struct {
	keys   []K
	values map[K][]V
	member map[K]map[V]struct{}
}

// NewSetMultimap returns an empty multimap.
func NewSetMultimap[K comparable, V comparable]() *SetMultimap[K, V] {
	return &SetMultimap[K, V]{}
}

// Add inserts v under k and reports whether it was not already present.
func (m *SetMultimap[K, V]) Add(k K, v V) bool {
	if m.values == nil {
		m.values = make(map[K][]V)
		m.member = make(map[K]map[V]struct{})
	}
	set, ok := m.member[k]
	if !ok {
		set = make(map[V]struct{})
		m.member[k] = set
		m.keys = append(m.keys, k)
	}
	if _, dup := set[v]; dup {
		return false
	}
	set[v] = struct{}{}
	m.values[k] = append(m.values[k], v)
	return true
}

// AddAll inserts every value under k.
func (m *SetMultimap[K, V]) AddAll(k K, vs ...V) {
	for _, v := range vs {
		m.Add(k, v)
	}
}

// Get returns the values stored under k in insertion order. Unknown keys yield
// an empty, non-nil slice.
func (m *SetMultimap[K, V]) Get(k K) []V {
	if m == nil {
		return []V{}
	}
	vs := m.values[k]
	out := make([]V, len(vs))
	copy(out, vs)
	return out
}

// Contains reports whether v is stored under k.
func (m *SetMultimap[K, V]) Contains(k K, v V) bool {
	if m == nil {
		return false
	}
	_, ok := m.member[k][v]
	return ok
}

// Keys returns the keys in first-insertion order.
func (m *SetMultimap[K, V]) Keys() []K {
	if m == nil {
		return nil
	}
	out := make([]K, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys.
func (m *SetMultimap[K, V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Size returns the number of values stored under k.
func (m *SetMultimap[K, V]) Size(k K) int {
	if m == nil {
		return 0
	}
	return len(m.values[k])
}

// ListMultimap maps a key to an ordered list of values, duplicates allowed.
type ListMultimap[K comparable, V any] struct {
	keys   []K
	values map[K][]V
}

// NewListMultimap returns an empty list multimap.
func NewListMultimap[K comparable, V any]() *ListMultimap[K, V] {
	return &ListMultimap[K, V]{}
}

// Add appends v to the list stored under k.
func (m *ListMultimap[K, V]) Add(k K, v V) {
	if m.values == nil {
		m.values = make(map[K][]V)
	}
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.values[k] = append(m.values[k], v)
}

// Get returns a copy of the list stored under k, empty for unknown keys.
func (m *ListMultimap[K, V]) Get(k K) []V {
	if m == nil {
		return []V{}
	}
	vs := m.values[k]
	out := make([]V, len(vs))
	copy(out, vs)
	return out
}

// Keys returns the keys in first-insertion order.
func (m *ListMultimap[K, V]) Keys() []K {
	if m == nil {
		return nil
	}
	out := make([]K, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys.
func (m *ListMultimap[K, V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}
