package domain

import (
	"sort"
	"strconv"
	"strings"
)

// Modifications maps a modification code (for example a PSI-MOD accession)
// to the site coordinates it was observed at. Coordinate order is not
// significant.
type Modifications map[string][]int

// IdentifierSpec carries the inputs accepted by NewIdentifier. Every field is
// optional except ID; omitted fields default to empty.
type IdentifierSpec struct {
	ID               string
	ExpressionValues []*float64
	Modifications    Modifications
}

// Identifier is a submitted or canonical identifier, optionally qualified by
// per-site modifications (a proteoform) and carrying sample expression values.
// Absent expression values are represented by nil entries.
type Identifier struct {
	ID               string        `json:"id"`
	ExpressionValues []*float64    `json:"expression,omitempty"`
	Modifications    Modifications `json:"modifications,omitempty"`
}

// NewIdentifier constructs an Identifier from spec. The id is trimmed, the
// expression values and modifications are copied so later mutation of the
// spec does not leak into the identifier.
func NewIdentifier(spec IdentifierSpec) Identifier {
	id := Identifier{ID: strings.TrimSpace(spec.ID)}
	if len(spec.ExpressionValues) > 0 {
		id.ExpressionValues = make([]*float64, len(spec.ExpressionValues))
		for i, v := range spec.ExpressionValues {
			if v != nil {
				val := *v
				id.ExpressionValues[i] = &val
			}
		}
	}
	if len(spec.Modifications) > 0 {
		id.Modifications = make(Modifications, len(spec.Modifications))
		for code, sites := range spec.Modifications {
			cp := make([]int, len(sites))
			copy(cp, sites)
			id.Modifications[code] = cp
		}
	}
	return id
}

// Float returns a pointer to v, convenient for building expression columns.
func Float(v float64) *float64 { return &v }

// HasModifications reports whether at least one modification code carries a
// site coordinate.
func (i Identifier) HasModifications() bool {
	for _, sites := range i.Modifications {
		if len(sites) > 0 {
			return true
		}
	}
	return false
}

// WithExpression returns a copy of the identifier carrying values.
func (i Identifier) WithExpression(values []*float64) Identifier {
	return NewIdentifier(IdentifierSpec{ID: i.ID, ExpressionValues: values, Modifications: i.Modifications})
}

// Equal reports whether both identifiers share the same id and, for every
// modification code present in either, the same multiset of coordinates.
// Expression values do not participate in equality.
func (i Identifier) Equal(other Identifier) bool {
	return i.Key() == other.Key()
}

// Key returns the canonical equality key: the id followed by every non-empty
// modification code in lexical order with its sorted coordinates.
func (i Identifier) Key() string {
	if !i.HasModifications() {
		return i.ID
	}
	codes := make([]string, 0, len(i.Modifications))
	for code, sites := range i.Modifications {
		if len(sites) > 0 {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	var b strings.Builder
	b.WriteString(i.ID)
	for _, code := range codes {
		sites := make([]int, len(i.Modifications[code]))
		copy(sites, i.Modifications[code])
		sort.Ints(sites)
		b.WriteByte(';')
		b.WriteString(code)
		b.WriteByte(':')
		for n, site := range sites {
			if n > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(site))
		}
	}
	return b.String()
}

func (i Identifier) String() string { return i.Key() }

// IdentifierSet is an insertion-ordered set of identifiers deduplicated by Key.
// The zero value is ready to use.
type IdentifierSet struct {
	order []string
	items map[string]Identifier
}

// NewIdentifierSet builds a set from ids, keeping the first occurrence of
// every equal identifier.
func NewIdentifierSet(ids ...Identifier) *IdentifierSet {
	s := &IdentifierSet{items: make(map[string]Identifier, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id and reports whether it was not already present.
func (s *IdentifierSet) Add(id Identifier) bool {
	if s.items == nil {
		s.items = make(map[string]Identifier)
	}
	key := id.Key()
	if _, ok := s.items[key]; ok {
		return false
	}
	s.items[key] = id
	s.order = append(s.order, key)
	return true
}

// Contains reports whether an identifier equal to id is in the set.
func (s *IdentifierSet) Contains(id Identifier) bool {
	if s == nil {
		return false
	}
	_, ok := s.items[id.Key()]
	return ok
}

// Len returns the number of distinct identifiers.
func (s *IdentifierSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Items returns the identifiers in insertion order.
func (s *IdentifierSet) Items() []Identifier {
	if s == nil {
		return nil
	}
	out := make([]Identifier, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.items[key])
	}
	return out
}

// Sorted returns the identifiers ordered by Key.
func (s *IdentifierSet) Sorted() []Identifier {
	out := s.Items()
	sort.Slice(out, func(a, b int) bool { return out[a].Key() < out[b].Key() })
	return out
}
