package domain

import "testing"

func TestIdentifierEqualityIgnoresSiteOrder(t *testing.T) {
	a := NewIdentifier(IdentifierSpec{ID: "P04637", Modifications: Modifications{
		"MOD:00046": {15, 20},
		"MOD:00047": {33},
	}})
	b := NewIdentifier(IdentifierSpec{ID: "P04637", Modifications: Modifications{
		"MOD:00047": {33},
		"MOD:00046": {20, 15},
	}})
	if !a.Equal(b) {
		t.Fatalf("expected %s == %s", a.Key(), b.Key())
	}
	if a.Key() != b.Key() {
		t.Fatalf("keys differ: %s vs %s", a.Key(), b.Key())
	}
}

func TestIdentifierEqualityDetectsChangedCoordinate(t *testing.T) {
	a := NewIdentifier(IdentifierSpec{ID: "P04637", Modifications: Modifications{"MOD:00046": {15, 20}}})
	b := NewIdentifier(IdentifierSpec{ID: "P04637", Modifications: Modifications{"MOD:00046": {15, 21}}})
	if a.Equal(b) {
		t.Fatalf("expected changed coordinate to break equality")
	}
	c := NewIdentifier(IdentifierSpec{ID: "P04637", Modifications: Modifications{"MOD:00046": {15, 15, 20}}})
	if a.Equal(c) {
		t.Fatalf("expected coordinate multiplicity to matter")
	}
}

func TestIdentifierEqualityCases(t *testing.T) {
	cases := []struct {
		name  string
		a, b  Identifier
		equal bool
	}{
		{"plain", NewIdentifier(IdentifierSpec{ID: "X"}), NewIdentifier(IdentifierSpec{ID: "X"}), true},
		{"different id", NewIdentifier(IdentifierSpec{ID: "X"}), NewIdentifier(IdentifierSpec{ID: "Y"}), false},
		{"trimmed id", NewIdentifier(IdentifierSpec{ID: " X\t"}), NewIdentifier(IdentifierSpec{ID: "X"}), true},
		{"empty code equals absent", NewIdentifier(IdentifierSpec{ID: "X", Modifications: Modifications{"MOD:1": nil}}), NewIdentifier(IdentifierSpec{ID: "X"}), true},
		{"extra code", NewIdentifier(IdentifierSpec{ID: "X", Modifications: Modifications{"MOD:1": {1}}}), NewIdentifier(IdentifierSpec{ID: "X"}), false},
		{"expression ignored", NewIdentifier(IdentifierSpec{ID: "X", ExpressionValues: []*float64{Float(1)}}), NewIdentifier(IdentifierSpec{ID: "X"}), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Equal(tc.b); got != tc.equal {
				t.Fatalf("Equal(%s, %s) = %v, want %v", tc.a.Key(), tc.b.Key(), got, tc.equal)
			}
		})
	}
}

func TestNewIdentifierCopiesInputs(t *testing.T) {
	values := []*float64{Float(1.5), nil}
	mods := Modifications{"MOD:1": {3, 1}}
	id := NewIdentifier(IdentifierSpec{ID: "X", ExpressionValues: values, Modifications: mods})
	*values[0] = 9
	mods["MOD:1"][0] = 99
	if *id.ExpressionValues[0] != 1.5 {
		t.Fatalf("expression values aliased input")
	}
	if id.ExpressionValues[1] != nil {
		t.Fatalf("expected absent value to stay nil")
	}
	if id.Modifications["MOD:1"][0] != 3 {
		t.Fatalf("modifications aliased input")
	}
}

func TestIdentifierSetDeduplicates(t *testing.T) {
	set := NewIdentifierSet(
		NewIdentifier(IdentifierSpec{ID: "B"}),
		NewIdentifier(IdentifierSpec{ID: "A", Modifications: Modifications{"MOD:1": {2, 1}}}),
		NewIdentifier(IdentifierSpec{ID: "A", Modifications: Modifications{"MOD:1": {1, 2}}}),
		NewIdentifier(IdentifierSpec{ID: "B", ExpressionValues: []*float64{Float(2)}}),
	)
	if set.Len() != 2 {
		t.Fatalf("expected 2 identifiers, got %d", set.Len())
	}
	items := set.Items()
	if items[0].ID != "B" || items[0].ExpressionValues != nil {
		t.Fatalf("expected first occurrence kept, got %+v", items[0])
	}
	sorted := set.Sorted()
	if sorted[0].ID != "A" {
		t.Fatalf("expected sorted output, got %v", sorted)
	}
	var zero IdentifierSet
	if !zero.Add(NewIdentifier(IdentifierSpec{ID: "Z"})) || zero.Len() != 1 {
		t.Fatalf("zero value set should accept inserts")
	}
	var nilSet *IdentifierSet
	if nilSet.Len() != 0 || nilSet.Contains(NewIdentifier(IdentifierSpec{ID: "Z"})) {
		t.Fatalf("nil set should be empty")
	}
}
