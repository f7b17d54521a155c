// ABOUTME: Attribute data model for extracted package metadata
// ABOUTME: Defines attribute triples and named, ordered attribute sets

package attribute

// ValueType tags how an attribute value (always stored as text) is parsed downstream
type ValueType string

// Closed enumeration of attribute value types
const (
	TypeString    ValueType = "String"
	TypeLong      ValueType = "Long"
	TypeDateTime  ValueType = "DateTime"
	TypePair      ValueType = "Pair"
	TypeDCSFormat ValueType = "DCSFormat"
)

// Attribute is a (name, type, value) triple extracted from a package record
type Attribute struct {
	Name  string    // Attribute name (e.g. "aggregates-file")
	Type  ValueType // How Value is parsed downstream
	Value string    // Raw textual value
}

// Matches reports whether a satisfies probe. Empty probe fields act as
// wildcards; non-empty fields must match exactly.
func (a Attribute) Matches(probe Attribute) bool {
	if probe.Name != "" && probe.Name != a.Name {
		return false
	}
	if probe.Type != "" && probe.Type != a.Type {
		return false
	}
	if probe.Value != "" && probe.Value != a.Value {
		return false
	}
	return true
}

// Set is a named, ordered collection of attributes. The name identifies the
// kind of record the set was extracted from. Duplicate attribute names are
// allowed; a set may carry many attributes of the same name.
type Set struct {
	Name       string      // Record kind (e.g. "Collection Resource Map")
	Attributes []Attribute // Ordered, duplicates allowed
}

// NewSet creates an attribute set with the given name and initial attributes
func NewSet(name string, attrs ...Attribute) *Set {
	return &Set{Name: name, Attributes: attrs}
}

// Add appends attributes to the set, preserving order. Later extraction
// stages merge their results (checksums, detected formats) this way.
func (s *Set) Add(attrs ...Attribute) {
	s.Attributes = append(s.Attributes, attrs...)
}

// Values returns every value carried under the given attribute name, in order
func (s *Set) Values(name string) []string {
	var vals []string
	for _, a := range s.Attributes {
		if a.Name == name {
			vals = append(vals, a.Value)
		}
	}
	return vals
}

// First returns the first value carried under the given attribute name
func (s *Set) First(name string) (string, bool) {
	for _, a := range s.Attributes {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Count returns how many attributes in the set carry the given name
func (s *Set) Count(name string) int {
	n := 0
	for _, a := range s.Attributes {
		if a.Name == name {
			n++
		}
	}
	return n
}

// Has reports whether any attribute in the set satisfies the probe
func (s *Set) Has(probe Attribute) bool {
	for _, a := range s.Attributes {
		if a.Matches(probe) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the set
func (s *Set) Clone() *Set {
	attrs := make([]Attribute, len(s.Attributes))
	copy(attrs, s.Attributes)
	return &Set{Name: s.Name, Attributes: attrs}
}
