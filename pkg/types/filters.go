package types

import (
	"maps"
	"slices"
)

// Refinements holds the applied values per facet name, in the order they were applied.
type Refinements map[string][]string

func (r Refinements) Get(facet string) []string {
	return slices.Clone(r[facet])
}

func (r Refinements) Has(facet, value string) bool {
	return slices.Contains(r[facet], value)
}

func (r Refinements) Add(facet, value string) {
	if r.Has(facet, value) {
		return
	}
	r[facet] = append(r[facet], value)
}

func (r Refinements) Remove(facet, value string) {
	values, ok := r[facet]
	if !ok {
		return
	}
	values = slices.DeleteFunc(values, func(v string) bool {
		return v == value
	})
	if len(values) == 0 {
		delete(r, facet)
		return
	}
	r[facet] = values
}

func (r Refinements) Toggle(facet, value string) {
	if r.Has(facet, value) {
		r.Remove(facet, value)
	} else {
		r.Add(facet, value)
	}
}

func (r Refinements) Clone() Refinements {
	result := make(Refinements, len(r))
	for k, v := range r {
		result[k] = slices.Clone(v)
	}
	return result
}

func (r Refinements) Facets() []string {
	return slices.Sorted(maps.Keys(r))
}
