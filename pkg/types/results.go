package types

// FacetValues maps a facet value to its hit count.
type FacetValues map[string]int

type SearchResults struct {
	Hits     []any                  `json:"hits"`
	NbHits   int                    `json:"nbHits"`
	Page     int                    `json:"page"`
	Facets   map[string]FacetValues `json:"facets,omitempty"`
	UserData []any                  `json:"userData,omitempty"`
	Params   string                 `json:"params,omitempty"`
}

func (r *SearchResults) FacetValues(facet string) FacetValues {
	if r == nil || r.Facets == nil {
		return FacetValues{}
	}
	values, ok := r.Facets[facet]
	if !ok {
		return FacetValues{}
	}
	return values
}

// Items returns the user data attached by query rules, never nil.
func (r *SearchResults) Items() []any {
	if r == nil || r.UserData == nil {
		return []any{}
	}
	return r.UserData
}
