package types

// SearchHost is the search state owner widgets read refinements from and
// write query parameters to.
type SearchHost interface {
	Refinements(facet string) []string
	QueryParameter(name string) ([]string, error)
	SetQueryParameter(name string, value []string)
	Search()
}

// Widget is driven through its lifecycle by a SearchHost.
type Widget interface {
	OnInit(host SearchHost)
	OnResults(host SearchHost, results *SearchResults)
	OnDispose(host SearchHost)
}
