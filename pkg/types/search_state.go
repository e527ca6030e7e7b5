package types

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gorilla/schema"
)

// RuleContextsParameter is the query parameter carrying merchandising rule contexts.
const RuleContextsParameter = "ruleContexts"

// ErrParameterNotSet is returned when a query parameter is read before it has been written.
var ErrParameterNotSet = errors.New("query parameter not set")

type SearchState struct {
	Query        string              `json:"query" schema:"query"`
	Page         int                 `json:"page" schema:"page"`
	HitsPerPage  int                 `json:"hitsPerPage" schema:"size,default:40"`
	RuleContexts []string            `json:"ruleContexts,omitempty" schema:"ruleContexts"`
	Refinements  Refinements         `json:"refinements,omitempty" schema:"-"`
	params       map[string][]string `schema:"-"`
	set          map[string]struct{} `schema:"-"`
}

var decoder = schema.NewDecoder()
var encoder = schema.NewEncoder()

func init() {
	decoder.IgnoreUnknownKeys(true)
}

func clamp[T int | float64](value, min, max T) T {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func NewSearchState() *SearchState {
	return &SearchState{
		HitsPerPage: 40,
		Refinements: Refinements{},
		params:      map[string][]string{},
		set:         map[string]struct{}{},
	}
}

func (s *SearchState) Sanitize() {
	s.Page = clamp(s.Page, 0, 100)
	s.HitsPerPage = clamp(s.HitsPerPage, 1, 1000)
	if s.Refinements == nil {
		s.Refinements = Refinements{}
	}
	if s.params == nil {
		s.params = map[string][]string{}
	}
	if s.set == nil {
		s.set = map[string]struct{}{}
	}
}

// Parameter reads a list valued query parameter. Parameters must be written
// (or decoded from a request) before they can be read.
func (s *SearchState) Parameter(name string) ([]string, error) {
	if _, ok := s.set[name]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrParameterNotSet, name)
	}
	if name == RuleContextsParameter {
		return slices.Clone(s.RuleContexts), nil
	}
	return slices.Clone(s.params[name]), nil
}

func (s *SearchState) HasParameter(name string) bool {
	_, ok := s.set[name]
	return ok
}

func (s *SearchState) SetParameter(name string, value []string) {
	if s.set == nil {
		s.Sanitize()
	}
	s.set[name] = struct{}{}
	if value == nil {
		value = []string{}
	}
	if name == RuleContextsParameter {
		s.RuleContexts = slices.Clone(value)
		return
	}
	s.params[name] = slices.Clone(value)
}

func (s *SearchState) Clone() *SearchState {
	c := *s
	c.RuleContexts = slices.Clone(s.RuleContexts)
	c.Refinements = s.Refinements.Clone()
	c.params = make(map[string][]string, len(s.params))
	for k, v := range s.params {
		c.params[k] = slices.Clone(v)
	}
	c.set = maps.Clone(s.set)
	if c.set == nil {
		c.set = map[string]struct{}{}
	}
	return &c
}

// Values encodes the state as url query values, refinements as repeated
// ref=<facet>:<v1>||<v2> entries in facet name order.
func (s *SearchState) Values() url.Values {
	values := url.Values{}
	if err := encoder.Encode(s, values); err != nil {
		return values
	}
	if len(s.RuleContexts) == 0 {
		values.Del(RuleContextsParameter)
	}
	if s.Query == "" {
		values.Del("query")
	}
	for _, facet := range slices.Sorted(maps.Keys(s.Refinements)) {
		refined := s.Refinements[facet]
		if len(refined) == 0 {
			continue
		}
		values.Add("ref", facet+":"+strings.Join(refined, "||"))
	}
	for _, name := range slices.Sorted(maps.Keys(s.params)) {
		if len(s.params[name]) > 0 {
			values[name] = slices.Clone(s.params[name])
		}
	}
	return values
}

func GetStateFromRequest(r *http.Request) (*SearchState, error) {
	if r.Method == http.MethodGet {
		return StateFromValues(r.URL.Query())
	}
	s := NewSearchState()
	err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(s)
	s.Sanitize()
	if len(s.RuleContexts) > 0 {
		s.set[RuleContextsParameter] = struct{}{}
	}
	return s, err
}

func StateFromValues(query url.Values) (*SearchState, error) {
	s := NewSearchState()
	err := decoder.Decode(s, query)
	if err != nil {
		return s, err
	}
	if _, ok := query[RuleContextsParameter]; ok {
		s.set[RuleContextsParameter] = struct{}{}
	}
	decodeRefinementsFromQuery(query, s.Refinements)
	s.Sanitize()
	return s, nil
}

func decodeRefinementsFromQuery(query url.Values, result Refinements) {
	for _, v := range query["ref"] {
		facet, value, found := strings.Cut(v, ":")
		if !found {
			continue
		}
		facet = strings.TrimSpace(facet)
		if facet == "" || value == "" {
			continue
		}
		for _, part := range strings.Split(value, "||") {
			if part == "" {
				continue
			}
			result.Add(facet, part)
		}
	}
}
