package rulecontext

import (
	"regexp"
	"slices"
	"strings"
)

const ruleContextPrefix = "ais-"

var invalidRuleContextChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// RefinementReader exposes the applied values of a facet.
type RefinementReader interface {
	Refinements(facet string) []string
}

// Sanitize replaces every run of characters the backend does not accept in a
// rule context with a single underscore.
func Sanitize(ruleContext string) string {
	return invalidRuleContextChars.ReplaceAllString(ruleContext, "_")
}

// Derive turns the tracked filters into rule contexts, facet by facet in
// declaration order. Values keep the order they were applied in; the
// selector only decides which of them count.
func Derive(state RefinementReader, filters []TrackedFilter) []string {
	result := []string{}
	for _, filter := range filters {
		applied := state.Refinements(filter.Facet)
		allowed := filter.Selector(slices.Clone(applied))
		for _, value := range applied {
			if !slices.Contains(allowed, value) {
				continue
			}
			result = append(result, Sanitize(ruleContextPrefix+filter.Facet+"-"+value))
		}
	}
	return result
}

// ownedPrefixes returns, per tracked facet, the prefix every rule context
// derived from it starts with once TransformRuleContexts has run.
func (r *Reconciler) ownedPrefixes() []string {
	prefixes := make([]string, 0, len(r.config.TrackedFilters))
	for _, filter := range r.config.TrackedFilters {
		prefix := Sanitize(ruleContextPrefix+filter.Facet) + "-"
		if transformed := r.config.TransformRuleContexts([]string{prefix}); len(transformed) == 1 && transformed[0] != "" {
			prefix = transformed[0]
		}
		prefixes = append(prefixes, prefix)
	}
	return prefixes
}

// Foreign drops the rule contexts a tracked filter could have produced and
// keeps the rest in order. Hosts that do not keep a reconciler between
// requests use it to recover the initial rule contexts from a list that was
// published earlier.
func (r *Reconciler) Foreign(ruleContexts []string) []string {
	prefixes := r.ownedPrefixes()
	return slices.DeleteFunc(slices.Clone(ruleContexts), func(ruleContext string) bool {
		return slices.ContainsFunc(prefixes, func(prefix string) bool {
			return strings.HasPrefix(ruleContext, prefix)
		})
	})
}
