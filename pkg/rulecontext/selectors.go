package rulecontext

import (
	"slices"
	"strings"
)

// All keeps every applied value.
func All() Selector {
	return func(applied []string) []string {
		return applied
	}
}

// AllowOnly keeps applied values present in values.
func AllowOnly(values ...string) Selector {
	allowed := slices.Clone(values)
	return func(applied []string) []string {
		return slices.DeleteFunc(slices.Clone(applied), func(v string) bool {
			return !slices.Contains(allowed, v)
		})
	}
}

// Deny keeps applied values not present in values.
func Deny(values ...string) Selector {
	denied := slices.Clone(values)
	return func(applied []string) []string {
		return slices.DeleteFunc(slices.Clone(applied), func(v string) bool {
			return slices.Contains(denied, v)
		})
	}
}

// StripPrefix returns a rule context transform removing prefix from every entry.
func StripPrefix(prefix string) func([]string) []string {
	return func(ruleContexts []string) []string {
		result := make([]string, len(ruleContexts))
		for i, ruleContext := range ruleContexts {
			result[i] = strings.TrimPrefix(ruleContext, prefix)
		}
		return result
	}
}

// Lowercase returns a rule context transform lowering every entry.
func Lowercase() func([]string) []string {
	return func(ruleContexts []string) []string {
		result := make([]string, len(ruleContexts))
		for i, ruleContext := range ruleContexts {
			result[i] = strings.ToLower(ruleContext)
		}
		return result
	}
}

// Chain applies transforms left to right.
func Chain(transforms ...func([]string) []string) func([]string) []string {
	return func(ruleContexts []string) []string {
		for _, transform := range transforms {
			ruleContexts = transform(ruleContexts)
		}
		return ruleContexts
	}
}
