package rulecontext

import (
	"slices"

	"github.com/matst80/slask-rulecontext/pkg/types"
)

// OnInit captures the rule contexts already present in the host state and
// publishes the ones derived from the current refinements.
func (r *Reconciler) OnInit(host Host) {
	if r.state == disposed {
		r.logger.Debug("init called on a disposed reconciler")
		return
	}
	firstInit := r.state == uninitialized
	r.state = active

	if r.hasTrackedFilters() {
		if firstInit {
			r.initial = r.captureInitial(host)
		}
		r.apply(host)
	}

	r.render(RenderOptions{
		Items: []any{},
		Host:  host,
	}, true)
}

// captureInitial reads the host rule contexts. An unset or empty parameter
// is primed with an empty list so later reads succeed.
func (r *Reconciler) captureInitial(host Host) []string {
	current, err := host.QueryParameter(types.RuleContextsParameter)
	if err != nil || len(current) == 0 {
		host.SetQueryParameter(types.RuleContextsParameter, []string{})
		return []string{}
	}
	return slices.Clone(current)
}

func (r *Reconciler) OnResults(host Host, results *types.SearchResults) {
	if r.state == disposed {
		r.logger.Debug("results received by a disposed reconciler")
		return
	}
	r.state = active

	if r.hasTrackedFilters() {
		r.apply(host)
	}

	r.render(RenderOptions{
		Items:   r.config.TransformItems(results.Items()),
		Results: results,
		Host:    host,
	}, false)
}

// OnDispose removes the derived rule contexts from the host state, leaving
// the initial ones in place, and searches again.
func (r *Reconciler) OnDispose(host Host) {
	if r.state == disposed {
		return
	}
	r.config.Unmount()
	r.state = disposed

	if !r.hasTrackedFilters() {
		return
	}

	current, err := host.QueryParameter(types.RuleContextsParameter)
	if err != nil {
		current = []string{}
	}
	remaining := slices.DeleteFunc(slices.Clone(current), func(ruleContext string) bool {
		return slices.Contains(r.derived, ruleContext)
	})
	host.SetQueryParameter(types.RuleContextsParameter, remaining)
	host.Search()
	noRequeries.Inc()

	r.derived = []string{}
}
