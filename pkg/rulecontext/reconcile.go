package rulecontext

import (
	"slices"

	"github.com/matst80/slask-rulecontext/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	noPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rulecontext_published_total",
		Help: "The total number of rule context lists written to the search state",
	})
	noRequeries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rulecontext_requery_total",
		Help: "The total number of searches triggered by rule context changes",
	})
	noLimitExceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rulecontext_limit_exceeded_total",
		Help: "The total number of times more than 10 rule contexts were computed",
	})
)

// Reconcile puts the initial rule contexts before the derived ones, applies
// transform and keeps at most MaxRuleContexts entries. exceeded reports if
// the untransformed list was over the limit.
func Reconcile(initial, derived []string, transform func([]string) []string) (result []string, exceeded bool) {
	all := make([]string, 0, len(initial)+len(derived))
	all = append(all, initial...)
	all = append(all, derived...)
	exceeded = len(all) > MaxRuleContexts

	if transform != nil {
		all = transform(all)
	}
	if len(all) > MaxRuleContexts {
		all = all[:MaxRuleContexts]
	}
	return append([]string{}, all...), exceeded
}

func (r *Reconciler) apply(host Host) {
	r.derived = Derive(host, r.config.TrackedFilters)

	next, exceeded := Reconcile(r.initial, r.derived, r.config.TransformRuleContexts)
	if exceeded {
		noLimitExceeded.Inc()
		r.logger.Warn("the maximum number of rule contexts was exceeded, use TransformRuleContexts to reduce the list",
			zap.Int("limit", MaxRuleContexts),
			zap.Int("count", len(r.initial)+len(r.derived)))
	}
	publish(host, next)
}

// publish stores ruleContexts and searches again, only when they differ from
// what the host already has.
func publish(host Host, ruleContexts []string) bool {
	current, err := host.QueryParameter(types.RuleContextsParameter)
	if err == nil && slices.Equal(current, ruleContexts) {
		return false
	}
	host.SetQueryParameter(types.RuleContextsParameter, ruleContexts)
	noPublished.Inc()
	host.Search()
	noRequeries.Inc()
	return true
}
