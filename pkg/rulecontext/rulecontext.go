// Package rulecontext keeps the ruleContexts search parameter in sync with the
// refinements applied to a set of tracked facets, so merchandising rules on
// the search backend can react to filters chosen by the user.
//
// A Reconciler is driven by a host through three lifecycle calls: OnInit once,
// OnResults for every result set, and OnDispose once. It is not safe for
// concurrent use; a host drives one instance sequentially.
package rulecontext

import (
	"errors"
	"fmt"

	"github.com/matst80/slask-rulecontext/pkg/types"
	"go.uber.org/zap"
)

// MaxRuleContexts is the number of rule contexts the search backend accepts.
const MaxRuleContexts = 10

var ErrMissingRender = errors.New("rulecontext: render function is required")

// Selector picks which of the currently applied values of a facet should
// produce a rule context.
type Selector func(applied []string) []string

type TrackedFilter struct {
	Facet    string
	Selector Selector
}

// Host is the search state owner driving the reconciler.
type Host = types.SearchHost

type RenderOptions struct {
	// Items is the transformed user data; on first render it is an empty slice.
	Items        any
	Results      *types.SearchResults
	Host         Host
	WidgetParams *Config
}

type RenderFunc func(opts RenderOptions, isFirstRender bool)

type Config struct {
	TrackedFilters        []TrackedFilter
	TransformRuleContexts func(ruleContexts []string) []string
	TransformItems        func(items []any) any
	Render                RenderFunc
	Unmount               func()
	Logger                *zap.Logger
}

var _ types.Widget = (*Reconciler)(nil)

type lifecycle uint8

const (
	uninitialized lifecycle = iota
	active
	disposed
)

type Reconciler struct {
	config      Config
	initial     []string
	derived     []string
	state       lifecycle
	renderState *RenderOptions
	logger      *zap.Logger
}

func New(config Config) (*Reconciler, error) {
	if config.Render == nil {
		return nil, fmt.Errorf("%w: pass a RenderFunc that draws the query rule output", ErrMissingRender)
	}
	for i, filter := range config.TrackedFilters {
		if filter.Facet == "" {
			return nil, fmt.Errorf("rulecontext: tracked filter %d has no facet name", i)
		}
		if filter.Selector == nil {
			return nil, fmt.Errorf("rulecontext: tracked filter %q must have a selector function", filter.Facet)
		}
	}
	config.TrackedFilters = append([]TrackedFilter(nil), config.TrackedFilters...)
	if config.TransformRuleContexts == nil {
		config.TransformRuleContexts = func(ruleContexts []string) []string { return ruleContexts }
	}
	if config.TransformItems == nil {
		config.TransformItems = func(items []any) any { return items }
	}
	if config.Unmount == nil {
		config.Unmount = func() {}
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &Reconciler{
		config:  config,
		initial: []string{},
		derived: []string{},
		logger:  config.Logger.Named("rulecontext"),
	}, nil
}

func (r *Reconciler) hasTrackedFilters() bool {
	return len(r.config.TrackedFilters) > 0
}

// Derived returns the rule contexts most recently computed from tracked filters.
func (r *Reconciler) Derived() []string {
	return append([]string{}, r.derived...)
}

// Initial returns the rule contexts found in the host state on first init.
func (r *Reconciler) Initial() []string {
	return append([]string{}, r.initial...)
}

// RenderState returns the options of the last render, nil before OnInit.
func (r *Reconciler) RenderState() *RenderOptions {
	return r.renderState
}

func (r *Reconciler) render(opts RenderOptions, isFirstRender bool) {
	opts.WidgetParams = &r.config
	r.renderState = &opts
	r.config.Render(opts, isFirstRender)
}
