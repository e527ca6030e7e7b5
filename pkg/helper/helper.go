package helper

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/matst80/slask-rulecontext/pkg/types"
	"go.uber.org/zap"
)

var ErrTooManyRounds = errors.New("helper: search rounds exceeded")

type Searcher interface {
	Search(ctx context.Context, state *types.SearchState) (*types.SearchResults, error)
}

// SearchFunc adapts a plain function to a Searcher.
type SearchFunc func(ctx context.Context, state *types.SearchState) (*types.SearchResults, error)

func (f SearchFunc) Search(ctx context.Context, state *types.SearchState) (*types.SearchResults, error) {
	return f(ctx, state)
}

// Helper owns the search state and drives widgets through their lifecycle.
// Search only marks a search as pending; Flush runs pending searches and
// hands the results to every widget, one round at a time.
type Helper struct {
	state       *types.SearchState
	searcher    Searcher
	tracking    types.Tracking
	logger      *zap.Logger
	sessionId   string
	maxRounds   int
	widgets     []types.Widget
	pending     bool
	searches    int
	lastResults *types.SearchResults
}

var _ types.SearchHost = (*Helper)(nil)

type Option func(*Helper)

func WithTracking(tracking types.Tracking) Option {
	return func(h *Helper) {
		h.tracking = tracking
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(h *Helper) {
		h.logger = logger
	}
}

// WithMaxRounds bounds how many searches a single Flush may run.
func WithMaxRounds(rounds int) Option {
	return func(h *Helper) {
		h.maxRounds = rounds
	}
}

func WithSessionId(id string) Option {
	return func(h *Helper) {
		h.sessionId = id
	}
}

func New(state *types.SearchState, searcher Searcher, opts ...Option) *Helper {
	if state == nil {
		state = types.NewSearchState()
	}
	state.Sanitize()
	h := &Helper{
		state:     state,
		searcher:  searcher,
		logger:    zap.NewNop(),
		sessionId: uuid.NewString(),
		maxRounds: 5,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Helper) State() *types.SearchState {
	return h.state
}

func (h *Helper) SessionId() string {
	return h.sessionId
}

// Searches returns how many times a search was requested.
func (h *Helper) Searches() int {
	return h.searches
}

func (h *Helper) Pending() bool {
	return h.pending
}

func (h *Helper) LastResults() *types.SearchResults {
	return h.lastResults
}

func (h *Helper) Refinements(facet string) []string {
	return h.state.Refinements.Get(facet)
}

func (h *Helper) AddRefinement(facet, value string) {
	h.state.Refinements.Add(facet, value)
}

func (h *Helper) RemoveRefinement(facet, value string) {
	h.state.Refinements.Remove(facet, value)
}

// Refine toggles value for facet and searches again.
func (h *Helper) Refine(facet, value string) {
	h.state.Refinements.Toggle(facet, value)
	h.state.Page = 0
	h.Search()
}

func (h *Helper) QueryParameter(name string) ([]string, error) {
	return h.state.Parameter(name)
}

func (h *Helper) SetQueryParameter(name string, value []string) {
	previous, _ := h.state.Parameter(name)
	h.state.SetParameter(name, value)
	if name != types.RuleContextsParameter || h.tracking == nil {
		return
	}
	if slices.Equal(previous, value) {
		return
	}
	if err := h.tracking.TrackRuleContexts(h.sessionId, previous, value); err != nil {
		h.logger.Error("failed to track rule context change", zap.Error(err))
	}
}

func (h *Helper) Search() {
	h.pending = true
	h.searches++
}

// AddWidgets registers widgets and initializes them in order.
func (h *Helper) AddWidgets(widgets ...types.Widget) {
	for _, w := range widgets {
		h.widgets = append(h.widgets, w)
		w.OnInit(h)
	}
}

// Dispose tears widgets down in reverse registration order.
func (h *Helper) Dispose() {
	for _, w := range slices.Backward(h.widgets) {
		w.OnDispose(h)
	}
	h.widgets = nil
}

// Flush runs pending searches until no widget asks for another one.
func (h *Helper) Flush(ctx context.Context) error {
	for round := 0; h.pending; round++ {
		if round >= h.maxRounds {
			return fmt.Errorf("%w: %d", ErrTooManyRounds, h.maxRounds)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		h.pending = false
		results, err := h.searcher.Search(ctx, h.state.Clone())
		if err != nil {
			return fmt.Errorf("helper: search failed: %w", err)
		}
		if results == nil {
			results = &types.SearchResults{}
		}
		h.lastResults = results
		h.logger.Debug("search completed",
			zap.Int("round", round),
			zap.Int("hits", results.NbHits),
			zap.Strings("ruleContexts", h.state.RuleContexts))
		for _, w := range h.widgets {
			w.OnResults(h, results)
		}
	}
	return nil
}
