package helper

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/matst80/slask-rulecontext/pkg/rulecontext"
	"github.com/matst80/slask-rulecontext/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// merchandisingBackend answers with a banner when the samsung rule context is sent.
func merchandisingBackend(received *[]*types.SearchState) SearchFunc {
	return func(_ context.Context, state *types.SearchState) (*types.SearchResults, error) {
		*received = append(*received, state)
		res := &types.SearchResults{
			NbHits: 2,
			Facets: map[string]types.FacetValues{
				"brand": {"Samsung": 100, "Apple": 100},
			},
		}
		if slices.Contains(state.RuleContexts, "ais-brand-Samsung") {
			res.UserData = []any{map[string]any{"banner": "samsung-week.png"}}
		}
		return res, nil
	}
}

type trackCall struct {
	previous []string
	current  []string
}

type fakeTracking struct {
	calls []trackCall
	err   error
}

func (f *fakeTracking) TrackRuleContexts(_ string, previous, current []string) error {
	f.calls = append(f.calls, trackCall{previous: previous, current: current})
	return f.err
}

func (f *fakeTracking) Close() error {
	return nil
}

func TestRuleContextRoundTrip(t *testing.T) {
	var received []*types.SearchState
	tracking := &fakeTracking{}
	h := New(nil, merchandisingBackend(&received), WithTracking(tracking))

	var rendered []any
	r, err := rulecontext.New(rulecontext.Config{
		TrackedFilters: []rulecontext.TrackedFilter{{Facet: "brand", Selector: rulecontext.All()}},
		Render: func(opts rulecontext.RenderOptions, isFirstRender bool) {
			if !isFirstRender {
				rendered = opts.Items.([]any)
			}
		},
	})
	require.NoError(t, err)

	h.AddWidgets(r)
	assert.False(t, h.Pending())
	assert.Empty(t, tracking.calls)

	h.Refine("brand", "Samsung")
	require.NoError(t, h.Flush(context.Background()))

	require.Len(t, received, 2)
	assert.Empty(t, received[0].RuleContexts)
	assert.Equal(t, []string{"ais-brand-Samsung"}, received[1].RuleContexts)
	assert.Equal(t, 2, h.Searches())
	require.Len(t, rendered, 1)
	assert.Equal(t, map[string]any{"banner": "samsung-week.png"}, rendered[0])

	require.Len(t, tracking.calls, 1)
	assert.Equal(t, []string{}, tracking.calls[0].previous)
	assert.Equal(t, []string{"ais-brand-Samsung"}, tracking.calls[0].current)

	h.Dispose()
	ctx, err := h.QueryParameter(types.RuleContextsParameter)
	require.NoError(t, err)
	assert.Equal(t, []string{}, ctx)
	assert.True(t, h.Pending())
	assert.Equal(t, 3, h.Searches())
	assert.Len(t, tracking.calls, 2)
}

func TestSearchesAreSnapshots(t *testing.T) {
	var received []*types.SearchState
	h := New(nil, merchandisingBackend(&received))
	h.Refine("brand", "Apple")
	require.NoError(t, h.Flush(context.Background()))

	h.AddRefinement("brand", "LG")
	require.Len(t, received, 1)
	assert.Equal(t, []string{"Apple"}, received[0].Refinements.Get("brand"))
}

type greedyWidget struct{}

func (greedyWidget) OnInit(types.SearchHost) {}

func (greedyWidget) OnResults(host types.SearchHost, _ *types.SearchResults) {
	host.Search()
}

func (greedyWidget) OnDispose(types.SearchHost) {}

func TestFlushIsBounded(t *testing.T) {
	var received []*types.SearchState
	h := New(nil, merchandisingBackend(&received), WithMaxRounds(3))
	h.AddWidgets(greedyWidget{})
	h.Search()

	err := h.Flush(context.Background())
	assert.ErrorIs(t, err, ErrTooManyRounds)
	assert.Len(t, received, 3)
}

func TestFlushReturnsSearchErrors(t *testing.T) {
	failure := errors.New("backend down")
	h := New(nil, SearchFunc(func(context.Context, *types.SearchState) (*types.SearchResults, error) {
		return nil, failure
	}))
	h.Search()

	err := h.Flush(context.Background())
	assert.ErrorIs(t, err, failure)
}

func TestFlushWithoutPendingSearch(t *testing.T) {
	called := false
	h := New(nil, SearchFunc(func(context.Context, *types.SearchState) (*types.SearchResults, error) {
		called = true
		return nil, nil
	}))
	require.NoError(t, h.Flush(context.Background()))
	assert.False(t, called)
}

func TestFlushHonoursCancelledContext(t *testing.T) {
	var received []*types.SearchState
	h := New(nil, merchandisingBackend(&received))
	h.Search()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, h.Flush(ctx), context.Canceled)
	assert.Empty(t, received)
}

func TestTrackingErrorsDoNotBlockWrites(t *testing.T) {
	tracking := &fakeTracking{err: errors.New("broker gone")}
	h := New(nil, nil, WithTracking(tracking), WithSessionId("session-1"))

	h.SetQueryParameter(types.RuleContextsParameter, []string{"a"})

	ctx, err := h.QueryParameter(types.RuleContextsParameter)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ctx)
	assert.Len(t, tracking.calls, 1)
	assert.Equal(t, "session-1", h.SessionId())
}

func TestRemovedRefinementDropsRuleContext(t *testing.T) {
	var received []*types.SearchState
	h := New(nil, merchandisingBackend(&received))
	r, err := rulecontext.New(rulecontext.Config{
		TrackedFilters: []rulecontext.TrackedFilter{{Facet: "brand", Selector: rulecontext.All()}},
		Render:         func(rulecontext.RenderOptions, bool) {},
	})
	require.NoError(t, err)
	h.AddWidgets(r)

	h.AddRefinement("brand", "Samsung")
	h.AddRefinement("brand", "Apple")
	h.Search()
	require.NoError(t, h.Flush(context.Background()))
	ruleContexts, err := h.QueryParameter(types.RuleContextsParameter)
	require.NoError(t, err)
	require.Equal(t, []string{"ais-brand-Samsung", "ais-brand-Apple"}, ruleContexts)

	h.RemoveRefinement("brand", "Samsung")
	h.Search()
	require.NoError(t, h.Flush(context.Background()))

	assert.Equal(t, []string{"Apple"}, h.Refinements("brand"))
	ruleContexts, err = h.QueryParameter(types.RuleContextsParameter)
	require.NoError(t, err)
	assert.Equal(t, []string{"ais-brand-Apple"}, ruleContexts)
	assert.Equal(t, []string{"ais-brand-Apple"}, received[len(received)-1].RuleContexts)
}
