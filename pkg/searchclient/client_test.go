package searchclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matst80/slask-rulecontext/pkg/cache"
	"github.com/matst80/slask-rulecontext/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchResponse = `{
	"hits": [{"id": 1}],
	"nbHits": 1,
	"page": 0,
	"facets": {"brand": {"Samsung": 100, "Apple": 100}},
	"userData": [{"banner": "samsung-week.png"}]
}`

type mapBackend struct {
	data map[string][]byte
}

func (m *mapBackend) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return v, nil
}

func (m *mapBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *mapBackend) Close() error {
	return nil
}

func TestSearchSendsStateAndDecodes(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(searchResponse))
	}))
	defer srv.Close()

	state := types.NewSearchState()
	state.Refinements.Add("brand", "Samsung")
	state.SetParameter(types.RuleContextsParameter, []string{"ais-brand-Samsung"})

	res, err := New(srv.URL).Search(context.Background(), state)
	require.NoError(t, err)

	assert.Contains(t, query, "ruleContexts=ais-brand-Samsung")
	assert.Contains(t, query, "ref=brand%3ASamsung")
	assert.Equal(t, 1, res.NbHits)
	assert.Equal(t, 100, res.FacetValues("brand")["Samsung"])
	require.Len(t, res.Items(), 1)
	assert.Equal(t, map[string]any{"banner": "samsung-week.png"}, res.Items()[0])
}

func TestSearchUsesCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(searchResponse))
	}))
	defer srv.Close()

	client := New(srv.URL)
	client.Cache = cache.New(&mapBackend{data: map[string][]byte{}})
	state := types.NewSearchState()

	first, err := client.Search(context.Background(), state)
	require.NoError(t, err)
	second, err := client.Search(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, first.NbHits, second.NbHits)
	assert.Equal(t, first.UserData, second.UserData)
}

func TestSearchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "index not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := New(srv.URL)
	client.Cache = cache.New(&mapBackend{data: map[string][]byte{}})
	_, err := client.Search(context.Background(), types.NewSearchState())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
