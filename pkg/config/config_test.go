package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matst80/slask-rulecontext/pkg/rulecontext"
	"github.com/matst80/slask-rulecontext/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
endpoint: http://search.internal/api/search
trackedFilters:
  - facet: brand
  - facet: category
    allow: [Phones, TV]
  - facet: color
    deny: [Other]
transform:
  stripPrefix: "ais-"
  lowercase: true
cache:
  ttl: 30s
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rulectx.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

type refinements map[string][]string

func (r refinements) Refinements(facet string) []string {
	return r[facet]
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "http://search.internal/api/search", cfg.Endpoint)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 5, cfg.MaxRounds)
	require.Len(t, cfg.TrackedFilters, 3)
	assert.Equal(t, []string{"Phones", "TV"}, cfg.TrackedFilters[1].Allow)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SEARCH_ENDPOINT", "http://override/api/search")
	t.Setenv("REDIS_URL", "redis:6379")
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "http://override/api/search", cfg.Endpoint)
	assert.Equal(t, "redis:6379", cfg.Redis.Url)
}

func TestValidate(t *testing.T) {
	_, err := Load(writeConfig(t, "trackedFilters:\n  - facet: brand\n    allow: [a]\n    deny: [b]\n"))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Load(writeConfig(t, "trackedFilters:\n  - allow: [a]\n"))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Load(writeConfig(t, "trackedFilters:\n  - facet: brand\n  - facet: brand\n"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestRuleContextConfigSelectors(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)
	rc := cfg.RuleContextConfig(func(rulecontext.RenderOptions, bool) {}, nil)

	state := refinements{
		"brand":    {"Samsung"},
		"category": {"Laptops", "TV"},
		"color":    {"Other", "Black"},
	}
	derived := rulecontext.Derive(state, rc.TrackedFilters)
	assert.Equal(t, []string{"ais-brand-Samsung", "ais-category-TV", "ais-color-Black"}, derived)

	got, exceeded := rulecontext.Reconcile([]string{"Campaign"}, derived, rc.TransformRuleContexts)
	assert.False(t, exceeded)
	assert.Equal(t, []string{"campaign", "brand-samsung", "category-tv", "color-black"}, got)
}

func TestRuleContextConfigBuildsReconciler(t *testing.T) {
	cfg := Default()
	cfg.TrackedFilters = []TrackedFilter{{Facet: "brand"}}
	rc := cfg.RuleContextConfig(func(rulecontext.RenderOptions, bool) {}, nil)
	assert.Nil(t, rc.TransformRuleContexts)

	r, err := rulecontext.New(rc)
	require.NoError(t, err)

	state := types.NewSearchState()
	state.Refinements.Add("brand", "LG")
	assert.Equal(t, []string{"ais-brand-LG"}, rulecontext.Derive(refinements(state.Refinements), rc.TrackedFilters))
	assert.Empty(t, r.Derived())
}
