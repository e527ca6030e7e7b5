package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBackend struct {
	mu    sync.Mutex
	data  map[string][]byte
	gets  int
	sets  int
	fail  error
	close bool
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{data: map[string][]byte{}}
}

func (m *memoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.fail != nil {
		return nil, m.fail
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return v, nil
}

func (m *memoryBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.data[key] = value
	return nil
}

func (m *memoryBackend) Close() error {
	m.close = true
	return nil
}

type entry struct {
	Name  string   `json:"name"`
	Rules []string `json:"rules"`
}

func TestLocalLayerServesBeforeBackend(t *testing.T) {
	backend := newMemoryBackend()
	c := New(backend)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", entry{Name: "a", Rules: []string{"x"}}, time.Minute))

	var out entry
	require.NoError(t, c.Get(ctx, "k", &out))
	assert.Equal(t, entry{Name: "a", Rules: []string{"x"}}, out)
	assert.Equal(t, 0, backend.gets)
}

func TestExpiredLocalEntryFallsBackToBackend(t *testing.T) {
	backend := newMemoryBackend()
	c := New(backend)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", entry{Name: "a"}, time.Hour))
	now = now.Add(2 * time.Minute)

	var out entry
	require.NoError(t, c.Get(ctx, "k", &out))
	assert.Equal(t, "a", out.Name)
	assert.Equal(t, 1, backend.gets)

	require.NoError(t, c.Get(ctx, "k", &out))
	assert.Equal(t, 1, backend.gets)
}

func TestMiss(t *testing.T) {
	c := New(newMemoryBackend())
	var out entry
	err := c.Get(context.Background(), "missing", &out)
	assert.True(t, errors.Is(err, ErrMiss))
}

func TestHelperHandle(t *testing.T) {
	backend := newMemoryBackend()
	h := NewHelper[entry](New(backend))
	ctx := context.Background()
	calls := 0
	fn := func() (entry, error) {
		calls++
		return entry{Name: "computed"}, nil
	}

	var out entry
	hit, err := h.Handle(ctx, "k", &out, fn, time.Minute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "computed", out.Name)

	var again entry
	hit, err = h.Handle(ctx, "k", &again, fn, time.Minute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "computed", again.Name)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, backend.sets)
}

func TestHelperHandleError(t *testing.T) {
	h := NewHelper[entry](New(newMemoryBackend()))
	failure := errors.New("search failed")
	var out entry
	_, err := h.Handle(context.Background(), "k", &out, func() (entry, error) {
		return entry{}, failure
	}, time.Minute)
	assert.ErrorIs(t, err, failure)
}
