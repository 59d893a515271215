package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-block-scheduler/pkg/errors"
)

type memoryCache struct {
	data    map[string][]byte
	deleted []string
	getErr  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	prefix := pattern[:len(pattern)-1]
	for key := range m.data {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(m.data, key)
		}
	}
	return nil
}

func TestRememberLoadsOnceThenHits(t *testing.T) {
	repo := newMemoryCache()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)
	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		return []string{"S1", "S2"}, nil
	}

	var first, second []string
	require.NoError(t, Remember(context.Background(), svc, RunViewKey("r1", "students"), &first, load))
	require.NoError(t, Remember(context.Background(), svc, RunViewKey("r1", "students"), &second, load))

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
}

func TestRememberPropagatesLoadError(t *testing.T) {
	svc := NewCacheService(newMemoryCache(), nil, 0, nil, true)
	var dest int
	err := Remember(context.Background(), svc, "k", &dest, func(context.Context) (int, error) {
		return 0, errors.New("db down")
	})
	assert.EqualError(t, err, "db down")
}

func TestCacheServiceDisabledAlwaysLoads(t *testing.T) {
	repo := newMemoryCache()
	svc := NewCacheService(repo, nil, 0, nil, false)
	calls := 0
	var dest int
	for i := 0; i < 2; i++ {
		require.NoError(t, Remember(context.Background(), svc, "k", &dest, func(context.Context) (int, error) {
			calls++
			return 7, nil
		}))
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, repo.data)
}

func TestCacheServiceSwallowsBackendErrors(t *testing.T) {
	repo := newMemoryCache()
	repo.getErr = errors.New("connection refused")
	svc := NewCacheService(repo, nil, 0, nil, true)

	var dest int
	require.NoError(t, Remember(context.Background(), svc, "k", &dest, func(context.Context) (int, error) { return 3, nil }))
	assert.Equal(t, 3, dest)
}

func TestInvalidateRun(t *testing.T) {
	repo := newMemoryCache()
	svc := NewCacheService(repo, nil, 0, nil, true)
	svc.Set(context.Background(), RunViewKey("r1", "students"), 1, 0)
	svc.Set(context.Background(), RunViewKey("r2", "students"), 1, 0)

	svc.InvalidateRun(context.Background(), "r1")

	assert.Equal(t, []string{"schedule:run:r1:*"}, repo.deleted)
	assert.Len(t, repo.data, 1)
	var nilSvc *CacheService
	nilSvc.InvalidateRun(context.Background(), "r1")
}
