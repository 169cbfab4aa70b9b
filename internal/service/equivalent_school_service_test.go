package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type equivalentSourceStub struct {
	ids   []string
	err   error
	calls int
}

func (s *equivalentSourceStub) EquivalentSchools(ctx context.Context, schoolID string) ([]string, error) {
	s.calls++
	return s.ids, s.err
}

type memoryPoolCache struct {
	items map[string][]byte
}

func (c *memoryPoolCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := c.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memoryPoolCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.items[key] = raw
	return nil
}

func (c *memoryPoolCache) Forget(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(c.items, key)
	}
	return nil
}

func TestResolveIncludesRequestedSchool(t *testing.T) {
	source := &equivalentSourceStub{ids: []string{"school-2", "school-1", "", "school-3"}}
	cache := &memoryPoolCache{items: map[string][]byte{}}
	svc := NewEquivalentSchoolService(source, cache, time.Hour, nil, nil)

	pool := svc.Resolve(context.Background(), "school-1")
	assert.Equal(t, []string{"school-1", "school-2", "school-3"}, pool)

	again := svc.Resolve(context.Background(), "school-1")
	assert.Equal(t, pool, again)
	assert.Equal(t, 1, source.calls)
	require.Contains(t, cache.items, "slots:equivalent-schools:school-1")
}

func TestResolveFallsBackOnFailure(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewEquivalentSchoolService(&equivalentSourceStub{err: errors.New("mdm down")}, nil, time.Hour, metrics, nil)

	assert.Equal(t, []string{"school-1"}, svc.Resolve(context.Background(), "school-1"))
	assert.Equal(t, uint64(1), metrics.Snapshot().BestEffortFailures)
}

func TestResolveWithoutSource(t *testing.T) {
	var svc *EquivalentSchoolService
	assert.Equal(t, []string{"school-1"}, svc.Resolve(context.Background(), "school-1"))
}

func TestInvalidateForcesFreshLookup(t *testing.T) {
	source := &equivalentSourceStub{ids: []string{"school-2"}}
	cache := &memoryPoolCache{items: map[string][]byte{}}
	svc := NewEquivalentSchoolService(source, cache, time.Hour, nil, nil)

	svc.Resolve(context.Background(), "school-1")
	require.NoError(t, svc.Invalidate(context.Background(), "school-1", "school-1"))
	assert.NotContains(t, cache.items, "slots:equivalent-schools:school-1")

	source.ids = []string{"school-4"}
	assert.Equal(t, []string{"school-1", "school-4"}, svc.Resolve(context.Background(), "school-1"))
	assert.Equal(t, 2, source.calls)
}
