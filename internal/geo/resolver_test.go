package geo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eldo84/live-health-sub002/internal/metrics"
	"github.com/Eldo84/live-health-sub002/internal/model"
)

type fakeGeocoder struct {
	calls atomic.Int64
	fail  bool
}

func (f *fakeGeocoder) Name() string { return "fake" }

func (f *fakeGeocoder) Geocode(_ context.Context, q string) (Place, error) {
	f.calls.Add(1)
	if f.fail {
		return Place{}, errors.New("boom")
	}
	return Place{Name: q, Position: model.Position{Lat: 1, Lon: 2}}, nil
}

func TestResolverGazetteerFirst(t *testing.T) {
	ext := &fakeGeocoder{}
	r := NewResolver(defaultGazetteer(t), WithGeocoder(ext))
	b := NewBudget(5)

	p, tier, ok := r.Resolve(context.Background(), []string{"Nowhere town", "Yemen"}, b)
	require.True(t, ok)
	assert.Equal(t, TierGazetteer, tier)
	assert.Equal(t, "Yemen", p.Name)
	assert.Zero(t, ext.calls.Load())
	assert.Equal(t, 5, b.Remaining())
}

func TestResolverWithoutGeocoder(t *testing.T) {
	r := NewResolver(defaultGazetteer(t))
	assert.False(t, r.ExternalEnabled())

	_, tier, ok := r.ResolveText(context.Background(), "Atlantis", NewBudget(5))
	assert.False(t, ok)
	assert.Equal(t, TierUnresolved, tier)
}

func TestResolverExternalChargesOnlySuccess(t *testing.T) {
	ctx := context.Background()
	ext := &fakeGeocoder{fail: true}
	r := NewResolver(defaultGazetteer(t), WithGeocoder(ext))
	b := NewBudget(1)

	_, _, ok := r.ResolveText(ctx, "Atlantis", b)
	assert.False(t, ok)
	assert.Equal(t, 1, b.Remaining())

	ext.fail = false
	p, tier, ok := r.Resolve(ctx, []string{"  ", "Atlantis"}, b)
	require.True(t, ok)
	assert.Equal(t, TierExternal, tier)
	assert.Equal(t, "Atlantis", p.Name)
	assert.Equal(t, 0, b.Remaining())

	_, tier, ok = r.ResolveText(ctx, "Lemuria", b)
	assert.False(t, ok)
	assert.Equal(t, TierUnresolved, tier)
	assert.Equal(t, int64(2), ext.calls.Load())
}

func TestResolverCacheSkipsBudget(t *testing.T) {
	ctx := context.Background()
	ext := &fakeGeocoder{}
	cache := NewMemoryCache(10, time.Hour)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	r := NewResolver(defaultGazetteer(t), WithGeocoder(ext), WithCache(cache), WithMetrics(m))

	_, tier, ok := r.ResolveText(ctx, "Atlantis", NewBudget(1))
	require.True(t, ok)
	assert.Equal(t, TierExternal, tier)

	// a fresh run with no budget still gets the cached answer
	p, tier, ok := r.ResolveText(ctx, "ATLANTIS", NewBudget(0))
	require.True(t, ok)
	assert.Equal(t, TierCache, tier)
	assert.Equal(t, "Atlantis", p.Name)
	assert.Equal(t, int64(1), ext.calls.Load())

	n, err := testutil.GatherAndCount(reg, "outbreak_location_lookups_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestResolverConcurrentCallsStayWithinBudget(t *testing.T) {
	ext := &fakeGeocoder{}
	r := NewResolver(defaultGazetteer(t), WithGeocoder(ext))
	b := NewBudget(7)

	var resolved atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := "unknown place " + string(rune('a'+i%26)) + string(rune('a'+i/26))
			if _, _, ok := r.ResolveText(context.Background(), q, b); ok {
				resolved.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(7), ext.calls.Load())
	assert.Equal(t, int64(7), resolved.Load())
	assert.Equal(t, 7, b.Spent())
}
