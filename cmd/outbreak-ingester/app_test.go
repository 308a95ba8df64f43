package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Eldo84/live-health-sub002/internal/config"
	"github.com/Eldo84/live-health-sub002/internal/pipeline"
)

func TestBuildWithEverythingDisabledServesStaticSample(t *testing.T) {
	cfg := config.Default()
	cfg.Sources.Bulletin.Enabled = false
	cfg.Sources.Statistics.Enabled = false
	cfg.Sources.News.Enabled = false

	a, err := build(cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	res, err := a.orchestrator.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pipeline.StageStatic, res.Stage)
	assert.Len(t, res.Signals, 5)
}

func TestBuildWiresRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	geocoder := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"formatted":"Somewhere","geometry":{"lat":1,"lng":2}}]}`))
	}))
	defer geocoder.Close()
	bulletin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<rss version="2.0"><channel><item><title>Cholera - Village Nine</title><link>https://x.example/1</link></item></channel></rss>`))
	}))
	defer bulletin.Close()

	cfg := config.Default()
	cfg.Sources.Statistics.Enabled = false
	cfg.Sources.News.Enabled = false
	cfg.Sources.Bulletin.URL = bulletin.URL
	cfg.Geocode.URL = geocoder.URL
	cfg.Geocode.APIKey = "k"
	cfg.Geocode.Redis.Addr = mr.Addr()

	a, err := build(cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.redis)

	res, err := a.orchestrator.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pipeline.StagePrimary, res.Stage)
	require.Len(t, res.Signals, 1)
	assert.Equal(t, 1, res.BudgetSpent)
	assert.True(t, mr.Exists("outbreak:geocode:village nine"))
}
