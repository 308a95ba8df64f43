package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eldo84/live-health-sub002/internal/config"
)

var states = []string{"NY", "CA", "TX", "FL", "WA", "OR", "NV", "AZ", "OH", "MI"}

func serveStateRows(t *testing.T, w http.ResponseWriter, q url.Values) {
	t.Helper()
	limit, _ := strconv.Atoi(q.Get("$limit"))
	offset, _ := strconv.Atoi(q.Get("$offset"))
	assert.Equal(t, ":id", q.Get("$order"))
	var rows []map[string]string
	for i := offset; i < len(states) && i < offset+limit; i++ {
		rows = append(rows, map[string]string{
			"state":           states[i],
			"submission_date": fmt.Sprintf("2024-03-%02dT00:00:00.000", i+1),
		})
	}
	_ = json.NewEncoder(w).Encode(rows)
}

func statsConfig(u string, limit, page int) config.StatisticsConfig {
	return config.StatisticsConfig{
		URL:             u,
		Limit:           limit,
		PageSize:        page,
		DefaultDisease:  "COVID-19",
		DefaultCategory: "Respiratory Outbreaks",
		DefaultPathogen: "SARS-CoV-2",
	}
}

func TestStatisticsDirectPaging(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		serveStateRows(t, w, r.URL.Query())
	}))
	defer srv.Close()

	items, err := NewStatistics(statsConfig(srv.URL, 7, 3), nil).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 7)
	assert.Equal(t, int32(3), requests.Load())

	first := items[0]
	assert.Equal(t, "COVID-19", first.Disease)
	assert.Equal(t, "Respiratory Outbreaks", first.Category)
	assert.Equal(t, "SARS-CoV-2", first.Pathogen)
	assert.Equal(t, "NY, USA", first.Location)
	assert.Equal(t, "NY", first.Meta["region"])
	assert.Equal(t, 2024, first.Published.Year())
}

func TestStatisticsStopsOnShortPage(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		serveStateRows(t, w, r.URL.Query())
	}))
	defer srv.Close()

	items, err := NewStatistics(statsConfig(srv.URL, 500, 4), nil).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, len(states))
	assert.Equal(t, int32(3), requests.Load())
}

func TestStatisticsFallsBackToPassthroughAndKeepsIt(t *testing.T) {
	var direct, proxied atomic.Int32
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	mux.HandleFunc("/data.json", func(w http.ResponseWriter, r *http.Request) {
		direct.Add(1)
		http.Error(w, "forbidden", http.StatusForbidden)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})
	mux.HandleFunc("/relay", func(w http.ResponseWriter, r *http.Request) {
		proxied.Add(1)
		target, err := url.Parse(r.URL.Query().Get("u"))
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, "/data.json", target.Path)
		serveStateRows(t, w, target.Query())
	})

	cfg := statsConfig(srv.URL+"/data.json", 10, 5)
	cfg.Passthroughs = []string{srv.URL + "/broken?u={url}", srv.URL + "/relay?u={url}", srv.URL + "/never?u={url}"}
	items, err := NewStatistics(cfg, nil).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 10)
	assert.Equal(t, int32(1), direct.Load())
	assert.Equal(t, int32(2), proxied.Load())
}

func TestStatisticsAllVariantsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := statsConfig(srv.URL, 10, 10)
	cfg.Passthroughs = []string{srv.URL + "/a?u={url}", srv.URL + "/b?u={url}"}
	items, err := NewStatistics(cfg, nil).Fetch(context.Background())
	assert.Error(t, err)
	assert.Empty(t, items)
}

func TestStatisticsSkipsRowsWithoutRegion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"date":"2024-01-01"},{"jurisdiction":"Region 2","end_date":"2024-01-02"}]`))
	}))
	defer srv.Close()

	items, err := NewStatistics(statsConfig(srv.URL, 10, 10), nil).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Region 2", items[0].Meta["region"])
}
