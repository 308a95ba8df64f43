package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eldo84/live-health-sub002/internal/config"
	"github.com/Eldo84/live-health-sub002/internal/util"
)

func TestNewGeocoderFromConfigWithoutKey(t *testing.T) {
	assert.Nil(t, NewGeocoderFromConfig(config.GeocodeConfig{URL: "http://x", APIKey: "  "}))
}

func TestOpenCageGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Lima Peru", r.URL.Query().Get("q"))
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"formatted":"Lima, Peru","geometry":{"lat":-12.05,"lng":-77.04}}]}`))
	}))
	defer srv.Close()

	g := NewGeocoderFromConfig(config.GeocodeConfig{URL: srv.URL, APIKey: "secret", Timeout: time.Second})
	require.NotNil(t, g)
	assert.Equal(t, "opencage", g.Name())

	p, err := g.Geocode(context.Background(), "Lima Peru")
	require.NoError(t, err)
	assert.Equal(t, lima, p)
}

func TestOpenCageErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"empty", http.StatusOK, `{"results":[]}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrNoResult)
		}},
		{"quota", http.StatusPaymentRequired, `{"status":{"message":"quota"}}`, func(t *testing.T, err error) {
			var se *util.StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, http.StatusPaymentRequired, se.Code)
		}},
		{"garbage", http.StatusOK, `<html>`, func(t *testing.T, err error) {
			assert.ErrorContains(t, err, "decode")
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()
			g := NewGeocoderFromConfig(config.GeocodeConfig{URL: srv.URL, APIKey: "k", Timeout: time.Second})
			_, err := g.Geocode(context.Background(), "nowhere")
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}
