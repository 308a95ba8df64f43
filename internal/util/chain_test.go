package util

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainFirstSuccessWins(t *testing.T) {
	calls := []string{}
	c := Chain[string]{
		{Name: "direct", Run: func(context.Context) (string, error) {
			calls = append(calls, "direct")
			return "", errors.New("blocked")
		}},
		{Name: "proxy-a", Run: func(context.Context) (string, error) {
			calls = append(calls, "proxy-a")
			return "ok", nil
		}},
		{Name: "proxy-b", Run: func(context.Context) (string, error) {
			calls = append(calls, "proxy-b")
			return "unused", nil
		}},
	}
	v, idx, err := c.Do(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 1, idx)
	assert.Equal(t, []string{"direct", "proxy-a"}, calls)
}

func TestChainAllFail(t *testing.T) {
	c := Chain[int]{
		{Name: "a", Run: func(context.Context) (int, error) { return 0, errors.New("x") }},
		{Name: "b", Run: func(context.Context) (int, error) { return 0, errors.New("y") }},
	}
	_, idx, err := c.Do(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllStrategiesFailed)
	assert.Equal(t, -1, idx)
	assert.Contains(t, err.Error(), "a: x")
	assert.Contains(t, err.Error(), "b: y")
}

func TestChainEmpty(t *testing.T) {
	_, _, err := Chain[int]{}.Do(context.Background())
	assert.ErrorIs(t, err, ErrAllStrategiesFailed)
}

func TestChainStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ran := false
	_, _, err := Chain[int]{{Name: "a", Run: func(context.Context) (int, error) { ran = true; return 1, nil }}}.Do(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
}

func TestGetBodyStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "probe/1", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("origin not allowed"))
	}))
	defer srv.Close()

	_, err := GetBody(context.Background(), NewHTTPClient(0), srv.URL, "probe/1")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.Code)
	assert.Equal(t, "origin not allowed", se.Body)
}
