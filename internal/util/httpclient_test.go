package util

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/limited" {
			http.Error(w, strings.Repeat("slow down ", 100), http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ua=" + r.UserAgent()))
	}))
	defer srv.Close()
	c := NewHTTPClient(time.Second)

	b, err := GetBody(context.Background(), c, srv.URL, "outbreak/1.0")
	require.NoError(t, err)
	assert.Equal(t, "ua=outbreak/1.0", string(b))

	_, err = GetBody(context.Background(), c, srv.URL+"/limited", "")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
	assert.LessOrEqual(t, len(se.Body), 512)
	assert.Contains(t, se.Error(), "http 429")
}

func TestGetBodyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := GetBody(ctx, NewHTTPClient(0), "http://127.0.0.1:1", "")
	assert.ErrorIs(t, err, context.Canceled)
}
