package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestHandlerMiddlewareEnforcesLimit(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	handler := Handler{
		Limiter: SlidingWindow{Client: client, Prefix: "ratelimit:", Window: time.Second, Max: 1},
		Key:     func(*http.Request) string { return "static" },
	}
	counted := handler.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/quote", nil)
	rr1 := httptest.NewRecorder()
	counted.ServeHTTP(rr1, req.Clone(req.Context()))
	require.Equal(t, http.StatusOK, rr1.Code)

	rr2 := httptest.NewRecorder()
	counted.ServeHTTP(rr2, req.Clone(req.Context()))
	require.Equal(t, http.StatusTooManyRequests, rr2.Code)
	require.Equal(t, "1", rr2.Header().Get("X-RateLimit-Limit"))

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr2.Body.Bytes(), &body))
	require.Equal(t, "RATE_LIMITED", body.Error.Code)
}

func TestHandlerMiddlewareMemoryLimiterKeysByClient(t *testing.T) {
	handler := Handler{Limiter: NewMemory(time.Minute, 1)}
	counted := handler.Middleware(okHandler())

	first := httptest.NewRequest(http.MethodPost, "/api/quote", nil)
	first.RemoteAddr = "10.0.0.1:5000"
	second := httptest.NewRequest(http.MethodPost, "/api/quote", nil)
	second.RemoteAddr = "10.0.0.2:5000"

	for _, tc := range []struct {
		req  *http.Request
		want int
	}{
		{first, http.StatusOK},
		{first, http.StatusTooManyRequests},
		{second, http.StatusOK},
	} {
		rr := httptest.NewRecorder()
		counted.ServeHTTP(rr, tc.req.Clone(tc.req.Context()))
		require.Equal(t, tc.want, rr.Code)
	}
}

func TestHandlerMiddlewareOnError(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0", MaxRetries: -1})
	defer func() { _ = client.Close() }()

	called := false
	handler := Handler{
		Limiter: SlidingWindow{Client: client, Prefix: "ratelimit:", Window: time.Second, Max: 1},
		OnError: func(error) { called = true },
	}

	rr := httptest.NewRecorder()
	handler.Middleware(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/quote", nil))
	require.Equal(t, http.StatusOK, rr.Code, "limiter outages fail open")
	require.True(t, called)
}

func TestHandlerWithoutLimiterPassesThrough(t *testing.T) {
	rr := httptest.NewRecorder()
	Handler{}.Middleware(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}
