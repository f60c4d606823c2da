package obs_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/printquote/internal/obs"
)

func TestHTTPMetricsLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("printquote", []float64{1, 10}, registry)
	handler := obs.HTTPObs{Metrics: metrics}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/health/ready"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/health/ready", "204")))
	require.NotZero(t, testutil.CollectAndCount(metrics.ReqDur))
	require.Zero(t, testutil.ToFloat64(metrics.InFlight))
}

func TestDomainMetricsObserve(t *testing.T) {
	registry := prometheus.NewRegistry()
	obs.MustRegisterDomainMetrics("printquote", registry)

	before := testutil.ToFloat64(obs.QuoteTotal.WithLabelValues("ok"))
	obs.ObserveQuote("ok", 12)
	require.Equal(t, before+1, testutil.ToFloat64(obs.QuoteTotal.WithLabelValues("ok")))

	hits := testutil.ToFloat64(obs.GeometryCacheTotal.WithLabelValues("hit"))
	obs.ObserveGeometryCache("hit")
	require.Equal(t, hits+1, testutil.ToFloat64(obs.GeometryCacheTotal.WithLabelValues("hit")))

	obs.ObserveSizeCategory("full_volume")
	require.GreaterOrEqual(t, testutil.ToFloat64(obs.SizeCategoryTotal.WithLabelValues("full_volume")), 1.0)
}

func TestRequestLoggerIncludesQuoteID(t *testing.T) {
	var buf bytes.Buffer
	logger := obs.RequestLogger{Logger: zerolog.New(&buf)}
	handler := logger.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/quote", nil)
	req = req.WithContext(obs.WithQuoteID(req.Context(), "q-123"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "error", entry["level"])
	require.Equal(t, "q-123", entry["quote_id"])
	require.EqualValues(t, 503, entry["status"])
	require.Equal(t, "/api/quote", entry["path"])
}

func TestRequestLoggerReadsQuoteIDHeader(t *testing.T) {
	var buf bytes.Buffer
	logger := obs.RequestLogger{Logger: zerolog.New(&buf)}
	handler := logger.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Quote-ID", "q-456")
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/quote", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "info", entry["level"])
	require.Equal(t, "q-456", entry["quote_id"])
}

func TestHTTPMetricsRequestSize(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("printquote", nil, registry)
	handler := obs.HTTPObs{Metrics: metrics}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodPost, "/api/quote", strings.NewReader("solid x"))
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/api/quote"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, 1, testutil.CollectAndCount(metrics.ReqBytes))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodPost, "/api/quote", "200")))

	again := obs.NewHTTPMetrics("printquote", nil, registry)
	require.Same(t, metrics.ReqTotal, again.ReqTotal)
}

func TestParseBucketsCSV(t *testing.T) {
	require.Nil(t, obs.ParseBucketsCSV(" "))
	require.Equal(t, []float64{1, 5, 10}, obs.ParseBucketsCSV("10, 5,x,-1,1,5"))
}
