package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuoteTotal counts quote requests by outcome.
	QuoteTotal *prometheus.CounterVec
	// QuoteDuration records end-to-end quote computation latency in milliseconds.
	QuoteDuration *prometheus.HistogramVec
	// QuoteStageDuration records per-stage latency in milliseconds.
	QuoteStageDuration *prometheus.HistogramVec
	// GeometryCacheTotal counts geometry cache lookups by result.
	GeometryCacheTotal *prometheus.CounterVec
	// SizeCategoryTotal counts classified models by size category.
	SizeCategoryTotal *prometheus.CounterVec
	// PresignTotal counts presigned upload URL requests.
	PresignTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuoteTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_requests_total",
			Help:      "Count of quote requests by outcome.",
		}, []string{"result"})
		QuoteDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_duration_ms",
			Help:      "Latency for quote computation in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"result"})
		QuoteStageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_stage_duration_ms",
			Help:      "Latency for individual quote stages in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}, []string{"stage"})
		GeometryCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geometry_cache_total",
			Help:      "Count of geometry cache lookups by result.",
		}, []string{"result"})
		SizeCategoryTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "size_category_total",
			Help:      "Count of classified models by size category.",
		}, []string{"category"})
		PresignTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presign_total",
			Help:      "Count of presigned upload URL requests by outcome.",
		}, []string{"result"})

		mustRegisterCollector(reg, QuoteTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuoteTotal = v
			}
		})
		mustRegisterCollector(reg, QuoteDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				QuoteDuration = v
			}
		})
		mustRegisterCollector(reg, QuoteStageDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				QuoteStageDuration = v
			}
		})
		mustRegisterCollector(reg, GeometryCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				GeometryCacheTotal = v
			}
		})
		mustRegisterCollector(reg, SizeCategoryTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SizeCategoryTotal = v
			}
		})
		mustRegisterCollector(reg, PresignTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PresignTotal = v
			}
		})
	})
}

// ObserveQuote records the outcome and latency of one quote request.
func ObserveQuote(result string, durationMs float64) {
	if QuoteTotal != nil {
		QuoteTotal.WithLabelValues(result).Inc()
	}
	if QuoteDuration != nil {
		QuoteDuration.WithLabelValues(result).Observe(durationMs)
	}
}

// ObserveQuoteStage records the latency of one pipeline stage.
func ObserveQuoteStage(stage string, durationMs float64) {
	if QuoteStageDuration != nil {
		QuoteStageDuration.WithLabelValues(stage).Observe(durationMs)
	}
}

// ObserveGeometryCache records a geometry cache lookup result.
func ObserveGeometryCache(result string) {
	if GeometryCacheTotal != nil {
		GeometryCacheTotal.WithLabelValues(result).Inc()
	}
}

// ObserveSizeCategory records the category assigned to a model.
func ObserveSizeCategory(category string) {
	if SizeCategoryTotal != nil {
		SizeCategoryTotal.WithLabelValues(category).Inc()
	}
}

// ObservePresign records a presign request outcome.
func ObservePresign(result string) {
	if PresignTotal != nil {
		PresignTotal.WithLabelValues(result).Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register metric: %w", err))
	}
}
