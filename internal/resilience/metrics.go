package resilience

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "printquote"

var (
	// BreakerState reports 0 for closed, 1 for open and 2 for half-open.
	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "breaker_state",
		Help:      "Current breaker state: 0=closed,1=open,2=half-open",
	}, []string{"target"})
	BreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "breaker_transition_total",
		Help:      "Count of breaker state transitions",
	}, []string{"target", "from", "to"})
	BreakerOpenedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "breaker_open_total",
		Help:      "Number of times a breaker transitioned into open state",
	}, []string{"target"})
	// UpstreamAttempts counts every outbound try, retries included.
	UpstreamAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "upstream_attempts_total",
		Help:      "Outbound HTTP attempts by target and outcome",
	}, []string{"target", "result"})
)
