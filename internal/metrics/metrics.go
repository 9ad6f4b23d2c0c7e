package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// ClientWorkflow labels failures of the workflow engine client.
	ClientWorkflow = "workflow"
	// ClientLLM labels failures of the generation backend client.
	ClientLLM = "llm"
)

var (
	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flowlens",
			Name:      "decisions_total",
			Help:      "Total number of action decisions handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	simulationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "flowlens",
			Name:      "simulations_total",
			Help:      "Total number of simulated incidents.",
		},
	)

	upstreamFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flowlens",
			Name:      "upstream_failures_total",
			Help:      "Total number of failed upstream calls, partitioned by client.",
		},
		[]string{"client"},
	)

	generationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "flowlens",
			Name:      "generation_seconds",
			Help:      "LLM generation latency in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90, 120},
		},
	)
)

// Register attaches flowlens collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		decisionsTotal,
		simulationsTotal,
		upstreamFailuresTotal,
		generationSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveDecision counts an approve/deny outcome ("approved", "denied", "not_found").
func ObserveDecision(outcome string) {
	decisionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSimulation counts a simulated incident.
func ObserveSimulation() {
	simulationsTotal.Inc()
}

// ObserveUpstreamFailure counts a failed call to an external client.
func ObserveUpstreamFailure(client string) {
	upstreamFailuresTotal.WithLabelValues(client).Inc()
}

// ObserveGeneration records how long an LLM generation took.
func ObserveGeneration(duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	generationSeconds.Observe(duration.Seconds())
}
