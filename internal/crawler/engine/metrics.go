package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the engine's Prometheus collectors.
type Metrics struct {
	Tasks         *prometheus.CounterVec
	Entities      *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Tasks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "crawler",
				Name:      "tasks_total",
				Help:      "Crawl tasks processed, by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		Entities: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "crawler",
				Name:      "entities_total",
				Help:      "Entity transitions, by state",
			},
			[]string{"state"},
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "crawler",
				Name:      "fetch_duration_seconds",
				Help:      "Page fetch duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
	}
	reg.MustRegister(m.Tasks, m.Entities, m.FetchDuration)
	return m
}

const (
	outcomeOK      = "ok"
	outcomeError   = "error"
	outcomeSkipped = "skipped"

	entityDiscovered = "discovered"
	entityDuplicate  = "duplicate"
	entityFinalized  = "finalized"
	entityFailed     = "failed"
	entityAbandoned  = "abandoned"
)
