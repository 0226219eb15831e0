package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels renders and loads that completed.
	OutcomeSuccess = "success"
	// OutcomeError labels renders and loads that failed outright.
	OutcomeError = "error"

	// CacheHit and CacheMiss label page cache lookups.
	CacheHit  = "hit"
	CacheMiss = "miss"
)

var (
	rendersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bcinsights",
			Name:      "renders_total",
			Help:      "Total number of view renders, partitioned by view and outcome.",
		},
		[]string{"view", "outcome"},
	)

	renderDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bcinsights",
			Name:      "render_seconds",
			Help:      "View render latency in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"view"},
	)

	panelsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bcinsights",
			Name:      "panels_total",
			Help:      "Rendered panels, partitioned by panel id and status.",
		},
		[]string{"panel", "status"},
	)

	datasetLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bcinsights",
			Name:      "dataset_loads_total",
			Help:      "Dataset file loads, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	viewCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bcinsights",
			Name:      "view_cache_total",
			Help:      "Rendered page cache lookups, partitioned by result.",
		},
		[]string{"result"},
	)
)

// Register attaches bcinsights collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		rendersTotal,
		renderDurationSeconds,
		panelsTotal,
		datasetLoadsTotal,
		viewCacheTotal,
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

// ObserveRender records a view render duration and outcome label.
func ObserveRender(view string, duration time.Duration, outcome string) {
	rendersTotal.WithLabelValues(view, normaliseOutcome(outcome)).Inc()
	if duration < 0 {
		duration = 0
	}
	renderDurationSeconds.WithLabelValues(view).Observe(duration.Seconds())
}

// ObservePanel counts one rendered panel by its status.
func ObservePanel(panel, status string) {
	panelsTotal.WithLabelValues(panel, status).Inc()
}

// ObserveDatasetLoad counts a dataset file load.
func ObserveDatasetLoad(outcome string) {
	datasetLoadsTotal.WithLabelValues(normaliseOutcome(outcome)).Inc()
}

// ObserveViewCache counts a page cache lookup.
func ObserveViewCache(hit bool) {
	if hit {
		viewCacheTotal.WithLabelValues(CacheHit).Inc()
		return
	}
	viewCacheTotal.WithLabelValues(CacheMiss).Inc()
}

func normaliseOutcome(outcome string) string {
	if outcome != OutcomeError {
		return OutcomeSuccess
	}
	return outcome
}
