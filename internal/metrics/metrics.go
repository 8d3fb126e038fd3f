package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ResolutionsTotal counts completed resolution passes by outcome and
	// winning source ("none" when no source answered)
	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "report_resolutions_total",
		Help: "Resolution pipeline passes by outcome and winning source",
	}, []string{"outcome", "source"})

	// ResolutionDuration observes wall time of a full resolution pass
	ResolutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "report_resolution_duration_seconds",
		Help:    "Wall time of a full resolution pipeline pass",
		Buckets: prometheus.DefBuckets,
	})

	// AdapterMisses counts per-adapter not-found results
	AdapterMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "report_adapter_misses_total",
		Help: "Adapter attempts that found nothing usable",
	}, []string{"adapter"})

	// AdapterFailures counts per-adapter hard failures
	AdapterFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "report_adapter_failures_total",
		Help: "Adapter attempts that could not query their source",
	}, []string{"adapter"})

	// PollerTicks counts status poller wakeups
	PollerTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "report_poller_ticks_total",
		Help: "Status poller wakeups",
	})
)
