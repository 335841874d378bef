package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the refresh pipeline and API.
type Metrics struct {
	RefreshCycles        *prometheus.CounterVec // labels: outcome={success,failed}
	RefreshDuration      prometheus.Histogram
	LastRefreshTimestamp prometheus.Gauge
	PipelineRunning      prometheus.Gauge
	PipelineState        prometheus.Gauge // 0 idle, 1 fetching, 2 parsing, 3 writing

	// Feed metrics.
	FeedFetches       *prometheus.CounterVec   // labels: feed, outcome={success,error}
	FeedFetchDuration *prometheus.HistogramVec // labels: feed

	// Build metrics.
	SnapshotStations  prometheus.Gauge
	StationFailures   prometheus.Counter
	DroppedParameters prometheus.Counter

	// Serving metrics.
	CacheLookups  *prometheus.CounterVec // labels: result={hit,miss,fallback,stale}
	PublishErrors prometheus.Counter
}

const namespace = "hydro"

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RefreshCycles,
		m.RefreshDuration,
		m.LastRefreshTimestamp,
		m.PipelineRunning,
		m.PipelineState,
		m.FeedFetches,
		m.FeedFetchDuration,
		m.SnapshotStations,
		m.StationFailures,
		m.DroppedParameters,
		m.CacheLookups,
		m.PublishErrors,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RefreshCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_cycles_total",
			Help:      "Refresh cycles by outcome.",
		}, []string{"outcome"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a complete fetch-parse-write cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		LastRefreshTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_refresh_timestamp_seconds",
			Help:      "Unix time of the last successfully persisted snapshot.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the refresh loop is active, 0 when shut down.",
		}),
		PipelineState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_state",
			Help:      "Current refresh state: 0 idle, 1 fetching, 2 parsing, 3 writing.",
		}),
		FeedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetches_total",
			Help:      "Upstream feed requests by feed and outcome.",
		}, []string{"feed", "outcome"}),
		FeedFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_fetch_duration_seconds",
			Help:      "Upstream feed request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"feed"}),
		SnapshotStations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_stations",
			Help:      "Number of stations in the current snapshot.",
		}),
		StationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "station_build_failures_total",
			Help:      "Stations skipped because they could not be built.",
		}),
		DroppedParameters: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parameters_dropped_total",
			Help:      "Feed parameters dropped because their name matched no category.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Snapshot cache lookups by result.",
		}, []string{"result"}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed station update publishes.",
		}),
	}
}
