package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the Prometheus collectors for the service. All recording
// methods are safe to call on a nil *Metrics, which records nothing.
type Metrics struct {
	HTTPRequestsTotal *prometheus.CounterVec

	PatternRunsTotal    *prometheus.CounterVec
	PatternRunDuration  prometheus.Histogram
	PatternUpsertsTotal *prometheus.CounterVec

	StatsCacheHitsTotal   prometheus.Counter
	StatsCacheMissesTotal prometheus.Counter

	AnalysisEventsTotal *prometheus.CounterVec
}

// New registers the collectors with the default registry once per process
// and returns the shared instance.
//
// Metrics:
//   - dreamlog_http_requests_total{method,status}
//   - dreamlog_pattern_runs_total{outcome}
//   - dreamlog_pattern_run_duration_seconds
//   - dreamlog_pattern_upserts_total{type,result}
//   - dreamlog_stats_cache_hits_total / dreamlog_stats_cache_misses_total
//   - dreamlog_analysis_events_total{result}
func New() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "dreamlog_http_requests_total",
					Help: "Total HTTP requests by method and status code",
				},
				[]string{"method", "status"},
			),
			PatternRunsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "dreamlog_pattern_runs_total",
					Help: "Pattern detection runs by outcome",
				},
				[]string{"outcome"}, // "completed", "skipped", "failed"
			),
			PatternRunDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "dreamlog_pattern_run_duration_seconds",
					Help:    "Duration of pattern detection runs",
					Buckets: prometheus.DefBuckets,
				},
			),
			PatternUpsertsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "dreamlog_pattern_upserts_total",
					Help: "Pattern upserts by pattern type and result",
				},
				[]string{"type", "result"},
			),
			StatsCacheHitsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "dreamlog_stats_cache_hits_total",
					Help: "Stats snapshots served from cache",
				},
			),
			StatsCacheMissesTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "dreamlog_stats_cache_misses_total",
					Help: "Stats snapshots recomputed on a cache miss",
				},
			),
			AnalysisEventsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "dreamlog_analysis_events_total",
					Help: "Analysis-completed events received by result",
				},
				[]string{"result"}, // "triggered", "ignored", "invalid"
			),
		}
	})
	return globalMetrics
}

func (m *Metrics) RecordHTTPRequest(method string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func (m *Metrics) RecordPatternRun(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PatternRunsTotal.WithLabelValues(outcome).Inc()
	m.PatternRunDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) RecordPatternUpsert(patternType string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.PatternUpsertsTotal.WithLabelValues(patternType, result).Inc()
}

func (m *Metrics) RecordStatsCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.StatsCacheHitsTotal.Inc()
		return
	}
	m.StatsCacheMissesTotal.Inc()
}

func (m *Metrics) RecordAnalysisEvent(result string) {
	if m == nil {
		return
	}
	m.AnalysisEventsTotal.WithLabelValues(result).Inc()
}
