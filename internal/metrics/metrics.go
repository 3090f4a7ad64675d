package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "emissions_forecast"

// PipelineMetrics holds the Prometheus collectors for forecast runs.
// A nil *PipelineMetrics records nothing.
type PipelineMetrics struct {
	runs            *prometheus.CounterVec
	runDuration     prometheus.Histogram
	cacheLookups    *prometheus.CounterVec
	droppedRows     *prometheus.CounterVec
	forecastPoints  prometheus.Counter
	qualityScore    prometheus.Gauge
	reportsExported *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Forecast pipeline runs by outcome.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of forecast pipeline runs.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by result.",
		}, []string{"result"}),
		droppedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_rows_total",
			Help:      "Observations excluded from monthly aggregation by reason.",
		}, []string{"reason"}),
		forecastPoints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_points_total",
			Help:      "Forecast points produced.",
		}),
		qualityScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_quality_score",
			Help:      "Quality score of the most recent evaluated run.",
		}),
		reportsExported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_exported_total",
			Help:      "Exported forecast reports by format.",
		}, []string{"format"}),
	}

	reg.MustRegister(
		m.runs,
		m.runDuration,
		m.cacheLookups,
		m.droppedRows,
		m.forecastPoints,
		m.qualityScore,
		m.reportsExported,
	)

	return m
}

// ObserveRun records the outcome and duration of one pipeline run
func (m *PipelineMetrics) ObserveRun(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
	m.runDuration.Observe(d.Seconds())
}

// ObserveCache records a result cache lookup
func (m *PipelineMetrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// AddDropped records observations excluded for reason
func (m *PipelineMetrics) AddDropped(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.droppedRows.WithLabelValues(reason).Add(float64(n))
}

// AddForecastPoints records produced forecast points
func (m *PipelineMetrics) AddForecastPoints(n int) {
	if m == nil {
		return
	}
	m.forecastPoints.Add(float64(n))
}

// SetQualityScore records the latest quality score
func (m *PipelineMetrics) SetQualityScore(score float64) {
	if m == nil {
		return
	}
	m.qualityScore.Set(score)
}

// ObserveExport records an exported report
func (m *PipelineMetrics) ObserveExport(format string) {
	if m == nil {
		return
	}
	m.reportsExported.WithLabelValues(format).Inc()
}
