package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRun("ok", 20*time.Millisecond)
	m.ObserveRun("ok", 10*time.Millisecond)
	m.ObserveRun("rejected", time.Millisecond)
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)
	m.AddDropped("missing_date", 3)
	m.AddDropped("missing_date", 0)
	m.AddForecastPoints(6)
	m.SetQualityScore(87)
	m.ObserveExport("xlsx")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.droppedRows.WithLabelValues("missing_date")))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.forecastPoints))
	assert.Equal(t, 87.0, testutil.ToFloat64(m.qualityScore))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reportsExported.WithLabelValues("xlsx")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "emissions_forecast_runs_total")
	assert.Contains(t, names, "emissions_forecast_run_duration_seconds")
}

func TestPipelineMetrics_NilIsNoop(t *testing.T) {
	var m *PipelineMetrics

	assert.NotPanics(t, func() {
		m.ObserveRun("ok", time.Second)
		m.ObserveCache(true)
		m.AddDropped("missing_date", 1)
		m.AddForecastPoints(1)
		m.SetQualityScore(1)
		m.ObserveExport("csv")
	})
}
