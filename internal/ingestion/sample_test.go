package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbon-scribe/emissions-forecast/internal/forecast"
)

func TestGenerateSample(t *testing.T) {
	observations := GenerateSample(42, DefaultSampleRows)

	require.Len(t, observations, DefaultSampleRows)
	assert.Equal(t, "1", observations[0].ID)
	assert.Equal(t, SampleStart, observations[0].Date)
	assert.Equal(t, SampleStart.AddDate(0, 23, 0), observations[23].Date)

	for _, obs := range observations {
		for _, f := range forecast.NumericFields {
			assert.GreaterOrEqual(t, obs.Value(f), 0.0, "%s on %s", f, obs.Date)
		}
		assert.Greater(t, obs.Emissions, 0.0)
	}
}

func TestGenerateSample_Deterministic(t *testing.T) {
	assert.Equal(t, GenerateSample(7, 12), GenerateSample(7, 12))
	assert.NotEqual(t, GenerateSample(7, 12), GenerateSample(8, 12))
}

func TestGenerateSample_DefaultsRows(t *testing.T) {
	assert.Len(t, GenerateSample(1, 0), DefaultSampleRows)
}

func TestGenerateSample_Forecastable(t *testing.T) {
	aggregation := forecast.AggregateMonthly(GenerateSample(42, 24))

	assert.Len(t, aggregation.Aggregates, 24)
	assert.NoError(t, forecast.CheckHistory(aggregation.Aggregates, forecast.DefaultMinHistory))
}
