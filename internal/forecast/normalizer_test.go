package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  float64
	}{
		{"float", 12.5, 12.5},
		{"int", 7, 7},
		{"plain text", "42.25", 42.25},
		{"thousands separator", "1,234.5", 1234.5},
		{"unit suffix", "250 kg", 250},
		{"sign removed", "-3.5", 3.5},
		{"second dot ends number", "1.2.3", 1.2},
		{"no digits", "n/a", 0},
		{"nil", nil, 0},
		{"bool", true, 0},
		{"bytes", []byte("8"), 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseNumeric(tt.input), 1e-12)
		})
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, want, ParseDate("2023-04-01"))
	assert.Equal(t, want, ParseDate("2023-04-01T00:00:00Z"))
	assert.Equal(t, want, ParseDate("2023/04/01"))
	assert.Equal(t, want, ParseDate("04/01/2023"))
	assert.Equal(t, want, ParseDate("2023-04"))
	assert.Equal(t, want, ParseDate("Apr 2023"))
	assert.Equal(t, want, ParseDate(want))

	assert.True(t, ParseDate("").IsZero())
	assert.True(t, ParseDate("not a date").IsZero())
	assert.True(t, ParseDate(20230401).IsZero())
}

func TestNormalizeRecord(t *testing.T) {
	obs := NormalizeRecord(map[string]any{
		"id":             "row-1",
		"ds":             "2023-01-01",
		"energy_use":     "5,000",
		"transport":      20000.0,
		"y":              "8.2",
		"grid_intensity": "0.45",
	})

	assert.Equal(t, "row-1", obs.ID)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), obs.Date)
	assert.Equal(t, 5000.0, obs.EnergyUse)
	assert.Equal(t, 20000.0, obs.Transport)
	assert.Equal(t, 8.2, obs.Emissions)
	assert.Equal(t, 0.45, obs.GridIntensity)
	assert.Zero(t, obs.Fuel)
	assert.False(t, obs.EmissionsMissing)
}

func TestNormalizeRecord_MissingEmissions(t *testing.T) {
	obs := NormalizeRecord(map[string]any{"date": "2023-01-01", "emissions": "  "})

	assert.True(t, obs.EmissionsMissing)
	assert.Zero(t, obs.Emissions)
}

func TestNormalizeRecord_ZeroEmissionsIsPresent(t *testing.T) {
	obs := NormalizeRecord(map[string]any{"date": "2023-01-01", "emissions": 0})

	assert.False(t, obs.EmissionsMissing)
}

func TestNormalizeRecord_DerivedIDIsStable(t *testing.T) {
	raw := map[string]any{"date": "2023-01-01", "emissions": 3}

	a := NormalizeRecord(raw)
	b := NormalizeRecord(map[string]any{"emissions": 3, "date": "2023-01-01"})

	assert.NotEmpty(t, a.ID)
	assert.Equal(t, a.ID, b.ID)
}

func TestNormalizeRecords_PreservesOrder(t *testing.T) {
	observations := NormalizeRecords([]map[string]any{
		{"id": "b", "date": "2023-02-01", "emissions": 2},
		{"id": "a", "date": "2023-01-01", "emissions": 1},
	})

	require.Len(t, observations, 2)
	assert.Equal(t, "b", observations[0].ID)
	assert.Equal(t, "a", observations[1].ID)
}

func TestNormalizeForecast(t *testing.T) {
	points := NormalizeForecast([]map[string]any{
		{"date": "2024-01-01", "predicted_emissions": 10.5, "lower_bound": "9.5", "upper_bound": 11.5},
		{"ds": "2024-02-01T00:00:00Z", "yhat": 12, "yhat_lower": 11, "yhat_upper": 13},
		{"predicted_emissions": 99},
	})

	require.Len(t, points, 2)
	assert.Equal(t, month(2024, 1), points[0].Date)
	assert.Equal(t, 10.5, points[0].PredictedEmissions)
	assert.Equal(t, 9.5, points[0].LowerBound)
	assert.Equal(t, month(2024, 2), points[1].Date)
	assert.Equal(t, 13.0, points[1].UpperBound)
}
