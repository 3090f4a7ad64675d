package forecast

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateGrowthRate(t *testing.T) {
	aggregates := aggregatesFrom(month(2023, 1), 8.2, 7.8, 8.0)

	rate := EstimateGrowthRate(aggregates)

	expected := ((7.8-8.2)/8.2+(8.0-7.8)/7.8)/2 + GrowthBias
	assert.InDelta(t, expected, rate, 1e-12)
}

func TestEstimateGrowthRate_Fallbacks(t *testing.T) {
	assert.Equal(t, DefaultGrowthRate, EstimateGrowthRate(nil))
	assert.Equal(t, DefaultGrowthRate, EstimateGrowthRate(aggregatesFrom(month(2023, 1), 5)))
	assert.Equal(t, DefaultGrowthRate, EstimateGrowthRate(aggregatesFrom(month(2023, 1), 0, 5)))
}

func TestEstimateGrowthRate_UsesRecentWindow(t *testing.T) {
	// the first two months fall outside the window
	aggregates := aggregatesFrom(month(2023, 1), 1, 100, 10, 10, 10, 10, 10, 10)

	assert.InDelta(t, GrowthBias, EstimateGrowthRate(aggregates), 1e-12)
}

func TestEstimateGrowthRate_SkipsNonPositivePrevious(t *testing.T) {
	aggregates := aggregatesFrom(month(2023, 1), 10, 0, 5, 10)

	// (0-10)/10 and (10-5)/5 count; the step from 0 does not
	expected := (-1.0+1.0)/2 + GrowthBias
	assert.InDelta(t, expected, EstimateGrowthRate(aggregates), 1e-12)
}

func TestSynthesizeForecast_NoJitter(t *testing.T) {
	aggregates := aggregatesFrom(month(2023, 1), 8.2, 7.8, 8.0)
	rate := EstimateGrowthRate(aggregates)

	points, err := SynthesizeForecast(aggregates, rate, 6, NoJitter)
	require.NoError(t, err)
	require.Len(t, points, 6)

	first := points[0]
	assert.Equal(t, month(2023, 4), first.Date)
	assert.InDelta(t, 8.0*(1+rate), first.PredictedEmissions, 1e-9)
	assert.InDelta(t, first.PredictedEmissions*0.95, first.LowerBound, 1e-9)
	assert.InDelta(t, first.PredictedEmissions*1.05, first.UpperBound, 1e-9)

	for i, p := range points {
		assert.Equal(t, month(2023, 4).AddDate(0, i, 0), p.Date)
		assert.LessOrEqual(t, p.LowerBound, p.PredictedEmissions)
		assert.LessOrEqual(t, p.PredictedEmissions, p.UpperBound)
	}
}

func TestSynthesizeForecast_BoundsWiden(t *testing.T) {
	aggregates := aggregatesFrom(month(2023, 1), 10, 10, 10)

	points, err := SynthesizeForecast(aggregates, 0, 4, nil)
	require.NoError(t, err)

	for i, p := range points {
		width := (p.UpperBound - p.LowerBound) / (2 * p.PredictedEmissions)
		assert.InDelta(t, ConfidenceWidth(i), width, 1e-9)
	}
}

func TestSynthesizeForecast_JitterWithinBand(t *testing.T) {
	aggregates := aggregatesFrom(month(2023, 1), 10, 10, 10)
	noise := NewSeededNoise(7, DefaultJitterBand())

	points, err := SynthesizeForecast(aggregates, 0, 24, noise)
	require.NoError(t, err)

	for _, p := range points {
		assert.GreaterOrEqual(t, p.PredictedEmissions, 9.0)
		assert.Less(t, p.PredictedEmissions, 11.0)
	}
}

func TestSynthesizeForecast_SeededIsReproducible(t *testing.T) {
	aggregates := aggregatesFrom(month(2023, 1), 10, 11, 12)

	a, err := SynthesizeForecast(aggregates, 0.02, 6, NewSeededNoise(99, DefaultJitterBand()))
	require.NoError(t, err)
	b, err := SynthesizeForecast(aggregates, 0.02, 6, NewSeededNoise(99, DefaultJitterBand()))
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestSynthesizeForecast_NegativeHistoryKeepsBoundsOrdered(t *testing.T) {
	aggregates := aggregatesFrom(month(2023, 1), -4, -5, -6)

	points, err := SynthesizeForecast(aggregates, 0.01, 3, NoJitter)
	require.NoError(t, err)

	for _, p := range points {
		assert.LessOrEqual(t, p.LowerBound, p.UpperBound)
	}
}

func TestSynthesizeForecast_Errors(t *testing.T) {
	aggregates := aggregatesFrom(month(2023, 1), 1, 2, 3)

	_, err := SynthesizeForecast(aggregates, 0, 0, NoJitter)
	assert.True(t, errors.Is(err, ErrInvalidHorizon))

	_, err = SynthesizeForecast(nil, 0, 3, NoJitter)
	assert.True(t, errors.Is(err, ErrNoHistory))

	_, err = SynthesizeForecast(aggregates, 0.01, 1<<60, NoJitter)
	assert.True(t, errors.Is(err, ErrInvalidHorizon))

	points, err := SynthesizeForecast(aggregates, 0.01, MaxHorizonLimit, NoJitter)
	require.NoError(t, err)
	assert.Len(t, points, MaxHorizonLimit)
}

func TestCheckHistory(t *testing.T) {
	err := CheckHistory(aggregatesFrom(month(2023, 1), 1, 2), DefaultMinHistory)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientData))

	assert.NoError(t, CheckHistory(aggregatesFrom(month(2023, 1), 1, 2, 3), DefaultMinHistory))
}
