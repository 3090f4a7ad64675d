package forecast

import (
	"fmt"
	"math"
)

const (
	// DefaultHorizon is the number of forecast months produced by default
	DefaultHorizon = 6
	// DefaultMinHistory is the number of months required before forecasting
	DefaultMinHistory = 3
	// DefaultMaxHorizon is the largest horizon accepted unless configured otherwise
	DefaultMaxHorizon = 120
	// MaxHorizonLimit is the hard upper bound on any horizon
	MaxHorizonLimit = 1200

	baseConfidenceWidth = 0.05
	confidenceWidthStep = 0.01
)

// ConfidenceWidth returns the fractional half-spread of the bounds at step i
func ConfidenceWidth(step int) float64 {
	return baseConfidenceWidth + float64(step)*confidenceWidthStep
}

// CheckHistory returns ErrInsufficientData when fewer than minHistory
// aggregates are available
func CheckHistory(aggregates []MonthlyAggregate, minHistory int) error {
	if len(aggregates) < minHistory {
		return fmt.Errorf("%w: need at least %d data points, have %d",
			ErrInsufficientData, minHistory, len(aggregates))
	}
	return nil
}

// SynthesizeForecast projects horizon months past the last aggregate. The
// first point falls on the first day of the following month and each later
// point advances exactly one month. A nil noise disables jitter.
func SynthesizeForecast(aggregates []MonthlyAggregate, rate float64, horizon int, noise Noise) ([]ForecastPoint, error) {
	if horizon <= 0 {
		return nil, ErrInvalidHorizon
	}
	if horizon > MaxHorizonLimit {
		return nil, fmt.Errorf("%w: %d exceeds the limit of %d", ErrInvalidHorizon, horizon, MaxHorizonLimit)
	}
	if len(aggregates) == 0 {
		return nil, ErrNoHistory
	}
	if noise == nil {
		noise = NoJitter
	}

	last := aggregates[len(aggregates)-1]
	lastMonth, err := last.Month()
	if err != nil {
		return nil, fmt.Errorf("failed to anchor forecast: %w", err)
	}
	start := lastMonth.AddDate(0, 1, 0)

	points := make([]ForecastPoint, 0, horizon)
	for i := 0; i < horizon; i++ {
		predicted := last.Emissions * math.Pow(1+rate, float64(i+1)) * noise.Factor()
		width := ConfidenceWidth(i)

		lower, upper := predicted*(1-width), predicted*(1+width)
		if lower > upper {
			lower, upper = upper, lower
		}

		points = append(points, ForecastPoint{
			Date:               start.AddDate(0, i, 0),
			PredictedEmissions: predicted,
			LowerBound:         lower,
			UpperBound:         upper,
		})
	}

	return points, nil
}
