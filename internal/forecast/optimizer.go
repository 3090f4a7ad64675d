package forecast

import "math"

// OptimizationConfig describes the reduction applied by Optimize
type OptimizationConfig struct {
	// Reduction is the fraction removed from each predicted value
	Reduction float64 `json:"reduction" yaml:"reduction"`
	// BoundDamping scales the reduction before it is applied to the bounds
	BoundDamping float64 `json:"bound_damping" yaml:"bound_damping"`
}

// DefaultOptimizationConfig returns a 15% reduction with 0.8 bound damping
func DefaultOptimizationConfig() OptimizationConfig {
	return OptimizationConfig{
		Reduction:    0.15,
		BoundDamping: 0.8,
	}
}

// Optimize derives the reduced-emissions variant of a forecast. The output
// corresponds to the input position by position.
func Optimize(forecast []ForecastPoint, config OptimizationConfig) []OptimizedForecastPoint {
	optimized := make([]OptimizedForecastPoint, len(forecast))

	for i, p := range forecast {
		reduction := p.PredictedEmissions * config.Reduction
		boundShift := reduction * config.BoundDamping

		predicted := p.PredictedEmissions - reduction
		lower := math.Min(p.LowerBound-boundShift, predicted)
		upper := math.Max(p.UpperBound-boundShift, predicted)

		optimized[i] = OptimizedForecastPoint{
			Date:               p.Date,
			PredictedEmissions: predicted,
			LowerBound:         lower,
			UpperBound:         upper,
		}
	}

	return optimized
}
