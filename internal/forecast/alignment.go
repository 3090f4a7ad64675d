package forecast

// Align pairs every actual month with the forecast point of the same year
// and month. Actual months without a forecast are dropped. When several
// forecast points share a month the first one wins.
func Align(actual []MonthlyAggregate, forecast []ForecastPoint) []AlignedPair {
	byMonth := make(map[string]ForecastPoint, len(forecast))
	for _, p := range forecast {
		key := p.Date.Format(MonthKeyLayout)
		if _, exists := byMonth[key]; !exists {
			byMonth[key] = p
		}
	}

	pairs := make([]AlignedPair, 0, len(actual))
	for _, a := range actual {
		p, ok := byMonth[a.MonthKey]
		if !ok {
			continue
		}
		month, err := a.Month()
		if err != nil {
			continue
		}
		pairs = append(pairs, AlignedPair{
			Date:      month,
			Actual:    a.Emissions,
			Predicted: p.PredictedEmissions,
		})
	}
	return pairs
}

// FilterAfterHistory removes forecast and optimized points whose month is on
// or before the last historical month. The cut is decided on the forecast
// series and the same months are then kept in the optimized series.
func FilterAfterHistory(history []MonthlyAggregate, forecast []ForecastPoint, optimized []OptimizedForecastPoint) ([]ForecastPoint, []OptimizedForecastPoint) {
	if len(history) == 0 {
		return forecast, optimized
	}
	cutoff := history[len(history)-1].MonthKey

	keptMonths := make(map[string]struct{}, len(forecast))
	keptForecast := make([]ForecastPoint, 0, len(forecast))
	for _, p := range forecast {
		key := p.Date.Format(MonthKeyLayout)
		// month keys compare chronologically as strings
		if key <= cutoff {
			continue
		}
		keptMonths[key] = struct{}{}
		keptForecast = append(keptForecast, p)
	}

	keptOptimized := make([]OptimizedForecastPoint, 0, len(optimized))
	for _, p := range optimized {
		if _, ok := keptMonths[p.Date.Format(MonthKeyLayout)]; ok {
			keptOptimized = append(keptOptimized, p)
		}
	}

	return keptForecast, keptOptimized
}
