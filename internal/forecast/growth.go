package forecast

const (
	// DefaultGrowthRate is returned when history cannot support an estimate
	DefaultGrowthRate = 0.01
	// GrowthWindow is the number of most recent months considered
	GrowthWindow = 6
	// GrowthBias is added to the averaged month-over-month change
	GrowthBias = 0.005
)

// EstimateGrowthRate returns the average fractional month-over-month change
// across the most recent GrowthWindow aggregates plus GrowthBias. Steps whose
// previous month is not strictly positive are ignored.
func EstimateGrowthRate(aggregates []MonthlyAggregate) float64 {
	if len(aggregates) < 2 {
		return DefaultGrowthRate
	}

	recent := aggregates
	if len(recent) > GrowthWindow {
		recent = recent[len(recent)-GrowthWindow:]
	}

	total := 0.0
	count := 0
	for i := 1; i < len(recent); i++ {
		prev := recent[i-1].Emissions
		if prev <= 0 {
			continue
		}
		total += (recent[i].Emissions - prev) / prev
		count++
	}

	if count == 0 {
		return DefaultGrowthRate
	}
	return total/float64(count) + GrowthBias
}
