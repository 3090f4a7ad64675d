package forecast

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// FilterAggregatable splits observations into those that can be grouped by
// month and counts of the ones that cannot
func FilterAggregatable(observations []Observation) ([]Observation, DropCounts) {
	var dropped DropCounts
	kept := make([]Observation, 0, len(observations))

	for _, obs := range observations {
		switch {
		case obs.Date.IsZero():
			dropped.MissingDate++
		case obs.EmissionsMissing:
			dropped.MissingEmissions++
		default:
			kept = append(kept, obs)
		}
	}

	return kept, dropped
}

// AggregateMonthly sums emissions per calendar month. The result is sorted
// ascending by month key and holds exactly one entry per month.
func AggregateMonthly(observations []Observation) AggregationResult {
	kept, dropped := FilterAggregatable(observations)

	sorted := make([]Observation, len(kept))
	copy(sorted, kept)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	aggregates := make([]MonthlyAggregate, 0)
	for _, obs := range sorted {
		key := obs.Date.Format(MonthKeyLayout)
		last := len(aggregates) - 1
		if last >= 0 && aggregates[last].MonthKey == key {
			aggregates[last].Emissions += obs.Emissions
			continue
		}
		aggregates = append(aggregates, MonthlyAggregate{
			MonthKey:   key,
			MonthLabel: obs.Date.Format(MonthLabelLayout),
			Emissions:  obs.Emissions,
		})
	}

	return AggregationResult{
		Aggregates: aggregates,
		Dropped:    dropped,
	}
}

// CheckDuplicateDates returns ErrDuplicateDates when two dated observations
// fall on the same day
func CheckDuplicateDates(observations []Observation) error {
	seen := make(map[string]struct{}, len(observations))
	for _, obs := range observations {
		if obs.Date.IsZero() {
			continue
		}
		day := obs.Date.Format(DateLayout)
		if _, ok := seen[day]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateDates, day)
		}
		seen[day] = struct{}{}
	}
	return nil
}

// ColumnStatistics computes mean, min, max and population standard deviation
func ColumnStatistics(values []float64) ColumnStats {
	if len(values) == 0 {
		return ColumnStats{}
	}

	mean, std := stat.PopMeanStdDev(values, nil)
	return ColumnStats{
		Mean: mean,
		Min:  floats.Min(values),
		Max:  floats.Max(values),
		Std:  std,
	}
}

// SummarizeColumns computes ColumnStats for each requested field.
// All numeric fields are summarized when none are given.
func SummarizeColumns(observations []Observation, fields ...Field) Summary {
	if len(fields) == 0 {
		fields = NumericFields
	}

	summary := Summary{
		Mean:      make(map[string]float64, len(fields)),
		Min:       make(map[string]float64, len(fields)),
		Max:       make(map[string]float64, len(fields)),
		Std:       make(map[string]float64, len(fields)),
		TotalRows: len(observations),
	}
	if len(observations) == 0 {
		return summary
	}

	for _, f := range fields {
		values := make([]float64, len(observations))
		for i, obs := range observations {
			values[i] = obs.Value(f)
		}
		s := ColumnStatistics(values)
		summary.Mean[string(f)] = s.Mean
		summary.Min[string(f)] = s.Min
		summary.Max[string(f)] = s.Max
		summary.Std[string(f)] = s.Std
	}

	return summary
}
