package forecast

import (
	"time"
)

func month(year int, m time.Month) time.Time {
	return time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
}

func aggregatesFrom(start time.Time, emissions ...float64) []MonthlyAggregate {
	aggregates := make([]MonthlyAggregate, len(emissions))
	for i, e := range emissions {
		m := start.AddDate(0, i, 0)
		aggregates[i] = MonthlyAggregate{
			MonthKey:   m.Format(MonthKeyLayout),
			MonthLabel: m.Format(MonthLabelLayout),
			Emissions:  e,
		}
	}
	return aggregates
}

func observationsFrom(start time.Time, emissions ...float64) []Observation {
	observations := make([]Observation, len(emissions))
	for i, e := range emissions {
		observations[i] = Observation{
			ID:        start.AddDate(0, i, 0).Format(DateLayout),
			Date:      start.AddDate(0, i, 0),
			Emissions: e,
		}
	}
	return observations
}
