package forecast

import (
	"fmt"
	"math"
	"sort"
)

// EstimatedSavingFactor converts an impact score into an estimated saving
const EstimatedSavingFactor = 2.0

type suggestionText struct {
	action      string
	description string
}

var suggestionTable = map[string]suggestionText{
	string(FieldEnergyUse): {
		action:      "Reduce energy consumption by 15%",
		description: "Implement energy-efficient lighting, optimize HVAC systems, and consider renewable energy sources to reduce overall energy consumption.",
	},
	string(FieldTransport): {
		action:      "Optimize transportation routes",
		description: "Redesign logistics routes, implement fleet management systems, and consider electric vehicles to reduce transport-related emissions.",
	},
	string(FieldWaste): {
		action:      "Implement waste reduction program",
		description: "Establish recycling programs, reduce packaging waste, and implement circular economy principles to minimize waste generation.",
	},
	string(FieldWater): {
		action:      "Reduce water consumption",
		description: "Install water-efficient fixtures, implement water recycling systems, and optimize production processes to reduce water usage.",
	},
	string(FieldFuel): {
		action:      "Switch to cleaner fuel alternatives",
		description: "Transition to biofuels, optimize combustion processes, and implement fuel efficiency measures to reduce fuel-related emissions.",
	},
	string(FieldGridIntensity): {
		action:      "Shift energy usage to low-intensity periods",
		description: "Implement load shifting strategies, utilize energy storage, and schedule energy-intensive operations during periods of lower grid carbon intensity.",
	},
}

func lookupSuggestion(factor string) suggestionText {
	if text, ok := suggestionTable[factor]; ok {
		return text
	}
	return suggestionText{
		action:      fmt.Sprintf("Optimize %s", factor),
		description: fmt.Sprintf("Implement measures to reduce emissions from %s.", factor),
	}
}

// ScoreImpacts ranks factors by absolute impact score, highest first, and
// attaches the matching recommendation. Equal scores are ordered by name.
func ScoreImpacts(impacts map[string]float64) []Suggestion {
	factors := make([]string, 0, len(impacts))
	for factor := range impacts {
		factors = append(factors, factor)
	}
	sort.Slice(factors, func(i, j int) bool {
		a, b := math.Abs(impacts[factors[i]]), math.Abs(impacts[factors[j]])
		if a != b {
			return a > b
		}
		return factors[i] < factors[j]
	})

	suggestions := make([]Suggestion, 0, len(factors))
	for _, factor := range factors {
		score := impacts[factor]
		text := lookupSuggestion(factor)
		suggestions = append(suggestions, Suggestion{
			Factor:          factor,
			Action:          text.action,
			Description:     text.description,
			EstimatedSaving: score * EstimatedSavingFactor,
			ImpactScore:     score,
		})
	}
	return suggestions
}

// CalculateSavings compares the summed original and optimized predictions.
// The percentage is 0 when the original total is 0.
func CalculateSavings(original []ForecastPoint, optimized []OptimizedForecastPoint) Savings {
	var originalTotal, optimizedTotal float64
	for _, p := range original {
		originalTotal += p.PredictedEmissions
	}
	for _, p := range optimized {
		optimizedTotal += p.PredictedEmissions
	}

	total := originalTotal - optimizedTotal
	percentage := 0.0
	if originalTotal != 0 {
		percentage = total / originalTotal * 100
	}

	return Savings{
		Total:      total,
		Percentage: percentage,
	}
}

// impactRange is the [base, base+spread) interval of a synthesized score
type impactRange struct {
	base   float64
	spread float64
}

var synthesizedImpactRanges = map[string]impactRange{
	string(FieldEnergyUse):     {base: 0.7, spread: 0.3},
	string(FieldTransport):     {base: 0.5, spread: 0.3},
	string(FieldWaste):         {base: 0.3, spread: 0.3},
	string(FieldWater):         {base: 0.2, spread: 0.2},
	string(FieldFuel):          {base: 0.4, spread: 0.3},
	string(FieldGridIntensity): {base: 0.6, spread: 0.3},
}

// SynthesizeImpacts produces placeholder impact scores for when regression
// is not possible. Factors are drawn in a fixed order so a seeded source
// yields the same map every time.
func SynthesizeImpacts(src Uniform) map[string]float64 {
	order := []Field{FieldEnergyUse, FieldTransport, FieldWaste, FieldWater, FieldFuel, FieldGridIntensity}

	impacts := make(map[string]float64, len(order))
	for _, f := range order {
		r := synthesizedImpactRanges[string(f)]
		impacts[string(f)] = r.base + src.Float64()*r.spread
	}
	return impacts
}
