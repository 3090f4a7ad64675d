package forecast

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MinRegressionRows is the smallest sample EstimateImpacts will fit
const MinRegressionRows = 5

// ImpactDetail describes one factor's fitted contribution to emissions
type ImpactDetail struct {
	Coefficient float64 `json:"coefficient"`
	MeanValue   float64 `json:"mean_value"`
	ImpactScore float64 `json:"impact_score"`
}

var recommendationText = map[string]string{
	string(FieldGridIntensity): "Consider switching to renewable energy sources to reduce grid carbon intensity",
	string(FieldEnergyUse):     "Implement energy efficiency measures to reduce electricity consumption",
	string(FieldTransport):     "Optimize transportation routes or switch to electric vehicles",
	string(FieldWaste):         "Implement waste reduction and recycling programs",
	string(FieldWater):         "Install water-saving fixtures and implement water conservation measures",
	string(FieldFuel):          "Optimize fuel consumption or switch to more efficient vehicles",
}

// EstimateImpacts fits an ordinary least squares regression of emissions on
// the operational factors and scores each factor as coefficient × mean.
// Constant columns cannot be identified and get a zero coefficient.
func EstimateImpacts(observations []Observation) (map[string]ImpactDetail, error) {
	n := len(observations)
	if n < MinRegressionRows {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrNotEnoughRows, MinRegressionRows, n)
	}

	columns := make(map[Field][]float64, len(FactorFields))
	means := make(map[Field]float64, len(FactorFields))
	active := make([]Field, 0, len(FactorFields))
	for _, f := range FactorFields {
		values := make([]float64, n)
		for i, obs := range observations {
			values[i] = obs.Value(f)
		}
		columns[f] = values

		mean, variance := stat.PopMeanVariance(values, nil)
		means[f] = mean
		if variance > 0 {
			active = append(active, f)
		}
	}
	if len(active) == 0 {
		return nil, ErrSingularDesign
	}

	x := mat.NewDense(n, len(active)+1, nil)
	y := mat.NewVecDense(n, nil)
	for i, obs := range observations {
		x.Set(i, 0, 1)
		for j, f := range active {
			x.Set(i, j+1, columns[f][i])
		}
		y.SetVec(i, obs.Emissions)
	}

	var beta mat.VecDense
	if err := beta.SolveVec(x, y); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return nil, fmt.Errorf("%w: %v", ErrSingularDesign, err)
		}
	}

	coefficients := make(map[Field]float64, len(active))
	for j, f := range active {
		c := beta.AtVec(j + 1)
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, ErrSingularDesign
		}
		coefficients[f] = c
	}

	details := make(map[string]ImpactDetail, len(FactorFields))
	for _, f := range FactorFields {
		c := coefficients[f]
		details[string(f)] = ImpactDetail{
			Coefficient: c,
			MeanValue:   means[f],
			ImpactScore: c * means[f],
		}
	}
	return details, nil
}

// ImpactScores flattens regression details into the map used by ScoreImpacts
func ImpactScores(details map[string]ImpactDetail) map[string]float64 {
	scores := make(map[string]float64, len(details))
	for factor, d := range details {
		scores[factor] = d.ImpactScore
	}
	return scores
}

// Recommendations returns advice for the factors among the top limit impacts
// whose coefficient is positive
func Recommendations(details map[string]ImpactDetail, limit int) []string {
	factors := make([]string, 0, len(details))
	for factor := range details {
		factors = append(factors, factor)
	}
	sort.Slice(factors, func(i, j int) bool {
		a, b := math.Abs(details[factors[i]].ImpactScore), math.Abs(details[factors[j]].ImpactScore)
		if a != b {
			return a > b
		}
		return factors[i] < factors[j]
	})
	if len(factors) > limit {
		factors = factors[:limit]
	}

	recommendations := make([]string, 0, len(factors))
	for _, factor := range factors {
		if details[factor].Coefficient <= 0 {
			continue
		}
		if text, ok := recommendationText[factor]; ok {
			recommendations = append(recommendations, text)
		}
	}
	return recommendations
}
