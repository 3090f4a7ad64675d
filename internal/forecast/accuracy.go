package forecast

import "math"

// Normalization ceilings used by QualityScore
const (
	maeCeiling  = 10.0
	rmseCeiling = 15.0
	mapeCeiling = 50.0
)

// Evaluate computes error metrics over aligned pairs. Percent error is left
// at 0 and excluded from MAPE for pairs whose actual value is 0. An empty
// input yields all-zero metrics.
func Evaluate(pairs []AlignedPair) AccuracyMetrics {
	if len(pairs) == 0 {
		return AccuracyMetrics{AlignedPairs: []AlignedPair{}}
	}

	evaluated := make([]AlignedPair, len(pairs))
	var absSum, sqSum, pctSum, actualSum float64
	pctCount := 0

	for i, p := range pairs {
		p.Error = math.Abs(p.Actual - p.Predicted)
		p.PercentError = 0
		if p.Actual != 0 {
			p.PercentError = math.Abs(p.Error/p.Actual) * 100
			pctSum += p.PercentError
			pctCount++
		}
		absSum += p.Error
		sqSum += p.Error * p.Error
		actualSum += p.Actual
		evaluated[i] = p
	}

	n := float64(len(pairs))
	metrics := AccuracyMetrics{
		MAE:          absSum / n,
		RMSE:         math.Sqrt(sqSum / n),
		R2:           rSquared(evaluated, actualSum/n),
		AlignedPairs: evaluated,
	}
	if pctCount > 0 {
		metrics.MAPE = pctSum / float64(pctCount)
	}
	metrics.QualityScore = QualityScore(metrics)

	return metrics
}

// rSquared returns 1 - SSres/SStot. With zero variance in the actual values
// it returns 1 for a perfect fit and 0 otherwise.
func rSquared(pairs []AlignedPair, mean float64) float64 {
	var ssRes, ssTot float64
	for _, p := range pairs {
		ssRes += (p.Actual - p.Predicted) * (p.Actual - p.Predicted)
		ssTot += (p.Actual - mean) * (p.Actual - mean)
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

// AlignAndEvaluate aligns actual months with forecast points and evaluates them
func AlignAndEvaluate(actual []MonthlyAggregate, forecast []ForecastPoint) AccuracyMetrics {
	return Evaluate(Align(actual, forecast))
}

// QualityScore averages the clamped, normalized metrics into a whole percentage
func QualityScore(m AccuracyMetrics) float64 {
	if len(m.AlignedPairs) == 0 {
		return 0
	}
	maeScore := clamp01(1 - m.MAE/maeCeiling)
	rmseScore := clamp01(1 - m.RMSE/rmseCeiling)
	mapeScore := clamp01(1 - m.MAPE/mapeCeiling)
	r2Score := clamp01(m.R2)

	return math.Round((maeScore + rmseScore + mapeScore + r2Score) / 4 * 100)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// =====================================================
// Quality Assessment
// =====================================================

// Tier is a coarse quality rating
type Tier string

const (
	TierGood    Tier = "good"
	TierAverage Tier = "average"
	TierPoor    Tier = "poor"
)

// QualityThresholds are the tier boundaries used by Assess
type QualityThresholds struct {
	MAEGood        float64 `json:"mae_good" yaml:"mae_good"`
	MAEAverage     float64 `json:"mae_average" yaml:"mae_average"`
	RMSEGood       float64 `json:"rmse_good" yaml:"rmse_good"`
	RMSEAverage    float64 `json:"rmse_average" yaml:"rmse_average"`
	MAPEGood       float64 `json:"mape_good" yaml:"mape_good"`
	MAPEAverage    float64 `json:"mape_average" yaml:"mape_average"`
	R2Good         float64 `json:"r2_good" yaml:"r2_good"`
	R2Average      float64 `json:"r2_average" yaml:"r2_average"`
	OverallGood    float64 `json:"overall_good" yaml:"overall_good"`
	OverallAverage float64 `json:"overall_average" yaml:"overall_average"`
}

// DefaultQualityThresholds returns the standard tier boundaries
func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{
		MAEGood:        2,
		MAEAverage:     5,
		RMSEGood:       3,
		RMSEAverage:    7,
		MAPEGood:       10,
		MAPEAverage:    20,
		R2Good:         0.8,
		R2Average:      0.6,
		OverallGood:    80,
		OverallAverage: 60,
	}
}

// Assessment rates each metric and the overall score
type Assessment struct {
	MAE     Tier    `json:"mae"`
	RMSE    Tier    `json:"rmse"`
	MAPE    Tier    `json:"mape"`
	R2      Tier    `json:"r2"`
	Overall Tier    `json:"overall"`
	Score   float64 `json:"score"`
	Summary string  `json:"summary"`
}

var assessmentSummaries = map[Tier]string{
	TierGood:    "The model is performing well with high accuracy. Predictions are reliable for decision-making.",
	TierAverage: "The model is performing adequately. Predictions should be used with some caution.",
	TierPoor:    "The model performance is below optimal levels. Consider retraining with more data or adjusting parameters.",
}

// Assess rates metrics against thresholds
func Assess(m AccuracyMetrics, t QualityThresholds) Assessment {
	a := Assessment{
		MAE:   lowerIsBetter(m.MAE, t.MAEGood, t.MAEAverage),
		RMSE:  lowerIsBetter(m.RMSE, t.RMSEGood, t.RMSEAverage),
		MAPE:  lowerIsBetter(m.MAPE, t.MAPEGood, t.MAPEAverage),
		R2:    higherIsBetter(m.R2, t.R2Good, t.R2Average),
		Score: m.QualityScore,
	}

	switch {
	case m.QualityScore >= t.OverallGood:
		a.Overall = TierGood
	case m.QualityScore >= t.OverallAverage:
		a.Overall = TierAverage
	default:
		a.Overall = TierPoor
	}
	a.Summary = assessmentSummaries[a.Overall]

	return a
}

func lowerIsBetter(v, good, average float64) Tier {
	switch {
	case v < good:
		return TierGood
	case v < average:
		return TierAverage
	default:
		return TierPoor
	}
}

func higherIsBetter(v, good, average float64) Tier {
	switch {
	case v > good:
		return TierGood
	case v > average:
		return TierAverage
	default:
		return TierPoor
	}
}
