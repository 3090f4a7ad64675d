package forecast

import (
	"fmt"
	"time"
)

// =====================================================
// Enums and Constants
// =====================================================

// Field names one of the numeric columns carried by an Observation
type Field string

const (
	FieldEnergyUse     Field = "energy_use"
	FieldTransport     Field = "transport"
	FieldWaste         Field = "waste"
	FieldWater         Field = "water"
	FieldFuel          Field = "fuel"
	FieldEmissions     Field = "emissions"
	FieldProduction    Field = "production"
	FieldGridIntensity Field = "grid_intensity"
)

// NumericFields lists every numeric Observation column in display order
var NumericFields = []Field{
	FieldEnergyUse,
	FieldTransport,
	FieldWaste,
	FieldWater,
	FieldFuel,
	FieldEmissions,
	FieldProduction,
	FieldGridIntensity,
}

// FactorFields lists the operational columns that drive emissions
var FactorFields = []Field{
	FieldEnergyUse,
	FieldTransport,
	FieldWaste,
	FieldWater,
	FieldFuel,
	FieldProduction,
	FieldGridIntensity,
}

const (
	// MonthKeyLayout is the time layout of MonthlyAggregate.MonthKey
	MonthKeyLayout = "2006-01"
	// MonthLabelLayout is the time layout of MonthlyAggregate.MonthLabel
	MonthLabelLayout = "Jan 2006"
	// DateLayout is the layout used when dates are rendered as plain text
	DateLayout = "2006-01-02"
)

// =====================================================
// Pipeline Entities
// =====================================================

// Observation is one normalized row of monthly operational data
type Observation struct {
	ID            string    `json:"id"`
	Date          time.Time `json:"date"`
	EnergyUse     float64   `json:"energy_use"`
	Transport     float64   `json:"transport"`
	Waste         float64   `json:"waste"`
	Water         float64   `json:"water"`
	Fuel          float64   `json:"fuel"`
	Emissions     float64   `json:"emissions"`
	Production    float64   `json:"production"`
	GridIntensity float64   `json:"grid_intensity"`

	// EmissionsMissing is set when the source row had no emissions cell at all.
	EmissionsMissing bool `json:"-"`
}

// Value returns the numeric column named by f
func (o Observation) Value(f Field) float64 {
	switch f {
	case FieldEnergyUse:
		return o.EnergyUse
	case FieldTransport:
		return o.Transport
	case FieldWaste:
		return o.Waste
	case FieldWater:
		return o.Water
	case FieldFuel:
		return o.Fuel
	case FieldEmissions:
		return o.Emissions
	case FieldProduction:
		return o.Production
	case FieldGridIntensity:
		return o.GridIntensity
	default:
		return 0
	}
}

// SetValue assigns the numeric column named by f
func (o *Observation) SetValue(f Field, v float64) {
	switch f {
	case FieldEnergyUse:
		o.EnergyUse = v
	case FieldTransport:
		o.Transport = v
	case FieldWaste:
		o.Waste = v
	case FieldWater:
		o.Water = v
	case FieldFuel:
		o.Fuel = v
	case FieldEmissions:
		o.Emissions = v
	case FieldProduction:
		o.Production = v
	case FieldGridIntensity:
		o.GridIntensity = v
	}
}

// MonthlyAggregate is the summed emissions of one calendar month
type MonthlyAggregate struct {
	MonthKey   string  `json:"month_key"`
	MonthLabel string  `json:"month_label"`
	Emissions  float64 `json:"emissions"`
}

// Month returns the first day of the aggregate's month in UTC
func (a MonthlyAggregate) Month() (time.Time, error) {
	t, err := time.Parse(MonthKeyLayout, a.MonthKey)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month key %q: %w", a.MonthKey, err)
	}
	return t, nil
}

// ForecastPoint is a single projected month
type ForecastPoint struct {
	Date               time.Time `json:"date"`
	PredictedEmissions float64   `json:"predicted_emissions"`
	LowerBound         float64   `json:"lower_bound"`
	UpperBound         float64   `json:"upper_bound"`
}

// OptimizedForecastPoint is a ForecastPoint after reduction measures
type OptimizedForecastPoint ForecastPoint

// Suggestion is a ranked optimization recommendation
type Suggestion struct {
	Factor          string  `json:"factor"`
	Action          string  `json:"action"`
	Description     string  `json:"description"`
	EstimatedSaving float64 `json:"estimated_saving"`
	ImpactScore     float64 `json:"impact_score"`
}

// Savings compares an original forecast with its optimized variant
type Savings struct {
	Total      float64 `json:"total"`
	Percentage float64 `json:"percentage"`
}

// AlignedPair pairs an observed month with the forecast for that month
type AlignedPair struct {
	Date         time.Time `json:"date"`
	Actual       float64   `json:"actual"`
	Predicted    float64   `json:"predicted"`
	Error        float64   `json:"error"`
	PercentError float64   `json:"percent_error"`
}

// AccuracyMetrics summarizes how closely a forecast tracked observed history
type AccuracyMetrics struct {
	MAE          float64       `json:"mae"`
	RMSE         float64       `json:"rmse"`
	MAPE         float64       `json:"mape"`
	R2           float64       `json:"r2"`
	QualityScore float64       `json:"quality_score"`
	AlignedPairs []AlignedPair `json:"aligned_pairs"`
}

// =====================================================
// Aggregation Results
// =====================================================

// DropCounts records observations excluded by the aggregation filter
type DropCounts struct {
	MissingDate      int `json:"missing_date"`
	MissingEmissions int `json:"missing_emissions"`
}

// Total returns the number of excluded observations
func (d DropCounts) Total() int {
	return d.MissingDate + d.MissingEmissions
}

// AggregationResult is the output of AggregateMonthly
type AggregationResult struct {
	Aggregates []MonthlyAggregate `json:"aggregates"`
	Dropped    DropCounts         `json:"dropped"`
}

// ColumnStats holds summary statistics of one numeric column
type ColumnStats struct {
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Std  float64 `json:"std"`
}

// Summary holds per-column statistics keyed by field name
type Summary struct {
	Mean      map[string]float64 `json:"mean"`
	Min       map[string]float64 `json:"min"`
	Max       map[string]float64 `json:"max"`
	Std       map[string]float64 `json:"std"`
	TotalRows int                `json:"total_rows"`
}
