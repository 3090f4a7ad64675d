package ingestion

import (
	"strings"

	"carbon-scribe/emissions-forecast/internal/forecast"
)

// Unit identifies the unit a source column was recorded in
type Unit string

const (
	UnitNone       Unit = ""
	UnitKilograms  Unit = "kg"
	UnitTons       Unit = "tons"
	UnitCubicMeter Unit = "m3"
	UnitLiters     Unit = "liters"
)

// Canonical column names that are not numeric fields
const (
	ColumnDate = "date"
	ColumnID   = "id"
)

// ColumnMapping links a source header to a canonical column
type ColumnMapping struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Unit   Unit   `json:"unit,omitempty"`
}

type alias struct {
	name   string
	target string
	unit   Unit
}

// aliases is ordered; the first match wins during partial matching
var aliases = []alias{
	{"ds", ColumnDate, UnitNone},
	{"date", ColumnDate, UnitNone},
	{"datetime", ColumnDate, UnitNone},
	{"time", ColumnDate, UnitNone},
	{"period", ColumnDate, UnitNone},
	{"month", ColumnDate, UnitNone},

	{"energy_kwh", string(forecast.FieldEnergyUse), UnitNone},
	{"energy_use", string(forecast.FieldEnergyUse), UnitNone},
	{"energy_use (kwh)", string(forecast.FieldEnergyUse), UnitNone},
	{"energy (kwh)", string(forecast.FieldEnergyUse), UnitNone},
	{"energy", string(forecast.FieldEnergyUse), UnitNone},
	{"electricity", string(forecast.FieldEnergyUse), UnitNone},
	{"power", string(forecast.FieldEnergyUse), UnitNone},
	{"kwh", string(forecast.FieldEnergyUse), UnitNone},

	{"transport_km", string(forecast.FieldTransport), UnitNone},
	{"transport (km)", string(forecast.FieldTransport), UnitNone},
	{"transport", string(forecast.FieldTransport), UnitNone},
	{"transportation", string(forecast.FieldTransport), UnitNone},
	{"travel", string(forecast.FieldTransport), UnitNone},
	{"distance", string(forecast.FieldTransport), UnitNone},
	{"km", string(forecast.FieldTransport), UnitNone},

	{"waste_kg", string(forecast.FieldWaste), UnitKilograms},
	{"waste (kg)", string(forecast.FieldWaste), UnitKilograms},
	{"waste (tons)", string(forecast.FieldWaste), UnitTons},
	{"waste", string(forecast.FieldWaste), UnitTons},
	{"garbage", string(forecast.FieldWaste), UnitTons},
	{"trash", string(forecast.FieldWaste), UnitTons},

	{"water_m3", string(forecast.FieldWater), UnitCubicMeter},
	{"water (m3)", string(forecast.FieldWater), UnitCubicMeter},
	{"water (liters)", string(forecast.FieldWater), UnitLiters},
	{"water", string(forecast.FieldWater), UnitLiters},
	{"water_usage", string(forecast.FieldWater), UnitLiters},
	{"water_consumption", string(forecast.FieldWater), UnitLiters},
	{"h2o", string(forecast.FieldWater), UnitLiters},

	{"fuel_l", string(forecast.FieldFuel), UnitNone},
	{"fuel (liters)", string(forecast.FieldFuel), UnitNone},
	{"fuel (l)", string(forecast.FieldFuel), UnitNone},
	{"fuel", string(forecast.FieldFuel), UnitNone},
	{"gasoline", string(forecast.FieldFuel), UnitNone},
	{"diesel", string(forecast.FieldFuel), UnitNone},
	{"petrol", string(forecast.FieldFuel), UnitNone},
	{"gas", string(forecast.FieldFuel), UnitNone},

	{"y", string(forecast.FieldEmissions), UnitNone},
	{"emissions (tons co2e)", string(forecast.FieldEmissions), UnitNone},
	{"emissions (tons)", string(forecast.FieldEmissions), UnitNone},
	{"carbon_emissions", string(forecast.FieldEmissions), UnitNone},
	{"emissions", string(forecast.FieldEmissions), UnitNone},
	{"co2e", string(forecast.FieldEmissions), UnitNone},
	{"co2", string(forecast.FieldEmissions), UnitNone},
	{"greenhouse_gas", string(forecast.FieldEmissions), UnitNone},
	{"ghg", string(forecast.FieldEmissions), UnitNone},

	{"production_units", string(forecast.FieldProduction), UnitNone},
	{"production (units)", string(forecast.FieldProduction), UnitNone},
	{"production", string(forecast.FieldProduction), UnitNone},
	{"products", string(forecast.FieldProduction), UnitNone},
	{"output", string(forecast.FieldProduction), UnitNone},
	{"units", string(forecast.FieldProduction), UnitNone},

	{"grid_intensity", string(forecast.FieldGridIntensity), UnitNone},
	{"grid_intensity (kg co2e/kwh)", string(forecast.FieldGridIntensity), UnitNone},
	{"carbon_intensity", string(forecast.FieldGridIntensity), UnitNone},
	{"grid_carbon", string(forecast.FieldGridIntensity), UnitNone},
	{"intensity", string(forecast.FieldGridIntensity), UnitNone},
	{"grid", string(forecast.FieldGridIntensity), UnitNone},

	{"id", ColumnID, UnitNone},
	{"carbon", string(forecast.FieldEmissions), UnitNone},
}

// minPartialAlias keeps short aliases such as "y" and "ds" exact-only
const minPartialAlias = 3

// MapColumns maps source headers onto canonical columns. Exact alias matches
// are tried first, then substring matches. Each canonical column is claimed
// by the first header that maps to it; the rest are reported as unmapped.
func MapColumns(headers []string) ([]ColumnMapping, []string) {
	claimed := make(map[string]bool)
	resolved := make([]*ColumnMapping, len(headers))

	// exact pass over every header before any partial match can claim a target
	for i, h := range headers {
		norm := normalizeHeader(h)
		for _, a := range aliases {
			if a.name == norm && !claimed[a.target] {
				resolved[i] = &ColumnMapping{Source: h, Target: a.target, Unit: unitFromHeader(norm, a.unit)}
				claimed[a.target] = true
				break
			}
		}
	}

	for i, h := range headers {
		if resolved[i] != nil {
			continue
		}
		norm := normalizeHeader(h)
		if norm == "" {
			continue
		}
		for _, a := range aliases {
			if len(a.name) < minPartialAlias || claimed[a.target] || a.target == ColumnID {
				continue
			}
			if strings.Contains(norm, a.name) || (len(norm) >= minPartialAlias && strings.Contains(a.name, norm)) {
				resolved[i] = &ColumnMapping{Source: h, Target: a.target, Unit: unitFromHeader(norm, a.unit)}
				claimed[a.target] = true
				break
			}
		}
	}

	mappings := make([]ColumnMapping, 0, len(headers))
	var unmapped []string
	for i, h := range headers {
		if resolved[i] == nil {
			unmapped = append(unmapped, h)
			continue
		}
		mappings = append(mappings, *resolved[i])
	}
	return mappings, unmapped
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// unitFromHeader refines an alias unit from unit hints in the header text
func unitFromHeader(header string, fallback Unit) Unit {
	switch {
	case strings.Contains(header, "(kg)") || strings.HasSuffix(header, "_kg"):
		if fallback == UnitTons || fallback == UnitKilograms {
			return UnitKilograms
		}
	case strings.Contains(header, "m3"):
		if fallback == UnitLiters || fallback == UnitCubicMeter {
			return UnitCubicMeter
		}
	}
	return fallback
}

// convertUnit expresses v in the canonical unit of its column
func convertUnit(v float64, unit Unit) float64 {
	switch unit {
	case UnitKilograms:
		return v / 1000
	case UnitCubicMeter:
		return v * 1000
	default:
		return v
	}
}
