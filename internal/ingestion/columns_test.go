package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func targets(mappings []ColumnMapping) map[string]ColumnMapping {
	bySource := make(map[string]ColumnMapping, len(mappings))
	for _, m := range mappings {
		bySource[m.Source] = m
	}
	return bySource
}

func TestMapColumns_ExactAliases(t *testing.T) {
	mappings, unmapped := MapColumns([]string{"ds", "Energy_kWh", "transport_km", "waste_kg", "water_m3", "fuel_l", "y", "production_units", "grid_intensity"})

	assert.Empty(t, unmapped)
	bySource := targets(mappings)
	assert.Equal(t, ColumnDate, bySource["ds"].Target)
	assert.Equal(t, "energy_use", bySource["Energy_kWh"].Target)
	assert.Equal(t, "waste", bySource["waste_kg"].Target)
	assert.Equal(t, UnitKilograms, bySource["waste_kg"].Unit)
	assert.Equal(t, UnitCubicMeter, bySource["water_m3"].Unit)
	assert.Equal(t, "emissions", bySource["y"].Target)
	assert.Equal(t, "grid_intensity", bySource["grid_intensity"].Target)
}

func TestMapColumns_PartialMatches(t *testing.T) {
	mappings, unmapped := MapColumns([]string{"Reporting Month", "Total Electricity Used", "Diesel Litres", "CO2e Emitted", "Notes"})

	bySource := targets(mappings)
	assert.Equal(t, ColumnDate, bySource["Reporting Month"].Target)
	assert.Equal(t, "energy_use", bySource["Total Electricity Used"].Target)
	assert.Equal(t, "fuel", bySource["Diesel Litres"].Target)
	assert.Equal(t, "emissions", bySource["CO2e Emitted"].Target)
	assert.Equal(t, []string{"Notes"}, unmapped)
}

func TestMapColumns_FirstHeaderClaimsTarget(t *testing.T) {
	mappings, unmapped := MapColumns([]string{"date", "energy", "electricity"})

	require.Len(t, mappings, 2)
	assert.Equal(t, "energy", targets(mappings)["energy"].Source)
	assert.Equal(t, []string{"electricity"}, unmapped)
}

func TestMapColumns_ExactBeatsPartial(t *testing.T) {
	// "energy_use_estimate" would partially match energy, but the exact
	// header later in the list wins
	mappings, unmapped := MapColumns([]string{"energy_use_estimate", "energy_use"})

	assert.Equal(t, "energy_use", targets(mappings)["energy_use"].Target)
	assert.Equal(t, []string{"energy_use_estimate"}, unmapped)
}

func TestMapColumns_WasteDefaultsToTons(t *testing.T) {
	mappings, _ := MapColumns([]string{"waste", "water"})

	bySource := targets(mappings)
	assert.Equal(t, UnitTons, bySource["waste"].Unit)
	assert.Equal(t, UnitLiters, bySource["water"].Unit)
}

func TestConvertUnit(t *testing.T) {
	assert.InDelta(t, 1.5, convertUnit(1500, UnitKilograms), 1e-12)
	assert.InDelta(t, 2000, convertUnit(2, UnitCubicMeter), 1e-12)
	assert.InDelta(t, 7, convertUnit(7, UnitTons), 1e-12)
	assert.InDelta(t, 7, convertUnit(7, UnitNone), 1e-12)
}
