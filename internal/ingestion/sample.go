package ingestion

import (
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"carbon-scribe/emissions-forecast/internal/forecast"
)

// DefaultSampleRows is the number of months produced by GenerateSample
const DefaultSampleRows = 24

// SampleStart is the first month of generated sample data
var SampleStart = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

// GenerateSample produces n months of synthetic operational data starting
// at SampleStart. Each factor follows a sine wave plus Gaussian noise and
// emissions are derived from the factors with a seasonal swing. The same
// seed always yields the same rows.
func GenerateSample(seed uint64, n int) []forecast.Observation {
	if n <= 0 {
		n = DefaultSampleRows
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d))
	noise := func(sd float64) float64 { return rng.NormFloat64() * sd }

	observations := make([]forecast.Observation, 0, n)
	for i := 0; i < n; i++ {
		x := float64(i)

		energyKWh := math.Max(0, 5000+500*math.Sin(x/4)+noise(200))
		transportKm := math.Max(0, 20000+2000*math.Sin(x/3+1)+noise(500))
		wasteKg := math.Max(0, 1500+300*math.Sin(x/5+2)+noise(100))
		waterM3 := math.Max(0, 200+50*math.Sin(x/4+1.5)+noise(20))
		fuelL := math.Max(0, 1000+200*math.Sin(x/3+0.5)+noise(50))
		production := math.Max(0, 10000+1000*math.Sin(x/4+1)+noise(300))
		grid := math.Max(0, 0.5+0.1*math.Sin(x/6)+noise(0.05))

		emissions := (0.0005*energyKWh +
			0.0002*transportKm +
			0.001*wasteKg +
			0.0001*waterM3 +
			0.002*fuelL) * grid
		emissions *= 1 + 0.2*math.Sin(x/6)

		observations = append(observations, forecast.Observation{
			ID:            strconv.Itoa(i + 1),
			Date:          SampleStart.AddDate(0, i, 0),
			EnergyUse:     round2(energyKWh),
			Transport:     round2(transportKm),
			Waste:         round2(convertUnit(wasteKg, UnitKilograms)),
			Water:         round2(convertUnit(waterM3, UnitCubicMeter)),
			Fuel:          round2(fuelL),
			Emissions:     round2(emissions),
			Production:    round2(production),
			GridIntensity: round2(grid),
		})
	}
	return observations
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
