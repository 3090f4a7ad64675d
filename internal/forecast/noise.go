package forecast

import (
	"math/rand/v2"
	"sync"
)

// Noise supplies the multiplicative jitter applied to each forecast step
type Noise interface {
	Factor() float64
}

// Uniform supplies values in [0, 1)
type Uniform interface {
	Float64() float64
}

// JitterBand bounds the multiplicative jitter
type JitterBand struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// DefaultJitterBand returns the [0.9, 1.1] band
func DefaultJitterBand() JitterBand {
	return JitterBand{Min: 0.9, Max: 1.1}
}

type noJitter struct{}

func (noJitter) Factor() float64 { return 1 }

// NoJitter is a Noise whose factor is always exactly 1
var NoJitter Noise = noJitter{}

// BandNoise draws jitter uniformly from a band. It is safe for concurrent use.
type BandNoise struct {
	mu   sync.Mutex
	rng  *rand.Rand
	band JitterBand
}

// NewSeededNoise returns a reproducible BandNoise
func NewSeededNoise(seed uint64, band JitterBand) *BandNoise {
	return &BandNoise{
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		band: band,
	}
}

// NewRandomNoise returns a BandNoise seeded from the runtime's random source
func NewRandomNoise(band JitterBand) *BandNoise {
	return NewSeededNoise(rand.Uint64(), band)
}

// Factor returns a value in [band.Min, band.Max)
func (n *BandNoise) Factor() float64 {
	return n.band.Min + n.Float64()*(n.band.Max-n.band.Min)
}

// Float64 returns a uniform value in [0, 1)
func (n *BandNoise) Float64() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.rng.Float64()
}

// NormFloat64 returns a standard normally distributed value
func (n *BandNoise) NormFloat64() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.rng.NormFloat64()
}
