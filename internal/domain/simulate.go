package domain

import (
	"math"
	"math/rand/v2"
	"time"
)

// Rand is the random source consumed by the simulators. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// NewRand returns a PCG-backed source for the given seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Per-tick bounds of the random walk applied to live readings.
const (
	et0Step         = 0.1
	waterLevelStep  = 0.05
	temperatureStep = 0.2
	humidityStep    = 1.0
	windSpeedStep   = 0.2
	solarStep       = 10.0

	rainChance  = 0.1
	rainMaxStep = 0.5
)

// Simulate returns the next snapshot of the registry. Every station that is
// not offline gets its readings nudged and LastUpdated set to now; offline
// stations are copied through untouched. The input slice is not modified and
// the order of stations is preserved.
func Simulate(stations []Station, rng Rand, now time.Time) []Station {
	next := make([]Station, len(stations))
	for i, st := range stations {
		if st.Status == StatusOffline {
			next[i] = st
			continue
		}
		next[i] = nudge(st, rng, now)
	}
	return next
}

func nudge(st Station, rng Rand, now time.Time) Station {
	s := st.Sensors
	s.ET0 = nonNegative(s.ET0 + jitter(rng, et0Step))
	s.Rainfall = nonNegative(s.Rainfall + rainIncrement(rng))
	s.WaterLevel = nonNegative(s.WaterLevel + jitter(rng, waterLevelStep))
	s.Temperature = nonNegative(s.Temperature + jitter(rng, temperatureStep))
	s.Humidity = clamp(s.Humidity+jitter(rng, humidityStep), 0, 100)
	s.WindSpeed = nonNegative(s.WindSpeed + jitter(rng, windSpeedStep))
	s.SolarRadiation = nonNegative(s.SolarRadiation + jitter(rng, solarStep))

	st.Sensors = s
	st.LastUpdated = now
	return st
}

// jitter draws uniformly from [-span, span).
func jitter(rng Rand, span float64) float64 {
	return rng.Float64()*2*span - span
}

// rainIncrement only ever adds rain.
func rainIncrement(rng Rand) float64 {
	if rng.Float64() < 1-rainChance {
		return 0
	}
	return rng.Float64() * rainMaxStep
}

func nonNegative(v float64) float64 {
	return math.Max(0, v)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
