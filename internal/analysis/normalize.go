// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Normalizer rescales bars into [0, 1] against a running peak that rises
// instantly and decays by a fixed factor per call.
type Normalizer struct {
	decay       float64
	floor       float64
	exponent    float64
	runningPeak float64
}

// NewNormalizer returns a Normalizer whose running peak starts at
// InitialRunningPeak, or at floor if that is higher.
func NewNormalizer(decay, floor, exponent float64) *Normalizer {
	return &Normalizer{
		decay:       decay,
		floor:       floor,
		exponent:    exponent,
		runningPeak: math.Max(InitialRunningPeak, floor),
	}
}

// RunningPeak returns the current normalization denominator.
func (n *Normalizer) RunningPeak() float64 {
	return n.runningPeak
}

// Track updates the running peak from one frame of raw bars and returns it.
// The decay is per call and not corrected for callback cadence. Non-finite
// bars never raise the peak.
func (n *Normalizer) Track(bars []float64) float64 {
	current := 0.0
	if len(bars) > 0 {
		current = floats.Max(bars)
		if math.IsInf(current, 0) || math.IsNaN(current) {
			current = finiteMax(bars)
		}
	}

	if current > n.runningPeak {
		n.runningPeak = current
	} else {
		n.runningPeak *= n.decay
	}
	n.runningPeak = math.Max(n.runningPeak, n.floor)

	return n.runningPeak
}

// Apply maps each bar v to min((v/runningPeak)^exponent, 1) in place. Zero,
// negative and NaN bars map to 0.
func (n *Normalizer) Apply(bars []float64) {
	for i, v := range bars {
		ratio := v / n.runningPeak
		if !(ratio > 0) {
			bars[i] = 0
			continue
		}
		bars[i] = math.Min(math.Pow(ratio, n.exponent), 1.0)
	}
}

// Normalize tracks the frame peak and rescales bars in place.
func (n *Normalizer) Normalize(bars []float64) {
	n.Track(bars)
	n.Apply(bars)
}

// finiteMax returns the largest finite value in bars, 0 if there is none.
func finiteMax(bars []float64) float64 {
	peak := 0.0
	for _, v := range bars {
		if !math.IsInf(v, 0) && v > peak {
			peak = v
		}
	}
	return peak
}
