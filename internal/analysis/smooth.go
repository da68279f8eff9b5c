// SPDX-License-Identifier: MIT
package analysis

import "golang.org/x/exp/constraints"

// Smoother blends each frame with the previously emitted one. The emitted
// (blended) frame becomes the next baseline, so the effect compounds into an
// exponential moving average.
type Smoother struct {
	weight   float64
	previous []float64
}

// NewSmoother returns a Smoother giving weight to the new frame. capacity
// sizes the baseline buffer so frames up to that length never allocate.
func NewSmoother(weight float64, capacity int) *Smoother {
	return &Smoother{
		weight:   clamp(weight, 0.0, 1.0),
		previous: make([]float64, 0, capacity),
	}
}

// Apply blends bars in place with the baseline when both have the same
// non-zero length, then stores the result as the new baseline. It reports
// whether blending happened; on a length mismatch the bars pass through
// unchanged. Blended values are clamped to [0, 1] to absorb rounding.
func (s *Smoother) Apply(bars []float64) bool {
	blended := len(bars) > 0 && len(bars) == len(s.previous)
	if blended {
		for i, v := range bars {
			mixed := v*s.weight + s.previous[i]*(1-s.weight)
			bars[i] = clamp(mixed, 0.0, 1.0)
		}
	}
	s.previous = append(s.previous[:0], bars...)
	return blended
}

// Previous returns the current baseline. It is empty before the first frame.
func (s *Smoother) Previous() []float64 {
	return s.previous
}

// Reset empties the baseline so the next frame passes through unblended.
func (s *Smoother) Reset() {
	s.previous = s.previous[:0]
}

func clamp[T constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
