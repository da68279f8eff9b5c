// SPDX-License-Identifier: MIT
package analysis

import (
	"github.com/Kitkacy/PunchyAudio/internal/fft"
	"github.com/Kitkacy/PunchyAudio/pkg/bitint"
	"github.com/rotisserie/eris"
)

// Fixed input format and defaults for the spectrum pipeline.
const (
	Channels          = 2     // Interleaved stereo only
	NominalSampleRate = 44100 // Hz

	DefaultFrameLength         = 1024   // Samples per channel per call
	DefaultBarCount            = 30     // Published bars per frame
	DefaultPeakDecayFactor     = 0.998  // Per-callback running peak decay
	DefaultPeakFloor           = 0.0001 // Running peak lower bound
	DefaultCompressionExponent = 0.35   // Power-law exponent
	DefaultSmoothingWeight     = 0.6    // Weight of the new frame in the blend

	// InitialRunningPeak seeds the running peak before the first frame.
	InitialRunningPeak = 0.001
)

// Validation errors. NewAnalyzer wraps one of these when a Config is rejected.
var (
	ErrFrameLength     = eris.New("frame length must be a power of 2")
	ErrBarCount        = eris.New("bar count must be positive")
	ErrPeakDecay       = eris.New("peak decay factor must be in (0, 1]")
	ErrPeakFloor       = eris.New("peak floor must be positive")
	ErrCompression     = eris.New("compression exponent must be positive")
	ErrSmoothingWeight = eris.New("smoothing weight must be in [0, 1]")
)

// Config is the immutable analyzer configuration. It is copied into the
// Analyzer at construction and cannot change afterwards.
type Config struct {
	FrameLength         int         // Power of two, samples per channel processed per call.
	BarCount            int         // Number of bars per published frame.
	PeakDecayFactor     float64     // Applied once per call when the frame peak is below the running peak.
	PeakFloor           float64     // Minimum running peak.
	CompressionExponent float64     // Exponent of the perceptual power law.
	SmoothingWeight     float64     // Weight of the new frame in the temporal blend.
	Window              WindowFunc  // Optional analysis window, WindowNone by default.
	Backend             fft.Backend // Transform implementation.
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		FrameLength:         DefaultFrameLength,
		BarCount:            DefaultBarCount,
		PeakDecayFactor:     DefaultPeakDecayFactor,
		PeakFloor:           DefaultPeakFloor,
		CompressionExponent: DefaultCompressionExponent,
		SmoothingWeight:     DefaultSmoothingWeight,
		Window:              WindowNone,
		Backend:             fft.Radix2,
	}
}

// Validate reports the first invalid field. The comparisons are written so
// that NaN fails every range check.
func (c Config) Validate() error {
	if !bitint.IsPowerOfTwo(c.FrameLength) {
		return eris.Wrapf(ErrFrameLength, "got %d", c.FrameLength)
	}
	if c.BarCount <= 0 {
		return eris.Wrapf(ErrBarCount, "got %d", c.BarCount)
	}
	if !(c.PeakDecayFactor > 0 && c.PeakDecayFactor <= 1) {
		return eris.Wrapf(ErrPeakDecay, "got %g", c.PeakDecayFactor)
	}
	if !(c.PeakFloor > 0) {
		return eris.Wrapf(ErrPeakFloor, "got %g", c.PeakFloor)
	}
	if !(c.CompressionExponent > 0) {
		return eris.Wrapf(ErrCompression, "got %g", c.CompressionExponent)
	}
	if !(c.SmoothingWeight >= 0 && c.SmoothingWeight <= 1) {
		return eris.Wrapf(ErrSmoothingWeight, "got %g", c.SmoothingWeight)
	}
	if _, err := windowName(c.Window); err != nil {
		return err
	}
	return nil
}

// Bins returns the number of magnitude bins per frame.
func (c Config) Bins() int {
	return c.FrameLength / 2
}

// ChunkSize returns the number of bins pooled into each bar.
func (c Config) ChunkSize() int {
	return ChunkSize(c.Bins(), c.BarCount)
}
