// SPDX-License-Identifier: MIT
package fft

import (
	"strings"

	"github.com/Kitkacy/PunchyAudio/pkg/bitint"
	"github.com/rotisserie/eris"
)

// Backend selects the transform implementation behind an Engine.
type Backend int

const (
	Radix2 Backend = iota // In-place iterative Cooley-Tukey with precomputed tables.
	Gonum                 // gonum dsp/fourier real transform.
)

var (
	ErrSize    = eris.New("fft size must be a power of 2")
	ErrBackend = eris.New("unknown fft backend")
)

// String returns the configuration name of the backend.
func (b Backend) String() string {
	switch b {
	case Radix2:
		return "radix2"
	case Gonum:
		return "gonum"
	default:
		return "unknown"
	}
}

// ParseBackend converts a name (case-insensitive) to a Backend. It returns
// Radix2 and an error if the name is unknown.
func ParseBackend(name string) (Backend, error) {
	switch strings.ToLower(name) {
	case "", "radix2", "radix-2":
		return Radix2, nil
	case "gonum", "fourier":
		return Gonum, nil
	default:
		return Radix2, eris.Wrapf(ErrBackend, "'%s'", name)
	}
}

// plan is a transform bound to one size. Implementations own every buffer
// they touch so that magnitudes never allocates.
type plan interface {
	// magnitudes reads up to size samples from signal (zero-padding the
	// rest) and writes size/2 magnitudes into dst.
	magnitudes(dst, signal []float64)
}

// Engine computes per-bin magnitudes of a fixed-size real signal. The plan
// is built once by New and reused for every call. An Engine is not safe for
// concurrent use; each analyzer owns its own.
type Engine struct {
	size    int
	backend Backend
	plan    plan
}

// New builds an Engine for size-point transforms. size must be a power of
// two.
func New(size int, backend Backend) (*Engine, error) {
	if !bitint.IsPowerOfTwo(size) {
		return nil, eris.Wrapf(ErrSize, "got %d", size)
	}

	var p plan
	switch backend {
	case Radix2:
		p = newRadix2Plan(size)
	case Gonum:
		p = newGonumPlan(size)
	default:
		return nil, eris.Wrapf(ErrBackend, "%d", backend)
	}

	return &Engine{size: size, backend: backend, plan: p}, nil
}

// Size returns the transform length.
func (e *Engine) Size() int { return e.size }

// Bins returns the number of positive-frequency magnitudes produced per call.
func (e *Engine) Bins() int { return e.size / 2 }

// Backend returns the backend the plan was built with.
func (e *Engine) Backend() Backend { return e.backend }

// Magnitudes transforms signal and writes sqrt(re^2 + im^2) for the first
// Size()/2 bins into dst, returning dst[:Bins()]. A signal shorter than
// Size() is zero-padded, samples beyond Size() are ignored. A new slice is
// allocated only when dst has less than Bins() capacity.
func (e *Engine) Magnitudes(dst, signal []float64) []float64 {
	if cap(dst) < e.Bins() {
		dst = make([]float64, e.Bins())
	}
	dst = dst[:e.Bins()]
	e.plan.magnitudes(dst, signal)
	return dst
}

// Frequency returns the centre frequency (Hz) of a bin for the given sample
// rate, or 0 for bins outside [0, Bins()].
func (e *Engine) Frequency(bin int, sampleRate float64) float64 {
	if bin < 0 || bin > e.Bins() {
		return 0
	}
	return float64(bin) * sampleRate / float64(e.size)
}
