// SPDX-License-Identifier: MIT
package fft

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// gonumPlan wraps a reusable fourier.FFT with preallocated input and
// coefficient buffers.
type gonumPlan struct {
	size   int
	fftObj *fourier.FFT
	input  []float64    // zero-padded copy of the signal
	coeffs []complex128 // size/2 + 1 complex coefficients
}

func newGonumPlan(size int) *gonumPlan {
	return &gonumPlan{
		size:   size,
		fftObj: fourier.NewFFT(size),
		input:  make([]float64, size),
		coeffs: make([]complex128, size/2+1),
	}
}

func (p *gonumPlan) magnitudes(dst, signal []float64) {
	n := copy(p.input, signal)
	clear(p.input[n:])

	p.fftObj.Coefficients(p.coeffs, p.input)
	for k := range dst {
		dst[k] = cmplx.Abs(p.coeffs[k])
	}
}
