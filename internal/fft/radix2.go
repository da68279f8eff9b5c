// SPDX-License-Identifier: MIT
package fft

import (
	"math"

	"github.com/Kitkacy/PunchyAudio/pkg/bitint"
)

// radix2Plan holds the tables and split real/imaginary workspace for an
// iterative decimation-in-time transform.
type radix2Plan struct {
	size int
	perm []int     // bit-reversal permutation
	twRe []float64 // cos(2πk/size), k < size/2
	twIm []float64 // -sin(2πk/size), k < size/2
	re   []float64
	im   []float64
}

func newRadix2Plan(size int) *radix2Plan {
	stages := bitint.Log2(size)

	perm := make([]int, size)
	for i := range perm {
		perm[i] = bitint.ReverseBits(i, stages)
	}

	half := size / 2
	twRe := make([]float64, half)
	twIm := make([]float64, half)
	for k := range half {
		theta := 2 * math.Pi * float64(k) / float64(size)
		twRe[k] = math.Cos(theta)
		twIm[k] = -math.Sin(theta)
	}

	return &radix2Plan{
		size: size,
		perm: perm,
		twRe: twRe,
		twIm: twIm,
		re:   make([]float64, size),
		im:   make([]float64, size),
	}
}

func (p *radix2Plan) magnitudes(dst, signal []float64) {
	n := p.size

	// Pack the real signal in bit-reversed order, imaginary part zero.
	clear(p.re)
	clear(p.im)
	if len(signal) > n {
		signal = signal[:n]
	}
	for i, v := range signal {
		p.re[p.perm[i]] = v
	}

	for span := 2; span <= n; span <<= 1 {
		half := span >> 1
		stride := n / span
		for start := 0; start < n; start += span {
			for k := range half {
				wr := p.twRe[k*stride]
				wi := p.twIm[k*stride]
				j := start + k
				l := j + half

				tr := wr*p.re[l] - wi*p.im[l]
				ti := wr*p.im[l] + wi*p.re[l]

				p.re[l] = p.re[j] - tr
				p.im[l] = p.im[j] - ti
				p.re[j] += tr
				p.im[j] += ti
			}
		}
	}

	for k := range dst {
		re, im := p.re[k], p.im[k]
		dst[k] = math.Sqrt(re*re + im*im)
	}
}
