// SPDX-License-Identifier: MIT
package analysis

import "math"

// Buffer is one capture callback's worth of interleaved samples. The
// analyzer reads it during Process and never retains it.
type Buffer struct {
	Samples  []float32 // Interleaved, Channels samples per frame.
	Channels int
}

// StereoBuffer wraps interleaved stereo samples.
func StereoBuffer(samples []float32) Buffer {
	return Buffer{Samples: samples, Channels: Channels}
}

// Frames returns the number of complete frames in the buffer.
func (b Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Downmix averages the first frames stereo frames of samples into dst and
// zero-fills the remainder of dst. frames is clamped to what both slices
// can hold. Non-finite frames are written as silence. It returns the number
// of frames written.
func Downmix(dst []float64, samples []float32, frames int) int {
	frames = min(frames, len(dst), len(samples)/Channels)
	if frames < 0 {
		frames = 0
	}

	idx := 0
	for i := range frames {
		left := float64(samples[idx])
		right := float64(samples[idx+1])
		mono := (left + right) / 2
		if math.IsInf(mono, 0) || math.IsNaN(mono) {
			mono = 0
		}
		dst[i] = mono
		idx += Channels
	}
	clear(dst[frames:])

	return frames
}
