// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"sync"

	"github.com/Kitkacy/PunchyAudio/internal/analysis"
)

// RecordingSink implements analysis.Sink for testing by keeping a copy of
// every published frame.
type RecordingSink struct {
	mu     sync.Mutex
	Frames []analysis.Frame
}

// Publish stores a copy of the frame instead of transmitting it.
func (r *RecordingSink) Publish(frame analysis.Frame) {
	r.mu.Lock()
	r.Frames = append(r.Frames, frame.Clone())
	r.mu.Unlock()
}

// Last returns the most recent frame and false if nothing was published.
func (r *RecordingSink) Last() (analysis.Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Frames) == 0 {
		return analysis.Frame{}, false
	}
	return r.Frames[len(r.Frames)-1], true
}

// Len returns the number of recorded frames.
func (r *RecordingSink) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Frames)
}

// GenerateStereoSine returns frames interleaved stereo samples of a sine at
// frequency with the same signal on both channels.
func GenerateStereoSine(frames int, sampleRate, frequency, amplitude float64) []float32 {
	buffer := make([]float32, frames*analysis.Channels)
	for i := range frames {
		t := float64(i) / sampleRate
		v := float32(amplitude * math.Sin(2*math.Pi*frequency*t))
		buffer[2*i] = v
		buffer[2*i+1] = v
	}
	return buffer
}

// GenerateBinSine returns a stereo sine whose frequency lands exactly on FFT
// bin of a frameLength transform, so all its energy falls in that bin.
func GenerateBinSine(frameLength, bin int, amplitude float64) []float32 {
	return GenerateStereoSine(frameLength, float64(frameLength), float64(bin), amplitude)
}

// GenerateChirp returns a stereo linear sweep from f0 to f1 Hz.
func GenerateChirp(frames int, sampleRate, f0, f1, amplitude float64) []float32 {
	buffer := make([]float32, frames*analysis.Channels)
	duration := float64(frames) / sampleRate
	k := (f1 - f0) / duration
	for i := range frames {
		t := float64(i) / sampleRate
		v := float32(amplitude * math.Sin(2*math.Pi*(f0*t+0.5*k*t*t)))
		buffer[2*i] = v
		buffer[2*i+1] = v
	}
	return buffer
}

// GenerateSilence returns frames interleaved stereo zeros.
func GenerateSilence(frames int) []float32 {
	return make([]float32, frames*analysis.Channels)
}

// FindPeakBin returns the index of the largest value in
// magnitudes[startBin:endBin+1], clamping the range to the slice.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
