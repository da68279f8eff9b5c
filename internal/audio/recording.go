// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"os"
	"sync"

	"github.com/Kitkacy/PunchyAudio/internal/analysis"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rotisserie/eris"
)

// RecordingBitDepth is the PCM depth of recorded WAV files.
const RecordingBitDepth = 16

// Recorder writes interleaved stereo float32 buffers to a 16-bit PCM WAV
// file. The sample buffer is sized for framesPerBuffer and grows only if a
// longer buffer arrives.
type Recorder struct {
	mu        sync.Mutex
	file      *os.File
	encoder   *wav.Encoder
	sampleBuf *audio.IntBuffer
	frames    int
	closed    bool
}

// NewRecorder creates filename and prepares the encoder.
func NewRecorder(filename string, sampleRate, framesPerBuffer int) (*Recorder, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to create recording '%s'", filename)
	}

	const pcmFormat = 1
	return &Recorder{
		file:    file,
		encoder: wav.NewEncoder(file, sampleRate, RecordingBitDepth, analysis.Channels, pcmFormat),
		sampleBuf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: analysis.Channels,
				SampleRate:  sampleRate,
			},
			SourceBitDepth: RecordingBitDepth,
			Data:           make([]int, framesPerBuffer*analysis.Channels),
		},
	}, nil
}

// Write appends samples, clipped to [-1, 1], to the file.
func (r *Recorder) Write(samples []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return eris.New("recorder is closed")
	}

	if cap(r.sampleBuf.Data) < len(samples) {
		r.sampleBuf.Data = make([]int, len(samples))
	}
	data := r.sampleBuf.Data[:len(samples)]
	for i, s := range samples {
		v := math.Max(-1, math.Min(1, float64(s)))
		data[i] = int(math.Round(v * math.MaxInt16))
	}
	r.sampleBuf.Data = data

	if err := r.encoder.Write(r.sampleBuf); err != nil {
		return eris.Wrap(err, "failed to encode samples")
	}
	r.frames += len(samples) / analysis.Channels
	return nil
}

// Frames returns the number of stereo frames written.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Close finalises the WAV header and closes the file. It is safe to call
// more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.encoder.Close(); err != nil {
		r.file.Close()
		return eris.Wrap(err, "failed to finalise recording")
	}
	if err := r.file.Close(); err != nil {
		return eris.Wrap(err, "failed to close recording")
	}
	return nil
}
