// SPDX-License-Identifier: MIT
/*
Package analysis turns interleaved stereo capture buffers into fixed-length
vectors of normalized bar magnitudes.

Pipeline per call (all on the caller's goroutine):
- Downmix stereo to mono, zero-padding short buffers
- Optional window, then the FFT engine's magnitude spectrum
- Max-pool bins into bars
- Running-peak normalization with a power-law curve
- Exponential smoothing against the previous frame

Thread Safety:
- An Analyzer is owned by one capture callback and is not safe for
  concurrent use
- All workspaces are sized at construction; Process does not allocate
*/
package analysis

import (
	"github.com/Kitkacy/PunchyAudio/internal/fft"
	"github.com/rotisserie/eris"
)

// State is the analyzer lifecycle state.
type State int

const (
	StateIdle      State = iota // Constructed, no frame published yet.
	StateStreaming              // At least one frame published.
)

// String returns a human-friendly state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// Frame is one published spectrum. Bars holds Config.BarCount values in
// [0, 1] and aliases the analyzer's workspace: it is only valid until the
// next Process call. Use Clone to keep it.
type Frame struct {
	Sequence uint64 // 1-based, increments per published frame.
	Bars     []float64
}

// Clone returns a copy of f that owns its Bars.
func (f Frame) Clone() Frame {
	bars := make([]float64, len(f.Bars))
	copy(bars, f.Bars)
	return Frame{Sequence: f.Sequence, Bars: bars}
}

// Option customises an Analyzer at construction.
type Option func(*Analyzer)

// WithSink publishes every frame to sink as part of Process.
func WithSink(sink Sink) Option {
	return func(a *Analyzer) {
		a.sink = sink
	}
}

// Analyzer owns the per-stream state (running peak, previous bars) and the
// preallocated workspaces, and drives the pipeline stages in order.
type Analyzer struct {
	cfg       Config
	chunkSize int

	engine *fft.Engine
	window []float64 // nil when cfg.Window is WindowNone

	mono []float64 // FrameLength, zero-padded downmix
	mags []float64 // FrameLength/2 magnitudes
	bars []float64 // BarCount working bars

	normalizer *Normalizer
	smoother   *Smoother

	state  State
	frames uint64
	sink   Sink
}

// NewAnalyzer validates cfg and builds an analyzer with its FFT plan and
// workspaces. An invalid configuration is rejected here, never at the first
// Process call.
func NewAnalyzer(cfg Config, opts ...Option) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrap(err, "invalid analyzer configuration")
	}

	engine, err := fft.New(cfg.FrameLength, cfg.Backend)
	if err != nil {
		return nil, eris.Wrap(err, "failed to build fft plan")
	}

	a := &Analyzer{
		cfg:        cfg,
		chunkSize:  cfg.ChunkSize(),
		engine:     engine,
		window:     windowCoefficients(cfg.Window, cfg.FrameLength),
		mono:       make([]float64, cfg.FrameLength),
		mags:       make([]float64, engine.Bins()),
		bars:       make([]float64, 0, cfg.BarCount),
		normalizer: NewNormalizer(cfg.PeakDecayFactor, cfg.PeakFloor, cfg.CompressionExponent),
		smoother:   NewSmoother(cfg.SmoothingWeight, cfg.BarCount),
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Process analyzes one buffer and returns the published frame. It returns
// false, without touching any state, when the buffer holds no complete
// frame. Only the first FrameLength frames are used. It panics if the
// buffer is not stereo.
func (a *Analyzer) Process(buf Buffer) (Frame, bool) {
	if buf.Channels != Channels {
		panic("analysis: buffer must be interleaved stereo")
	}

	frames := min(buf.Frames(), a.cfg.FrameLength)
	if frames == 0 {
		return Frame{}, false
	}

	Downmix(a.mono, buf.Samples, frames)
	if a.window != nil {
		for i := range frames {
			a.mono[i] *= a.window[i]
		}
	}

	mags := a.engine.Magnitudes(a.mags, a.mono)

	// Bars omitted by the bucketizer are published as zeros so every frame
	// keeps BarCount values.
	bars := Bucketize(a.bars, mags, a.cfg.BarCount, a.chunkSize)
	populated := len(bars)
	bars = bars[:a.cfg.BarCount]
	clear(bars[populated:])

	a.normalizer.Normalize(bars)
	a.smoother.Apply(bars)

	a.state = StateStreaming
	a.frames++

	frame := Frame{Sequence: a.frames, Bars: bars}
	if a.sink != nil {
		a.sink.Publish(frame)
	}
	return frame, true
}

// Config returns the configuration the analyzer was built with.
func (a *Analyzer) Config() Config { return a.cfg }

// State returns the lifecycle state.
func (a *Analyzer) State() State { return a.state }

// RunningPeak returns the current normalization denominator.
func (a *Analyzer) RunningPeak() float64 { return a.normalizer.RunningPeak() }

// Frames returns the number of frames published so far.
func (a *Analyzer) Frames() uint64 { return a.frames }

// Previous returns the smoothing baseline (the last published bars). It is
// empty while Idle and aliases internal state.
func (a *Analyzer) Previous() []float64 { return a.smoother.Previous() }

// Engine exposes the FFT engine, e.g. for bin frequency lookups.
func (a *Analyzer) Engine() *fft.Engine { return a.engine }
