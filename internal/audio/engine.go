// SPDX-License-Identifier: MIT
/*
Package audio delivers interleaved stereo float32 buffers to an
analysis.BufferProcessor, either from a live PortAudio input stream or from
a decoded audio file.

Thread Safety:
- Buffers are delivered serially, one Process call at a time
- The live callback uses only the PortAudio-owned slice and preallocated
  state, so it does not allocate
- Stop and restart reuse the same processor, keeping its adaptive state
*/
package audio

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/Kitkacy/PunchyAudio/internal/analysis"
	applog "github.com/Kitkacy/PunchyAudio/internal/log"
	"github.com/gordonklaus/portaudio"
	"github.com/rotisserie/eris"
)

// Source delivers capture buffers to proc until ctx is cancelled or the
// input ends.
type Source interface {
	Stream(ctx context.Context, proc analysis.BufferProcessor) error
}

// ErrNotStereo is returned when the input device has fewer than two input
// channels.
var ErrNotStereo = eris.New("input device is not stereo")

// EngineConfig selects the capture device and stream parameters.
type EngineConfig struct {
	DeviceID        int // DefaultDeviceID for the host default.
	SampleRate      float64
	FramesPerBuffer int
	LowLatency      bool
}

// inputStream is the part of *portaudio.Stream the engine drives.
type inputStream interface {
	Start() error
	Stop() error
	Close() error
}

// Engine captures from a PortAudio input device.
type Engine struct {
	config EngineConfig

	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  inputStream

	processor analysis.BufferProcessor
	recorder  *Recorder // optional tee of the raw input

	callbacks atomic.Uint64
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithRecorder writes every captured buffer to r.
func WithRecorder(r *Recorder) EngineOption {
	return func(e *Engine) {
		e.recorder = r
	}
}

// NewEngine resolves the input device. PortAudio must be initialized.
func NewEngine(config EngineConfig, opts ...EngineOption) (*Engine, error) {
	inputDevice, err := InputDevice(config.DeviceID)
	if err != nil {
		return nil, err
	}
	if inputDevice.MaxInputChannels < analysis.Channels {
		return nil, eris.Wrapf(ErrNotStereo, "%s has %d input channels", inputDevice.Name, inputDevice.MaxInputChannels)
	}

	engine := &Engine{
		config:      config,
		inputDevice: inputDevice,
	}
	if config.LowLatency {
		engine.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		engine.inputLatency = inputDevice.DefaultHighInputLatency
	}
	for _, opt := range opts {
		opt(engine)
	}

	return engine, nil
}

// Stream starts the input stream, delivers buffers to proc until ctx is
// cancelled, then stops the stream. It can be called again with the same
// processor to resume.
func (e *Engine) Stream(ctx context.Context, proc analysis.BufferProcessor) error {
	e.processor = proc
	if err := e.StartInputStream(); err != nil {
		return err
	}
	applog.Infof("Engine: Capturing from '%s' (%.0f Hz, %d frames/buffer, latency %s)",
		e.inputDevice.Name, e.config.SampleRate, e.config.FramesPerBuffer, e.inputLatency)

	<-ctx.Done()

	applog.Infof("Engine: Stopping after %d callbacks", e.Callbacks())
	return e.StopInputStream()
}

// StartInputStream opens and starts the stereo float32 input stream.
func (e *Engine) StartInputStream() error {
	if e.processor == nil {
		return eris.New("engine has no processor")
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: analysis.Channels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: e.config.FramesPerBuffer,
		SampleRate:      e.config.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		return eris.Wrap(err, "failed to open input stream")
	}
	e.inputStream = stream

	if err := e.inputStream.Start(); err != nil {
		e.inputStream.Close()
		e.inputStream = nil
		return eris.Wrap(err, "failed to start input stream")
	}

	return nil
}

// StopInputStream stops and closes the stream if one is open. The stream is
// closed and released even when Stop fails.
func (e *Engine) StopInputStream() error {
	if e.inputStream == nil {
		return nil
	}

	var errs []error
	if err := e.inputStream.Stop(); err != nil {
		errs = append(errs, eris.Wrap(err, "failed to stop input stream"))
	}
	if err := e.inputStream.Close(); err != nil {
		errs = append(errs, eris.Wrap(err, "failed to close input stream"))
	}
	e.inputStream = nil

	return errors.Join(errs...)
}

// processInputStream is the PortAudio callback.
// Performance Critical:
// - in is owned by PortAudio and only valid during the call
// - No dynamic allocations on the analysis path
func (e *Engine) processInputStream(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e.callbacks.Add(1)
	e.processor.Process(analysis.StereoBuffer(in))

	if e.recorder != nil {
		if err := e.recorder.Write(in); err != nil {
			applog.Errorf("Engine: Error writing recording: %v", err)
		}
	}
}

// Callbacks returns the number of buffers delivered so far.
func (e *Engine) Callbacks() uint64 {
	return e.callbacks.Load()
}

// Close stops the stream and finishes any recording. The recording is
// finalised even if stopping the stream fails; both errors are returned.
func (e *Engine) Close() error {
	err := e.StopInputStream()
	if e.recorder != nil {
		err = errors.Join(err, e.recorder.Close())
	}
	return err
}

var _ Source = (*Engine)(nil)
