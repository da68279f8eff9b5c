// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Kitkacy/PunchyAudio/internal/analysis"
	applog "github.com/Kitkacy/PunchyAudio/internal/log"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/rotisserie/eris"
)

var (
	ErrFormat   = eris.New("unsupported audio format")
	ErrChannels = eris.New("unsupported channel count")
)

// frameReader decodes into interleaved stereo float32 frames.
type frameReader interface {
	// readFrames fills dst with up to len(dst)/2 frames and returns the
	// number of frames read. It returns io.EOF once the input is exhausted
	// and no frames were read.
	readFrames(dst []float32) (int, error)
	sampleRate() int
}

// FileSource decodes a WAV or MP3 file and delivers it in fixed-size
// buffers, optionally paced at the file's sample rate.
type FileSource struct {
	path            string
	framesPerBuffer int
	realtime        bool
}

// NewFileSource returns a source for path. The format is chosen by
// extension.
func NewFileSource(path string, framesPerBuffer int, realtime bool) *FileSource {
	if framesPerBuffer <= 0 {
		framesPerBuffer = analysis.DefaultFrameLength
	}
	return &FileSource{path: path, framesPerBuffer: framesPerBuffer, realtime: realtime}
}

// Stream decodes the file and calls proc once per buffer. The final buffer
// may be short. It returns nil at end of file and ctx.Err() if cancelled.
func (s *FileSource) Stream(ctx context.Context, proc analysis.BufferProcessor) error {
	f, err := os.Open(s.path)
	if err != nil {
		return eris.Wrapf(err, "failed to open '%s'", s.path)
	}
	defer f.Close()

	reader, err := newFrameReader(f, s.framesPerBuffer)
	if err != nil {
		return eris.Wrapf(err, "failed to decode '%s'", s.path)
	}

	rate := reader.sampleRate()
	if rate != analysis.NominalSampleRate {
		applog.Warnf("FileSource: '%s' is %d Hz, analysis assumes %d Hz", filepath.Base(s.path), rate, analysis.NominalSampleRate)
	}
	applog.Infof("FileSource: Streaming '%s' (%d Hz, %d frames/buffer, realtime: %t)",
		filepath.Base(s.path), rate, s.framesPerBuffer, s.realtime)

	var pace <-chan time.Time
	if s.realtime && rate > 0 {
		period := time.Duration(float64(s.framesPerBuffer) / float64(rate) * float64(time.Second))
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		pace = ticker.C
	}

	buf := make([]float32, s.framesPerBuffer*analysis.Channels)
	buffers := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := reader.readFrames(buf)
		if n > 0 {
			if pace != nil {
				select {
				case <-pace:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			proc.Process(analysis.StereoBuffer(buf[:n*analysis.Channels]))
			buffers++
		}
		if err == io.EOF {
			applog.Infof("FileSource: Finished '%s' after %d buffers", filepath.Base(s.path), buffers)
			return nil
		}
		if err != nil {
			return eris.Wrapf(err, "failed to read '%s'", s.path)
		}
	}
}

func newFrameReader(f *os.File, framesPerBuffer int) (frameReader, error) {
	switch ext := strings.ToLower(filepath.Ext(f.Name())); ext {
	case ".wav":
		return newWAVReader(f, framesPerBuffer)
	case ".mp3":
		return newMP3Reader(f, framesPerBuffer)
	default:
		return nil, eris.Wrapf(ErrFormat, "'%s'", ext)
	}
}

// --- WAV ---

type wavReader struct {
	dec      *wav.Decoder
	channels int
	rate     int
	scale    float32
	pcm      *audio.IntBuffer
}

func newWAVReader(r io.ReadSeeker, framesPerBuffer int) (*wavReader, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, eris.New("invalid WAV file")
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, eris.Wrap(err, "failed to locate WAV PCM data")
	}

	channels := int(dec.NumChans)
	if channels < 1 || channels > analysis.Channels {
		return nil, eris.Wrapf(ErrChannels, "%d channels", channels)
	}
	if dec.BitDepth == 0 {
		return nil, eris.Wrap(ErrFormat, "WAV bit depth is zero")
	}

	return &wavReader{
		dec:      dec,
		channels: channels,
		rate:     int(dec.SampleRate),
		scale:    float32(int64(1) << (dec.BitDepth - 1)),
		pcm: &audio.IntBuffer{
			Format: &audio.Format{NumChannels: channels, SampleRate: int(dec.SampleRate)},
			Data:   make([]int, framesPerBuffer*channels),
		},
	}, nil
}

func (r *wavReader) sampleRate() int { return r.rate }

func (r *wavReader) readFrames(dst []float32) (int, error) {
	want := min(len(dst)/analysis.Channels, len(r.pcm.Data)/r.channels)
	r.pcm.Data = r.pcm.Data[:want*r.channels]

	n, err := r.dec.PCMBuffer(r.pcm)
	if err != nil && err != io.EOF {
		return 0, err
	}
	frames := n / r.channels
	if frames == 0 {
		return 0, io.EOF
	}

	data := r.pcm.Data[:frames*r.channels]
	for i := range frames {
		if r.channels == 1 {
			v := float32(data[i]) / r.scale
			dst[2*i] = v
			dst[2*i+1] = v
		} else {
			dst[2*i] = float32(data[2*i]) / r.scale
			dst[2*i+1] = float32(data[2*i+1]) / r.scale
		}
	}
	return frames, nil
}

// --- MP3 ---

// go-mp3 always decodes to 16-bit little-endian stereo.
const mp3BytesPerFrame = 4

type mp3Reader struct {
	dec *mp3.Decoder
	raw []byte
}

func newMP3Reader(r io.Reader, framesPerBuffer int) (*mp3Reader, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, eris.Wrap(err, "invalid MP3 stream")
	}
	return &mp3Reader{dec: dec, raw: make([]byte, framesPerBuffer*mp3BytesPerFrame)}, nil
}

func (r *mp3Reader) sampleRate() int { return r.dec.SampleRate() }

func (r *mp3Reader) readFrames(dst []float32) (int, error) {
	want := min(len(dst)/analysis.Channels, len(r.raw)/mp3BytesPerFrame)
	raw := r.raw[:want*mp3BytesPerFrame]

	n, err := io.ReadFull(r.dec, raw)
	if err == io.ErrUnexpectedEOF {
		err = nil
	}
	if err != nil && err != io.EOF {
		return 0, err
	}

	frames := n / mp3BytesPerFrame
	if frames == 0 {
		return 0, io.EOF
	}
	for i := range frames * analysis.Channels {
		sample := int16(binary.LittleEndian.Uint16(raw[2*i:]))
		dst[i] = float32(sample) / math.MaxInt16
	}
	return frames, nil
}
