// SPDX-License-Identifier: MIT
package analysis_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/Kitkacy/PunchyAudio/internal/analysis"
	"github.com/Kitkacy/PunchyAudio/internal/fft"
	"github.com/Kitkacy/PunchyAudio/pkg/utils"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBin = 37 // 37 / chunk 17 lands in bar 2
	testBar = 2
)

func newTestAnalyzer(t *testing.T, cfg analysis.Config, opts ...analysis.Option) *analysis.Analyzer {
	t.Helper()
	a, err := analysis.NewAnalyzer(cfg, opts...)
	require.NoError(t, err)
	return a
}

func process(t *testing.T, a *analysis.Analyzer, samples []float32) analysis.Frame {
	t.Helper()
	frame, ok := a.Process(analysis.StereoBuffer(samples))
	require.True(t, ok, "expected a published frame")
	return frame.Clone()
}

func assertUnitRange(t *testing.T, bars []float64) {
	t.Helper()
	for i, v := range bars {
		if !(v >= 0 && v <= 1) {
			t.Fatalf("bar %d = %v outside [0, 1]", i, v)
		}
	}
}

func TestNewAnalyzerRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *analysis.Config)
		wantErr error
	}{
		{"Frame Length", func(c *analysis.Config) { c.FrameLength = 1000 }, analysis.ErrFrameLength},
		{"Bar Count", func(c *analysis.Config) { c.BarCount = 0 }, analysis.ErrBarCount},
		{"Decay", func(c *analysis.Config) { c.PeakDecayFactor = 2 }, analysis.ErrPeakDecay},
		{"Backend", func(c *analysis.Config) { c.Backend = fft.Backend(9) }, fft.ErrBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := analysis.DefaultConfig()
			tt.mutate(&cfg)

			a, err := analysis.NewAnalyzer(cfg)
			assert.Nil(t, a)
			assert.True(t, eris.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestAnalyzerInitialState(t *testing.T) {
	a := newTestAnalyzer(t, analysis.DefaultConfig())

	assert.Equal(t, analysis.StateIdle, a.State())
	assert.Equal(t, "idle", a.State().String())
	assert.Equal(t, analysis.InitialRunningPeak, a.RunningPeak())
	assert.Zero(t, a.Frames())
	assert.Empty(t, a.Previous())
	assert.Equal(t, analysis.DefaultConfig(), a.Config())
	assert.Equal(t, analysis.DefaultFrameLength, a.Engine().Size())
}

func TestAnalyzerSingleBinSine(t *testing.T) {
	cfg := analysis.DefaultConfig()
	a := newTestAnalyzer(t, cfg)

	samples := utils.GenerateBinSine(cfg.FrameLength, testBin, 0.5)

	// Raw magnitudes: exactly one bucket stands out before normalization.
	mono := make([]float64, cfg.FrameLength)
	analysis.Downmix(mono, samples, cfg.FrameLength)
	raw := a.Engine().Magnitudes(nil, mono)
	rawBars := analysis.Bucketize(nil, raw, cfg.BarCount, cfg.ChunkSize())
	assert.Equal(t, testBar, utils.FindPeakBin(rawBars, 0, len(rawBars)-1))
	for i, v := range rawBars {
		if i != testBar {
			assert.Less(t, v*1000, rawBars[testBar], "raw bar %d", i)
		}
	}

	frame := process(t, a, samples)
	require.Len(t, frame.Bars, cfg.BarCount)
	assertUnitRange(t, frame.Bars)

	assert.Equal(t, 1.0, frame.Bars[testBar])
	for i, v := range frame.Bars {
		if i != testBar {
			assert.Less(t, v, frame.Bars[testBar], "bar %d", i)
			assert.Less(t, v, 0.1, "bar %d", i)
		}
	}

	// A bin-aligned sine of amplitude A has magnitude A*N/2.
	assert.InDelta(t, 0.5*float64(cfg.FrameLength)/2, a.RunningPeak(), 1e-3)
	assert.Equal(t, analysis.StateStreaming, a.State())
	assert.Equal(t, uint64(1), frame.Sequence)
}

func TestAnalyzerFirstFrameUnblended(t *testing.T) {
	cfg := analysis.DefaultConfig()
	cfg.Backend = fft.Gonum
	a := newTestAnalyzer(t, cfg)

	samples := utils.GenerateChirp(cfg.FrameLength, analysis.NominalSampleRate, 50, 18000, 0.8)

	// Reproduce the normalizer's raw output by hand.
	mono := make([]float64, cfg.FrameLength)
	analysis.Downmix(mono, samples, cfg.FrameLength)
	raw := a.Engine().Magnitudes(nil, mono)
	want := analysis.Bucketize(nil, raw, cfg.BarCount, cfg.ChunkSize())
	analysis.NewNormalizer(cfg.PeakDecayFactor, cfg.PeakFloor, cfg.CompressionExponent).Normalize(want)

	frame := process(t, a, samples)
	assert.InDeltaSlice(t, want, frame.Bars, 1e-12)
	assert.Equal(t, frame.Bars, a.Previous())
}

func TestAnalyzerLoudThenSilentDecaysSmoothly(t *testing.T) {
	cfg := analysis.DefaultConfig()
	a := newTestAnalyzer(t, cfg)

	loud := utils.GenerateBinSine(cfg.FrameLength, testBin, 0.5)
	silent := utils.GenerateSilence(cfg.FrameLength)

	first := process(t, a, loud)
	peak := a.RunningPeak()
	second := process(t, a, silent)
	assert.InDelta(t, peak*cfg.PeakDecayFactor, a.RunningPeak(), 1e-9*peak)
	third := process(t, a, silent)

	assert.Equal(t, 1.0, first.Bars[testBar])
	assert.InDelta(t, 1-cfg.SmoothingWeight, second.Bars[testBar], 1e-9)
	assert.InDelta(t, math.Pow(1-cfg.SmoothingWeight, 2), third.Bars[testBar], 1e-9)
	assert.Greater(t, second.Bars[testBar], 0.0)
}

func TestAnalyzerSilenceConverges(t *testing.T) {
	cfg := analysis.DefaultConfig()
	a := newTestAnalyzer(t, cfg)

	process(t, a, utils.GenerateChirp(cfg.FrameLength, analysis.NominalSampleRate, 100, 10000, 1))

	silent := utils.GenerateSilence(cfg.FrameLength)
	var last analysis.Frame
	for range 200 {
		last = process(t, a, silent)
		assert.GreaterOrEqual(t, a.RunningPeak(), cfg.PeakFloor)
	}
	for i, v := range last.Bars {
		assert.InDelta(t, 0, v, 1e-9, "bar %d", i)
	}

	// Silence from the start publishes zeros immediately.
	b := newTestAnalyzer(t, cfg)
	frame := process(t, b, silent)
	assert.Equal(t, make([]float64, cfg.BarCount), frame.Bars)
}

func TestAnalyzerRecoversFromNonFiniteSample(t *testing.T) {
	cfg := analysis.DefaultConfig()
	a := newTestAnalyzer(t, cfg)

	bad := utils.GenerateBinSine(cfg.FrameLength, testBin, 0.5)
	bad[0] = float32(math.Inf(1))
	bad[3] = float32(math.NaN())

	frame := process(t, a, bad)
	assertUnitRange(t, frame.Bars)
	require.False(t, math.IsInf(a.RunningPeak(), 0) || math.IsNaN(a.RunningPeak()))

	clean := utils.GenerateBinSine(cfg.FrameLength, testBin, 0.5)
	for range 50 {
		frame = process(t, a, clean)
		assertUnitRange(t, frame.Bars)
	}
	assert.InDelta(t, 1.0, frame.Bars[testBar], 1e-3)
	assert.InDelta(t, 0.5*float64(cfg.FrameLength)/2, a.RunningPeak(), 1)
}

func TestAnalyzerZeroFramesIsNoOp(t *testing.T) {
	sink := &utils.RecordingSink{}
	a := newTestAnalyzer(t, analysis.DefaultConfig(), analysis.WithSink(sink))

	_, ok := a.Process(analysis.StereoBuffer(nil))
	assert.False(t, ok)
	assert.Equal(t, analysis.StateIdle, a.State())
	assert.Zero(t, sink.Len())

	published := process(t, a, utils.GenerateBinSine(analysis.DefaultFrameLength, testBin, 0.5))
	peak := a.RunningPeak()

	// A lone trailing sample is not a complete frame.
	for _, samples := range [][]float32{{}, {0.5}} {
		frame, ok := a.Process(analysis.StereoBuffer(samples))
		assert.False(t, ok)
		assert.Empty(t, frame.Bars)
	}

	assert.Equal(t, analysis.StateStreaming, a.State())
	assert.Equal(t, uint64(1), a.Frames())
	assert.Equal(t, peak, a.RunningPeak())
	assert.Equal(t, published.Bars, a.Previous())

	last, ok := sink.Last()
	require.True(t, ok)
	assert.Equal(t, published, last)
	assert.Equal(t, 1, sink.Len())
}

func TestAnalyzerPanicsOnNonStereo(t *testing.T) {
	a := newTestAnalyzer(t, analysis.DefaultConfig())
	assert.Panics(t, func() {
		a.Process(analysis.Buffer{Samples: make([]float32, 16), Channels: 1})
	})
}

func TestAnalyzerShortAndLongBuffers(t *testing.T) {
	cfg := analysis.DefaultConfig()

	t.Run("Short Buffer Zero Padded", func(t *testing.T) {
		a := newTestAnalyzer(t, cfg)
		frame := process(t, a, utils.GenerateStereoSine(100, analysis.NominalSampleRate, 1000, 0.5))
		assert.Len(t, frame.Bars, cfg.BarCount)
		assertUnitRange(t, frame.Bars)
	})

	t.Run("Extra Frames Ignored", func(t *testing.T) {
		head := utils.GenerateBinSine(cfg.FrameLength, testBin, 0.5)
		long := append(append([]float32{}, head...), utils.GenerateBinSine(cfg.FrameLength, 200, 0.9)...)

		a := newTestAnalyzer(t, cfg)
		b := newTestAnalyzer(t, cfg)
		assert.Equal(t, process(t, a, head).Bars, process(t, b, long).Bars)
	})
}

func TestAnalyzerMoreBarsThanBins(t *testing.T) {
	cfg := analysis.DefaultConfig()
	cfg.FrameLength = 8
	cfg.BarCount = 10
	a := newTestAnalyzer(t, cfg)

	samples := utils.GenerateBinSine(cfg.FrameLength, 1, 1)
	for range 3 {
		frame := process(t, a, samples)
		require.Len(t, frame.Bars, cfg.BarCount)
		assertUnitRange(t, frame.Bars)
		for i := cfg.Bins(); i < cfg.BarCount; i++ {
			assert.Zero(t, frame.Bars[i], "padded bar %d", i)
		}
	}
	assert.Len(t, a.Previous(), cfg.BarCount)
}

func TestAnalyzerUnitRangeProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	configs := []analysis.Config{analysis.DefaultConfig()}
	for _, mutate := range []func(c *analysis.Config){
		func(c *analysis.Config) { c.FrameLength = 256; c.BarCount = 8 },
		func(c *analysis.Config) { c.FrameLength = 64; c.BarCount = 64; c.CompressionExponent = 2 },
		func(c *analysis.Config) { c.PeakDecayFactor = 0.5; c.SmoothingWeight = 1 },
		func(c *analysis.Config) { c.SmoothingWeight = 0; c.Window = analysis.Hann },
		func(c *analysis.Config) { c.Backend = fft.Gonum; c.PeakFloor = 10 },
	} {
		cfg := analysis.DefaultConfig()
		mutate(&cfg)
		configs = append(configs, cfg)
	}

	for _, cfg := range configs {
		a := newTestAnalyzer(t, cfg)
		for i := range 50 {
			frames := cfg.FrameLength
			if i%5 == 0 {
				frames = rng.Intn(cfg.FrameLength) + 1
			}
			gain := math.Pow(10, float64(rng.Intn(7)-3))
			samples := make([]float32, 2*frames)
			for j := range samples {
				samples[j] = float32((rng.Float64()*2 - 1) * gain)
			}

			before := a.RunningPeak()
			frame := process(t, a, samples)
			require.Len(t, frame.Bars, cfg.BarCount)
			assertUnitRange(t, frame.Bars)
			assert.GreaterOrEqual(t, a.RunningPeak(), cfg.PeakFloor)
			assert.Equal(t, uint64(i+1), frame.Sequence)
			if a.RunningPeak() < before {
				assert.InDelta(t, math.Max(before*cfg.PeakDecayFactor, cfg.PeakFloor), a.RunningPeak(), 1e-12*before)
			}
		}
	}
}

func TestAnalyzerDeterminism(t *testing.T) {
	cfg := analysis.DefaultConfig()
	inputs := [][]float32{
		utils.GenerateBinSine(cfg.FrameLength, testBin, 0.5),
		utils.GenerateChirp(cfg.FrameLength, analysis.NominalSampleRate, 20, 20000, 0.3),
		utils.GenerateSilence(cfg.FrameLength / 2),
		utils.GenerateStereoSine(cfg.FrameLength, analysis.NominalSampleRate, 3000, 0.9),
	}

	a := newTestAnalyzer(t, cfg)
	b := newTestAnalyzer(t, cfg)
	for _, in := range inputs {
		assert.Equal(t, process(t, a, in), process(t, b, in))
	}
}

func TestAnalyzerBackendsAgree(t *testing.T) {
	cfg := analysis.DefaultConfig()
	radix := newTestAnalyzer(t, cfg)
	cfg.Backend = fft.Gonum
	gonum := newTestAnalyzer(t, cfg)

	samples := utils.GenerateChirp(cfg.FrameLength, analysis.NominalSampleRate, 20, 20000, 0.5)
	for range 3 {
		assert.InDeltaSlice(t, process(t, radix, samples).Bars, process(t, gonum, samples).Bars, 1e-6)
	}
}

func TestAnalyzerWindowKeepsTopBar(t *testing.T) {
	cfg := analysis.DefaultConfig()
	cfg.Window = analysis.Hann
	a := newTestAnalyzer(t, cfg)

	frame := process(t, a, utils.GenerateBinSine(cfg.FrameLength, testBin, 0.5))
	assert.Equal(t, testBar, utils.FindPeakBin(frame.Bars, 0, len(frame.Bars)-1))
}

func TestAnalyzerSinkReceivesEveryFrame(t *testing.T) {
	sink := &utils.RecordingSink{}
	a := newTestAnalyzer(t, analysis.DefaultConfig(), analysis.WithSink(sink))

	var returned []analysis.Frame
	for i := range 5 {
		samples := utils.GenerateBinSine(analysis.DefaultFrameLength, 10+i*40, 0.5)
		returned = append(returned, process(t, a, samples))
	}

	require.Equal(t, 5, sink.Len())
	assert.Equal(t, returned, sink.Frames)
	assert.Equal(t, uint64(5), a.Frames())
}

func TestFrameClone(t *testing.T) {
	f := analysis.Frame{Sequence: 3, Bars: []float64{0.1, 0.2}}
	c := f.Clone()
	f.Bars[0] = 1

	assert.Equal(t, uint64(3), c.Sequence)
	assert.Equal(t, 0.1, c.Bars[0])
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", analysis.StateIdle.String())
	assert.Equal(t, "streaming", analysis.StateStreaming.String())
	assert.Equal(t, "unknown", analysis.State(7).String())
}

func TestAnalyzerProcessNoAlloc(t *testing.T) {
	var published uint64
	sink := analysis.SinkFunc(func(frame analysis.Frame) {
		published = frame.Sequence
	})

	for _, backend := range []fft.Backend{fft.Radix2, fft.Gonum} {
		t.Run(backend.String(), func(t *testing.T) {
			cfg := analysis.DefaultConfig()
			cfg.Backend = backend
			cfg.Window = analysis.Hann
			a := newTestAnalyzer(t, cfg, analysis.WithSink(sink))

			buf := analysis.StereoBuffer(utils.GenerateBinSine(cfg.FrameLength, testBin, 0.5))
			a.Process(buf)

			allocs := testing.AllocsPerRun(100, func() {
				a.Process(buf)
			})
			if allocs > 0 {
				t.Errorf("Process allocated memory: got %.1f allocs, want 0", allocs)
			}
			assert.Equal(t, a.Frames(), published)
		})
	}
}

func BenchmarkAnalyzerProcess(b *testing.B) {
	for _, backend := range []fft.Backend{fft.Radix2, fft.Gonum} {
		b.Run(backend.String(), func(b *testing.B) {
			cfg := analysis.DefaultConfig()
			cfg.Backend = backend
			a, err := analysis.NewAnalyzer(cfg)
			if err != nil {
				b.Fatal(err)
			}
			buf := analysis.StereoBuffer(utils.GenerateChirp(cfg.FrameLength, analysis.NominalSampleRate, 20, 20000, 0.5))

			b.ReportAllocs()
			b.ResetTimer()

			for b.Loop() {
				a.Process(buf)
			}
		})
	}
}
