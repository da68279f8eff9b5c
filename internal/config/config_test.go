// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Kitkacy/PunchyAudio/internal/analysis"
	"github.com/Kitkacy/PunchyAudio/internal/fft"
	applog "github.com/Kitkacy/PunchyAudio/internal/log"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config, got nil")
	}
	assert.Equal(t, Default(), cfg)
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoadConfig_File(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, `
debug: true
log_level: warn
analyzer:
  bar_count: 64
  window: hann
  fft_backend: gonum
capture:
  input_device: 3
  frames_per_buffer: 512
  record: /tmp/in.wav
transport:
  udp_enabled: true
  udp_send_interval: 50ms
tui: true
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 64, cfg.Analyzer.BarCount)
	assert.Equal(t, analysis.DefaultFrameLength, cfg.Analyzer.FrameLength, "unset keys keep defaults")
	assert.Equal(t, 3, cfg.Capture.InputDevice)
	assert.Equal(t, 512, cfg.Capture.FramesPerBuffer)
	assert.Equal(t, "/tmp/in.wav", cfg.Capture.Record)
	assert.True(t, cfg.Capture.Realtime)
	assert.True(t, cfg.Transport.UDPEnabled)
	assert.Equal(t, 50*time.Millisecond, cfg.Transport.UDPSendInterval)
	assert.Equal(t, "127.0.0.1:9090", cfg.Transport.UDPTargetAddress)
	assert.True(t, cfg.TUI)

	ac, err := cfg.Analysis()
	require.NoError(t, err)
	assert.Equal(t, analysis.Hann, ac.Window)
	assert.Equal(t, fft.Gonum, ac.Backend)
	assert.Equal(t, 64, ac.BarCount)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, "analyzer:\n  frame_length: 1000\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.True(t, eris.Is(err, analysis.ErrFrameLength), "got %v", err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestDefaultMatchesAnalysis(t *testing.T) {
	t.Parallel()
	ac, err := Default().Analysis()
	require.NoError(t, err)
	assert.Equal(t, analysis.DefaultConfig(), ac)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"Defaults", func(*Config) {}, nil},
		{"Bad Log Level", func(c *Config) { c.LogLevel = "loud" }, applog.ErrLevel},
		{"Bad Window", func(c *Config) { c.Analyzer.Window = "kaiser" }, analysis.ErrWindow},
		{"Bad Backend", func(c *Config) { c.Analyzer.FFTBackend = "fftw" }, fft.ErrBackend},
		{"Zero Bars", func(c *Config) { c.Analyzer.BarCount = 0 }, analysis.ErrBarCount},
		{"Decay Above One", func(c *Config) { c.Analyzer.PeakDecayFactor = 1.5 }, analysis.ErrPeakDecay},
		{"Weight Above One", func(c *Config) { c.Analyzer.SmoothingWeight = 2 }, analysis.ErrSmoothingWeight},
		{"Zero Floor", func(c *Config) { c.Analyzer.PeakFloor = 0 }, analysis.ErrPeakFloor},
		{"Zero Sample Rate", func(c *Config) { c.Capture.SampleRate = 0 }, ErrCapture},
		{"Zero Frames Per Buffer", func(c *Config) { c.Capture.FramesPerBuffer = 0 }, ErrCapture},
		{"UDP Without Address", func(c *Config) {
			c.Transport.UDPEnabled = true
			c.Transport.UDPTargetAddress = ""
		}, ErrTransport},
		{"UDP Zero Interval", func(c *Config) {
			c.Transport.UDPEnabled = true
			c.Transport.UDPSendInterval = 0
		}, ErrTransport},
		{"Disabled UDP Ignores Interval", func(c *Config) { c.Transport.UDPSendInterval = 0 }, nil},
		{"WebSocket Without Address", func(c *Config) {
			c.Transport.WebSocketEnabled = true
			c.Transport.WebSocketAddress = ""
		}, ErrTransport},
		{"WebSocket Zero Interval", func(c *Config) {
			c.Transport.WebSocketEnabled = true
			c.Transport.WebSocketSendInterval = -time.Second
		}, ErrTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, eris.Is(err, tt.wantErr), "Validate() = %v, want %v", err, tt.wantErr)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	applog.SetOutput(&strings.Builder{})
	defer applog.SetOutput(os.Stderr)

	t.Setenv("ENV_DEBUG", "true")
	t.Setenv("ENV_LOG_LEVEL", "error")
	t.Setenv("ENV_UDP_ENABLED", "1")
	t.Setenv("ENV_UDP_TARGET_ADDRESS", "10.0.0.2:7000")
	t.Setenv("ENV_UDP_SEND_INTERVAL", "20ms")
	t.Setenv("ENV_WS_ENABLED", "true")
	t.Setenv("ENV_WS_ADDRESS", ":9999")

	path := writeTempConfig(t, "debug: false\nlog_level: info\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.True(t, cfg.Transport.UDPEnabled)
	assert.Equal(t, "10.0.0.2:7000", cfg.Transport.UDPTargetAddress)
	assert.Equal(t, 20*time.Millisecond, cfg.Transport.UDPSendInterval)
	assert.True(t, cfg.Transport.WebSocketEnabled)
	assert.Equal(t, ":9999", cfg.Transport.WebSocketAddress)
}

func TestEnvOverrides_Unparseable(t *testing.T) {
	applog.SetOutput(&strings.Builder{})
	defer applog.SetOutput(os.Stderr)

	t.Setenv("ENV_DEBUG", "maybe")
	t.Setenv("ENV_UDP_SEND_INTERVAL", "soon")

	cfg := Default()
	cfg.applyEnvOverrides()
	assert.False(t, cfg.Debug)
	assert.Equal(t, 33*time.Millisecond, cfg.Transport.UDPSendInterval)
}
