// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/Kitkacy/PunchyAudio/internal/analysis"
	"github.com/Kitkacy/PunchyAudio/internal/fft"
	applog "github.com/Kitkacy/PunchyAudio/internal/log"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory when no
// path is given.
const DefaultPath = "config.yaml"

var (
	ErrCapture   = eris.New("invalid capture configuration")
	ErrTransport = eris.New("invalid transport configuration")
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug logging.
	LogLevel  string          `yaml:"log_level"` // Logging level ("debug", "info", "warn", "error").
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`  // Spectrum pipeline settings.
	Capture   CaptureConfig   `yaml:"capture"`   // Audio input settings.
	Transport TransportConfig `yaml:"transport"` // Bar publishing settings.
	TUI       bool            `yaml:"tui"`       // Render the terminal meter.
}

// AnalyzerConfig mirrors analysis.Config with names instead of enums.
type AnalyzerConfig struct {
	FrameLength         int     `yaml:"frame_length"`         // Power of two, samples per channel per call.
	BarCount            int     `yaml:"bar_count"`            // Bars per published frame.
	PeakDecayFactor     float64 `yaml:"peak_decay_factor"`    // Running peak decay per call.
	PeakFloor           float64 `yaml:"peak_floor"`           // Running peak lower bound.
	CompressionExponent float64 `yaml:"compression_exponent"` // Power-law exponent.
	SmoothingWeight     float64 `yaml:"smoothing_weight"`     // Weight of the new frame.
	Window              string  `yaml:"window"`               // Window function name, "none" to disable.
	FFTBackend          string  `yaml:"fft_backend"`          // "radix2" or "gonum".
}

// CaptureConfig holds settings related to audio input.
type CaptureConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per capture callback.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from the device.
	Realtime        bool    `yaml:"realtime"`          // Pace file playback at the file's sample rate.
	Record          string  `yaml:"record,omitempty"`  // Optional WAV file receiving the raw live input.
}

// TransportConfig holds settings related to sending bars over the network.
type TransportConfig struct {
	UDPEnabled            bool          `yaml:"udp_enabled"`             // Enable sending bar packets over UDP.
	UDPTargetAddress      string        `yaml:"udp_target_address"`      // Target address and port for UDP packets.
	UDPSendInterval       time.Duration `yaml:"udp_send_interval"`       // Interval between UDP packets.
	WebSocketEnabled      bool          `yaml:"websocket_enabled"`       // Serve bars over WebSocket.
	WebSocketAddress      string        `yaml:"websocket_address"`       // Listen address for the WebSocket server.
	WebSocketSendInterval time.Duration `yaml:"websocket_send_interval"` // Interval between broadcasts.
}

// Default returns the built-in configuration.
func Default() *Config {
	def := analysis.DefaultConfig()
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Analyzer: AnalyzerConfig{
			FrameLength:         def.FrameLength,
			BarCount:            def.BarCount,
			PeakDecayFactor:     def.PeakDecayFactor,
			PeakFloor:           def.PeakFloor,
			CompressionExponent: def.CompressionExponent,
			SmoothingWeight:     def.SmoothingWeight,
			Window:              def.Window.String(),
			FFTBackend:          def.Backend.String(),
		},
		Capture: CaptureConfig{
			InputDevice:     -1,
			SampleRate:      analysis.NominalSampleRate,
			FramesPerBuffer: analysis.DefaultFrameLength,
			LowLatency:      false,
			Realtime:        true,
		},
		Transport: TransportConfig{
			UDPEnabled:            false,
			UDPTargetAddress:      "127.0.0.1:9090",
			UDPSendInterval:       33 * time.Millisecond, // ~30Hz
			WebSocketEnabled:      false,
			WebSocketAddress:      "127.0.0.1:8080",
			WebSocketSendInterval: 33 * time.Millisecond,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is
// empty, it looks for DefaultPath and falls back to built-in defaults when that
// is missing. Environment overrides are applied after the file, then the
// result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err != nil {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, eris.Wrap(err, "invalid default configuration")
			}
			return cfg, nil
		}
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "failed to read config file")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, eris.Wrap(err, "failed to parse config file")
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrap(err, "invalid configuration")
	}

	return cfg, nil
}

// Analysis converts the analyzer section into an analysis.Config.
func (c *Config) Analysis() (analysis.Config, error) {
	window, err := analysis.ParseWindowFunc(c.Analyzer.Window)
	if err != nil {
		return analysis.Config{}, err
	}
	backend, err := fft.ParseBackend(c.Analyzer.FFTBackend)
	if err != nil {
		return analysis.Config{}, err
	}

	return analysis.Config{
		FrameLength:         c.Analyzer.FrameLength,
		BarCount:            c.Analyzer.BarCount,
		PeakDecayFactor:     c.Analyzer.PeakDecayFactor,
		PeakFloor:           c.Analyzer.PeakFloor,
		CompressionExponent: c.Analyzer.CompressionExponent,
		SmoothingWeight:     c.Analyzer.SmoothingWeight,
		Window:              window,
		Backend:             backend,
	}, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		return eris.Wrapf(applog.ErrLevel, "log_level '%s'", c.LogLevel)
	}

	ac, err := c.Analysis()
	if err != nil {
		return err
	}
	if err := ac.Validate(); err != nil {
		return err
	}

	if !(c.Capture.SampleRate > 0) {
		return eris.Wrapf(ErrCapture, "capture.sample_rate must be positive, got %g", c.Capture.SampleRate)
	}
	if c.Capture.FramesPerBuffer <= 0 {
		return eris.Wrapf(ErrCapture, "capture.frames_per_buffer must be positive, got %d", c.Capture.FramesPerBuffer)
	}

	if c.Transport.UDPEnabled {
		if c.Transport.UDPTargetAddress == "" {
			return eris.Wrap(ErrTransport, "transport.udp_target_address must be set when UDP is enabled")
		}
		if c.Transport.UDPSendInterval <= 0 {
			return eris.Wrap(ErrTransport, "transport.udp_send_interval must be positive when UDP is enabled")
		}
	}
	if c.Transport.WebSocketEnabled {
		if c.Transport.WebSocketAddress == "" {
			return eris.Wrap(ErrTransport, "transport.websocket_address must be set when WebSocket is enabled")
		}
		if c.Transport.WebSocketSendInterval <= 0 {
			return eris.Wrap(ErrTransport, "transport.websocket_send_interval must be positive when WebSocket is enabled")
		}
	}

	return nil
}

// applyEnvOverrides reads the ENV_* variables. Unparseable values are ignored.
func (c *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
			applog.Infof("Config: Overriding debug from env: %v", bVal)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
		applog.Infof("Config: Overriding log_level from env: %s", val)
	}

	// ENV_UDP_{...}
	// These are specific to the transport layer.

	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = bVal
			applog.Infof("Config: Overriding transport.udp_enabled from env: %v", bVal)
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		applog.Infof("Config: Overriding transport.udp_target_address from env: %s", val)
	}
	// ENV_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = dur
			applog.Infof("Config: Overriding transport.udp_send_interval from env: %s", dur)
		}
	}

	// ENV_WS_ENABLED
	if val, ok := os.LookupEnv("ENV_WS_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.WebSocketEnabled = bVal
			applog.Infof("Config: Overriding transport.websocket_enabled from env: %v", bVal)
		}
	}
	// ENV_WS_ADDRESS
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		c.Transport.WebSocketAddress = val
		applog.Infof("Config: Overriding transport.websocket_address from env: %s", val)
	}
}
