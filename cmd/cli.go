// SPDX-License-Identifier: MIT
//
// Package cmd parses the command line into an Invocation: which command to
// run and the configuration it runs with. Configuration is layered as
// built-in defaults, then the YAML file, then ENV_* overrides, then flags
// that were set explicitly.
package cmd

import (
	"github.com/Kitkacy/PunchyAudio/internal/config"
	"github.com/Kitkacy/PunchyAudio/pkg/build"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

// Commands selected by ParseArgs.
const (
	CommandRun     = "run"
	CommandList    = "list"
	CommandAnalyze = "analyze"
)

// Invocation is the parsed command line. Command is empty when cobra
// handled the request itself (--help, --version).
type Invocation struct {
	Command     string
	File        string // Input file for analyze.
	Interactive bool   // list: pick a device in the terminal.
	Config      *config.Config
}

type flagValues struct {
	configPath      string
	device          int
	framesPerBuffer int
	bars            int
	logLevel        string
	verbose         bool
	tui             bool
	udp             string
	ws              string
	record          string
	lowLatency      bool
	window          string
	backend         string
	realtime        bool
}

// ParseArgs parses args (without the program name).
func ParseArgs(args []string) (*Invocation, error) {
	buildInfo := build.GetBuildFlags()
	flags := &flagValues{}
	inv := &Invocation{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			inv.Command = CommandRun
			return inv.resolve(cmd, flags)
		},
	}
	rootCmd.SetVersionTemplate(buildInfo.String() + "\n")

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio input devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv.Command = CommandList
			return inv.resolve(cmd, flags)
		},
	}
	listCmd.Flags().BoolVarP(&inv.Interactive, "interactive", "i", false,
		"Pick a stereo input device in the terminal")
	rootCmd.AddCommand(listCmd)

	// Analyze command
	analyzeCmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze a WAV or MP3 file and print one JSON line per frame",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv.Command = CommandAnalyze
			inv.File = args[0]
			return inv.resolve(cmd, flags)
		},
	}
	analyzeCmd.Flags().BoolVar(&flags.realtime, "realtime", false,
		"Pace the file at its sample rate instead of as fast as possible")
	rootCmd.AddCommand(analyzeCmd)

	pf := rootCmd.PersistentFlags()

	// Configuration file
	pf.StringVarP(&flags.configPath, "config", "f", "",
		"Path to a YAML config file (default ./"+config.DefaultPath+" if present)")

	// Audio Device Configuration
	pf.IntVarP(&flags.device, "device", "d", -1,
		"Specify input device ID. Use 'list' command to see available devices.")
	pf.IntVarP(&flags.framesPerBuffer, "frames-per-buffer", "b", 0,
		"The number of frames per buffer (affects latency)")
	pf.BoolVarP(&flags.lowLatency, "low-latency", "l", false,
		"Use low latency mode for real-time processing")
	pf.StringVarP(&flags.record, "record", "r", "",
		"Record the raw live input to this WAV file")

	// Analysis Configuration
	pf.IntVarP(&flags.bars, "bars", "n", 0, "Number of bars per frame")
	pf.StringVar(&flags.window, "window", "", "Analysis window (none, hann, hamming, blackman, ...)")
	pf.StringVar(&flags.backend, "fft-backend", "", "FFT implementation (radix2, gonum)")

	// Outputs
	pf.BoolVar(&flags.tui, "tui", false, "Show the terminal bar meter")
	pf.StringVar(&flags.udp, "udp", "", "Send bar packets over UDP to this address")
	pf.StringVar(&flags.ws, "ws", "", "Serve bars over WebSocket on this address")

	// Debug Configuration
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Show verbose output")

	// Execute the CLI
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return inv, nil
}

// resolve loads the configuration and applies explicitly set flags on top.
func (inv *Invocation) resolve(cmd *cobra.Command, flags *flagValues) error {
	cfg, err := config.LoadConfig(flags.configPath)
	if err != nil {
		return err
	}

	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if changed("device") {
		cfg.Capture.InputDevice = flags.device
	}
	if changed("frames-per-buffer") {
		cfg.Capture.FramesPerBuffer = flags.framesPerBuffer
	}
	if changed("low-latency") {
		cfg.Capture.LowLatency = flags.lowLatency
	}
	if changed("record") {
		cfg.Capture.Record = flags.record
	}
	if changed("bars") {
		cfg.Analyzer.BarCount = flags.bars
	}
	if changed("window") {
		cfg.Analyzer.Window = flags.window
	}
	if changed("fft-backend") {
		cfg.Analyzer.FFTBackend = flags.backend
	}
	if changed("tui") {
		cfg.TUI = flags.tui
	}
	if changed("udp") {
		cfg.Transport.UDPEnabled = flags.udp != ""
		cfg.Transport.UDPTargetAddress = flags.udp
	}
	if changed("ws") {
		cfg.Transport.WebSocketEnabled = flags.ws != ""
		cfg.Transport.WebSocketAddress = flags.ws
	}
	if changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if changed("verbose") {
		cfg.Debug = flags.verbose
	}
	if changed("realtime") {
		cfg.Capture.Realtime = flags.realtime
	} else if inv.Command == CommandAnalyze {
		// Files are analyzed as fast as possible unless asked otherwise.
		cfg.Capture.Realtime = false
	}

	if err := cfg.Validate(); err != nil {
		return eris.Wrap(err, "invalid flags")
	}

	inv.Config = cfg
	return nil
}
