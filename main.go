// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/Kitkacy/PunchyAudio/cmd"
	"github.com/Kitkacy/PunchyAudio/internal/analysis"
	"github.com/Kitkacy/PunchyAudio/internal/audio"
	"github.com/Kitkacy/PunchyAudio/internal/config"
	applog "github.com/Kitkacy/PunchyAudio/internal/log"
	"github.com/Kitkacy/PunchyAudio/internal/transport"
	"github.com/Kitkacy/PunchyAudio/internal/transport/udp"
	"github.com/Kitkacy/PunchyAudio/internal/tui"
	"github.com/Kitkacy/PunchyAudio/pkg/build"
	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

// main is the entry point for the spectrum analyzer.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Execute one-off commands (list, analyze)
//
// 2. Concurrent Phase (Hot Path):
//   - Capture callback runs the analyzer and publishes to the latest slot
//   - Publishers and the meter poll the slot on their own tickers
//
// 3. Shutdown Phase (Cold Path):
//   - A signal or quitting the meter cancels the shared context
//   - Stream, publishers and recording are closed in turn
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil {
		applog.Debugf("Build: %v, using development build info", err)
	}

	inv, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if inv.Command == "" {
		return // --help or --version
	}

	cfg := inv.Config
	if err := applog.Configure(cfg.LogLevel, cfg.Debug); err != nil {
		applog.Warnf("Config: %v", err)
	}
	applog.Debugf("Build: %s", build.GetBuildFlags())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch inv.Command {
	case cmd.CommandList:
		err = listDevices(os.Stdout, inv.Interactive)
	case cmd.CommandAnalyze:
		err = analyzeFile(ctx, cfg, inv.File, os.Stdout)
	default:
		err = run(ctx, cfg)
	}
	if err != nil {
		applog.Fatalf("%v", err)
	}
}

// listDevices prints the host devices, or lets the user pick one.
func listDevices(w io.Writer, interactive bool) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	if !interactive {
		return audio.ListDevices(w)
	}

	device, ok, err := tui.PickDevice()
	if err != nil || !ok {
		return err
	}
	fmt.Fprintf(w, "Selected [%d] %s. Run with --device %d to capture from it.\n", device.ID, device.Name, device.ID)
	return nil
}

// newAnalyzer builds the analyzer with sink, adding frame logging in debug
// mode.
func newAnalyzer(cfg *config.Config, sink analysis.Sink) (*analysis.Analyzer, error) {
	ac, err := cfg.Analysis()
	if err != nil {
		return nil, err
	}

	sinks := transport.Fanout{sink}
	if cfg.Debug {
		sinks = append(sinks, transport.NewLoggingSink(nil, 0))
	}
	return analysis.NewAnalyzer(ac, analysis.WithSink(sinks))
}

// analyzeFile streams a file through the analyzer and writes one JSON
// BarMessage per published frame to w.
func analyzeFile(ctx context.Context, cfg *config.Config, path string, w io.Writer) error {
	enc := json.NewEncoder(w)
	var encErr error
	sink := analysis.SinkFunc(func(frame analysis.Frame) {
		if encErr != nil {
			return
		}
		snap := transport.Snapshot{Sequence: frame.Sequence, Timestamp: time.Now(), Bars: frame.Bars}
		encErr = enc.Encode(transport.NewBarMessage(snap))
	})

	analyzer, err := newAnalyzer(cfg, sink)
	if err != nil {
		return err
	}

	source := audio.NewFileSource(path, cfg.Capture.FramesPerBuffer, cfg.Capture.Realtime)
	if err := source.Stream(ctx, analyzer); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	if encErr != nil {
		return eris.Wrap(encErr, "failed to write frame")
	}

	applog.Infof("Analyze: %d frames from '%s'", analyzer.Frames(), path)
	return nil
}

// run captures live input and serves the configured outputs until ctx is
// cancelled or the meter is closed.
func run(ctx context.Context, cfg *config.Config) error {
	// One thread for the audio callback, one for everything else.
	runtime.GOMAXPROCS(2)

	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	latest := transport.NewLatest(cfg.Analyzer.BarCount)
	analyzer, err := newAnalyzer(cfg, latest)
	if err != nil {
		return err
	}

	var (
		opts []audio.EngineOption
		rec  *audio.Recorder
	)
	if cfg.Capture.Record != "" {
		rec, err = audio.NewRecorder(cfg.Capture.Record, int(cfg.Capture.SampleRate), cfg.Capture.FramesPerBuffer)
		if err != nil {
			return err
		}
		opts = append(opts, audio.WithRecorder(rec))
	}

	engine, err := audio.NewEngine(audio.EngineConfig{
		DeviceID:        cfg.Capture.InputDevice,
		SampleRate:      cfg.Capture.SampleRate,
		FramesPerBuffer: cfg.Capture.FramesPerBuffer,
		LowLatency:      cfg.Capture.LowLatency,
	}, opts...)
	if err != nil {
		if rec != nil {
			rec.Close()
		}
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			applog.Errorf("Engine: Error closing: %v", err)
		}
		if cfg.Capture.Record != "" {
			applog.Infof("Recording saved to: %s", cfg.Capture.Record)
		}
	}()

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return engine.Stream(gctx, analyzer)
	})

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			cancel()
			g.Wait()
			return err
		}
		defer sender.Close()

		publisher, err := udp.NewPublisher(cfg.Transport.UDPSendInterval, sender, latest, cfg.Analyzer.BarCount)
		if err != nil {
			cancel()
			g.Wait()
			return err
		}
		g.Go(func() error {
			return publisher.Run(gctx)
		})
	}

	if cfg.Transport.WebSocketEnabled {
		broadcaster := transport.NewWebSocketBroadcaster(cfg.Transport.WebSocketAddress, cfg.Transport.WebSocketSendInterval, latest)
		g.Go(func() error {
			return broadcaster.Run(gctx)
		})
	}

	if cfg.TUI {
		// The meter owns the terminal.
		out := applog.Writer()
		applog.SetOutput(io.Discard)
		g.Go(func() error {
			defer applog.SetOutput(out)
			defer cancel()
			return tui.RunMeter(gctx, latest, cfg.Analyzer.BarCount, 0)
		})
	} else {
		applog.Infof("Running, press Ctrl+C to stop.")
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	return g.Wait()
}
