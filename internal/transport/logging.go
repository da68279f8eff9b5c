// SPDX-License-Identifier: MIT
package transport

import (
	"github.com/Kitkacy/PunchyAudio/internal/analysis"
	applog "github.com/Kitkacy/PunchyAudio/internal/log"
)

// LoggingSink forwards every frame to next and, at DEBUG level, logs the
// dominant bar of every Nth frame. It is a diagnostics aid; the log call
// formats a string, so leave it out of latency-sensitive setups.
type LoggingSink struct {
	next  analysis.Sink
	every uint64
	count uint64
}

// NewLoggingSink wraps next (which may be nil). every <= 0 selects 30,
// roughly once a second at 1024-frame callbacks.
func NewLoggingSink(next analysis.Sink, every int) *LoggingSink {
	if every <= 0 {
		every = 30
	}
	applog.Infof("Transport: Logging every %d frames at DEBUG", every)
	return &LoggingSink{next: next, every: uint64(every)}
}

// Publish implements analysis.Sink.
func (s *LoggingSink) Publish(frame analysis.Frame) {
	if s.next != nil {
		s.next.Publish(frame)
	}

	s.count++
	if s.count%s.every != 0 || applog.GetLevel() > applog.LevelDebug {
		return
	}

	bar, value := dominant(frame.Bars)
	applog.Debugf("Frame %d: %d bars, dominant bar %d (%.3f)", frame.Sequence, len(frame.Bars), bar, value)
}

// dominant returns the index and value of the largest bar, -1 if empty.
func dominant(bars []float64) (int, float64) {
	idx, peak := -1, 0.0
	for i, v := range bars {
		if idx < 0 || v > peak {
			idx, peak = i, v
		}
	}
	return idx, peak
}

var _ analysis.Sink = (*LoggingSink)(nil)
