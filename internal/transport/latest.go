// SPDX-License-Identifier: MIT
package transport

import (
	"sync"
	"time"

	"github.com/Kitkacy/PunchyAudio/internal/analysis"
)

// Latest is a single-cell, latest-value-wins handoff between the capture
// thread and any number of readers.
//
// Thread Safety:
// - A mutex guards the cell; both sides hold it only for a copy of at most
//   barCount floats
// - Publish and LoadInto do not allocate once dst is large enough
type Latest struct {
	mu        sync.Mutex
	bars      []float64
	sequence  uint64
	timestamp time.Time
	published bool

	now func() time.Time
}

// NewLatest returns an empty slot sized for barCount bars.
func NewLatest(barCount int) *Latest {
	return &Latest{
		bars: make([]float64, 0, barCount),
		now:  time.Now,
	}
}

// Publish implements analysis.Sink by copying the frame into the cell,
// replacing whatever was there.
func (l *Latest) Publish(frame analysis.Frame) {
	ts := l.now()

	l.mu.Lock()
	l.bars = append(l.bars[:0], frame.Bars...)
	l.sequence = frame.Sequence
	l.timestamp = ts
	l.published = true
	l.mu.Unlock()
}

// LoadInto copies the latest bars into dst (grown if too small) and returns
// a snapshot whose Bars is that slice. It reports false before the first
// publish.
func (l *Latest) LoadInto(dst []float64) (Snapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.published {
		return Snapshot{}, false
	}

	dst = append(dst[:0], l.bars...)
	return Snapshot{Sequence: l.sequence, Timestamp: l.timestamp, Bars: dst}, true
}

// Sequence returns the sequence number of the latest frame, 0 if none.
func (l *Latest) Sequence() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sequence
}
