// SPDX-License-Identifier: MIT
//
// Package transport hands published spectrum frames from the capture thread
// to slower consumers. The capture side writes into a single latest-wins
// slot; consumers poll that slot on their own schedule and ship snapshots
// elsewhere (UDP, WebSocket, terminal). There is no queue, so a slow consumer
// drops intermediate frames instead of building a backlog.
package transport

import (
	"time"

	"github.com/Kitkacy/PunchyAudio/internal/analysis"
)

// Snapshot is a copy of one published frame as seen by a consumer.
type Snapshot struct {
	Sequence  uint64
	Timestamp time.Time // When the frame was published.
	Bars      []float64
}

// Reader is implemented by the latest-wins slot. LoadInto copies the most
// recent bars into dst and reports false until the first publish.
type Reader interface {
	LoadInto(dst []float64) (Snapshot, bool)
}

// Transport ships snapshots to an external consumer. Implementations must
// be safe for concurrent use.
type Transport interface {
	Send(snap Snapshot) error
	Close() error
}

// Fanout publishes each frame to every sink in order.
type Fanout []analysis.Sink

// Publish forwards frame to each sink.
func (f Fanout) Publish(frame analysis.Frame) {
	for _, sink := range f {
		sink.Publish(frame)
	}
}

// Compile-time checks for interface implementations.
var (
	_ analysis.Sink = Fanout(nil)
	_ analysis.Sink = (*Latest)(nil)
	_ Reader        = (*Latest)(nil)
)
