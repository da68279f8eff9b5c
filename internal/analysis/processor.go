// SPDX-License-Identifier: MIT
package analysis

// BufferProcessor is implemented by components that consume capture buffers.
// Process is called from the capture callback context, one buffer at a time,
// so implementations must not block or allocate.
type BufferProcessor interface {
	Process(buf Buffer) (Frame, bool)
}

// Sink receives every published frame. Publish runs synchronously on the
// capture thread and must return quickly; the frame's Bars are only valid
// for the duration of the call, so sinks copy what they keep.
type Sink interface {
	Publish(frame Frame)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(frame Frame)

// Publish calls f(frame).
func (f SinkFunc) Publish(frame Frame) { f(frame) }

// Compile-time checks for interface implementations.
var _ BufferProcessor = (*Analyzer)(nil)
var _ Sink = SinkFunc(nil)
