// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/binary"
	"math"

	"github.com/rotisserie/eris"
)

/*
Bar packet layout (BigEndian)

+-------------------------------------------------------------------------+
| Field           | Data Type | Size (Bytes) | Description                |
|-----------------|-----------|--------------|----------------------------|
| Sequence Number | uint32    | 4            | Frame sequence (truncated) |
| Timestamp       | int64     | 8            | Publish time, Unix nanos   |
| Bar Count       | uint16    | 2            | Number of floats (N)       |
| Bars            | []float32 | N * 4        | Normalized bars in [0, 1]  |
+-------------------------------------------------------------------------+
*/
const (
	PacketHeaderSize = 4 + 8 + 2
	MaxPacketBars    = math.MaxUint16
)

var (
	ErrPacketShort = eris.New("packet shorter than its header")
	ErrPacketCount = eris.New("packet bar count does not match payload")
	ErrPacketLarge = eris.New("too many bars for one packet")
)

// PacketSize returns the encoded size of a packet with n bars.
func PacketSize(n int) int {
	return PacketHeaderSize + 4*n
}

// AppendPacket encodes snap onto dst and returns the extended slice. With
// enough capacity in dst it does not allocate.
func AppendPacket(dst []byte, snap Snapshot) ([]byte, error) {
	if len(snap.Bars) > MaxPacketBars {
		return dst, eris.Wrapf(ErrPacketLarge, "got %d", len(snap.Bars))
	}

	dst = binary.BigEndian.AppendUint32(dst, uint32(snap.Sequence))
	dst = binary.BigEndian.AppendUint64(dst, uint64(snap.Timestamp.UnixNano()))
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(snap.Bars)))
	for _, v := range snap.Bars {
		dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(float32(v)))
	}
	return dst, nil
}

// Packet is a decoded bar packet.
type Packet struct {
	Sequence  uint32
	Timestamp int64
	Bars      []float32
}

// DecodePacket parses a packet produced by AppendPacket.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < PacketHeaderSize {
		return Packet{}, eris.Wrapf(ErrPacketShort, "got %d bytes", len(b))
	}

	p := Packet{
		Sequence:  binary.BigEndian.Uint32(b[0:4]),
		Timestamp: int64(binary.BigEndian.Uint64(b[4:12])),
	}
	count := int(binary.BigEndian.Uint16(b[12:14]))
	if len(b) != PacketSize(count) {
		return Packet{}, eris.Wrapf(ErrPacketCount, "count %d, %d bytes", count, len(b))
	}

	p.Bars = make([]float32, count)
	payload := b[PacketHeaderSize:]
	for i := range p.Bars {
		p.Bars[i] = math.Float32frombits(binary.BigEndian.Uint32(payload[4*i:]))
	}
	return p, nil
}
