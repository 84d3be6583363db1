// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lcn

import "time"

// PacketKind classifies the output of the stream decoder.
type PacketKind int

const (
	// KindFrame is a validated frame between known addresses.
	KindFrame PacketKind = iota
	// KindGarbage is a run of bytes skipped while resynchronizing.
	KindGarbage
	// KindOverflow is a receive buffer that filled without yielding a frame.
	KindOverflow
	// KindStale is a partial frame that timed out between reads.
	KindStale
)

func (k PacketKind) String() string {
	switch k {
	case KindFrame:
		return "frame"
	case KindGarbage:
		return "garbage"
	case KindOverflow:
		return "overflow"
	case KindStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Packet is a unit of decoder output: either a frame or discarded bytes.
type Packet struct {
	kind      PacketKind
	data      []byte
	tick      uint64
	timestamp time.Time
	crcError  bool
}

func newPacket(kind PacketKind, data []byte, tick uint64) *Packet {
	c := make([]byte, len(data))
	copy(c, data)
	return &Packet{
		kind:      kind,
		data:      c,
		tick:      tick,
		timestamp: time.Now(),
	}
}

// Kind returns the packet classification
func (p *Packet) Kind() PacketKind {
	return p.kind
}

// IsFrame reports whether the packet carries a validated frame
func (p *Packet) IsFrame() bool {
	return p.kind == KindFrame
}

// CRCError reports whether a garbage run started with a frame of known
// length between known addresses whose checksum did not match.
func (p *Packet) CRCError() bool {
	return p.crcError
}

// Frame returns the packet bytes as a frame view
func (p *Packet) Frame() Frame {
	return Frame(p.data)
}

// Bytes returns the raw bytes
func (p *Packet) Bytes() []byte {
	return p.data
}

// Tick returns the reactor tick at which the bytes were read
func (p *Packet) Tick() uint64 {
	return p.tick
}

// Timestamp returns the wall-clock time the packet was produced
func (p *Packet) Timestamp() time.Time {
	return p.timestamp
}
