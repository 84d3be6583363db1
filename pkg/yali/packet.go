// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package yali

import (
	"fmt"
	"io"
	"strings"
)

// Packet is one envelope of the TCP protocol
type Packet struct {
	Type    PacketType
	Payload []byte
}

// NewPacket creates a packet. The payload is not copied.
func NewPacket(t PacketType, payload []byte) *Packet {
	return &Packet{Type: t, Payload: payload}
}

// Encode returns the wire form of the packet
func (p *Packet) Encode() ([]byte, error) {
	if len(p.Payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %s with %d bytes", ErrPayloadTooLarge, p.Type, len(p.Payload))
	}
	buf := make([]byte, HeaderSize+len(p.Payload))
	buf[0] = byte(p.Type)
	buf[1] = byte(len(p.Payload) >> 8)
	buf[2] = byte(len(p.Payload))
	copy(buf[HeaderSize:], p.Payload)
	return buf, nil
}

// WritePacket writes the complete envelope to w
func WritePacket(w io.Writer, p *Packet) error {
	buf, err := p.Encode()
	if err != nil {
		return err
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write %s: %w", p.Type, err)
	}
	return nil
}

// ReadPacket reads exactly one envelope from r
func ReadPacket(r io.Reader) (*Packet, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	length := int(hdr[1])<<8 | int(hdr[2])
	p := &Packet{Type: PacketType(hdr[0]), Payload: make([]byte, length)}
	if _, err := io.ReadFull(r, p.Payload); err != nil {
		return nil, fmt.Errorf("failed to read %s payload: %w", p.Type, err)
	}
	return p, nil
}

// String renders the packet as "Type=NAME Len=n XX XX ..."
func (p *Packet) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Type=%s Len=%d", p.Type, len(p.Payload))
	for _, b := range p.Payload {
		fmt.Fprintf(&sb, " %02X", b)
	}
	return sb.String()
}
