// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package yali

// Reassembler splits a client byte stream into packets using a fixed
// receive buffer. A packet that cannot fit the buffer is skipped: once the
// buffer is full the rest of its declared length is read and discarded, and
// framing resumes after it.
type Reassembler struct {
	buf       [ReceiveBufSize]byte
	n         int
	discard   int // bytes of an oversized packet still to be skipped
	oversized int
}

// NewReassembler creates an empty reassembler
func NewReassembler() *Reassembler {
	return &Reassembler{}
}

// Feed consumes data and returns every packet it completed, in order.
func (r *Reassembler) Feed(data []byte) []*Packet {
	var out []*Packet

	for len(data) > 0 {
		if r.discard > 0 {
			skip := min(r.discard, len(data))
			r.discard -= skip
			data = data[skip:]
			continue
		}

		c := copy(r.buf[r.n:], data)
		r.n += c
		data = data[c:]
		out = r.extract(out)

		if r.n == ReceiveBufSize {
			// The head packet is larger than the buffer.
			r.discard = r.declaredLength() - r.n
			r.n = 0
			r.oversized++
		}
	}
	return out
}

func (r *Reassembler) extract(out []*Packet) []*Packet {
	start := 0
	for r.n-start >= HeaderSize {
		length := HeaderSize + (int(r.buf[start+1])<<8 | int(r.buf[start+2]))
		if r.n-start < length {
			break
		}
		payload := make([]byte, length-HeaderSize)
		copy(payload, r.buf[start+HeaderSize:start+length])
		out = append(out, &Packet{Type: PacketType(r.buf[start]), Payload: payload})
		start += length
	}
	if start > 0 {
		copy(r.buf[:], r.buf[start:r.n])
		r.n -= start
	}
	return out
}

func (r *Reassembler) declaredLength() int {
	return HeaderSize + (int(r.buf[1])<<8 | int(r.buf[2]))
}

// Buffered returns the number of bytes waiting for a complete packet
func (r *Reassembler) Buffered() int {
	return r.n
}

// Discarding reports how many bytes of an oversized packet remain to be skipped
func (r *Reassembler) Discarding() int {
	return r.discard
}

// Oversized returns the number of packets skipped for exceeding the buffer
func (r *Reassembler) Oversized() int {
	return r.oversized
}
