// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lcn

// Decoder reassembles bus frames from a byte stream that may contain noise,
// truncated frames and frames of unknown modules.
type Decoder struct {
	book     AddressBook
	buf      [ReceiveBufSize]byte
	n        int    // bytes buffered
	checked  int    // prefix length already verified
	lastTick uint64 // tick of the previous read
	crcError bool   // a known frame at the head failed its checksum
}

// NewDecoder creates a decoder that recognizes frames between the addresses
// in book.
func NewDecoder(book AddressBook) *Decoder {
	return &Decoder{book: book}
}

// SetAddressBook replaces the set of known addresses.
func (d *Decoder) SetAddressBook(book AddressBook) {
	d.book = book
}

// Reset drops all buffered bytes
func (d *Decoder) Reset() {
	d.n = 0
	d.checked = 0
	d.crcError = false
}

// Pending returns the bytes buffered but not yet consumed
func (d *Decoder) Pending() []byte {
	return d.buf[:d.n]
}

// Feed appends bytes read at the given tick and returns everything that
// could be decided: validated frames in stream order, interleaved with the
// garbage dropped in front of them. Bytes that may still start a frame stay
// buffered for the next call.
func (d *Decoder) Feed(data []byte, tick uint64) []*Packet {
	var out []*Packet

	if d.n > 0 && tick > d.lastTick+1 {
		out = append(out, newPacket(KindStale, d.buf[:d.n], tick))
		d.Reset()
	}
	d.lastTick = tick

	for len(data) > 0 {
		if d.n >= ReceiveBufSize {
			out = append(out, newPacket(KindOverflow, d.buf[:d.n], tick))
			d.Reset()
		}
		c := copy(d.buf[d.n:], data)
		d.n += c
		data = data[c:]
		out = d.process(out, tick)
	}

	return out
}

func (d *Decoder) process(out []*Packet, tick uint64) []*Packet {
	for d.checked < d.n {
		d.checked++
		status, length, known := verify(d.buf[:d.checked], d.book)

		if status == StatusIncomplete {
			continue
		}

		if status == StatusValidKnown {
			out = append(out, newPacket(KindFrame, d.buf[:length], tick))
			d.consume(length)
			continue
		}

		if status == StatusCRCError && known {
			d.crcError = true
		}

		if skip := Scan(d.buf[:d.checked], d.book); skip > 0 {
			p := newPacket(KindGarbage, d.buf[:skip], tick)
			p.crcError = d.crcError
			out = append(out, p)
			d.consume(skip)
		}
	}
	return out
}

// consume drops n bytes from the front of the buffer and restarts checking.
func (d *Decoder) consume(n int) {
	copy(d.buf[:], d.buf[n:d.n])
	d.n -= n
	d.checked = 0
	d.crcError = false
}
