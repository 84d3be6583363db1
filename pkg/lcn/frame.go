// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lcn

import "errors"

var (
	ErrFrameTooShort = errors.New("lcn: frame too short")
	ErrFrameTooLong  = errors.New("lcn: frame too long")
)

// Frame is a view over raw bus frame bytes. Accessors return zero for fields
// beyond the end of the slice.
type Frame []byte

func (f Frame) at(i int) byte {
	if i < len(f) {
		return f[i]
	}
	return 0
}

// Source returns the logical sender address
func (f Frame) Source() byte { return ReverseAddress(f.at(OffsetSrc)) }

// RawSource returns the sender address in wire bit order
func (f Frame) RawSource() byte { return f.at(OffsetSrc) }

func (f Frame) Info() byte        { return f.at(OffsetInfo) }
func (f Frame) CRC() byte         { return f.at(OffsetCRC) }
func (f Frame) DstSegment() byte  { return f.at(OffsetDstSeg) }
func (f Frame) Destination() byte { return f.at(OffsetDst) }
func (f Frame) Command() byte     { return f.at(OffsetCmd) }
func (f Frame) P1() byte          { return f.at(OffsetP1) }
func (f Frame) P2() byte          { return f.at(OffsetP2) }

// CRCValid reports whether the stored checksum matches the frame contents.
func (f Frame) CRCValid() bool {
	return len(f) > OffsetCRC && CalculateCRC(f) == f.CRC()
}

// WantsAck reports whether the sender requests a positive acknowledgment.
func (f Frame) WantsAck() bool {
	return len(f) >= ShortFrameSize && f.Info() == InfoCommandAck
}

// Clone returns a copy that does not alias the receiver.
func (f Frame) Clone() Frame {
	c := make(Frame, len(f))
	copy(c, f)
	return c
}

// ExpectedLength maps the info field to the total frame length. It returns 0
// when the length cannot be derived from info.
func ExpectedLength(info byte) int {
	switch {
	case info == InfoEmpty:
		return ShortFrameSize
	case info >= InfoCommand && info <= InfoGroupCommand:
		return CommandFrameSize
	case info == InfoMedium, info == InfoMediumAlt:
		return MediumFrameSize
	case info == InfoOutputReport:
		return ReportFrameSize
	}
	return 0
}

// IsCanonicalLength reports whether n is one of the frame sizes the bus uses.
func IsCanonicalLength(n int) bool {
	for _, l := range canonicalLengths {
		if n == l {
			return true
		}
	}
	return false
}

// AddressBook tells the frame recognizer which module addresses belong to
// the installation.
type AddressBook interface {
	IsKnownAddress(addr byte) bool
}

// AddressSet is a static AddressBook.
type AddressSet map[byte]struct{}

// NewAddressSet builds a set from the given module addresses.
func NewAddressSet(addrs ...byte) AddressSet {
	s := make(AddressSet, len(addrs))
	for _, a := range addrs {
		s[a] = struct{}{}
	}
	return s
}

// IsKnownAddress implements AddressBook. The broadcast address is always known.
func (s AddressSet) IsKnownAddress(addr byte) bool {
	if addr == AddressBroadcast {
		return true
	}
	_, ok := s[addr]
	return ok
}
