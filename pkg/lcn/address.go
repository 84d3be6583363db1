// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lcn

import "math/bits"

// ReverseAddress converts between the wire form of a source address and the
// logical module address. Bit i becomes bit 7-i, so the function is its own
// inverse.
func ReverseAddress(b byte) byte {
	return bits.Reverse8(b)
}

// RelayAction is the 2+2 bit code of one shutter slot in a relay command.
type RelayAction byte

// Relay actions (p1 bits in the high nibble, p2 bits in the low nibble)
const (
	RelayNone RelayAction = 0x00
	RelayStop RelayAction = 0x11
	RelayDown RelayAction = 0x30
	RelayUp   RelayAction = 0x32
)

// RelaySlots is the number of shutters addressed by one relay command.
const RelaySlots = 4

// String returns the action name
func (a RelayAction) String() string {
	switch a {
	case RelayNone:
		return "none"
	case RelayStop:
		return "stop"
	case RelayUp:
		return "up"
	case RelayDown:
		return "down"
	default:
		return "unknown"
	}
}

// Direction returns +1 for up, -1 for down and 0 for stop. ok is false for
// codes that carry no movement information.
func (a RelayAction) Direction() (dir int, ok bool) {
	switch a {
	case RelayStop:
		return 0, true
	case RelayUp:
		return 1, true
	case RelayDown:
		return -1, true
	}
	return 0, false
}

// UnpackRelay extracts the action of a shutter slot (0..3) from the p1/p2
// parameters of a relay command.
func UnpackRelay(p1, p2 byte, slot int) RelayAction {
	shift := uint(2 * slot)
	hi := (p1 >> shift) & 0x03
	lo := (p2 >> shift) & 0x03
	return RelayAction(hi<<4 | lo)
}

// PackRelay builds the p1/p2 parameters that apply action to a single
// shutter slot (0..3) and leave the other slots untouched.
func PackRelay(action RelayAction, slot int) (p1, p2 byte) {
	shift := uint(2 * slot)
	p1 = ((byte(action) >> 4) & 0x03) << shift
	p2 = (byte(action) & 0x03) << shift
	return p1, p2
}

// RelaySlot maps a shutter run number (1..4) to its relay slot.
func RelaySlot(run int) int {
	return run - 1
}
