// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lcn

import "fmt"

// Standard 8-byte command builders. All frames are sent from the PC coupler
// to segment 0 and carry a valid checksum.

// NewCommand creates a command frame that does not request an ack
func NewCommand(dst, cmd, p1, p2 byte) Frame {
	return newCommand(InfoCommand, dst, cmd, p1, p2)
}

// NewAckCommand creates a command frame that requests an ack
func NewAckCommand(dst, cmd, p1, p2 byte) Frame {
	return newCommand(InfoCommandAck, dst, cmd, p1, p2)
}

func newCommand(info, dst, cmd, p1, p2 byte) Frame {
	f := Frame{SrcPC, info, 0x00, 0x00, dst, cmd, p1, p2}
	SealFrame(f)
	return f
}

// NewStatusRequest asks a module to report its output levels
func NewStatusRequest(module byte) Frame {
	return NewCommand(module, CmdStatus, StatusRequestP1, StatusRequestP2)
}

// OutputCommand returns the command byte that sets the given output (1..3).
func OutputCommand(output int) (byte, bool) {
	switch output {
	case 1:
		return CmdOutput1, true
	case 2:
		return CmdOutput2, true
	case 3:
		return CmdOutput3, true
	}
	return 0, false
}

// PercentToParam converts 0..100 percent to the half-scale value of an
// output command. Larger values are clamped.
func PercentToParam(percent int) byte {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return byte(percent / 2)
}

// NewOutputCommand sets an output to a brightness in percent using the
// default ramp.
func NewOutputCommand(module byte, output int, percent int) (Frame, error) {
	cmd, ok := OutputCommand(output)
	if !ok {
		return nil, fmt.Errorf("invalid output %d (want 1..3)", output)
	}
	return NewCommand(module, cmd, PercentToParam(percent), DefaultRamp), nil
}

// NewRelayCommand applies action to the relay slot of shutter run (1..4).
func NewRelayCommand(module byte, run int, action RelayAction) (Frame, error) {
	if run < 1 || run > RelaySlots {
		return nil, fmt.Errorf("invalid shutter run %d (want 1..%d)", run, RelaySlots)
	}
	p1, p2 := PackRelay(action, RelaySlot(run))
	return NewCommand(module, CmdRelay, p1, p2), nil
}

// NewFrameFromPayload builds a frame from its fields without the CRC byte
// ([src, info, dstSeg, dst, cmd, ...]) and inserts the checksum.
func NewFrameFromPayload(payload []byte) (Frame, error) {
	if len(payload) < ShortFrameSize-1 {
		return nil, fmt.Errorf("%w: %d bytes without crc", ErrFrameTooShort, len(payload))
	}
	if len(payload) > MaxFrameSize-1 {
		return nil, fmt.Errorf("%w: %d bytes without crc", ErrFrameTooLong, len(payload))
	}

	f := make(Frame, 0, len(payload)+1)
	f = append(f, payload[:OffsetCRC]...)
	f = append(f, 0)
	f = append(f, payload[OffsetCRC:]...)
	SealFrame(f)
	return f, nil
}
