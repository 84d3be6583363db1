// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package lcn implements the LCN home-automation bus protocol as seen from a
// PC coupler: frame checksums, frame recognition inside a noisy byte stream,
// outbound queueing with acknowledgment and retry, a tick-ordered delayed
// command queue, and human-readable frame formatting.
//
// Frames have the shape
//
//	src | info | crc | dstSeg | dst | cmd | p1 | p2 [+ up to 12 extra bytes]
//
// where src holds the sender address with its bit order reversed.
package lcn

// Frame field offsets
const (
	OffsetSrc    = 0
	OffsetInfo   = 1
	OffsetCRC    = 2
	OffsetDstSeg = 3
	OffsetDst    = 4
	OffsetCmd    = 5
	OffsetP1     = 6
	OffsetP2     = 7
)

// Frame sizes
const (
	MinFrameSize     = 3
	ShortFrameSize   = 6
	CommandFrameSize = 8
	MediumFrameSize  = 12
	ReportFrameSize  = 20
	MaxFrameSize     = ReportFrameSize
	ReceiveBufSize   = 128
)

// Info field values
const (
	InfoEmpty        = 0x00 // ack / bare status, 6 bytes
	InfoCommand      = 0x04 // command without ack request
	InfoCommandAck   = 0x05 // command, sender waits for ack
	InfoStatus       = 0x06
	InfoGroupCommand = 0x07
	InfoMedium       = 0x08
	InfoOutputReport = 0x0C // 20-byte extended status report
	InfoMediumAlt    = 0x4A // 74, 12 bytes
)

// Addresses
const (
	AddressBroadcast = 0x01
	AddressPC        = 0x01
	// SrcPC is AddressPC as it appears on the wire (bit-reversed).
	SrcPC = 0x80
)

// Command bytes
const (
	CmdSwitchOutputs = 0x01
	CmdOutput3       = 0x03
	CmdOutput1       = 0x04
	CmdOutput2       = 0x05
	CmdDelayedKeysA  = 0x08
	CmdUnlockKeysB   = 0x0C
	CmdUnlockKeysC   = 0x0D
	CmdUnlockKeysD   = 0x11
	CmdRelay         = 0x13
	CmdKeys          = 0x17
	CmdUnlockKeysA   = 0x19
	CmdDelayedKeysB  = 0x1B
	CmdDelayedKeysC  = 0x1C
	CmdDelayedKeysD  = 0x1D
	CmdAdd           = 0x29
	CmdBeep          = 0x40
	CmdOutputStatus  = 0x68
	CmdStatus        = 0x6E
)

// Command parameters
const (
	ParamMaxPercent  = 0xFA // p1 <= ParamMaxPercent is a half-percent level
	ParamAllOn       = 0xF8
	ParamAllOff      = 0xFA
	ParamAllToggle   = 0xFB
	ParamDarker      = 0xFB
	ParamBrighter    = 0xFC
	ParamToggle      = 0xFD
	ParamFixedRamp12 = 0xC8
	ParamOn12Legacy  = 0xCC

	StatusRequestP1 = 0xFB
	StatusRequestP2 = 0x01
	OutputReportP1  = 0x7B
	OutputReportP2  = 0x01

	// DefaultRamp is the ramp parameter used for outputs set by the gateway.
	DefaultRamp = 0x04
)

// Output report payload offsets (20-byte frames)
const (
	OffsetReportOutput1 = 8
	OffsetReportOutput2 = 11
	OffsetReportOutput3 = 14
)

// Send queue limits
const (
	MaxSendAttempts = 5
)

// Canonical frame lengths accepted by Scan for frames of unknown semantics.
var canonicalLengths = [...]int{ShortFrameSize, CommandFrameSize, MediumFrameSize, ReportFrameSize}
