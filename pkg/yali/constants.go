// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package yali implements the gateway's TCP protocol: a 3-byte envelope
// (type, 16-bit big-endian length) around typed payloads, a per-connection
// reassembler, the record formats of the light, shutter and history reports,
// and a blocking client.
package yali

// PacketType identifies the payload of an envelope
type PacketType byte

// Requests (client to gateway)
const (
	TypeEmpty            PacketType = 0x00
	TypeVersionGet       PacketType = 0x01
	TypeLightStatusGet   PacketType = 0x02
	TypeLightStatusSet   PacketType = 0x03
	TypeTimeGet          PacketType = 0x04
	TypeShutterDBGet     PacketType = 0x05
	TypeLightDBGet       PacketType = 0x06
	TypeHistoryGet       PacketType = 0x07
	TypeShutterStatusGet PacketType = 0x08
	TypeShutterStatusSet PacketType = 0x09
	TypeRawSend          PacketType = 0x70
)

// Reports (gateway to client)
const (
	TypeVersionReport       PacketType = 0x81
	TypeLightStatusReport   PacketType = 0x82
	TypeTimeReport          PacketType = 0x84
	TypeShutterDBReport     PacketType = 0x85
	TypeLightDBReport       PacketType = 0x86
	TypeHistoryReport       PacketType = 0x87
	TypeShutterStatusReport PacketType = 0x88
	TypeRawReceived         PacketType = 0xF0
	TypeErrorReport         PacketType = 0xFF
)

// Envelope limits
const (
	HeaderSize     = 3
	MaxPayloadSize = 0xFFFF
	ReceiveBufSize = 128
)

// DefaultPort is the TCP port of the gateway
const DefaultPort = 4711

// Error report codes
const (
	ErrCodeServerFull     = 0x01
	ErrCodeIllegalType    = 0x02
	ErrCodeDeliveryFailed = 0x03
)

// Version report contents
const (
	VersionMajor = 1
	VersionMinor = 0
	InterfaceLCN = 1
	VersionText  = "Yali Server-Go V1.0"
)

// History record layout
const (
	HistoryRecordSize  = 8
	HistoryKindLight   = 1
	HistoryKindShutter = 2
)

// StateUnknown is the light state before the first report
const StateUnknown = -1

var typeNames = map[PacketType]string{
	TypeEmpty:               "EMPTY",
	TypeVersionGet:          "VERSION_GET",
	TypeLightStatusGet:      "LIGHT_STATUS_GET",
	TypeLightStatusSet:      "LIGHT_STATUS_SET",
	TypeTimeGet:             "TIME_GET",
	TypeShutterDBGet:        "SHUTTER_DB_GET",
	TypeLightDBGet:          "LIGHT_DB_GET",
	TypeHistoryGet:          "HISTORY_GET",
	TypeShutterStatusGet:    "SHUTTER_STATUS_GET",
	TypeShutterStatusSet:    "SHUTTER_STATUS_SET",
	TypeRawSend:             "RAW_SEND",
	TypeVersionReport:       "VERSION_REPORT",
	TypeLightStatusReport:   "LIGHT_STATUS_REPORT",
	TypeTimeReport:          "TIME_REPORT",
	TypeShutterDBReport:     "SHUTTER_DB_REPORT",
	TypeLightDBReport:       "LIGHT_DB_REPORT",
	TypeHistoryReport:       "HISTORY_REPORT",
	TypeShutterStatusReport: "SHUTTER_STATUS_REPORT",
	TypeRawReceived:         "RAW_RECEIVED",
	TypeErrorReport:         "ERROR_REPORT",
}

func (t PacketType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}
