// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package yali

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// ============================================================
// Report builders (gateway side)
// ============================================================

// VersionReport describes this gateway
func VersionReport() *Packet {
	payload := []byte{VersionMajor, VersionMinor, InterfaceLCN}
	payload = append(payload, VersionText...)
	return NewPacket(TypeVersionReport, append(payload, 0))
}

// TimeReport carries t as 4-byte big-endian unix seconds
func TimeReport(t time.Time) *Packet {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, uint32(t.Unix()))
	return NewPacket(TypeTimeReport, payload)
}

// LightStatusReport announces the state of one light
func LightStatusReport(module, output byte, state int) *Packet {
	return NewPacket(TypeLightStatusReport, []byte{module, output, byte(int8(state))})
}

// ShutterStatusReport announces the estimated position of one shutter
func ShutterStatusReport(module, run byte, position int) *Packet {
	return NewPacket(TypeShutterStatusReport, []byte{module, run, byte(position)})
}

// LightDBReport lists all configured lights
func LightDBReport(records []LightRecord) (*Packet, error) {
	var payload []byte
	for _, r := range records {
		payload = AppendLightRecord(payload, r)
	}
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: light database", ErrPayloadTooLarge)
	}
	return NewPacket(TypeLightDBReport, payload), nil
}

// ShutterDBReport lists all configured shutters
func ShutterDBReport(records []ShutterRecord) (*Packet, error) {
	var payload []byte
	for _, r := range records {
		payload = AppendShutterRecord(payload, r)
	}
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: shutter database", ErrPayloadTooLarge)
	}
	return NewPacket(TypeShutterDBReport, payload), nil
}

// HistoryReport wraps exported history records
func HistoryReport(history []byte) (*Packet, error) {
	if len(history) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: history", ErrPayloadTooLarge)
	}
	return NewPacket(TypeHistoryReport, history), nil
}

// ErrorReport carries an error code and message
func ErrorReport(code byte, message string) *Packet {
	payload := append([]byte{code}, message...)
	return NewPacket(TypeErrorReport, append(payload, 0))
}

// RawReceived forwards a bus frame to clients
func RawReceived(frame []byte) *Packet {
	return NewPacket(TypeRawReceived, append([]byte(nil), frame...))
}

// ============================================================
// Request builders (client side)
// ============================================================

func VersionGet() *Packet   { return NewPacket(TypeVersionGet, nil) }
func TimeGet() *Packet      { return NewPacket(TypeTimeGet, nil) }
func LightDBGet() *Packet   { return NewPacket(TypeLightDBGet, nil) }
func ShutterDBGet() *Packet { return NewPacket(TypeShutterDBGet, nil) }
func HistoryGet() *Packet   { return NewPacket(TypeHistoryGet, nil) }

// LightStatusGet asks for the state of one light
func LightStatusGet(module, output byte) *Packet {
	return NewPacket(TypeLightStatusGet, []byte{module, output})
}

// LightStatusSet sets a light to value percent
func LightStatusSet(module, output byte, value int) *Packet {
	return NewPacket(TypeLightStatusSet, []byte{module, output, clampPercent(value)})
}

// ShutterStatusGet asks for the estimated position of one shutter
func ShutterStatusGet(module, run byte) *Packet {
	return NewPacket(TypeShutterStatusGet, []byte{module, run})
}

// ShutterStatusSet moves a shutter into the range [minPct, maxPct]
func ShutterStatusSet(module, run byte, minPct, maxPct int) *Packet {
	return NewPacket(TypeShutterStatusSet, []byte{module, run, clampPercent(minPct), clampPercent(maxPct)})
}

// RawSend asks the gateway to put a frame on the bus. The frame is given
// without its CRC byte.
func RawSend(frame []byte) *Packet {
	return NewPacket(TypeRawSend, append([]byte(nil), frame...))
}

func clampPercent(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return byte(v)
}

// ============================================================
// Report parsers
// ============================================================

// Version is the content of a version report
type Version struct {
	Major     byte
	Minor     byte
	Interface byte
	Text      string
}

func (v Version) String() string {
	return fmt.Sprintf("%s (Version %d.%d)", v.Text, v.Major, v.Minor)
}

// ParseVersion decodes a version report
func ParseVersion(p *Packet) (Version, error) {
	if err := expect(p, TypeVersionReport, 4); err != nil {
		return Version{}, err
	}
	text, _, err := cString(p.Payload, 3)
	if err != nil {
		return Version{}, err
	}
	return Version{Major: p.Payload[0], Minor: p.Payload[1], Interface: p.Payload[2], Text: text}, nil
}

// ParseTime decodes a time report
func ParseTime(p *Packet) (time.Time, error) {
	if err := expect(p, TypeTimeReport, 4); err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(binary.BigEndian.Uint32(p.Payload)), 0), nil
}

// Status is the content of a light or shutter status report
type Status struct {
	Module  byte
	Channel byte
	Value   int
}

// ParseLightStatus decodes a light status report. Value is StateUnknown
// until the light has been seen on the bus.
func ParseLightStatus(p *Packet) (Status, error) {
	if err := expect(p, TypeLightStatusReport, 3); err != nil {
		return Status{}, err
	}
	return Status{Module: p.Payload[0], Channel: p.Payload[1], Value: int(int8(p.Payload[2]))}, nil
}

// ParseShutterStatus decodes a shutter status report
func ParseShutterStatus(p *Packet) (Status, error) {
	if err := expect(p, TypeShutterStatusReport, 3); err != nil {
		return Status{}, err
	}
	return Status{Module: p.Payload[0], Channel: p.Payload[1], Value: int(p.Payload[2])}, nil
}

// ParseError decodes an error report
func ParseError(p *Packet) (*ServerError, error) {
	if err := expect(p, TypeErrorReport, 1); err != nil {
		return nil, err
	}
	msg := p.Payload[1:]
	if i := bytes.IndexByte(msg, 0); i >= 0 {
		msg = msg[:i]
	}
	return &ServerError{Code: p.Payload[0], Message: string(msg)}, nil
}

func expect(p *Packet, t PacketType, minLen int) error {
	if p.Type != t {
		return fmt.Errorf("%w: got %s, want %s", ErrUnexpectedPacket, p.Type, t)
	}
	if len(p.Payload) < minLen {
		return fmt.Errorf("%w: %s with %d bytes", ErrTruncatedRecord, p.Type, len(p.Payload))
	}
	return nil
}
