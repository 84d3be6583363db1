// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package yali

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// LightRecord is one entry of the light database report
type LightRecord struct {
	Module byte
	Output byte
	State  int // StateUnknown or 0..100
	Name   string
}

// ShutterRecord is one entry of the shutter database report. Min and Max
// bound the estimated position in percent.
type ShutterRecord struct {
	Module byte
	Run    byte
	Min    int
	Max    int
	Name   string
}

// Position returns the midpoint of the estimate
func (r ShutterRecord) Position() int {
	return (r.Min + r.Max + 1) / 2
}

// HistoryRecord is one 8-byte entry of the history report
type HistoryRecord struct {
	Time    uint32 // unix seconds
	Kind    byte   // HistoryKindLight or HistoryKindShutter
	Module  byte
	Channel byte // output or shutter run
	Value   byte
}

// Timestamp returns the record time
func (h HistoryRecord) Timestamp() time.Time {
	return time.Unix(int64(h.Time), 0)
}

// IsZero reports whether the record is an unused ring slot
func (h HistoryRecord) IsZero() bool {
	return h == HistoryRecord{}
}

// Put writes the record into b, which must hold HistoryRecordSize bytes
func (h HistoryRecord) Put(b []byte) {
	binary.BigEndian.PutUint32(b[0:4], h.Time)
	b[4] = h.Kind
	b[5] = h.Module
	b[6] = h.Channel
	b[7] = h.Value
}

// AppendLightRecord appends [module, output, state, name, 0]
func AppendLightRecord(b []byte, r LightRecord) []byte {
	b = append(b, r.Module, r.Output, byte(int8(r.State)))
	b = append(b, r.Name...)
	return append(b, 0)
}

// AppendShutterRecord appends [module, run, min, max, name, 0]
func AppendShutterRecord(b []byte, r ShutterRecord) []byte {
	b = append(b, r.Module, r.Run, byte(r.Min), byte(r.Max))
	b = append(b, r.Name...)
	return append(b, 0)
}

// ParseLightDB decodes the payload of a light database report
func ParseLightDB(payload []byte) ([]LightRecord, error) {
	var out []LightRecord
	for off := 0; off < len(payload); {
		if len(payload)-off < 3 {
			return out, fmt.Errorf("%w: light record at offset %d", ErrTruncatedRecord, off)
		}
		name, next, err := cString(payload, off+3)
		if err != nil {
			return out, err
		}
		out = append(out, LightRecord{
			Module: payload[off],
			Output: payload[off+1],
			State:  int(int8(payload[off+2])),
			Name:   name,
		})
		off = next
	}
	return out, nil
}

// ParseShutterDB decodes the payload of a shutter database report
func ParseShutterDB(payload []byte) ([]ShutterRecord, error) {
	var out []ShutterRecord
	for off := 0; off < len(payload); {
		if len(payload)-off < 4 {
			return out, fmt.Errorf("%w: shutter record at offset %d", ErrTruncatedRecord, off)
		}
		name, next, err := cString(payload, off+4)
		if err != nil {
			return out, err
		}
		out = append(out, ShutterRecord{
			Module: payload[off],
			Run:    payload[off+1],
			Min:    int(payload[off+2]),
			Max:    int(payload[off+3]),
			Name:   name,
		})
		off = next
	}
	return out, nil
}

// ParseHistory decodes the payload of a history report
func ParseHistory(payload []byte) ([]HistoryRecord, error) {
	if len(payload)%HistoryRecordSize != 0 {
		return nil, fmt.Errorf("%w: history of %d bytes", ErrTruncatedRecord, len(payload))
	}
	out := make([]HistoryRecord, 0, len(payload)/HistoryRecordSize)
	for off := 0; off < len(payload); off += HistoryRecordSize {
		out = append(out, HistoryRecord{
			Time:    binary.BigEndian.Uint32(payload[off:]),
			Kind:    payload[off+4],
			Module:  payload[off+5],
			Channel: payload[off+6],
			Value:   payload[off+7],
		})
	}
	return out, nil
}

// cString reads a NUL-terminated string starting at off and returns the
// offset after the terminator.
func cString(b []byte, off int) (string, int, error) {
	end := bytes.IndexByte(b[off:], 0)
	if end < 0 {
		return "", 0, fmt.Errorf("%w: unterminated name at offset %d", ErrTruncatedRecord, off)
	}
	return string(b[off : off+end]), off + end + 1, nil
}
