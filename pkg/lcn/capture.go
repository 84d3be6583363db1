// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lcn

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Direction of captured traffic
type Direction uint8

const (
	DirectionRx Direction = 1
	DirectionTx Direction = 2
)

func (d Direction) String() string {
	switch d {
	case DirectionRx:
		return "RX"
	case DirectionTx:
		return "TX"
	default:
		return "??"
	}
}

// CaptureRecord is one entry of a capture log. Records are stored as a
// stream of CBOR maps with integer keys.
type CaptureRecord struct {
	TimeMs    int64      `cbor:"1,keyasint"`
	Tick      uint64     `cbor:"2,keyasint"`
	Direction Direction  `cbor:"3,keyasint"`
	Kind      PacketKind `cbor:"4,keyasint"`
	Data      []byte     `cbor:"5,keyasint"`
	CRCError  bool       `cbor:"6,keyasint,omitempty"`
}

// Time returns the wall-clock time of the record
func (r *CaptureRecord) Time() time.Time {
	return time.UnixMilli(r.TimeMs)
}

// Packet rebuilds the decoder output the record was taken from
func (r *CaptureRecord) Packet() *Packet {
	return &Packet{
		kind:      r.Kind,
		data:      r.Data,
		tick:      r.Tick,
		timestamp: r.Time(),
		crcError:  r.CRCError,
	}
}

// CaptureWriter appends records to a capture log
type CaptureWriter struct {
	enc    *cbor.Encoder
	closer io.Closer
}

// NewCaptureWriter writes records to w
func NewCaptureWriter(w io.Writer) *CaptureWriter {
	c := &CaptureWriter{enc: cbor.NewEncoder(w)}
	if closer, ok := w.(io.Closer); ok {
		c.closer = closer
	}
	return c
}

// CreateCapture opens path for appending and returns a writer for it
func CreateCapture(path string) (*CaptureWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture %s: %w", path, err)
	}
	return NewCaptureWriter(f), nil
}

// WritePacket records received decoder output
func (c *CaptureWriter) WritePacket(p *Packet) error {
	return c.write(&CaptureRecord{
		TimeMs:    p.timestamp.UnixMilli(),
		Tick:      p.tick,
		Direction: DirectionRx,
		Kind:      p.kind,
		Data:      p.data,
		CRCError:  p.crcError,
	})
}

// WriteFrame records a transmitted frame
func (c *CaptureWriter) WriteFrame(f Frame, tick uint64) error {
	return c.write(&CaptureRecord{
		TimeMs:    time.Now().UnixMilli(),
		Tick:      tick,
		Direction: DirectionTx,
		Kind:      KindFrame,
		Data:      f,
	})
}

func (c *CaptureWriter) write(r *CaptureRecord) error {
	if err := c.enc.Encode(r); err != nil {
		return fmt.Errorf("failed to write capture record: %w", err)
	}
	return nil
}

// Close closes the underlying file, if any
func (c *CaptureWriter) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// CaptureReader reads records back from a capture log
type CaptureReader struct {
	dec *cbor.Decoder
}

// NewCaptureReader reads records from r
func NewCaptureReader(r io.Reader) *CaptureReader {
	return &CaptureReader{dec: cbor.NewDecoder(r)}
}

// Next returns the next record, or io.EOF at the end of the log
func (c *CaptureReader) Next() (*CaptureRecord, error) {
	var r CaptureRecord
	if err := c.dec.Decode(&r); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read capture record: %w", err)
	}
	return &r, nil
}
