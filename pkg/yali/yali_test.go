// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package yali

import (
	"bytes"
	"errors"
	"net"
	"strings"
	"testing"
	"time"
)

// ============================================================
// Envelope Tests
// ============================================================

func TestPacket_Encode(t *testing.T) {
	buf, err := LightStatusReport(5, 1, 50).Encode()
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	expected := []byte{0x82, 0x00, 0x03, 0x05, 0x01, 0x32}
	if !bytes.Equal(buf, expected) {
		t.Errorf("got %X, want %X", buf, expected)
	}
}

func TestPacket_EncodeTooLarge(t *testing.T) {
	_, err := NewPacket(TypeHistoryReport, make([]byte, MaxPayloadSize+1)).Encode()
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("Expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestReadPacket(t *testing.T) {
	r := bytes.NewReader([]byte{0x84, 0x00, 0x04, 0x4B, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00})
	p, err := ReadPacket(r)
	if err != nil {
		t.Fatalf("ReadPacket error: %v", err)
	}
	if p.Type != TypeTimeReport || !bytes.Equal(p.Payload, []byte{0x4B, 0, 0, 0}) {
		t.Errorf("Unexpected packet %s", p)
	}
	p, err = ReadPacket(r)
	if err != nil || p.Type != TypeVersionGet || len(p.Payload) != 0 {
		t.Errorf("Unexpected second packet %v (%v)", p, err)
	}
}

func TestPacketType_String(t *testing.T) {
	if TypeShutterStatusSet.String() != "SHUTTER_STATUS_SET" {
		t.Errorf("got %s", TypeShutterStatusSet)
	}
	if PacketType(0x42).String() != "UNKNOWN" {
		t.Errorf("got %s", PacketType(0x42))
	}
}

// ============================================================
// Reassembler Tests
// ============================================================

func encode(t *testing.T, p *Packet) []byte {
	t.Helper()
	buf, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	return buf
}

func TestReassembler_MultiplePacketsInOneRead(t *testing.T) {
	r := NewReassembler()
	data := append(encode(t, VersionGet()), encode(t, LightStatusSet(5, 1, 80))...)
	data = append(data, encode(t, LightStatusGet(5, 1))[:2]...)

	packets := r.Feed(data)
	if len(packets) != 2 {
		t.Fatalf("Expected 2 packets, got %d", len(packets))
	}
	if packets[0].Type != TypeVersionGet || packets[1].Type != TypeLightStatusSet {
		t.Errorf("Unexpected order: %s, %s", packets[0].Type, packets[1].Type)
	}
	if r.Buffered() != 2 {
		t.Errorf("Expected 2 buffered bytes, got %d", r.Buffered())
	}
}

func TestReassembler_ByteByByte(t *testing.T) {
	r := NewReassembler()
	data := encode(t, ShutterStatusSet(7, 2, 10, 30))

	var packets []*Packet
	for _, b := range data {
		packets = append(packets, r.Feed([]byte{b})...)
	}
	if len(packets) != 1 || !bytes.Equal(packets[0].Payload, []byte{7, 2, 10, 30}) {
		t.Fatalf("Unexpected packets %v", packets)
	}
}

func TestReassembler_ExactBufferSize(t *testing.T) {
	r := NewReassembler()
	packets := r.Feed(encode(t, NewPacket(TypeRawSend, make([]byte, ReceiveBufSize-HeaderSize))))
	if len(packets) != 1 || r.Oversized() != 0 {
		t.Errorf("A packet filling the buffer exactly should pass (got %d, oversized %d)", len(packets), r.Oversized())
	}
}

func TestReassembler_DiscardsOversized(t *testing.T) {
	big := encode(t, NewPacket(TypeRawSend, bytes.Repeat([]byte{0x55}, 300)))
	next := encode(t, VersionGet())

	tests := []struct {
		name  string
		chunk int
	}{
		{"single read", len(big) + len(next)},
		{"small reads", 7},
		{"byte by byte", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReassembler()
			stream := append(append([]byte(nil), big...), next...)
			var packets []*Packet
			for len(stream) > 0 {
				n := min(tt.chunk, len(stream))
				packets = append(packets, r.Feed(stream[:n])...)
				stream = stream[n:]
			}
			if len(packets) != 1 || packets[0].Type != TypeVersionGet {
				t.Fatalf("Expected only the version request, got %v", packets)
			}
			if r.Oversized() != 1 || r.Discarding() != 0 || r.Buffered() != 0 {
				t.Errorf("oversized=%d discarding=%d buffered=%d", r.Oversized(), r.Discarding(), r.Buffered())
			}
		})
	}
}

// ============================================================
// Record Tests
// ============================================================

func TestLightDB(t *testing.T) {
	records := []LightRecord{
		{Module: 5, Output: 1, State: 50, Name: "Kitchen"},
		{Module: 7, Output: 3, State: StateUnknown, Name: "Hall"},
	}
	p, err := LightDBReport(records)
	if err != nil {
		t.Fatalf("LightDBReport error: %v", err)
	}
	expected := []byte{5, 1, 50, 'K', 'i', 't', 'c', 'h', 'e', 'n', 0, 7, 3, 0xFF, 'H', 'a', 'l', 'l', 0}
	if !bytes.Equal(p.Payload, expected) {
		t.Fatalf("got %X, want %X", p.Payload, expected)
	}

	parsed, err := ParseLightDB(p.Payload)
	if err != nil {
		t.Fatalf("ParseLightDB error: %v", err)
	}
	if len(parsed) != 2 || parsed[0] != records[0] || parsed[1] != records[1] {
		t.Errorf("Unexpected records %+v", parsed)
	}
}

func TestParseLightDB_Truncated(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"short record", []byte{5, 1}},
		{"unterminated name", []byte{5, 1, 0, 'K'}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseLightDB(tt.payload); !errors.Is(err, ErrTruncatedRecord) {
				t.Errorf("Expected ErrTruncatedRecord, got %v", err)
			}
		})
	}
}

func TestShutterDB(t *testing.T) {
	p, err := ShutterDBReport([]ShutterRecord{{Module: 9, Run: 2, Min: 0, Max: 100, Name: "Terrace"}})
	if err != nil {
		t.Fatalf("ShutterDBReport error: %v", err)
	}
	expected := append([]byte{9, 2, 0, 100}, "Terrace\x00"...)
	if !bytes.Equal(p.Payload, expected) {
		t.Fatalf("got %X, want %X", p.Payload, expected)
	}
	parsed, err := ParseShutterDB(p.Payload)
	if err != nil || len(parsed) != 1 || parsed[0].Name != "Terrace" || parsed[0].Position() != 50 {
		t.Errorf("Unexpected records %+v (%v)", parsed, err)
	}
}

func TestParseHistory(t *testing.T) {
	var payload []byte
	rec := HistoryRecord{Time: 0x5F000000, Kind: HistoryKindLight, Module: 5, Channel: 1, Value: 50}
	buf := make([]byte, HistoryRecordSize)
	rec.Put(buf)
	payload = append(payload, buf...)

	parsed, err := ParseHistory(payload)
	if err != nil || len(parsed) != 1 || parsed[0] != rec {
		t.Fatalf("Unexpected history %+v (%v)", parsed, err)
	}
	if !bytes.Equal(buf[:4], []byte{0x5F, 0, 0, 0}) {
		t.Errorf("Time should be big-endian, got %X", buf[:4])
	}

	if _, err := ParseHistory(payload[:7]); !errors.Is(err, ErrTruncatedRecord) {
		t.Errorf("Expected ErrTruncatedRecord, got %v", err)
	}
}

// ============================================================
// Report Tests
// ============================================================

func TestVersionReport(t *testing.T) {
	p := VersionReport()
	expected := append([]byte{1, 0, 1}, "Yali Server-Go V1.0\x00"...)
	if !bytes.Equal(p.Payload, expected) {
		t.Errorf("got %q", p.Payload)
	}
	v, err := ParseVersion(p)
	if err != nil || v.Text != VersionText || v.Interface != InterfaceLCN {
		t.Errorf("Unexpected version %+v (%v)", v, err)
	}
}

func TestTimeReport(t *testing.T) {
	p := TimeReport(time.Unix(0x01020304, 0))
	if !bytes.Equal(p.Payload, []byte{1, 2, 3, 4}) {
		t.Errorf("got %X", p.Payload)
	}
}

func TestErrorReport(t *testing.T) {
	p := ErrorReport(ErrCodeServerFull, "too many clients")
	if p.Payload[0] != ErrCodeServerFull || p.Payload[len(p.Payload)-1] != 0 {
		t.Fatalf("Unexpected payload %X", p.Payload)
	}
	se, err := ParseError(p)
	if err != nil {
		t.Fatalf("ParseError error: %v", err)
	}
	if se.Code != ErrCodeServerFull || se.Message != "too many clients" {
		t.Errorf("Unexpected error %+v", se)
	}
	if !errors.Is(se, ErrServerError) {
		t.Error("ServerError should match ErrServerError")
	}
}

func TestRequestBuildersClamp(t *testing.T) {
	if p := LightStatusSet(5, 1, 250); p.Payload[2] != 100 {
		t.Errorf("Light value not clamped: %d", p.Payload[2])
	}
	if p := ShutterStatusSet(5, 1, -5, 120); p.Payload[2] != 0 || p.Payload[3] != 100 {
		t.Errorf("Shutter range not clamped: %X", p.Payload)
	}
}

// ============================================================
// Formatter Tests
// ============================================================

func TestDescribe(t *testing.T) {
	tests := []struct {
		p        *Packet
		expected string
	}{
		{LightStatusReport(5, 1, 50), "light M05/1 = 50 %"},
		{LightStatusReport(5, 2, StateUnknown), "light M05/2 = ? %"},
		{ShutterStatusReport(9, 2, 40), "shutter M09/2 = 40 %"},
		{ErrorReport(ErrCodeIllegalType, "received illegal code"), `server error 2: "received illegal code"`},
		{VersionReport(), "Yali Server-Go V1.0 (Version 1.0)"},
		{NewPacket(0x42, []byte{1}), "Type=UNKNOWN Len=1 01"},
	}
	for _, tt := range tests {
		if got := Describe(tt.p); got != tt.expected {
			t.Errorf("Describe(%s) = %q, want %q", tt.p.Type, got, tt.expected)
		}
	}
}

func TestFormatEvent(t *testing.T) {
	ts := time.Date(2024, 3, 9, 7, 5, 1, 0, time.Local)
	got := FormatEvent(ts, HistoryKindLight, "Kitchen", 50)
	if got != `24.03.09 07:05:01 Light "Kitchen" 50 %` {
		t.Errorf("got %q", got)
	}
	if got := FormatEvent(ts, HistoryKindShutter, "Terrace", 0); !strings.Contains(got, `Shutter "Terrace" 0 %`) {
		t.Errorf("got %q", got)
	}
}

// ============================================================
// Client Tests
// ============================================================

// serve answers each request read from conn with the packets returned by fn
func serve(t *testing.T, conn net.Conn, fn func(req *Packet) []*Packet) {
	t.Helper()
	go func() {
		for {
			req, err := ReadPacket(conn)
			if err != nil {
				return
			}
			for _, p := range fn(req) {
				if err := WritePacket(conn, p); err != nil {
					return
				}
			}
		}
	}()
}

func TestClient_LightStatusSkipsUnrelatedReports(t *testing.T) {
	server, conn := net.Pipe()
	defer server.Close()
	c := NewClient(conn)
	defer c.Close()

	serve(t, server, func(req *Packet) []*Packet {
		if req.Type != TypeLightStatusGet {
			return nil
		}
		return []*Packet{
			LightStatusReport(7, 1, 100),
			ErrorReport(ErrCodeDeliveryFailed, "bus delivery failed M07"),
			LightStatusReport(req.Payload[0], req.Payload[1], 30),
		}
	})

	v, err := c.LightStatus(5, 1)
	if err != nil {
		t.Fatalf("LightStatus error: %v", err)
	}
	if v != 30 {
		t.Errorf("got %d, want 30", v)
	}
}

func TestClient_ServerError(t *testing.T) {
	server, conn := net.Pipe()
	defer server.Close()
	c := NewClient(conn)
	defer c.Close()

	serve(t, server, func(req *Packet) []*Packet {
		return []*Packet{ErrorReport(ErrCodeIllegalType, "received illegal code")}
	})

	_, err := c.Version()
	var se *ServerError
	if !errors.As(err, &se) || se.Code != ErrCodeIllegalType {
		t.Errorf("Expected ServerError, got %v", err)
	}
}

func TestClient_Timeout(t *testing.T) {
	server, conn := net.Pipe()
	defer server.Close()
	c := NewClient(conn)
	c.Timeout = 50 * time.Millisecond
	defer c.Close()

	serve(t, server, func(req *Packet) []*Packet { return nil })

	if _, err := c.ShutterStatus(1, 1); err == nil {
		t.Error("Expected timeout error")
	}
}

func TestClient_Databases(t *testing.T) {
	server, conn := net.Pipe()
	defer server.Close()
	c := NewClient(conn)
	defer c.Close()

	serve(t, server, func(req *Packet) []*Packet {
		switch req.Type {
		case TypeLightDBGet:
			p, _ := LightDBReport([]LightRecord{{Module: 5, Output: 1, State: 0, Name: "Kitchen"}})
			return []*Packet{p}
		case TypeShutterDBGet:
			p, _ := ShutterDBReport([]ShutterRecord{{Module: 9, Run: 1, Min: 20, Max: 40, Name: "Terrace"}})
			return []*Packet{p}
		}
		return nil
	})

	lights, err := c.LightDB()
	if err != nil || len(lights) != 1 || lights[0].Name != "Kitchen" {
		t.Errorf("Unexpected lights %+v (%v)", lights, err)
	}
	shutters, err := c.ShutterDB()
	if err != nil || len(shutters) != 1 || shutters[0].Position() != 30 {
		t.Errorf("Unexpected shutters %+v (%v)", shutters, err)
	}
}
