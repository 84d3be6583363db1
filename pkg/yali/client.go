// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package yali

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// DefaultTimeout bounds the wait for a reply
const DefaultTimeout = 5 * time.Second

// Client is a blocking connection to a gateway. It is not safe for
// concurrent use.
type Client struct {
	conn    net.Conn
	Timeout time.Duration
	trace   func(sent bool, p *Packet)
}

// Dial connects to the gateway at addr
func Dial(addr string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return NewClient(conn), nil
}

// NewClient wraps an established connection
func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn, Timeout: DefaultTimeout}
}

// SetTrace installs a callback that sees every packet sent and received
func (c *Client) SetTrace(fn func(sent bool, p *Packet)) {
	c.trace = fn
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// Send writes one packet
func (c *Client) Send(p *Packet) error {
	if c.trace != nil {
		c.trace(true, p)
	}
	return WritePacket(c.conn, p)
}

// Receive blocks for the next packet. Error reports are returned as
// *ServerError.
func (c *Client) Receive() (*Packet, error) {
	p, err := ReadPacket(c.conn)
	if err != nil {
		return nil, err
	}
	if c.trace != nil {
		c.trace(false, p)
	}
	if p.Type == TypeErrorReport {
		se, err := ParseError(p)
		if err != nil {
			return nil, err
		}
		return nil, se
	}
	return p, nil
}

// request sends req and waits for the first packet of type want accepted by
// match. Other packets are skipped, as are delivery-failure reports.
func (c *Client) request(req *Packet, want PacketType, match func(*Packet) bool) (*Packet, error) {
	if err := c.Send(req); err != nil {
		return nil, err
	}

	if c.Timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.Timeout)); err != nil {
			return nil, err
		}
		defer c.conn.SetReadDeadline(time.Time{})
	}

	for {
		p, err := c.Receive()
		if err != nil {
			var se *ServerError
			if errors.As(err, &se) && se.Code == ErrCodeDeliveryFailed {
				continue
			}
			return nil, fmt.Errorf("waiting for %s: %w", want, err)
		}
		if p.Type == want && (match == nil || match(p)) {
			return p, nil
		}
	}
}

// Version asks for the gateway version
func (c *Client) Version() (Version, error) {
	p, err := c.request(VersionGet(), TypeVersionReport, nil)
	if err != nil {
		return Version{}, err
	}
	return ParseVersion(p)
}

// Time asks for the gateway clock
func (c *Client) Time() (time.Time, error) {
	p, err := c.request(TimeGet(), TypeTimeReport, nil)
	if err != nil {
		return time.Time{}, err
	}
	return ParseTime(p)
}

// LightDB fetches the light database
func (c *Client) LightDB() ([]LightRecord, error) {
	p, err := c.request(LightDBGet(), TypeLightDBReport, nil)
	if err != nil {
		return nil, err
	}
	return ParseLightDB(p.Payload)
}

// ShutterDB fetches the shutter database
func (c *Client) ShutterDB() ([]ShutterRecord, error) {
	p, err := c.request(ShutterDBGet(), TypeShutterDBReport, nil)
	if err != nil {
		return nil, err
	}
	return ParseShutterDB(p.Payload)
}

// History fetches the change history, oldest first
func (c *Client) History() ([]HistoryRecord, error) {
	p, err := c.request(HistoryGet(), TypeHistoryReport, nil)
	if err != nil {
		return nil, err
	}
	return ParseHistory(p.Payload)
}

// LightStatus asks for the state of one light
func (c *Client) LightStatus(module, output byte) (int, error) {
	p, err := c.request(LightStatusGet(module, output), TypeLightStatusReport, matchChannel(module, output))
	if err != nil {
		return StateUnknown, err
	}
	s, err := ParseLightStatus(p)
	return s.Value, err
}

// ShutterStatus asks for the estimated position of one shutter
func (c *Client) ShutterStatus(module, run byte) (int, error) {
	p, err := c.request(ShutterStatusGet(module, run), TypeShutterStatusReport, matchChannel(module, run))
	if err != nil {
		return 0, err
	}
	s, err := ParseShutterStatus(p)
	return s.Value, err
}

// SetLight sets a light to value percent. The gateway does not reply.
func (c *Client) SetLight(module, output byte, value int) error {
	return c.Send(LightStatusSet(module, output, value))
}

// SetShutter moves a shutter into [minPct, maxPct]. The gateway does not reply.
func (c *Client) SetShutter(module, run byte, minPct, maxPct int) error {
	return c.Send(ShutterStatusSet(module, run, minPct, maxPct))
}

// SendRaw puts a frame without CRC on the bus
func (c *Client) SendRaw(frame []byte) error {
	return c.Send(RawSend(frame))
}

func matchChannel(module, channel byte) func(*Packet) bool {
	return func(p *Packet) bool {
		return len(p.Payload) >= 2 && p.Payload[0] == module && p.Payload[1] == channel
	}
}
