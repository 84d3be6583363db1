// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gateway

import (
	"errors"
	"io"
	"net"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Thermoquad/yali/pkg/yali"
)

// outboxSize is the number of replies a client may lag behind before it is
// disconnected.
const outboxSize = 64

// refuseTimeout bounds the error report written to a refused connection.
const refuseTimeout = time.Second

type client struct {
	slot  int
	conn  net.Conn
	reasm *yali.Reassembler
	send  chan *yali.Packet
}

// accept puts conn into a free slot or refuses it with an error report.
func (g *Gateway) accept(conn net.Conn) {
	slot := -1
	for i, c := range g.clients {
		if c == nil {
			slot = i
			break
		}
	}

	if slot < 0 {
		log.WithField("remote", conn.RemoteAddr().String()).Warn("Refusing client, server full")
		go refuse(conn)
		return
	}

	c := &client{
		slot:  slot,
		conn:  conn,
		reasm: yali.NewReassembler(),
		send:  make(chan *yali.Packet, outboxSize),
	}
	g.clients[slot] = c

	go g.readClient(c)
	go writeClient(c)

	log.WithFields(log.Fields{
		"client": slot,
		"remote": conn.RemoteAddr().String(),
	}).Info("Client connected")
}

func refuse(conn net.Conn) {
	defer conn.Close()
	conn.SetWriteDeadline(time.Now().Add(refuseTimeout))
	yali.WritePacket(conn, yali.ErrorReport(yali.ErrCodeServerFull, "too many clients"))
}

func (g *Gateway) readClient(c *client) {
	buf := make([]byte, yali.ReceiveBufSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case g.inCh <- clientInput{c: c, data: data}:
			case <-g.done:
				return
			}
		}
		if err != nil {
			select {
			case g.inCh <- clientInput{c: c, err: err}:
			case <-g.done:
			}
			return
		}
	}
}

func writeClient(c *client) {
	for p := range c.send {
		if err := yali.WritePacket(c.conn, p); err != nil {
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
}

// active reports whether c still holds its slot.
func (g *Gateway) active(c *client) bool {
	return c != nil && c.slot < len(g.clients) && g.clients[c.slot] == c
}

func (g *Gateway) handleClientData(c *client, data []byte) {
	if !g.active(c) {
		return
	}
	for _, p := range c.reasm.Feed(data) {
		g.dispatch(c, p)
	}
}

func (g *Gateway) disconnect(c *client, err error) {
	if !g.active(c) {
		return
	}
	entry := log.WithField("client", c.slot)
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		entry.Info("Client disconnected")
	} else {
		entry.WithError(err).Warn("Client connection failed")
	}
	g.drop(c)
}

// drop frees the slot of c and closes its connection.
func (g *Gateway) drop(c *client) {
	g.clients[c.slot] = nil
	close(c.send)
	c.conn.Close()
}

// reply queues p for c. A nil client stands for a request submitted by the
// gateway itself and discards the reply.
func (g *Gateway) reply(c *client, p *yali.Packet) {
	if c == nil {
		return
	}
	select {
	case c.send <- p:
	default:
		log.WithField("client", c.slot).Warn("Client too slow, closing connection")
		c.conn.Close()
	}
}

func (g *Gateway) broadcast(p *yali.Packet) {
	for _, c := range g.clients {
		if c != nil {
			g.reply(c, p)
		}
	}
}

// Clients returns the number of connected clients
func (g *Gateway) Clients() int {
	n := 0
	for _, c := range g.clients {
		if c != nil {
			n++
		}
	}
	return n
}
