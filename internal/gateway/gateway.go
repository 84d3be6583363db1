// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package gateway connects the bus to TCP clients. A single reactor
// goroutine owns the state store, the bus queues and the client table;
// every other goroutine only moves bytes and hands them to the reactor
// through channels.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Thermoquad/yali/internal/state"
	"github.com/Thermoquad/yali/pkg/lcn"
	"github.com/Thermoquad/yali/pkg/yali"
)

// ErrServerClosed is returned by Run after its context is cancelled.
var ErrServerClosed = errors.New("gateway: server closed")

// Observer hears about state changes and failed deliveries, in addition to
// the connected clients.
type Observer interface {
	state.Notifier
	DeliveryFailed(dst byte)
}

// Options tunes the reactor. Zero values select the defaults.
type Options struct {
	MaxClients      int
	ForwardRaw      bool
	Tick            time.Duration
	RefreshInterval time.Duration
	ScheduleBack    time.Duration
	StatsInterval   time.Duration // 0 disables periodic statistics logging
}

func (o *Options) setDefaults() {
	if o.MaxClients <= 0 {
		o.MaxClients = 4
	}
	if o.Tick <= 0 {
		o.Tick = 100 * time.Millisecond
	}
	if o.RefreshInterval <= 0 {
		o.RefreshInterval = 600 * time.Second
	}
	if o.ScheduleBack < 0 {
		o.ScheduleBack = 0
	}
}

type clientInput struct {
	c    *client
	data []byte
	err  error
}

// Gateway is the reactor. All fields are owned by the goroutine running Run.
type Gateway struct {
	opts     Options
	store    *state.Store
	bus      io.ReadWriter // nil in test mode
	decoder  *lcn.Decoder
	sendq    *lcn.SendQueue
	delayed  *lcn.DelayedQueue
	stats    *lcn.Statistics
	capture  *lcn.CaptureWriter
	observer Observer
	now      func() time.Time

	clients     []*client
	tick        uint64
	lastRefresh int64

	connCh  chan net.Conn
	inCh    chan clientInput
	busCh   chan []byte
	busErrs chan error
	cmdCh   chan *yali.Packet
	done    chan struct{}
}

// New creates a gateway around store. With a nil bus the gateway runs in
// test mode: set requests change the store directly.
func New(store *state.Store, bus io.ReadWriter, opts Options) *Gateway {
	opts.setDefaults()

	g := &Gateway{
		opts:    opts,
		store:   store,
		bus:     bus,
		decoder: lcn.NewDecoder(store),
		sendq:   lcn.NewSendQueue(),
		delayed: lcn.NewDelayedQueue(),
		stats:   lcn.NewStatistics(),
		now:     time.Now,
		clients: make([]*client, opts.MaxClients),
		connCh:  make(chan net.Conn),
		inCh:    make(chan clientInput, 16),
		busCh:   make(chan []byte, 16),
		busErrs: make(chan error, 1),
		cmdCh:   make(chan *yali.Packet),
		done:    make(chan struct{}),
	}
	store.SetNotifier(g)
	store.SetScheduler(g)
	return g
}

// SetObserver installs an additional listener for state changes
func (g *Gateway) SetObserver(o Observer) {
	g.observer = o
}

// SetCapture records all bus traffic to w
func (g *Gateway) SetCapture(w *lcn.CaptureWriter) {
	g.capture = w
}

// SetClock replaces the wall clock of the gateway and its store
func (g *Gateway) SetClock(now func() time.Time) {
	g.now = now
	g.store.SetClock(now)
}

// TestMode reports whether the gateway runs without a bus
func (g *Gateway) TestMode() bool {
	return g.bus == nil
}

// Submit hands a request to the reactor as if a client had sent it. Replies
// are discarded. It returns once the reactor has taken the request, so
// requests that follow it are handled after it.
func (g *Gateway) Submit(p *yali.Packet) error {
	select {
	case g.cmdCh <- p:
		return nil
	case <-g.done:
		return ErrServerClosed
	}
}

// Run serves clients from ln until ctx is cancelled. It closes ln and all
// client connections before returning ErrServerClosed.
func (g *Gateway) Run(ctx context.Context, ln net.Listener) error {
	defer close(g.done)

	acceptErrs := make(chan error, 1)
	go g.acceptLoop(ln, acceptErrs)
	defer ln.Close()

	busCh := g.busCh
	if g.bus != nil {
		go g.readBus()
	}

	ticker := time.NewTicker(g.opts.Tick)
	defer ticker.Stop()

	log.WithFields(log.Fields{
		"addr":      ln.Addr().String(),
		"test_mode": g.TestMode(),
	}).Info("Gateway listening")

	for {
		select {
		case <-ctx.Done():
			g.shutdown()
			return ErrServerClosed

		case err := <-acceptErrs:
			g.shutdown()
			return fmt.Errorf("accept failed: %w", err)

		case conn := <-g.connCh:
			g.accept(conn)

		case in := <-g.inCh:
			if in.err != nil {
				g.disconnect(in.c, in.err)
				continue
			}
			g.handleClientData(in.c, in.data)

		case data := <-busCh:
			g.handleBusData(data)

		case err := <-g.busErrs:
			log.WithError(err).Error("Bus read failed, no further bus input")
			busCh = nil

		case p := <-g.cmdCh:
			g.dispatch(nil, p)

		case <-ticker.C:
			g.onTick()
		}
	}
}

func (g *Gateway) acceptLoop(ln net.Listener, errs chan<- error) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-g.done:
			default:
				errs <- err
			}
			return
		}
		select {
		case g.connCh <- conn:
		case <-g.done:
			conn.Close()
			return
		}
	}
}

func (g *Gateway) readBus() {
	buf := make([]byte, lcn.ReceiveBufSize)
	for {
		n, err := g.bus.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case g.busCh <- data:
			case <-g.done:
				return
			}
		}
		if err != nil {
			select {
			case g.busErrs <- err:
			case <-g.done:
			}
			return
		}
	}
}

// onTick advances the time base by one tick.
func (g *Gateway) onTick() {
	g.tick++

	if g.bus != nil {
		g.sendNext()
		g.refresh()
	}
	g.store.CheckShutters(g.tick)

	if g.opts.StatsInterval > 0 {
		every := uint64(g.opts.StatsInterval / g.opts.Tick)
		if every > 0 && g.tick%every == 0 {
			g.logStatistics()
		}
	}
}

func (g *Gateway) logStatistics() {
	g.stats.CalculateRates()
	log.WithFields(log.Fields{
		"frames":    g.stats.Frames,
		"garbage":   g.stats.GarbageBytes,
		"sent":      g.stats.Sent,
		"retries":   g.stats.Retransmissions,
		"failures":  g.stats.DeliveryFailures,
		"frame_sec": fmt.Sprintf("%.1f", g.stats.FrameRate),
	}).Info("Bus statistics")
}

func (g *Gateway) shutdown() {
	for _, c := range g.clients {
		if c != nil {
			g.drop(c)
		}
	}
	if g.capture != nil {
		if err := g.capture.Close(); err != nil {
			log.WithError(err).Warn("Failed to close capture")
		}
	}
	log.Info("Gateway stopped")
}
