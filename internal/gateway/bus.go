// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gateway

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/Thermoquad/yali/pkg/lcn"
	"github.com/Thermoquad/yali/pkg/yali"
)

// handleBusData feeds received bus bytes through the decoder and applies
// every validated frame.
func (g *Gateway) handleBusData(data []byte) {
	for _, p := range g.decoder.Feed(data, g.tick) {
		g.stats.Received(p)
		g.record(p)

		if !p.IsFrame() {
			log.WithFields(log.Fields{
				"kind":  p.Kind().String(),
				"bytes": lcn.HexDump(p.Bytes()),
			}).Debug("Discarded bus bytes")
			continue
		}

		f := p.Frame()
		log.Debugf("LCN<<< %s", lcn.FormatFrame(f))

		if g.sendq.Acknowledge(f) {
			log.WithField("module", f.Source()).Debug("Ack received")
		}
		if g.opts.ForwardRaw {
			g.broadcast(yali.RawReceived(f))
		}
		g.apply(f)
	}
}

// apply updates the store from a frame seen on the bus.
func (g *Gateway) apply(f lcn.Frame) {
	updates := lcn.Interpret(f)
	if len(updates) == 0 {
		g.stats.UnknownFrames++
		return
	}

	for _, u := range updates {
		switch u.Kind {
		case lcn.UpdateLight:
			g.store.UpdateLight(u.Module, byte(u.Channel), u.Value)
		case lcn.UpdateShutter:
			g.store.UpdateShutter(u.Module, byte(u.Channel), u.Value, g.tick)
		case lcn.UpdateRefresh:
			g.store.ScheduleRefresh(u.Module, g.opts.ScheduleBack)
		}
	}
}

// sendNext puts at most one frame on the bus.
func (g *Gateway) sendNext() {
	tx, retry, dropped := g.sendq.Next()
	if dropped != nil {
		g.deliveryFailed(dropped)
	}
	if tx == nil {
		return
	}

	if _, err := g.bus.Write(tx); err != nil {
		log.WithError(err).Warn("Bus write failed")
		return
	}
	g.stats.Transmitted(retry)
	if g.capture != nil {
		if err := g.capture.WriteFrame(tx, g.tick); err != nil {
			log.WithError(err).Warn("Capture failed")
		}
	}

	if retry {
		log.Debugf("LCN>>> (retry %d) %s", g.sendq.Attempts(), lcn.FormatFrame(tx))
	} else {
		log.Debugf("LCN>>> %s", lcn.FormatFrame(tx))
	}
}

// deliveryFailed reports a frame that was never acknowledged.
func (g *Gateway) deliveryFailed(f lcn.Frame) {
	dst := f.Destination()
	g.stats.DeliveryFailed()

	log.WithFields(log.Fields{
		"module":   dst,
		"attempts": lcn.MaxSendAttempts,
	}).Warn("Bus delivery failed")

	g.broadcast(yali.ErrorReport(yali.ErrCodeDeliveryFailed, fmt.Sprintf("bus delivery failed M%02d", dst)))
	if g.observer != nil {
		g.observer.DeliveryFailed(dst)
	}
}

func (g *Gateway) record(p *lcn.Packet) {
	if g.capture == nil {
		return
	}
	if err := g.capture.WritePacket(p); err != nil {
		log.WithError(err).Warn("Capture failed")
	}
}

// LightChanged implements state.Notifier
func (g *Gateway) LightChanged(module, output byte, state int) {
	g.broadcast(yali.LightStatusReport(module, output, state))
	if g.observer != nil {
		g.observer.LightChanged(module, output, state)
	}
}

// ShutterChanged implements state.Notifier
func (g *Gateway) ShutterChanged(module, run byte, position int) {
	g.broadcast(yali.ShutterStatusReport(module, run, position))
	if g.observer != nil {
		g.observer.ShutterChanged(module, run, position)
	}
}

// Schedule implements state.Scheduler
func (g *Gateway) Schedule(tick uint64, f lcn.Frame) {
	g.delayed.Insert(tick, f)
}
