// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gateway

import (
	log "github.com/sirupsen/logrus"

	"github.com/Thermoquad/yali/pkg/lcn"
	"github.com/Thermoquad/yali/pkg/yali"
)

// dispatch executes one client request. c is nil for submitted requests.
func (g *Gateway) dispatch(c *client, p *yali.Packet) {
	log.Debugf("NET<<< %s", p)

	switch p.Type {
	case yali.TypeEmpty:

	case yali.TypeVersionGet:
		g.reply(c, yali.VersionReport())

	case yali.TypeTimeGet:
		g.reply(c, yali.TimeReport(g.now()))

	case yali.TypeLightStatusSet:
		if g.short(p, 3) {
			return
		}
		g.setLight(p.Payload[0], p.Payload[1], int(p.Payload[2]))

	case yali.TypeLightStatusGet:
		if g.short(p, 2) {
			return
		}
		if l := g.store.Light(p.Payload[0], p.Payload[1]); l != nil {
			g.reply(c, yali.LightStatusReport(l.Module, l.Output, l.State))
		}

	case yali.TypeShutterStatusSet:
		if g.short(p, 4) {
			return
		}
		g.setShutter(p.Payload[0], p.Payload[1], int(p.Payload[2]), int(p.Payload[3]))

	case yali.TypeShutterStatusGet:
		if g.short(p, 2) {
			return
		}
		if sh := g.store.Shutter(p.Payload[0], p.Payload[1]); sh != nil {
			g.reply(c, yali.ShutterStatusReport(sh.Module, sh.Run, sh.Position()))
		}

	case yali.TypeShutterDBGet:
		report, err := yali.ShutterDBReport(g.store.ShutterRecords())
		g.replyOrLog(c, report, err)

	case yali.TypeLightDBGet:
		report, err := yali.LightDBReport(g.store.LightRecords())
		g.replyOrLog(c, report, err)

	case yali.TypeHistoryGet:
		report, err := yali.HistoryReport(g.store.ExportHistory())
		g.replyOrLog(c, report, err)

	case yali.TypeRawSend:
		g.sendRaw(p.Payload)

	default:
		g.reply(c, yali.ErrorReport(yali.ErrCodeIllegalType, "received illegal code"))
	}
}

func (g *Gateway) short(p *yali.Packet, n int) bool {
	if len(p.Payload) >= n {
		return false
	}
	log.WithFields(log.Fields{
		"type": p.Type.String(),
		"len":  len(p.Payload),
	}).Debug("Ignoring short request")
	return true
}

func (g *Gateway) replyOrLog(c *client, p *yali.Packet, err error) {
	if err != nil {
		log.WithError(err).Error("Failed to build report")
		return
	}
	g.reply(c, p)
}

func (g *Gateway) setLight(module, output byte, value int) {
	if value > 100 {
		value = 100
	}

	if g.TestMode() {
		g.store.UpdateLight(module, output, value)
		return
	}

	f, err := lcn.NewOutputCommand(module, int(output), value)
	if err != nil {
		log.WithError(err).Debug("Ignoring light request")
		return
	}
	g.sendq.Enqueue(f)
}

func (g *Gateway) setShutter(module, run byte, minPct, maxPct int) {
	if g.TestMode() {
		log.WithFields(log.Fields{
			"module": module,
			"run":    run,
		}).Debug("Shutter request ignored in test mode")
		return
	}

	if !g.store.CommandShutter(module, run, minPct, maxPct, g.tick) {
		log.WithFields(log.Fields{
			"module": module,
			"run":    run,
		}).Debug("Shutter request for unknown or settled shutter")
	}
}

// sendRaw queues a frame given without its checksum. In test mode the frame
// is applied as if it had been seen on the bus.
func (g *Gateway) sendRaw(payload []byte) {
	f, err := lcn.NewFrameFromPayload(payload)
	if err != nil {
		log.WithError(err).Debug("Ignoring raw frame")
		return
	}

	if g.TestMode() {
		g.apply(f)
		return
	}
	g.sendq.Enqueue(f)
}
