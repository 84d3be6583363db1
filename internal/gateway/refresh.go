// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gateway

import (
	log "github.com/sirupsen/logrus"

	"github.com/Thermoquad/yali/pkg/lcn"
)

// refresh runs once per tick. A due delayed command takes the whole tick;
// otherwise, at most once per second, the status of the module with the
// stalest light is requested.
func (g *Gateway) refresh() {
	if f, ok := g.delayed.PopDue(g.tick); ok {
		log.Debugf("Timed: %s", lcn.FormatFrame(f))
		g.sendq.Enqueue(f)
		return
	}

	now := g.now().Unix()
	if now == g.lastRefresh {
		return
	}

	l := g.store.StalestLight(g.opts.RefreshInterval)
	if l == nil {
		return
	}

	log.WithFields(log.Fields{
		"module": l.Module,
		"light":  l.Name,
	}).Debug("Requesting status")

	g.sendq.Enqueue(lcn.NewStatusRequest(l.Module))
	l.Updated = now
	g.lastRefresh = now
}
