// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package state

import (
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/Thermoquad/yali/pkg/lcn"
	"github.com/Thermoquad/yali/pkg/yali"
)

// Estimator timing
const (
	TickSeconds = 0.1
	// TimingMargin is the uncertainty of one observed movement interval
	// (90% confidence over three samples).
	TimingMargin = 0.064
	// TravelMargin widens the interval of a commanded movement.
	TravelMargin = 0.1

	tickWrap = 429496729.6
)

// Shutter is a configured shutter. Its position is never observed; PosMin
// and PosMax bound it as a fraction of full travel (0 closed, 1 open).
type Shutter struct {
	Module   byte
	Run      byte
	Name     string
	UpTime   float64 // seconds for full travel up
	DownTime float64 // seconds for full travel down
	PosMin   float64
	PosMax   float64
	Move     int     // +1 up, -1 down, 0 stopped
	Sampled  float64 // tick time of the last movement change, seconds
}

// Position returns the midpoint of the estimate in percent
func (sh *Shutter) Position() int {
	return int(math.Floor(0.5 + 50*(sh.PosMin+sh.PosMax)))
}

// Record returns the database entry of the shutter
func (sh *Shutter) Record() yali.ShutterRecord {
	return yali.ShutterRecord{
		Module: sh.Module,
		Run:    sh.Run,
		Min:    int(math.Floor(0.5 + 100*sh.PosMin)),
		Max:    int(math.Floor(0.5 + 100*sh.PosMax)),
		Name:   sh.Name,
	}
}

// elapsed returns the time moved since the last sample, widened by the
// timing margin.
func (sh *Shutter) elapsed(tick uint64) (minT, maxT float64) {
	d := TickSeconds*float64(tick) - sh.Sampled
	for d < 0 {
		d += tickWrap
	}
	return math.Max(0, d-TimingMargin), d + TimingMargin
}

// UpdateShutter applies an observed relay command: the movement since the
// last sample is folded into the estimate and dir becomes the new
// movement. Unknown shutters are ignored.
func (s *Store) UpdateShutter(module, run byte, dir int, tick uint64) {
	sh := s.Shutter(module, run)
	if sh == nil {
		log.WithFields(log.Fields{"module": module, "run": run}).Debug("Command to unknown shutter")
		return
	}

	minT, maxT := sh.elapsed(tick)
	switch {
	case sh.Move > 0:
		sh.PosMin = math.Min(1, sh.PosMin+minT/sh.UpTime)
		sh.PosMax = math.Min(1, sh.PosMax+maxT/sh.UpTime)
	case sh.Move < 0:
		sh.PosMin = math.Max(0, sh.PosMin-maxT/sh.DownTime)
		sh.PosMax = math.Max(0, sh.PosMax-minT/sh.DownTime)
	}
	sh.Sampled = TickSeconds * float64(tick)

	log.WithFields(log.Fields{
		"shutter":   sh.Name,
		"min":       sh.PosMin,
		"max":       sh.PosMax,
		"direction": dir,
	}).Debug("Shutter moved")

	s.record(yali.HistoryKindShutter, module, run, sh.Position())
	if sh.Move != 0 {
		s.announceShutter(sh)
	}
	sh.Move = dir
}

// CheckShutters detects moving shutters that must have reached an end
// stop and collapses their estimate to the limit.
func (s *Store) CheckShutters(tick uint64) {
	for _, sh := range s.shutters {
		minT, _ := sh.elapsed(tick)

		switch {
		case sh.Move > 0 && sh.PosMin+minT/sh.UpTime >= 1:
			sh.PosMin, sh.PosMax = 1, 1
		case sh.Move < 0 && sh.PosMax-minT/sh.DownTime <= 0:
			sh.PosMin, sh.PosMax = 0, 0
		default:
			continue
		}

		sh.Move = 0
		log.WithFields(log.Fields{"shutter": sh.Name, "position": sh.Position()}).Debug("Shutter at end stop")
		s.record(yali.HistoryKindShutter, sh.Module, sh.Run, sh.Position())
		s.announceShutter(sh)
	}
}

// CommandShutter moves a shutter into the requested range, given in
// percent and clamped to 0..100. It returns false if the shutter is unknown or already inside
// the range.
func (s *Store) CommandShutter(module, run byte, minPct, maxPct int, tick uint64) bool {
	sh := s.Shutter(module, run)
	if sh == nil {
		log.WithFields(log.Fields{"module": module, "run": run}).Debug("Command to unknown shutter")
		return false
	}
	minPct = max(0, min(minPct, 100))
	maxPct = max(0, min(maxPct, 100))
	if minPct > maxPct {
		minPct, maxPct = maxPct, minPct
	}

	lo, hi := 100*sh.PosMin, 100*sh.PosMax
	reqMin, reqMax := float64(minPct), float64(maxPct)

	var target int
	switch {
	case maxPct == 0 || (minPct == 0 && reqMax > hi):
		target = 0
	case minPct == 100 || (maxPct == 100 && reqMin < lo):
		target = 100
	case reqMax < lo || reqMin > hi:
		target = (minPct + maxPct) / 2
	case reqMin < lo && reqMax > hi:
		return false
	default:
		target = (minPct + maxPct) / 2
	}

	s.adapt(sh, float64(target)/100, tick)
	return true
}

// adapt drives the shutter toward target (0..1). The travel time is
// estimated pessimistically for the end positions so the shutter reaches
// the stop. A start command is scheduled for the next tick and a stop
// command once the travel time has passed.
func (s *Store) adapt(sh *Shutter, target float64, tick uint64) {
	var pos float64
	switch target {
	case 0:
		pos = sh.PosMax + 0.5
	case 1:
		pos = sh.PosMin - 0.5
	default:
		pos = 0.5 * (sh.PosMin + sh.PosMax)
	}

	diff := target - pos
	var travel float64
	var action lcn.RelayAction
	if diff > 0 {
		travel = diff * sh.UpTime
		sh.PosMin += (travel - TravelMargin) / sh.UpTime
		sh.PosMax += (travel + TravelMargin) / sh.UpTime
		action = lcn.RelayUp
	} else {
		travel = -diff * sh.DownTime
		sh.PosMin -= (travel + TravelMargin) / sh.DownTime
		sh.PosMax -= (travel - TravelMargin) / sh.DownTime
		action = lcn.RelayDown
	}
	sh.PosMin = clamp01(sh.PosMin)
	sh.PosMax = clamp01(sh.PosMax)

	log.WithFields(log.Fields{
		"shutter": sh.Name,
		"action":  action,
		"travel":  travel,
	}).Info("Moving shutter")

	s.announceShutter(sh)

	if s.sched == nil {
		return
	}
	start, _ := lcn.NewRelayCommand(sh.Module, int(sh.Run), action)
	stop, _ := lcn.NewRelayCommand(sh.Module, int(sh.Run), lcn.RelayStop)
	s.sched.Schedule(tick+1, start)
	s.sched.Schedule(tick+1+uint64(math.Floor(10*travel+0.5)), stop)
}

func (s *Store) announceShutter(sh *Shutter) {
	if s.notify != nil {
		s.notify.ShutterChanged(sh.Module, sh.Run, sh.Position())
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
