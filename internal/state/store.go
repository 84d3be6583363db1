// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package state holds the gateway's view of the installation: configured
// lights with their last known level, shutters with an estimated position
// interval, and a ring of recent changes.
package state

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Thermoquad/yali/pkg/lcn"
	"github.com/Thermoquad/yali/pkg/yali"
)

// Notifier receives every state change that clients should hear about.
type Notifier interface {
	LightChanged(module, output byte, state int)
	ShutterChanged(module, run byte, position int)
}

// Scheduler queues bus frames for transmission at a future tick.
type Scheduler interface {
	Schedule(tick uint64, f lcn.Frame)
}

// Light is a configured light output
type Light struct {
	Module  byte
	Output  byte
	Name    string
	State   int   // yali.StateUnknown or 0..100
	Updated int64 // unix seconds of the last report
}

// Store owns all endpoint state. It is not safe for concurrent use; the
// gateway reactor is its only caller.
type Store struct {
	lights   []*Light
	shutters []*Shutter
	history  History
	notify   Notifier
	sched    Scheduler
	now      func() time.Time
}

// NewStore creates an empty store. Either collaborator may be nil.
func NewStore(notify Notifier, sched Scheduler) *Store {
	return &Store{notify: notify, sched: sched, now: time.Now}
}

// SetNotifier replaces the change listener
func (s *Store) SetNotifier(n Notifier) {
	s.notify = n
}

// SetScheduler replaces the delayed command sink
func (s *Store) SetScheduler(sc Scheduler) {
	s.sched = sc
}

// SetClock replaces the wall clock used for history and refresh times
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// AddLight registers a light with unknown state
func (s *Store) AddLight(module, output byte, name string) *Light {
	l := &Light{Module: module, Output: output, Name: name, State: yali.StateUnknown}
	s.lights = append(s.lights, l)
	return l
}

// AddShutter registers a shutter with a fully uncertain position
func (s *Store) AddShutter(module, run byte, name string, upTime, downTime float64) (*Shutter, error) {
	if run < 1 || run > lcn.RelaySlots {
		return nil, fmt.Errorf("shutter %q: run %d out of range 1..%d", name, run, lcn.RelaySlots)
	}
	if upTime <= 0 || downTime <= 0 {
		return nil, fmt.Errorf("shutter %q: travel times must be positive", name)
	}
	sh := &Shutter{
		Module:   module,
		Run:      run,
		Name:     name,
		UpTime:   upTime,
		DownTime: downTime,
		PosMin:   0,
		PosMax:   1,
	}
	s.shutters = append(s.shutters, sh)
	return sh, nil
}

// Lights returns the configured lights in configuration order
func (s *Store) Lights() []*Light {
	return s.lights
}

// Shutters returns the configured shutters in configuration order
func (s *Store) Shutters() []*Shutter {
	return s.shutters
}

// Light returns the first light matching module and output
func (s *Store) Light(module, output byte) *Light {
	for _, l := range s.lights {
		if l.Module == module && l.Output == output {
			return l
		}
	}
	return nil
}

// Shutter returns the shutter matching module and run
func (s *Store) Shutter(module, run byte) *Shutter {
	for _, sh := range s.shutters {
		if sh.Module == module && sh.Run == run {
			return sh
		}
	}
	return nil
}

// IsKnownAddress implements lcn.AddressBook: configured light and shutter
// modules and the broadcast address are known.
func (s *Store) IsKnownAddress(addr byte) bool {
	if addr == lcn.AddressBroadcast {
		return true
	}
	for _, l := range s.lights {
		if l.Module == addr {
			return true
		}
	}
	for _, sh := range s.shutters {
		if sh.Module == addr {
			return true
		}
	}
	return false
}

// UpdateLight applies a reported level to every light matching module and
// output. Changes are recorded in the history and announced; the report
// time is refreshed either way. It returns true if any state changed.
func (s *Store) UpdateLight(module, output byte, value int) bool {
	now := s.now().Unix()
	changed := false

	for _, l := range s.lights {
		if l.Module != module || l.Output != output {
			continue
		}
		l.Updated = now
		if l.State == value {
			continue
		}

		log.WithFields(log.Fields{
			"light": l.Name,
			"from":  l.State,
			"to":    value,
		}).Debug("Light changed")

		s.record(yali.HistoryKindLight, module, output, value)
		l.State = value
		changed = true
		if s.notify != nil {
			s.notify.LightChanged(module, output, value)
		}
	}
	return changed
}

// ScheduleRefresh back-dates the report time of every light on module so
// the refresh pass requests its status early.
func (s *Store) ScheduleRefresh(module byte, back time.Duration) {
	t := s.now().Add(-back).Unix()
	for _, l := range s.lights {
		if l.Module == module {
			l.Updated = t
		}
	}
}

// StalestLight returns the light whose last report is furthest beyond
// interval, or nil if every light is fresh.
func (s *Store) StalestLight(interval time.Duration) *Light {
	now := s.now().Unix()
	var stalest *Light
	var most int64
	for _, l := range s.lights {
		over := now - (l.Updated + int64(interval/time.Second))
		if over > most {
			stalest = l
			most = over
		}
	}
	return stalest
}

// LightRecords returns the light database
func (s *Store) LightRecords() []yali.LightRecord {
	out := make([]yali.LightRecord, len(s.lights))
	for i, l := range s.lights {
		out[i] = yali.LightRecord{Module: l.Module, Output: l.Output, State: l.State, Name: l.Name}
	}
	return out
}

// ShutterRecords returns the shutter database
func (s *Store) ShutterRecords() []yali.ShutterRecord {
	out := make([]yali.ShutterRecord, len(s.shutters))
	for i, sh := range s.shutters {
		out[i] = sh.Record()
	}
	return out
}

// ExportHistory returns the history ring, oldest record first
func (s *Store) ExportHistory() []byte {
	return s.history.Export()
}

func (s *Store) record(kind, module, channel byte, value int) {
	s.history.Append(yali.HistoryRecord{
		Time:    uint32(s.now().Unix()),
		Kind:    kind,
		Module:  module,
		Channel: channel,
		Value:   byte(value),
	})
}
