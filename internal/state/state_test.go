// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package state

import (
	"math"
	"testing"
	"time"

	"github.com/Thermoquad/yali/pkg/lcn"
	"github.com/Thermoquad/yali/pkg/yali"
)

// ============================================================
// Test Helpers
// ============================================================

type change struct {
	shutter bool
	module  byte
	channel byte
	value   int
}

type recorder struct {
	changes   []change
	scheduled []lcn.DelayedCommand
}

func (r *recorder) LightChanged(module, output byte, state int) {
	r.changes = append(r.changes, change{false, module, output, state})
}

func (r *recorder) ShutterChanged(module, run byte, position int) {
	r.changes = append(r.changes, change{true, module, run, position})
}

func (r *recorder) Schedule(tick uint64, f lcn.Frame) {
	r.scheduled = append(r.scheduled, lcn.DelayedCommand{Tick: tick, Frame: f})
}

var epoch = time.Unix(1700000000, 0)

func newTestStore() (*Store, *recorder) {
	r := &recorder{}
	s := NewStore(r, r)
	s.SetClock(func() time.Time { return epoch })
	return s, r
}

func mustShutter(t *testing.T, s *Store, module, run byte, up, down float64) *Shutter {
	t.Helper()
	sh, err := s.AddShutter(module, run, "Terrace", up, down)
	if err != nil {
		t.Fatalf("AddShutter error: %v", err)
	}
	return sh
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// ============================================================
// Light Tests
// ============================================================

func TestUpdateLight_RecordsChangeOnce(t *testing.T) {
	s, r := newTestStore()
	s.AddLight(5, 1, "Kitchen")

	if !s.UpdateLight(5, 1, 50) {
		t.Fatal("First update should change the state")
	}

	history, err := yali.ParseHistory(s.ExportHistory())
	if err != nil {
		t.Fatalf("ParseHistory error: %v", err)
	}
	expected := yali.HistoryRecord{
		Time:    uint32(epoch.Unix()),
		Kind:    yali.HistoryKindLight,
		Module:  5,
		Channel: 1,
		Value:   50,
	}
	if len(history) != 1 || history[0] != expected {
		t.Fatalf("Unexpected history %+v", history)
	}
	if len(r.changes) != 1 || r.changes[0] != (change{false, 5, 1, 50}) {
		t.Errorf("Unexpected notifications %+v", r.changes)
	}

	if s.UpdateLight(5, 1, 50) {
		t.Error("Repeated value should not change the state")
	}
	if len(s.ExportHistory()) != yali.HistoryRecordSize {
		t.Error("Repeated value should not be recorded")
	}
	if len(r.changes) != 1 {
		t.Error("Repeated value should not be announced")
	}
}

func TestUpdateLight_RefreshesTimestamp(t *testing.T) {
	s, _ := newTestStore()
	l := s.AddLight(5, 1, "Kitchen")
	l.State = 50

	s.UpdateLight(5, 1, 50)
	if l.Updated != epoch.Unix() {
		t.Errorf("Updated = %d, want %d", l.Updated, epoch.Unix())
	}
}

func TestUpdateLight_AllMatches(t *testing.T) {
	s, r := newTestStore()
	a := s.AddLight(5, 1, "Kitchen")
	b := s.AddLight(5, 1, "Kitchen duplicate")
	s.AddLight(5, 2, "Hall")

	s.UpdateLight(5, 1, 100)
	if a.State != 100 || b.State != 100 {
		t.Errorf("Both entries should change: %d, %d", a.State, b.State)
	}
	if len(r.changes) != 2 {
		t.Errorf("Expected 2 notifications, got %d", len(r.changes))
	}
	if s.Light(5, 2).State != yali.StateUnknown {
		t.Error("Other output should be untouched")
	}
}

func TestUpdateLight_Unknown(t *testing.T) {
	s, r := newTestStore()
	s.AddLight(5, 1, "Kitchen")
	if s.UpdateLight(6, 1, 50) {
		t.Error("Unknown light should not change anything")
	}
	if len(s.ExportHistory()) != 0 || len(r.changes) != 0 {
		t.Error("Unknown light should not be recorded")
	}
}

func TestIsKnownAddress(t *testing.T) {
	s, _ := newTestStore()
	s.AddLight(5, 1, "Kitchen")
	mustShutter(t, s, 9, 1, 10, 10)

	for _, tt := range []struct {
		addr  byte
		known bool
	}{{1, true}, {5, true}, {9, true}, {7, false}, {0, false}} {
		if got := s.IsKnownAddress(tt.addr); got != tt.known {
			t.Errorf("IsKnownAddress(%d) = %v, want %v", tt.addr, got, tt.known)
		}
	}
}

func TestRefreshSelection(t *testing.T) {
	s, _ := newTestStore()
	now := epoch
	s.SetClock(func() time.Time { return now })

	kitchen := s.AddLight(5, 1, "Kitchen")
	hall := s.AddLight(7, 1, "Hall")
	kitchen.Updated = now.Unix()
	hall.Updated = now.Unix()

	if l := s.StalestLight(600 * time.Second); l != nil {
		t.Fatalf("Fresh lights selected: %s", l.Name)
	}

	s.ScheduleRefresh(7, 55*time.Second)
	if hall.Updated != now.Unix()-55 {
		t.Errorf("Back-dated time = %d", hall.Updated)
	}

	now = now.Add(600*time.Second - 54*time.Second)
	if l := s.StalestLight(600 * time.Second); l != hall {
		t.Errorf("Expected the back-dated light, got %v", l)
	}

	now = now.Add(100 * time.Second)
	if l := s.StalestLight(600 * time.Second); l != hall {
		t.Errorf("Expected the oldest light, got %v", l)
	}
}

func TestLightRecords(t *testing.T) {
	s, _ := newTestStore()
	s.AddLight(5, 1, "Kitchen")
	s.UpdateLight(5, 1, 30)
	records := s.LightRecords()
	if len(records) != 1 || records[0] != (yali.LightRecord{Module: 5, Output: 1, State: 30, Name: "Kitchen"}) {
		t.Errorf("Unexpected records %+v", records)
	}
}

// ============================================================
// History Tests
// ============================================================

func TestHistory_Wraps(t *testing.T) {
	var h History
	const total = HistorySize/yali.HistoryRecordSize + 1
	for i := 1; i <= total; i++ {
		h.Append(yali.HistoryRecord{Time: uint32(i), Kind: yali.HistoryKindLight, Module: 5, Channel: 1, Value: 1})
	}

	records, err := yali.ParseHistory(h.Export())
	if err != nil {
		t.Fatalf("ParseHistory error: %v", err)
	}
	if len(records) != total-1 {
		t.Fatalf("Expected %d records, got %d", total-1, len(records))
	}
	if records[0].Time != 2 || records[len(records)-1].Time != total {
		t.Errorf("Expected records 2..%d, got %d..%d", total, records[0].Time, records[len(records)-1].Time)
	}
	for i, r := range records {
		if r.IsZero() {
			t.Fatalf("Record %d is empty", i)
		}
	}
}

func TestHistory_PartiallyFilled(t *testing.T) {
	var h History
	if len(h.Export()) != 0 {
		t.Fatal("Empty history should export nothing")
	}
	for i := 1; i <= 3; i++ {
		h.Append(yali.HistoryRecord{Time: uint32(i), Kind: yali.HistoryKindShutter, Module: 9, Channel: 2, Value: 50})
	}
	records, _ := yali.ParseHistory(h.Export())
	if len(records) != 3 || records[0].Time != 1 || records[2].Time != 3 {
		t.Errorf("Unexpected records %+v", records)
	}
}

// ============================================================
// Shutter Estimator Tests
// ============================================================

func TestUpdateShutter_TracksMovement(t *testing.T) {
	s, r := newTestStore()
	sh := mustShutter(t, s, 9, 1, 10, 20)
	sh.PosMin, sh.PosMax = 0, 0

	s.UpdateShutter(9, 1, 1, 100)
	if sh.Move != 1 || len(r.changes) != 0 {
		t.Fatalf("Start: move=%d changes=%d", sh.Move, len(r.changes))
	}

	s.UpdateShutter(9, 1, 0, 150)
	if !near(sh.PosMin, (5-TimingMargin)/10) || !near(sh.PosMax, (5+TimingMargin)/10) {
		t.Errorf("After 5 s up: [%f, %f]", sh.PosMin, sh.PosMax)
	}
	if sh.Move != 0 {
		t.Error("Shutter should be stopped")
	}
	if len(r.changes) != 1 || r.changes[0] != (change{true, 9, 1, 50}) {
		t.Errorf("Unexpected notifications %+v", r.changes)
	}

	s.UpdateShutter(9, 1, -1, 160)
	s.UpdateShutter(9, 1, 0, 200)
	if !near(sh.PosMin, math.Max(0, (5-TimingMargin)/10-(4+TimingMargin)/20)) {
		t.Errorf("After 4 s down: min %f", sh.PosMin)
	}
	if !near(sh.PosMax, (5+TimingMargin)/10-(4-TimingMargin)/20) {
		t.Errorf("After 4 s down: max %f", sh.PosMax)
	}

	records, _ := yali.ParseHistory(s.ExportHistory())
	if len(records) != 4 {
		t.Errorf("Expected 4 history records, got %d", len(records))
	}
}

func TestUpdateShutter_Unknown(t *testing.T) {
	s, r := newTestStore()
	s.UpdateShutter(9, 1, 1, 10)
	if len(r.changes) != 0 || len(s.ExportHistory()) != 0 {
		t.Error("Unknown shutter should be ignored")
	}
}

func TestCheckShutters_EndStop(t *testing.T) {
	tests := []struct {
		name     string
		dir      int
		expected float64
	}{
		{"up", 1, 1},
		{"down", -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, r := newTestStore()
			sh := mustShutter(t, s, 9, 1, 10, 10)
			sh.PosMin, sh.PosMax = 0.4, 0.6
			s.UpdateShutter(9, 1, tt.dir, 1000)

			s.CheckShutters(1020)
			if sh.Move != tt.dir {
				t.Fatal("Collapsed before reaching the end stop")
			}

			s.CheckShutters(1000 + 70)
			if sh.Move != 0 || sh.PosMin != tt.expected || sh.PosMax != tt.expected {
				t.Errorf("Expected [%v,%v] stopped, got [%v,%v] move=%d", tt.expected, tt.expected, sh.PosMin, sh.PosMax, sh.Move)
			}
			if len(r.changes) != 1 {
				t.Errorf("Expected one notification, got %d", len(r.changes))
			}

			s.CheckShutters(2000)
			if len(r.changes) != 1 {
				t.Error("Stopped shutter should not be announced again")
			}
		})
	}
}

func TestCommandShutter_FullOpen(t *testing.T) {
	s, r := newTestStore()
	sh := mustShutter(t, s, 9, 2, 10, 10)

	if !s.CommandShutter(9, 2, 100, 100, 500) {
		t.Fatal("Command should be issued")
	}
	if len(r.scheduled) != 2 {
		t.Fatalf("Expected 2 delayed commands, got %d", len(r.scheduled))
	}

	start, stop := r.scheduled[0], r.scheduled[1]
	if start.Tick != 501 {
		t.Errorf("Start tick = %d, want 501", start.Tick)
	}
	if got := lcn.UnpackRelay(start.Frame.P1(), start.Frame.P2(), 1); got != lcn.RelayUp {
		t.Errorf("Start action = %s", got)
	}
	if stop.Tick < 501+100 || stop.Tick != 501+150 {
		t.Errorf("Stop tick = %d, want %d", stop.Tick, 501+150)
	}
	if got := lcn.UnpackRelay(stop.Frame.P1(), stop.Frame.P2(), 1); got != lcn.RelayStop {
		t.Errorf("Stop action = %s", got)
	}
	if stop.Frame.Destination() != 9 || stop.Frame.Command() != lcn.CmdRelay || !stop.Frame.CRCValid() {
		t.Errorf("Unexpected stop frame %X", stop.Frame)
	}
	if sh.PosMin != 1 || sh.PosMax != 1 {
		t.Errorf("Estimate after full open: [%v,%v]", sh.PosMin, sh.PosMax)
	}
}

func TestCommandShutter_Policy(t *testing.T) {
	tests := []struct {
		name     string
		min, max int
		issued   bool
		action   lcn.RelayAction
	}{
		{"close", 0, 0, true, lcn.RelayDown},
		{"close when above range", 0, 50, true, lcn.RelayDown},
		{"open", 100, 100, true, lcn.RelayUp},
		{"open when below range", 10, 100, true, lcn.RelayUp},
		{"above estimate", 50, 60, true, lcn.RelayUp},
		{"below estimate", 5, 15, true, lcn.RelayDown},
		{"already inside", 10, 50, false, 0},
		{"overlapping", 25, 35, true, lcn.RelayDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, r := newTestStore()
			sh := mustShutter(t, s, 9, 1, 10, 10)
			sh.PosMin, sh.PosMax = 0.2, 0.4

			if got := s.CommandShutter(9, 1, tt.min, tt.max, 0); got != tt.issued {
				t.Fatalf("CommandShutter = %v, want %v", got, tt.issued)
			}
			if !tt.issued {
				if len(r.scheduled) != 0 {
					t.Error("No command expected")
				}
				return
			}
			if len(r.scheduled) != 2 {
				t.Fatalf("Expected 2 delayed commands, got %d", len(r.scheduled))
			}
			f := r.scheduled[0].Frame
			if got := lcn.UnpackRelay(f.P1(), f.P2(), 0); got != tt.action {
				t.Errorf("Action = %s, want %s", got, tt.action)
			}
		})
	}
}

func TestCommandShutter_Unknown(t *testing.T) {
	s, r := newTestStore()
	if s.CommandShutter(9, 1, 0, 0, 0) {
		t.Error("Unknown shutter should be ignored")
	}
	if len(r.scheduled) != 0 {
		t.Error("No command expected")
	}
}

func TestAddShutter_Validation(t *testing.T) {
	s, _ := newTestStore()
	if _, err := s.AddShutter(9, 5, "Bad run", 10, 10); err == nil {
		t.Error("Expected error for run 5")
	}
	if _, err := s.AddShutter(9, 1, "Bad time", 0, 10); err == nil {
		t.Error("Expected error for zero travel time")
	}
}

func TestShutterRecord(t *testing.T) {
	sh := &Shutter{Module: 9, Run: 1, Name: "Terrace", PosMin: 0.204, PosMax: 0.556}
	rec := sh.Record()
	if rec.Min != 20 || rec.Max != 56 {
		t.Errorf("Record bounds %d..%d", rec.Min, rec.Max)
	}
	if sh.Position() != 38 {
		t.Errorf("Position = %d", sh.Position())
	}
}
