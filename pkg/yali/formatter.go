// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package yali

import (
	"fmt"
	"time"

	"github.com/Thermoquad/yali/pkg/lcn"
)

// TimeLayout is used for history and monitor lines (YY.MM.DD HH:MM:SS)
const TimeLayout = "06.01.02 15:04:05"

// Describe renders a packet for logs and the text monitor
func Describe(p *Packet) string {
	switch p.Type {
	case TypeLightStatusReport:
		if s, err := ParseLightStatus(p); err == nil {
			return fmt.Sprintf("light M%02d/%d = %s", s.Module, s.Channel, FormatState(s.Value))
		}
	case TypeShutterStatusReport:
		if s, err := ParseShutterStatus(p); err == nil {
			return fmt.Sprintf("shutter M%02d/%d = %d %%", s.Module, s.Channel, s.Value)
		}
	case TypeVersionReport:
		if v, err := ParseVersion(p); err == nil {
			return v.String()
		}
	case TypeTimeReport:
		if t, err := ParseTime(p); err == nil {
			return "time " + t.Format(TimeLayout)
		}
	case TypeErrorReport:
		if e, err := ParseError(p); err == nil {
			return e.Error()
		}
	case TypeRawReceived:
		return "bus " + lcn.FormatFrame(lcn.Frame(p.Payload))
	case TypeHistoryReport:
		return fmt.Sprintf("history (%d records)", len(p.Payload)/HistoryRecordSize)
	}
	return p.String()
}

// FormatState renders a light state, "?" when unknown
func FormatState(state int) string {
	if state < 0 {
		return "? %"
	}
	return fmt.Sprintf("%d %%", state)
}

// FormatEvent renders a timestamped light or shutter line
func FormatEvent(t time.Time, kind byte, name string, value int) string {
	label := "Light"
	if kind == HistoryKindShutter {
		label = "Shutter"
	}
	return fmt.Sprintf("%s %s %q %d %%", t.Format(TimeLayout), label, name, value)
}
