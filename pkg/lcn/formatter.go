// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lcn

import (
	"fmt"
	"strings"
)

// FormatPacket formats decoder output into a human-readable line
func FormatPacket(p *Packet) string {
	timestamp := p.timestamp.Format("15:04:05.000")
	if p.kind != KindFrame {
		return fmt.Sprintf("[%s] %s (%d bytes):%s\n", timestamp, strings.ToUpper(p.kind.String()), len(p.data), HexDump(p.data))
	}
	return fmt.Sprintf("[%s] %s\n", timestamp, FormatFrame(p.Frame()))
}

// HexDump renders bytes as " XX XX ..."
func HexDump(data []byte) string {
	var sb strings.Builder
	for _, b := range data {
		fmt.Fprintf(&sb, " %02X", b)
	}
	return sb.String()
}

// FormatFrame describes a frame: addressing, checksum state and the decoded
// command when it is recognized, or the raw command bytes otherwise.
func FormatFrame(f Frame) string {
	if len(f) < ShortFrameSize {
		return fmt.Sprintf("short frame (%d bytes):%s", len(f), HexDump(f))
	}

	result := fmt.Sprintf("M%02d->%s", f.Source(), formatDestination(f))
	if !f.CRCValid() {
		result += " (CRC error)"
	}

	if desc, ok := describe(f); ok {
		return result + " " + desc
	}
	return result + " ??" + HexDump(f[OffsetCmd:])
}

func formatDestination(f Frame) string {
	seg, dst := f.DstSegment(), f.Destination()
	switch {
	case f.Info() == InfoGroupCommand:
		return fmt.Sprintf("%d/G%02d", seg, dst)
	case f.Info() == InfoEmpty, f.Info()&0xFE == InfoCommand:
		return fmt.Sprintf("%d/M%02d", seg, dst)
	default:
		return fmt.Sprintf("%d/%03d", seg, dst)
	}
}

func describe(f Frame) (string, bool) {
	switch len(f) {
	case ShortFrameSize:
		if f.Info() == InfoEmpty {
			return "ack", true
		}
	case CommandFrameSize:
		if f.Info() == InfoEmpty {
			return "ack", true
		}
		return describeCommand(f)
	case ReportFrameSize:
		if isOutputReport(f) {
			return fmt.Sprintf("output report O1=%s O2=%s O3=%s",
				formatReportedOutput(f, OffsetReportOutput1),
				formatReportedOutput(f, OffsetReportOutput2),
				formatReportedOutput(f, OffsetReportOutput3)), true
		}
	}
	return "", false
}

func formatReportedOutput(f Frame, off int) string {
	return fmt.Sprintf("%.1f%% (%.1f%%, %.1fs)", 0.5*float64(f[off]), 0.5*float64(f[off+1]), DecodeRamp(f[off+2]))
}

func describeCommand(f Frame) (string, bool) {
	cmd, p1, p2 := f.Command(), f.P1(), f.P2()

	switch cmd {
	case CmdOutput1, CmdOutput2, CmdOutput3:
		return describeOutput(cmd, p1, p2)

	case CmdSwitchOutputs:
		switch {
		case p1 == ParamAllOff:
			return "outputs 1,2,3 off", true
		case p1 == ParamAllOn:
			return "outputs 1,2,3 on", true
		case p1 == ParamAllToggle:
			return "outputs 1,2,3 toggle", true
		case p1 == ParamFixedRamp12 && p2 == ParamFixedRamp12:
			return "outputs 1,2 on, fixed ramp", true
		case p1 == ParamToggle && p2 == ParamToggle:
			return "outputs 1,2 on, no ramp", true
		case p1 == 0x00 && p2 == 0x00:
			return "outputs 1,2 off, fixed ramp", true
		}

	case CmdRelay:
		return "shutter" + describeRelay(p1, p2), true

	case CmdKeys:
		return "keys" + describeKeys(p1, p2), true

	case CmdUnlockKeysA, CmdUnlockKeysB, CmdUnlockKeysC, CmdUnlockKeysD:
		return fmt.Sprintf("unlock keys %c%s", keyTable(cmd), describeUnlock(p1, p2)), true

	case CmdDelayedKeysA, CmdDelayedKeysB, CmdDelayedKeysC, CmdDelayedKeysD:
		table := keyTable(cmd)
		var sb strings.Builder
		sb.WriteString("keys")
		for i := 0; i < 8; i++ {
			if p2&(1<<uint(i)) != 0 {
				fmt.Fprintf(&sb, " %c%d", table, i+1)
			}
		}
		fmt.Fprintf(&sb, " in %s", DecodeDelay(p1))
		return sb.String(), true

	case CmdBeep:
		if p1 < 2 {
			return fmt.Sprintf("beep-%d, %d times", p1, p2), true
		}

	case CmdAdd:
		if p1 == 0 {
			return fmt.Sprintf("add %d", p2), true
		}

	case CmdOutputStatus:
		switch p1 & 0xF0 {
		case 0x10:
			return fmt.Sprintf("output 1 at %d%%", 2*int(p2)), true
		case 0x20:
			return fmt.Sprintf("output 2 at %d%%", 2*int(p2)), true
		}

	case CmdStatus:
		if p1 == StatusRequestP1 && p2 == StatusRequestP2 {
			return "request output status", true
		}
	}
	return "", false
}

func describeOutput(cmd, p1, p2 byte) (string, bool) {
	var n int
	switch cmd {
	case CmdOutput1:
		n = 1
	case CmdOutput2:
		n = 2
	default:
		n = 3
	}

	switch {
	case p1 == ParamToggle:
		return fmt.Sprintf("output %d toggle, ramp %.1fs", n, DecodeRamp(p2)), true
	case p1 < ParamToggle && p2 <= ParamMaxPercent:
		return fmt.Sprintf("output %d to %d%%, ramp %.1fs", n, 2*int(p1), DecodeRamp(p2)), true
	case p2 == ParamBrighter:
		return fmt.Sprintf("output %d %.1f%% brighter", n, 0.5*float64(p1)), true
	case p2 == ParamDarker:
		return fmt.Sprintf("output %d %.1f%% darker", n, 0.5*float64(p1)), true
	}
	return "", false
}

func describeRelay(p1, p2 byte) string {
	var sb strings.Builder
	for slot := 0; slot < RelaySlots; slot++ {
		a := UnpackRelay(p1, p2, slot)
		switch a {
		case RelayNone:
		case RelayStop, RelayUp, RelayDown:
			fmt.Fprintf(&sb, " %d-%s", slot+1, a)
		default:
			fmt.Fprintf(&sb, " %d-%02X", slot+1, byte(a))
		}
	}
	return sb.String()
}

var keyActions = [4]string{"", "short", "long", "release"}

func describeKeys(p1, p2 byte) string {
	var sb strings.Builder
	for i := 0; i < 8; i++ {
		if p2&(1<<uint(i)) != 0 {
			fmt.Fprintf(&sb, " %d", i+1)
		}
	}
	for t := 0; t < 4; t++ {
		if a := (p1 >> uint(2*t)) & 0x03; a != 0 {
			fmt.Fprintf(&sb, " %c-%s", 'A'+t, keyActions[a])
		}
	}
	return sb.String()
}

func describeUnlock(p1, p2 byte) string {
	var sb strings.Builder
	for i := 0; i < 8; i++ {
		a := ((p1 >> uint(i)) & 1) + 2*((p2>>uint(i))&1)
		if a != 0 {
			fmt.Fprintf(&sb, " %d-%s", i+1, keyActions[a])
		}
	}
	return sb.String()
}

func keyTable(cmd byte) rune {
	switch cmd {
	case CmdUnlockKeysA, CmdDelayedKeysA:
		return 'A'
	case CmdUnlockKeysB, CmdDelayedKeysB:
		return 'B'
	case CmdUnlockKeysC, CmdDelayedKeysC:
		return 'C'
	default:
		return 'D'
	}
}

// DecodeRamp converts a ramp parameter to seconds
func DecodeRamp(n byte) float64 {
	switch {
	case n < 6:
		return 0.25 * float64(n)
	case n < 9:
		return 0.5*float64(n) - 1.0
	default:
		return 2.0*float64(n) - 14.0
	}
}

// DecodeDelay renders the delay parameter of a delayed key command
func DecodeDelay(n byte) string {
	switch {
	case n < 0x3D:
		return fmt.Sprintf("%d s", n)
	case n < 0x97:
		return fmt.Sprintf("%d m", int(n)-0x3D+1)
	case n < 0xC9:
		return fmt.Sprintf("%d h", int(n)-0x97+1)
	default:
		return fmt.Sprintf("%d d", int(n)-0xC9+1)
	}
}
