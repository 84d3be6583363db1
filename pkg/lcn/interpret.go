// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lcn

// UpdateKind selects the state change described by an Update
type UpdateKind int

const (
	// UpdateLight sets a light output to Value percent.
	UpdateLight UpdateKind = iota
	// UpdateShutter starts or stops a shutter; Value is +1 up, -1 down, 0 stop.
	UpdateShutter
	// UpdateRefresh asks for an early status request to Module.
	UpdateRefresh
)

// Update is a state change derived from a frame seen on the bus.
type Update struct {
	Kind    UpdateKind
	Module  byte
	Channel int // output 1..3 or shutter run 1..4
	Value   int
}

// Interpret maps a validated frame to the state changes it implies. Commands
// between other devices are observed too, since every module on the bus
// hears them. Unrecognized 8-byte commands yield an UpdateRefresh for the
// destination module so its real state is fetched soon.
func Interpret(f Frame) []Update {
	switch {
	case isOutputReport(f):
		src := f.Source()
		return []Update{
			lightUpdate(src, 1, int(f[OffsetReportOutput1])/2),
			lightUpdate(src, 2, int(f[OffsetReportOutput2])/2),
			lightUpdate(src, 3, int(f[OffsetReportOutput3])/2),
		}

	case len(f) == CommandFrameSize && (f.Info() == InfoCommand || f.Info() == InfoCommandAck):
		return interpretCommand(f)
	}
	return nil
}

func isOutputReport(f Frame) bool {
	return len(f) == ReportFrameSize &&
		f.Info() == InfoOutputReport &&
		f.Command() == CmdStatus &&
		f.P1() == OutputReportP1 &&
		f.P2() == OutputReportP2
}

func interpretCommand(f Frame) []Update {
	dst := f.Destination()
	cmd, p1, p2 := f.Command(), f.P1(), f.P2()

	if p1 <= ParamMaxPercent {
		switch cmd {
		case CmdOutput1:
			return []Update{lightUpdate(dst, 1, paramToPercent(p1))}
		case CmdOutput2:
			return []Update{lightUpdate(dst, 2, paramToPercent(p1))}
		case CmdOutput3:
			return []Update{lightUpdate(dst, 3, paramToPercent(p1))}
		}
	}

	switch {
	case cmd == CmdSwitchOutputs && p1 == ParamAllOff:
		return allOutputs(dst, 3, 0)
	case cmd == CmdSwitchOutputs && p1 == ParamAllOn:
		return allOutputs(dst, 3, 100)
	case cmd == CmdSwitchOutputs && p1 == ParamOn12Legacy && p2 == ParamOn12Legacy:
		return allOutputs(dst, 2, 100)
	case cmd == CmdSwitchOutputs && p1 == ParamToggle && p2 == ParamToggle:
		return allOutputs(dst, 2, 100)
	case cmd == CmdSwitchOutputs && p1 == 0x00 && p2 == 0x00:
		return allOutputs(dst, 2, 0)
	case cmd == CmdRelay:
		return relayUpdates(dst, p1, p2)
	}

	return []Update{{Kind: UpdateRefresh, Module: dst}}
}

func relayUpdates(module, p1, p2 byte) []Update {
	var out []Update
	for slot := 0; slot < RelaySlots; slot++ {
		dir, ok := UnpackRelay(p1, p2, slot).Direction()
		if !ok {
			continue
		}
		out = append(out, Update{Kind: UpdateShutter, Module: module, Channel: slot + 1, Value: dir})
	}
	return out
}

func allOutputs(module byte, n int, value int) []Update {
	out := make([]Update, 0, n)
	for o := 1; o <= n; o++ {
		out = append(out, lightUpdate(module, o, value))
	}
	return out
}

func lightUpdate(module byte, output int, value int) Update {
	return Update{Kind: UpdateLight, Module: module, Channel: output, Value: value}
}

// paramToPercent converts a half-scale command parameter to percent.
func paramToPercent(p byte) int {
	v := int(p) * 2
	if v > 100 {
		v = 100
	}
	return v
}
