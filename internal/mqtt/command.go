// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mqtt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Thermoquad/yali/pkg/yali"
)

var ErrInvalidCommand = errors.New("invalid command")

// ParseCommand converts a set message into the equivalent gateway request.
func ParseCommand(prefix, topic string, payload []byte) (*yali.Packet, error) {
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok {
		return nil, fmt.Errorf("%w: topic %q outside %q", ErrInvalidCommand, topic, prefix)
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 4 || parts[3] != "set" {
		return nil, fmt.Errorf("%w: topic %q", ErrInvalidCommand, topic)
	}

	module, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("%w: module %q", ErrInvalidCommand, parts[1])
	}
	channel, err := strconv.ParseUint(parts[2], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("%w: channel %q", ErrInvalidCommand, parts[2])
	}

	value := strings.ToLower(strings.TrimSpace(string(payload)))

	switch parts[0] {
	case "light":
		level, err := parseLevel(value, "on", "off")
		if err != nil {
			return nil, err
		}
		return yali.LightStatusSet(byte(module), byte(channel), level), nil

	case "shutter":
		lo, hi, err := parseRange(value)
		if err != nil {
			return nil, err
		}
		return yali.ShutterStatusSet(byte(module), byte(channel), lo, hi), nil
	}

	return nil, fmt.Errorf("%w: endpoint kind %q", ErrInvalidCommand, parts[0])
}

func parseLevel(s, full, zero string) (int, error) {
	switch s {
	case full:
		return 100, nil
	case zero:
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 || v > 100 {
		return 0, fmt.Errorf("%w: level %q", ErrInvalidCommand, s)
	}
	return v, nil
}

func parseRange(s string) (int, int, error) {
	lo, hi, isRange := strings.Cut(s, "..")
	if !isRange {
		v, err := parseLevel(s, "open", "close")
		return v, v, err
	}
	from, err := parseLevel(lo, "open", "close")
	if err != nil {
		return 0, 0, err
	}
	to, err := parseLevel(hi, "open", "close")
	if err != nil {
		return 0, 0, err
	}
	return from, to, nil
}
