// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// YALI - Yet Another LCN Interface
//
// A gateway between the LCN home automation bus and TCP clients, with
// client and bus diagnostic commands.

package main

import (
	"os"

	"github.com/Thermoquad/yali/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
