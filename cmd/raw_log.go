// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/yali/pkg/lcn"
	"github.com/spf13/cobra"
)

var rawLogHex bool

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display bus traffic in human-readable format",
	Long: `Continuously decode and display LCN bus frames as they arrive.

Each frame is printed with timestamp, source and destination module and the
decoded command. Bytes skipped while resynchronizing are shown as garbage.

Frames are only checked against their CRC when both addresses are known. Use
--database or --modules to restrict the known modules to an installation;
otherwise every address is accepted.

Supports both serial and WebSocket connections. Do not run it on a port the
gateway already owns.`,
	Args: cobra.NoArgs,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	addBusFlags(rawLogCmd)
	rawLogCmd.Flags().BoolVarP(&rawLogHex, "hex", "x", false, "Append the raw frame bytes")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	book, err := addressBook()
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection(busFlags())
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("YALI - Raw Bus Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	return readBus(conn, book, func(packets []*lcn.Packet) {
		for _, p := range packets {
			fmt.Print(formatRawPacket(p, rawLogHex))
		}
	})
}

func formatRawPacket(p *lcn.Packet, hex bool) string {
	line := lcn.FormatPacket(p)
	if hex && p.IsFrame() {
		line = line[:len(line)-1] + "  |" + lcn.HexDump(p.Bytes()) + "\n"
	}
	return line
}
