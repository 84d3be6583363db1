// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/yali/pkg/lcn"
	"github.com/spf13/cobra"
)

var busCheckTimeout int

var busCheckCmd = &cobra.Command{
	Use:   "bus_check",
	Short: "Test the bus connection by waiting for a valid frame",
	Long: `Wait for a valid LCN frame on the connection until timeout.

This command connects to a serial port or WebSocket bridge and waits for any
frame that passes the CRC check. Bytes skipped before the first frame are
counted but otherwise ignored.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error

Useful for checking the serial interface before starting the gateway.`,
	Args: cobra.NoArgs,
	RunE: runBusCheck,
}

func init() {
	rootCmd.AddCommand(busCheckCmd)
	addBusFlags(busCheckCmd)
	busCheckCmd.Flags().IntVar(&busCheckTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

func runBusCheck(cmd *cobra.Command, args []string) error {
	book, err := addressBook()
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection(busFlags())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("YALI - Bus Check\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", busCheckTimeout)
	fmt.Printf("Waiting for a valid frame...\n\n")

	frameChan := make(chan lcn.Frame, 1)
	errChan := make(chan error, 1)

	go func() {
		skipped := 0
		err := readBus(conn, book, func(packets []*lcn.Packet) {
			for _, p := range packets {
				if !p.IsFrame() {
					skipped += len(p.Bytes())
					continue
				}
				if skipped > 0 {
					fmt.Printf("(skipped %d bytes before sync)\n", skipped)
				}
				select {
				case frameChan <- p.Frame():
				default:
				}
				return
			}
		})
		errChan <- err
	}()

	select {
	case f := <-frameChan:
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Printf("  Frame: %s\n", lcn.FormatFrame(f))
		fmt.Printf("  Bytes:%s\n", lcn.HexDump(f))
		fmt.Printf("  Length: %d bytes\n", len(f))
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(busCheckTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", busCheckTimeout)
		os.Exit(1)
	}

	return nil
}
