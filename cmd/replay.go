// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Thermoquad/yali/pkg/lcn"
	"github.com/spf13/cobra"
)

var (
	replayStats bool
	replayHex   bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <capture-file>",
	Short: "Print the bus traffic recorded by serve --capture",
	Long: `Read a capture log written by the gateway and print every record with
its time, direction (RX from the bus, TX to the bus) and decoded frame.

With --stats a summary of the recorded traffic is printed at the end.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayStats, "stats", false, "Print traffic statistics at the end")
	replayCmd.Flags().BoolVarP(&replayHex, "hex", "x", false, "Append the raw frame bytes")
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()

	stats, err := replayCapture(lcn.NewCaptureReader(f), os.Stdout, replayHex)
	if replayStats {
		fmt.Println()
		fmt.Print(stats.String())
	}
	return err
}

// replayCapture prints every record from r to w and returns the traffic
// counters of the log
func replayCapture(r *lcn.CaptureReader, w io.Writer, hex bool) (*lcn.Statistics, error) {
	stats := lcn.NewStatistics()
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, err
		}

		p := rec.Packet()
		switch rec.Direction {
		case lcn.DirectionTx:
			stats.Transmitted(false)
		default:
			stats.Received(p)
		}
		fmt.Fprintf(w, "%-4d %s %s", rec.Tick, rec.Direction, formatRawPacket(p, hex))
	}
}
