// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"time"

	"github.com/Thermoquad/yali/pkg/lcn"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

var busStatsCmd = &cobra.Command{
	Use:   "bus_stats",
	Short: "Track bus errors and traffic statistics",
	Long: `Watch the LCN bus and count what the frame decoder sees:
  - Validated frames and acknowledgments
  - Frames that no light or shutter update can be derived from
  - Garbage bytes skipped while resynchronizing, and known frames with a
    checksum error
  - Receive buffer overflows and stale partial frames
  - Frame rate and error rate

By default, only discarded bytes are displayed. Use --show-all to display
frames too. Statistics summaries are displayed at configurable intervals.`,
	Args: cobra.NoArgs,
	RunE: runBusStats,
}

func init() {
	rootCmd.AddCommand(busStatsCmd)
	addBusFlags(busStatsCmd)
	busStatsCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just errors)")
	busStatsCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	busStatsCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
}

func runBusStats(cmd *cobra.Command, args []string) error {
	book, err := addressBook()
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection(busFlags())
	if err != nil {
		return err
	}
	defer conn.Close()

	if useTUI {
		return runTUIMode(conn, connInfo, book)
	}
	return runTextMode(conn, connInfo, book)
}

// accountPackets updates stats the way the gateway does for received traffic
func accountPackets(stats *lcn.Statistics, packets []*lcn.Packet) {
	for _, p := range packets {
		stats.Received(p)
		if p.IsFrame() && len(lcn.Interpret(p.Frame())) == 0 {
			stats.UnknownFrames++
		}
	}
}

// runTUIMode runs bus statistics in TUI mode
func runTUIMode(conn Connection, connInfo string, book lcn.AddressBook) error {
	m := initialStatsModel(connInfo, statsInterval, showAll)
	p := tea.NewProgram(m)

	go func() {
		err := readBus(conn, book, func(packets []*lcn.Packet) {
			p.Send(busDataMsg{packets: packets})
		})
		p.Send(busClosedMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runTextMode prints discarded bytes as they happen and a summary every
// statsInterval seconds
func runTextMode(conn Connection, connInfo string, book lcn.AddressBook) error {
	fmt.Printf("YALI - Bus Statistics\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	stats := lcn.NewStatistics()

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	busData := make(chan []*lcn.Packet, 10)
	closed := make(chan error, 1)
	go func() {
		closed <- readBus(conn, book, func(packets []*lcn.Packet) {
			busData <- packets
		})
	}()

	for {
		select {
		case packets := <-busData:
			accountPackets(stats, packets)
			for _, p := range packets {
				if !p.IsFrame() {
					fmt.Printf("\033[1;31m%s\033[0m", lcn.FormatPacket(p))
				} else if showAll {
					fmt.Print(lcn.FormatPacket(p))
				}
			}

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()

		case err := <-closed:
			fmt.Println()
			fmt.Print(stats.String())
			return err
		}
	}
}
