// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/Thermoquad/yali/pkg/lcn"
	"github.com/spf13/cobra"
)

var (
	discoveryFirst   uint
	discoveryLast    uint
	discoveryTimeout int
	discoveryConfig  bool
)

var discoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "Find modules on the bus by polling their output status",
	Long: `Send an output status request to every module address in a range and
collect the output reports that come back.

Requests are sent one per bus tick. After the last request the command keeps
listening for --timeout seconds. Modules that only show up as the source of
other traffic are listed as well.

With --emit-database, the result is printed as light definitions for the database
file, ready to be named.

Examples:
  # Poll the default range 5..254
  yali discovery --port /dev/ttyS0

  # Poll a few modules and print database lines
  yali discovery --port /dev/ttyS0 --first 10 --last 20 --emit-database

Exit codes:
  0 - At least one module answered
  1 - No module answered
  2 - Connection error`,
	Args: cobra.NoArgs,
	RunE: runDiscovery,
}

func init() {
	rootCmd.AddCommand(discoveryCmd)
	discoveryCmd.Flags().UintVar(&discoveryFirst, "first", 5, "First module address to poll")
	discoveryCmd.Flags().UintVar(&discoveryLast, "last", 254, "Last module address to poll")
	discoveryCmd.Flags().IntVar(&discoveryTimeout, "timeout", 3, "Seconds to listen after the last request")
	discoveryCmd.Flags().BoolVar(&discoveryConfig, "emit-database", false, "Print database lines for the outputs found")
	addBusFlags(discoveryCmd)
}

// discoveredModule collects what was heard from one module
type discoveredModule struct {
	address  byte
	frames   int
	reported bool
	outputs  [3]int
}

// moduleCollector builds the discovery result from decoded frames
type moduleCollector struct {
	modules map[byte]*discoveredModule
}

func newModuleCollector() *moduleCollector {
	return &moduleCollector{modules: make(map[byte]*discoveredModule)}
}

func (c *moduleCollector) module(addr byte) *discoveredModule {
	m, ok := c.modules[addr]
	if !ok {
		m = &discoveredModule{address: addr, outputs: [3]int{-1, -1, -1}}
		c.modules[addr] = m
	}
	return m
}

// add accounts for a frame and reports whether it was an output report
func (c *moduleCollector) add(f lcn.Frame) bool {
	src := f.Source()
	if src == lcn.AddressPC {
		return false
	}
	m := c.module(src)
	m.frames++

	if f.Info() != lcn.InfoOutputReport || len(f) != lcn.ReportFrameSize {
		return false
	}
	reported := false
	for _, u := range lcn.Interpret(f) {
		if u.Kind == lcn.UpdateLight && u.Module == src && u.Channel >= 1 && u.Channel <= 3 {
			m.outputs[u.Channel-1] = u.Value
			reported = true
		}
	}
	m.reported = m.reported || reported
	return reported
}

// sorted returns the modules by address
func (c *moduleCollector) sorted() []*discoveredModule {
	out := make([]*discoveredModule, 0, len(c.modules))
	for _, m := range c.modules {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].address < out[j].address })
	return out
}

func runDiscovery(cmd *cobra.Command, args []string) error {
	if discoveryFirst < 2 || discoveryLast > 254 || discoveryFirst > discoveryLast {
		return errors.New("module range must lie within 2..254")
	}

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

	fmt.Printf("YALI - Module Discovery\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Range: %d..%d\n\n", discoveryFirst, discoveryLast)

	frames := make(chan []*lcn.Packet, 16)
	errChan := make(chan error, 1)
	go func() {
		errChan <- readBus(conn, book, func(packets []*lcn.Packet) {
			frames <- packets
		})
	}()

	collector := newModuleCollector()
	handle := func(packets []*lcn.Packet) {
		for _, p := range packets {
			if p.IsFrame() && collector.add(p.Frame()) {
				fmt.Printf("Module %3d reported\n", p.Frame().Source())
			}
		}
	}

	ticker := time.NewTicker(busTick)
	defer ticker.Stop()

	next := discoveryFirst
	var deadline <-chan time.Time
listen:
	for {
		select {
		case packets := <-frames:
			handle(packets)

		case err := <-errChan:
			if err != nil {
				fmt.Printf("READ FAILED: %v\n", err)
				os.Exit(2)
			}
			break listen

		case <-ticker.C:
			if next > discoveryLast {
				if deadline == nil {
					deadline = time.After(time.Duration(discoveryTimeout) * time.Second)
				}
				continue
			}
			if _, err := conn.Write(lcn.NewStatusRequest(byte(next))); err != nil {
				fmt.Printf("SEND FAILED: %v\n", err)
				os.Exit(2)
			}
			next++

		case <-deadline:
			break listen
		}
	}

	fmt.Printf("\n--- Discovery summary ---\n")
	answered := 0
	for _, m := range collector.sorted() {
		if m.reported {
			answered++
		}
		if discoveryConfig {
			continue
		}
		fmt.Printf("Module %3d: %4d frames", m.address, m.frames)
		if m.reported {
			fmt.Printf(", outputs %s %s %s", formatOutput(m.outputs[0]), formatOutput(m.outputs[1]), formatOutput(m.outputs[2]))
		}
		fmt.Println()
	}

	if discoveryConfig {
		fmt.Print(databaseLines(collector.sorted()))
	}

	fmt.Printf("Modules answering: %d\n", answered)
	if answered == 0 {
		fmt.Printf("No module answered. Check the bus connection and the address range.\n")
		os.Exit(1)
	}
	return nil
}

func formatOutput(v int) string {
	if v < 0 {
		return "?"
	}
	return fmt.Sprintf("%d%%", v)
}

// databaseLines renders a light definition per output of every module that
// answered
func databaseLines(modules []*discoveredModule) string {
	out := "# generated by yali discovery\n"
	for _, m := range modules {
		if !m.reported {
			continue
		}
		for o := 1; o <= 3; o++ {
			out += fmt.Sprintf("L %d %d \"M%02d output %d\"\n", m.address, o, m.address, o)
		}
	}
	return out
}
