// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/Thermoquad/yali/pkg/yali"
	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var monitorText bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch light and shutter changes reported by the gateway",
	Long: `Show every light and shutter with its current state and update it live
from the reports the gateway broadcasts.

In the terminal UI, select a row with the arrow keys; enter toggles a light
or moves a shutter to the opposite end, + and - dim a light in steps of 10 %.

With --text, each change is printed as one line instead.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&monitorText, "text", false, "Print changes line by line instead of the terminal UI")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if monitorText {
		return runMonitorText(s)
	}
	return runMonitorTUI(s)
}

// monitorLine renders a report as a history style line. ok is false for
// packets that are not about a known light or shutter.
func (s *session) monitorLine(t time.Time, p *yali.Packet) (string, bool) {
	switch p.Type {
	case yali.TypeLightStatusReport:
		st, err := yali.ParseLightStatus(p)
		if err != nil || st.Value < 0 {
			return "", false
		}
		name, ok := s.lightName(st.Module, st.Channel)
		if !ok {
			return "", false
		}
		return yali.FormatEvent(t, yali.HistoryKindLight, name, st.Value), true

	case yali.TypeShutterStatusReport:
		st, err := yali.ParseShutterStatus(p)
		if err != nil {
			return "", false
		}
		name, ok := s.shutterName(st.Module, st.Channel)
		if !ok {
			return "", false
		}
		return yali.FormatEvent(t, yali.HistoryKindShutter, name, st.Value), true
	}
	return "", false
}

func runMonitorText(s *session) error {
	fmt.Println(s.version)
	for {
		p, err := s.client.Receive()
		if err != nil {
			var se *yali.ServerError
			if errors.As(err, &se) {
				fmt.Printf("%s %s\n", time.Now().Format(yali.TimeLayout), se)
				continue
			}
			return err
		}
		if line, ok := s.monitorLine(time.Now(), p); ok {
			fmt.Println(line)
		} else {
			log.Debug(yali.Describe(p))
		}
	}
}

func runMonitorTUI(s *session) error {
	m := initialMonitorModel(s)
	p := tea.NewProgram(m)

	go func() {
		for {
			pkt, err := s.client.Receive()
			if err != nil {
				var se *yali.ServerError
				if errors.As(err, &se) {
					p.Send(serverErrorMsg{err: se})
					continue
				}
				p.Send(gatewayClosedMsg{err: err})
				return
			}
			p.Send(reportMsg{packet: pkt})
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
