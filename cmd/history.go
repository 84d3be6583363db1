// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/yali/pkg/yali"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the recent light and shutter changes",
	Long: `Fetch the gateway's change history, oldest first, and print one line per
event with the light or shutter name resolved from the databases.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := s.client.History()
	if err != nil {
		return err
	}

	fmt.Println("History:")
	for _, line := range s.historyLines(records) {
		fmt.Println(line)
	}
	return nil
}

// historyLines renders records whose endpoint is still in the database
func (s *session) historyLines(records []yali.HistoryRecord) []string {
	var lines []string
	for _, r := range records {
		var name string
		var ok bool
		switch r.Kind {
		case yali.HistoryKindLight:
			name, ok = s.lightName(r.Module, r.Channel)
		case yali.HistoryKindShutter:
			name, ok = s.shutterName(r.Module, r.Channel)
		}
		if !ok {
			continue
		}
		lines = append(lines, yali.FormatEvent(r.Timestamp(), r.Kind, name, int(r.Value)))
	}
	return lines
}
