// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var shutterCmd = &cobra.Command{
	Use:   "shutter [<name> <min> <max>]",
	Short: "List shutters or move one into a position range",
	Long: `Without arguments, list every shutter with its estimated position
interval. With a name and a range in percent (0 = closed, 100 = open), ask
the gateway to move the shutter so that its position ends up inside the range.`,
	RunE: runShutter,
}

func init() {
	rootCmd.AddCommand(shutterCmd)
}

func runShutter(cmd *cobra.Command, args []string) error {
	if len(args) != 0 && len(args) != 3 {
		return errors.New("expected no arguments or <name> <min> <max>")
	}

	var lo, hi int
	if len(args) == 3 {
		var err error
		if lo, err = parsePercent(args[1]); err != nil {
			return err
		}
		if hi, err = parsePercent(args[2]); err != nil {
			return err
		}
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if len(args) == 0 {
		for _, sh := range s.shutters {
			fmt.Printf("Shutter %q is between %d%% and %d%%\n", sh.Name, sh.Min, sh.Max)
		}
		return nil
	}

	sh, ok := s.findShutter(args[0])
	if !ok {
		fmt.Printf("Shutter %q is unknown, choose one of ...\n", args[0])
		for _, known := range s.shutters {
			fmt.Printf("  %s\n", known.Name)
		}
		return fmt.Errorf("unknown shutter %q", args[0])
	}

	fmt.Printf("Moving shutter %q to %d .. %d %%\n", sh.Name, lo, hi)
	return s.client.SetShutter(sh.Module, sh.Run, lo, hi)
}
