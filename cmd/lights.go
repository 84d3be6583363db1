// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/yali/pkg/yali"
	"github.com/spf13/cobra"
)

var listAllLights bool

var lightsCmd = &cobra.Command{
	Use:   "lights",
	Short: "List lights that are switched on",
	Long: `Report every light the gateway knows with a brightness above zero.

Use --all to include lights that are off or whose state is still unknown.`,
	Args: cobra.NoArgs,
	RunE: runLights,
}

var getCmd = &cobra.Command{
	Use:   "get <light>...",
	Short: "Query the brightness of lights by name",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGet,
}

var setCmd = &cobra.Command{
	Use:   "set <light>... <brightness>",
	Short: "Set the brightness of lights by name",
	Long: `Switch one or more lights to the given brightness in percent.

The value is clamped to 0..100. The gateway converts it to the bus
half-percent scale and ramps the output.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSet,
}

func init() {
	rootCmd.AddCommand(lightsCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(setCmd)
	lightsCmd.Flags().BoolVarP(&listAllLights, "all", "a", false, "List all lights, not only active ones")
}

func runLights(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if listAllLights {
		fmt.Println("List of lights:")
	} else {
		fmt.Println("List of active lights:")
	}
	for _, l := range s.lights {
		switch {
		case l.State > 0:
			fmt.Printf("Light %q on at %d %%\n", l.Name, l.State)
		case listAllLights && l.State == 0:
			fmt.Printf("Light %q off\n", l.Name)
		case listAllLights:
			fmt.Printf("Light %q = %s\n", l.Name, yali.FormatState(l.State))
		}
	}
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	lights, err := s.resolveLights(args)
	if err != nil {
		return err
	}
	for _, l := range lights {
		state, err := s.client.LightStatus(l.Module, l.Output)
		if err != nil {
			return err
		}
		fmt.Printf("Light %q = %s\n", l.Name, yali.FormatState(state))
	}
	return nil
}

func runSet(cmd *cobra.Command, args []string) error {
	value, err := parsePercent(args[len(args)-1])
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	lights, err := s.resolveLights(args[:len(args)-1])
	if err != nil {
		return err
	}
	for _, l := range lights {
		fmt.Printf("Switching light %q to %d %%\n", l.Name, value)
		if err := s.client.SetLight(l.Module, l.Output, value); err != nil {
			return err
		}
	}
	return nil
}
