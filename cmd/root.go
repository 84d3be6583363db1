// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"os"

	"github.com/Thermoquad/yali/internal/logging"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string

	// Bus connection flags
	portName string
	baudRate int

	// WebSocket bridge flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Gateway address for client commands
	serverAddr string
)

var rootCmd = &cobra.Command{
	Use:   "yali",
	Short: "YALI - Yet Another LCN Interface",
	Long: `YALI connects an LCN home automation bus to TCP clients.

The serve command runs the gateway: it owns the serial bus, tracks light and
shutter state and answers YALI protocol requests on port 4711. The remaining
commands are clients of a running gateway or diagnostic tools for the bus.

Bus connection modes:
  Serial:    --port /dev/ttyS0 [--baud 9600]
  WebSocket: --url ws://host/path [--username user]

Without a bus connection, serve runs in test mode and applies set requests to
its own state. For WebSocket authentication, the password is read from the
YALI_PASSWORD environment variable, or prompted interactively if not set.

Client commands connect to --server, which defaults to YALI_SERVER (or
localhost) and YALI_PORT (or 4711).`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Setup(logLevel, os.Stderr)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "yali.yaml", "Gateway settings file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", envOr("YALI_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")

	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 9600, "Baud rate (serial only)")

	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket bridge URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVarP(&serverAddr, "server", "s", defaultServerAddr(), "Gateway address (host:port)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
