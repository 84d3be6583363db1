// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Thermoquad/yali/internal/config"
	"github.com/Thermoquad/yali/internal/database"
	"github.com/Thermoquad/yali/internal/gateway"
	"github.com/Thermoquad/yali/internal/logging"
	"github.com/Thermoquad/yali/internal/mqtt"
	"github.com/Thermoquad/yali/internal/state"
	"github.com/Thermoquad/yali/pkg/lcn"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	serveListen     string
	serveDatabase   string
	serveCapture    string
	serveForwardRaw bool
	serveMaxClients int
	serveStats      int
	serveSaveConfig bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway between the LCN bus and YALI clients",
	Long: `Run the YALI gateway.

The gateway reads light and shutter definitions from the database file,
connects to the LCN bus and accepts YALI protocol clients on the listen
address. It tracks light brightness from bus traffic, estimates shutter
positions from travel times, polls stale lights for their status and
reports every change to all connected clients.

Settings come from the YAML file given by --config, then environment
variables (YALI_PORT, YALI_SERIAL, YALI_DATABASE, YALI_MQTT_BROKER,
YALI_LOG_LEVEL), then command line flags.

Without --port or --url the gateway runs in test mode: set requests change
its state directly and nothing is sent to a bus.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "TCP listen address (default :4711)")
	serveCmd.Flags().StringVarP(&serveDatabase, "database", "d", "", "Light and shutter database file (default myconf.yali)")
	serveCmd.Flags().StringVar(&serveCapture, "capture", "", "Record bus traffic to a capture file")
	serveCmd.Flags().BoolVar(&serveForwardRaw, "forward-raw", false, "Forward every bus frame to clients")
	serveCmd.Flags().IntVar(&serveMaxClients, "max-clients", 0, "Maximum number of simultaneous clients (default 4)")
	serveCmd.Flags().IntVar(&serveStats, "stats-interval", 300, "Bus statistics log interval in seconds (0 disables)")
	serveCmd.Flags().BoolVar(&serveSaveConfig, "save-config", false, "Write the effective settings to --config and exit")
}

// applyServeFlags layers explicitly set command line flags over cfg
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.Server.Listen = serveListen
	}
	if flags.Changed("max-clients") {
		cfg.Server.MaxClients = serveMaxClients
	}
	if flags.Changed("forward-raw") {
		cfg.Server.ForwardRaw = serveForwardRaw
	}
	if flags.Changed("database") {
		cfg.Database = serveDatabase
	}
	if flags.Changed("capture") {
		cfg.Bus.Capture = serveCapture
	}
	if flags.Changed("port") {
		cfg.Bus.Port = portName
	}
	if flags.Changed("baud") {
		cfg.Bus.Baud = baudRate
	}
	if flags.Changed("url") {
		cfg.Bus.URL = wsURL
	}
	if flags.Changed("username") {
		cfg.Bus.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		cfg.Bus.NoSSLVerify = wsNoSSLVerify
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	applyServeFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := logging.Setup(cfg.Logging.Level, nil); err != nil {
		return err
	}

	if serveSaveConfig {
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Printf("Settings written to %s\n", cfg.Path())
		return nil
	}

	db, err := database.Load(cfg.Database)
	if err != nil {
		return fmt.Errorf("error loading database: %w", err)
	}
	store := state.NewStore(nil, nil)
	if err := db.Populate(store); err != nil {
		return fmt.Errorf("error loading database: %w", err)
	}
	log.WithFields(log.Fields{
		"lights":   len(db.Lights),
		"shutters": len(db.Shutters),
		"file":     cfg.Database,
	}).Info("Database loaded")

	var bus io.ReadWriter
	if !cfg.TestMode() {
		conn, connInfo, err := OpenConnection(cfg.Bus)
		if err != nil {
			return err
		}
		defer conn.Close()
		bus = conn
		log.WithField("connection", connInfo).Info("Bus connected")
	} else {
		log.Warn("No bus interface configured, running in test mode")
	}

	gw := gateway.New(store, bus, gateway.Options{
		MaxClients:      cfg.Server.MaxClients,
		ForwardRaw:      cfg.Server.ForwardRaw,
		Tick:            cfg.TickInterval(),
		RefreshInterval: cfg.RefreshInterval(),
		ScheduleBack:    cfg.ScheduleBack(),
		StatsInterval:   time.Duration(serveStats) * time.Second,
	})

	if cfg.Bus.Capture != "" {
		capture, err := lcn.CreateCapture(cfg.Bus.Capture)
		if err != nil {
			return err
		}
		gw.SetCapture(capture)
		log.WithField("file", cfg.Bus.Capture).Info("Capturing bus traffic")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MQTT.Enabled {
		bridge := mqtt.New(cfg.MQTT, gw)
		gw.SetObserver(bridge)
		go func() {
			if err := bridge.Connect(ctx); err != nil {
				log.WithError(err).Warn("MQTT bridge not started")
			}
		}()
		defer bridge.Close()
	}

	ln, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Listen, err)
	}
	log.WithFields(log.Fields{
		"listen":      ln.Addr().String(),
		"max_clients": cfg.Server.MaxClients,
	}).Info("Gateway started")

	err = gw.Run(ctx, ln)
	if errors.Is(err, gateway.ErrServerClosed) {
		log.Info("Gateway stopped")
		return nil
	}
	return err
}
