// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config holds the gateway's runtime settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/yali/internal/database"
	"github.com/Thermoquad/yali/pkg/yali"
)

// Config holds all gateway configuration.
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Bus      BusConfig     `yaml:"bus"`
	Database string        `yaml:"database"` // light and shutter definitions
	Refresh  RefreshConfig `yaml:"refresh"`
	MQTT     MQTTConfig    `yaml:"mqtt"`
	Logging  LoggingConfig `yaml:"logging"`

	path string // file path for save/load
}

type ServerConfig struct {
	Listen     string `yaml:"listen"`
	MaxClients int    `yaml:"max_clients"`
	ForwardRaw bool   `yaml:"forward_raw"` // broadcast every bus frame to clients
}

// BusConfig selects the bus interface. With neither Port nor URL set the
// gateway runs in test mode and applies set requests to its own state.
type BusConfig struct {
	Port        string `yaml:"port"`
	Baud        int    `yaml:"baud"`
	URL         string `yaml:"url"`
	Username    string `yaml:"username"`
	NoSSLVerify bool   `yaml:"no_ssl_verify"`
	Capture     string `yaml:"capture"` // capture log path
	TickMs      int    `yaml:"tick_ms"`
}

type RefreshConfig struct {
	IntervalS     int `yaml:"interval_s"`
	ScheduleBackS int `yaml:"schedule_back_s"`
}

type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:     fmt.Sprintf(":%d", yali.DefaultPort),
			MaxClients: 4,
		},
		Bus: BusConfig{
			Baud:   9600,
			TickMs: 100,
		},
		Database: database.DefaultPath,
		Refresh: RefreshConfig{
			IntervalS:     600,
			ScheduleBackS: 55,
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			ClientID:    "yali",
			TopicPrefix: "yali",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads config from a YAML file, then applies environment
// variable overrides. A missing file leaves the defaults in place.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Debugf("No config at %s, using defaults", path)
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("error parsing %s: %w", path, err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides reads environment variables and overrides config values.
// Supported: YALI_PORT, YALI_SERIAL, YALI_DATABASE, YALI_MQTT_BROKER,
// YALI_LOG_LEVEL
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("YALI_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.Listen = fmt.Sprintf(":%d", n)
		}
	}
	if v := os.Getenv("YALI_SERIAL"); v != "" {
		c.Bus.Port = v
	}
	if v := os.Getenv("YALI_DATABASE"); v != "" {
		c.Database = v
	}
	if v := os.Getenv("YALI_MQTT_BROKER"); v != "" {
		c.MQTT.Broker = v
		c.MQTT.Enabled = true
	}
	if v := os.Getenv("YALI_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server listen address is not specified")
	}
	if c.Server.MaxClients <= 0 {
		return fmt.Errorf("server max_clients must be positive")
	}
	if c.Bus.TickMs <= 0 {
		return fmt.Errorf("bus tick_ms must be positive")
	}
	if c.Bus.Port != "" && c.Bus.Baud <= 0 {
		return fmt.Errorf("bus baud rate must be positive")
	}
	if c.Refresh.IntervalS <= 0 {
		return fmt.Errorf("refresh interval_s must be positive")
	}
	if c.Refresh.ScheduleBackS < 0 || c.Refresh.ScheduleBackS > c.Refresh.IntervalS {
		return fmt.Errorf("refresh schedule_back_s must be within 0..interval_s")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("MQTT broker is not specified")
	}
	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// TestMode reports whether no bus interface is configured.
func (c *Config) TestMode() bool {
	return c.Bus.Port == "" && c.Bus.URL == ""
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Bus.TickMs) * time.Millisecond
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Refresh.IntervalS) * time.Second
}

func (c *Config) ScheduleBack() time.Duration {
	return time.Duration(c.Refresh.ScheduleBackS) * time.Second
}

// Path returns the file the config was loaded from
func (c *Config) Path() string {
	return c.path
}

// Save writes the config to its YAML file.
func (c *Config) Save() error {
	if c.path == "" {
		c.path = "yali.yaml"
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0o644)
}
