// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"YALI_PORT", "YALI_SERIAL", "YALI_DATABASE", "YALI_MQTT_BROKER", "YALI_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Listen != ":4711" {
		t.Errorf("Listen = %q, want :4711", cfg.Server.Listen)
	}
	if cfg.Server.MaxClients != 4 {
		t.Errorf("MaxClients = %d, want 4", cfg.Server.MaxClients)
	}
	if cfg.Bus.Baud != 9600 {
		t.Errorf("Baud = %d, want 9600", cfg.Bus.Baud)
	}
	if cfg.TickInterval() != 100*time.Millisecond {
		t.Errorf("TickInterval = %v", cfg.TickInterval())
	}
	if cfg.RefreshInterval() != 10*time.Minute || cfg.ScheduleBack() != 55*time.Second {
		t.Errorf("Refresh = %v/%v", cfg.RefreshInterval(), cfg.ScheduleBack())
	}
	if !cfg.TestMode() {
		t.Error("Default config should run in test mode")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config invalid: %v", err)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Database != "myconf.yali" {
		t.Errorf("Database = %q", cfg.Database)
	}
}

func TestLoadConfig_File(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "yali.yaml")
	data := `
server:
  listen: ":5000"
  forward_raw: true
bus:
  port: /dev/ttyS0
refresh:
  interval_s: 300
mqtt:
  enabled: true
  topic_prefix: home
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Server.Listen != ":5000" || !cfg.Server.ForwardRaw {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Server.MaxClients != 4 {
		t.Errorf("Unset keys should keep defaults, got MaxClients %d", cfg.Server.MaxClients)
	}
	if cfg.Bus.Port != "/dev/ttyS0" || cfg.Bus.Baud != 9600 || cfg.TestMode() {
		t.Errorf("Bus = %+v", cfg.Bus)
	}
	if cfg.Refresh.IntervalS != 300 || cfg.Refresh.ScheduleBackS != 55 {
		t.Errorf("Refresh = %+v", cfg.Refresh)
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.TopicPrefix != "home" || cfg.MQTT.ClientID != "yali" {
		t.Errorf("MQTT = %+v", cfg.MQTT)
	}
	if cfg.Path() != path {
		t.Errorf("Path = %q", cfg.Path())
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("YALI_PORT", "4800")
	t.Setenv("YALI_SERIAL", "/dev/ttyUSB1")
	t.Setenv("YALI_DATABASE", "/etc/yali/house.yali")
	t.Setenv("YALI_MQTT_BROKER", "tcp://broker:1883")
	t.Setenv("YALI_LOG_LEVEL", "warn")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Server.Listen != ":4800" {
		t.Errorf("Listen = %q", cfg.Server.Listen)
	}
	if cfg.Bus.Port != "/dev/ttyUSB1" {
		t.Errorf("Bus.Port = %q", cfg.Bus.Port)
	}
	if cfg.Database != "/etc/yali/house.yali" {
		t.Errorf("Database = %q", cfg.Database)
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.Broker != "tcp://broker:1883" {
		t.Errorf("MQTT = %+v", cfg.MQTT)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %q", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errSub string
	}{
		{"no listen", func(c *Config) { c.Server.Listen = "" }, "listen"},
		{"no clients", func(c *Config) { c.Server.MaxClients = 0 }, "max_clients"},
		{"zero tick", func(c *Config) { c.Bus.TickMs = 0 }, "tick_ms"},
		{"bad baud", func(c *Config) { c.Bus.Port = "/dev/ttyS0"; c.Bus.Baud = 0 }, "baud"},
		{"zero interval", func(c *Config) { c.Refresh.IntervalS = 0 }, "interval_s"},
		{"back too large", func(c *Config) { c.Refresh.ScheduleBackS = 700 }, "schedule_back_s"},
		{"mqtt without broker", func(c *Config) { c.MQTT.Enabled = true; c.MQTT.Broker = "" }, "broker"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.errSub) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.errSub)
			}
		})
	}
}

func TestLoadConfig_ParseError(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected parse error")
	}
}

func TestSave(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "saved.yaml")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Server.ForwardRaw = true
	cfg.Bus.Capture = "/var/log/yali.cbor"
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Reload error: %v", err)
	}
	if !loaded.Server.ForwardRaw || loaded.Bus.Capture != "/var/log/yali.cbor" {
		t.Errorf("Reloaded config lost values: %+v", loaded)
	}
}
