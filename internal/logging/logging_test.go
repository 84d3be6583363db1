// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestSetup(t *testing.T) {
	defer log.SetOutput(os.Stderr)
	defer log.SetLevel(log.InfoLevel)

	var buf bytes.Buffer
	if err := Setup("debug", &buf); err != nil {
		t.Fatalf("Setup error: %v", err)
	}
	if log.GetLevel() != log.DebugLevel {
		t.Errorf("Level = %v, want debug", log.GetLevel())
	}

	log.WithField("module", 5).Info("Light changed")
	if !strings.Contains(buf.String(), "module=5") {
		t.Errorf("Expected structured field in %q", buf.String())
	}
}

func TestSetup_InvalidLevel(t *testing.T) {
	defer log.SetOutput(os.Stderr)
	defer log.SetLevel(log.InfoLevel)

	var buf bytes.Buffer
	if err := Setup("chatty", &buf); err == nil {
		t.Error("Expected error for unknown level")
	}
	if log.GetLevel() != log.InfoLevel {
		t.Errorf("Level = %v, want info fallback", log.GetLevel())
	}
}
