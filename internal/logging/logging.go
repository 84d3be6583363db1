// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"

	log "github.com/sirupsen/logrus"
)

// Setup sets the log level and text format. An unknown level falls back to
// info and is returned as an error so the caller can report it.
func Setup(level string, out io.Writer) error {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if out != nil {
		log.SetOutput(out)
	}

	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.SetLevel(log.InfoLevel)
		return err
	}
	log.SetLevel(lvl)
	log.Debugf("Log level set to: %s", lvl)
	return nil
}
