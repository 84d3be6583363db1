// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package database reads the installation file listing lights and shutters.
//
// Each non-blank line that does not start with '#' defines one endpoint:
//
//	L <module> <output> "<name>"
//	S <module> <run> "<name>" <up seconds> <down seconds>
//
// Numbers accept the 0x and 0 prefixes. Lines of other types are ignored.
package database

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Thermoquad/yali/internal/state"
)

// DefaultPath is used when no database is configured
const DefaultPath = "myconf.yali"

var ErrSyntax = errors.New("syntax error")

// Light is a light definition
type Light struct {
	Module byte
	Output byte
	Name   string
}

// Shutter is a shutter definition
type Shutter struct {
	Module   byte
	Run      byte
	Name     string
	UpTime   float64
	DownTime float64
}

// Database is the parsed installation file
type Database struct {
	Lights   []Light
	Shutters []Shutter
}

// Load reads and parses the file at path
func Load(path string) (*Database, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer f.Close()
	return Parse(f, path)
}

// Parse reads definitions from r. name prefixes error messages.
func Parse(r io.Reader, name string) (*Database, error) {
	db := &Database{}
	scanner := bufio.NewScanner(r)
	line := 0

	for scanner.Scan() {
		line++
		if err := db.parseLine(scanner.Text()); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return db, nil
}

func (db *Database) parseLine(text string) error {
	text = strings.TrimLeft(text, " \t\r\v\f")
	if text == "" || text[0] == '#' || text[0] < ' ' {
		return nil
	}

	kind := text[0]
	rest := text[1:]

	head, quoted, hasName := strings.Cut(rest, `"`)
	fields := strings.Fields(head)
	if len(fields) < 2 {
		return fmt.Errorf("%w: expect two numbers followed by string", ErrSyntax)
	}
	module, err1 := parseAddress(fields[0])
	channel, err2 := parseAddress(fields[1])
	if err1 != nil || err2 != nil {
		return fmt.Errorf("%w: expect two numbers followed by string", ErrSyntax)
	}
	if !hasName {
		return nil
	}

	endpoint, tail, _ := strings.Cut(quoted, `"`)

	switch kind {
	case 'L':
		db.Lights = append(db.Lights, Light{Module: module, Output: channel, Name: endpoint})
	case 'S':
		times := strings.Fields(tail)
		if len(times) < 2 {
			return fmt.Errorf("%w: expect two numbers after the string", ErrSyntax)
		}
		up, err1 := strconv.ParseFloat(times[0], 64)
		down, err2 := strconv.ParseFloat(times[1], 64)
		if err1 != nil || err2 != nil {
			return fmt.Errorf("%w: expect two numbers after the string", ErrSyntax)
		}
		db.Shutters = append(db.Shutters, Shutter{
			Module:   module,
			Run:      channel,
			Name:     endpoint,
			UpTime:   up,
			DownTime: down,
		})
	}
	return nil
}

func parseAddress(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, err
	}
	return byte(v), nil
}

// Populate registers every definition with the store
func (db *Database) Populate(s *state.Store) error {
	for _, l := range db.Lights {
		s.AddLight(l.Module, l.Output, l.Name)
	}
	for _, sh := range db.Shutters {
		if _, err := s.AddShutter(sh.Module, sh.Run, sh.Name, sh.UpTime, sh.DownTime); err != nil {
			return err
		}
	}
	return nil
}
