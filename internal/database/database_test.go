// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package database

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Thermoquad/yali/internal/state"
)

const sample = `# living room
L 5 1 "Kitchen"
  L 0x07 3 "Hall light"

S 9 2 "Terrace" 18.5 17
X 1 1 "ignored"
L 6 2 no name here
`

func TestParse(t *testing.T) {
	db, err := Parse(strings.NewReader(sample), "sample")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	expectedLights := []Light{
		{Module: 5, Output: 1, Name: "Kitchen"},
		{Module: 7, Output: 3, Name: "Hall light"},
	}
	if len(db.Lights) != len(expectedLights) {
		t.Fatalf("Expected %d lights, got %+v", len(expectedLights), db.Lights)
	}
	for i, l := range expectedLights {
		if db.Lights[i] != l {
			t.Errorf("Light %d: got %+v, want %+v", i, db.Lights[i], l)
		}
	}

	expectedShutter := Shutter{Module: 9, Run: 2, Name: "Terrace", UpTime: 18.5, DownTime: 17}
	if len(db.Shutters) != 1 || db.Shutters[0] != expectedShutter {
		t.Errorf("Unexpected shutters %+v", db.Shutters)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
	}{
		{"missing numbers", `L "Kitchen"`, "sample:1: syntax error: expect two numbers followed by string"},
		{"bad number", "# ok\nL 5 x \"Kitchen\"", "sample:2: syntax error: expect two numbers followed by string"},
		{"module out of range", `L 300 1 "Kitchen"`, "sample:1: syntax error: expect two numbers followed by string"},
		{"missing times", `S 9 2 "Terrace" 18`, "sample:1: syntax error: expect two numbers after the string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input), "sample")
			if !errors.Is(err, ErrSyntax) {
				t.Fatalf("Expected ErrSyntax, got %v", err)
			}
			if err.Error() != tt.message {
				t.Errorf("got %q, want %q", err.Error(), tt.message)
			}
		})
	}
}

func TestLoadAndPopulate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "myconf.yali")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}

	db, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	s := state.NewStore(nil, nil)
	if err := db.Populate(s); err != nil {
		t.Fatalf("Populate error: %v", err)
	}
	if len(s.Lights()) != 2 || len(s.Shutters()) != 1 {
		t.Errorf("Store has %d lights and %d shutters", len(s.Lights()), len(s.Shutters()))
	}
	if !s.IsKnownAddress(9) {
		t.Error("Shutter module should be known")
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected ErrNotExist, got %v", err)
	}
}

func TestPopulate_InvalidShutter(t *testing.T) {
	db := &Database{Shutters: []Shutter{{Module: 9, Run: 7, Name: "Bad", UpTime: 10, DownTime: 10}}}
	if err := db.Populate(state.NewStore(nil, nil)); err == nil {
		t.Error("Expected error for run 7")
	}
}
