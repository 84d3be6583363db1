// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/Thermoquad/yali/pkg/yali"
)

const dialTimeout = 5 * time.Second

var traceTraffic bool

func init() {
	rootCmd.PersistentFlags().BoolVar(&traceTraffic, "trace", false, "Print every YALI packet sent and received (client commands)")
}

// defaultServerAddr builds the gateway address from YALI_SERVER and YALI_PORT
func defaultServerAddr() string {
	host := envOr("YALI_SERVER", "localhost")
	port := strconv.Itoa(yali.DefaultPort)
	if p := os.Getenv("YALI_PORT"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 && n <= 0xFFFF {
			port = strconv.Itoa(n)
		}
	}
	return net.JoinHostPort(host, port)
}

// session is a client connection with the gateway's light and shutter
// databases loaded
type session struct {
	client   *yali.Client
	version  yali.Version
	lights   []yali.LightRecord
	shutters []yali.ShutterRecord
}

// openSession connects to the gateway and fetches version and databases
func openSession() (*session, error) {
	client, err := yali.Dial(serverAddr, dialTimeout)
	if err != nil {
		return nil, err
	}
	if traceTraffic {
		client.SetTrace(printTrace)
	}

	s := &session{client: client}
	if s.version, err = client.Version(); err != nil {
		client.Close()
		return nil, err
	}
	if s.lights, err = client.LightDB(); err != nil {
		client.Close()
		return nil, err
	}
	if s.shutters, err = client.ShutterDB(); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) Close() error {
	return s.client.Close()
}

func printTrace(sent bool, p *yali.Packet) {
	dir := "<<<"
	if sent {
		dir = ">>>"
	}
	fmt.Printf("%s %s\n", dir, p)
}

func (s *session) findLight(name string) (yali.LightRecord, bool) {
	for _, l := range s.lights {
		if l.Name == name {
			return l, true
		}
	}
	return yali.LightRecord{}, false
}

func (s *session) findShutter(name string) (yali.ShutterRecord, bool) {
	for _, sh := range s.shutters {
		if sh.Name == name {
			return sh, true
		}
	}
	return yali.ShutterRecord{}, false
}

func (s *session) lightName(module, output byte) (string, bool) {
	for _, l := range s.lights {
		if l.Module == module && l.Output == output {
			return l.Name, true
		}
	}
	return "", false
}

func (s *session) shutterName(module, run byte) (string, bool) {
	for _, sh := range s.shutters {
		if sh.Module == module && sh.Run == run {
			return sh.Name, true
		}
	}
	return "", false
}

// resolveLights maps names to database records. An unknown name prints the
// available lights and fails.
func (s *session) resolveLights(names []string) ([]yali.LightRecord, error) {
	out := make([]yali.LightRecord, 0, len(names))
	for _, name := range names {
		l, ok := s.findLight(name)
		if !ok {
			fmt.Printf("Light %q is unknown, choose one of ...\n", name)
			for _, known := range s.lights {
				fmt.Printf("  %s\n", known.Name)
			}
			return nil, fmt.Errorf("unknown light %q", name)
		}
		out = append(out, l)
	}
	return out, nil
}

// parsePercent parses a brightness or position argument, clamped to 0..100
func parsePercent(arg string) (int, error) {
	v, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: %w", arg, err)
	}
	return max(0, min(v, 100)), nil
}
