// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Thermoquad/yali/internal/database"
	"github.com/Thermoquad/yali/pkg/lcn"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Flags shared by the bus diagnostic commands
var (
	busDatabase string
	busModules  []uint
)

const busTick = 100 * time.Millisecond

func addBusFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&busDatabase, "database", "d", "", "Take known module addresses from a database file")
	cmd.Flags().UintSliceVarP(&busModules, "modules", "m", nil, "Known module addresses (comma separated)")
}

// addressBook returns the module addresses frames are checked against.
// Without a database or module list every address is accepted.
func addressBook() (lcn.AddressSet, error) {
	if busDatabase == "" && len(busModules) == 0 {
		all := make([]byte, 0, 256)
		for a := 0; a < 256; a++ {
			all = append(all, byte(a))
		}
		return lcn.NewAddressSet(all...), nil
	}

	var addrs []byte
	for _, m := range busModules {
		if m > 0xFF {
			return nil, fmt.Errorf("module address %d out of range", m)
		}
		addrs = append(addrs, byte(m))
	}
	if busDatabase != "" {
		db, err := database.Load(busDatabase)
		if err != nil {
			return nil, err
		}
		for _, l := range db.Lights {
			addrs = append(addrs, l.Module)
		}
		for _, sh := range db.Shutters {
			addrs = append(addrs, sh.Module)
		}
	}
	return lcn.NewAddressSet(addrs...), nil
}

// busTicker converts wall-clock time into decoder ticks
type busTicker struct {
	start time.Time
}

func newBusTicker() busTicker {
	return busTicker{start: time.Now()}
}

func (b busTicker) Now() uint64 {
	return uint64(time.Since(b.start) / busTick)
}

// readBus feeds conn into a decoder and delivers the decoded packets of each
// read to handle until the connection fails.
func readBus(conn Connection, book lcn.AddressBook, handle func([]*lcn.Packet)) error {
	decoder := lcn.NewDecoder(book)
	ticker := newBusTicker()
	buf := make([]byte, lcn.ReceiveBufSize)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			// A WebSocket read error means the bridge is gone for good
			if errors.Is(err, ErrConnectionClosed) || errors.Is(err, io.EOF) {
				log.Info("Connection closed")
				return nil
			}
			log.WithError(err).Warn("Read error")
			if _, ok := conn.(*WebSocketConnection); ok {
				return err
			}
			time.Sleep(busTick)
			continue
		}
		if packets := decoder.Feed(buf[:n], ticker.Now()); len(packets) > 0 {
			handle(packets)
		}
	}
}
