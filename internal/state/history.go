// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package state

import "github.com/Thermoquad/yali/pkg/yali"

// HistorySize is the capacity of the history ring in bytes (512 records)
const HistorySize = 4096

// History is a ring of fixed-size change records. Unused slots are zero.
type History struct {
	buf [HistorySize]byte
	pos int // offset of the next record to write
}

// Append writes r over the oldest slot
func (h *History) Append(r yali.HistoryRecord) {
	r.Put(h.buf[h.pos : h.pos+yali.HistoryRecordSize])
	h.pos = (h.pos + yali.HistoryRecordSize) % HistorySize
}

// Export returns the used part of the ring, oldest record first. Leading
// unused slots after the write position are skipped.
func (h *History) Export() []byte {
	idx := h.pos
	skipped := 0
	for ; skipped < HistorySize; skipped += yali.HistoryRecordSize {
		if !isZero(h.buf[idx : idx+yali.HistoryRecordSize]) {
			break
		}
		idx = (idx + yali.HistoryRecordSize) % HistorySize
	}

	out := make([]byte, HistorySize-skipped)
	n := copy(out, h.buf[idx:])
	copy(out[n:], h.buf[:len(out)-n])
	return out
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
