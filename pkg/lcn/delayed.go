// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lcn

// DelayedCommand is a frame to be queued for transmission once Tick is reached.
type DelayedCommand struct {
	Tick  uint64
	Frame Frame
}

// DelayedQueue holds delayed commands in ascending tick order. Commands with
// equal ticks keep their insertion order.
type DelayedQueue struct {
	entries []DelayedCommand
}

// NewDelayedQueue creates an empty delayed queue
func NewDelayedQueue() *DelayedQueue {
	return &DelayedQueue{}
}

// Insert places the command before the first entry with a strictly greater
// tick, or at the end.
func (q *DelayedQueue) Insert(tick uint64, f Frame) {
	cmd := DelayedCommand{Tick: tick, Frame: f.Clone()}

	i := len(q.entries)
	for j, e := range q.entries {
		if e.Tick > tick {
			i = j
			break
		}
	}

	q.entries = append(q.entries, DelayedCommand{})
	copy(q.entries[i+1:], q.entries[i:])
	q.entries[i] = cmd
}

// PopDue removes and returns the head command if its tick has been reached.
func (q *DelayedQueue) PopDue(now uint64) (Frame, bool) {
	if len(q.entries) == 0 || q.entries[0].Tick > now {
		return nil, false
	}
	f := q.entries[0].Frame
	q.entries[0] = DelayedCommand{}
	q.entries = q.entries[1:]
	return f, true
}

// Len returns the number of pending commands
func (q *DelayedQueue) Len() int {
	return len(q.entries)
}

// Entries returns a copy of the pending commands in order
func (q *DelayedQueue) Entries() []DelayedCommand {
	out := make([]DelayedCommand, len(q.entries))
	copy(out, q.entries)
	return out
}
