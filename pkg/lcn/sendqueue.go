// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lcn

// SendQueue is the outbound FIFO with a single acknowledgment slot. A frame
// that requests an ack occupies the slot after its first transmission and is
// repeated on every tick until it is acknowledged or runs out of attempts.
type SendQueue struct {
	queue    []Frame
	waiting  Frame
	attempts int
}

// NewSendQueue creates an empty send queue
func NewSendQueue() *SendQueue {
	return &SendQueue{}
}

// Enqueue appends a copy of f to the FIFO.
func (q *SendQueue) Enqueue(f Frame) {
	q.queue = append(q.queue, f.Clone())
}

// Len returns the number of frames waiting in the FIFO, not counting the
// ack slot.
func (q *SendQueue) Len() int {
	return len(q.queue)
}

// Waiting returns the frame in the ack slot, or nil.
func (q *SendQueue) Waiting() Frame {
	return q.waiting
}

// Attempts returns how many times the ack-slot frame has been repeated.
func (q *SendQueue) Attempts() int {
	return q.attempts
}

// Next advances the queue by one tick. tx is the frame to put on the bus
// (nil when idle) and retry marks a repetition of the ack-slot frame. When
// the ack-slot frame has used up MaxSendAttempts transmissions it is
// returned as dropped and the next queued frame is taken in the same tick.
func (q *SendQueue) Next() (tx Frame, retry bool, dropped Frame) {
	if q.waiting != nil {
		q.attempts++
		if q.attempts < MaxSendAttempts {
			return q.waiting, true, nil
		}
		dropped = q.waiting
		q.waiting = nil
	}

	q.attempts = 0
	if len(q.queue) == 0 {
		return nil, false, dropped
	}

	tx = q.queue[0]
	q.queue[0] = nil
	q.queue = q.queue[1:]

	if tx.WantsAck() {
		q.waiting = tx
	}
	return tx, false, dropped
}

// Acknowledge clears the ack slot if f is an empty frame whose addresses
// mirror the waiting frame: sent by its destination, addressed to its source.
func (q *SendQueue) Acknowledge(f Frame) bool {
	if q.waiting == nil || len(f) < ShortFrameSize || f.Info() != InfoEmpty {
		return false
	}
	if q.waiting.Destination() != f.Source() {
		return false
	}
	if q.waiting.RawSource() != ReverseAddress(f.Destination()) {
		return false
	}
	q.waiting = nil
	q.attempts = 0
	return true
}
