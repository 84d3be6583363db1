// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lcn

import (
	"fmt"
	"time"
)

// Statistics tracks bus traffic and error counters
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Receive side
	Frames        uint64
	Acks          uint64
	GarbageBytes  uint64
	GarbageRuns   uint64
	CRCErrors     uint64 // garbage runs that started with a corrupted known frame
	Overflows     uint64
	StaleFlushes  uint64
	UnknownFrames uint64 // frames that produced no state update

	// Send side
	Sent             uint64
	Retransmissions  uint64
	DeliveryFailures uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // discarded runs/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Received accounts for one unit of decoder output
func (s *Statistics) Received(p *Packet) {
	switch p.Kind() {
	case KindFrame:
		s.Frames++
		if p.Frame().Info() == InfoEmpty {
			s.Acks++
		}
	case KindGarbage:
		s.GarbageRuns++
		s.GarbageBytes += uint64(len(p.Bytes()))
		if p.CRCError() {
			s.CRCErrors++
		}
	case KindOverflow:
		s.Overflows++
		s.GarbageBytes += uint64(len(p.Bytes()))
	case KindStale:
		s.StaleFlushes++
		s.GarbageBytes += uint64(len(p.Bytes()))
	}
	s.LastUpdateTime = time.Now()
}

// Transmitted accounts for one frame put on the bus
func (s *Statistics) Transmitted(retry bool) {
	s.Sent++
	if retry {
		s.Retransmissions++
	}
	s.LastUpdateTime = time.Now()
}

// DeliveryFailed accounts for a frame dropped without ack
func (s *Statistics) DeliveryFailed() {
	s.DeliveryFailures++
	s.LastUpdateTime = time.Now()
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.Frames) / elapsed
		s.ErrorRate = float64(s.GarbageRuns+s.Overflows+s.StaleFlushes) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Bus Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Frames:          %8d\n", s.Frames)
	result += fmt.Sprintf("  Acks:             %5d\n", s.Acks)
	if s.UnknownFrames > 0 {
		result += fmt.Sprintf("  Uninterpreted:    %5d\n", s.UnknownFrames)
	}
	if s.GarbageBytes > 0 {
		result += fmt.Sprintf("Garbage Bytes:   %8d\n", s.GarbageBytes)
		if s.GarbageRuns > 0 {
			result += fmt.Sprintf("  Resyncs:          %5d\n", s.GarbageRuns)
		}
		if s.CRCErrors > 0 {
			result += fmt.Sprintf("  CRC Errors:       %5d\n", s.CRCErrors)
		}
		if s.Overflows > 0 {
			result += fmt.Sprintf("  Buffer Flushes:   %5d\n", s.Overflows)
		}
		if s.StaleFlushes > 0 {
			result += fmt.Sprintf("  Stale Flushes:    %5d\n", s.StaleFlushes)
		}
	}
	result += fmt.Sprintf("Sent:            %8d\n", s.Sent)
	if s.Retransmissions > 0 {
		result += fmt.Sprintf("  Retransmissions:  %5d\n", s.Retransmissions)
	}
	if s.DeliveryFailures > 0 {
		result += fmt.Sprintf("Delivery Failed: %8d\n", s.DeliveryFailures)
	}
	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "====================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
