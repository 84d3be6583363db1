// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lcn

import (
	"bytes"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// randomKnownFrame builds a valid command or ack between known addresses
func randomKnownFrame(rng *rand.Rand) Frame {
	if rng.Intn(4) == 0 {
		return Frame{0xA0, 0x00, 0x99, 0x00, 0x01, 0x12}
	}
	info := byte(InfoCommand + rng.Intn(2))
	return newCommand(info, 5, byte(rng.Intn(256)), byte(rng.Intn(256)), byte(rng.Intn(256)))
}

func randomBytes(rng *rand.Rand, n int) []byte {
	b := make([]byte, n)
	rng.Read(b)
	return b
}

// ============================================================
// Decoder Fuzz Tests
// ============================================================

func TestFuzz_DecoderCleanStream(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for round := 0; round < rounds; round++ {
		d := NewDecoder(testBook)
		var frames []Frame
		var stream []byte
		for i := 0; i < 1+rng.Intn(10); i++ {
			f := randomKnownFrame(rng)
			frames = append(frames, f)
			stream = append(stream, f...)
		}

		var got []*Packet
		for len(stream) > 0 {
			n := 1 + rng.Intn(len(stream))
			got = append(got, d.Feed(stream[:n], 1)...)
			stream = stream[n:]
		}

		if len(got) != len(frames) {
			t.Fatalf("Round %d: expected %d frames, got %v", round, len(frames), packetKinds(got))
		}
		for i := range frames {
			if !got[i].IsFrame() || !bytes.Equal(got[i].Frame(), frames[i]) {
				t.Fatalf("Round %d: packet %d is %s %X, want %X", round, i, got[i].Kind(), got[i].Bytes(), frames[i])
			}
		}
	}
}

func TestFuzz_DecoderAccountsForEveryByte(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for round := 0; round < rounds; round++ {
		d := NewDecoder(testBook)
		total := 0
		emitted := 0
		tick := uint64(1)

		for i := 0; i < 20; i++ {
			var chunk []byte
			if rng.Intn(3) == 0 {
				chunk = randomKnownFrame(rng)
			} else {
				chunk = randomBytes(rng, rng.Intn(40))
			}
			tick += uint64(rng.Intn(3))
			total += len(chunk)

			for _, p := range d.Feed(chunk, tick) {
				emitted += len(p.Bytes())
				if p.IsFrame() {
					if status, n := Verify(p.Frame(), testBook); status != StatusValidKnown || n != len(p.Frame()) {
						t.Fatalf("Round %d: emitted frame %X verifies as %s", round, p.Frame(), status)
					}
				}
			}
			if len(d.Pending()) > ReceiveBufSize {
				t.Fatalf("Round %d: buffer overrun (%d bytes)", round, len(d.Pending()))
			}
		}

		if emitted+len(d.Pending()) != total {
			t.Fatalf("Round %d: fed %d bytes, emitted %d, pending %d", round, total, emitted, len(d.Pending()))
		}
	}
}

// ============================================================
// Scan Fuzz Tests
// ============================================================

func TestFuzz_ScanReturnsDecidedStart(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for round := 0; round < rounds; round++ {
		buf := randomBytes(rng, rng.Intn(30))
		if rng.Intn(2) == 0 {
			at := rng.Intn(len(buf) + 1)
			f := randomKnownFrame(rng)
			buf = append(buf[:at], append(f, buf[at:]...)...)
		}

		start := Scan(buf, testBook)
		if start == 0 {
			continue
		}

		status := StatusIncomplete
		for n := 1; n <= len(buf)-start; n++ {
			status, _ = Verify(buf[start:start+n], testBook)
			if status != StatusIncomplete {
				break
			}
		}
		if status == StatusIncomplete || status == StatusCRCError {
			t.Fatalf("Round %d: Scan returned %d in %X but Verify reports %s", round, start, buf, status)
		}
	}
}
