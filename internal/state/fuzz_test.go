// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package state

import (
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

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := time.Now().UnixNano()
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if s, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			seed = s
		}
	}
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// ============================================================
// Shutter Estimator Fuzz Tests
// ============================================================

func TestFuzz_ShutterIntervalStaysOrdered(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for round := 0; round < rounds; round++ {
		s, _ := newTestStore()
		sh := mustShutter(t, s, 9, 1, 1+rng.Float64()*60, 1+rng.Float64()*60)
		tick := uint64(rng.Intn(1000))

		for step := 0; step < 50; step++ {
			tick += uint64(rng.Intn(200))

			var op string
			switch rng.Intn(3) {
			case 0:
				op = "update"
				s.UpdateShutter(9, 1, rng.Intn(3)-1, tick)
			case 1:
				op = "check"
				s.CheckShutters(tick)
			case 2:
				op = "command"
				a, b := rng.Intn(101), rng.Intn(101)
				s.CommandShutter(9, 1, min(a, b), max(a, b), tick)
			}

			if sh.PosMin < 0 || sh.PosMin > sh.PosMax || sh.PosMax > 1 {
				t.Fatalf("Round %d step %d (%s): interval [%v, %v] violates 0 <= min <= max <= 1",
					round, step, op, sh.PosMin, sh.PosMax)
			}
		}
	}
}

func TestFuzz_ShutterReachesEndStop(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for round := 0; round < rounds; round++ {
		s, _ := newTestStore()
		up, down := 1+rng.Float64()*60, 1+rng.Float64()*60
		sh := mustShutter(t, s, 9, 1, up, down)
		sh.PosMin = rng.Float64()
		sh.PosMax = sh.PosMin + rng.Float64()*(1-sh.PosMin)

		dir := 1
		if rng.Intn(2) == 0 {
			dir = -1
		}
		tick := uint64(rng.Intn(10000))
		s.UpdateShutter(9, 1, dir, tick)

		// Full travel plus margin, in ticks
		s.CheckShutters(tick + uint64(10*max(up, down)) + 10)

		want := 1.0
		if dir < 0 {
			want = 0
		}
		if sh.Move != 0 || sh.PosMin != want || sh.PosMax != want {
			t.Fatalf("Round %d: dir %d ended at [%v, %v] move=%d", round, dir, sh.PosMin, sh.PosMax, sh.Move)
		}
	}
}
