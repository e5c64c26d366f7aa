// go-serialboot
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-serialboot.
//
// go-serialboot is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-serialboot is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-serialboot; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package testing holds test doubles shared by the transport, host and
// emulator packages.
package testing

import (
	"io"
	"math/rand/v2"
	"time"
)

// JitterConfig shapes how a JitteryReader hands out bytes.
type JitterConfig struct {
	// MaxLatencyMs adds up to this many milliseconds before each read.
	MaxLatencyMs int
	// FragmentMinBytes is the smallest fragment returned when fragmenting.
	FragmentMinBytes int
	// StallAfterBytes pauses once after this many bytes.
	StallAfterBytes int
	StallDuration   time.Duration
	// Seed makes the fragmentation repeatable. Zero picks a random seed.
	Seed uint64
	// FragmentReads splits reads at random sizes.
	FragmentReads bool
	// USBBoundaryStress splits reads at 64-byte boundaries like a
	// full-speed USB serial adapter.
	USBBoundaryStress bool
}

// DefaultJitterConfig returns byte-granular fragmentation with small delays.
func DefaultJitterConfig() JitterConfig {
	return JitterConfig{
		MaxLatencyMs:     2,
		FragmentReads:    true,
		FragmentMinBytes: 1,
	}
}

// JitteryReader buffers its backend and returns the bytes in irregular
// pieces so receivers are exercised against partial reads.
type JitteryReader struct {
	backend        io.Reader
	rng            *rand.Rand
	pending        []byte
	config         JitterConfig
	bytesDelivered int
	stallTriggered bool
}

// NewJitteryReader wraps backend.
func NewJitteryReader(backend io.Reader, config JitterConfig) *JitteryReader {
	var rng *rand.Rand
	if config.Seed != 0 {
		rng = rand.New(rand.NewPCG(config.Seed, config.Seed^0xDEADBEEF)) //nolint:gosec // test code
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // test code
	}
	if config.FragmentMinBytes < 1 {
		config.FragmentMinBytes = 1
	}
	return &JitteryReader{backend: backend, config: config, rng: rng}
}

func (j *JitteryReader) Read(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	if j.config.MaxLatencyMs > 0 {
		if delay := time.Duration(j.rng.IntN(j.config.MaxLatencyMs+1)) * time.Millisecond; delay > 0 {
			time.Sleep(delay)
		}
	}

	if len(j.pending) == 0 {
		tmp := make([]byte, 1024)
		n, err := j.backend.Read(tmp)
		if n == 0 {
			return 0, err //nolint:wrapcheck // pass-through wrapper
		}
		j.pending = append(j.pending, tmp[:n]...)
	}

	toReturn := min(len(j.pending), len(buf))

	if j.config.StallAfterBytes > 0 && !j.stallTriggered {
		if j.bytesDelivered >= j.config.StallAfterBytes {
			j.stallTriggered = true
			time.Sleep(j.config.StallDuration)
		} else {
			toReturn = min(toReturn, j.config.StallAfterBytes-j.bytesDelivered)
		}
	}

	if j.config.USBBoundaryStress {
		untilBoundary := 64 - j.bytesDelivered%64
		toReturn = min(toReturn, untilBoundary)
	}

	if j.config.FragmentReads && toReturn > j.config.FragmentMinBytes {
		toReturn = j.config.FragmentMinBytes + j.rng.IntN(toReturn-j.config.FragmentMinBytes+1)
	}

	copy(buf, j.pending[:toReturn])
	j.pending = j.pending[toReturn:]
	j.bytesDelivered += toReturn
	return toReturn, nil
}

// ResetStallState re-arms the stall.
func (j *JitteryReader) ResetStallState() {
	j.bytesDelivered = 0
	j.stallTriggered = false
}
