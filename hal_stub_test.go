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

package serialboot

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// programCall records one ProgramByte invocation
type programCall struct {
	addr  uint32
	value byte
}

// recordingFlash is a flash controller stub that logs every call in order.
type recordingFlash struct {
	programStatus map[uint32]Status
	calls         []string
	programs      []programCall
	eraseStatus   Status
	massStatus    Status
	locked        bool
}

func newRecordingFlash() *recordingFlash {
	return &recordingFlash{
		programStatus: make(map[uint32]Status),
		locked:        true,
	}
}

func (f *recordingFlash) Unlock() {
	f.calls = append(f.calls, "unlock")
	f.locked = false
}

func (f *recordingFlash) Lock() {
	f.calls = append(f.calls, "lock")
	f.locked = true
}

func (f *recordingFlash) EraseSectors(start, count, bank byte) Status {
	f.calls = append(f.calls, fmt.Sprintf("erase(%d,%d,%d)", start, count, bank))
	return f.eraseStatus
}

func (f *recordingFlash) MassErase(bank byte) Status {
	f.calls = append(f.calls, fmt.Sprintf("mass(%d)", bank))
	return f.massStatus
}

func (f *recordingFlash) ProgramByte(addr uint32, value byte) Status {
	f.calls = append(f.calls, "program")
	f.programs = append(f.programs, programCall{addr: addr, value: value})
	if f.locked {
		return StatusError
	}
	if s, ok := f.programStatus[addr]; ok {
		return s
	}
	return StatusOK
}

// hardwareCalls returns the calls other than lock bookkeeping
func (f *recordingFlash) hardwareCalls() []string {
	var out []string
	for _, c := range f.calls {
		if c != "lock" && c != "unlock" {
			out = append(out, c)
		}
	}
	return out
}

type stubOptionBytes struct {
	level byte
	reads int
}

func (o *stubOptionBytes) ReadProtectionConfig() byte {
	o.reads++
	return o.level
}

type recordingJumper struct {
	targets []uint32
}

func (j *recordingJumper) Jump(addr uint32) {
	j.targets = append(j.targets, addr)
}

// testRig bundles a dispatcher with its recording collaborators
type testRig struct {
	tx         *MockTransport
	flash      *recordingFlash
	options    *stubOptionBytes
	jumper     *recordingJumper
	dispatcher *Dispatcher
}

func newTestRig(t *testing.T, opts ...Option) *testRig {
	t.Helper()
	rig := &testRig{
		tx:      NewMockTransport(),
		flash:   newRecordingFlash(),
		options: &stubOptionBytes{level: 0xAA},
		jumper:  &recordingJumper{},
	}
	d, err := NewDispatcher(rig.peripherals(), opts...)
	require.NoError(t, err)
	rig.dispatcher = d
	return rig
}

func (r *testRig) peripherals() Peripherals {
	return Peripherals{
		Transmitter: r.tx,
		Eraser:      r.flash,
		Programmer:  r.flash,
		OptionBytes: r.options,
		Jumper:      r.jumper,
	}
}

// mustEncode builds a frame with the STM32 checksum
func mustEncode(t *testing.T, cmd Command) []byte {
	t.Helper()
	frame, err := EncodeFrame(cmd, NewSTM32CRC())
	require.NoError(t, err)
	return frame
}

// corruptChecksum flips a bit in the trailing checksum
func corruptChecksum(frame []byte) []byte {
	out := append([]byte(nil), frame...)
	out[len(out)-1] ^= 0x01
	return out
}
