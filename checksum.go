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
	"hash/crc32"
	"strings"
)

// Accumulator is an incremental checksum unit. Accumulate feeds one byte and
// returns the running value; Reset returns the unit to its initial state.
type Accumulator interface {
	Accumulate(b byte) uint32
	Reset()
}

const (
	stm32CRCPoly = 0x04C11DB7
	stm32CRCInit = 0xFFFFFFFF
)

// STM32CRC models the STM32 CRC calculation unit: CRC-32 with polynomial
// 0x04C11DB7, initial value 0xFFFFFFFF, no reflection and no final XOR,
// consuming 32-bit words. Every byte is fed as one zero-extended word.
type STM32CRC struct {
	state uint32
}

// NewSTM32CRC returns a reset STM32 CRC unit.
func NewSTM32CRC() *STM32CRC {
	return &STM32CRC{state: stm32CRCInit}
}

// Accumulate feeds b as a single word.
func (c *STM32CRC) Accumulate(b byte) uint32 {
	c.state = AccumulateWord(c.state, uint32(b))
	return c.state
}

// Reset restores the initial value.
func (c *STM32CRC) Reset() {
	c.state = stm32CRCInit
}

// AccumulateWord runs one 32-bit word through the STM32 CRC unit.
func AccumulateWord(crc, word uint32) uint32 {
	crc ^= word
	for range 32 {
		if crc&0x80000000 != 0 {
			crc = crc<<1 ^ stm32CRCPoly
		} else {
			crc <<= 1
		}
	}
	return crc
}

// IEEECRC is a running zlib-style CRC-32, for hosts that do not speak the
// STM32 variant.
type IEEECRC struct {
	state uint32
}

// NewIEEECRC returns a reset IEEE CRC-32 accumulator.
func NewIEEECRC() *IEEECRC {
	return &IEEECRC{}
}

// Accumulate folds one byte into the running CRC.
func (c *IEEECRC) Accumulate(b byte) uint32 {
	c.state = crc32.Update(c.state, crc32.IEEETable, []byte{b})
	return c.state
}

// Reset clears the running CRC.
func (c *IEEECRC) Reset() {
	c.state = 0
}

// Accumulator names accepted by NewAccumulator
const (
	ChecksumSTM32 = "stm32"
	ChecksumIEEE  = "ieee"
)

// NewAccumulator returns the accumulator registered under name.
// An empty name selects the STM32 unit.
func NewAccumulator(name string) (Accumulator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ChecksumSTM32:
		return NewSTM32CRC(), nil
	case ChecksumIEEE:
		return NewIEEECRC(), nil
	default:
		return nil, fmt.Errorf("unknown checksum %q: %w", name, ErrInvalidParameter)
	}
}

// Checksum runs data through acc and resets it afterwards.
func Checksum(acc Accumulator, data []byte) uint32 {
	defer acc.Reset()
	var sum uint32
	for _, b := range data {
		sum = acc.Accumulate(b)
	}
	return sum
}

// Verifier checks a frame's covered bytes against the host-supplied checksum.
type Verifier struct {
	acc Accumulator
}

// NewVerifier returns a verifier that owns acc.
func NewVerifier(acc Accumulator) *Verifier {
	return &Verifier{acc: acc}
}

// Verify reports whether the checksum of buf equals expected. The
// accumulator is reset on every call whatever the outcome. An empty buffer
// never verifies.
func (v *Verifier) Verify(buf []byte, expected uint32) bool {
	if len(buf) == 0 {
		v.acc.Reset()
		return false
	}
	return Checksum(v.acc, buf) == expected
}
