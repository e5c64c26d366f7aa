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

import "fmt"

// STM32F407 memory map
const (
	FlashBase uint32 = 0x08000000
	FlashEnd  uint32 = 0x080FFFFF
	SRAM1Base uint32 = 0x20000000
	SRAM1Size uint32 = 128 * 1024
	// SRAM1End is one past the last SRAM1 byte and still classifies as
	// valid, matching deployed bootloaders.
	SRAM1End = SRAM1Base + SRAM1Size
)

// Region is a closed address interval.
type Region struct {
	Low  uint32
	High uint32
}

// Contains reports whether addr lies in [Low, High].
func (r Region) Contains(addr uint32) bool {
	return addr >= r.Low && addr <= r.High
}

func (r Region) String() string {
	return fmt.Sprintf("0x%08X-0x%08X", r.Low, r.High)
}

// AddressClassifier decides whether an address may be targeted by a
// jump or write.
type AddressClassifier interface {
	Classify(addr uint32) Status
}

// MemoryMap holds the only two regions a host may target.
type MemoryMap struct {
	Code Region
	RAM  Region
}

// DefaultMemoryMap returns the STM32F407 code and SRAM1 ranges.
func DefaultMemoryMap() MemoryMap {
	return MemoryMap{
		Code: Region{Low: FlashBase, High: FlashEnd},
		RAM:  Region{Low: SRAM1Base, High: SRAM1End},
	}
}

// Classify returns AddressValid if addr is in the code or RAM region and
// AddressInvalid otherwise.
func (m MemoryMap) Classify(addr uint32) Status {
	if m.Code.Contains(addr) || m.RAM.Contains(addr) {
		return AddressValid
	}
	return AddressInvalid
}

// Validate checks that both regions are well formed.
func (m MemoryMap) Validate() error {
	for name, r := range map[string]Region{"code": m.Code, "ram": m.RAM} {
		if r.Low > r.High {
			return fmt.Errorf("%s region %s is inverted: %w", name, r, ErrInvalidParameter)
		}
	}
	return nil
}
