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

package emulator

import (
	"fmt"
	"time"

	serialboot "github.com/ZaparooProject/go-serialboot"
	"github.com/ZaparooProject/go-serialboot/internal/syncutil"
)

// OptionBytes holds the user option word. The read protection level sits
// in its second byte.
type OptionBytes struct {
	word uint32
	mu   syncutil.Mutex
}

// ReadProtectionConfig returns the RDP byte.
func (o *OptionBytes) ReadProtectionConfig() byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	return byte(o.word >> 8)
}

// SetReadProtection replaces the RDP byte, keeping the rest of the word.
func (o *OptionBytes) SetReadProtection(level byte) {
	o.mu.Lock()
	o.word = o.word&^0xFF00 | uint32(level)<<8
	o.mu.Unlock()
}

// Word returns the raw option word.
func (o *OptionBytes) Word() uint32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.word
}

// Config describes the emulated part.
type Config struct {
	SectorSizes []int
	RAMSize     int
	OptionWord  uint32
	// EraseDelay is slept per erased sector.
	EraseDelay time.Duration
}

func defaultConfig() *Config {
	return &Config{
		SectorSizes: STM32F4SectorSizes,
		RAMSize:     DefaultRAMSize,
		OptionWord:  DefaultOptionWord,
	}
}

func (c *Config) validate() error {
	if len(c.SectorSizes) == 0 {
		return fmt.Errorf("no flash sectors: %w", serialboot.ErrInvalidParameter)
	}
	total := 0
	for i, s := range c.SectorSizes {
		if s <= 0 {
			return fmt.Errorf("sector %d has size %d: %w", i, s, serialboot.ErrInvalidParameter)
		}
		total += s
	}
	if total > int(serialboot.SRAM1Base-serialboot.FlashBase) {
		return fmt.Errorf("flash of %d bytes overlaps SRAM: %w", total, serialboot.ErrInvalidParameter)
	}
	if c.RAMSize <= 0 {
		return fmt.Errorf("ram size %d: %w", c.RAMSize, serialboot.ErrInvalidParameter)
	}
	return nil
}

// Option configures a Device.
type Option func(*Config)

// WithSectorSizes sets the flash layout.
func WithSectorSizes(sizes ...int) Option {
	return func(c *Config) {
		c.SectorSizes = append([]int(nil), sizes...)
	}
}

// WithRAMSize sets the SRAM size in bytes.
func WithRAMSize(n int) Option {
	return func(c *Config) {
		c.RAMSize = n
	}
}

// WithOptionWord sets the initial option-byte word.
func WithOptionWord(w uint32) Option {
	return func(c *Config) {
		c.OptionWord = w
	}
}

// WithEraseDelay slows erases down to hardware-like durations.
func WithEraseDelay(d time.Duration) Option {
	return func(c *Config) {
		c.EraseDelay = d
	}
}
