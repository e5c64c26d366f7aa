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

// Package emulator models the memory of an STM32F4 part closely enough to
// run the bootloader core without hardware: sectored flash that erases to
// 0xFF and programs by clearing bits, SRAM, the option bytes and a jump hook.
package emulator

import (
	"bytes"
	"fmt"
	"time"

	serialboot "github.com/ZaparooProject/go-serialboot"
	"github.com/ZaparooProject/go-serialboot/internal/syncutil"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultOptionWord is the factory option-byte word: RDP level 0 (0xAA).
	DefaultOptionWord uint32 = 0x0FFFAAED
	// DefaultRAMSize covers SRAM1 up to and including the top address the
	// bootloader accepts.
	DefaultRAMSize = int(serialboot.SRAM1Size) + 1
	erasedByte     = 0xFF
)

// STM32F4SectorSizes is the 1 MiB single-bank layout: four 16 KiB, one
// 64 KiB and seven 128 KiB sectors.
var STM32F4SectorSizes = []int{
	16 << 10, 16 << 10, 16 << 10, 16 << 10,
	64 << 10,
	128 << 10, 128 << 10, 128 << 10, 128 << 10, 128 << 10, 128 << 10, 128 << 10,
}

// Op names a hardware operation for fault injection.
type Op int

const (
	OpErase Op = iota
	OpMassErase
	OpProgram
)

func (o Op) String() string {
	switch o {
	case OpErase:
		return "erase"
	case OpMassErase:
		return "mass erase"
	case OpProgram:
		return "program"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

type sector struct {
	offset int
	size   int
}

// Device is an emulated target. It is safe for concurrent use so a
// monitor can read memory while the bootloader runs.
type Device struct {
	faults     map[Op]serialboot.Status
	onJump     func(addr uint32)
	options    *OptionBytes
	flash      []byte
	ram        []byte
	sectors    []sector
	jumps      []uint32
	eraseDelay time.Duration
	unlocks    int
	mu         syncutil.RWMutex
	locked     bool
}

// New creates a device with erased flash, zeroed RAM and the factory
// option bytes.
func New(opts ...Option) (*Device, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	d := &Device{
		faults:     make(map[Op]serialboot.Status),
		options:    &OptionBytes{word: cfg.OptionWord},
		ram:        make([]byte, cfg.RAMSize),
		eraseDelay: cfg.EraseDelay,
		locked:     true,
	}
	offset := 0
	for _, size := range cfg.SectorSizes {
		d.sectors = append(d.sectors, sector{offset: offset, size: size})
		offset += size
	}
	d.flash = bytes.Repeat([]byte{erasedByte}, offset)
	return d, nil
}

func logEntry() *logrus.Entry {
	return serialboot.Logger().WithField("component", "emulator")
}

// Peripherals wires the device into a bootloader using tx for replies.
func (d *Device) Peripherals(tx serialboot.Transmitter) serialboot.Peripherals {
	return serialboot.Peripherals{
		Transmitter: tx,
		Eraser:      d,
		Programmer:  d,
		OptionBytes: d.options,
		Jumper:      d,
	}
}

// Options returns the device's option bytes.
func (d *Device) Options() *OptionBytes {
	return d.options
}

func (d *Device) Unlock() {
	d.mu.Lock()
	d.locked = false
	d.unlocks++
	d.mu.Unlock()
}

func (d *Device) Lock() {
	d.mu.Lock()
	d.locked = true
	d.mu.Unlock()
}

// Locked reports whether the flash controller is locked.
func (d *Device) Locked() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.locked
}

// Unlocks reports how many times the controller has been unlocked.
func (d *Device) Unlocks() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.unlocks
}

// EraseSectors erases count sectors starting at start.
func (d *Device) EraseSectors(start, count, bank byte) serialboot.Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s, ok := d.faults[OpErase]; ok {
		return s
	}
	if d.locked || bank != serialboot.FlashBank1 {
		return serialboot.StatusError
	}
	end := int(start) + int(count)
	if end > len(d.sectors) {
		return serialboot.StatusError
	}

	for i := int(start); i < end; i++ {
		s := d.sectors[i]
		fill(d.flash[s.offset : s.offset+s.size])
		time.Sleep(d.eraseDelay)
	}
	logEntry().WithFields(logrus.Fields{"start": start, "count": count}).Debug("sectors erased")
	return serialboot.StatusOK
}

// MassErase erases every sector of the bank.
func (d *Device) MassErase(bank byte) serialboot.Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s, ok := d.faults[OpMassErase]; ok {
		return s
	}
	if d.locked || bank != serialboot.FlashBank1 {
		return serialboot.StatusError
	}
	fill(d.flash)
	time.Sleep(d.eraseDelay * time.Duration(len(d.sectors)))
	logEntry().Debug("bank erased")
	return serialboot.StatusOK
}

// ProgramByte writes one byte. Flash can only clear bits and needs the
// controller unlocked; SRAM is written directly.
func (d *Device) ProgramByte(addr uint32, value byte) serialboot.Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s, ok := d.faults[OpProgram]; ok {
		return s
	}
	if off, ok := d.flashOffset(addr); ok {
		if d.locked {
			return serialboot.StatusError
		}
		d.flash[off] &= value
		return serialboot.StatusOK
	}
	if off, ok := d.ramOffset(addr); ok {
		d.ram[off] = value
		return serialboot.StatusOK
	}
	return serialboot.StatusError
}

// OnJump installs fn to run when the bootloader hands over control.
func (d *Device) OnJump(fn func(addr uint32)) {
	d.mu.Lock()
	d.onJump = fn
	d.mu.Unlock()
}

// Jump records the target and calls the jump hook.
func (d *Device) Jump(addr uint32) {
	d.mu.Lock()
	d.jumps = append(d.jumps, addr)
	hook := d.onJump
	d.mu.Unlock()

	logEntry().WithField("target", fmt.Sprintf("0x%08X", addr)).Info("jump")
	if hook != nil {
		hook(addr)
	}
}

// Jumps returns every jump target seen so far, Thumb bit included.
func (d *Device) Jumps() []uint32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]uint32(nil), d.jumps...)
}

// InjectFault makes every later op return status until ClearFaults.
func (d *Device) InjectFault(op Op, status serialboot.Status) {
	d.mu.Lock()
	d.faults[op] = status
	d.mu.Unlock()
}

// ClearFaults removes all injected faults.
func (d *Device) ClearFaults() {
	d.mu.Lock()
	clear(d.faults)
	d.mu.Unlock()
}

// Read copies n bytes of flash or SRAM starting at addr.
func (d *Device) Read(addr uint32, n int) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if off, ok := d.flashOffset(addr); ok && off+n <= len(d.flash) {
		return bytes.Clone(d.flash[off : off+n]), nil
	}
	if off, ok := d.ramOffset(addr); ok && off+n <= len(d.ram) {
		return bytes.Clone(d.ram[off : off+n]), nil
	}
	return nil, fmt.Errorf("read %d bytes at 0x%08X: %w", n, addr, serialboot.ErrInvalidAddress)
}

// FlashImage returns a copy of the whole flash array.
func (d *Device) FlashImage() []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return bytes.Clone(d.flash)
}

// LoadFlash overwrites flash contents starting at the flash base, as a
// debug probe would.
func (d *Device) LoadFlash(image []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(image) > len(d.flash) {
		return fmt.Errorf("image of %d bytes exceeds %d bytes of flash: %w",
			len(image), len(d.flash), serialboot.ErrDataTooLarge)
	}
	copy(d.flash, image)
	return nil
}

// SectorCount returns the number of flash sectors.
func (d *Device) SectorCount() int {
	return len(d.sectors)
}

// SectorBounds returns the address range of sector i.
func (d *Device) SectorBounds(i int) (serialboot.Region, error) {
	if i < 0 || i >= len(d.sectors) {
		return serialboot.Region{}, fmt.Errorf("sector %d: %w", i, serialboot.ErrInvalidParameter)
	}
	s := d.sectors[i]
	low := serialboot.FlashBase + uint32(s.offset) //nolint:gosec // flash is far below 4 GiB
	return serialboot.Region{Low: low, High: low + uint32(s.size) - 1}, nil //nolint:gosec // as above
}

func (d *Device) flashOffset(addr uint32) (int, bool) {
	if addr < serialboot.FlashBase {
		return 0, false
	}
	off := int(addr - serialboot.FlashBase)
	return off, off < len(d.flash)
}

func (d *Device) ramOffset(addr uint32) (int, bool) {
	if addr < serialboot.SRAM1Base {
		return 0, false
	}
	off := int(addr - serialboot.SRAM1Base)
	return off, off < len(d.ram)
}

func fill(b []byte) {
	for i := range b {
		b[i] = erasedByte
	}
}

var (
	_ serialboot.SectorEraser   = (*Device)(nil)
	_ serialboot.ByteProgrammer = (*Device)(nil)
	_ serialboot.Jumper         = (*Device)(nil)
)
