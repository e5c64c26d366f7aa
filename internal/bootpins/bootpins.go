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

// Package bootpins drives the BOOT0 and NRST lines of an attached STM32 so
// the host can enter the system bootloader and return to the application
// without touching the board.
package bootpins

import (
	"context"
	"errors"
	"fmt"
	"time"

	serialboot "github.com/ZaparooProject/go-serialboot"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

const (
	// DefaultResetPulse holds NRST low long enough for the supervisor.
	DefaultResetPulse = 20 * time.Millisecond
	// DefaultSettle waits for the bootloader to start listening.
	DefaultSettle = 50 * time.Millisecond
)

var ErrPinNotFound = errors.New("gpio pin not found")

// Sequencer toggles BOOT0 and pulses NRST. A nil boot0 pin only resets.
type Sequencer struct {
	boot0  gpio.PinOut
	reset  gpio.PinOut
	pulse  time.Duration
	settle time.Duration
}

// NewSequencer wraps already-opened pins. Zero durations use the defaults.
func NewSequencer(boot0, reset gpio.PinOut, pulse, settle time.Duration) (*Sequencer, error) {
	if reset == nil {
		return nil, fmt.Errorf("reset pin is required: %w", serialboot.ErrInvalidParameter)
	}
	if pulse <= 0 {
		pulse = DefaultResetPulse
	}
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Sequencer{boot0: boot0, reset: reset, pulse: pulse, settle: settle}, nil
}

// Open initialises the host drivers and looks the pins up by name, for
// example "GPIO17". An empty boot0 name leaves BOOT0 alone.
func Open(boot0Name, resetName string, pulse, settle time.Duration) (*Sequencer, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	reset := gpioreg.ByName(resetName)
	if reset == nil {
		return nil, fmt.Errorf("%w: %q", ErrPinNotFound, resetName)
	}
	var boot0 gpio.PinOut
	if boot0Name != "" {
		pin := gpioreg.ByName(boot0Name)
		if pin == nil {
			return nil, fmt.Errorf("%w: %q", ErrPinNotFound, boot0Name)
		}
		boot0 = pin
	}
	return NewSequencer(boot0, reset, pulse, settle)
}

// EnterBootloader raises BOOT0 and resets the target so it starts from
// system memory.
func (s *Sequencer) EnterBootloader(ctx context.Context) error {
	return s.resetWithBoot0(ctx, gpio.High)
}

// ResetToApplication lowers BOOT0 and resets the target so it starts from
// flash.
func (s *Sequencer) ResetToApplication(ctx context.Context) error {
	return s.resetWithBoot0(ctx, gpio.Low)
}

func (s *Sequencer) resetWithBoot0(ctx context.Context, level gpio.Level) error {
	if s.boot0 != nil {
		if err := s.boot0.Out(level); err != nil {
			return fmt.Errorf("failed to drive BOOT0 %s: %w", level, err)
		}
	}
	if err := s.reset.Out(gpio.Low); err != nil {
		return fmt.Errorf("failed to assert reset: %w", err)
	}
	// NRST is released even when the wait is cancelled.
	waitErr := sleep(ctx, s.pulse)
	if err := s.reset.Out(gpio.High); err != nil {
		return fmt.Errorf("failed to release reset: %w", err)
	}
	if waitErr != nil {
		return waitErr
	}
	serialboot.Debugf("bootpins: reset pulse done, BOOT0=%s", level)
	return sleep(ctx, s.settle)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
