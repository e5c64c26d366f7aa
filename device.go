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
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Config contains the policy knobs of the dispatcher.
type Config struct {
	// Accumulator computes frame checksums. Defaults to the STM32 CRC unit.
	Accumulator Accumulator
	// MemoryMap lists the regions a jump or write may target.
	MemoryMap MemoryMap
	// JumpStatusOnInvalid makes an invalid jump reply AddressInvalid like
	// an invalid write does. Off by default, which keeps existing host
	// tools working: they time out waiting for the status byte instead.
	JumpStatusOnInvalid bool
}

// DefaultConfig returns the configuration matching deployed devices.
func DefaultConfig() *Config {
	return &Config{
		Accumulator: NewSTM32CRC(),
		MemoryMap:   DefaultMemoryMap(),
	}
}

// Option represents a functional option for the dispatcher
type Option func(*Config) error

// WithAccumulator sets the checksum unit.
func WithAccumulator(acc Accumulator) Option {
	return func(c *Config) error {
		if acc == nil {
			return fmt.Errorf("nil accumulator: %w", ErrInvalidParameter)
		}
		c.Accumulator = acc
		return nil
	}
}

// WithMemoryMap replaces the permitted address regions.
func WithMemoryMap(m MemoryMap) Option {
	return func(c *Config) error {
		if err := m.Validate(); err != nil {
			return err
		}
		c.MemoryMap = m
		return nil
	}
}

// WithJumpStatusOnInvalid controls whether an invalid jump sends a status byte.
func WithJumpStatusOnInvalid(enabled bool) Option {
	return func(c *Config) error {
		c.JumpStatusOnInvalid = enabled
		return nil
	}
}

func applyOptions(opts []Option) (*Config, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Bootloader runs the receive/dispatch loop over a serial link.
//
// Thread Safety: Serve must not be called concurrently. Only one frame is
// ever in flight.
type Bootloader struct {
	rx         FrameReceiver
	dispatcher *Dispatcher
	stats      Stats
}

// Stats counts frame outcomes since the bootloader was created.
type Stats struct {
	Frames   int
	Rejected int
	Failed   int
}

// New creates a bootloader reading frames from rx and acting through p.
func New(rx FrameReceiver, p Peripherals, opts ...Option) (*Bootloader, error) {
	if rx == nil {
		return nil, fmt.Errorf("frame receiver is required: %w", ErrInvalidParameter)
	}
	d, err := NewDispatcher(p, opts...)
	if err != nil {
		return nil, err
	}
	return &Bootloader{rx: rx, dispatcher: d}, nil
}

// Dispatch handles a single frame. See Dispatcher.Dispatch.
func (b *Bootloader) Dispatch(ctx context.Context, frame []byte) error {
	err := b.dispatcher.Dispatch(ctx, frame)
	b.stats.Frames++
	switch {
	case err == nil:
	case IsFrameRejected(err):
		b.stats.Rejected++
	case !errors.Is(err, ErrControlReturned):
		b.stats.Failed++
	}
	return err
}

// Stats returns the frame counters.
func (b *Bootloader) Stats() Stats {
	return b.stats
}

// Serve waits for frames and dispatches them until ctx is cancelled, the
// link fails or a jump target returns control. A returning jump ends Serve
// with a nil error.
func (b *Bootloader) Serve(ctx context.Context) error {
	logger.Info("bootloader waiting for commands")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, err := b.rx.ReceiveFrame(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if IsFatal(err) {
				return fmt.Errorf("receive frame: %w", err)
			}
			logger.WithError(err).Debug("discarding incomplete frame")
			continue
		}

		err = b.Dispatch(ctx, frame)
		switch {
		case err == nil:
		case errors.Is(err, ErrControlReturned):
			logger.WithError(err).Info("leaving bootloader")
			return nil
		default:
			logger.WithFields(logrus.Fields{"frame": FormatHex(frame)}).WithError(err).Info("command failed")
		}
	}
}
