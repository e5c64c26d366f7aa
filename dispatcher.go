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

// OptionBytes reads the device configuration word holding the read-out
// protection level.
type OptionBytes interface {
	ReadProtectionConfig() byte
}

// Jumper transfers execution to addr. On hardware it does not return.
type Jumper interface {
	Jump(addr uint32)
}

// Peripherals are the hardware capabilities the dispatcher is built from.
// Each component receives only the one it needs.
type Peripherals struct {
	Transmitter Transmitter
	Eraser      SectorEraser
	Programmer  ByteProgrammer
	OptionBytes OptionBytes
	Jumper      Jumper
}

func (p Peripherals) validate() error {
	switch {
	case p.Transmitter == nil:
		return fmt.Errorf("transmitter is required: %w", ErrInvalidParameter)
	case p.Eraser == nil:
		return fmt.Errorf("sector eraser is required: %w", ErrInvalidParameter)
	case p.Programmer == nil:
		return fmt.Errorf("byte programmer is required: %w", ErrInvalidParameter)
	case p.OptionBytes == nil:
		return fmt.Errorf("option bytes reader is required: %w", ErrInvalidParameter)
	case p.Jumper == nil:
		return fmt.Errorf("jumper is required: %w", ErrInvalidParameter)
	}
	return nil
}

// Dispatcher is the protocol state machine. It handles one frame per call:
// verify, acknowledge, act, report.
type Dispatcher struct {
	verifier            *Verifier
	addresses           AddressClassifier
	eraser              *Eraser
	writer              *Writer
	responder           *Responder
	options             OptionBytes
	jumper              Jumper
	jumpStatusOnInvalid bool
}

// NewDispatcher wires a dispatcher from p.
func NewDispatcher(p Peripherals, opts ...Option) (*Dispatcher, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Dispatcher{
		verifier:            NewVerifier(cfg.Accumulator),
		addresses:           cfg.MemoryMap,
		eraser:              NewEraser(p.Eraser),
		writer:              NewWriter(p.Programmer),
		responder:           NewResponder(p.Transmitter),
		options:             p.OptionBytes,
		jumper:              p.Jumper,
		jumpStatusOnInvalid: cfg.JumpStatusOnInvalid,
	}, nil
}

// Dispatch processes one received frame. The returned error describes the
// outcome for logging; every reply has already been sent when it returns.
// A NACK is sent for a frame that fails its checksum or cannot be decoded,
// and nothing else happens. ErrControlReturned means a jump target handed
// control back.
func (d *Dispatcher) Dispatch(ctx context.Context, frame []byte) error {
	body, sum, err := SplitFrame(frame)
	if err != nil {
		d.responder.Nack(ctx)
		return err
	}

	if !d.verifier.Verify(body, sum) {
		logger.WithField("command", CommandID(body[1])).Debug("checksum fail")
		d.responder.Nack(ctx)
		return fmt.Errorf("%s: %w", CommandID(body[1]), ErrChecksumMismatch)
	}

	cmd, err := DecodeCommand(body)
	if err != nil {
		d.responder.Nack(ctx)
		return err
	}

	log := logger.WithField("command", cmd.ID())
	log.Debug("checksum success")
	d.responder.Ack(ctx, 1)

	switch c := cmd.(type) {
	case ReportProtectionLevel:
		return d.reportProtectionLevel(ctx, log)
	case JumpToAddress:
		return d.jumpToAddress(ctx, log, c)
	case EraseFlash:
		return d.eraseFlash(ctx, log, c)
	case WriteMemory:
		return d.writeMemory(ctx, log, c)
	default:
		return fmt.Errorf("command %T: %w", cmd, ErrUnknownCommand)
	}
}

func (d *Dispatcher) reportProtectionLevel(ctx context.Context, log *logrus.Entry) error {
	level := d.options.ReadProtectionConfig()
	log.WithField("rdp", fmt.Sprintf("%#x", level)).Debug("device RDP level")
	d.responder.Status(ctx, Status(level))
	return nil
}

func (d *Dispatcher) jumpToAddress(ctx context.Context, log *logrus.Entry, c JumpToAddress) error {
	log = log.WithField("addr", fmt.Sprintf("0x%08X", c.Address))
	if d.addresses.Classify(c.Address) != AddressValid {
		log.Debug("jump address invalid")
		if d.jumpStatusOnInvalid {
			d.responder.Status(ctx, AddressInvalid)
		}
		return fmt.Errorf("jump to 0x%08X: %w", c.Address, ErrInvalidAddress)
	}

	d.responder.Status(ctx, AddressValid)
	log.Debug("jumping to address")
	// Set the Thumb bit for the target's execution state.
	d.jumper.Jump(c.Address + 1)
	return fmt.Errorf("jump to 0x%08X: %w", c.Address, ErrControlReturned)
}

func (d *Dispatcher) eraseFlash(ctx context.Context, log *logrus.Entry, c EraseFlash) error {
	status := d.eraser.Erase(c.StartSector, c.SectorCount)
	log.WithFields(logrus.Fields{
		"start":  c.StartSector,
		"count":  c.SectorCount,
		"status": status,
	}).Debug("flash erase status")
	d.responder.Status(ctx, status)

	switch status {
	case StatusOK:
		return nil
	case StatusInvalidSector:
		return fmt.Errorf("erase %d sectors from %d: %w", c.SectorCount, c.StartSector, ErrInvalidSectorCount)
	default:
		return &HardwareError{Op: "erase", Status: status}
	}
}

func (d *Dispatcher) writeMemory(ctx context.Context, log *logrus.Entry, c WriteMemory) error {
	log = log.WithFields(logrus.Fields{
		"addr":   fmt.Sprintf("0x%08X", c.Address),
		"length": len(c.Data),
	})
	if d.addresses.Classify(c.Address) != AddressValid {
		log.Debug("invalid memory address")
		d.responder.Status(ctx, AddressInvalid)
		return fmt.Errorf("write to 0x%08X: %w", c.Address, ErrInvalidAddress)
	}

	log.Debug("valid memory write address")
	status := d.writer.Write(c.Data, c.Address)
	d.responder.Status(ctx, status)
	if status != StatusOK {
		return &HardwareError{Op: "write", Status: status}
	}
	return nil
}

// IsFrameRejected reports whether err means the frame was NACKed.
func IsFrameRejected(err error) bool {
	return errors.Is(err, ErrChecksumMismatch) ||
		errors.Is(err, ErrMalformedFrame) ||
		errors.Is(err, ErrUnknownCommand)
}
