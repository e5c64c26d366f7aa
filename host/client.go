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

// Package host drives the bootloader from the programming side: it frames
// commands, runs the ACK/NACK handshake and interprets status bytes.
package host

import (
	"context"
	"errors"
	"fmt"
	"time"

	serialboot "github.com/ZaparooProject/go-serialboot"
	"github.com/ZaparooProject/go-serialboot/internal/frame"
	"github.com/ZaparooProject/go-serialboot/internal/syncutil"
	"github.com/sirupsen/logrus"
)

// Conn is the byte transport a Client talks through. *uart.Port
// implements it.
type Conn interface {
	Transmit(ctx context.Context, data []byte) error
	ReadExact(ctx context.Context, buf []byte, timeout time.Duration) error
	ResetInput() error
	Name() string
}

// Client issues bootloader commands. Calls are serialised.
type Client struct {
	conn       Conn
	acc        serialboot.Accumulator
	retry      *serialboot.RetryConfig
	trace      *serialboot.TraceBuffer
	memoryMap  *serialboot.MemoryMap
	ackTimeout time.Duration
	mu         syncutil.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithAccumulator selects the frame checksum. It must match the device.
func WithAccumulator(acc serialboot.Accumulator) Option {
	return func(c *Client) {
		if acc != nil {
			c.acc = acc
		}
	}
}

// WithRetryConfig replaces the handshake retry policy.
func WithRetryConfig(cfg *serialboot.RetryConfig) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithAckTimeout sets how long to wait for the ACK or NACK.
func WithAckTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.ackTimeout = d
		}
	}
}

// WithTraceSize sets how many wire events are kept for error reports.
func WithTraceSize(n int) Option {
	return func(c *Client) {
		c.trace = serialboot.NewTraceBuffer(c.conn.Name(), n)
	}
}

// WithMemoryMap checks jump and write addresses locally before anything
// is sent, so an out-of-range address fails fast with ErrInvalidAddress.
func WithMemoryMap(m serialboot.MemoryMap) Option {
	return func(c *Client) {
		c.memoryMap = &m
	}
}

// NewClient creates a client over conn.
func NewClient(conn Conn, opts ...Option) *Client {
	c := &Client{
		conn:       conn,
		acc:        serialboot.NewSTM32CRC(),
		retry:      serialboot.DefaultRetryConfig(),
		trace:      serialboot.NewTraceBuffer(conn.Name(), 32),
		ackTimeout: serialboot.AckTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetProtectionLevel returns the device's read protection byte.
func (c *Client) GetProtectionLevel(ctx context.Context) (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	status, err := c.exchange(ctx, serialboot.ReportProtectionLevel{})
	if err != nil {
		return 0, c.trace.WrapError(err)
	}
	return status, nil
}

// GoToAddress asks the device to start the code at addr. The device stays
// silent on an invalid address, so a missing status byte is reported as
// ErrInvalidAddress.
func (c *Client) GoToAddress(ctx context.Context, addr uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkAddress("jump", addr); err != nil {
		return err
	}
	status, err := c.exchange(ctx, serialboot.JumpToAddress{Address: addr})
	switch {
	case errors.Is(err, serialboot.ErrTransportTimeout) && !errors.Is(err, serialboot.ErrNoACK):
		return c.trace.WrapError(fmt.Errorf("jump to 0x%08X: no status: %w", addr, serialboot.ErrInvalidAddress))
	case err != nil:
		return c.trace.WrapError(err)
	case serialboot.Status(status) != serialboot.AddressValid:
		return c.trace.WrapError(fmt.Errorf("jump to 0x%08X: %w", addr, serialboot.ErrInvalidAddress))
	}
	return nil
}

// EraseSectors erases count sectors from start.
func (c *Client) EraseSectors(ctx context.Context, start, count byte) error {
	return c.erase(ctx, serialboot.EraseFlash{StartSector: start, SectorCount: count})
}

// MassErase erases the whole bank.
func (c *Client) MassErase(ctx context.Context) error {
	return c.erase(ctx, serialboot.EraseFlash{StartSector: serialboot.MassEraseSentinel})
}

func (c *Client) erase(ctx context.Context, cmd serialboot.EraseFlash) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	status, err := c.exchange(ctx, cmd)
	if err != nil {
		return c.trace.WrapError(err)
	}
	if err := frame.ValidateStatus(status, "erase"); err != nil {
		return c.trace.WrapError(fmt.Errorf("erase %d sectors from %d: %w", cmd.SectorCount, cmd.StartSector, err))
	}
	return nil
}

// WriteMemory writes one chunk of at most serialboot.MaxWriteChunk bytes.
// Status 0x01 means either an address outside the device's memory map or
// a programming error; both arrive as a *serialboot.HardwareError.
func (c *Client) WriteMemory(ctx context.Context, addr uint32, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeChunk(ctx, addr, data)
}

func (c *Client) writeChunk(ctx context.Context, addr uint32, data []byte) error {
	if len(data) > serialboot.MaxWriteChunk {
		return serialboot.NewDataTooLargeError("write", c.conn.Name())
	}
	if err := c.checkAddress("write", addr); err != nil {
		return err
	}
	status, err := c.exchange(ctx, serialboot.WriteMemory{Address: addr, Data: data})
	if err != nil {
		return c.trace.WrapError(err)
	}
	if err := frame.ValidateStatus(status, "write"); err != nil {
		return c.trace.WrapError(fmt.Errorf("write %d bytes at 0x%08X: %w", len(data), addr, err))
	}
	return nil
}

// Progress is called after every programmed chunk.
type Progress func(written, total int)

// Program writes image starting at addr in chunks that fit one frame.
// The target must already be erased.
func (c *Client) Program(ctx context.Context, addr uint32, image []byte, progress Progress) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for off := 0; off < len(image); off += serialboot.MaxWriteChunk {
		end := min(off+serialboot.MaxWriteChunk, len(image))
		chunkAddr := addr + uint32(off) //nolint:gosec // image size is bounded by the address space
		if err := c.writeChunk(ctx, chunkAddr, image[off:end]); err != nil {
			return fmt.Errorf("program at offset %d: %w", off, err)
		}
		if progress != nil {
			progress(end, len(image))
		}
	}
	return nil
}

func (c *Client) checkAddress(op string, addr uint32) error {
	if c.memoryMap == nil || c.memoryMap.Classify(addr) == serialboot.AddressValid {
		return nil
	}
	return fmt.Errorf("%s 0x%08X outside %s/%s: %w", op, addr,
		c.memoryMap.Code, c.memoryMap.RAM, serialboot.ErrInvalidAddress)
}

// exchange sends cmd, retrying while the device NACKs or stays silent,
// then waits for the status byte. Once the ACK has arrived the command
// has side effects and is never resent.
func (c *Client) exchange(ctx context.Context, cmd serialboot.Command) (byte, error) {
	encoded, err := serialboot.EncodeFrame(cmd, c.acc)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", cmd.ID(), err)
	}
	log := serialboot.Logger().WithFields(logrus.Fields{"port": c.conn.Name(), "command": cmd.ID()})

	attempt := 0
	err = serialboot.RetryWithConfig(ctx, c.retry, func() error {
		attempt++
		return c.handshake(ctx, cmd.ID(), encoded)
	})
	if err != nil {
		log.WithError(err).WithField("attempts", attempt).Debug("handshake failed")
		return 0, err
	}

	status := frame.GetBuffer(frame.StatusReplySize)
	defer frame.PutBuffer(status)
	if err := c.conn.ReadExact(ctx, status, serialboot.StatusTimeoutFor(cmd.ID())); err != nil {
		if errors.Is(err, serialboot.ErrTransportTimeout) {
			// Not retryable: the command may already have run.
			return 0, serialboot.NewTransportError(cmd.ID().String()+" status", c.conn.Name(),
				serialboot.ErrTransportTimeout, serialboot.ErrorTypePermanent)
		}
		return 0, err
	}
	c.trace.RecordRX(status, "status")
	log.WithField("status", fmt.Sprintf("0x%02X", status[0])).Debug("command complete")
	return status[0], nil
}

func (c *Client) handshake(ctx context.Context, id serialboot.CommandID, encoded []byte) error {
	if err := c.conn.ResetInput(); err != nil {
		return err
	}
	c.trace.RecordTX(encoded, id.String())
	if err := c.conn.Transmit(ctx, encoded); err != nil {
		return err
	}

	reply := frame.GetBuffer(frame.AckReplySize)
	defer frame.PutBuffer(reply)

	if err := c.conn.ReadExact(ctx, reply[:1], c.ackTimeout); err != nil {
		if errors.Is(err, serialboot.ErrTransportTimeout) {
			return serialboot.NewNoACKError(id.String(), c.conn.Name())
		}
		return err
	}
	if reply[0] == serialboot.AckMarker {
		if err := c.conn.ReadExact(ctx, reply[1:2], c.ackTimeout); err != nil {
			c.trace.RecordRX(reply[:1], "partial ack")
			if errors.Is(err, serialboot.ErrTransportTimeout) {
				// The ACK marker arrived, so the command is already running.
				return serialboot.NewTransportError(id.String()+" ack length", c.conn.Name(),
					serialboot.ErrTransportTimeout, serialboot.ErrorTypePermanent)
			}
			return err
		}
		c.trace.RecordRX(reply[:2], "ack")
		_, err := frame.ValidateAck(reply[:2], id.String(), c.conn.Name())
		return err
	}
	c.trace.RecordRX(reply[:1], "reply")
	_, err := frame.ValidateAck(reply[:1], id.String(), c.conn.Name())
	return err
}
