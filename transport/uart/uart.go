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

// Package uart carries bootloader frames over a serial port.
package uart

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	serialboot "github.com/ZaparooProject/go-serialboot"
	"github.com/ZaparooProject/go-serialboot/internal/frame"
	"github.com/ZaparooProject/go-serialboot/internal/syncutil"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// Config holds the serial line settings.
type Config struct {
	// BaudRate of the line. The bootloader runs 8N1.
	BaudRate int
	// ReadTimeout bounds each underlying read so blocked calls can observe
	// context cancellation.
	ReadTimeout time.Duration
	// FrameTimeout is how long the rest of a frame may take once its
	// length byte has arrived.
	FrameTimeout time.Duration
}

// DefaultConfig returns 115200 baud with platform-tuned read timeouts.
func DefaultConfig() Config {
	return Config{
		BaudRate:     115200,
		ReadTimeout:  defaultReadTimeout(),
		FrameTimeout: serialboot.FrameTimeout,
	}
}

func isWindows() bool {
	return runtime.GOOS == "windows"
}

// defaultReadTimeout is longer on Windows where short serial timeouts
// return early with partial reads more often.
func defaultReadTimeout() time.Duration {
	if isWindows() {
		return 100 * time.Millisecond
	}
	return 50 * time.Millisecond
}

// Port is a serial port speaking the bootloader framing. It serves both
// sides: the device receives frames and transmits replies, the host
// transmits frames and reads replies.
type Port struct {
	port   serial.Port
	name   string
	rxBuf  []byte
	config Config
	rmu    syncutil.Mutex
	wmu    syncutil.Mutex
	closed atomic.Bool
}

// Open opens the named serial device.
func Open(name string, cfg Config) (*Port, error) {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultConfig().BaudRate
	}
	sp, err := serial.Open(name, &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open UART port %s: %w", name, err)
	}

	p, err := NewPort(sp, name, cfg)
	if err != nil {
		_ = sp.Close()
		return nil, err
	}
	return p, nil
}

// NewPort wraps an already open serial.Port.
func NewPort(sp serial.Port, name string, cfg Config) (*Port, error) {
	defaults := DefaultConfig()
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.FrameTimeout <= 0 {
		cfg.FrameTimeout = defaults.FrameTimeout
	}
	if err := sp.SetReadTimeout(cfg.ReadTimeout); err != nil {
		return nil, fmt.Errorf("failed to set UART read timeout: %w", err)
	}
	return &Port{
		port:   sp,
		name:   name,
		config: cfg,
		rxBuf:  frame.GetFrameBuffer(),
	}, nil
}

// Name returns the device path the port was opened with.
func (p *Port) Name() string {
	return p.name
}

// Transmit writes data and waits for it to leave the output buffer.
func (p *Port) Transmit(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.closed.Load() {
		return serialboot.NewTransportError("transmit", p.name, serialboot.ErrTransportClosed, serialboot.ErrorTypePermanent)
	}

	p.wmu.Lock()
	defer p.wmu.Unlock()

	for written := 0; written < len(data); {
		n, err := p.port.Write(data[written:])
		if err != nil {
			return p.wrapIOError("transmit", err)
		}
		if n == 0 {
			return serialboot.NewTransportWriteError("transmit", p.name)
		}
		written += n
	}
	return p.drainWithRetry("transmit")
}

// ReadExact fills buf completely or fails once timeout elapses. A zero
// timeout waits until ctx is done.
func (p *Port) ReadExact(ctx context.Context, buf []byte, timeout time.Duration) error {
	p.rmu.Lock()
	defer p.rmu.Unlock()
	return p.readFull(ctx, buf, timeout, "read")
}

func (p *Port) readFull(ctx context.Context, buf []byte, timeout time.Duration, op string) error {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for got := 0; got < len(buf); {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.closed.Load() {
			return serialboot.NewTransportError(op, p.name, serialboot.ErrTransportClosed, serialboot.ErrorTypePermanent)
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return serialboot.NewTimeoutError(op, p.name)
		}

		n, err := p.port.Read(buf[got:])
		if err != nil {
			if isInterruptedSystemCall(err) {
				continue
			}
			return p.wrapIOError(op, fmt.Errorf("%w: %w", serialboot.ErrTransportRead, err))
		}
		got += n
	}
	return nil
}

// ReceiveFrame blocks until a complete length-prefixed frame has arrived.
// The returned slice is reused by the next call.
func (p *Port) ReceiveFrame(ctx context.Context) ([]byte, error) {
	p.rmu.Lock()
	defer p.rmu.Unlock()

	if err := p.readFull(ctx, p.rxBuf[:1], 0, "receive frame"); err != nil {
		return nil, err
	}

	total := frame.DeclaredLength(p.rxBuf[0])
	err := p.readFull(ctx, p.rxBuf[1:total], p.config.FrameTimeout, "receive frame")
	switch {
	case err == nil:
		return p.rxBuf[:total], nil
	case errors.Is(err, serialboot.ErrTransportTimeout):
		logger().WithFields(logrus.Fields{
			"port":     p.name,
			"declared": total,
		}).Debug("frame incomplete, resynchronising")
		_ = p.port.ResetInputBuffer()
		return nil, serialboot.NewTransportError("receive frame", p.name, serialboot.ErrFrameTimeout, serialboot.ErrorTypeTimeout)
	default:
		return nil, err
	}
}

// ResetInput discards unread input.
func (p *Port) ResetInput() error {
	if err := p.port.ResetInputBuffer(); err != nil {
		return p.wrapIOError("reset input", err)
	}
	return nil
}

// Close releases the port. Blocked reads return once their current
// read timeout elapses.
func (p *Port) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	if err := p.port.Close(); err != nil {
		return fmt.Errorf("UART close failed: %w", err)
	}
	return nil
}

func (p *Port) wrapIOError(op string, err error) error {
	errType := serialboot.ErrorTypeTransient
	if serialboot.IsFatal(err) || p.closed.Load() {
		errType = serialboot.ErrorTypePermanent
	}
	return serialboot.NewTransportError(op, p.name, err, errType)
}

func isInterruptedSystemCall(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "interrupted system call") ||
		strings.Contains(errStr, "eintr")
}

// drainWithRetry waits for the output buffer to empty, retrying when the
// wait is interrupted by a signal.
func (p *Port) drainWithRetry(operation string) error {
	const maxRetries = 3
	baseDelay := 2 * time.Millisecond

	for attempt := range maxRetries {
		err := p.port.Drain()
		if err == nil {
			return nil
		}

		if isInterruptedSystemCall(err) && attempt < maxRetries-1 {
			time.Sleep(baseDelay * time.Duration(1<<attempt))
			continue
		}
		return fmt.Errorf("UART %s drain failed: %w", operation, err)
	}

	return fmt.Errorf("UART %s drain failed after %d retries", operation, maxRetries)
}

func logger() *logrus.Logger {
	return serialboot.Logger()
}

var (
	_ serialboot.Transmitter   = (*Port)(nil)
	_ serialboot.FrameReceiver = (*Port)(nil)
)
