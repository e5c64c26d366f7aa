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

package uart

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.bug.st/serial"
)

// DeadlineConn is a byte stream with read deadlines, such as a net.Conn or
// a nonblocking *os.File.
type DeadlineConn interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
}

// StreamPort presents a DeadlineConn as a serial.Port so a pseudo terminal
// or an in-memory pipe can stand in for a serial device. Line settings and
// modem lines are accepted and ignored.
type StreamPort struct {
	conn        DeadlineConn
	readTimeout time.Duration
}

// NewStreamPort wraps conn.
func NewStreamPort(conn DeadlineConn) *StreamPort {
	return &StreamPort{conn: conn, readTimeout: defaultReadTimeout()}
}

// Read follows serial.Port semantics: a read that times out returns 0, nil.
func (s *StreamPort) Read(p []byte) (int, error) {
	if s.readTimeout > 0 {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
			return 0, fmt.Errorf("set read deadline: %w", err)
		}
	}
	n, err := s.conn.Read(p)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return n, nil
	}
	if err != nil {
		return n, fmt.Errorf("stream read: %w", err)
	}
	return n, nil
}

func (s *StreamPort) Write(p []byte) (int, error) {
	n, err := s.conn.Write(p)
	if err != nil {
		return n, fmt.Errorf("stream write: %w", err)
	}
	return n, nil
}

// ResetInputBuffer discards whatever is immediately readable.
func (s *StreamPort) ResetInputBuffer() error {
	var scratch [64]byte
	for {
		if err := s.conn.SetReadDeadline(time.Now().Add(time.Millisecond)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}
		n, err := s.conn.Read(scratch[:])
		if errors.Is(err, os.ErrDeadlineExceeded) || n == 0 {
			return nil
		}
		if err != nil {
			return fmt.Errorf("stream reset: %w", err)
		}
	}
}

func (s *StreamPort) SetReadTimeout(t time.Duration) error {
	s.readTimeout = t
	return nil
}

func (s *StreamPort) Close() error {
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("stream close: %w", err)
	}
	return nil
}

func (*StreamPort) SetMode(*serial.Mode) error { return nil }

func (*StreamPort) Drain() error { return nil }

func (*StreamPort) ResetOutputBuffer() error { return nil }

func (*StreamPort) SetDTR(bool) error { return nil }

func (*StreamPort) SetRTS(bool) error { return nil }

func (*StreamPort) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	return &serial.ModemStatusBits{}, nil
}

func (*StreamPort) Break(time.Duration) error { return nil }

var _ serial.Port = (*StreamPort)(nil)
