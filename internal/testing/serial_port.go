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

package testing

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

var errPortClosed = errors.New("port is closed")

// ScriptedPort is a serial.Port whose input is fed by the test and whose
// output is recorded. Reads with nothing queued wait for the read timeout
// and return 0, nil like a real port.
type ScriptedPort struct {
	rx          *JitteryReader
	inbox       *bytes.Buffer
	written     bytes.Buffer
	writeErr    error
	drains      int
	resets      int
	readTimeout time.Duration
	mu          sync.Mutex
	closed      bool
}

// NewScriptedPort creates a port. A nil config delivers bytes as fed.
func NewScriptedPort(jitter *JitterConfig) *ScriptedPort {
	p := &ScriptedPort{
		inbox:       &bytes.Buffer{},
		readTimeout: 5 * time.Millisecond,
	}
	cfg := JitterConfig{Seed: 1}
	if jitter != nil {
		cfg = *jitter
	}
	p.rx = NewJitteryReader(lockedReader{p}, cfg)
	return p
}

type lockedReader struct{ p *ScriptedPort }

func (l lockedReader) Read(b []byte) (int, error) {
	l.p.mu.Lock()
	defer l.p.mu.Unlock()
	n, _ := l.p.inbox.Read(b)
	return n, nil
}

// Feed queues bytes for the reader.
func (p *ScriptedPort) Feed(data []byte) {
	p.mu.Lock()
	p.inbox.Write(data)
	p.mu.Unlock()
}

// Written returns everything written so far.
func (p *ScriptedPort) Written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return bytes.Clone(p.written.Bytes())
}

// SetWriteError makes subsequent writes fail.
func (p *ScriptedPort) SetWriteError(err error) {
	p.mu.Lock()
	p.writeErr = err
	p.mu.Unlock()
}

// Drains reports how many times Drain was called.
func (p *ScriptedPort) Drains() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.drains
}

// Resets reports how many times the input buffer was reset.
func (p *ScriptedPort) Resets() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resets
}

func (p *ScriptedPort) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *ScriptedPort) Read(b []byte) (int, error) {
	if p.isClosed() {
		return 0, errPortClosed
	}
	n, err := p.rx.Read(b)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, err //nolint:wrapcheck // test double
	}
	if n == 0 {
		time.Sleep(p.readTimeout)
	}
	return n, nil
}

func (p *ScriptedPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, errPortClosed
	}
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	return p.written.Write(b) //nolint:wrapcheck // bytes.Buffer never fails
}

func (p *ScriptedPort) Drain() error {
	p.mu.Lock()
	p.drains++
	p.mu.Unlock()
	return nil
}

func (p *ScriptedPort) ResetInputBuffer() error {
	p.mu.Lock()
	p.resets++
	p.inbox.Reset()
	p.mu.Unlock()
	// Resets come from the reading goroutine, so the reader is idle here.
	p.rx.pending = nil
	return nil
}

func (p *ScriptedPort) SetReadTimeout(t time.Duration) error {
	p.mu.Lock()
	p.readTimeout = t
	p.mu.Unlock()
	return nil
}

func (p *ScriptedPort) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func (*ScriptedPort) SetMode(*serial.Mode) error { return nil }

func (*ScriptedPort) ResetOutputBuffer() error { return nil }

func (*ScriptedPort) SetDTR(bool) error { return nil }

func (*ScriptedPort) SetRTS(bool) error { return nil }

func (*ScriptedPort) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	return &serial.ModemStatusBits{}, nil
}

func (*ScriptedPort) Break(time.Duration) error { return nil }

var _ serial.Port = (*ScriptedPort)(nil)
