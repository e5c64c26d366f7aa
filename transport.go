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
	"bytes"
	"context"
	"sync"
)

// Transmitter sends bytes over the serial link. Transmit blocks until the
// bytes have been handed to the link or ctx is done.
type Transmitter interface {
	Transmit(ctx context.Context, data []byte) error
}

// FrameReceiver delivers one length-prefixed frame at a time. ReceiveFrame
// blocks until a complete frame arrives, the link fails or ctx is done.
type FrameReceiver interface {
	ReceiveFrame(ctx context.Context) ([]byte, error)
}

// MockTransport is an in-memory link for tests: frames are queued with
// QueueFrame and every transmission is recorded.
type MockTransport struct {
	txErr  error
	frames [][]byte
	sent   [][]byte
	mu     sync.Mutex
}

// NewMockTransport creates a new mock transport
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// Transmit implements Transmitter
func (m *MockTransport) Transmit(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.txErr != nil {
		return m.txErr
	}
	m.sent = append(m.sent, append([]byte(nil), data...))
	return nil
}

// ReceiveFrame implements FrameReceiver. It returns ErrTransportClosed once
// the queue is drained.
func (m *MockTransport) ReceiveFrame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.frames) == 0 {
		return nil, ErrTransportClosed
	}
	frame := m.frames[0]
	m.frames = m.frames[1:]
	return frame, nil
}

// Test helper methods

// QueueFrame appends a frame to be returned by ReceiveFrame
func (m *MockTransport) QueueFrame(frame []byte) {
	m.mu.Lock()
	m.frames = append(m.frames, append([]byte(nil), frame...))
	m.mu.Unlock()
}

// SetTransmitError makes every Transmit fail with err. Nil clears it.
func (m *MockTransport) SetTransmitError(err error) {
	m.mu.Lock()
	m.txErr = err
	m.mu.Unlock()
}

// Sent returns each transmission in order
func (m *MockTransport) Sent() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.sent))
	for i, s := range m.sent {
		out[i] = append([]byte(nil), s...)
	}
	return out
}

// SentBytes returns all transmitted bytes concatenated
func (m *MockTransport) SentBytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bytes.Join(m.sent, nil)
}

// Reset clears recorded transmissions and queued frames
func (m *MockTransport) Reset() {
	m.mu.Lock()
	m.frames = nil
	m.sent = nil
	m.txErr = nil
	m.mu.Unlock()
}
