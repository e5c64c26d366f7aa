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
	"errors"
	"fmt"
	"io"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "timeout", err: ErrTransportTimeout, want: true},
		{name: "no ack", err: fmt.Errorf("frame: %w", ErrNoACK), want: true},
		{name: "nack", err: NewNACKReceivedError("write", "ttyUSB0"), want: true},
		{name: "invalid response", err: NewInvalidResponseError("erase", "ttyUSB0"), want: false},
		{name: "checksum mismatch", err: ErrChecksumMismatch, want: false},
		{name: "invalid address", err: ErrInvalidAddress, want: false},
		{name: "hardware", err: &HardwareError{Op: "erase", Status: StatusBusy}, want: false},
		{
			name: "permanent transport error",
			err:  NewTransportError("open", "ttyUSB0", errors.New("denied"), ErrorTypePermanent),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestIsFatal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "closed", err: ErrTransportClosed, want: true},
		{name: "eof", err: fmt.Errorf("read: %w", io.EOF), want: true},
		{name: "closed pipe", err: io.ErrClosedPipe, want: true},
		{name: "device gone", err: fmt.Errorf("read: %w", syscall.ENXIO), want: true},
		{name: "io error", err: syscall.EIO, want: true},
		{name: "timeout", err: NewTimeoutError("read", "ttyUSB0"), want: false},
		{name: "permanent", err: NewInvalidResponseError("read", "ttyUSB0"), want: true},
		{name: "plain", err: errors.New("glitch"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsFatal(tt.err))
		})
	}
}

func TestTransportError_Format(t *testing.T) {
	t.Parallel()

	err := NewTimeoutError("ack", "/dev/ttyUSB0")
	assert.Equal(t, "ack /dev/ttyUSB0: transport timeout", err.Error())
	require.ErrorIs(t, err, ErrTransportTimeout)
	assert.True(t, err.Retryable)

	noPort := NewTransportWriteError("write", "")
	assert.Equal(t, "write: transport write failed", noPort.Error())
}

func TestHardwareError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("sector 3: %w", &HardwareError{Op: "erase", Status: StatusTimeout})

	require.ErrorIs(t, err, ErrHardwareFailure)
	var hw *HardwareError
	require.ErrorAs(t, err, &hw)
	assert.Equal(t, StatusTimeout, hw.Status)
	assert.Contains(t, err.Error(), "0x03")
}

func TestErrorConstructors(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ErrorTypeTimeout, NewNoACKError("x", "p").Type)
	assert.Equal(t, ErrorTypeTransient, NewNACKReceivedError("x", "p").Type)
	assert.Equal(t, ErrorTypePermanent, NewDataTooLargeError("x", "p").Type)
	assert.False(t, NewDataTooLargeError("x", "p").Retryable)
	require.ErrorIs(t, NewDataTooLargeError("x", "p"), ErrDataTooLarge)
}
