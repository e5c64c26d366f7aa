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
	"context"
	"errors"
	"net"
	"testing"
	"time"

	serialboot "github.com/ZaparooProject/go-serialboot"
	virt "github.com/ZaparooProject/go-serialboot/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPort(t *testing.T, jitter *virt.JitterConfig) (*Port, *virt.ScriptedPort) {
	t.Helper()
	sp := virt.NewScriptedPort(jitter)
	p, err := NewPort(sp, "ttyTEST", Config{ReadTimeout: 2 * time.Millisecond, FrameTimeout: 100 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p, sp
}

func TestReceiveFrame_WholeFrame(t *testing.T) {
	t.Parallel()

	p, sp := newTestPort(t, nil)
	want := virt.Frame(serialboot.JumpToAddress{Address: 0x08000000})
	sp.Feed(want)

	got, err := p.ReceiveFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReceiveFrame_FragmentedDelivery(t *testing.T) {
	t.Parallel()

	jitter := virt.JitterConfig{FragmentReads: true, FragmentMinBytes: 1, Seed: 99}
	p, sp := newTestPort(t, &jitter)

	first := virt.Frame(serialboot.WriteMemory{Address: 0x20000000, Data: make([]byte, 200)})
	second := virt.Frame(serialboot.ReportProtectionLevel{})
	sp.Feed(append(append([]byte(nil), first...), second...))

	got, err := p.ReceiveFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, got)

	got, err = p.ReceiveFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second, got, "frame boundary follows the length byte")
}

func TestReceiveFrame_IncompleteFrameTimesOut(t *testing.T) {
	t.Parallel()

	p, sp := newTestPort(t, nil)
	sp.Feed([]byte{0x08, 0x11, 0x00})

	_, err := p.ReceiveFrame(context.Background())
	require.ErrorIs(t, err, serialboot.ErrFrameTimeout)
	assert.False(t, serialboot.IsFatal(err))
	assert.Equal(t, 1, sp.Resets())
}

func TestReceiveFrame_HonoursContext(t *testing.T) {
	t.Parallel()

	p, _ := newTestPort(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := p.ReceiveFrame(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestReceiveFrame_ClosedPortIsFatal(t *testing.T) {
	t.Parallel()

	p, _ := newTestPort(t, nil)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close(), "close is idempotent")

	_, err := p.ReceiveFrame(context.Background())
	require.ErrorIs(t, err, serialboot.ErrTransportClosed)
	assert.True(t, serialboot.IsFatal(err))
}

func TestReadExact_DeviceReadFailure(t *testing.T) {
	t.Parallel()

	p, sp := newTestPort(t, nil)
	require.NoError(t, sp.Close())

	err := p.ReadExact(context.Background(), make([]byte, 1), time.Second)
	require.ErrorIs(t, err, serialboot.ErrTransportRead)
	var te *serialboot.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "read", te.Op)
}

func TestTransmit_WritesAndDrains(t *testing.T) {
	t.Parallel()

	p, sp := newTestPort(t, nil)
	require.NoError(t, p.Transmit(context.Background(), []byte{serialboot.AckMarker, 0x01}))
	require.NoError(t, p.Transmit(context.Background(), []byte{0x00}))

	assert.Equal(t, []byte{0xA5, 0x01, 0x00}, sp.Written())
	assert.Equal(t, 2, sp.Drains())
}

func TestTransmit_WriteFailure(t *testing.T) {
	t.Parallel()

	p, sp := newTestPort(t, nil)
	sp.SetWriteError(errors.New("cable pulled"))

	err := p.Transmit(context.Background(), []byte{0x7F})
	var te *serialboot.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "ttyTEST", te.Port)
	assert.True(t, te.Retryable)
}

func TestReadExact_Timeout(t *testing.T) {
	t.Parallel()

	p, sp := newTestPort(t, nil)
	sp.Feed([]byte{0xA5})

	buf := make([]byte, 2)
	err := p.ReadExact(context.Background(), buf, 30*time.Millisecond)
	require.ErrorIs(t, err, serialboot.ErrTransportTimeout)
	assert.True(t, serialboot.IsRetryable(err))
}

func TestReadExact_FragmentedReply(t *testing.T) {
	t.Parallel()

	jitter := virt.JitterConfig{FragmentReads: true, Seed: 5}
	p, sp := newTestPort(t, &jitter)
	sp.Feed([]byte{0xA5, 0x01, 0x00})

	buf := make([]byte, 3)
	require.NoError(t, p.ReadExact(context.Background(), buf, time.Second))
	assert.Equal(t, []byte{0xA5, 0x01, 0x00}, buf)
}

func TestStreamPort_OverPipe(t *testing.T) {
	t.Parallel()

	a, b := net.Pipe()
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})

	device, err := NewPort(NewStreamPort(a), "pipe", Config{ReadTimeout: 5 * time.Millisecond})
	require.NoError(t, err)
	host, err := NewPort(NewStreamPort(b), "pipe", Config{ReadTimeout: 5 * time.Millisecond})
	require.NoError(t, err)

	frame := virt.Frame(serialboot.EraseFlash{StartSector: 1, SectorCount: 2})
	errCh := make(chan error, 1)
	go func() { errCh <- host.Transmit(context.Background(), frame) }()

	got, err := device.ReceiveFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, frame, got)
	require.NoError(t, <-errCh)

	go func() { errCh <- device.Transmit(context.Background(), []byte{0xA5, 0x01, 0x00}) }()
	reply := make([]byte, 3)
	require.NoError(t, host.ReadExact(context.Background(), reply, time.Second))
	assert.Equal(t, []byte{0xA5, 0x01, 0x00}, reply)
	require.NoError(t, <-errCh)

	require.NoError(t, host.ResetInput())
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, 115200, cfg.BaudRate)
	assert.Equal(t, serialboot.FrameTimeout, cfg.FrameTimeout)
	if isWindows() {
		assert.Equal(t, 100*time.Millisecond, cfg.ReadTimeout)
	} else {
		assert.Equal(t, 50*time.Millisecond, cfg.ReadTimeout)
	}
}
