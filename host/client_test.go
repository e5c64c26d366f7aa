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

package host

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	serialboot "github.com/ZaparooProject/go-serialboot"
	"github.com/ZaparooProject/go-serialboot/emulator"
	virt "github.com/ZaparooProject/go-serialboot/internal/testing"
	"github.com/ZaparooProject/go-serialboot/transport/uart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rig runs a bootloader on an emulated device at the far end of a pipe.
type rig struct {
	device *emulator.Device
	client *Client
	done   chan error
}

func newRig(t *testing.T, bootOpts []serialboot.Option, clientOpts ...Option) *rig {
	t.Helper()

	devEnd, hostEnd := net.Pipe()
	cfg := uart.Config{ReadTimeout: 5 * time.Millisecond}
	devPort, err := uart.NewPort(uart.NewStreamPort(devEnd), "device", cfg)
	require.NoError(t, err)
	hostPort, err := uart.NewPort(uart.NewStreamPort(hostEnd), "host", cfg)
	require.NoError(t, err)

	dev, err := emulator.New()
	require.NoError(t, err)
	boot, err := serialboot.New(devPort, dev.Peripherals(devPort), bootOpts...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	r := &rig{device: dev, client: NewClient(hostPort, clientOpts...), done: make(chan error, 1)}
	go func() { r.done <- boot.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		_ = hostPort.Close()
		_ = devPort.Close()
		<-r.done
	})
	return r
}

func TestClient_GetProtectionLevel(t *testing.T) {
	t.Parallel()

	r := newRig(t, nil)
	r.device.Options().SetReadProtection(0xBB)

	level, err := r.client.GetProtectionLevel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, byte(0xBB), level)
}

func TestClient_EraseAndProgramImage(t *testing.T) {
	t.Parallel()

	r := newRig(t, nil)
	require.NoError(t, r.device.LoadFlash(make([]byte, 32<<10)))
	ctx := context.Background()

	require.NoError(t, r.client.EraseSectors(ctx, 0, 2))

	image := make([]byte, 3*serialboot.MaxWriteChunk+17)
	for i := range image {
		image[i] = byte(i * 7)
	}
	var progress []int
	require.NoError(t, r.client.Program(ctx, 0x08000000, image, func(written, total int) {
		assert.Equal(t, len(image), total)
		progress = append(progress, written)
	}))

	got, err := r.device.Read(0x08000000, len(image))
	require.NoError(t, err)
	assert.Equal(t, image, got)
	assert.Equal(t, []int{245, 490, 735, len(image)}, progress)
	assert.True(t, r.device.Locked())
}

func TestClient_MassErase(t *testing.T) {
	t.Parallel()

	r := newRig(t, nil)
	require.NoError(t, r.device.LoadFlash(make([]byte, 1<<20)))

	require.NoError(t, r.client.MassErase(context.Background()))
	got, err := r.device.Read(serialboot.FlashEnd, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF}, got)
}

func TestClient_EraseRejectedCount(t *testing.T) {
	t.Parallel()

	r := newRig(t, nil)
	err := r.client.EraseSectors(context.Background(), 0, 8)
	require.ErrorIs(t, err, serialboot.ErrInvalidSectorCount)
	assert.NotNil(t, serialboot.GetTrace(err))
}

func TestClient_EraseHardwareFault(t *testing.T) {
	t.Parallel()

	r := newRig(t, nil)
	r.device.InjectFault(emulator.OpErase, serialboot.StatusBusy)

	err := r.client.EraseSectors(context.Background(), 3, 1)
	var hw *serialboot.HardwareError
	require.ErrorAs(t, err, &hw)
	assert.Equal(t, serialboot.StatusBusy, hw.Status)
}

func TestClient_WriteToRAM(t *testing.T) {
	t.Parallel()

	r := newRig(t, nil)
	require.NoError(t, r.client.WriteMemory(context.Background(), 0x20001000, []byte{1, 2, 3, 4, 5}))

	got, err := r.device.Read(0x20001000, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, got)
}

func TestClient_WriteOutsideMemoryMap(t *testing.T) {
	t.Parallel()

	r := newRig(t, nil)
	err := r.client.WriteMemory(context.Background(), 0x40000000, []byte{1})
	require.ErrorIs(t, err, serialboot.ErrHardwareFailure)
}

func TestClient_LocalAddressCheck(t *testing.T) {
	t.Parallel()

	r := newRig(t, nil, WithMemoryMap(serialboot.DefaultMemoryMap()))
	err := r.client.WriteMemory(context.Background(), 0x40000000, []byte{1})
	require.ErrorIs(t, err, serialboot.ErrInvalidAddress)
	assert.Nil(t, serialboot.GetTrace(err), "nothing was sent")
}

func TestClient_GoToAddress(t *testing.T) {
	t.Parallel()

	r := newRig(t, nil)
	require.NoError(t, r.client.GoToAddress(context.Background(), 0x08004000))
	assert.Equal(t, []uint32{0x08004001}, r.device.Jumps())
	require.NoError(t, <-r.done, "serve returns once the jump hook returns")
	r.done <- nil
}

func TestClient_GoToInvalidAddressSilent(t *testing.T) {
	t.Parallel()

	r := newRig(t, nil)
	err := r.client.GoToAddress(context.Background(), 0x40000000)
	require.ErrorIs(t, err, serialboot.ErrInvalidAddress)
	assert.Empty(t, r.device.Jumps())

	// the device is still serving
	_, err = r.client.GetProtectionLevel(context.Background())
	require.NoError(t, err)
}

func TestClient_GoToInvalidAddressReported(t *testing.T) {
	t.Parallel()

	r := newRig(t, []serialboot.Option{serialboot.WithJumpStatusOnInvalid(true)})
	start := time.Now()
	err := r.client.GoToAddress(context.Background(), 0x00000100)
	require.ErrorIs(t, err, serialboot.ErrInvalidAddress)
	assert.Less(t, time.Since(start), serialboot.JumpStatusTimeout, "status byte arrives without waiting")
}

func TestClient_ChecksumMismatchExhaustsRetries(t *testing.T) {
	t.Parallel()

	r := newRig(t, nil,
		WithAccumulator(serialboot.NewIEEECRC()),
		WithRetryConfig(&serialboot.RetryConfig{
			MaxAttempts:       2,
			InitialBackoff:    time.Millisecond,
			MaxBackoff:        time.Millisecond,
			BackoffMultiplier: 1,
			RetryTimeout:      time.Second,
		}))

	_, err := r.client.GetProtectionLevel(context.Background())
	require.ErrorIs(t, err, serialboot.ErrNACKReceived)

	trace := serialboot.GetTrace(err)
	require.NotNil(t, trace)
	assert.Contains(t, trace.FormatTrace(), "< 7F")
}

// scriptedConn replays canned replies, one slice per transmitted frame.
type scriptedConn struct {
	replies [][]byte
	sent    [][]byte
	pending []byte
	mu      sync.Mutex
}

func (s *scriptedConn) Name() string { return "scripted" }

func (*scriptedConn) ResetInput() error { return nil }

func (s *scriptedConn) Transmit(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, append([]byte(nil), data...))
	s.pending = nil
	if len(s.replies) > 0 {
		s.pending = s.replies[0]
		s.replies = s.replies[1:]
	}
	return nil
}

func (s *scriptedConn) ReadExact(_ context.Context, buf []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) < len(buf) {
		s.pending = nil
		return serialboot.NewTimeoutError("read", "scripted")
	}
	copy(buf, s.pending)
	s.pending = s.pending[len(buf):]
	return nil
}

func fastRetries() *serialboot.RetryConfig {
	return &serialboot.RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        time.Millisecond,
		BackoffMultiplier: 1,
		RetryTimeout:      time.Second,
	}
}

func TestClient_RetriesAfterNackAndSilence(t *testing.T) {
	t.Parallel()

	conn := &scriptedConn{replies: [][]byte{
		{serialboot.NackMarker},
		{},
		{serialboot.AckMarker, 0x01, 0xAA},
	}}
	c := NewClient(conn, WithRetryConfig(fastRetries()))

	level, err := c.GetProtectionLevel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, byte(0xAA), level)
	require.Len(t, conn.sent, 3)
	assert.Equal(t, conn.sent[0], conn.sent[2], "the same frame is resent")
}

func TestClient_NoResendAfterAck(t *testing.T) {
	t.Parallel()

	conn := &scriptedConn{replies: [][]byte{
		{serialboot.AckMarker, 0x01},
		{serialboot.AckMarker, 0x01, 0x00},
	}}
	c := NewClient(conn, WithRetryConfig(fastRetries()))

	err := c.EraseSectors(context.Background(), 0, 1)
	require.ErrorIs(t, err, serialboot.ErrTransportTimeout)
	assert.False(t, serialboot.IsRetryable(err))
	assert.Len(t, conn.sent, 1, "an acknowledged erase must not be repeated")
}

func TestClient_TruncatedAckIsNotRetried(t *testing.T) {
	t.Parallel()

	conn := &scriptedConn{replies: [][]byte{
		{serialboot.AckMarker},
		{serialboot.AckMarker, 0x01, byte(serialboot.StatusOK)},
	}}
	c := NewClient(conn, WithRetryConfig(fastRetries()))

	err := c.EraseSectors(context.Background(), 0, 1)
	require.ErrorIs(t, err, serialboot.ErrTransportTimeout)
	assert.False(t, serialboot.IsRetryable(err))
	assert.Len(t, conn.sent, 1, "an acknowledged erase must not be sent again")
}

func TestClient_GarbageReplyIsNotRetried(t *testing.T) {
	t.Parallel()

	conn := &scriptedConn{replies: [][]byte{{0x42}}}
	c := NewClient(conn, WithRetryConfig(fastRetries()), WithTraceSize(4), WithAckTimeout(time.Millisecond))

	_, err := c.GetProtectionLevel(context.Background())
	require.ErrorIs(t, err, serialboot.ErrInvalidResponse)
	assert.Len(t, conn.sent, 1)
}

func TestClient_WriteTooLarge(t *testing.T) {
	t.Parallel()

	conn := &scriptedConn{}
	c := NewClient(conn)
	err := c.WriteMemory(context.Background(), 0x20000000, make([]byte, serialboot.MaxWriteChunk+1))
	require.ErrorIs(t, err, serialboot.ErrDataTooLarge)
	var te *serialboot.TransportError
	require.ErrorAs(t, err, &te)
	assert.False(t, te.Retryable)
	assert.Empty(t, conn.sent)
}

func TestClient_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewClient(&scriptedConn{})

	_, err := c.GetProtectionLevel(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRawFrameHelperMatchesClient(t *testing.T) {
	t.Parallel()

	conn := &scriptedConn{replies: [][]byte{{serialboot.AckMarker, 0x01, 0x00}}}
	c := NewClient(conn)
	require.NoError(t, c.EraseSectors(context.Background(), 2, 3))
	assert.Equal(t, virt.RawFrame(0x33, []byte{2, 3}), conn.sent[0])
}
