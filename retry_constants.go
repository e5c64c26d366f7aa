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

import "time"

// Handshake retry constants control how often a host resends a frame the
// device did not acknowledge.
const (
	// HandshakeRetries is the number of attempts per frame.
	HandshakeRetries = 3
	// HandshakeInitialBackoff is the delay before the first resend.
	HandshakeInitialBackoff = 20 * time.Millisecond
	// HandshakeMaxBackoff caps the delay between resends.
	HandshakeMaxBackoff = 500 * time.Millisecond
)

// Reply timeouts bound how long a host waits for each part of a reply.
const (
	// AckTimeout is the wait for the ACK or NACK byte after a frame.
	AckTimeout = 500 * time.Millisecond
	// ReplyStatusTimeout is the wait for the status byte of quick commands.
	ReplyStatusTimeout = time.Second
	// JumpStatusTimeout is the wait after which a silent jump is treated as
	// an invalid address.
	JumpStatusTimeout = 500 * time.Millisecond
	// EraseStatusTimeout covers a full-bank erase, which takes up to 16 s
	// per MiB on STM32F4 parts at 3.3 V.
	EraseStatusTimeout = 40 * time.Second
	// FrameTimeout is the device-side limit for the rest of a frame once its
	// length byte has arrived.
	FrameTimeout = time.Second
)

// StatusTimeoutFor returns how long a host should wait for the status byte
// of the given command.
func StatusTimeoutFor(id CommandID) time.Duration {
	switch id {
	case CmdEraseFlash:
		return EraseStatusTimeout
	case CmdJumpToAddress:
		return JumpStatusTimeout
	case CmdReportProtectionLevel, CmdWriteMemory, CmdEnableWriteProtect:
		return ReplyStatusTimeout
	default:
		return ReplyStatusTimeout
	}
}
