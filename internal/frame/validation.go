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

package frame

import (
	serialboot "github.com/ZaparooProject/go-serialboot"
)

// ValidateAck interprets the first reply bytes after a frame was sent.
// An ACK returns the number of bytes the device announced to follow.
func ValidateAck(reply []byte, operation, port string) (followLen byte, err error) {
	if len(reply) == 0 {
		return 0, serialboot.NewNoACKError(operation, port)
	}

	switch reply[0] {
	case serialboot.AckMarker:
		if len(reply) < AckReplySize {
			return 0, serialboot.NewNoACKError(operation, port)
		}
		if reply[1] == 0 {
			return 0, serialboot.NewInvalidResponseError(operation, port)
		}
		return reply[1], nil
	case serialboot.NackMarker:
		return 0, serialboot.NewNACKReceivedError(operation, port)
	default:
		return 0, serialboot.NewInvalidResponseError(operation, port)
	}
}

// ValidateStatus maps a status byte to an error for commands whose status
// comes from the flash controller.
func ValidateStatus(status byte, operation string) error {
	switch s := serialboot.Status(status); s {
	case serialboot.StatusOK:
		return nil
	case serialboot.StatusInvalidSector:
		return serialboot.ErrInvalidSectorCount
	default:
		return &serialboot.HardwareError{Op: operation, Status: s}
	}
}
