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

import "fmt"

// CommandID identifies a bootloader command on the wire.
type CommandID byte

// Bootloader command codes
const (
	CmdReportProtectionLevel CommandID = 0x11
	CmdJumpToAddress         CommandID = 0x22
	CmdEraseFlash            CommandID = 0x33
	CmdWriteMemory           CommandID = 0x44
	// CmdEnableWriteProtect is reserved by the protocol family and rejected
	// by the dispatcher as an unknown command.
	CmdEnableWriteProtect CommandID = 0x55
)

var commandNames = map[CommandID]string{
	CmdReportProtectionLevel: "ReportProtectionLevel",
	CmdJumpToAddress:         "JumpToAddress",
	CmdEraseFlash:            "EraseFlash",
	CmdWriteMemory:           "WriteMemory",
	CmdEnableWriteProtect:    "EnableWriteProtect",
}

func (c CommandID) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(0x%02X)", byte(c))
}

// Handshake markers
const (
	AckMarker  byte = 0xA5 // followed by one "bytes to follow" count
	NackMarker byte = 0x7F
)

// Status is the one-byte result sent after an ACK.
type Status byte

// Hardware status codes, forwarded verbatim from the flash controller.
const (
	StatusOK      Status = 0x00
	StatusError   Status = 0x01
	StatusBusy    Status = 0x02
	StatusTimeout Status = 0x03
	// StatusInvalidSector rejects an erase request before any hardware call.
	StatusInvalidSector Status = 0x04
)

// Address classification results. They share the status byte encoding.
const (
	AddressValid   Status = 0x00
	AddressInvalid Status = 0x01
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	case StatusBusy:
		return "busy"
	case StatusTimeout:
		return "timeout"
	case StatusInvalidSector:
		return "invalid sector"
	default:
		return fmt.Sprintf("status 0x%02X", byte(s))
	}
}

// Flash geometry seen by the erase command.
const (
	LastSector        byte = 7
	MaxSectorCount    byte = 7
	MassEraseSentinel byte = 0xFF
	FlashBank1        byte = 1
)
