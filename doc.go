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

// Package serialboot implements the command protocol of a serial
// bootloader for STM32F4-class microcontrollers.
//
// A host sends length-prefixed, CRC-suffixed frames:
//
//	[N][command][payload...][crc32 LE]
//
// where N+1 is the frame length and the CRC covers every byte before it.
// The device answers NACK (0x7F) to a frame it cannot verify, or ACK
// (0xA5, 0x01) followed by one status byte. Four commands exist: report the
// read-out protection level (0x11), jump to an address (0x22), erase flash
// sectors (0x33) and write memory (0x44).
//
// The Dispatcher handles one frame against injected hardware capabilities;
// Bootloader runs it in a receive loop. The emulator package provides
// in-memory hardware, transport/uart a serial link, and host a client that
// drives a device from a PC.
package serialboot
