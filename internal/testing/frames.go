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
	"encoding/binary"

	serialboot "github.com/ZaparooProject/go-serialboot"
)

// Frame encodes cmd with the STM32 CRC.
func Frame(cmd serialboot.Command) []byte {
	f, err := serialboot.EncodeFrame(cmd, serialboot.NewSTM32CRC())
	if err != nil {
		panic(err)
	}
	return f
}

// RawFrame frames an arbitrary command byte and payload with a valid
// checksum, for ids and payloads the encoder refuses to build.
func RawFrame(id byte, payload []byte) []byte {
	body := make([]byte, 0, 2+len(payload)+serialboot.ChecksumSize)
	body = append(body, byte(1+len(payload)+serialboot.ChecksumSize), id)
	body = append(body, payload...)
	return binary.LittleEndian.AppendUint32(body, serialboot.Checksum(serialboot.NewSTM32CRC(), body))
}

// CorruptChecksum returns a copy of f with its last checksum bit flipped.
func CorruptChecksum(f []byte) []byte {
	out := append([]byte(nil), f...)
	out[len(out)-1] ^= 0x01
	return out
}
