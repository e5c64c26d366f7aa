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
	"errors"
	"testing"

	serialboot "github.com/ZaparooProject/go-serialboot"
)

func FuzzValidateAck(f *testing.F) {
	f.Add([]byte{0xA5, 0x01})
	f.Add([]byte{0x7F})
	f.Add([]byte{0xA5})
	f.Add([]byte{})
	f.Add([]byte{0xA5, 0x00})
	f.Add([]byte{0x00, 0x00, 0xFF})

	f.Fuzz(func(t *testing.T, reply []byte) {
		follow, err := ValidateAck(reply, "fuzz", "fuzz")
		if err == nil && (len(reply) < 2 || reply[0] != serialboot.AckMarker || follow == 0) {
			t.Errorf("ValidateAck(%v) accepted a non-ACK reply", reply)
		}
		if err != nil && errors.Is(err, serialboot.ErrNACKReceived) && reply[0] != serialboot.NackMarker {
			t.Errorf("ValidateAck(%v) reported NACK without the marker", reply)
		}
	})
}

func FuzzBufferPool(f *testing.F) {
	f.Add(1)
	f.Add(16)
	f.Add(255)
	f.Add(256)
	f.Add(0)
	f.Add(-1)
	f.Add(10000)

	f.Fuzz(func(t *testing.T, size int) {
		if size < 0 || size > 1_000_000 {
			return
		}

		buf := GetBuffer(size)
		if len(buf) != size {
			t.Errorf("GetBuffer(%d) returned buffer of length %d", size, len(buf))
		}
		for i := range buf {
			buf[i] = byte(i)
		}
		PutBuffer(buf)
	})
}
