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

import serialboot "github.com/ZaparooProject/go-serialboot"

// Reply sizes as seen by the host.
const (
	AckReplySize    = 2 // marker + bytes to follow
	NackReplySize   = 1
	StatusReplySize = 1
)

// Frame bounds re-exported for the transport packages.
const (
	MinFrameLength = serialboot.MinFrameSize
	MaxFrameLength = serialboot.MaxFrameSize
)

// DeclaredLength returns the number of bytes a frame occupies on the wire,
// given its first byte.
func DeclaredLength(lengthByte byte) int {
	return int(lengthByte) + 1
}
