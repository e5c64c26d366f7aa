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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ok", StatusOK.String())
	assert.Equal(t, "invalid sector", StatusInvalidSector.String())
	assert.Equal(t, AddressValid, StatusOK)
	assert.Equal(t, AddressInvalid, StatusError)
}

func TestHandshakeMarkers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, byte(0xA5), AckMarker)
	assert.Equal(t, byte(0x7F), NackMarker)
	assert.Equal(t, CommandID(0x55), CmdEnableWriteProtect)
}
