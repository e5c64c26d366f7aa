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

package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatVIDPID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0483:374B", FormatVIDPID("0483", "374b"))
	assert.Equal(t, "10C4:EA60", FormatVIDPID("0x10c4", " ea60 "))
	assert.Empty(t, FormatVIDPID("", "374B"))
}

func TestBlocklist_Blocks(t *testing.T) {
	t.Parallel()

	b := DefaultBlocklist()
	assert.True(t, b.Blocks("2341", "0043"))
	assert.True(t, b.Blocks("2341", "0001"))
	assert.False(t, b.Blocks("0483", "374B"))
	assert.False(t, b.Blocks("", ""))
	assert.False(t, Blocklist(nil).Blocks("2341", "0043"))
}

func TestIsPathIgnored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		path   string
		ignore []string
		want   bool
	}{
		{name: "empty path", path: "", ignore: []string{"/dev/ttyUSB0"}, want: false},
		{name: "no ignore list", path: "/dev/ttyUSB0", want: false},
		{name: "exact", path: "/dev/ttyUSB0", ignore: []string{"/dev/ttyUSB0"}, want: true},
		{name: "unclean", path: "/dev/ttyUSB0", ignore: []string{"/dev//ttyUSB0/"}, want: true},
		{name: "other port", path: "/dev/ttyUSB1", ignore: []string{"/dev/ttyUSB0"}, want: false},
		{name: "empty entry", path: "/dev/ttyUSB0", ignore: []string{""}, want: false},
		{name: "case insensitive", path: "COM3", ignore: []string{"com3"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsPathIgnored(tt.path, tt.ignore))
		})
	}
}
