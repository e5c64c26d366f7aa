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

package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/ZaparooProject/go-serialboot/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	t.Parallel()

	addr, err := parseAddress("0x08004000")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x08004000), addr)

	addr, err = parseAddress("536870912")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x20000000), addr)

	_, err = parseAddress("0x1FFFFFFFF")
	require.ErrorIs(t, err, errUsage)
	_, err = parseAddress("flash")
	require.ErrorIs(t, err, errUsage)
}

func TestParseByte(t *testing.T) {
	t.Parallel()

	b, err := parseByte("0xFF")
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), b)

	_, err = parseByte("256")
	require.ErrorIs(t, err, errUsage)
}

func TestParseHexData(t *testing.T) {
	t.Parallel()

	data, err := parseHexData("DE AD:be0xef")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, data)

	_, err = parseHexData("ABC")
	require.ErrorIs(t, err, errUsage)
}

func TestFindCommand(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"ports", "rdp", "erase", "write", "flash", "go", "reset"} {
		c, err := findCommand(name)
		require.NoError(t, err)
		assert.Equal(t, name, c.name)
	}
	_, err := findCommand("readout-unprotect")
	require.Error(t, err)
}

func TestCommands_RejectBadArguments(t *testing.T) {
	t.Parallel()

	s := &session{cfg: config.Default(), opts: &options{}, out: &bytes.Buffer{}}
	ctx := context.Background()

	require.ErrorIs(t, runErase(ctx, s, []string{"1"}), errUsage)
	require.ErrorIs(t, runErase(ctx, s, []string{"1", "x"}), errUsage)
	require.ErrorIs(t, runWrite(ctx, s, []string{"0x20000000"}), errUsage)
	require.ErrorIs(t, runWrite(ctx, s, []string{"0x20000000", "zz"}), errUsage)
	require.ErrorIs(t, runFlash(ctx, s, nil), errUsage)
	require.ErrorIs(t, runGo(ctx, s, []string{"nowhere"}), errUsage)
}

func TestRunReset_RequiresPins(t *testing.T) {
	t.Parallel()

	s := &session{cfg: config.Default(), opts: &options{}, out: &bytes.Buffer{}}
	err := runReset(context.Background(), s, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pins.reset")
}

func TestDescribeRDP(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "level 0", describeRDP(0xAA))
	assert.Equal(t, "level 2", describeRDP(0xCC))
	assert.Equal(t, "level 1", describeRDP(0x55))
}
