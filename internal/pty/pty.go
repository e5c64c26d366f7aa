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

// Package pty opens pseudo terminal pairs so the bootloader emulator can
// appear as a serial device to unmodified host tools.
package pty

import (
	"errors"
	"os"
)

var ErrUnsupported = errors.New("pseudo terminals are not supported on this platform")

// Pair is an open pseudo terminal. The emulator serves Master and host
// tools open Path.
type Pair struct {
	Master *os.File
	// slave keeps the line open so Master reads do not fail with EIO
	// while no host is attached.
	slave *os.File
	Path  string
}

// Close releases both ends.
func (p *Pair) Close() error {
	var errs []error
	if p.slave != nil {
		errs = append(errs, p.slave.Close())
	}
	if p.Master != nil {
		errs = append(errs, p.Master.Close())
	}
	return errors.Join(errs...)
}
