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
	"path/filepath"
	"strings"
)

// Blocklist holds VID:PID pairs that are never probed or reported.
type Blocklist []string

// DefaultBlocklist lists adapters that reset their board when the port is
// opened, so probing them would reboot whatever is attached.
func DefaultBlocklist() Blocklist {
	return Blocklist{
		"2341:0043", // Arduino Uno (ATmega16U2)
		"2341:0001", // Arduino Uno (FT232 era)
		"2341:0042", // Arduino Mega 2560
	}
}

// Blocks reports whether the adapter with the given IDs is listed.
func (b Blocklist) Blocks(vid, pid string) bool {
	id := FormatVIDPID(vid, pid)
	if id == "" {
		return false
	}
	for _, blocked := range b {
		if strings.EqualFold(strings.TrimSpace(blocked), id) {
			return true
		}
	}
	return false
}

// FormatVIDPID renders USB IDs as the upper-case "VVVV:PPPP" form used
// throughout the package. Either ID missing yields "".
func FormatVIDPID(vid, pid string) string {
	vid = strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(vid), "0x"))
	pid = strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(pid), "0x"))
	if vid == "" || pid == "" {
		return ""
	}
	return vid + ":" + pid
}

// IsPathIgnored reports whether devicePath matches one of ignorePaths after
// cleaning. Matching is case-insensitive so Windows COM names compare equal.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" {
		return false
	}
	device := normalizedPath(devicePath)
	for _, p := range ignorePaths {
		if p != "" && normalizedPath(p) == device {
			return true
		}
	}
	return false
}

func normalizedPath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}
