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
	"context"
	"fmt"

	serialboot "github.com/ZaparooProject/go-serialboot"
	"github.com/ZaparooProject/go-serialboot/host"
	"github.com/ZaparooProject/go-serialboot/transport/uart"
)

// probeBootloader opens path and asks for the protection level once,
// without handshake retries.
func probeBootloader(ctx context.Context, path string) (byte, error) {
	port, err := uart.Open(path, uart.DefaultConfig())
	if err != nil {
		return 0, err
	}
	defer func() { _ = port.Close() }()

	client := host.NewClient(port, host.WithRetryConfig(&serialboot.RetryConfig{}))
	level, err := client.GetProtectionLevel(ctx)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", path, err)
	}
	return level, nil
}
