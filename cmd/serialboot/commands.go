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
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	serialboot "github.com/ZaparooProject/go-serialboot"
	"github.com/ZaparooProject/go-serialboot/detection"
	"github.com/ZaparooProject/go-serialboot/host"
	"github.com/ZaparooProject/go-serialboot/internal/bootpins"
	"github.com/ZaparooProject/go-serialboot/internal/config"
	"github.com/ZaparooProject/go-serialboot/transport/uart"
	"github.com/cheggaaa/pb/v3"
)

var errUsage = errors.New("invalid arguments")

// session carries what every command needs.
type session struct {
	cfg  *config.Config
	opts *options
	out  io.Writer
}

type command struct {
	run   func(ctx context.Context, s *session, args []string) error
	name  string
	usage string
	help  string
}

var commands []command

func init() {
	commands = []command{
		{name: "ports", usage: "ports [passive|safe|full]", help: "List serial ports with a bootloader", run: runPorts},
		{name: "rdp", usage: "rdp", help: "Print the read protection level", run: runRDP},
		{name: "erase", usage: "erase <start> <count> | mass", help: "Erase flash sectors or the whole bank", run: runErase},
		{name: "write", usage: "write <addr> <hex>", help: "Write up to 245 bytes", run: runWrite},
		{name: "flash", usage: "flash <addr> <file>", help: "Program a binary image", run: runFlash},
		{name: "go", usage: "go <addr>", help: "Start code at addr", run: runGo},
		{name: "reset", usage: "reset", help: "Reset into the application through GPIO", run: runReset},
	}
}

func findCommand(name string) (command, error) {
	for _, c := range commands {
		if c.name == name {
			return c, nil
		}
	}
	return command{}, fmt.Errorf("unknown command %q", name)
}

func parseAddress(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: address %q: %w", errUsage, s, err)
	}
	return uint32(v), nil
}

func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a byte: %w", errUsage, s, err)
	}
	return byte(v), nil
}

func parseHexData(s string) ([]byte, error) {
	s = strings.NewReplacer(" ", "", ":", "", "0x", "").Replace(s)
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: data: %w", errUsage, err)
	}
	return data, nil
}

func (s *session) portName(ctx context.Context) (string, error) {
	if s.cfg.Serial.Port != "" {
		return s.cfg.Serial.Port, nil
	}
	devices, err := detection.Detect(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("no port given and auto-detection failed: %w", err)
	}
	_, _ = fmt.Fprintf(s.out, "Using %s\n", devices[0])
	return devices[0].Path, nil
}

func (s *session) pins() (*bootpins.Sequencer, error) {
	if s.cfg.Pins.Reset == "" {
		return nil, errors.New("pins.reset is not configured")
	}
	return bootpins.Open(s.cfg.Pins.Boot0, s.cfg.Pins.Reset, s.cfg.Pins.ResetPulse, s.cfg.Pins.Settle)
}

// withClient opens the port, optionally entering the bootloader first, and
// runs fn with a client.
func (s *session) withClient(ctx context.Context, fn func(*host.Client) error) error {
	if s.opts.bootPins {
		seq, err := s.pins()
		if err != nil {
			return err
		}
		if err := seq.EnterBootloader(ctx); err != nil {
			return err
		}
	}

	name, err := s.portName(ctx)
	if err != nil {
		return err
	}
	port, err := uart.Open(name, s.cfg.UART())
	if err != nil {
		return err
	}
	defer func() {
		if err := port.Close(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to close port: %v\n", err)
		}
	}()

	acc, err := s.cfg.Accumulator()
	if err != nil {
		return err
	}
	client := host.NewClient(port,
		host.WithAccumulator(acc),
		host.WithRetryConfig(s.cfg.RetryConfig()),
		host.WithAckTimeout(s.cfg.Host.AckTimeout),
		host.WithTraceSize(s.cfg.Host.TraceSize),
		host.WithMemoryMap(s.cfg.MemoryMap()),
	)
	return fn(client)
}

func runPorts(ctx context.Context, s *session, args []string) error {
	opts := detection.DefaultOptions()
	opts.EnableCache = false
	if len(args) > 0 {
		mode, err := detection.ParseMode(args[0])
		if err != nil {
			return err
		}
		opts.Mode = mode
	}
	devices, err := detection.Detect(ctx, &opts)
	if errors.Is(err, detection.ErrNoDevicesFound) {
		_, _ = fmt.Fprintln(s.out, "No bootloader ports found.")
		return nil
	}
	if err != nil {
		return err
	}
	for _, d := range devices {
		_, _ = fmt.Fprintf(s.out, "%s\t%s\t%s\trdp=%s\n", d.Path, d.Metadata["vidpid"], d.Name, d.Metadata["rdp"])
	}
	return nil
}

func runRDP(ctx context.Context, s *session, _ []string) error {
	return s.withClient(ctx, func(c *host.Client) error {
		level, err := c.GetProtectionLevel(ctx)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(s.out, "Read protection: 0x%02X (%s)\n", level, describeRDP(level))
		return nil
	})
}

func describeRDP(level byte) string {
	switch level {
	case 0xAA:
		return "level 0"
	case 0xCC:
		return "level 2"
	default:
		return "level 1"
	}
}

func runErase(ctx context.Context, s *session, args []string) error {
	if len(args) == 1 && args[0] == "mass" {
		return s.withClient(ctx, func(c *host.Client) error {
			if err := c.MassErase(ctx); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(s.out, "Mass erase complete.")
			return nil
		})
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: erase <start> <count> | mass", errUsage)
	}
	start, err := parseByte(args[0])
	if err != nil {
		return err
	}
	count, err := parseByte(args[1])
	if err != nil {
		return err
	}
	return s.withClient(ctx, func(c *host.Client) error {
		if err := c.EraseSectors(ctx, start, count); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(s.out, "Erased %d sector(s) from %d.\n", count, start)
		return nil
	})
}

func runWrite(ctx context.Context, s *session, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: write <addr> <hex>", errUsage)
	}
	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	data, err := parseHexData(args[1])
	if err != nil {
		return err
	}
	return s.withClient(ctx, func(c *host.Client) error {
		if err := c.WriteMemory(ctx, addr, data); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(s.out, "Wrote %d byte(s) at 0x%08X.\n", len(data), addr)
		return nil
	})
}

func runFlash(ctx context.Context, s *session, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: flash <addr> <file>", errUsage)
	}
	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	image, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	return s.withClient(ctx, func(c *host.Client) error {
		bar := pb.New(len(image)).Set(pb.Bytes, true).SetWriter(s.out).Start()
		err := c.Program(ctx, addr, image, func(written, _ int) {
			bar.SetCurrent(int64(written))
		})
		bar.Finish()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(s.out, "Programmed %s at 0x%08X.\n", args[1], addr)
		return nil
	})
}

func runGo(ctx context.Context, s *session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: go <addr>", errUsage)
	}
	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	return s.withClient(ctx, func(c *host.Client) error {
		if err := c.GoToAddress(ctx, addr); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(s.out, "Jumped to 0x%08X.\n", addr)
		return nil
	})
}

func runReset(ctx context.Context, s *session, _ []string) error {
	seq, err := s.pins()
	if err != nil {
		return err
	}
	if err := seq.ResetToApplication(ctx); err != nil {
		return err
	}
	serialboot.Logger().Info("target reset into application")
	return nil
}
