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

// Command bootemu runs the serial bootloader against an emulated STM32F4 so
// host tools can be exercised without hardware. By default it allocates a
// pseudo terminal and prints its path.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	serialboot "github.com/ZaparooProject/go-serialboot"
	"github.com/ZaparooProject/go-serialboot/emulator"
	"github.com/ZaparooProject/go-serialboot/internal/config"
	"github.com/ZaparooProject/go-serialboot/internal/pty"
	"github.com/ZaparooProject/go-serialboot/internal/syncutil"
	"github.com/ZaparooProject/go-serialboot/transport/uart"
)

type options struct {
	configPath string
	port       string
	image      string
	save       string
	debug      bool
	exitOnJump bool
}

// Package-level flag variables
var (
	flagConfig     string
	flagPort       string
	flagImage      string
	flagSave       string
	flagDebug      bool
	flagExitOnJump bool
)

func init() {
	flag.StringVar(&flagConfig, "config", "", "YAML configuration file")
	flag.StringVar(&flagPort, "port", "", "Serve on this serial port instead of a pseudo terminal")
	flag.StringVar(&flagImage, "image", "", "Load this flash image at start (overrides emulator.flashImage)")
	flag.StringVar(&flagSave, "save", "", "Write the flash contents here on exit")
	flag.BoolVar(&flagDebug, "debug", false, "Enable debug output")
	flag.BoolVar(&flagExitOnJump, "exit-on-jump", false, "Exit when the host starts the application")
}

func parseOptions() *options {
	return &options{
		configPath: flagConfig,
		port:       flagPort,
		image:      flagImage,
		save:       flagSave,
		debug:      flagDebug,
		exitOnJump: flagExitOnJump,
	}
}

func main() {
	flag.Parse()
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	opts := parseOptions()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		_, _ = fmt.Print("\nShutting down gracefully...\n")
		cancel()
	}()

	if err := run(ctx, opts); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, opts *options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	closer, err := cfg.Logger.Apply(serialboot.Logger())
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()
	if opts.debug {
		serialboot.SetDebugEnabled(true)
	}
	if cfg.Emulator.LockTimeout > 0 {
		syncutil.SetLockTimeout(cfg.Emulator.LockTimeout)
	}

	dev, err := newDevice(cfg, opts)
	if err != nil {
		return err
	}
	if opts.save != "" {
		defer func() {
			if err := os.WriteFile(opts.save, dev.FlashImage(), 0o600); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "Failed to save flash image: %v\n", err)
			}
		}()
	}

	port, cleanup, err := openPort(cfg, opts)
	if err != nil {
		return err
	}
	defer cleanup()
	_, _ = fmt.Printf("Bootloader emulator listening on %s\n", port.Name())

	bootOpts, err := cfg.BootloaderOptions()
	if err != nil {
		return err
	}
	b, err := serialboot.New(port, dev.Peripherals(port), bootOpts...)
	if err != nil {
		return err
	}
	return serve(ctx, b, opts.exitOnJump)
}

// serve restarts the bootloader after every jump, as a reset would, unless
// exitOnJump is set.
func serve(ctx context.Context, b *serialboot.Bootloader, exitOnJump bool) error {
	for {
		if err := b.Serve(ctx); err != nil {
			return err
		}
		if exitOnJump {
			return nil
		}
		serialboot.Logger().Info("application returned, re-entering bootloader")
	}
}

func newDevice(cfg *config.Config, opts *options) (*emulator.Device, error) {
	emuOpts := []emulator.Option{emulator.WithOptionWord(cfg.Emulator.OptionWord)}
	if cfg.Emulator.RAMSize > 0 {
		emuOpts = append(emuOpts, emulator.WithRAMSize(cfg.Emulator.RAMSize))
	}
	if cfg.Emulator.EraseDelay > 0 {
		emuOpts = append(emuOpts, emulator.WithEraseDelay(cfg.Emulator.EraseDelay))
	}
	dev, err := emulator.New(emuOpts...)
	if err != nil {
		return nil, err
	}
	dev.OnJump(func(addr uint32) {
		_, _ = fmt.Printf("Jump to 0x%08X\n", addr)
	})

	image := cfg.Emulator.FlashImage
	if opts.image != "" {
		image = opts.image
	}
	if image != "" {
		data, err := os.ReadFile(image)
		if err != nil {
			return nil, fmt.Errorf("failed to read flash image: %w", err)
		}
		if err := dev.LoadFlash(data); err != nil {
			return nil, err
		}
	}
	return dev, nil
}

// openPort serves a real serial port when one is named and a pseudo
// terminal otherwise.
func openPort(cfg *config.Config, opts *options) (*uart.Port, func(), error) {
	name := opts.port
	if name == "" {
		name = cfg.Serial.Port
	}
	if name != "" {
		port, err := uart.Open(name, cfg.UART())
		if err != nil {
			return nil, nil, err
		}
		return port, func() { _ = port.Close() }, nil
	}

	pair, err := pty.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("no -port given: %w", err)
	}
	port, err := uart.NewPort(uart.NewStreamPort(pair.Master), pair.Path, cfg.UART())
	if err != nil {
		_ = pair.Close()
		return nil, nil, err
	}
	return port, func() {
		_ = port.Close()
		_ = pair.Close()
	}, nil
}
