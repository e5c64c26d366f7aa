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

// Command serialboot talks to the serial bootloader: it lists candidate
// ports, reads the protection level, erases, writes and programs memory
// and starts the application.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	serialboot "github.com/ZaparooProject/go-serialboot"
	"github.com/ZaparooProject/go-serialboot/internal/config"
)

type options struct {
	configPath string
	port       string
	baud       int
	debug      bool
	bootPins   bool
	sessionLog bool
}

// Package-level flag variables
var (
	flagConfig     string
	flagPort       string
	flagBaud       int
	flagDebug      bool
	flagBootPins   bool
	flagSessionLog bool
)

func init() {
	flag.StringVar(&flagConfig, "config", "", "YAML configuration file")
	flag.StringVar(&flagPort, "port", "", "Serial port (auto-detect if empty)")
	flag.IntVar(&flagBaud, "baud", 0, "Baud rate (configuration value if 0)")
	flag.BoolVar(&flagDebug, "debug", false, "Enable debug output")
	flag.BoolVar(&flagBootPins, "boot-pins", false, "Enter the bootloader through the configured GPIO pins first")
	flag.BoolVar(&flagSessionLog, "session-log", false, "Write a session log file in the working directory")
	flag.Usage = usage
}

func usage() {
	out := flag.CommandLine.Output()
	_, _ = fmt.Fprintf(out, "Usage: %s [flags] <command> [args]\n\nCommands:\n", os.Args[0])
	for _, c := range commands {
		_, _ = fmt.Fprintf(out, "  %-28s %s\n", c.usage, c.help)
	}
	_, _ = fmt.Fprintln(out, "\nFlags:")
	flag.PrintDefaults()
}

func parseOptions() *options {
	return &options{
		configPath: flagConfig,
		port:       flagPort,
		baud:       flagBaud,
		debug:      flagDebug,
		bootPins:   flagBootPins,
		sessionLog: flagSessionLog,
	}
}

// loadConfig merges the file, environment and flags.
func loadConfig(opts *options) (*config.Config, io.Closer, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	if opts.port != "" {
		cfg.Serial.Port = opts.port
	}
	if opts.baud > 0 {
		cfg.Serial.BaudRate = opts.baud
	}
	closer, err := cfg.Logger.Apply(serialboot.Logger())
	if err != nil {
		return nil, nil, err
	}
	if opts.debug {
		serialboot.SetDebugEnabled(true)
	}
	return cfg, closer, nil
}

func main() {
	flag.Parse()
	os.Exit(mainWithExitCode(flag.Args()))
}

func mainWithExitCode(args []string) int {
	if len(args) == 0 {
		flag.Usage()
		return 2
	}
	cmd, err := findCommand(args[0])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		return 2
	}

	opts := parseOptions()
	cfg, closer, err := loadConfig(opts)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = closer.Close() }()

	if opts.sessionLog {
		path, err := serialboot.InitSessionLog(serialboot.SessionLogOptions{})
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Warning: session log disabled: %v\n", err)
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "Session log: %s\n", path)
			defer func() { _ = serialboot.CloseSessionLog() }()
		}
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		_, _ = fmt.Print("\nShutting down gracefully...\n")
		cancel()
	}()

	env := &session{cfg: cfg, opts: opts, out: os.Stdout}
	if err := cmd.run(ctx, env, args[1:]); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
