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

// Package detection finds serial adapters that may have a board in
// bootloader mode attached, optionally confirming each one with a
// protection-level query.
package detection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	serialboot "github.com/ZaparooProject/go-serialboot"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial/enumerator"
)

// Mode controls how much traffic detection may generate.
type Mode int

const (
	// Passive lists known adapters without opening them.
	Passive Mode = iota
	// Safe probes known adapters only.
	Safe
	// Full probes every serial port.
	Full
)

func (m Mode) String() string {
	switch m {
	case Passive:
		return "passive"
	case Safe:
		return "safe"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts the names printed by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "passive":
		return Passive, nil
	case "", "safe":
		return Safe, nil
	case "full":
		return Full, nil
	default:
		return Passive, fmt.Errorf("unknown detection mode %q: %w", s, serialboot.ErrInvalidParameter)
	}
}

// Confidence is how sure detection is that a bootloader is listening.
type Confidence int

const (
	Low Confidence = iota
	Medium
	High
)

// DeviceInfo describes one candidate port.
type DeviceInfo struct {
	// Metadata holds vidpid, manufacturer, product, serial and, after a
	// successful probe, rdp.
	Metadata   map[string]string
	Path       string
	Name       string
	Confidence Confidence
}

func (d DeviceInfo) String() string {
	confidence := "unknown"
	switch d.Confidence {
	case Low:
		confidence = "low"
	case Medium:
		confidence = "medium"
	case High:
		confidence = "high"
	}
	return fmt.Sprintf("%s (confidence: %s)", d.Path, confidence)
}

// Options configure a detection run.
type Options struct {
	Blocklist   Blocklist
	IgnorePaths []string
	CacheTTL    time.Duration
	// ProbeTimeout bounds each probe.
	ProbeTimeout time.Duration
	Mode         Mode
	EnableCache  bool
}

// DefaultOptions probes known adapters and caches the result briefly.
func DefaultOptions() Options {
	return Options{
		Mode:         Safe,
		ProbeTimeout: 2 * time.Second,
		Blocklist:    DefaultBlocklist(),
		EnableCache:  true,
		CacheTTL:     30 * time.Second,
	}
}

var (
	ErrNoDevicesFound   = errors.New("no bootloader ports found")
	ErrDetectionTimeout = errors.New("detection timeout")
)

// PortLister enumerates serial ports.
type PortLister func() ([]*enumerator.PortDetails, error)

// Prober checks whether a bootloader answers on path and returns its read
// protection level.
type Prober func(ctx context.Context, path string) (byte, error)

// Detector finds bootloader ports.
type Detector struct {
	list  PortLister
	probe Prober
}

// New returns a detector backed by the OS port enumerator and the host
// client probe.
func New() *Detector {
	return &Detector{list: enumerator.GetDetailedPortsList, probe: probeBootloader}
}

// NewWith returns a detector with custom enumeration and probing.
func NewWith(list PortLister, probe Prober) *Detector {
	return &Detector{list: list, probe: probe}
}

// Detect runs detection with the default detector.
func Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	return New().Detect(ctx, opts)
}

// Detect lists candidate ports, most confident first in enumeration order.
func (d *Detector) Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		defaults := DefaultOptions()
		opts = &defaults
	}
	if opts.EnableCache {
		if cached, ok := cache.get(opts.Mode, opts.CacheTTL); ok {
			if filtered := filterDevices(cached, opts); len(filtered) > 0 {
				return filtered, nil
			}
		}
	}

	ports, err := d.list()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	var devices []DeviceInfo
	for _, port := range ports {
		if err := ctx.Err(); err != nil {
			return nil, ErrDetectionTimeout
		}
		if device, ok := d.processPort(ctx, port, opts); ok {
			devices = append(devices, device)
		}
	}

	if opts.EnableCache {
		cache.put(opts.Mode, devices)
	}
	if len(devices) == 0 {
		return nil, ErrNoDevicesFound
	}
	return devices, nil
}

func (d *Detector) processPort(ctx context.Context, port *enumerator.PortDetails, opts *Options) (DeviceInfo, bool) {
	if opts.Blocklist.Blocks(port.VID, port.PID) || IsPathIgnored(port.Name, opts.IgnorePaths) {
		return DeviceInfo{}, false
	}

	known := isKnownAdapter(port)
	shouldProbe := false
	switch opts.Mode {
	case Passive:
		if !known {
			return DeviceInfo{}, false
		}
	case Safe:
		if !known {
			return DeviceInfo{}, false
		}
		shouldProbe = true
	case Full:
		shouldProbe = true
	}

	device := newDeviceInfo(port, known)
	if !shouldProbe {
		return device, true
	}

	probeCtx, cancel := context.WithTimeout(ctx, opts.ProbeTimeout)
	defer cancel()
	level, err := d.probe(probeCtx, port.Name)
	if err != nil {
		serialboot.Logger().WithFields(logrus.Fields{"port": port.Name}).WithError(err).Debug("probe failed")
		return DeviceInfo{}, false
	}
	device.Confidence = High
	device.Metadata["rdp"] = fmt.Sprintf("0x%02X", level)
	return device, true
}

func newDeviceInfo(port *enumerator.PortDetails, known bool) DeviceInfo {
	device := DeviceInfo{
		Path:       port.Name,
		Name:       port.Product,
		Confidence: Low,
		Metadata:   make(map[string]string),
	}
	if known {
		device.Confidence = Medium
	}
	if id := FormatVIDPID(port.VID, port.PID); id != "" {
		device.Metadata["vidpid"] = id
	}
	if port.Product != "" {
		device.Metadata["product"] = port.Product
	}
	if port.SerialNumber != "" {
		device.Metadata["serial"] = port.SerialNumber
	}
	return device
}

// knownAdapters are USB serial bridges commonly wired to STM32 USART1.
var knownAdapters = []string{
	"0483:374B", // ST-LINK/V2-1 virtual COM port
	"0483:374E", // ST-LINK/V3
	"0483:374F", // ST-LINK/V3
	"0483:3752", // ST-LINK/V2-1 without mass storage
	"0483:3753", // ST-LINK/V3 dual VCP
	"0403:6001", // FTDI FT232R
	"0403:6014", // FTDI FT232H
	"0403:6015", // FTDI FT-X
	"10C4:EA60", // Silicon Labs CP210x
	"1A86:7523", // QinHeng CH340
	"067B:2303", // Prolific PL2303
}

func isKnownAdapter(port *enumerator.PortDetails) bool {
	if !port.IsUSB {
		return false
	}
	id := FormatVIDPID(port.VID, port.PID)
	for _, known := range knownAdapters {
		if id == known {
			return true
		}
	}
	return strings.Contains(strings.ToLower(port.Product), "stlink") ||
		strings.Contains(strings.ToLower(port.Product), "st-link")
}

func filterDevices(devices []DeviceInfo, opts *Options) []DeviceInfo {
	var filtered []DeviceInfo
	for _, device := range devices {
		if IsPathIgnored(device.Path, opts.IgnorePaths) {
			continue
		}
		if vid, pid, ok := strings.Cut(device.Metadata["vidpid"], ":"); ok && opts.Blocklist.Blocks(vid, pid) {
			continue
		}
		filtered = append(filtered, device)
	}
	return filtered
}
