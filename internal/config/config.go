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

// Package config loads the YAML configuration shared by the serialboot
// binaries. Every key can be overridden from the environment with the
// SERIALBOOT_ prefix, dots replaced by underscores.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	serialboot "github.com/ZaparooProject/go-serialboot"
	"github.com/ZaparooProject/go-serialboot/transport/uart"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SERIALBOOT"

// Config is the root of the configuration file.
type Config struct {
	Serial   SerialConfig   `mapstructure:"serial"`
	Memory   MemoryConfig   `mapstructure:"memory"`
	Checksum string         `mapstructure:"checksum"`
	Jump     JumpConfig     `mapstructure:"jump"`
	Host     HostConfig     `mapstructure:"host"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Pins     PinsConfig     `mapstructure:"pins"`
	Emulator EmulatorConfig `mapstructure:"emulator"`
}

// SerialConfig selects and tunes the serial line.
type SerialConfig struct {
	Port         string        `mapstructure:"port"`
	BaudRate     int           `mapstructure:"baudRate"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	FrameTimeout time.Duration `mapstructure:"frameTimeout"`
}

// MemoryConfig overrides the code and RAM regions, closed intervals.
type MemoryConfig struct {
	CodeLow  uint32 `mapstructure:"codeLow"`
	CodeHigh uint32 `mapstructure:"codeHigh"`
	RAMLow   uint32 `mapstructure:"ramLow"`
	RAMHigh  uint32 `mapstructure:"ramHigh"`
}

// JumpConfig controls the jump handler.
type JumpConfig struct {
	// StatusOnInvalid sends ADDR_INVALID after the ACK instead of staying
	// silent.
	StatusOnInvalid bool `mapstructure:"statusOnInvalid"`
}

// HostConfig tunes the host-side client.
type HostConfig struct {
	AckTimeout time.Duration `mapstructure:"ackTimeout"`
	Retries    int           `mapstructure:"retries"`
	TraceSize  int           `mapstructure:"traceSize"`
}

// PinsConfig names the GPIO lines wired to BOOT0 and NRST. Empty names
// disable pin control.
type PinsConfig struct {
	Boot0      string        `mapstructure:"boot0"`
	Reset      string        `mapstructure:"reset"`
	ResetPulse time.Duration `mapstructure:"resetPulse"`
	Settle     time.Duration `mapstructure:"settle"`
}

// EmulatorConfig configures bootemu.
type EmulatorConfig struct {
	FlashImage string        `mapstructure:"flashImage"`
	OptionWord uint32        `mapstructure:"optionWord"`
	RAMSize    int           `mapstructure:"ramSize"`
	EraseDelay time.Duration `mapstructure:"eraseDelay"`
	// LockTimeout arms deadlock reporting in deadlock builds.
	LockTimeout time.Duration `mapstructure:"lockTimeout"`
}

func setDefaults(v *viper.Viper) {
	serial := uart.DefaultConfig()
	v.SetDefault("serial.port", "")
	v.SetDefault("serial.baudRate", serial.BaudRate)
	v.SetDefault("serial.readTimeout", serial.ReadTimeout)
	v.SetDefault("serial.frameTimeout", serial.FrameTimeout)

	mem := serialboot.DefaultMemoryMap()
	v.SetDefault("memory.codeLow", mem.Code.Low)
	v.SetDefault("memory.codeHigh", mem.Code.High)
	v.SetDefault("memory.ramLow", mem.RAM.Low)
	v.SetDefault("memory.ramHigh", mem.RAM.High)

	v.SetDefault("checksum", serialboot.ChecksumSTM32)
	v.SetDefault("jump.statusOnInvalid", false)

	v.SetDefault("host.ackTimeout", time.Second)
	v.SetDefault("host.retries", serialboot.HandshakeRetries)
	v.SetDefault("host.traceSize", 16)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "text")
	v.SetDefault("logger.filePath", "")
	v.SetDefault("logger.maxSizeMB", 10)
	v.SetDefault("logger.maxBackups", 3)
	v.SetDefault("logger.maxAgeDays", 28)
	v.SetDefault("logger.compress", false)
	v.SetDefault("logger.enableConsole", true)

	v.SetDefault("pins.boot0", "")
	v.SetDefault("pins.reset", "")
	v.SetDefault("pins.resetPulse", 20*time.Millisecond)
	v.SetDefault("pins.settle", 50*time.Millisecond)

	v.SetDefault("emulator.flashImage", "")
	v.SetDefault("emulator.optionWord", uint32(0x0FFFAAED))
	v.SetDefault("emulator.ramSize", 0)
	v.SetDefault("emulator.eraseDelay", time.Duration(0))
	v.SetDefault("emulator.lockTimeout", time.Duration(0))
}

// Load reads configPath, applies environment overrides and validates the
// result. An empty path loads defaults and environment only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration Load produces with no file and no
// environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	// Defaults always decode.
	_ = v.Unmarshal(cfg)
	return cfg
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	if c.Serial.BaudRate <= 0 {
		errs = append(errs, fmt.Errorf("serial.baudRate must be positive, got %d", c.Serial.BaudRate))
	}
	if err := c.MemoryMap().Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := serialboot.NewAccumulator(c.Checksum); err != nil {
		errs = append(errs, err)
	}
	if c.Host.Retries < 0 {
		errs = append(errs, fmt.Errorf("host.retries must not be negative, got %d", c.Host.Retries))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// MemoryMap returns the configured address regions.
func (c *Config) MemoryMap() serialboot.MemoryMap {
	return serialboot.MemoryMap{
		Code: serialboot.Region{Low: c.Memory.CodeLow, High: c.Memory.CodeHigh},
		RAM:  serialboot.Region{Low: c.Memory.RAMLow, High: c.Memory.RAMHigh},
	}
}

// UART returns the serial line settings.
func (c *Config) UART() uart.Config {
	return uart.Config{
		BaudRate:     c.Serial.BaudRate,
		ReadTimeout:  c.Serial.ReadTimeout,
		FrameTimeout: c.Serial.FrameTimeout,
	}
}

// Accumulator builds the configured checksum unit.
func (c *Config) Accumulator() (serialboot.Accumulator, error) {
	return serialboot.NewAccumulator(c.Checksum)
}

// BootloaderOptions translates the device-side settings.
func (c *Config) BootloaderOptions() ([]serialboot.Option, error) {
	acc, err := c.Accumulator()
	if err != nil {
		return nil, err
	}
	return []serialboot.Option{
		serialboot.WithAccumulator(acc),
		serialboot.WithMemoryMap(c.MemoryMap()),
		serialboot.WithJumpStatusOnInvalid(c.Jump.StatusOnInvalid),
	}, nil
}

// RetryConfig returns the handshake retry policy with the configured
// attempt count.
func (c *Config) RetryConfig() *serialboot.RetryConfig {
	rc := serialboot.DefaultRetryConfig()
	rc.MaxAttempts = c.Host.Retries
	return rc
}
