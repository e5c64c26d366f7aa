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

package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LoggerConfig selects level, format and optional rotating file output.
type LoggerConfig struct {
	Level         string `mapstructure:"level"`
	Format        string `mapstructure:"format"`
	FilePath      string `mapstructure:"filePath"`
	MaxSizeMB     int    `mapstructure:"maxSizeMB"`
	MaxBackups    int    `mapstructure:"maxBackups"`
	MaxAgeDays    int    `mapstructure:"maxAgeDays"`
	Compress      bool   `mapstructure:"compress"`
	EnableConsole bool   `mapstructure:"enableConsole"`
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Apply configures l. The returned closer releases the log file, if any.
func (c LoggerConfig) Apply(l *logrus.Logger) (io.Closer, error) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("logger.level: %w", err)
	}

	switch strings.ToLower(c.Format) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{TimestampFormat: "15:04:05.000", FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("logger.format: unknown format %q", c.Format)
	}
	l.SetLevel(level)

	if c.FilePath == "" {
		l.SetOutput(os.Stderr)
		return nopCloser{}, nil
	}

	file := &lumberjack.Logger{
		Filename:   c.FilePath,
		MaxSize:    c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAgeDays,
		Compress:   c.Compress,
	}
	if c.EnableConsole {
		l.SetOutput(io.MultiWriter(os.Stderr, file))
	} else {
		l.SetOutput(file)
	}
	return file, nil
}
