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

package serialboot

import (
	"os"

	"github.com/sirupsen/logrus"
)

// logger is shared by every package in the module.
var logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "15:04:05.000",
		FullTimestamp:   true,
	})
	l.SetLevel(logrus.InfoLevel)
	if os.Getenv("SERIALBOOT_DEBUG") != "" || os.Getenv("DEBUG") != "" {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// Logger returns the module logger so binaries can set its output,
// formatter and level.
func Logger() *logrus.Logger {
	return logger
}

// SetLogger replaces the module logger. A nil logger is ignored.
func SetLogger(l *logrus.Logger) {
	if l != nil {
		logger = l
	}
}

// SetDebugEnabled switches the module logger between debug and info level.
func SetDebugEnabled(enabled bool) {
	if enabled {
		logger.SetLevel(logrus.DebugLevel)
		return
	}
	logger.SetLevel(logrus.InfoLevel)
}

// Debugf logs a formatted debug message.
func Debugf(format string, args ...any) {
	logger.Debugf(format, args...)
}
