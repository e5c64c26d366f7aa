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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SessionLogOptions controls rotation of the session log.
type SessionLogOptions struct {
	// Dir is where the log is created. Empty means the working directory.
	Dir        string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Session log state
var (
	sessionLog       *lumberjack.Logger
	sessionLogPath   string
	sessionPrevHooks logrus.LevelHooks
)

// sessionHook copies every entry the module logger emits into the session log.
type sessionHook struct {
	w         io.Writer
	formatter logrus.Formatter
}

func (*sessionHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *sessionHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return fmt.Errorf("format session log entry: %w", err)
	}
	if _, err := h.w.Write(line); err != nil {
		return fmt.Errorf("write session log entry: %w", err)
	}
	return nil
}

// InitSessionLog opens a rotating session log named
// serialboot_YYYYMMDD_HHMMSS.log and mirrors the module logger into it.
// Returns the log file path for display to the user.
func InitSessionLog(opts SessionLogOptions) (string, error) {
	if sessionLog != nil {
		if err := CloseSessionLog(); err != nil {
			return "", err
		}
	}

	filename := fmt.Sprintf("serialboot_%s.log", time.Now().Format("20060102_150405"))
	path := filepath.Join(opts.Dir, filename)
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o750); err != nil {
			return "", fmt.Errorf("failed to create session log directory: %w", err)
		}
	}

	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
		LocalTime:  true,
	}
	if err := writeSessionHeader(lj); err != nil {
		_ = lj.Close()
		return "", fmt.Errorf("failed to create session log: %w", err)
	}

	hooks := make(logrus.LevelHooks)
	for level, hs := range logger.Hooks {
		hooks[level] = append(hooks[level], hs...)
	}
	hooks.Add(&sessionHook{
		w: lj,
		formatter: &logrus.TextFormatter{
			DisableColors:   true,
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		},
	})
	sessionPrevHooks = logger.ReplaceHooks(hooks)
	sessionLog = lj
	sessionLogPath = path
	return path, nil
}

// CloseSessionLog detaches and closes the current session log.
func CloseSessionLog() error {
	if sessionLog == nil {
		return nil
	}

	logger.ReplaceHooks(sessionPrevHooks)
	_, _ = fmt.Fprintf(sessionLog, "\n%s === Session ended ===\n", time.Now().Format("15:04:05.000"))
	err := sessionLog.Close()
	sessionLog = nil
	sessionLogPath = ""
	sessionPrevHooks = nil
	if err != nil {
		return fmt.Errorf("failed to close session log: %w", err)
	}
	return nil
}

// GetSessionLogPath returns the current session log file path.
func GetSessionLogPath() string {
	return sessionLogPath
}

func writeSessionHeader(w io.Writer) error {
	var sb strings.Builder
	_, _ = sb.WriteString("=== serialboot Session Log ===\n")
	_, _ = fmt.Fprintf(&sb, "Started: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&sb, "PID: %d\n", os.Getpid())
	_, _ = fmt.Fprintf(&sb, "OS: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	_, _ = fmt.Fprintf(&sb, "Go Version: %s\n", runtime.Version())
	if exe, err := os.Executable(); err == nil {
		_, _ = fmt.Fprintf(&sb, "Executable: %s\n", exe)
	}
	_, _ = fmt.Fprintf(&sb, "Command Line: %s\n", strings.Join(os.Args, " "))
	_, _ = sb.WriteString("==============================\n\n")
	_, err := io.WriteString(w, sb.String())
	return err
}
