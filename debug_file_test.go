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
	"path/filepath"
	"regexp"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Session log state is package-global, so these tests do not run in parallel.

func TestInitSessionLog_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(func() { _ = CloseSessionLog() })

	path, err := InitSessionLog(SessionLogOptions{Dir: dir})
	require.NoError(t, err)

	assert.Equal(t, path, GetSessionLogPath())
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Regexp(t, regexp.MustCompile(`^serialboot_\d{8}_\d{6}\.log$`), filepath.Base(path))
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestSessionLog_RecordsEntriesAndFooter(t *testing.T) {
	dir := t.TempDir()
	prevLevel := Logger().GetLevel()
	Logger().SetLevel(logrus.DebugLevel)
	t.Cleanup(func() {
		_ = CloseSessionLog()
		Logger().SetLevel(prevLevel)
	})

	path, err := InitSessionLog(SessionLogOptions{Dir: dir, MaxSizeMB: 1})
	require.NoError(t, err)

	Logger().WithField("command", CmdEraseFlash).Debug("flash erase status")
	require.NoError(t, CloseSessionLog())

	content, err := os.ReadFile(path) //nolint:gosec // path is from InitSessionLog
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "=== serialboot Session Log ===")
	assert.Contains(t, text, "PID:")
	assert.Contains(t, text, "flash erase status")
	assert.Contains(t, text, "command=EraseFlash")
	assert.Contains(t, text, "=== Session ended ===")
	assert.Empty(t, GetSessionLogPath())
}

func TestCloseSessionLog_RestoresHooks(t *testing.T) {
	before := len(Logger().Hooks[logrus.InfoLevel])

	_, err := InitSessionLog(SessionLogOptions{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Len(t, Logger().Hooks[logrus.InfoLevel], before+1)

	require.NoError(t, CloseSessionLog())
	assert.Len(t, Logger().Hooks[logrus.InfoLevel], before)
	require.NoError(t, CloseSessionLog(), "closing twice is a no-op")
}
