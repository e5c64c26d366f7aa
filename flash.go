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

import "github.com/sirupsen/logrus"

// FlashLock controls the flash controller's write lock.
type FlashLock interface {
	Unlock()
	Lock()
}

// SectorEraser is the erase capability of the flash controller.
// Both calls block until the controller is idle again.
type SectorEraser interface {
	FlashLock
	EraseSectors(start, count, bank byte) Status
	MassErase(bank byte) Status
}

// ByteProgrammer is the byte-granularity programming capability.
type ByteProgrammer interface {
	FlashLock
	ProgramByte(addr uint32, value byte) Status
}

// withUnlocked runs op with the flash controller unlocked. The lock is
// restored on every exit path, including a panic in op.
func withUnlocked(fl FlashLock, op func() Status) Status {
	fl.Unlock()
	defer fl.Lock()
	return op()
}

// Eraser turns erase requests into controller erase operations.
type Eraser struct {
	flash SectorEraser
}

// NewEraser returns an eraser driving flash.
func NewEraser(flash SectorEraser) *Eraser {
	return &Eraser{flash: flash}
}

// Erase erases count sectors from start, or the whole bank when start is
// MassEraseSentinel. A count above MaxSectorCount is rejected before the
// sentinel is considered. The hardware status is returned unchanged.
func (e *Eraser) Erase(start, count byte) Status {
	if count > MaxSectorCount {
		logger.WithFields(logrus.Fields{"start": start, "count": count}).Debug("erase rejected: sector count")
		return StatusInvalidSector
	}

	if start == MassEraseSentinel {
		return withUnlocked(e.flash, func() Status {
			return e.flash.MassErase(FlashBank1)
		})
	}

	if start > LastSector {
		logger.WithField("start", start).Debug("erase rejected: sector out of range")
		return StatusInvalidSector
	}

	anchored := reanchorSectorStart(start)
	if anchored != start {
		logger.WithFields(logrus.Fields{"requested": start, "anchored": anchored}).Debug("erase start re-anchored")
	}
	return withUnlocked(e.flash, func() Status {
		return e.flash.EraseSectors(anchored, count, FlashBank1)
	})
}

// reanchorSectorStart moves a start sector in the upper half of the bank to
// its mirror position, 7-start. The count is left untouched. Deployed hosts
// depend on this mapping; it is not a range check.
func reanchorSectorStart(start byte) byte {
	remaining := LastSector - start
	if start > remaining {
		return remaining
	}
	return start
}

// Writer programs payloads one byte at a time.
type Writer struct {
	flash ByteProgrammer
}

// NewWriter returns a writer driving flash.
func NewWriter(flash ByteProgrammer) *Writer {
	return &Writer{flash: flash}
}

// Write programs data at addr, addr+1, ... inside a single unlock/lock
// bracket. Programming continues after a failed byte and the status of the
// last byte is returned; an empty payload returns StatusOK. The caller must
// have validated addr.
func (w *Writer) Write(data []byte, addr uint32) Status {
	return withUnlocked(w.flash, func() Status {
		status := StatusOK
		failed := 0
		for i, b := range data {
			status = w.flash.ProgramByte(addr+uint32(i), b) //nolint:gosec // i is bounded by the frame size
			if status != StatusOK {
				failed++
			}
		}
		if failed > 0 {
			logger.WithFields(logrus.Fields{
				"addr":   addr,
				"length": len(data),
				"failed": failed,
			}).Debug("write: some bytes failed to program")
		}
		return status
	})
}
