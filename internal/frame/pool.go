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

package frame

import "sync"

// BufferPool manages reusable byte buffers for reply and frame reads.
type BufferPool struct {
	// Small buffers for ACK, NACK and status replies
	smallPool sync.Pool
	// Frame buffers sized for the largest frame the length byte can declare
	framePool sync.Pool
}

const (
	SmallBufferSize = 16
	FrameBufferSize = MaxFrameLength
)

var defaultPool = NewBufferPool()

// NewBufferPool creates a new buffer pool
func NewBufferPool() *BufferPool {
	return &BufferPool{
		smallPool: sync.Pool{
			New: func() any {
				buf := make([]byte, SmallBufferSize)
				return &buf
			},
		},
		framePool: sync.Pool{
			New: func() any {
				buf := make([]byte, FrameBufferSize)
				return &buf
			},
		},
	}
}

// GetBuffer returns a buffer of at least the requested size. Sizes above
// FrameBufferSize are allocated directly.
func (p *BufferPool) GetBuffer(size int) []byte {
	switch {
	case size <= SmallBufferSize:
		bufPtr, ok := p.smallPool.Get().(*[]byte)
		if !ok {
			return make([]byte, size)
		}
		return (*bufPtr)[:size]
	case size <= FrameBufferSize:
		bufPtr, ok := p.framePool.Get().(*[]byte)
		if !ok {
			return make([]byte, size)
		}
		return (*bufPtr)[:size]
	default:
		return make([]byte, size)
	}
}

// PutBuffer zeroes a buffer and returns it to the pool it came from.
func (p *BufferPool) PutBuffer(buf []byte) {
	if buf == nil {
		return
	}

	full := buf[:cap(buf)]
	clear(full)

	switch cap(buf) {
	case SmallBufferSize:
		p.smallPool.Put(&full)
	case FrameBufferSize:
		p.framePool.Put(&full)
	default:
		// directly allocated, let GC handle it
	}
}

// GetFrameBuffer returns a buffer large enough for any frame.
func (p *BufferPool) GetFrameBuffer() []byte {
	return p.GetBuffer(FrameBufferSize)
}

func GetBuffer(size int) []byte {
	return defaultPool.GetBuffer(size)
}

func PutBuffer(buf []byte) {
	defaultPool.PutBuffer(buf)
}

func GetFrameBuffer() []byte {
	return defaultPool.GetFrameBuffer()
}
