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
	"encoding/binary"
	"fmt"
)

// Frame layout: [N][command][payload][crc32 LE], where N+1 is the frame
// length and the checksum covers every byte before it.
const (
	ChecksumSize = 4
	// MinFrameSize is a length byte, a command byte and the checksum.
	MinFrameSize = 2 + ChecksumSize
	// MaxFrameSize is the largest frame an 8-bit length byte can describe.
	MaxFrameSize = 256
	// MaxWritePayload is the largest write the protocol declares.
	MaxWritePayload = 251

	writeHeaderSize = 5 // address + length byte
	writeDataOffset = 2 + writeHeaderSize
	// MaxWriteChunk is the largest write payload that fits in one frame.
	MaxWriteChunk = MaxFrameSize - writeDataOffset - ChecksumSize
)

// Command is a decoded bootloader command. The set of implementations is
// closed: ReportProtectionLevel, JumpToAddress, EraseFlash and WriteMemory.
type Command interface {
	ID() CommandID
	appendPayload(dst []byte) []byte
}

// ReportProtectionLevel asks for the read-out protection byte.
type ReportProtectionLevel struct{}

// JumpToAddress transfers execution to Address.
type JumpToAddress struct {
	Address uint32
}

// EraseFlash erases SectorCount sectors from StartSector, or the whole bank
// when StartSector is MassEraseSentinel.
type EraseFlash struct {
	StartSector byte
	SectorCount byte
}

// WriteMemory programs Data starting at Address. A decoded WriteMemory
// aliases the frame it came from.
type WriteMemory struct {
	Data    []byte
	Address uint32
}

func (ReportProtectionLevel) ID() CommandID { return CmdReportProtectionLevel }
func (JumpToAddress) ID() CommandID         { return CmdJumpToAddress }
func (EraseFlash) ID() CommandID            { return CmdEraseFlash }
func (WriteMemory) ID() CommandID           { return CmdWriteMemory }

func (ReportProtectionLevel) appendPayload(dst []byte) []byte { return dst }

func (c JumpToAddress) appendPayload(dst []byte) []byte {
	return binary.LittleEndian.AppendUint32(dst, c.Address)
}

func (c EraseFlash) appendPayload(dst []byte) []byte {
	return append(dst, c.StartSector, c.SectorCount)
}

func (c WriteMemory) appendPayload(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, c.Address)
	dst = append(dst, byte(len(c.Data)))
	return append(dst, c.Data...)
}

// SplitFrame returns the checksummed part of buf and the trailing checksum.
// Bytes past the declared length are ignored.
func SplitFrame(buf []byte) (body []byte, sum uint32, err error) {
	if len(buf) == 0 {
		return nil, 0, fmt.Errorf("empty buffer: %w", ErrMalformedFrame)
	}
	declared := int(buf[0]) + 1
	if declared < MinFrameSize {
		return nil, 0, fmt.Errorf("declared length %d below minimum %d: %w", declared, MinFrameSize, ErrMalformedFrame)
	}
	if len(buf) < declared {
		return nil, 0, fmt.Errorf("declared length %d but only %d bytes: %w", declared, len(buf), ErrMalformedFrame)
	}
	end := declared - ChecksumSize
	return buf[:end], binary.LittleEndian.Uint32(buf[end:declared]), nil
}

// DecodeCommand parses the checksummed body of a frame into a Command.
func DecodeCommand(body []byte) (Command, error) {
	if len(body) < 2 {
		return nil, fmt.Errorf("frame body of %d bytes: %w", len(body), ErrMalformedFrame)
	}
	id := CommandID(body[1])
	payload := body[2:]

	switch id {
	case CmdReportProtectionLevel:
		return ReportProtectionLevel{}, nil
	case CmdJumpToAddress:
		if len(payload) < 4 {
			return nil, shortPayload(id, len(payload), 4)
		}
		return JumpToAddress{Address: binary.LittleEndian.Uint32(payload)}, nil
	case CmdEraseFlash:
		if len(payload) < 2 {
			return nil, shortPayload(id, len(payload), 2)
		}
		return EraseFlash{StartSector: payload[0], SectorCount: payload[1]}, nil
	case CmdWriteMemory:
		if len(payload) < writeHeaderSize {
			return nil, shortPayload(id, len(payload), writeHeaderSize)
		}
		n := int(payload[4])
		if n > MaxWritePayload || len(payload)-writeHeaderSize < n {
			return nil, fmt.Errorf("write length %d does not fit frame: %w", n, ErrMalformedFrame)
		}
		return WriteMemory{
			Address: binary.LittleEndian.Uint32(payload),
			Data:    payload[writeHeaderSize : writeHeaderSize+n],
		}, nil
	default:
		return nil, fmt.Errorf("command 0x%02X: %w", byte(id), ErrUnknownCommand)
	}
}

func shortPayload(id CommandID, got, want int) error {
	return fmt.Errorf("%s payload is %d bytes, need %d: %w", id, got, want, ErrMalformedFrame)
}

// EncodeFrame builds the wire form of cmd, checksummed with acc.
func EncodeFrame(cmd Command, acc Accumulator) ([]byte, error) {
	if w, ok := cmd.(WriteMemory); ok && len(w.Data) > MaxWriteChunk {
		return nil, fmt.Errorf("write of %d bytes exceeds %d: %w", len(w.Data), MaxWriteChunk, ErrDataTooLarge)
	}

	buf := make([]byte, 2, MaxFrameSize)
	buf[1] = byte(cmd.ID())
	buf = cmd.appendPayload(buf)
	buf[0] = byte(len(buf) + ChecksumSize - 1)
	return binary.LittleEndian.AppendUint32(buf, Checksum(acc, buf)), nil
}
