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
	"errors"
	"fmt"
	"strings"
	"time"
)

// TraceDirection indicates the direction of wire data
type TraceDirection string

const (
	// TraceTX indicates bytes sent to the device
	TraceTX TraceDirection = "TX"
	// TraceRX indicates bytes received from the device
	TraceRX TraceDirection = "RX"
)

// TraceEntry is one wire-level exchange step.
type TraceEntry struct {
	Timestamp time.Time
	Direction TraceDirection
	Note      string
	Data      []byte
}

func (e TraceEntry) String() string {
	stamp := e.Timestamp.Format("15:04:05.000")
	if e.Note != "" {
		return fmt.Sprintf("[%s] %s: %s (%s)", stamp, e.Direction, FormatHex(e.Data), e.Note)
	}
	return fmt.Sprintf("[%s] %s: %s", stamp, e.Direction, FormatHex(e.Data))
}

// TraceableError wraps a host-side failure with the bytes exchanged for the
// command that failed:
//
//	var te *serialboot.TraceableError
//	if errors.As(err, &te) {
//	    log.Printf("Wire trace:\n%s", te.FormatTrace())
//	}
type TraceableError struct {
	Err   error
	Port  string
	Trace []TraceEntry
}

func (e *TraceableError) Error() string {
	return e.Err.Error()
}

func (e *TraceableError) Unwrap() error {
	return e.Err
}

// FormatTrace returns a human-readable trace log
func (e *TraceableError) FormatTrace() string {
	if len(e.Trace) == 0 {
		return fmt.Sprintf("[%s] (no trace data)", e.Port)
	}

	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "[%s] Wire trace (%d entries):\n", e.Port, len(e.Trace))
	for _, entry := range e.Trace {
		arrow := ">"
		if entry.Direction == TraceRX {
			arrow = "<"
		}
		if entry.Note != "" {
			_, _ = fmt.Fprintf(&sb, "  %s %s (%s)\n", arrow, FormatHex(entry.Data), entry.Note)
		} else {
			_, _ = fmt.Fprintf(&sb, "  %s %s\n", arrow, FormatHex(entry.Data))
		}
	}
	return sb.String()
}

// FormatHex formats bytes as space-separated hex, truncated after 32 bytes.
func FormatHex(data []byte) string {
	const maxShown = 32
	if len(data) == 0 {
		return "(empty)"
	}
	shown := data
	if len(shown) > maxShown {
		shown = shown[:maxShown]
	}
	parts := make([]string, len(shown))
	for i, b := range shown {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	out := strings.Join(parts, " ")
	if len(data) > maxShown {
		out += fmt.Sprintf(" ... (%d bytes total)", len(data))
	}
	return out
}

// TraceBuffer collects the last few wire exchanges of a command.
type TraceBuffer struct {
	port    string
	entries []TraceEntry
	maxSize int
}

// NewTraceBuffer creates a trace buffer holding at most maxSize entries.
func NewTraceBuffer(port string, maxSize int) *TraceBuffer {
	if maxSize <= 0 {
		maxSize = 16
	}
	return &TraceBuffer{
		port:    port,
		entries: make([]TraceEntry, 0, maxSize),
		maxSize: maxSize,
	}
}

// RecordTX records bytes sent to the device
func (tb *TraceBuffer) RecordTX(data []byte, note string) {
	tb.record(TraceTX, data, note)
}

// RecordRX records bytes received from the device
func (tb *TraceBuffer) RecordRX(data []byte, note string) {
	tb.record(TraceRX, data, note)
}

func (tb *TraceBuffer) record(dir TraceDirection, data []byte, note string) {
	entry := TraceEntry{
		Timestamp: time.Now(),
		Direction: dir,
		Note:      note,
		Data:      append([]byte(nil), data...),
	}
	if len(tb.entries) >= tb.maxSize {
		copy(tb.entries, tb.entries[1:])
		tb.entries[len(tb.entries)-1] = entry
		return
	}
	tb.entries = append(tb.entries, entry)
}

// Entries returns a copy of the recorded entries.
func (tb *TraceBuffer) Entries() []TraceEntry {
	return append([]TraceEntry(nil), tb.entries...)
}

// WrapError attaches the collected trace to err. Returns nil if err is nil.
func (tb *TraceBuffer) WrapError(err error) error {
	if err == nil {
		return nil
	}
	return &TraceableError{Err: err, Port: tb.port, Trace: tb.Entries()}
}

// Clear resets the trace buffer
func (tb *TraceBuffer) Clear() {
	tb.entries = tb.entries[:0]
}

// GetTrace extracts trace data from an error, returning nil if not present
func GetTrace(err error) *TraceableError {
	var te *TraceableError
	if errors.As(err, &te) {
		return te
	}
	return nil
}
