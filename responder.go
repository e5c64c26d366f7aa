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
	"context"

	"github.com/sirupsen/logrus"
)

// Responder writes handshake replies. Sends are fire-and-forget: a
// transmit failure is logged and never reaches the command handlers.
type Responder struct {
	tx Transmitter
}

// NewResponder returns a responder writing to tx.
func NewResponder(tx Transmitter) *Responder {
	return &Responder{tx: tx}
}

// Ack sends [AckMarker, followLen].
func (r *Responder) Ack(ctx context.Context, followLen byte) {
	r.send(ctx, "ack", []byte{AckMarker, followLen})
}

// Nack sends [NackMarker].
func (r *Responder) Nack(ctx context.Context) {
	r.send(ctx, "nack", []byte{NackMarker})
}

// Status sends a single status byte.
func (r *Responder) Status(ctx context.Context, s Status) {
	r.send(ctx, "status", []byte{byte(s)})
}

func (r *Responder) send(ctx context.Context, what string, data []byte) {
	if err := r.tx.Transmit(ctx, data); err != nil {
		logger.WithFields(logrus.Fields{"reply": what, "bytes": FormatHex(data)}).
			WithError(err).Warn("transmit failed")
	}
}
