// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beacon

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Report is one state change handed to the uplink
type Report struct {
	ID         uuid.UUID
	DeviceID   uint32
	DeviceName string
	Frequency  string
	Mode       string
	Time       time.Time
}

// Sink receives reports. Send must return without waiting on the network;
// delivery outcome is never reported back to the caller.
type Sink interface {
	Send(ctx context.Context, r Report)
}

// SinkFunc adapts a function to a Sink
type SinkFunc func(ctx context.Context, r Report)

func (f SinkFunc) Send(ctx context.Context, r Report) {
	f(ctx, r)
}
