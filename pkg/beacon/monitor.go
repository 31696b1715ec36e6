// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beacon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/stationmaster/civbeacon/pkg/civ"
)

// ErrSourceClosed is returned by byte sources that will never deliver again
var ErrSourceClosed = errors.New("byte source closed")

// Brief pause before retrying a transient read error
const errorBackoff = 10 * time.Millisecond

// Hooks observe beacon activity. Every hook is optional and is called on
// the goroutine that produced the event, so hooks must not block.
type Hooks struct {
	OnFrame    func(f *civ.Frame)
	OnRejected func(raw []byte, err error)
	OnReport   func(r Report)
}

// Monitor reads chunks from a byte source, decodes each chunk as one frame
// and writes the result into the device state. Reads are never reassembled
// into frames; a read longer than the buffer is rejected whole.
type Monitor struct {
	src     io.Reader
	state   *DeviceState
	logger  *zap.Logger
	metrics *Metrics
	diag    *rate.Limiter
	hooks   Hooks

	readSize int
}

// NewMonitor creates a monitor over src. src should return from Read
// periodically (a read timeout) so cancellation is observed.
func NewMonitor(src io.Reader, state *DeviceState, logger *zap.Logger, metrics *Metrics) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		src:     src,
		state:   state,
		logger:  logger,
		metrics: metrics,
		diag:    rate.NewLimiter(rate.Every(time.Second), 5),

		readSize: civ.MaxReadSize,
	}
}

// Process decodes one chunk. Unrecognized lengths leave the state untouched
// and produce a diagnostic.
func (m *Monitor) Process(chunk []byte) (*civ.Frame, error) {
	f, err := civ.Decode(chunk)
	if err != nil {
		raw := make([]byte, len(chunk))
		copy(raw, chunk)
		m.reject(len(chunk), raw, err)
		return nil, err
	}

	m.state.Apply(f)
	m.metrics.frame(f.Kind())
	m.logger.Debug("frame decoded", zap.Stringer("kind", f.Kind()), zap.String("value", f.Value()))
	if m.hooks.OnFrame != nil {
		m.hooks.OnFrame(f)
	}
	return f, nil
}

func (m *Monitor) reject(length int, raw []byte, err error) {
	m.metrics.frame(civ.KindUnknown)
	if m.diag.Allow() {
		m.logger.Info("ignoring frame", zap.Int("length", length), zap.Error(err))
	}
	if m.hooks.OnRejected != nil {
		m.hooks.OnRejected(raw, err)
	}
}

// Run reads until ctx is done or the source is exhausted. io.EOF ends the
// loop cleanly; ErrSourceClosed is returned wrapped.
func (m *Monitor) Run(ctx context.Context) error {
	r := civ.NewReader(m.src, m.readSize)

	for {
		if ctx.Err() != nil {
			return nil
		}

		chunk, n, err := r.Next()
		switch {
		case n > 0 && chunk == nil:
			// Longer than the read buffer; nothing of it is decoded
			m.reject(n, nil, &civ.LengthError{Length: n})
		case n > 0:
			m.Process(chunk)
		}
		if err == nil {
			continue
		}

		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, io.EOF) {
			m.logger.Info("byte source exhausted")
			return nil
		}
		if errors.Is(err, ErrSourceClosed) {
			return fmt.Errorf("monitor: %w", err)
		}

		m.logger.Warn("read error", zap.Error(err))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(errorBackoff):
		}
	}
}
