// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package beacon tracks a transceiver's frequency and mode from its CI-V
// traffic and reports changes to a remote collector.
//
// A Beacon runs two loops. The monitor reads chunks from a byte source and
// decodes them into a DeviceState. The reporter wakes on a fixed period,
// commits any change and hands one Report to a Sink. Only the state present
// at each tick is reported; intermediate changes are coalesced.
package beacon

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options configures a Beacon
type Options struct {
	// Source delivers serial chunks. It is closed on Stop.
	Source io.ReadCloser
	State  *DeviceState
	// Sink receives reports; nil runs without an uplink. A Sink that
	// implements io.Closer is closed after both loops exit.
	Sink     Sink
	Interval time.Duration
	Logger   *zap.Logger
	Metrics  *Metrics
	Hooks    Hooks
}

// Beacon supervises the monitor and reporter loops
type Beacon struct {
	source   io.ReadCloser
	state    *DeviceState
	sink     Sink
	monitor  *Monitor
	reporter *Reporter
	logger   *zap.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	group   *errgroup.Group

	closeSourceOnce sync.Once
	waitOnce        sync.Once
	waitErr         error
}

// New validates opts and wires the loops
func New(opts Options) (*Beacon, error) {
	if opts.Source == nil {
		return nil, errors.New("beacon: source required")
	}
	if opts.State == nil {
		return nil, errors.New("beacon: device state required")
	}
	if opts.Interval < 0 {
		return nil, errors.New("beacon: interval must be > 0")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	monitor := NewMonitor(opts.Source, opts.State, logger.Named("monitor"), opts.Metrics)
	monitor.hooks = opts.Hooks

	reporter := NewReporter(opts.State, opts.Sink, opts.Interval, logger.Named("reporter"), opts.Metrics)
	reporter.onReport = opts.Hooks.OnReport

	return &Beacon{
		source:   opts.Source,
		state:    opts.State,
		sink:     opts.Sink,
		monitor:  monitor,
		reporter: reporter,
		logger:   logger,
	}, nil
}

// State returns the device state the beacon maintains
func (b *Beacon) State() *DeviceState {
	return b.state
}

// Monitor returns the frame reader loop
func (b *Beacon) Monitor() *Monitor {
	return b.monitor
}

// Reporter returns the change reporter loop
func (b *Beacon) Reporter() *Reporter {
	return b.reporter
}

// Start launches both loops. It returns an error if called twice.
func (b *Beacon) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return errors.New("beacon: already started")
	}
	b.started = true

	ctx, b.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	b.group = g

	b.logger.Info("beacon started",
		zap.Uint32("device_id", b.state.ID()),
		zap.String("device_name", b.state.Name()),
		zap.Duration("interval", b.reporter.Interval()),
	)

	g.Go(func() error { return b.monitor.Run(gctx) })
	g.Go(func() error { return b.reporter.Run(gctx) })

	// Unblock a pending read once the loops are told to stop
	go func() {
		<-gctx.Done()
		b.closeSource()
	}()
	return nil
}

// Wait blocks until both loops have exited, closes the sink and returns
// the first loop error.
func (b *Beacon) Wait() error {
	b.mu.Lock()
	g := b.group
	b.mu.Unlock()
	if g == nil {
		return errors.New("beacon: not started")
	}

	b.waitOnce.Do(func() {
		b.waitErr = g.Wait()
		b.closeSource()
		if closer, ok := b.sink.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				b.logger.Warn("closing uplink", zap.Error(err))
			}
		}
		b.logger.Info("beacon stopped")
	})
	return b.waitErr
}

// Stop cancels both loops, releases the source and waits for shutdown
func (b *Beacon) Stop() error {
	b.mu.Lock()
	cancel := b.cancel
	b.mu.Unlock()
	if cancel == nil {
		return errors.New("beacon: not started")
	}
	cancel()
	b.closeSource()
	return b.Wait()
}

// Run starts the beacon and blocks until ctx is done or a loop fails
func (b *Beacon) Run(ctx context.Context) error {
	if err := b.Start(ctx); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- b.Wait() }()

	select {
	case <-ctx.Done():
		return b.Stop()
	case err := <-done:
		b.cancel()
		return err
	}
}

func (b *Beacon) closeSource() {
	b.closeSourceOnce.Do(func() {
		if err := b.source.Close(); err != nil {
			b.logger.Debug("closing source", zap.Error(err))
		}
	})
}
