// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beacon

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultInterval is the reporting period used when none is configured
const DefaultInterval = 3000 * time.Millisecond

// Reporter periodically compares the current radio state with the last
// reported state and emits at most one report per tick.
type Reporter struct {
	state    *DeviceState
	sink     Sink
	interval time.Duration
	logger   *zap.Logger
	metrics  *Metrics
	onReport func(Report)
}

// NewReporter creates a reporter. A nil sink commits and logs without sending.
func NewReporter(state *DeviceState, sink Sink, interval time.Duration, logger *zap.Logger, metrics *Metrics) *Reporter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{
		state:    state,
		sink:     sink,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
	}
}

// Interval returns the reporting period
func (r *Reporter) Interval() time.Duration {
	return r.interval
}

// Tick runs one reporting cycle. If frequency or mode changed since the
// last report, the new pair becomes the baseline and one report is sent.
func (r *Reporter) Tick(ctx context.Context) (Report, bool) {
	snap, changed := r.state.Commit()
	if !changed {
		return Report{}, false
	}

	rep := Report{
		ID:         uuid.New(),
		DeviceID:   r.state.ID(),
		DeviceName: r.state.Name(),
		Frequency:  snap.Frequency,
		Mode:       snap.Mode,
		Time:       time.Now(),
	}

	r.logger.Info("reported to collector",
		zap.Uint32("device_id", rep.DeviceID),
		zap.String("device_name", rep.DeviceName),
		zap.String("freq", rep.Frequency),
		zap.String("mode", rep.Mode),
	)
	r.metrics.report(rep.Time)

	if r.sink != nil {
		r.sink.Send(ctx, rep)
	}
	if r.onReport != nil {
		r.onReport(rep)
	}
	return rep, true
}

// Run ticks every interval until ctx is done. Deadlines are computed from
// the previous deadline, not from when the tick finished; deadlines that
// have already passed are skipped rather than fired back to back.
func (r *Reporter) Run(ctx context.Context) error {
	next := time.Now()
	timer := time.NewTimer(r.interval)
	defer timer.Stop()

	for {
		next = nextDeadline(next, r.interval, time.Now())
		timer.Reset(time.Until(next))

		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		r.Tick(ctx)
	}
}

// nextDeadline returns prev+interval, advanced by whole intervals until it
// is after now.
func nextDeadline(prev time.Time, interval time.Duration, now time.Time) time.Time {
	next := prev.Add(interval)
	if behind := now.Sub(next); behind >= 0 {
		next = next.Add((behind/interval + 1) * interval)
	}
	return next
}
