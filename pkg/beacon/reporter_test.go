// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beacon

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestReporter_DefaultInterval(t *testing.T) {
	r := NewReporter(initialState(), nil, 0, nil, nil)
	assert.Equal(t, 3*time.Second, r.Interval())
}

func TestReporter_FrequencyChangeThenIdle(t *testing.T) {
	state := initialState()
	sink := newRecordingSink()
	r := NewReporter(state, sink, time.Second, nil, nil)

	state.SetFrequency("0504030201")

	rep, ok := r.Tick(context.Background())
	require.True(t, ok)
	assert.Equal(t, uint32(0xDEADBEEF), rep.DeviceID)
	assert.Equal(t, "test-beacon", rep.DeviceName)
	assert.Equal(t, "0504030201", rep.Frequency)
	assert.Equal(t, "0000", rep.Mode)
	assert.NotEqual(t, uuid.Nil, rep.ID)

	_, ok = r.Tick(context.Background())
	assert.False(t, ok, "no new frames, no report")
	assert.Equal(t, 1, sink.count())
}

func TestReporter_ReportIffChanged(t *testing.T) {
	tests := []struct {
		name   string
		freq   string
		mode   string
		report bool
	}{
		{"unchanged", "0000000000", "0000", false},
		{"frequency", "0014074000", "0000", true},
		{"mode", "0000000000", "0301", true},
		{"both", "0014074000", "0301", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := initialState()
			sink := newRecordingSink()
			r := NewReporter(state, sink, time.Second, nil, nil)

			state.SetFrequency(tt.freq)
			state.SetMode(tt.mode)

			_, ok := r.Tick(context.Background())
			assert.Equal(t, tt.report, ok)
			if tt.report {
				assert.Equal(t, 1, sink.count())
			} else {
				assert.Equal(t, 0, sink.count())
			}
			assert.Equal(t, state.Current(), state.LastReported())
		})
	}
}

func TestReporter_CoalescesIntermediateWrites(t *testing.T) {
	state := initialState()
	sink := newRecordingSink()
	r := NewReporter(state, sink, time.Second, nil, nil)

	state.SetFrequency("0007000000")
	state.SetFrequency("0007100000")
	state.SetFrequency("0007125000")

	rep, ok := r.Tick(context.Background())
	require.True(t, ok)
	assert.Equal(t, "0007125000", rep.Frequency)
	assert.Equal(t, 1, sink.count())
}

func TestReporter_NilSinkStillCommits(t *testing.T) {
	state := initialState()
	r := NewReporter(state, nil, time.Second, nil, nil)

	state.SetMode("0301")
	_, ok := r.Tick(context.Background())
	require.True(t, ok)
	assert.False(t, state.Changed())
}

func TestReporter_LogsAndCounts(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	metrics := NewMetrics(prometheus.NewRegistry())

	state := initialState()
	r := NewReporter(state, nil, time.Second, zap.New(core), metrics)

	state.SetFrequency("0504030201")
	r.Tick(context.Background())
	r.Tick(context.Background())

	entries := logs.FilterMessage("reported to collector").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "0504030201", entries[0].ContextMap()["freq"])
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ReportsTotal))
	assert.Greater(t, testutil.ToFloat64(metrics.LastReportSecond), float64(0))
}

func TestReporter_RunTicksUntilCancelled(t *testing.T) {
	state := initialState()
	sink := newRecordingSink()
	r := NewReporter(state, sink, 20*time.Millisecond, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	state.SetFrequency("0504030201")
	select {
	case rep := <-sink.ch:
		assert.Equal(t, "0504030201", rep.Frequency)
	case <-time.After(2 * time.Second):
		t.Fatal("no report within 2s")
	}

	state.SetMode("bbaa")
	select {
	case rep := <-sink.ch:
		assert.Equal(t, "bbaa", rep.Mode)
	case <-time.After(2 * time.Second):
		t.Fatal("no second report within 2s")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNextDeadline(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	interval := 3 * time.Second

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"on schedule", base.Add(100 * time.Millisecond), base.Add(3 * time.Second)},
		{"late work does not shift schedule", base.Add(2900 * time.Millisecond), base.Add(3 * time.Second)},
		{"exactly at deadline", base.Add(3 * time.Second), base.Add(6 * time.Second)},
		{"missed one deadline", base.Add(4 * time.Second), base.Add(6 * time.Second)},
		{"missed several deadlines", base.Add(10 * time.Second), base.Add(12 * time.Second)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextDeadline(base, interval, tt.now))
		})
	}
}
