// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beacon

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/stationmaster/civbeacon/pkg/civ"
)

func TestMonitor_ProcessFrequency(t *testing.T) {
	state := initialState()
	m := NewMonitor(nil, state, nil, nil)

	f, err := m.Process([]byte{0, 0, 0, 0, 0, 0x01, 0x02, 0x03, 0x04, 0x05, 0})
	require.NoError(t, err)
	assert.Equal(t, civ.KindFrequency, f.Kind())
	assert.Equal(t, "0504030201", state.Current().Frequency)
	assert.Equal(t, "0000", state.Current().Mode)
}

func TestMonitor_ProcessMode(t *testing.T) {
	state := initialState()
	m := NewMonitor(nil, state, nil, nil)

	_, err := m.Process([]byte{0, 0, 0, 0, 0, 0xAA, 0xBB, 0})
	require.NoError(t, err)
	assert.Equal(t, "bbaa", state.Current().Mode)
	assert.Equal(t, "0000000000", state.Current().Frequency)
}

func TestMonitor_ProcessUnknownLength(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	metrics := NewMetrics(prometheus.NewRegistry())
	state := initialState()
	m := NewMonitor(nil, state, zap.New(core), metrics)

	var rejected []byte
	m.hooks.OnRejected = func(raw []byte, err error) { rejected = raw }

	before := state.Current()
	f, err := m.Process([]byte{1, 2, 3, 4, 5})
	assert.Nil(t, f)

	var lengthErr *civ.LengthError
	require.ErrorAs(t, err, &lengthErr)
	assert.Equal(t, 5, lengthErr.Length)
	assert.Equal(t, before, state.Current())
	assert.False(t, state.Changed())

	entries := logs.FilterMessage("ignoring frame").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(5), entries[0].ContextMap()["length"])
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, rejected)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FramesTotal.WithLabelValues("unknown")))
}

func TestMonitor_DiagnosticsRateLimited(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	metrics := NewMetrics(prometheus.NewRegistry())
	m := NewMonitor(nil, initialState(), zap.New(core), metrics)

	for i := 0; i < 100; i++ {
		m.Process([]byte{1, 2, 3})
	}

	assert.Less(t, logs.FilterMessage("ignoring frame").Len(), 100)
	assert.Equal(t, float64(100), testutil.ToFloat64(metrics.FramesTotal.WithLabelValues("unknown")))
}

func TestMonitor_RunDecodesEachChunk(t *testing.T) {
	src := newChunkSource()
	state := initialState()
	m := NewMonitor(src, state, nil, nil)

	decoded := make(chan *civ.Frame, 4)
	m.hooks.OnFrame = func(f *civ.Frame) { decoded <- f }

	src.chunks <- frequencyFrame
	src.chunks <- []byte{0xFE, 0xFE, 0x94} // ignored
	src.chunks <- modeFrame
	close(src.chunks)

	err := m.Run(context.Background())
	require.NoError(t, err, "EOF ends the loop cleanly")

	require.Len(t, decoded, 2)
	assert.Equal(t, Snapshot{Frequency: "0504030201", Mode: "bbaa"}, state.Current())
}

func TestMonitor_SplitFrameNotReassembled(t *testing.T) {
	src := newChunkSource()
	state := initialState()
	m := NewMonitor(src, state, nil, nil)

	src.chunks <- frequencyFrame[:6]
	src.chunks <- frequencyFrame[6:]
	close(src.chunks)

	require.NoError(t, m.Run(context.Background()))
	assert.False(t, state.Changed())
}

// flakyReader fails once with a transient error, then reports a closed source
type flakyReader struct {
	calls int
}

func (r *flakyReader) Read(p []byte) (int, error) {
	r.calls++
	switch r.calls {
	case 1:
		return 0, errors.New("framing error")
	case 2:
		return copy(p, modeFrame), nil
	default:
		return 0, ErrSourceClosed
	}
}

func TestMonitor_RunRecoversFromTransientErrors(t *testing.T) {
	state := initialState()
	r := &flakyReader{}
	m := NewMonitor(r, state, nil, nil)

	err := m.Run(context.Background())
	require.ErrorIs(t, err, ErrSourceClosed)
	assert.Equal(t, 3, r.calls)
	assert.Equal(t, "bbaa", state.Current().Mode)
}

// blockingReader blocks until closed
type blockingReader struct {
	closed chan struct{}
}

func (r *blockingReader) Read(p []byte) (int, error) {
	<-r.closed
	return 0, io.ErrClosedPipe
}

func TestMonitor_RunStopsOnCancel(t *testing.T) {
	r := &blockingReader{closed: make(chan struct{})}
	m := NewMonitor(r, initialState(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	cancel()
	close(r.closed)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestMonitor_BurstLongerThanReadBufferIgnored(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	state := initialState()
	burst := append(bytes.Repeat([]byte{0x11}, 64), frequencyFrame...)

	var rejected []error
	m := NewMonitor(bytes.NewReader(burst), state, zap.New(core), nil)
	m.readSize = 64
	m.hooks.OnRejected = func(_ []byte, err error) { rejected = append(rejected, err) }

	require.NoError(t, m.Run(context.Background()))

	assert.False(t, state.Changed(), "tail of an oversized read must not be decoded")
	require.Len(t, rejected, 1)
	var lengthErr *civ.LengthError
	require.ErrorAs(t, rejected[0], &lengthErr)
	assert.Equal(t, 75, lengthErr.Length)

	entries := logs.FilterMessage("ignoring frame").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(75), entries[0].ContextMap()["length"])
}

func TestMonitor_BurstWithinReadBufferIgnored(t *testing.T) {
	state := initialState()
	burst := append(bytes.Repeat([]byte{0x11}, 64), frequencyFrame...)

	m := NewMonitor(bytes.NewReader(burst), state, nil, nil)
	require.NoError(t, m.Run(context.Background()))
	assert.False(t, state.Changed())
}
