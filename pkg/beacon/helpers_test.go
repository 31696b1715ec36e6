// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beacon

import (
	"context"
	"io"
	"sync"
)

var (
	frequencyFrame = []byte{0xFE, 0xFE, 0x00, 0x94, 0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0xFD}
	modeFrame      = []byte{0xFE, 0xFE, 0x00, 0x94, 0x01, 0xAA, 0xBB, 0xFD}
)

// chunkSource delivers one queued chunk per Read, like a serial port
// returning whatever arrived since the last read.
type chunkSource struct {
	chunks chan []byte
	closed chan struct{}
	once   sync.Once
}

func newChunkSource() *chunkSource {
	return &chunkSource{
		chunks: make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (s *chunkSource) Read(p []byte) (int, error) {
	select {
	case c, ok := <-s.chunks:
		if !ok {
			return 0, io.EOF
		}
		return copy(p, c), nil
	case <-s.closed:
		return 0, ErrSourceClosed
	}
}

func (s *chunkSource) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func (s *chunkSource) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// recordingSink collects reports
type recordingSink struct {
	mu      sync.Mutex
	reports []Report
	ch      chan Report
}

func newRecordingSink() *recordingSink {
	return &recordingSink{ch: make(chan Report, 16)}
}

func (s *recordingSink) Send(_ context.Context, r Report) {
	s.mu.Lock()
	s.reports = append(s.reports, r)
	s.mu.Unlock()
	select {
	case s.ch <- r:
	default:
	}
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}

func initialState() *DeviceState {
	return NewDeviceState(0xDEADBEEF, "test-beacon", Snapshot{Frequency: "0000000000", Mode: "0000"})
}
