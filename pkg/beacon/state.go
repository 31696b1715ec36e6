// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beacon

import (
	"sync"

	"github.com/stationmaster/civbeacon/pkg/civ"
)

// Placeholder radio state used until the first frames arrive
const (
	DefaultFrequency = "0007125000"
	DefaultMode      = "0200"
)

// Snapshot is a frequency/mode pair that existed at the same instant
type Snapshot struct {
	Frequency string
	Mode      string
}

// DeviceState holds the latest decoded radio state and the state last
// handed to the uplink. The decoder writes, the reporter snapshots and
// commits; both go through the same lock.
type DeviceState struct {
	id   uint32
	name string

	mu       sync.Mutex
	current  Snapshot
	reported Snapshot
}

// NewDeviceState creates a state record. The initial snapshot counts as
// already reported.
func NewDeviceState(id uint32, name string, initial Snapshot) *DeviceState {
	return &DeviceState{
		id:       id,
		name:     name,
		current:  initial,
		reported: initial,
	}
}

// ID returns the device identifier
func (s *DeviceState) ID() uint32 {
	return s.id
}

// Name returns the device label
func (s *DeviceState) Name() string {
	return s.name
}

// SetFrequency records a decoded frequency token
func (s *DeviceState) SetFrequency(freq string) {
	s.mu.Lock()
	s.current.Frequency = freq
	s.mu.Unlock()
}

// SetMode records a decoded mode token
func (s *DeviceState) SetMode(mode string) {
	s.mu.Lock()
	s.current.Mode = mode
	s.mu.Unlock()
}

// Apply writes the field carried by a decoded frame
func (s *DeviceState) Apply(f *civ.Frame) {
	switch f.Kind() {
	case civ.KindFrequency:
		s.SetFrequency(f.Value())
	case civ.KindMode:
		s.SetMode(f.Value())
	}
}

// Current returns the latest decoded pair
func (s *DeviceState) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// LastReported returns the pair most recently committed for reporting
func (s *DeviceState) LastReported() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reported
}

// Changed reports whether the current pair differs from the last reported one
func (s *DeviceState) Changed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != s.reported
}

// Commit compares current and reported state and, if either field differs,
// makes the current pair the new baseline. It returns the committed pair
// and whether a commit happened.
func (s *DeviceState) Commit() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == s.reported {
		return Snapshot{}, false
	}
	s.reported = s.current
	return s.current, true
}
