// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package civ

import (
	"fmt"
	"sort"
	"time"
)

// Statistics tracks frame counts and rates.
// It is not safe for concurrent use; each reader owns its own instance.
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames     uint64
	FrequencyFrames uint64
	ModeFrames      uint64
	UnknownFrames   uint64
	TotalBytes      uint64

	// UnknownByLength counts unrecognized frames per observed length
	UnknownByLength map[int]uint64

	// Rates (calculated)
	FrameRate   float64 // frames/sec
	UnknownRate float64 // unknown frames/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:       now,
		LastUpdateTime:  now,
		UnknownByLength: make(map[int]uint64),
	}
}

// Update records one chunk of n bytes and what it decoded to
func (s *Statistics) Update(n int, kind Kind) {
	s.TotalFrames++
	s.TotalBytes += uint64(n)

	switch kind {
	case KindFrequency:
		s.FrequencyFrames++
	case KindMode:
		s.ModeFrames++
	default:
		s.UnknownFrames++
		s.UnknownByLength[n]++
	}

	s.LastUpdateTime = time.Now()
}

// CalculateRates calculates frame rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.UnknownRate = float64(s.UnknownFrames) / elapsed
	}
}

// RecognizedPercent returns the share of frames that decoded
func (s *Statistics) RecognizedPercent() float64 {
	if s.TotalFrames == 0 {
		return 0
	}
	return float64(s.FrequencyFrames+s.ModeFrames) * 100.0 / float64(s.TotalFrames)
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Recognized:      %8d (%.1f%%)\n", s.FrequencyFrames+s.ModeFrames, s.RecognizedPercent())
	result += fmt.Sprintf("  Frequency:        %5d\n", s.FrequencyFrames)
	result += fmt.Sprintf("  Mode:             %5d\n", s.ModeFrames)

	if s.UnknownFrames > 0 {
		result += fmt.Sprintf("Unknown:         %8d\n", s.UnknownFrames)
		lengths := make([]int, 0, len(s.UnknownByLength))
		for n := range s.UnknownByLength {
			lengths = append(lengths, n)
		}
		sort.Ints(lengths)
		for _, n := range lengths {
			result += fmt.Sprintf("  len=%-3d          %5d\n", n, s.UnknownByLength[n])
		}
	}

	result += fmt.Sprintf("Bytes:           %8d\n", s.TotalBytes)
	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Unknown Rate:    %8.1f frames/sec\n", s.UnknownRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	now := time.Now()
	s.StartTime = now
	s.LastUpdateTime = now
	s.TotalFrames = 0
	s.FrequencyFrames = 0
	s.ModeFrames = 0
	s.UnknownFrames = 0
	s.TotalBytes = 0
	s.UnknownByLength = make(map[int]uint64)
	s.FrameRate = 0
	s.UnknownRate = 0
}
