// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package civ

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Kind is the classification of a frame by its length
type Kind int

const (
	KindUnknown Kind = iota
	KindFrequency
	KindMode
)

func (k Kind) String() string {
	switch k {
	case KindFrequency:
		return "frequency"
	case KindMode:
		return "mode"
	default:
		return "unknown"
	}
}

// ErrUnrecognizedLength is wrapped by every LengthError
var ErrUnrecognizedLength = errors.New("unrecognized frame length")

// LengthError reports a buffer whose length matches no known frame
type LengthError struct {
	Length int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("unknown command length = %d", e.Length)
}

func (e *LengthError) Unwrap() error {
	return ErrUnrecognizedLength
}

// Frame is a recognized frequency or mode frame
type Frame struct {
	kind      Kind
	raw       []byte
	value     string
	timestamp time.Time
}

// Kind returns the frame classification
func (f *Frame) Kind() Kind {
	return f.kind
}

// Raw returns a copy of the bytes the frame was decoded from
func (f *Frame) Raw() []byte {
	out := make([]byte, len(f.raw))
	copy(out, f.raw)
	return out
}

// Value returns the encoded payload token
func (f *Frame) Value() string {
	return f.value
}

// Timestamp returns when the frame was decoded
func (f *Frame) Timestamp() time.Time {
	return f.timestamp
}

// Classify maps a buffer length to a frame kind
func Classify(n int) Kind {
	switch n {
	case FrequencyFrameLen:
		return KindFrequency
	case ModeFrameLen:
		return KindMode
	default:
		return KindUnknown
	}
}

// Decode classifies buf by length and extracts its payload token.
// Buffers of any other length return a *LengthError and no frame.
func Decode(buf []byte) (*Frame, error) {
	kind := Classify(len(buf))

	var width int
	switch kind {
	case KindFrequency:
		width = FrequencyPayload
	case KindMode:
		width = ModePayload
	default:
		return nil, &LengthError{Length: len(buf)}
	}

	raw := make([]byte, len(buf))
	copy(raw, buf)

	return &Frame{
		kind:      kind,
		raw:       raw,
		value:     EncodeReversed(raw[PayloadOffset : PayloadOffset+width]),
		timestamp: time.Now(),
	}, nil
}

// EncodeReversed renders b in reverse order as lowercase hex, two digits per byte
func EncodeReversed(b []byte) string {
	rev := make([]byte, len(b))
	for i, v := range b {
		rev[len(b)-1-i] = v
	}
	return hex.EncodeToString(rev)
}

// ValidToken reports whether s is a lowercase hex token of the given length
func ValidToken(s string, digits int) bool {
	if len(s) != digits {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
