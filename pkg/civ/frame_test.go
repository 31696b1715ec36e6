// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package civ

import (
	"errors"
	"testing"
)

// ============================================================
// Classification Tests
// ============================================================

func TestClassify(t *testing.T) {
	tests := []struct {
		n    int
		want Kind
	}{
		{0, KindUnknown},
		{5, KindUnknown},
		{7, KindUnknown},
		{8, KindMode},
		{9, KindUnknown},
		{10, KindUnknown},
		{11, KindFrequency},
		{12, KindUnknown},
		{64, KindUnknown},
	}

	for _, tt := range tests {
		if got := Classify(tt.n); got != tt.want {
			t.Errorf("Classify(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestKindString(t *testing.T) {
	if KindFrequency.String() != "frequency" {
		t.Errorf("unexpected name %q", KindFrequency.String())
	}
	if KindMode.String() != "mode" {
		t.Errorf("unexpected name %q", KindMode.String())
	}
	if Kind(42).String() != "unknown" {
		t.Errorf("unexpected name %q", Kind(42).String())
	}
}

// ============================================================
// Decode Tests
// ============================================================

func TestDecode_FrequencyFrame(t *testing.T) {
	buf := []byte{0xFE, 0xFE, 0x00, 0x94, 0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0xFD}

	f, err := Decode(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Kind() != KindFrequency {
		t.Fatalf("expected frequency frame, got %v", f.Kind())
	}
	if f.Value() != "0504030201" {
		t.Errorf("expected 0504030201, got %q", f.Value())
	}
	if f.Timestamp().IsZero() {
		t.Error("timestamp should be set")
	}
}

func TestDecode_ModeFrame(t *testing.T) {
	buf := []byte{0xFE, 0xFE, 0x00, 0x94, 0x01, 0xAA, 0xBB, 0xFD}

	f, err := Decode(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Kind() != KindMode {
		t.Fatalf("expected mode frame, got %v", f.Kind())
	}
	if f.Value() != "bbaa" {
		t.Errorf("expected bbaa, got %q", f.Value())
	}
}

func TestDecode_RealRadioFrequency(t *testing.T) {
	// 7.125.000 Hz transceive frame, BCD least significant byte first
	buf := []byte{0xFE, 0xFE, 0x00, 0x94, 0x00, 0x00, 0x50, 0x12, 0x07, 0x00, 0xFD}

	f, err := Decode(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Value() != "0007125000" {
		t.Errorf("expected 0007125000, got %q", f.Value())
	}
}

func TestDecode_UnknownLength(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x04, 0x05}

	f, err := Decode(buf)
	if f != nil {
		t.Fatalf("expected no frame, got %+v", f)
	}

	var lengthErr *LengthError
	if !errors.As(err, &lengthErr) {
		t.Fatalf("expected *LengthError, got %T", err)
	}
	if lengthErr.Length != 5 {
		t.Errorf("expected length 5, got %d", lengthErr.Length)
	}
	if !errors.Is(err, ErrUnrecognizedLength) {
		t.Error("LengthError should wrap ErrUnrecognizedLength")
	}
	if err.Error() != "unknown command length = 5" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestDecode_Empty(t *testing.T) {
	if _, err := Decode(nil); err == nil {
		t.Fatal("expected error for empty buffer")
	}
}

func TestDecode_CopiesInput(t *testing.T) {
	buf := []byte{0xFE, 0xFE, 0x00, 0x94, 0x01, 0x03, 0x01, 0xFD}

	f, err := Decode(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	buf[5] = 0xFF
	if f.Raw()[5] != 0x03 {
		t.Error("frame should not alias the read buffer")
	}

	raw := f.Raw()
	raw[6] = 0xFF
	if f.Raw()[6] != 0x01 {
		t.Error("Raw should return a copy")
	}
}

func TestDecode_IgnoresFramingBytes(t *testing.T) {
	// Checksumless: preamble and terminator are not inspected
	buf := []byte{0, 0, 0, 0, 0, 0x12, 0x34, 0}

	f, err := Decode(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Value() != "3412" {
		t.Errorf("expected 3412, got %q", f.Value())
	}
}

// ============================================================
// Encoding Tests
// ============================================================

func TestEncodeReversed(t *testing.T) {
	tests := []struct {
		in   []byte
		want string
	}{
		{[]byte{}, ""},
		{[]byte{0x0A}, "0a"},
		{[]byte{0x01, 0x02, 0x03, 0x04, 0x05}, "0504030201"},
		{[]byte{0xAA, 0xBB}, "bbaa"},
		{[]byte{0x00, 0xFF}, "ff00"},
	}

	for _, tt := range tests {
		if got := EncodeReversed(tt.in); got != tt.want {
			t.Errorf("EncodeReversed(% X) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEncodeReversed_DoesNotMutate(t *testing.T) {
	in := []byte{0x01, 0x02, 0x03}
	EncodeReversed(in)
	if in[0] != 0x01 || in[2] != 0x03 {
		t.Errorf("input mutated: % X", in)
	}
}

func TestValidToken(t *testing.T) {
	tests := []struct {
		s      string
		digits int
		want   bool
	}{
		{"0007125000", FrequencyDigits, true},
		{"0200", ModeDigits, true},
		{"bbaa", ModeDigits, true},
		{"BBAA", ModeDigits, false},
		{"020", ModeDigits, false},
		{"02000", ModeDigits, false},
		{"zz00", ModeDigits, false},
		{"", ModeDigits, false},
	}

	for _, tt := range tests {
		if got := ValidToken(tt.s, tt.digits); got != tt.want {
			t.Errorf("ValidToken(%q, %d) = %v, want %v", tt.s, tt.digits, got, tt.want)
		}
	}
}
