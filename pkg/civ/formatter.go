// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package civ

import (
	"fmt"
	"strings"
	"time"
)

// FormatFrame formats a decoded frame into a human-readable string
func FormatFrame(f *Frame) string {
	timestamp := f.timestamp.Format("15:04:05.000")

	result := fmt.Sprintf("[%s] %s len=%d %s\n", timestamp, strings.ToUpper(f.kind.String()), len(f.raw), FormatCommand(f.raw))
	switch f.kind {
	case KindFrequency:
		result += fmt.Sprintf("  Frequency: %s\n", f.value)
	case KindMode:
		result += fmt.Sprintf("  Mode: %s\n", f.value)
	}
	result += FormatRaw(f.raw)
	return result
}

// FormatRejected formats a buffer that did not decode into a frame
func FormatRejected(at time.Time, buf []byte) string {
	result := fmt.Sprintf("[%s] UNKNOWN len=%d %s\n", at.Format("15:04:05.000"), len(buf), FormatCommand(buf))
	return result + FormatRaw(buf)
}

// FormatOversized formats a read too long for the read buffer. Its bytes
// were not kept.
func FormatOversized(at time.Time, n int) string {
	return fmt.Sprintf("[%s] UNKNOWN len=%d (exceeds %d byte read buffer)\n", at.Format("15:04:05.000"), n, MaxReadSize)
}

// FormatCommand names the CI-V command byte of buf when the buffer is long enough
func FormatCommand(buf []byte) string {
	if len(buf) <= CommandIndex {
		return "cmd=?"
	}
	cmd := buf[CommandIndex]
	return fmt.Sprintf("cmd=%s (0x%02X)", FormatCommandName(cmd), cmd)
}

// FormatCommandName returns the human-readable name for a CI-V command byte
func FormatCommandName(cmd byte) string {
	switch cmd {
	case CmdTransceiveFrequency:
		return "TRANSCEIVE_FREQ"
	case CmdTransceiveMode:
		return "TRANSCEIVE_MODE"
	case CmdReadFrequency:
		return "READ_FREQ"
	case CmdReadMode:
		return "READ_MODE"
	case CmdSetFrequency:
		return "SET_FREQ"
	case CmdSetMode:
		return "SET_MODE"
	case CmdOK:
		return "OK"
	case CmdNG:
		return "NG"
	default:
		return "UNKNOWN"
	}
}

// FormatRaw renders buf as a hex dump, 16 bytes per line
func FormatRaw(buf []byte) string {
	var b strings.Builder
	b.WriteString("  Raw: ")
	for i, v := range buf {
		if i > 0 && i%16 == 0 {
			b.WriteString("\n       ")
		}
		fmt.Fprintf(&b, "%02X ", v)
	}
	b.WriteString("\n")
	return b.String()
}
