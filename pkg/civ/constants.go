// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package civ decodes the frequency and mode frames an Icom transceiver
// emits on its CI-V control bus.
//
// Frames are classified purely by the number of bytes delivered in one read.
// An 11 byte read is a frequency report, an 8 byte read is a mode report and
// anything else is ignored. Payload bytes are rendered as opaque lowercase
// hex tokens in reverse order; their numeric meaning is left to whoever
// consumes them.
package civ

// Frame lengths
const (
	FrequencyFrameLen = 11
	ModeFrameLen      = 8
)

// Payload placement inside a frame. The payload ends one byte before the
// end-of-message byte.
const (
	PayloadOffset    = 5
	FrequencyPayload = 5
	ModePayload      = 2
)

// Encoded token lengths
const (
	FrequencyDigits = FrequencyPayload * 2
	ModeDigits      = ModePayload * 2
)

// MaxReadSize is the read buffer handed to the byte source, the size of a
// serial driver's receive buffer. A read that fills it may have been cut
// short and is never decoded.
const MaxReadSize = 4096

// CI-V framing bytes. Decoding ignores them; they are used for display and
// for building requests.
const (
	Preamble     = 0xFE
	EndOfMessage = 0xFD
	ToIndex      = 2
	FromIndex    = 3
	CommandIndex = 4
)

// Bus addresses
const (
	AddressController = 0xE0 // conventional address of the controlling PC
	AddressIC7300     = 0x94
)

// CI-V command bytes
const (
	CmdTransceiveFrequency = 0x00
	CmdTransceiveMode      = 0x01
	CmdReadFrequency       = 0x03
	CmdReadMode            = 0x04
	CmdSetFrequency        = 0x05
	CmdSetMode             = 0x06
	CmdOK                  = 0xFB
	CmdNG                  = 0xFA
)
