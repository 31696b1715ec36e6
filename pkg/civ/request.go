// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package civ

// EncodeRequest builds a CI-V message from the controller at from to the
// radio at to: FE FE to from cmd data... FD
func EncodeRequest(to, from, cmd byte, data ...byte) []byte {
	msg := make([]byte, 0, 6+len(data))
	msg = append(msg, Preamble, Preamble, to, from, cmd)
	msg = append(msg, data...)
	return append(msg, EndOfMessage)
}

// ReadFrequencyRequest asks the radio at addr for its operating frequency.
// The reply is an 11 byte frequency frame.
func ReadFrequencyRequest(addr byte) []byte {
	return EncodeRequest(addr, AddressController, CmdReadFrequency)
}

// ReadModeRequest asks the radio at addr for its operating mode.
// The reply is an 8 byte mode frame.
func ReadModeRequest(addr byte) []byte {
	return EncodeRequest(addr, AddressController, CmdReadMode)
}

// SourceAddress returns the sender address of raw, if present
func SourceAddress(raw []byte) (byte, bool) {
	if len(raw) <= FromIndex {
		return 0, false
	}
	return raw[FromIndex], true
}
