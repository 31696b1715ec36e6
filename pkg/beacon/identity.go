// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beacon

import (
	"encoding/binary"
	"errors"
	"net"
)

// ErrNoHardwareID is returned when no interface carries a usable hardware address
var ErrNoHardwareID = errors.New("no hardware address available for device id")

// HardwareID derives a 32-bit device id from the first non-loopback
// interface with a hardware address.
func HardwareID() (uint32, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return 0, err
	}
	return idFromInterfaces(ifaces)
}

func idFromInterfaces(ifaces []net.Interface) (uint32, error) {
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if id, ok := IDFromMAC(iface.HardwareAddr); ok {
			return id, nil
		}
	}
	return 0, ErrNoHardwareID
}

// IDFromMAC returns the low 32 bits of a MAC read as a little-endian
// integer, which is the first four octets in transmission order.
func IDFromMAC(mac net.HardwareAddr) (uint32, bool) {
	if len(mac) < 4 {
		return 0, false
	}
	allZero := true
	for _, b := range mac {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return 0, false
	}
	return binary.LittleEndian.Uint32(mac[:4]), true
}
