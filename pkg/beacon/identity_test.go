// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beacon

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDFromMAC(t *testing.T) {
	mac, err := net.ParseMAC("24:0a:c4:11:22:33")
	require.NoError(t, err)

	id, ok := IDFromMAC(mac)
	require.True(t, ok)
	assert.Equal(t, uint32(0x11c40a24), id)
}

func TestIDFromMAC_Unusable(t *testing.T) {
	_, ok := IDFromMAC(nil)
	assert.False(t, ok)

	_, ok = IDFromMAC(net.HardwareAddr{0, 0, 0, 0, 0, 0})
	assert.False(t, ok)
}

func TestIDFromInterfaces_SkipsLoopback(t *testing.T) {
	ifaces := []net.Interface{
		{Name: "lo", Flags: net.FlagLoopback | net.FlagUp, HardwareAddr: net.HardwareAddr{1, 2, 3, 4, 5, 6}},
		{Name: "tun0", Flags: net.FlagUp},
		{Name: "eth0", Flags: net.FlagUp, HardwareAddr: net.HardwareAddr{0x24, 0x0a, 0xc4, 0x11, 0x22, 0x33}},
	}

	id, err := idFromInterfaces(ifaces)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x11c40a24), id)
}

func TestIDFromInterfaces_None(t *testing.T) {
	_, err := idFromInterfaces([]net.Interface{{Name: "lo", Flags: net.FlagLoopback}})
	assert.ErrorIs(t, err, ErrNoHardwareID)
}
