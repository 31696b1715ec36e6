// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// civbeacon - CI-V Radio Beacon
//
// Listens to a transceiver's CI-V bus and reports frequency and mode
// changes to a remote collector.

package main

import (
	"os"

	"github.com/stationmaster/civbeacon/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
