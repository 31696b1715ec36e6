// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stationmaster/civbeacon/pkg/civ"
)

var (
	queryTimeout int
	queryAddress uint8
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Ask the radio for its frequency and mode",
	Long: `Send CI-V read frequency (0x03) and read mode (0x04) requests and print the replies.

The beacon itself only listens; use this command to check a radio that has
CI-V transceive turned off, or to confirm its bus address.

Examples:
  # IC-7300 at its default address
  civbeacon query --port /dev/ttyUSB0

  # IC-705 over a WebSocket bridge
  civbeacon query --url ws://bridge.local/civ --radio 0xA4

Exit codes:
  0 - Both replies received
  1 - One or more replies missing before timeout
  2 - Connection error`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().IntVar(&queryTimeout, "timeout", 2, "Timeout in seconds for each reply")
	queryCmd.Flags().Uint8Var(&queryAddress, "radio", civ.AddressIC7300, "Radio CI-V address")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("civbeacon - Radio Query\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Radio: 0x%02X\n", queryAddress)
	fmt.Printf("Timeout: %d seconds per reply\n\n", queryTimeout)

	frames := make(chan *civ.Frame, 4)
	errChan := make(chan error, 1)

	go func() {
		reader := civ.NewReader(conn, civ.MaxReadSize)
		for {
			chunk, n, err := reader.Next()
			if err != nil {
				errChan <- err
				return
			}
			if n == 0 || chunk == nil {
				continue
			}
			frame, decodeErr := civ.Decode(chunk)
			if decodeErr != nil {
				// Echoes of our own requests and OK/NG replies land here
				continue
			}
			if from, ok := civ.SourceAddress(frame.Raw()); ok && from != queryAddress {
				continue
			}
			select {
			case frames <- frame:
			default:
			}
		}
	}()

	requests := []struct {
		name string
		kind civ.Kind
		wire []byte
	}{
		{"READ_FREQ", civ.KindFrequency, civ.ReadFrequencyRequest(queryAddress)},
		{"READ_MODE", civ.KindMode, civ.ReadModeRequest(queryAddress)},
	}

	failCount := 0
	for _, req := range requests {
		fmt.Printf("%s: ", req.name)

		startTime := time.Now()
		if _, err := conn.Write(req.wire); err != nil {
			fmt.Printf("SEND FAILED: %v\n", err)
			os.Exit(2)
		}

		deadline := time.After(time.Duration(queryTimeout) * time.Second)
	wait:
		for {
			select {
			case frame := <-frames:
				if frame.Kind() != req.kind {
					// A transceive broadcast of the other kind
					continue
				}
				fmt.Printf("%s=%s, rtt=%v\n", frame.Kind(), frame.Value(), time.Since(startTime).Round(time.Millisecond))
				break wait

			case err := <-errChan:
				fmt.Printf("READ FAILED: %v\n", err)
				os.Exit(2)

			case <-deadline:
				fmt.Printf("TIMEOUT (no reply in %ds)\n", queryTimeout)
				failCount++
				break wait
			}
		}
	}

	if failCount > 0 {
		fmt.Printf("\nNo reply from 0x%02X. Check the radio's CI-V address and baud rate.\n", queryAddress)
		os.Exit(1)
	}
	return nil
}
