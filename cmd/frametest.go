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

var frameTestTimeout int

var frameTestCmd = &cobra.Command{
	Use:   "frame_test",
	Short: "Test connection by waiting for a frequency or mode frame",
	Long: `Wait for a recognized CI-V frame on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any read
that decodes as a frequency (11 byte) or mode (8 byte) frame. Reads of other
lengths are counted and ignored.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a recognized frame
  2 - Connection error

Useful for checking baud rate and CI-V transceive settings on the radio.`,
	RunE: runFrameTest,
}

func init() {
	rootCmd.AddCommand(frameTestCmd)
	frameTestCmd.Flags().IntVar(&frameTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

func runFrameTest(cmd *cobra.Command, args []string) error {
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

	fmt.Printf("civbeacon - Frame Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", frameTestTimeout)
	fmt.Printf("Waiting for CI-V frequency or mode frame...\n\n")

	frameChan := make(chan *civ.Frame, 1)
	errChan := make(chan error, 1)

	go func() {
		reader := civ.NewReader(conn, civ.MaxReadSize)
		ignored := 0
		for {
			chunk, n, err := reader.Next()
			if err != nil {
				errChan <- err
				return
			}
			if n == 0 {
				continue
			}
			if chunk == nil {
				ignored++
				continue
			}

			frame, decodeErr := civ.Decode(chunk)
			if decodeErr != nil {
				ignored++
				continue
			}
			if ignored > 0 {
				fmt.Printf("(ignored %d reads of unknown length)\n", ignored)
			}
			frameChan <- frame
			return
		}
	}()

	select {
	case frame := <-frameChan:
		fmt.Printf("SUCCESS: Received %s frame\n", frame.Kind())
		fmt.Printf("  Value: %s\n", frame.Value())
		fmt.Printf("  Length: %d bytes\n", len(frame.Raw()))
		fmt.Printf("  %s\n", civ.FormatCommand(frame.Raw()))
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(frameTestTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No recognized frame received within %d seconds\n", frameTestTimeout)
		os.Exit(1)
	}

	return nil
}
