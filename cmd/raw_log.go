// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/stationmaster/civbeacon/pkg/beacon"
	"github.com/stationmaster/civbeacon/pkg/civ"
)

var rawLogStatsInterval int

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display raw CI-V frame log in human-readable format",
	Long: `Continuously classify and display CI-V reads as they arrive.

Each read is shown with timestamp, frame kind, CI-V command and the decoded
frequency or mode token. Reads of any length other than 11 or 8 bytes are
shown as UNKNOWN with their raw bytes.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().IntVar(&rawLogStatsInterval, "stats-interval", 0, "Print statistics every N seconds (0 disables)")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("civbeacon - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	stats := civ.NewStatistics()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	go func() {
		<-sigs
		conn.Close()
	}()

	var statsTick <-chan time.Time
	if rawLogStatsInterval > 0 {
		ticker := time.NewTicker(time.Duration(rawLogStatsInterval) * time.Second)
		defer ticker.Stop()
		statsTick = ticker.C
	}

	reader := civ.NewReader(conn, civ.MaxReadSize)
	for {
		select {
		case <-statsTick:
			stats.CalculateRates()
			fmt.Println(stats.String())
		default:
		}

		chunk, n, err := reader.Next()
		switch {
		case n > 0 && chunk == nil:
			stats.Update(n, civ.KindUnknown)
			fmt.Print(civ.FormatOversized(time.Now(), n))
		case n > 0:
			printChunk(stats, chunk)
		}
		if err != nil {
			if errors.Is(err, beacon.ErrSourceClosed) || errors.Is(err, io.EOF) {
				fmt.Printf("Connection closed\n\n")
				stats.CalculateRates()
				fmt.Println(stats.String())
				return nil
			}
			fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func printChunk(stats *civ.Statistics, chunk []byte) {
	frame, err := civ.Decode(chunk)
	if err != nil {
		stats.Update(len(chunk), civ.KindUnknown)
		fmt.Print(civ.FormatRejected(time.Now(), chunk))
		return
	}
	stats.Update(len(chunk), frame.Kind())
	fmt.Print(civ.FormatFrame(frame))
}
