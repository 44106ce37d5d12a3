/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/friendsincode/eventdesk/internal/timetable"
)

var (
	resolveOpen  string
	resolveStart string
	resolveJSON  bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <file>",
	Short: "Resolve a running order file into a timetable",
	Long: `Resolve a running order stored as YAML or JSON and print the timetable.

The file is either a list of slots or a mapping with open_time, start_time
and slots keys. Use "-" to read from stdin.

Examples:
  # Print a table
  eventdesk resolve lineup.yaml

  # Override the anchors and emit JSON
  eventdesk resolve lineup.json --open 17:30 --start 18:00 --json
`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveOpen, "open", "", "Door opening time (HH:MM), overrides the file")
	resolveCmd.Flags().StringVar(&resolveStart, "start", "", "First performance start (HH:MM), overrides the file")
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "Print resolved rows as JSON")
	rootCmd.AddCommand(resolveCmd)
}

// runningOrder is the decoded content of a resolve input file.
type runningOrder struct {
	OpenTime  string
	StartTime string
	Slots     []timetable.Slot
}

func runResolve(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("read running order: %w", err)
	}

	order, err := parseRunningOrder(data)
	if err != nil {
		return err
	}
	if resolveOpen != "" {
		order.OpenTime = resolveOpen
	}
	if resolveStart != "" {
		order.StartTime = resolveStart
	}

	rows := timetable.Resolve(order.Slots, order.OpenTime, order.StartTime)
	if resolveJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	return printRows(cmd.OutOrStdout(), rows)
}

// parseRunningOrder accepts YAML or JSON, which is a YAML subset.
func parseRunningOrder(data []byte) (*runningOrder, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse running order: %w", err)
	}

	order := &runningOrder{}
	switch v := doc.(type) {
	case nil:
	case []any:
		order.Slots = timetable.DecodeSlots(v)
	case map[string]any:
		order.OpenTime = timetable.Text(firstOf(v, "open_time", "openTime"))
		order.StartTime = timetable.Text(firstOf(v, "start_time", "startTime"))
		order.Slots = timetable.DecodeSlots(firstOf(v, "slots", "timetable"))
	default:
		return nil, fmt.Errorf("parse running order: unexpected document of type %T", doc)
	}
	return order, nil
}

func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}

func printRows(w io.Writer, rows []timetable.Row) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tARTIST\tMIN\tADJ\tGOODS\tPLACE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.TimeRange, r.ArtistName, minutesCell(r.DurationMinutes), minutesCell(r.AdjustmentMinutes), r.GoodsDisplay, r.PlaceDisplay)
	}
	return tw.Flush()
}

func minutesCell(n int) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%d", n)
}
