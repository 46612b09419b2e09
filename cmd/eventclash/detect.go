package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/galois26/eventclash/internal/config"
	"github.com/galois26/eventclash/internal/engine"
	"github.com/galois26/eventclash/internal/model"
	"github.com/galois26/eventclash/internal/source"
)

type detectOptions struct {
	file        string
	timeBuffer  time.Duration
	thresholdKm *float64
	asJSON      bool
}

var (
	detectFile       string
	detectTimeBuffer time.Duration
	detectThreshold  float64
	detectJSON       bool
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect conflicts among the events in a JSON file",
	Long: `Reads events from a JSON file (a bare array or an object with an events list)
and prints the conflicts between them.`,
	Example: `  eventclash detect --file events.json
  eventclash detect --file events.json --time-buffer 15m --threshold 0.2 --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := detectOptions{file: detectFile, timeBuffer: detectTimeBuffer, asJSON: detectJSON}
		if cmd.Flags().Changed("threshold") {
			opts.thresholdKm = &detectThreshold
		}
		return runDetect(cmd.Context(), cmd.OutOrStdout(), opts)
	},
}

func init() {
	detectCmd.Flags().StringVar(&detectFile, "file", "", "JSON file with events (required)")
	detectCmd.Flags().DurationVar(&detectTimeBuffer, "time-buffer", engine.DefaultConfig().DefaultTimeBuffer, "buffer added around each event")
	detectCmd.Flags().Float64Var(&detectThreshold, "threshold", 0, "venue proximity threshold in km (default: estimated from venue density)")
	detectCmd.Flags().BoolVar(&detectJSON, "json", false, "print the full report as JSON")
	_ = detectCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(detectCmd)
}

func runDetect(ctx context.Context, w io.Writer, opts detectOptions) error {
	if opts.timeBuffer < 0 {
		return fmt.Errorf("--time-buffer cannot be negative")
	}
	if opts.thresholdKm != nil && *opts.thresholdKm < 0 {
		return fmt.Errorf("--threshold cannot be negative")
	}

	src := source.NewFileSource(config.SourceConfig{Name: "file", Type: "file", Path: opts.file})
	events, err := src.Fetch(ctx, source.Query{})
	if err != nil {
		return fmt.Errorf("read events: %w", err)
	}

	find := engine.DefaultFindOptions()
	find.TimeBuffer = opts.timeBuffer
	find.VenueProximityKm = opts.thresholdKm
	rep := engine.Analyze(events, find)

	if opts.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	printReport(w, rep)
	return nil
}

func severityColor(s model.Severity) *color.Color {
	switch s {
	case model.SeverityHigh:
		return color.New(color.FgRed, color.Bold)
	case model.SeverityMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

func printReport(w io.Writer, rep engine.Report) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(w, "\n%s\n\n", cyan("=== Event Conflicts ==="))
	if len(rep.Conflicts) == 0 {
		fmt.Fprintf(w, "  %s\n", gray("No conflicts found"))
	}
	for _, c := range rep.Conflicts {
		sev := severityColor(c.Severity).SprintFunc()
		fmt.Fprintf(w, "  %s %s  %s\n", sev(fmt.Sprintf("[%s]", c.Severity)), c.ConflictType, c.TimeSlot)
		for _, ev := range c.Events {
			fmt.Fprintf(w, "    %s @ %s %s\n", ev.Name, ev.VenueName(), gray("("+ev.Source+")"))
		}
		if len(c.SharedGenres) > 0 {
			fmt.Fprintf(w, "    shared genres: %v\n", c.SharedGenres)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Events:    %d total, %d unique, %d filtered\n", rep.TotalEvents, rep.UniqueEvents, rep.DuplicatesFiltered)
	fmt.Fprintf(w, "Conflicts: %d\n", rep.ConflictCount)
	fmt.Fprintf(w, "Threshold: %.2f km (%s), buffer %g min\n", rep.VenueProximityThreshold, rep.ThresholdMode, rep.TimeBuffer)
}
