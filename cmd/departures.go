package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rycus86/bahnapi/pkg/exporter"
	"github.com/rycus86/bahnapi/pkg/server"
	"github.com/rycus86/bahnapi/pkg/timetables"
)

var (
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true).Padding(1, 0)
	trainStyle     = lipgloss.NewStyle().Bold(true)
	onTimeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	delayedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	unknownStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	cancelledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Strikethrough(true)
	messageStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
)

type departuresOptions struct {
	hours   float64
	recent  bool
	resolve bool
	json    bool
	ics     string
}

func newDeparturesCmd() *cobra.Command {
	opts := &departuresOptions{}

	cmd := &cobra.Command{
		Use:   "departures STATION",
		Short: "Show the next departures from a station",
		Long: `Show the departures from a station (given by its EVA number, or by name with --resolve)
for the next hours, including delays, platform changes and cancellations.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.hours <= 0 || opts.hours > server.MaxHours {
				return fmt.Errorf("--hours must be positive and at most %d, got %v", server.MaxHours, opts.hours)
			}

			tt, err := timetables.Default()
			if err != nil {
				return err
			}

			station := args[0]
			var departures []timetables.Departure

			fetch := func() {
				departures, station, err = fetchDepartures(cmd.Context(), tt, station, opts)
			}

			if opts.json {
				fetch()
			} else {
				withSpinner(fmt.Sprintf("Fetching departures for %s...", station), fetch)
			}

			if err != nil {
				return err
			}

			if opts.ics != "" {
				return writeICS(cmd.OutOrStdout(), opts.ics, departures)
			}

			if opts.json {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(departures)
			}

			printDepartures(cmd.OutOrStdout(), station, departures)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&opts.hours, "hours", 1, "How many hours ahead to look")
	flags.BoolVar(&opts.recent, "recent", false, "Also apply the recent changes feed")
	flags.BoolVar(&opts.resolve, "resolve", false, "Treat STATION as a name pattern and resolve it to an EVA number")
	flags.BoolVar(&opts.json, "json", false, "Print the departures as JSON")
	flags.StringVar(&opts.ics, "ics", "", "Export the departures to this .ics file")

	return cmd
}

var runSpinner = func(title string, wait func()) error {
	return spinner.New().Title(title).Action(wait).Run()
}

// withSpinner runs action while a spinner is shown and returns once action has finished,
// even if the spinner could not be started.
func withSpinner(title string, action func()) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		action()
	}()

	if err := runSpinner(title, func() { <-done }); err != nil {
		slog.Debug("spinner not available", "error", err)
	}

	<-done
}

func fetchDepartures(ctx context.Context, tt *timetables.TimetableClient, station string, opts *departuresOptions) ([]timetables.Departure, string, error) {
	if opts.resolve {
		eva, err := tt.ResolveStationEVA(ctx, station)
		if err != nil {
			return nil, station, err
		}
		station = eva
	}

	var departureOpts []timetables.DeparturesOption
	if opts.recent {
		departureOpts = append(departureOpts, timetables.WithRecentChanges())
	}

	start := time.Now()
	end := start.Add(time.Duration(opts.hours * float64(time.Hour)))

	departures, err := tt.Departures(ctx, station, start, end, departureOpts...)
	return departures, station, err
}

func writeICS(w io.Writer, path string, departures []timetables.Departure) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := exporter.GenerateICS(departures, file); err != nil {
		return fmt.Errorf("failed to write calendar: %w", err)
	}

	fmt.Fprintf(w, "Exported %d departures to %s\n", len(departures), path)
	return nil
}

func printDepartures(w io.Writer, station string, departures []timetables.Departure) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Departures from %s", station)))

	if len(departures) == 0 {
		fmt.Fprintln(w, "No departures found.")
		return
	}

	for _, d := range departures {
		fmt.Fprintln(w, departureLine(d))

		for _, m := range d.Messages {
			if m.Text != "" {
				fmt.Fprintln(w, "        "+messageStyle.Render(m.Text))
			}
		}
	}
}

func departureLine(d timetables.Departure) string {
	planned := "--:--"
	if d.DeparturePlanned != nil {
		planned = d.DeparturePlanned.In(timetables.Berlin).Format("15:04")
	}

	train := trainStyle.Render(fmt.Sprintf("%s %s", d.TrainCategory, d.TrainNumber))
	line := fmt.Sprintf("  %s  %s -> %s  Pl. %s", planned, train, d.DestinationName, d.EffectivePlatform())

	switch {
	case d.Cancelled():
		return cancelledStyle.Render(line) + " " + delayedStyle.Render("cancelled")
	case d.DelayMinutes == nil:
		return line
	case *d.DelayMinutes > 0:
		return line + " " + delayedStyle.Render(fmt.Sprintf("+%d min", *d.DelayMinutes))
	case *d.DelayMinutes < 0:
		return line + " " + unknownStyle.Render(fmt.Sprintf("%d min", *d.DelayMinutes))
	default:
		return line + " " + onTimeStyle.Render("on time")
	}
}
