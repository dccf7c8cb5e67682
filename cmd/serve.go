package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rycus86/bahnapi/pkg/client"
	"github.com/rycus86/bahnapi/pkg/config"
	"github.com/rycus86/bahnapi/pkg/server"
	"github.com/rycus86/bahnapi/pkg/timetables"
)

func newServeCmd() *cobra.Command {
	var listen, stationsFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve departures and station search over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			tt, err := serviceClient(stationsFile)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.New(listen, tt).Serve(ctx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", ":8080", "Address to listen on")
	cmd.Flags().StringVar(&stationsFile, "stations", "", "Search stations in this XML directory instead of the /station endpoint")

	return cmd
}

func serviceClient(stationsFile string) (*timetables.TimetableClient, error) {
	if stationsFile == "" {
		return timetables.Default()
	}

	f, err := os.Open(stationsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open station directory: %w", err)
	}
	defer f.Close()

	directory, err := timetables.LoadDirectory(f)
	if err != nil {
		return nil, err
	}

	httpClient, err := client.NewHttpClient(config.Active())
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("component", "server")
	logger.Info("loaded station directory", "file", stationsFile, "stations", len(directory.Stations()))

	return timetables.NewTimetableClient(httpClient,
		timetables.WithDirectory(directory),
		timetables.WithLogger(logger),
	), nil
}
