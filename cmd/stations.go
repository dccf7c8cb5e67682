package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/rycus86/bahnapi/pkg/timetables"
)

func newStationsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "stations PATTERN",
		Short: "Search stations by name, EVA number or DS100 code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stations, err := timetables.SearchStationsLimit(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(stations)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of stations to return")

	return cmd
}
