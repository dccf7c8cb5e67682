package timetables

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rycus86/bahnapi/pkg/client"
)

// FetchPlan returns the planned departures of a station between start and end (inclusive),
// ordered by planned departure time. One /plan slice is requested per hour of the window.
func (c *TimetableClient) FetchPlan(ctx context.Context, stationID string, start, end time.Time) ([]PlanStop, error) {
	stationID = strings.TrimSpace(stationID)
	if err := validateStationID(stationID); err != nil {
		return nil, err
	}
	if err := validateWindow(start, end); err != nil {
		return nil, err
	}

	var stops []PlanStop
	positions := make(map[string]int)

	for _, slice := range hourSlices(start, end) {
		date, hour := slice.Format(dateFormat), slice.Format(hourFormat)

		payload, err := c.client.FetchPlan(ctx, stationID, date, hour)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch plan %s/%s/%s: %w", stationID, date, hour, err)
		}

		chunk, err := ParsePlan(payload, stationID)
		if err != nil {
			return nil, err
		}

		for _, stop := range chunk {
			if !inWindow(stop.DeparturePlanned, start, end) {
				continue
			}

			if idx, seen := positions[stop.StopID]; seen {
				stops[idx] = stop
				continue
			}

			positions[stop.StopID] = len(stops)
			stops = append(stops, stop)
		}
	}

	sort.SliceStable(stops, func(i, j int) bool {
		return stops[i].DeparturePlanned.Before(*stops[j].DeparturePlanned)
	})

	return stops, nil
}

// FetchChanges returns the change records of the full (fchg) or recent (rchg) feed.
func (c *TimetableClient) FetchChanges(ctx context.Context, stationID string, kind ChangeKind) ([]ChangeRecord, error) {
	stationID = strings.TrimSpace(stationID)
	if err := validateStationID(stationID); err != nil {
		return nil, err
	}

	var (
		payload []byte
		err     error
	)

	switch kind {
	case FullChanges:
		payload, err = c.client.FetchFullChanges(ctx, stationID)
	case RecentChanges:
		payload, err = c.client.FetchRecentChanges(ctx, stationID)
	default:
		return nil, fmt.Errorf("%w: unknown change feed %q", client.ErrValidation, kind)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s for %s: %w", kind, stationID, err)
	}

	return ParseChanges(payload, stationID)
}

func validateStationID(stationID string) error {
	if stationID == "" {
		return fmt.Errorf("%w: station id is required", client.ErrValidation)
	}
	return nil
}

func validateWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start and end time are required", client.ErrValidation)
	}
	if !start.Before(end) {
		return fmt.Errorf("%w: start time %s must be before end time %s",
			client.ErrValidation, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return nil
}

// hourSlices returns the start of every Berlin-local hour touched by [start, end].
func hourSlices(start, end time.Time) []time.Time {
	s := start.In(Berlin)
	e := end.In(Berlin)

	current := time.Date(s.Year(), s.Month(), s.Day(), s.Hour(), 0, 0, 0, Berlin)

	var slices []time.Time
	for !current.After(e) {
		slices = append(slices, current)
		current = current.Add(time.Hour)
	}

	return slices
}

func inWindow(t *time.Time, start, end time.Time) bool {
	return t != nil && !t.Before(start) && !t.After(end)
}
